package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipforge/internal/preflight"
	"clipforge/internal/services"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check external tools and directory access",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results, ok := preflight.Run(cmd.Context(), cfg)

			rows := make([][]string, 0, len(results))
			for _, result := range results {
				state := "ok"
				if !result.Passed {
					state = "FAIL"
				}
				rows = append(rows, []string{result.Name, state, result.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Check", "State", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			if !ok {
				return services.Wrap(services.ErrExternalTool, "cli", "status", "one or more preflight checks failed", nil)
			}
			return nil
		},
	}
}
