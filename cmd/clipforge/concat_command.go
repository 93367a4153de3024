package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConcatCommand(ctx *commandContext) *cobra.Command {
	var output string
	var crossfade float64

	cmd := &cobra.Command{
		Use:   "concat <file>...",
		Short: "Join files in order, losslessly or with a crossfade",
		Long:  "Join two or more files. Without --crossfade the streams are copied via the concat demuxer; with a positive --crossfade every junction gets a fade of that many seconds and the result is re-encoded.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs := make([]string, 0, len(args))
			for _, arg := range args {
				input, err := resolveInput(arg)
				if err != nil {
					return err
				}
				inputs = append(inputs, input)
			}
			dest, err := ctx.outputPath(output, inputs[0], "joined")
			if err != nil {
				return err
			}
			engine, err := ctx.concatEngine()
			if err != nil {
				return err
			}
			return ctx.withOutputLock(func() error {
				if crossfade > 0 {
					err = engine.Crossfade(cmd.Context(), inputs, dest, crossfade)
				} else {
					err = engine.Concat(cmd.Context(), inputs, dest)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), dest)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	cmd.Flags().Float64Var(&crossfade, "crossfade", 0, "Crossfade duration in seconds between inputs")
	return cmd
}
