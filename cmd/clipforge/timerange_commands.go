package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"clipforge/internal/timerange"
)

func newTrimCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "trim <file> <start> <end>",
		Short: "Extract a time range with stream copy",
		Long:  "Extract the portion between start and end (seconds) without re-encoding.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := resolveInput(args[0])
			if err != nil {
				return err
			}
			start, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("start time %q: %w", args[1], err)
			}
			end, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("end time %q: %w", args[2], err)
			}
			dest, err := ctx.outputPath(output, input, "trimmed")
			if err != nil {
				return err
			}
			engine, err := ctx.timerangeEngine()
			if err != nil {
				return err
			}
			return ctx.withOutputLock(func() error {
				if err := engine.Trim(cmd.Context(), input, dest, timerange.Range{Start: start, End: end}); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), dest)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	return cmd
}

func newCutCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "cut <file> <ranges>",
		Short: "Remove time ranges and rejoin the remainder",
		Long:  "Remove the given ranges (e.g. \"10-20,35-40\") and concatenate what is left. The result is re-encoded for frame accuracy.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := resolveInput(args[0])
			if err != nil {
				return err
			}
			ranges, err := timerange.ParseList(args[1])
			if err != nil {
				return err
			}
			dest, err := ctx.outputPath(output, input, "cut")
			if err != nil {
				return err
			}
			engine, err := ctx.timerangeEngine()
			if err != nil {
				return err
			}
			return ctx.withOutputLock(func() error {
				if err := engine.Cut(cmd.Context(), input, dest, ranges); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), dest)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	return cmd
}

func newSplitCommand(ctx *commandContext) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "split <file> <ranges>",
		Short: "Extract each time range into its own file",
		Long:  "Extract every range (e.g. \"0-10,10-20\") as an independent part file. Failed ranges are reported; the rest still succeed.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := resolveInput(args[0])
			if err != nil {
				return err
			}
			ranges, err := timerange.ParseList(args[1])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir := outDir
			if dir == "" {
				dir = cfg.Paths.OutputDir
			}
			engine, err := ctx.timerangeEngine()
			if err != nil {
				return err
			}
			return ctx.withOutputLock(func() error {
				produced, splitErr := engine.Split(cmd.Context(), input, dir, ranges)
				for _, path := range produced {
					fmt.Fprintln(cmd.OutOrStdout(), path)
				}
				return splitErr
			})
		},
	}

	cmd.Flags().StringVarP(&outDir, "out-dir", "d", "", "Directory for the part files")
	return cmd
}
