package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newThumbnailCommand(ctx *commandContext) *cobra.Command {
	var (
		output string
		offset string
		width  int
	)

	cmd := &cobra.Command{
		Use:   "thumbnail <file>",
		Short: "Grab a single frame as a JPEG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := resolveInput(args[0])
			if err != nil {
				return err
			}
			dest := output
			if dest == "" {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
				dest = filepath.Join(cfg.Paths.OutputDir, stem+"_thumb.jpg")
			}
			engine, err := ctx.trackopsEngine()
			if err != nil {
				return err
			}
			return ctx.withOutputLock(func() error {
				if err := engine.Thumbnail(cmd.Context(), input, dest, offset, width); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), dest)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output image path")
	cmd.Flags().StringVar(&offset, "offset", "", "Timestamp to grab (default 00:00:05)")
	cmd.Flags().IntVar(&width, "width", 0, "Thumbnail width in pixels (default 640)")
	return cmd
}

func newRemuxCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remux <file> <output>",
		Short: "Rewrap streams into another container without re-encoding",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := resolveInput(args[0])
			if err != nil {
				return err
			}
			dest, err := ctx.outputPath(args[1], input, "remuxed")
			if err != nil {
				return err
			}
			engine, err := ctx.trackopsEngine()
			if err != nil {
				return err
			}
			return ctx.withOutputLock(func() error {
				if err := engine.Remux(cmd.Context(), input, dest); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), dest)
				return nil
			})
		},
	}
	return cmd
}
