package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/compress"
	"clipforge/internal/config"
)

func newCompressCommand(ctx *commandContext) *cobra.Command {
	var (
		outDir       string
		formats      []string
		baseName     string
		keepOriginal bool
		twoPass      bool
	)

	cmd := &cobra.Command{
		Use:   "compress <file>",
		Short: "Render a multi-resolution, multi-format encoding ladder",
		Long:  "Encode the input at every resolution rung up to its source height, once per requested format. Renditions whose output already exists are skipped.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := resolveInput(args[0])
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
			} else if dir, err = config.ExpandPath(dir); err != nil {
				return err
			}
			base := baseName
			if base == "" {
				base = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
			}
			if !cmd.Flags().Changed("two-pass") {
				twoPass = cfg.Processing.TwoPass
			}
			matrix, err := ctx.compressMatrix()
			if err != nil {
				return err
			}
			return ctx.withOutputLock(func() error {
				result, err := matrix.Run(cmd.Context(), compress.Request{
					Input:               input,
					OutputDir:           dir,
					BaseName:            base,
					Formats:             formats,
					KeepOriginalQuality: keepOriginal,
					TwoPass:             twoPass,
				})
				if err != nil {
					return err
				}
				printCompressResult(cmd, result)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outDir, "out-dir", "d", "", "Directory for the renditions")
	cmd.Flags().StringSliceVarP(&formats, "formats", "f", []string{"mp4", "hevc"}, "Output formats ("+strings.Join(compress.FormatNames(), ", ")+")")
	cmd.Flags().StringVar(&baseName, "basename", "", "Base name for rendition files")
	cmd.Flags().BoolVar(&keepOriginal, "keep-original", false, "Add a rung at the source height when it falls between profiles")
	cmd.Flags().BoolVar(&twoPass, "two-pass", false, "Use two-pass encoding for 720p and above")
	return cmd
}

func printCompressResult(cmd *cobra.Command, result *compress.Result) {
	out := cmd.OutOrStdout()

	formats := make([]string, 0, len(result.Files))
	for format := range result.Files {
		formats = append(formats, format)
	}
	sort.Strings(formats)

	var rows [][]string
	for _, format := range formats {
		for _, path := range result.Files[format] {
			rows = append(rows, []string{format, filepath.Base(path), humanSizeOf(path)})
		}
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable(
			[]string{"Format", "File", "Size"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight},
		))
	}

	for _, warning := range result.Warnings {
		fmt.Fprintf(out, "warning: %s\n", warning)
	}
}
