package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipforge/internal/config"
	"clipforge/internal/trackops"
)

func newSubtitleCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subtitle",
		Short: "Add, select, burn, extract, or strip subtitle tracks",
	}
	cmd.AddCommand(newSubtitleAddCommand(ctx))
	cmd.AddCommand(newSubtitleSelectCommand(ctx))
	cmd.AddCommand(newSubtitleBurnCommand(ctx))
	cmd.AddCommand(newSubtitleExtractCommand(ctx))
	cmd.AddCommand(newSubtitleStripCommand(ctx))
	return cmd
}

// trackSelector builds a Selector from the shared --index/--language
// flags. --index wins when both are set.
func trackSelector(cmd *cobra.Command, index int, lang string) (trackops.Selector, error) {
	if cmd.Flags().Changed("index") {
		return trackops.ByIndex(index), nil
	}
	if lang != "" {
		return trackops.ByLanguage(lang), nil
	}
	return trackops.Selector{}, fmt.Errorf("pass --index or --language to pick a track")
}

func newSubtitleAddCommand(ctx *commandContext) *cobra.Command {
	var (
		output    string
		lang      string
		asDefault bool
		forced    bool
	)

	cmd := &cobra.Command{
		Use:   "add <file> <subtitle-file>",
		Short: "Add a subtitle file as a new track",
		Long:  "Soft-mux the subtitle file when the output container carries the format, otherwise burn it into the video.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := resolveInput(args[0])
			if err != nil {
				return err
			}
			subFile, err := resolveInput(args[1])
			if err != nil {
				return err
			}
			dest, err := ctx.outputPath(output, input, "subtitled")
			if err != nil {
				return err
			}
			engine, err := ctx.trackopsEngine()
			if err != nil {
				return err
			}
			return ctx.withOutputLock(func() error {
				attrs := trackops.SubtitleAttrs{Language: lang, Default: asDefault, Forced: forced}
				if err := engine.AddSubtitle(cmd.Context(), input, subFile, dest, attrs); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), dest)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	cmd.Flags().StringVarP(&lang, "language", "l", "eng", "Language tag for the new track")
	cmd.Flags().BoolVar(&asDefault, "default", false, "Mark the new track as default")
	cmd.Flags().BoolVar(&forced, "forced", false, "Mark the new track as forced")
	return cmd
}

func newSubtitleSelectCommand(ctx *commandContext) *cobra.Command {
	var (
		output    string
		index     int
		lang      string
		asDefault bool
	)

	cmd := &cobra.Command{
		Use:   "select <file>",
		Short: "Keep only one subtitle track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := resolveInput(args[0])
			if err != nil {
				return err
			}
			sel, err := trackSelector(cmd, index, lang)
			if err != nil {
				return err
			}
			dest, err := ctx.outputPath(output, input, "subselect")
			if err != nil {
				return err
			}
			engine, err := ctx.trackopsEngine()
			if err != nil {
				return err
			}
			return ctx.withOutputLock(func() error {
				if err := engine.SelectSubtitle(cmd.Context(), input, dest, sel, asDefault); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), dest)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	cmd.Flags().IntVar(&index, "index", -1, "Global stream index of the track")
	cmd.Flags().StringVarP(&lang, "language", "l", "", "Language of the track")
	cmd.Flags().BoolVar(&asDefault, "default", true, "Mark the kept track as default")
	return cmd
}

func newSubtitleBurnCommand(ctx *commandContext) *cobra.Command {
	var (
		output string
		index  int
		lang   string
	)

	cmd := &cobra.Command{
		Use:   "burn <file>",
		Short: "Render a subtitle track into the video frames",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := resolveInput(args[0])
			if err != nil {
				return err
			}
			sel, err := trackSelector(cmd, index, lang)
			if err != nil {
				return err
			}
			dest, err := ctx.outputPath(output, input, "burned")
			if err != nil {
				return err
			}
			engine, err := ctx.trackopsEngine()
			if err != nil {
				return err
			}
			return ctx.withOutputLock(func() error {
				if err := engine.BurnSubtitle(cmd.Context(), input, dest, sel); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), dest)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	cmd.Flags().IntVar(&index, "index", -1, "Global stream index of the track")
	cmd.Flags().StringVarP(&lang, "language", "l", "", "Language of the track")
	return cmd
}

func newSubtitleExtractCommand(ctx *commandContext) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Write every subtitle track to a sidecar file",
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
			engine, err := ctx.trackopsEngine()
			if err != nil {
				return err
			}
			return ctx.withOutputLock(func() error {
				produced, err := engine.ExtractSubtitles(cmd.Context(), input, dir)
				for _, path := range produced {
					fmt.Fprintln(cmd.OutOrStdout(), path)
				}
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&outDir, "out-dir", "d", "", "Directory for the sidecar files")
	return cmd
}

func newSubtitleStripCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "strip <file>",
		Short: "Remove all subtitle tracks and attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := resolveInput(args[0])
			if err != nil {
				return err
			}
			dest, err := ctx.outputPath(output, input, "nosubs")
			if err != nil {
				return err
			}
			engine, err := ctx.trackopsEngine()
			if err != nil {
				return err
			}
			return ctx.withOutputLock(func() error {
				if err := engine.StripSubtitles(cmd.Context(), input, dest); err != nil {
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
