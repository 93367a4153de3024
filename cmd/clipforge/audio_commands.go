package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/media"
)

func newAudioCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audio",
		Short: "Extract, merge, select, or strip audio tracks",
	}
	cmd.AddCommand(newAudioExtractCommand(ctx))
	cmd.AddCommand(newAudioMergeCommand(ctx))
	cmd.AddCommand(newAudioSelectCommand(ctx))
	cmd.AddCommand(newAudioStripCommand(ctx))
	return cmd
}

func newAudioExtractCommand(ctx *commandContext) *cobra.Command {
	var (
		output  string
		codec   string
		bitrate int
	)

	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Pull the audio into its own file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := resolveInput(args[0])
			if err != nil {
				return err
			}
			target := media.ClassifyAudioCodec(codec)
			dest := output
			if dest == "" {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
				dest = filepath.Join(cfg.Paths.OutputDir, stem+"."+target.Extension())
			}
			engine, err := ctx.trackopsEngine()
			if err != nil {
				return err
			}
			return ctx.withOutputLock(func() error {
				if err := engine.ExtractAudio(cmd.Context(), input, dest, target, bitrate); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), dest)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	cmd.Flags().StringVar(&codec, "codec", "aac", "Target audio codec (aac, opus, mp3, flac, vorbis, ac3)")
	cmd.Flags().IntVar(&bitrate, "bitrate", 0, "Audio bitrate in kbps (0 uses the codec default)")
	return cmd
}

func newAudioMergeCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "merge <video> <audio>",
		Short: "Replace the video's audio with another file's",
		Long:  "Mux the video stream from the first file with the audio from the second, trimmed to the shorter of the two.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			video, err := resolveInput(args[0])
			if err != nil {
				return err
			}
			audioFile, err := resolveInput(args[1])
			if err != nil {
				return err
			}
			dest, err := ctx.outputPath(output, video, "merged")
			if err != nil {
				return err
			}
			engine, err := ctx.trackopsEngine()
			if err != nil {
				return err
			}
			return ctx.withOutputLock(func() error {
				if err := engine.MergeAudio(cmd.Context(), video, audioFile, dest); err != nil {
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

func newAudioSelectCommand(ctx *commandContext) *cobra.Command {
	var (
		output    string
		index     int
		lang      string
		asDefault bool
	)

	cmd := &cobra.Command{
		Use:   "select <file>",
		Short: "Keep only one audio track",
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
			dest, err := ctx.outputPath(output, input, "audioselect")
			if err != nil {
				return err
			}
			engine, err := ctx.trackopsEngine()
			if err != nil {
				return err
			}
			return ctx.withOutputLock(func() error {
				if err := engine.SelectAudio(cmd.Context(), input, dest, sel, asDefault); err != nil {
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

func newAudioStripCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "strip <file>",
		Short: "Remove all audio tracks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := resolveInput(args[0])
			if err != nil {
				return err
			}
			dest, err := ctx.outputPath(output, input, "noaudio")
			if err != nil {
				return err
			}
			engine, err := ctx.trackopsEngine()
			if err != nil {
				return err
			}
			return ctx.withOutputLock(func() error {
				if err := engine.StripAudio(cmd.Context(), input, dest); err != nil {
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
