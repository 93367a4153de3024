package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"clipforge/internal/language"
	"clipforge/internal/media"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>",
		Short: "Inspect a media file's streams and metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := resolveInput(args[0])
			if err != nil {
				return err
			}
			prober, err := ctx.prober()
			if err != nil {
				return err
			}
			info, err := prober.Describe(cmd.Context(), input)
			if err != nil {
				return err
			}
			printInfo(cmd, info)
			return nil
		},
	}
}

func printInfo(cmd *cobra.Command, info *media.Info) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "File:      %s\n", info.Path)
	fmt.Fprintf(out, "Container: %s\n", info.Container)
	fmt.Fprintf(out, "Duration:  %s\n", humanDuration(info.DurationSeconds))
	fmt.Fprintf(out, "Size:      %s\n", humanSize(info.SizeBytes))
	if info.HasVideo() {
		fmt.Fprintf(out, "Video:     %dx%d @ %d kbps\n", info.Width, info.Height, info.BitrateKbps)
	}

	if len(info.AudioTracks) > 0 {
		rows := make([][]string, 0, len(info.AudioTracks))
		for _, track := range info.AudioTracks {
			rows = append(rows, []string{
				strconv.Itoa(track.StreamIndex),
				language.DisplayName(track.Language),
				string(track.Codec),
				strconv.Itoa(track.Channels),
				yesNo(track.Default),
			})
		}
		fmt.Fprintln(out, "\nAudio tracks:")
		fmt.Fprintln(out, renderTable(
			[]string{"Stream", "Language", "Codec", "Channels", "Default"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
		))
	}

	if len(info.SubtitleTracks) > 0 {
		rows := make([][]string, 0, len(info.SubtitleTracks))
		for _, track := range info.SubtitleTracks {
			source := "file"
			if track.AttachmentIndex != -1 {
				source = fmt.Sprintf("attachment %d", track.AttachmentIndex)
			}
			rows = append(rows, []string{
				strconv.Itoa(track.StreamIndex),
				language.DisplayName(track.Language),
				string(track.Codec),
				yesNo(track.Default),
				yesNo(track.Forced),
				source,
			})
		}
		fmt.Fprintln(out, "\nSubtitle tracks:")
		fmt.Fprintln(out, renderTable(
			[]string{"Stream", "Language", "Codec", "Default", "Forced", "Source"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
		))
	}

	if len(info.Attachments) > 0 {
		rows := make([][]string, 0, len(info.Attachments))
		for _, att := range info.Attachments {
			rows = append(rows, []string{
				strconv.Itoa(att.StreamIndex),
				att.Filename,
				att.MimeType,
			})
		}
		fmt.Fprintln(out, "\nAttachments:")
		fmt.Fprintln(out, renderTable(
			[]string{"Stream", "Filename", "MIME type"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft},
		))
	}
}
