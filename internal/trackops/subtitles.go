package trackops

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"clipforge/internal/fileutil"
	"clipforge/internal/language"
	"clipforge/internal/logging"
	"clipforge/internal/media"
	"clipforge/internal/services"
	"clipforge/internal/staging"
)

// SubtitleAttrs describes the metadata for a newly added subtitle track.
type SubtitleAttrs struct {
	Language string
	Default  bool
	Forced   bool
}

func (a SubtitleAttrs) disposition() string {
	var parts []string
	if a.Default {
		parts = append(parts, "default")
	}
	if a.Forced {
		parts = append(parts, "forced")
	}
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, "+")
}

// softsubSupported reports whether the container can carry the subtitle
// format as a selectable stream. Matroska and WebM take any text format;
// MP4 only srt/vtt (as mov_text); everything else needs a burn.
func softsubSupported(container media.Container, subExt string) bool {
	switch container {
	case media.ContainerMKV, media.ContainerWEBM:
		return true
	case media.ContainerMP4, media.ContainerM4V, media.ContainerMOV:
		return subExt == "srt" || subExt == "vtt"
	}
	return false
}

// softsubCodec derives the stream codec for a soft-muxed subtitle file.
func softsubCodec(container media.Container, subExt string) string {
	mp4 := container == media.ContainerMP4 || container == media.ContainerM4V || container == media.ContainerMOV
	switch subExt {
	case "ass", "ssa":
		return "ass"
	case "srt":
		if mp4 {
			return "mov_text"
		}
		return "srt"
	case "vtt":
		if mp4 {
			return "mov_text"
		}
		return "webvtt"
	}
	if mp4 {
		return "mov_text"
	}
	return "srt"
}

// AddSubtitle adds subFile to input as a new track. When the output
// container supports the format the track is soft-muxed with everything
// else stream-copied; otherwise, or when the soft mux fails, the subtitle
// is burned into the video.
func (e *Engine) AddSubtitle(ctx context.Context, input, subFile, output string, attrs SubtitleAttrs) error {
	if err := requireInput(input, "add-subtitle"); err != nil {
		return err
	}
	if !fileutil.NonEmpty(subFile) {
		return services.Wrap(services.ErrValidation, "trackops", "add-subtitle", fmt.Sprintf("subtitle file not readable: %s", subFile), nil)
	}

	container := media.ContainerFromPath(output)
	subExt := strings.ToLower(strings.TrimPrefix(filepath.Ext(subFile), "."))

	if softsubSupported(container, subExt) {
		if err := e.softsub(ctx, input, subFile, output, container, subExt, attrs); err == nil {
			return nil
		} else {
			e.logger.Warn("soft mux failed, burning instead", logging.Error(err))
		}
	}
	return e.hardsub(ctx, input, subFile, output, subExt)
}

func (e *Engine) softsub(ctx context.Context, input, subFile, output string, container media.Container, subExt string, attrs SubtitleAttrs) error {
	// The new track lands after any existing subtitle streams; its
	// per-type position is the current count.
	position := 0
	if info, err := e.prober.Describe(ctx, input); err == nil {
		for _, track := range info.SubtitleTracks {
			if track.AttachmentIndex == -1 {
				position++
			}
		}
	}

	args := []string{
		"-v", "error", "-y",
		"-i", input,
		"-i", subFile,
		"-map", "0",
		"-map", "1:0",
		"-c:v", "copy",
		"-c:a", "copy",
		"-c:s", softsubCodec(container, subExt),
		fmt.Sprintf("-metadata:s:s:%d", position), "language=" + language.ToISO3(attrs.Language),
		fmt.Sprintf("-disposition:s:%d", position), attrs.disposition(),
	}
	args = append(args, faststartArgs(output)...)
	args = append(args, output)

	e.logger.Info("soft-muxing subtitle",
		logging.String(logging.FieldInput, input),
		logging.String("subtitle", subFile),
		logging.String("codec", softsubCodec(container, subExt)),
	)
	if err := e.runner.Run(ctx, args, e.copyTimeout); err != nil {
		fileutil.RemovePartial(output)
		return err
	}
	return requireOutput(output, "add-subtitle")
}

func (e *Engine) hardsub(ctx context.Context, input, subFile, output, subExt string) error {
	ws, err := staging.NewWorkspace(e.scratch, "hardsub", e.logger)
	if err != nil {
		return err
	}
	defer ws.Cleanup()

	// the subtitles filter cannot read VTT; convert first
	if subExt == "vtt" {
		converted := ws.Path("converted.srt")
		convArgs := []string{"-v", "error", "-y", "-i", subFile, "-f", "srt", converted}
		if err := e.runner.Run(ctx, convArgs, e.copyTimeout); err != nil {
			return services.Wrap(services.ErrExternalTool, "trackops", "add-subtitle", "vtt conversion failed", err)
		}
		subFile = converted
	}

	args := []string{
		"-v", "error", "-y",
		"-i", input,
		"-vf", fmt.Sprintf("subtitles=%s:force_style='Fontsize=24,Outline=1'", quoteFilterPath(subFile)),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "192k",
	}
	args = append(args, faststartArgs(output)...)
	args = append(args, output)

	e.logger.Info("burning subtitle",
		logging.String(logging.FieldInput, input),
		logging.String("subtitle", subFile),
	)
	if err := e.runner.Run(ctx, args, e.encodeTimeout); err != nil {
		fileutil.RemovePartial(output)
		return err
	}
	return requireOutput(output, "add-subtitle")
}

// SelectSubtitle keeps only the chosen subtitle track, stream-copying
// everything. With makeDefault set, the surviving track gets the default
// disposition.
func (e *Engine) SelectSubtitle(ctx context.Context, input, output string, sel Selector, makeDefault bool) error {
	if err := requireInput(input, "select-subtitle"); err != nil {
		return err
	}
	info, err := e.prober.Describe(ctx, input)
	if err != nil {
		return err
	}
	track, err := e.findSubtitle(info, sel)
	if err != nil {
		return err
	}
	if track.AttachmentIndex != -1 {
		return services.Wrap(services.ErrValidation, "trackops", "select-subtitle",
			fmt.Sprintf("stream %d lives inside attachment %d, extract it first", track.StreamIndex, track.AttachmentIndex), nil)
	}

	disposition := "0"
	if makeDefault {
		disposition = "default"
	}
	args := []string{
		"-v", "error", "-y",
		"-i", input,
		"-map", "0",
		"-map", "-0:s",
		"-map", fmt.Sprintf("0:%d", track.StreamIndex),
		"-c", "copy",
		"-disposition:s:0", disposition,
	}
	args = append(args, faststartArgs(output)...)
	args = append(args, output)

	e.logger.Info("selecting subtitle",
		logging.String(logging.FieldInput, input),
		logging.Int("stream_index", track.StreamIndex),
	)
	if err := e.runner.Run(ctx, args, e.copyTimeout); err != nil {
		fileutil.RemovePartial(output)
		return err
	}
	return requireOutput(output, "select-subtitle")
}

// BurnSubtitle renders the chosen subtitle track into the video frames.
// Only top-level tracks can be burned; the filter addresses them by their
// position among subtitle streams.
func (e *Engine) BurnSubtitle(ctx context.Context, input, output string, sel Selector) error {
	if err := requireInput(input, "burn-subtitle"); err != nil {
		return err
	}
	info, err := e.prober.Describe(ctx, input)
	if err != nil {
		return err
	}
	track, err := e.findSubtitle(info, sel)
	if err != nil {
		return err
	}
	if track.AttachmentIndex != -1 {
		return services.Wrap(services.ErrValidation, "trackops", "burn-subtitle",
			fmt.Sprintf("stream %d lives inside attachment %d, extract it first", track.StreamIndex, track.AttachmentIndex), nil)
	}

	position := 0
	for _, other := range info.SubtitleTracks {
		if other.AttachmentIndex != -1 {
			continue
		}
		if other.StreamIndex == track.StreamIndex {
			break
		}
		position++
	}

	args := []string{
		"-v", "error", "-y",
		"-i", input,
		"-vf", fmt.Sprintf("subtitles=%s:si=%d", quoteFilterPath(input), position),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-c:a", "copy",
	}
	args = append(args, faststartArgs(output)...)
	args = append(args, output)

	e.logger.Info("burning subtitle track",
		logging.String(logging.FieldInput, input),
		logging.Int("stream_index", track.StreamIndex),
		logging.Int("filter_position", position),
	)
	if err := e.runner.Run(ctx, args, e.encodeTimeout); err != nil {
		fileutil.RemovePartial(output)
		return err
	}
	return requireOutput(output, "burn-subtitle")
}

// ExtractSubtitles writes every top-level subtitle track to its own sidecar
// file in outDir. A failing track is logged and skipped; the returned paths
// are the sidecars actually produced.
func (e *Engine) ExtractSubtitles(ctx context.Context, input, outDir string) ([]string, error) {
	if err := requireInput(input, "extract-subtitles"); err != nil {
		return nil, err
	}
	info, err := e.prober.Describe(ctx, input)
	if err != nil {
		return nil, err
	}

	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	var produced []string
	for _, track := range info.SubtitleTracks {
		if track.AttachmentIndex != -1 {
			continue
		}
		lang := track.Language
		if lang == "" {
			lang = "und"
		}
		output := filepath.Join(outDir, fmt.Sprintf("%s_%s_%d.%s", stem, lang, track.StreamIndex, track.Codec.Extension()))
		args := []string{
			"-v", "error", "-y",
			"-i", input,
			"-map", fmt.Sprintf("0:%d", track.StreamIndex),
			"-c:s", "copy",
			output,
		}
		if err := e.runner.Run(ctx, args, e.copyTimeout); err != nil || !fileutil.NonEmpty(output) {
			fileutil.RemovePartial(output)
			e.logger.Warn("subtitle extraction failed",
				logging.Int("stream_index", track.StreamIndex),
				logging.Error(err),
			)
			continue
		}
		produced = append(produced, output)
	}
	return produced, nil
}

// StripSubtitles removes all subtitle streams and attachments, copying the
// rest.
func (e *Engine) StripSubtitles(ctx context.Context, input, output string) error {
	if err := requireInput(input, "strip-subtitles"); err != nil {
		return err
	}
	args := []string{
		"-v", "error", "-y",
		"-i", input,
		"-map", "0",
		"-map", "-0:s",
		"-map", "-0:t",
		"-c:v", "copy",
		"-c:a", "copy",
	}
	args = append(args, faststartArgs(output)...)
	args = append(args, output)

	if err := e.runner.Run(ctx, args, e.copyTimeout); err != nil {
		fileutil.RemovePartial(output)
		return err
	}
	return requireOutput(output, "strip-subtitles")
}

// quoteFilterPath wraps a path for use inside a filter argument, where
// colons and quotes are syntax.
func quoteFilterPath(path string) string {
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}
