package timerange

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"clipforge/internal/ffmpeg"
	"clipforge/internal/fileutil"
	"clipforge/internal/logging"
	"clipforge/internal/media"
	"clipforge/internal/services"
)

// Describer resolves a media file into its canonical description.
type Describer interface {
	Describe(ctx context.Context, path string) (*media.Info, error)
}

// Engine performs trim, cut, and split operations.
type Engine struct {
	runner        ffmpeg.Runner
	prober        Describer
	copyTimeout   time.Duration
	encodeTimeout time.Duration
	logger        *slog.Logger
}

// NewEngine constructs a timerange engine.
func NewEngine(runner ffmpeg.Runner, prober Describer, copyTimeout, encodeTimeout time.Duration, logger *slog.Logger) *Engine {
	return &Engine{
		runner:        runner,
		prober:        prober,
		copyTimeout:   copyTimeout,
		encodeTimeout: encodeTimeout,
		logger:        logging.NewComponentLogger(logger, "timerange"),
	}
}

// Trim writes the portion of input covered by r to output using stream copy.
// The seek happens in two stages: a coarse keyframe seek one second before
// the target, then an accurate seek for the remainder.
func (e *Engine) Trim(ctx context.Context, input, output string, r Range) error {
	if err := r.Validate(); err != nil {
		return err
	}
	coarse := r.Start - 1
	if coarse < 0 {
		coarse = 0
	}
	fine := r.Start - coarse

	args := []string{
		"-v", "error", "-y",
		"-ss", formatSeconds(coarse),
		"-i", input,
		"-ss", formatSeconds(fine),
		"-t", formatSeconds(r.Duration()),
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		output,
	}
	e.logger.Info("trimming",
		logging.String(logging.FieldInput, input),
		logging.String(logging.FieldOutput, output),
		logging.String("range", r.String()),
	)
	if err := e.runner.Run(ctx, args, e.copyTimeout); err != nil {
		fileutil.RemovePartial(output)
		return err
	}
	return requireOutput(output, "trim")
}

// Cut removes the given ranges from input and writes the remainder to
// output. Segments are rejoined with a filter graph, so the result is
// re-encoded. Overlapping ranges are merged; ranges past the end of the
// file remove nothing.
func (e *Engine) Cut(ctx context.Context, input, output string, ranges []Range) error {
	for _, r := range ranges {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	info, err := e.prober.Describe(ctx, input)
	if err != nil {
		return err
	}
	kept := Complement(ranges, info.DurationSeconds)
	if len(kept) == 0 {
		return services.Wrap(services.ErrValidation, "timerange", "cut", "ranges cover the entire file, nothing would remain", nil)
	}
	if len(kept) == 1 && kept[0].Start == 0 && kept[0].End == info.DurationSeconds {
		e.logger.Info("nothing to cut, copying input",
			logging.String(logging.FieldInput, input),
			logging.String(logging.FieldOutput, output),
		)
		return fileutil.CopyFile(input, output)
	}

	hasAudio := len(info.AudioTracks) > 0
	graph, maps := cutFilter(kept, hasAudio)

	args := []string{"-v", "error", "-y", "-i", input, "-filter_complex", graph}
	args = append(args, maps...)
	args = append(args,
		"-c:v", "libx264", "-preset", "fast", "-crf", "23",
		"-c:a", "aac", "-b:a", "192k",
	)
	args = append(args, faststartArgs(output)...)
	args = append(args, output)

	e.logger.Info("cutting",
		logging.String(logging.FieldInput, input),
		logging.String(logging.FieldOutput, output),
		logging.Int("segments", len(kept)),
	)
	if err := e.runner.Run(ctx, args, e.encodeTimeout); err != nil {
		fileutil.RemovePartial(output)
		return err
	}
	return requireOutput(output, "cut")
}

// Split extracts each range into its own file next to outDir, named after
// the input with a part suffix. Ranges are independent: a failing range is
// reported but does not stop the others. The returned paths are the outputs
// that were actually produced.
func (e *Engine) Split(ctx context.Context, input, outDir string, ranges []Range) ([]string, error) {
	if len(ranges) == 0 {
		return nil, services.Wrap(services.ErrValidation, "timerange", "split", "no ranges given", nil)
	}
	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(filepath.Base(input), ext)

	var produced []string
	var failures []string
	for i, r := range ranges {
		output := filepath.Join(outDir, fmt.Sprintf("%s_part%02d%s", stem, i+1, ext))
		if err := e.Trim(ctx, input, output, r); err != nil {
			e.logger.Warn("split segment failed",
				logging.String("range", r.String()),
				logging.String(logging.FieldOutput, output),
				logging.Error(err),
			)
			failures = append(failures, fmt.Sprintf("%s: %v", r, err))
			continue
		}
		produced = append(produced, output)
	}
	if len(failures) > 0 {
		return produced, services.Wrap(services.ErrExternalTool, "timerange", "split",
			fmt.Sprintf("%d of %d segments failed: %s", len(failures), len(ranges), strings.Join(failures, "; ")), nil)
	}
	return produced, nil
}

// cutFilter builds the filter graph that trims each kept segment and
// concatenates them back together, with the matching -map arguments.
func cutFilter(kept []Range, hasAudio bool) (string, []string) {
	var sb strings.Builder
	for i, r := range kept {
		fmt.Fprintf(&sb, "[0:v]trim=start=%s:end=%s,setpts=PTS-STARTPTS[v%d];",
			formatSeconds(r.Start), formatSeconds(r.End), i)
		if hasAudio {
			fmt.Fprintf(&sb, "[0:a]atrim=start=%s:end=%s,asetpts=PTS-STARTPTS[a%d];",
				formatSeconds(r.Start), formatSeconds(r.End), i)
		}
	}
	for i := range kept {
		fmt.Fprintf(&sb, "[v%d]", i)
		if hasAudio {
			fmt.Fprintf(&sb, "[a%d]", i)
		}
	}
	audioCount := 0
	if hasAudio {
		audioCount = 1
	}
	fmt.Fprintf(&sb, "concat=n=%d:v=1:a=%d[outv]", len(kept), audioCount)
	maps := []string{"-map", "[outv]"}
	if hasAudio {
		sb.WriteString("[outa]")
		maps = append(maps, "-map", "[outa]")
	}
	return sb.String(), maps
}

// faststartArgs returns the faststart flag for containers that support it.
func faststartArgs(output string) []string {
	if media.ContainerFromPath(output).SupportsFaststart() {
		return []string{"-movflags", "+faststart"}
	}
	return nil
}

// requireOutput treats a missing or empty output file as failure, removing
// whatever partial file the tool left behind.
func requireOutput(output, operation string) error {
	if fileutil.NonEmpty(output) {
		return nil
	}
	fileutil.RemovePartial(output)
	return services.Wrap(services.ErrExternalTool, "timerange", operation, "tool produced no usable output", nil)
}
