// Package concat joins multiple media files into one, either losslessly via
// the concat demuxer or with a crossfade transition via a filter graph.
package concat

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"clipforge/internal/ffmpeg"
	"clipforge/internal/fileutil"
	"clipforge/internal/logging"
	"clipforge/internal/media"
	"clipforge/internal/services"
	"clipforge/internal/staging"
)

// Describer resolves a media file into its canonical description.
type Describer interface {
	Describe(ctx context.Context, path string) (*media.Info, error)
}

// Engine joins media files.
type Engine struct {
	runner        ffmpeg.Runner
	prober        Describer
	copyTimeout   time.Duration
	encodeTimeout time.Duration
	scratch       string
	logger        *slog.Logger
}

// NewEngine constructs a concat engine. scratchDir holds the temporary
// concat list files.
func NewEngine(runner ffmpeg.Runner, prober Describer, copyTimeout, encodeTimeout time.Duration, scratchDir string, logger *slog.Logger) *Engine {
	return &Engine{
		runner:        runner,
		prober:        prober,
		copyTimeout:   copyTimeout,
		encodeTimeout: encodeTimeout,
		scratch:       scratchDir,
		logger:        logging.NewComponentLogger(logger, "concat"),
	}
}

func (e *Engine) validateInputs(inputs []string) error {
	if len(inputs) < 2 {
		return services.Wrap(services.ErrValidation, "concat", "validate", "at least two inputs required", nil)
	}
	for _, input := range inputs {
		if !fileutil.NonEmpty(input) {
			return services.Wrap(services.ErrValidation, "concat", "validate", fmt.Sprintf("input not readable: %s", input), nil)
		}
	}
	return nil
}

// Concat joins inputs in order using the concat demuxer with stream copy.
// When the copy attempt fails, typically because the inputs disagree on
// codec parameters, one re-encode attempt follows. The list file is removed
// on every exit path.
func (e *Engine) Concat(ctx context.Context, inputs []string, output string) error {
	if err := e.validateInputs(inputs); err != nil {
		return err
	}
	ws, err := staging.NewWorkspace(e.scratch, "concat", e.logger)
	if err != nil {
		return err
	}
	defer ws.Cleanup()

	list := ws.Path("inputs.txt")
	if err := writeListFile(list, inputs); err != nil {
		return services.Wrap(services.ErrValidation, "concat", "list", "failed to write concat list", err)
	}

	e.logger.Info("concatenating",
		logging.Int("inputs", len(inputs)),
		logging.String(logging.FieldOutput, output),
	)
	copyArgs := []string{
		"-v", "error", "-y",
		"-f", "concat", "-safe", "0",
		"-i", list,
		"-c", "copy",
	}
	copyArgs = append(copyArgs, faststartArgs(output)...)
	copyArgs = append(copyArgs, output)
	copyErr := e.runner.Run(ctx, copyArgs, e.copyTimeout)
	if copyErr == nil && fileutil.NonEmpty(output) {
		return nil
	}
	fileutil.RemovePartial(output)
	e.logger.Warn("stream copy concat failed, re-encoding", logging.Error(copyErr))

	encodeArgs := []string{
		"-v", "error", "-y",
		"-f", "concat", "-safe", "0",
		"-i", list,
		"-c:v", "libx264", "-preset", "fast", "-crf", "23",
		"-c:a", "aac", "-b:a", "192k",
	}
	encodeArgs = append(encodeArgs, faststartArgs(output)...)
	encodeArgs = append(encodeArgs, output)
	if err := e.runner.Run(ctx, encodeArgs, e.encodeTimeout); err != nil {
		fileutil.RemovePartial(output)
		return err
	}
	if !fileutil.NonEmpty(output) {
		fileutil.RemovePartial(output)
		return services.Wrap(services.ErrExternalTool, "concat", "concat", "tool produced no usable output", nil)
	}
	return nil
}

// Crossfade joins inputs with a fade transition of the given duration in
// seconds between each pair. Every input is scaled and padded to the first
// input's dimensions; audio is normalized to 44.1 kHz stereo. The whole
// join happens in a single invocation.
func (e *Engine) Crossfade(ctx context.Context, inputs []string, output string, fade float64) error {
	if err := e.validateInputs(inputs); err != nil {
		return err
	}
	if fade <= 0 {
		return services.Wrap(services.ErrValidation, "concat", "crossfade", "fade duration must be positive", nil)
	}

	infos := make([]*media.Info, len(inputs))
	for i, input := range inputs {
		info, err := e.prober.Describe(ctx, input)
		if err != nil {
			return err
		}
		if !info.HasVideo() {
			return services.Wrap(services.ErrValidation, "concat", "crossfade", fmt.Sprintf("input has no video stream: %s", input), nil)
		}
		infos[i] = info
	}

	graph := crossfadeFilter(infos, fade)

	args := []string{"-v", "error", "-y"}
	for _, input := range inputs {
		args = append(args, "-i", input)
	}
	args = append(args,
		"-filter_complex", graph,
		"-map", "[vout]",
		"-map", "[aout]",
		"-c:v", "libx264", "-preset", "fast", "-crf", "22",
		"-c:a", "aac", "-b:a", "192k",
	)
	args = append(args, faststartArgs(output)...)
	args = append(args, output)

	e.logger.Info("crossfading",
		logging.Int("inputs", len(inputs)),
		logging.Float64("fade_seconds", fade),
		logging.String(logging.FieldOutput, output),
	)
	if err := e.runner.Run(ctx, args, e.encodeTimeout); err != nil {
		fileutil.RemovePartial(output)
		return err
	}
	if !fileutil.NonEmpty(output) {
		fileutil.RemovePartial(output)
		return services.Wrap(services.ErrExternalTool, "concat", "crossfade", "tool produced no usable output", nil)
	}
	return nil
}

// crossfadeFilter normalizes every input to the first input's frame size
// and a common audio format, then folds them together: the video chain is
// pairwise xfade stages, and the audio chain splits each clip into its
// overlap and non-overlap regions, crossfades the overlaps pairwise, and
// concatenates the pieces in order so audio stays aligned with the video
// chain. Boundaries are clamped so clips shorter than the fade never
// produce negative trim points.
func crossfadeFilter(infos []*media.Info, fade float64) string {
	width, height := infos[0].Width, infos[0].Height
	n := len(infos)

	var sb strings.Builder
	for i := range infos {
		fmt.Fprintf(&sb,
			"[%d:v]scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1[v%d];",
			i, width, height, width, height, i)
		fmt.Fprintf(&sb, "[%d:a]aformat=sample_rates=44100:channel_layouts=stereo[a%d];", i, i)
	}

	offset := 0.0
	prevV := "v0"
	for i := 1; i < n; i++ {
		offset += infos[i-1].DurationSeconds - fade
		if offset < 0 {
			offset = 0
		}
		outV := fmt.Sprintf("vx%d", i)
		if i == n-1 {
			outV = "vout"
		}
		fmt.Fprintf(&sb, "[%s][v%d]xfade=transition=fade:duration=%s:offset=%s[%s];",
			prevV, i, formatSeconds(fade), formatSeconds(offset), outV)
		prevV = outV
	}

	// [abody] is a clip's non-overlap region, [afo]/[afi] its fade-out
	// and fade-in overlaps.
	for i, info := range infos {
		tail := info.DurationSeconds - fade
		if tail < 0 {
			tail = 0
		}
		switch {
		case i == 0:
			fmt.Fprintf(&sb, "[a%d]asplit=2[a%db][a%do];", i, i, i)
			fmt.Fprintf(&sb, "[a%db]atrim=0:%s,asetpts=PTS-STARTPTS[abody%d];", i, formatSeconds(tail), i)
			fmt.Fprintf(&sb, "[a%do]atrim=%s,asetpts=PTS-STARTPTS[afo%d];", i, formatSeconds(tail), i)
		case i == n-1:
			fmt.Fprintf(&sb, "[a%d]asplit=2[a%di][a%db];", i, i, i)
			fmt.Fprintf(&sb, "[a%di]atrim=0:%s,asetpts=PTS-STARTPTS[afi%d];", i, formatSeconds(fade), i)
			fmt.Fprintf(&sb, "[a%db]atrim=%s,asetpts=PTS-STARTPTS[abody%d];", i, formatSeconds(fade), i)
		default:
			if tail < fade {
				tail = fade
			}
			fmt.Fprintf(&sb, "[a%d]asplit=3[a%di][a%db][a%do];", i, i, i, i)
			fmt.Fprintf(&sb, "[a%di]atrim=0:%s,asetpts=PTS-STARTPTS[afi%d];", i, formatSeconds(fade), i)
			fmt.Fprintf(&sb, "[a%db]atrim=%s:%s,asetpts=PTS-STARTPTS[abody%d];", i, formatSeconds(fade), formatSeconds(tail), i)
			fmt.Fprintf(&sb, "[a%do]atrim=%s,asetpts=PTS-STARTPTS[afo%d];", i, formatSeconds(tail), i)
		}
	}
	for i := 1; i < n; i++ {
		fmt.Fprintf(&sb, "[afo%d][afi%d]acrossfade=d=%s[ax%d];", i-1, i, formatSeconds(fade), i)
	}
	sb.WriteString("[abody0]")
	for i := 1; i < n; i++ {
		fmt.Fprintf(&sb, "[ax%d][abody%d]", i, i)
	}
	fmt.Fprintf(&sb, "concat=n=%d:v=0:a=1[aout]", 2*n-1)
	return sb.String()
}

// faststartArgs returns the faststart flag for containers that support it.
func faststartArgs(output string) []string {
	if media.ContainerFromPath(output).SupportsFaststart() {
		return []string{"-movflags", "+faststart"}
	}
	return nil
}

// writeListFile writes the concat demuxer's input list. Single quotes in
// paths are escaped the way the demuxer expects.
func writeListFile(path string, inputs []string) error {
	var sb strings.Builder
	for _, input := range inputs {
		escaped := strings.ReplaceAll(input, "'", `'\''`)
		fmt.Fprintf(&sb, "file '%s'\n", escaped)
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
