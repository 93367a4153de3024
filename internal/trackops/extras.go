package trackops

import (
	"context"
	"fmt"
	"strings"

	"clipforge/internal/fileutil"
	"clipforge/internal/logging"
)

// Thumbnail captures one frame at the given offset (HH:MM:SS), scaled to
// width with the aspect ratio preserved.
func (e *Engine) Thumbnail(ctx context.Context, input, output, offset string, width int) error {
	if err := requireInput(input, "thumbnail"); err != nil {
		return err
	}
	if strings.TrimSpace(offset) == "" {
		offset = "00:00:05"
	}
	if width <= 0 {
		width = 640
	}

	args := []string{
		"-v", "error", "-y",
		"-ss", offset,
		"-i", input,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:-2:flags=lanczos", width),
		"-q:v", "3",
		"-f", "image2",
		output,
	}
	e.logger.Info("generating thumbnail",
		logging.String(logging.FieldInput, input),
		logging.String("offset", offset),
		logging.Int("width", width),
	)
	if err := e.runner.Run(ctx, args, e.copyTimeout); err != nil {
		fileutil.RemovePartial(output)
		return err
	}
	return requireOutput(output, "thumbnail")
}

// Remux rewraps the input into the container implied by the output path
// without re-encoding any stream.
func (e *Engine) Remux(ctx context.Context, input, output string) error {
	if err := requireInput(input, "remux"); err != nil {
		return err
	}
	args := []string{
		"-v", "error", "-y",
		"-i", input,
		"-c", "copy",
	}
	args = append(args, faststartArgs(output)...)
	args = append(args, output)

	e.logger.Info("remuxing",
		logging.String(logging.FieldInput, input),
		logging.String(logging.FieldOutput, output),
	)
	if err := e.runner.Run(ctx, args, e.copyTimeout); err != nil {
		fileutil.RemovePartial(output)
		return err
	}
	return requireOutput(output, "remux")
}
