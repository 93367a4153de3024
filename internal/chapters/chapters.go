// Package chapters reads and writes container chapter marks through the
// encoder's line-oriented metadata format. Every mutation is a full
// read-modify-write: parse the existing list, change it, write it back.
//
// Timestamps normalize to whole-second HH:MM:SS form; sub-second precision
// is lost on round-trip.
package chapters

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
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

const metadataHeader = ";FFMETADATA1"

// Chapter is one chapter mark. Start and End are normalized HH:MM:SS.
type Chapter struct {
	Start string
	End   string
	Title string
}

// Edit names the fields to change on one chapter; nil fields keep their
// current value.
type Edit struct {
	Start *string
	End   *string
	Title *string
}

// Engine performs chapter operations. Chapter indices are 1-based
// throughout, matching how players and users count them.
type Engine struct {
	runner  ffmpeg.Runner
	timeout time.Duration
	scratch string
	logger  *slog.Logger
}

// NewEngine constructs a chapter engine. scratchDir holds the temporary
// metadata files written during mutations.
func NewEngine(runner ffmpeg.Runner, timeout time.Duration, scratchDir string, logger *slog.Logger) *Engine {
	return &Engine{
		runner:  runner,
		timeout: timeout,
		scratch: scratchDir,
		logger:  logging.NewComponentLogger(logger, "chapters"),
	}
}

// List returns the chapters of input. A file without chapters yields an
// empty list, not an error.
func (e *Engine) List(ctx context.Context, input string) ([]Chapter, error) {
	if !fileutil.NonEmpty(input) {
		return nil, services.Wrap(services.ErrValidation, "chapters", "list", fmt.Sprintf("input not readable: %s", input), nil)
	}
	args := []string{"-v", "error", "-i", input, "-f", "ffmetadata", "-"}
	output, err := e.runner.RunCapture(ctx, args, e.timeout)
	if err != nil {
		return nil, err
	}
	return parseMetadata(string(output)), nil
}

// Set replaces the chapters of input, writing the result to output with all
// streams copied. The metadata temp file is removed on every exit path.
func (e *Engine) Set(ctx context.Context, input, output string, list []Chapter) error {
	if !fileutil.NonEmpty(input) {
		return services.Wrap(services.ErrValidation, "chapters", "set", fmt.Sprintf("input not readable: %s", input), nil)
	}
	ws, err := staging.NewWorkspace(e.scratch, "chapters", e.logger)
	if err != nil {
		return err
	}
	defer ws.Cleanup()

	metaPath := ws.Path("metadata.txt")
	if err := writeMetadataFile(metaPath, list); err != nil {
		return services.Wrap(services.ErrValidation, "chapters", "set", "failed to write metadata file", err)
	}

	args := []string{
		"-v", "error", "-y",
		"-i", input,
		"-i", metaPath,
		"-map_metadata", "1",
		"-c", "copy",
		output,
	}
	e.logger.Info("writing chapters",
		logging.String(logging.FieldInput, input),
		logging.String(logging.FieldOutput, output),
		logging.Int("chapters", len(list)),
	)
	if err := e.runner.Run(ctx, args, e.timeout); err != nil {
		fileutil.RemovePartial(output)
		return err
	}
	return requireOutput(output, "set")
}

// Remove strips all chapters and metadata, stream-copying everything else.
func (e *Engine) Remove(ctx context.Context, input, output string) error {
	if !fileutil.NonEmpty(input) {
		return services.Wrap(services.ErrValidation, "chapters", "remove", fmt.Sprintf("input not readable: %s", input), nil)
	}
	args := []string{
		"-v", "error", "-y",
		"-i", input,
		"-map_metadata", "-1",
		"-c", "copy",
	}
	if media.ContainerFromPath(output).SupportsFaststart() {
		args = append(args, "-movflags", "+faststart")
	}
	args = append(args, output)
	if err := e.runner.Run(ctx, args, e.timeout); err != nil {
		fileutil.RemovePartial(output)
		return err
	}
	return requireOutput(output, "remove")
}

// EditChapter rewrites one chapter in place.
func (e *Engine) EditChapter(ctx context.Context, input, output string, index int, edit Edit) error {
	list, err := e.List(ctx, input)
	if err != nil {
		return err
	}
	if index < 1 || index > len(list) {
		return services.Wrap(services.ErrValidation, "chapters", "edit", fmt.Sprintf("chapter %d not found, file has %d", index, len(list)), nil)
	}
	target := &list[index-1]
	if edit.Start != nil {
		target.Start = NormalizeTimestamp(*edit.Start)
	}
	if edit.End != nil {
		target.End = NormalizeTimestamp(*edit.End)
	}
	if edit.Title != nil {
		target.Title = *edit.Title
	}
	return e.Set(ctx, input, output, list)
}

// SplitChapter replaces chapter index with two adjacent chapters meeting at
// the given point, which must lie strictly inside the chapter's span.
func (e *Engine) SplitChapter(ctx context.Context, input, output string, index int, atSeconds float64) error {
	list, err := e.List(ctx, input)
	if err != nil {
		return err
	}
	if index < 1 || index > len(list) {
		return services.Wrap(services.ErrValidation, "chapters", "split", fmt.Sprintf("chapter %d not found, file has %d", index, len(list)), nil)
	}
	target := list[index-1]
	start := HMSToSeconds(target.Start)
	end := HMSToSeconds(target.End)
	if !(start < atSeconds && atSeconds < end) {
		return services.Wrap(services.ErrValidation, "chapters", "split",
			fmt.Sprintf("split point %s must fall strictly inside %s-%s", formatSeconds(atSeconds), target.Start, target.End), nil)
	}

	title := target.Title
	if title == "" {
		title = "Chapter"
	}
	at := NormalizeTimestamp(formatSeconds(atSeconds))
	replacement := []Chapter{
		{Start: target.Start, End: at, Title: title + " Part 1"},
		{Start: at, End: target.End, Title: title + " Part 2"},
	}

	updated := append([]Chapter(nil), list[:index-1]...)
	updated = append(updated, replacement...)
	updated = append(updated, list[index:]...)
	return e.Set(ctx, input, output, updated)
}

var hmsPattern = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}(\.\d+)?$`)

// NormalizeTimestamp brings a timestamp to whole-second HH:MM:SS form.
// HH:MM:SS input passes through minus any fraction; plain seconds are
// converted; anything else is returned verbatim.
func NormalizeTimestamp(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "00:00:00"
	}
	if hmsPattern.MatchString(value) {
		return strings.SplitN(value, ".", 2)[0]
	}
	secs, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return value
	}
	total := int(secs)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
}

// HMSToSeconds parses HH:MM:SS, MM:SS, or plain seconds. Unparseable input
// yields 0.
func HMSToSeconds(value string) float64 {
	parts := strings.Split(strings.TrimSpace(value), ":")
	nums := make([]float64, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0
		}
		nums = append(nums, n)
	}
	switch len(nums) {
	case 3:
		return nums[0]*3600 + nums[1]*60 + nums[2]
	case 2:
		return nums[0]*60 + nums[1]
	case 1:
		return nums[0]
	}
	return 0
}

// parseMetadata scans the encoder's metadata dump line by line, starting a
// chapter on each section marker. Global metadata before the first marker
// is ignored.
func parseMetadata(text string) []Chapter {
	var list []Chapter
	var current *Chapter
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "[CHAPTER]":
			if current != nil {
				list = append(list, *current)
			}
			current = &Chapter{}
		case current == nil:
			continue
		case strings.HasPrefix(line, "START="):
			current.Start = NormalizeTimestamp(unescapeMeta(line[len("START="):]))
		case strings.HasPrefix(line, "END="):
			current.End = NormalizeTimestamp(unescapeMeta(line[len("END="):]))
		case strings.HasPrefix(line, "title="):
			current.Title = unescapeMeta(line[len("title="):])
		}
	}
	if current != nil {
		list = append(list, *current)
	}
	return list
}

// writeMetadataFile synthesizes the metadata block the encoder consumes
// via -map_metadata, using a millisecond timebase.
func writeMetadataFile(path string, list []Chapter) error {
	var sb strings.Builder
	sb.WriteString(metadataHeader + "\n")
	for i, ch := range list {
		title := ch.Title
		if title == "" {
			title = fmt.Sprintf("Chapter %d", i+1)
		}
		startMS := int64(HMSToSeconds(ch.Start) * 1000)
		endMS := int64(HMSToSeconds(ch.End) * 1000)
		fmt.Fprintf(&sb, "[CHAPTER]\nTIMEBASE=1/1000\nSTART=%d\nEND=%d\ntitle=%s\n\n",
			startMS, endMS, escapeMeta(title))
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

var metaEscaper = strings.NewReplacer(`\`, `\\`, `=`, `\=`, `;`, `\;`, `#`, `\#`, "\n", `\`+"\n")

var metaUnescaper = strings.NewReplacer(`\=`, `=`, `\;`, `;`, `\#`, `#`, `\\`, `\`)

func escapeMeta(value string) string { return metaEscaper.Replace(value) }

func unescapeMeta(value string) string { return metaUnescaper.Replace(value) }

func requireOutput(output, operation string) error {
	if fileutil.NonEmpty(output) {
		return nil
	}
	fileutil.RemovePartial(output)
	return services.Wrap(services.ErrExternalTool, "chapters", operation, "tool produced no usable output", nil)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
