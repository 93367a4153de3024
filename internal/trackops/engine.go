// Package trackops manipulates the audio and subtitle tracks of a media
// file: soft-mux or hard-burn subtitle addition, track selection and
// removal, sidecar extraction, audio conversion and merging.
//
// Track selectors always use the probing tool's global stream index, never
// a per-type position. The one exception is the burn filter's si option,
// which the encoder defines as a position among subtitle streams; the
// engine derives it from the global index internally.
package trackops

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"clipforge/internal/ffmpeg"
	"clipforge/internal/fileutil"
	"clipforge/internal/language"
	"clipforge/internal/logging"
	"clipforge/internal/media"
	"clipforge/internal/services"
)

// Describer resolves a media file into its canonical description.
type Describer interface {
	Describe(ctx context.Context, path string) (*media.Info, error)
}

// Selector picks one track by global stream index or by language. Index
// takes precedence when both are set; -1 means unset.
type Selector struct {
	StreamIndex int
	Language    string
}

// ByIndex selects a track by its global stream index.
func ByIndex(index int) Selector {
	return Selector{StreamIndex: index}
}

// ByLanguage selects the first track whose language tag matches.
func ByLanguage(lang string) Selector {
	return Selector{StreamIndex: -1, Language: lang}
}

func (s Selector) validate() error {
	if s.StreamIndex < 0 && strings.TrimSpace(s.Language) == "" {
		return services.Wrap(services.ErrValidation, "trackops", "select", "selector needs a stream index or a language", nil)
	}
	return nil
}

func (s Selector) String() string {
	if s.StreamIndex >= 0 {
		return fmt.Sprintf("stream %d", s.StreamIndex)
	}
	return fmt.Sprintf("language %q", s.Language)
}

// Engine performs track operations.
type Engine struct {
	runner        ffmpeg.Runner
	prober        Describer
	copyTimeout   time.Duration
	encodeTimeout time.Duration
	scratch       string
	logger        *slog.Logger
}

// NewEngine constructs a track operations engine. scratchDir holds
// intermediate subtitle conversions.
func NewEngine(runner ffmpeg.Runner, prober Describer, copyTimeout, encodeTimeout time.Duration, scratchDir string, logger *slog.Logger) *Engine {
	return &Engine{
		runner:        runner,
		prober:        prober,
		copyTimeout:   copyTimeout,
		encodeTimeout: encodeTimeout,
		scratch:       scratchDir,
		logger:        logging.NewComponentLogger(logger, "trackops"),
	}
}

func (e *Engine) findSubtitle(info *media.Info, sel Selector) (*media.SubtitleTrack, error) {
	if err := sel.validate(); err != nil {
		return nil, err
	}
	for i := range info.SubtitleTracks {
		track := &info.SubtitleTracks[i]
		if sel.StreamIndex >= 0 {
			if track.StreamIndex == sel.StreamIndex {
				return track, nil
			}
			continue
		}
		if language.Matches(sel.Language, track.Language) {
			return track, nil
		}
	}
	return nil, services.Wrap(services.ErrNotFound, "trackops", "select", fmt.Sprintf("no subtitle track matches %s", sel), nil)
}

func (e *Engine) findAudio(info *media.Info, sel Selector) (*media.AudioTrack, error) {
	if err := sel.validate(); err != nil {
		return nil, err
	}
	for i := range info.AudioTracks {
		track := &info.AudioTracks[i]
		if sel.StreamIndex >= 0 {
			if track.StreamIndex == sel.StreamIndex {
				return track, nil
			}
			continue
		}
		if language.Matches(sel.Language, track.Language) {
			return track, nil
		}
	}
	return nil, services.Wrap(services.ErrNotFound, "trackops", "select", fmt.Sprintf("no audio track matches %s", sel), nil)
}

func requireInput(path, operation string) error {
	if fileutil.NonEmpty(path) {
		return nil
	}
	return services.Wrap(services.ErrValidation, "trackops", operation, fmt.Sprintf("input not readable: %s", path), nil)
}

func requireOutput(output, operation string) error {
	if fileutil.NonEmpty(output) {
		return nil
	}
	fileutil.RemovePartial(output)
	return services.Wrap(services.ErrExternalTool, "trackops", operation, "tool produced no usable output", nil)
}

// faststartArgs returns the faststart flag for containers that support it.
func faststartArgs(output string) []string {
	if media.ContainerFromPath(output).SupportsFaststart() {
		return []string{"-movflags", "+faststart"}
	}
	return nil
}
