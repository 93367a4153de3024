// Package probe turns ffprobe output into media.Info, including tracks
// hidden inside container attachments.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"clipforge/internal/ffmpeg"
	"clipforge/internal/logging"
	"clipforge/internal/media"
	"clipforge/internal/services"
	"clipforge/internal/staging"
)

// attachment probing stops after one level of nesting; a media file inside
// an attachment inside an attachment is not a case worth chasing.
const maxAttachmentDepth = 1

// result mirrors the ffprobe JSON payload. Numeric fields arrive as
// strings; ffprobe quotes everything in the format section.
type result struct {
	Streams []stream `json:"streams"`
	Format  format   `json:"format"`
}

type stream struct {
	Index       int               `json:"index"`
	CodecName   string            `json:"codec_name"`
	CodecType   string            `json:"codec_type"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	Channels    int               `json:"channels"`
	Tags        map[string]string `json:"tags"`
	Disposition map[string]int    `json:"disposition"`
}

type format struct {
	Filename string `json:"filename"`
	Duration string `json:"duration"`
	Size     string `json:"size"`
	BitRate  string `json:"bit_rate"`
}

func (s stream) tag(key string) string {
	for k, v := range s.Tags {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (s stream) disposed(key string) bool {
	return s.Disposition[key] == 1
}

// ffprobe omits the language tag entirely on untagged streams; carry the
// conventional "und" instead of an empty string.
func (s stream) language() string {
	if lang := s.tag("language"); lang != "" {
		return lang
	}
	return "und"
}

// Prober inspects media files. The ffprobe runner produces structured JSON;
// the ffmpeg runner extracts attachments for nested inspection.
type Prober struct {
	ffprobe ffmpeg.Runner
	ffmpeg  ffmpeg.Runner
	timeout time.Duration
	scratch string
	logger  *slog.Logger
}

// NewProber constructs a Prober. scratchDir receives temporary attachment
// extractions and must be writable.
func NewProber(ffprobeRunner, ffmpegRunner ffmpeg.Runner, timeout time.Duration, scratchDir string, logger *slog.Logger) *Prober {
	return &Prober{
		ffprobe: ffprobeRunner,
		ffmpeg:  ffmpegRunner,
		timeout: timeout,
		scratch: scratchDir,
		logger:  logging.NewComponentLogger(logger, "probe"),
	}
}

// Describe probes path and returns its canonical description. The result is
// built fresh on every call; nothing is cached.
func (p *Prober) Describe(ctx context.Context, path string) (*media.Info, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrValidation, "probe", "describe", "empty path", nil)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, services.Wrap(services.ErrValidation, "probe", "describe", fmt.Sprintf("input not readable: %s", path), err)
	}
	return p.describe(ctx, path, 0)
}

func (p *Prober) describe(ctx context.Context, path string, depth int) (*media.Info, error) {
	res, err := p.inspect(ctx, path)
	if err != nil {
		return nil, err
	}

	info := &media.Info{
		Path:            path,
		Container:       media.ContainerFromPath(path),
		DurationSeconds: parseFloat(res.Format.Duration),
		SizeBytes:       int64(parseFloat(res.Format.Size)),
		BitrateKbps:     int(parseFloat(res.Format.BitRate) / 1000),
	}
	if info.SizeBytes == 0 {
		if st, err := os.Stat(path); err == nil {
			info.SizeBytes = st.Size()
		}
	}

	sawVideo := false
	for _, st := range res.Streams {
		switch strings.ToLower(st.CodecType) {
		case "video":
			// Attached cover art shows up as a video stream; skip it.
			if st.disposed("attached_pic") {
				continue
			}
			sawVideo = true
			if info.Width == 0 {
				info.Width = st.Width
				info.Height = st.Height
			}
		case "audio":
			channels := st.Channels
			if channels <= 0 {
				channels = 2
			}
			info.AudioTracks = append(info.AudioTracks, media.AudioTrack{
				StreamIndex: st.Index,
				Language:    st.language(),
				Codec:       media.ClassifyAudioCodec(st.CodecName),
				Channels:    channels,
				Default:     st.disposed("default"),
			})
		case "subtitle":
			info.SubtitleTracks = append(info.SubtitleTracks, media.SubtitleTrack{
				StreamIndex:     st.Index,
				Language:        st.language(),
				Codec:           media.ClassifySubtitleCodec(st.CodecName),
				Default:         st.disposed("default"),
				Forced:          st.disposed("forced"),
				AttachmentIndex: -1,
			})
		case "attachment":
			info.Attachments = append(info.Attachments, media.AttachmentRef{
				StreamIndex: st.Index,
				Filename:    st.tag("filename"),
				MimeType:    st.tag("mimetype"),
			})
		}
	}

	// Some containers report a video stream without dimensions; ask for the
	// height directly whenever a video stream exists but none was found.
	if sawVideo && info.Height == 0 {
		info.Height = p.probeHeight(ctx, path)
	}

	if depth < maxAttachmentDepth {
		p.mergeAttachmentTracks(ctx, path, info, depth)
	}
	return info, nil
}

func (p *Prober) inspect(ctx context.Context, path string) (result, error) {
	args := []string{
		"-v", "error", "-hide_banner",
		"-show_format", "-show_streams",
		"-of", "json",
		"--", path,
	}
	output, err := p.ffprobe.RunCapture(ctx, args, p.timeout)
	if err != nil {
		return result{}, err
	}
	var res result
	if err := json.Unmarshal(output, &res); err != nil {
		return result{}, services.Wrap(services.ErrExternalTool, "probe", "inspect", "malformed ffprobe payload", err)
	}
	return res, nil
}

// probeHeight asks ffprobe for the first video stream's height directly.
// Some containers report dimensions only on the stream query.
func (p *Prober) probeHeight(ctx context.Context, path string) int {
	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=height",
		"-of", "csv=p=0",
		"--", path,
	}
	output, err := p.ffprobe.RunCapture(ctx, args, p.timeout)
	if err != nil {
		p.logger.Debug("height fallback probe failed", logging.String("input", path), logging.Error(err))
		return 0
	}
	height, err := strconv.Atoi(strings.TrimSpace(string(output)))
	if err != nil || height < 0 {
		return 0
	}
	return height
}

// mergeAttachmentTracks extracts attachments that look like nested media
// containers, probes each one, and folds the discovered subtitle tracks
// into info tagged with the attachment's stream index. Only subtitle
// tracks merge: every stream index in AudioTracks must be addressable via
// -map on the parent file, and a nested audio stream's index is not.
// Extraction failures are logged and skipped; an unreadable attachment
// never fails the parent probe.
func (p *Prober) mergeAttachmentTracks(ctx context.Context, path string, info *media.Info, depth int) {
	for _, att := range info.Attachments {
		if !looksLikeMedia(att) {
			continue
		}
		nested, err := p.probeAttachment(ctx, path, att, depth)
		if err != nil {
			p.logger.Warn("skipping unreadable attachment",
				logging.String("input", path),
				logging.Int("attachment_index", att.StreamIndex),
				logging.String("filename", att.Filename),
				logging.Error(err),
			)
			continue
		}
		for _, track := range nested.SubtitleTracks {
			track.AttachmentIndex = att.StreamIndex
			info.SubtitleTracks = append(info.SubtitleTracks, track)
		}
	}
}

func (p *Prober) probeAttachment(ctx context.Context, path string, att media.AttachmentRef, depth int) (*media.Info, error) {
	ws, err := staging.NewWorkspace(p.scratch, "attachment", p.logger)
	if err != nil {
		return nil, err
	}
	defer ws.Cleanup()

	name := att.Filename
	if name == "" {
		name = fmt.Sprintf("attachment-%d.bin", att.StreamIndex)
	}
	dest := ws.Path(filepath.Base(name))

	// -dump_attachment is an input option and exits non-zero even on
	// success with no output file requested, hence -y and the explicit
	// destination before -i.
	args := []string{
		"-v", "error", "-y",
		fmt.Sprintf("-dump_attachment:%d", att.StreamIndex), dest,
		"-i", path,
	}
	if err := p.ffmpeg.Run(ctx, args, p.timeout); err != nil {
		// ffmpeg reports "no output" after a successful dump; accept the
		// exit status as long as the file materialized.
		if _, statErr := os.Stat(dest); statErr != nil {
			return nil, err
		}
	}
	return p.describe(ctx, dest, depth+1)
}

// looksLikeMedia filters attachments worth a nested probe. Fonts and cover
// art dominate real-world attachments; only container extensions qualify.
func looksLikeMedia(att media.AttachmentRef) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(att.Filename), "."))
	switch ext {
	case "mka", "mkv", "mks", "mp4", "m4a", "webm", "ogg", "aac", "mp3", "srt", "ass", "ssa", "vtt":
		return true
	}
	return strings.HasPrefix(strings.ToLower(att.MimeType), "video/") ||
		strings.HasPrefix(strings.ToLower(att.MimeType), "audio/")
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(parsed) || parsed < 0 {
		return 0
	}
	return parsed
}
