package probe

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// fakeRunner hands back canned payloads keyed by a substring of the
// argument list (first match wins) and records every invocation.
type payload struct {
	key  string
	body string
}

type fakeRunner struct {
	t        *testing.T
	payloads []payload
	onRun    func(args []string)
	calls    [][]string
}

func (f *fakeRunner) Run(_ context.Context, args []string, _ time.Duration) error {
	f.calls = append(f.calls, args)
	if f.onRun != nil {
		f.onRun(args)
	}
	return nil
}

func (f *fakeRunner) RunCapture(_ context.Context, args []string, _ time.Duration) ([]byte, error) {
	f.calls = append(f.calls, args)
	joined := strings.Join(args, " ")
	for _, p := range f.payloads {
		if strings.Contains(joined, p.key) {
			return []byte(p.body), nil
		}
	}
	f.t.Fatalf("no payload for args: %v", args)
	return nil, nil
}

const mainPayload = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "channels": 6,
     "tags": {"language": "eng"}, "disposition": {"default": 1}},
    {"index": 2, "codec_name": "subrip", "codec_type": "subtitle",
     "tags": {"language": "eng"}, "disposition": {"forced": 1}},
    {"index": 3, "codec_type": "attachment",
     "tags": {"filename": "extras.mka", "mimetype": "audio/x-matroska"}},
    {"index": 4, "codec_type": "attachment",
     "tags": {"filename": "OpenSans.ttf", "mimetype": "application/x-truetype-font"}}
  ],
  "format": {"duration": "120.500000", "size": "10485760", "bit_rate": "696000"}
}`

const attachmentPayload = `{
  "streams": [
    {"index": 0, "codec_name": "aac", "codec_type": "audio", "tags": {"language": "jpn"}},
    {"index": 1, "codec_name": "ass", "codec_type": "subtitle", "tags": {"language": "jpn"}},
    {"index": 2, "codec_name": "hdmv_pgs_subtitle", "codec_type": "subtitle"}
  ],
  "format": {"duration": "120.000000"}
}`

func newTestFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.mkv")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func TestDescribeBuildsInfo(t *testing.T) {
	input := newTestFile(t)
	probeRunner := &fakeRunner{t: t, payloads: []payload{
		{key: "extras.mka", body: attachmentPayload},
		{key: input, body: mainPayload},
	}}
	ffmpegRunner := &fakeRunner{t: t}
	ffmpegRunner.onRun = func(args []string) {
		// dump_attachment writes the destination named right after the flag
		for i, arg := range args {
			if strings.HasPrefix(arg, "-dump_attachment") && i+1 < len(args) {
				if err := os.WriteFile(args[i+1], []byte("nested"), 0o644); err != nil {
					t.Fatalf("fake dump: %v", err)
				}
			}
		}
	}

	p := NewProber(probeRunner, ffmpegRunner, time.Minute, t.TempDir(), nil)
	info, err := p.Describe(context.Background(), input)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}

	if info.Width != 1920 || info.Height != 1080 {
		t.Fatalf("dimensions = %dx%d", info.Width, info.Height)
	}
	if info.DurationSeconds != 120.5 {
		t.Fatalf("duration = %v", info.DurationSeconds)
	}
	if info.BitrateKbps != 696 {
		t.Fatalf("bitrate = %d", info.BitrateKbps)
	}
	// The attachment's audio stream stays out: its index 0 would collide
	// with the parent's global indexing and misdirect -map.
	if len(info.AudioTracks) != 1 {
		t.Fatalf("audio tracks = %d, want only the top-level one", len(info.AudioTracks))
	}
	audio := info.AudioTracks[0]
	if audio.StreamIndex != 1 || audio.Channels != 6 || !audio.Default || audio.Language != "eng" {
		t.Fatalf("audio track = %+v", audio)
	}

	// One top-level subtitle plus two from the nested attachment.
	if len(info.SubtitleTracks) != 3 {
		t.Fatalf("subtitle tracks = %d, want 3", len(info.SubtitleTracks))
	}
	top := info.SubtitleTracks[0]
	if top.StreamIndex != 2 || !top.Forced || top.AttachmentIndex != -1 {
		t.Fatalf("top-level subtitle = %+v", top)
	}
	for _, nested := range info.SubtitleTracks[1:] {
		if nested.AttachmentIndex != 3 {
			t.Fatalf("nested subtitle not tagged with attachment index: %+v", nested)
		}
	}
	if info.SubtitleTracks[1].Language != "jpn" {
		t.Fatalf("nested language = %q", info.SubtitleTracks[1].Language)
	}
	if info.SubtitleTracks[2].Language != "und" {
		t.Fatalf("untagged subtitle language = %q, want und", info.SubtitleTracks[2].Language)
	}

	if len(info.Attachments) != 2 {
		t.Fatalf("attachments = %d", len(info.Attachments))
	}
	// The font attachment never triggers an extraction.
	if len(ffmpegRunner.calls) != 1 {
		t.Fatalf("ffmpeg invocations = %d, want 1", len(ffmpegRunner.calls))
	}
}

func TestDescribeSkipsUnreadableAttachment(t *testing.T) {
	input := newTestFile(t)
	probeRunner := &fakeRunner{t: t, payloads: []payload{
		// nested probe never happens: dump produces nothing
		{key: input, body: mainPayload},
	}}
	ffmpegRunner := &fakeRunner{t: t} // onRun nil: no file materializes

	p := NewProber(probeRunner, ffmpegRunner, time.Minute, t.TempDir(), nil)
	info, err := p.Describe(context.Background(), input)
	if err != nil {
		t.Fatalf("Describe must survive a failed attachment: %v", err)
	}
	if len(info.SubtitleTracks) != 1 {
		t.Fatalf("subtitle tracks = %d, want only the top-level one", len(info.SubtitleTracks))
	}
}

func TestDescribeRejectsMissingFile(t *testing.T) {
	p := NewProber(&fakeRunner{t: t}, &fakeRunner{t: t}, time.Minute, t.TempDir(), nil)
	if _, err := p.Describe(context.Background(), filepath.Join(t.TempDir(), "gone.mkv")); err == nil {
		t.Fatal("expected error for missing input")
	}
}

func TestDescribeUsesHeightFallback(t *testing.T) {
	input := newTestFile(t)
	body := `{
      "streams": [{"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1280}],
      "format": {"duration": "10.0"}
    }`
	probeRunner := &fakeRunner{t: t, payloads: []payload{
		{key: "stream=height", body: "720\n"},
		{key: input, body: body},
	}}

	p := NewProber(probeRunner, &fakeRunner{t: t}, time.Minute, t.TempDir(), nil)
	info, err := p.Describe(context.Background(), input)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if info.Height != 720 {
		t.Fatalf("height = %d, want fallback 720", info.Height)
	}
}

func TestDescribeHeightFallbackWithoutAnyDimensions(t *testing.T) {
	input := newTestFile(t)
	body := `{
      "streams": [{"index": 0, "codec_name": "h264", "codec_type": "video"}],
      "format": {"duration": "10.0"}
    }`
	probeRunner := &fakeRunner{t: t, payloads: []payload{
		{key: "stream=height", body: "480\n"},
		{key: input, body: body},
	}}

	p := NewProber(probeRunner, &fakeRunner{t: t}, time.Minute, t.TempDir(), nil)
	info, err := p.Describe(context.Background(), input)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if info.Height != 480 {
		t.Fatalf("height = %d, want fallback 480", info.Height)
	}
}

func TestDescribeDefaultsUntaggedLanguages(t *testing.T) {
	input := newTestFile(t)
	body := `{
      "streams": [
        {"index": 0, "codec_name": "aac", "codec_type": "audio", "channels": 2},
        {"index": 1, "codec_name": "subrip", "codec_type": "subtitle"}
      ],
      "format": {"duration": "10.0"}
    }`
	probeRunner := &fakeRunner{t: t, payloads: []payload{
		{key: input, body: body},
	}}

	p := NewProber(probeRunner, &fakeRunner{t: t}, time.Minute, t.TempDir(), nil)
	info, err := p.Describe(context.Background(), input)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if info.AudioTracks[0].Language != "und" {
		t.Fatalf("audio language = %q, want und", info.AudioTracks[0].Language)
	}
	if info.SubtitleTracks[0].Language != "und" {
		t.Fatalf("subtitle language = %q, want und", info.SubtitleTracks[0].Language)
	}
}
