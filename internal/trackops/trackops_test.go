package trackops

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clipforge/internal/media"
	"clipforge/internal/services"
)

type fakeRunner struct {
	calls  [][]string
	failOn func(args []string) bool
}

func (f *fakeRunner) Run(_ context.Context, args []string, _ time.Duration) error {
	f.calls = append(f.calls, args)
	if f.failOn != nil && f.failOn(args) {
		return errors.New("simulated tool failure")
	}
	if len(args) > 0 {
		_ = os.WriteFile(args[len(args)-1], []byte("out"), 0o644)
	}
	return nil
}

func (f *fakeRunner) RunCapture(ctx context.Context, args []string, timeout time.Duration) ([]byte, error) {
	return nil, f.Run(ctx, args, timeout)
}

type fakeProber struct {
	info *media.Info
	err  error
}

func (f *fakeProber) Describe(context.Context, string) (*media.Info, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.info == nil {
		return &media.Info{Width: 1280, Height: 720}, nil
	}
	return f.info, nil
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func newEngine(runner *fakeRunner, prober Describer, scratch string) *Engine {
	return NewEngine(runner, prober, time.Minute, time.Minute, scratch, nil)
}

func TestAddSubtitleDecisionTable(t *testing.T) {
	cases := []struct {
		container string
		subExt    string
		wantSoft  bool
		wantCodec string
	}{
		{"mkv", "srt", true, "srt"},
		{"mkv", "ass", true, "ass"},
		{"mp4", "srt", true, "mov_text"},
		{"mp4", "vtt", true, "mov_text"},
		{"mp4", "ass", false, ""},
		{"webm", "vtt", true, "webvtt"},
		{"avi", "srt", false, ""},
	}
	for _, tc := range cases {
		t.Run(tc.container+"_"+tc.subExt, func(t *testing.T) {
			dir := t.TempDir()
			input := writeFile(t, dir, "in."+tc.container)
			sub := writeFile(t, dir, "sub."+tc.subExt)
			output := filepath.Join(dir, "out."+tc.container)
			runner := &fakeRunner{}
			eng := newEngine(runner, &fakeProber{}, dir)

			if err := eng.AddSubtitle(context.Background(), input, sub, output, SubtitleAttrs{Language: "en", Default: true}); err != nil {
				t.Fatalf("AddSubtitle: %v", err)
			}
			joined := strings.Join(runner.calls[len(runner.calls)-1], " ")
			if tc.wantSoft {
				if !strings.Contains(joined, "-c:s "+tc.wantCodec) {
					t.Fatalf("want soft mux with %s, got: %s", tc.wantCodec, joined)
				}
				if !strings.Contains(joined, "-map 0 -map 1:0") || !strings.Contains(joined, "language=eng") {
					t.Fatalf("soft mux args wrong: %s", joined)
				}
				if !strings.Contains(joined, "-disposition:s:0 default") {
					t.Fatalf("disposition wrong: %s", joined)
				}
			} else {
				if !strings.Contains(joined, "subtitles=") || !strings.Contains(joined, "-c:v libx264") {
					t.Fatalf("want hard burn, got: %s", joined)
				}
				if !strings.Contains(joined, "force_style='Fontsize=24,Outline=1'") {
					t.Fatalf("burn style missing: %s", joined)
				}
			}
		})
	}
}

func TestAddSubtitleFallsBackToBurnWhenSoftFails(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "in.mkv")
	sub := writeFile(t, dir, "sub.srt")
	output := filepath.Join(dir, "out.mkv")
	runner := &fakeRunner{failOn: func(args []string) bool {
		return strings.Contains(strings.Join(args, " "), "-c:s ")
	}}
	eng := newEngine(runner, &fakeProber{}, dir)

	if err := eng.AddSubtitle(context.Background(), input, sub, output, SubtitleAttrs{}); err != nil {
		t.Fatalf("AddSubtitle: %v", err)
	}
	last := strings.Join(runner.calls[len(runner.calls)-1], " ")
	if !strings.Contains(last, "-c:v libx264") {
		t.Fatalf("fallback burn missing: %s", last)
	}
}

func TestAddSubtitleConvertsVTTBeforeBurn(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "in.avi")
	sub := writeFile(t, dir, "sub.vtt")
	output := filepath.Join(dir, "out.avi")
	runner := &fakeRunner{}
	eng := newEngine(runner, &fakeProber{}, dir)

	if err := eng.AddSubtitle(context.Background(), input, sub, output, SubtitleAttrs{}); err != nil {
		t.Fatalf("AddSubtitle: %v", err)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("invocations = %d, want convert then burn", len(runner.calls))
	}
	if !strings.Contains(strings.Join(runner.calls[0], " "), "-f srt") {
		t.Fatalf("first call not a vtt conversion: %v", runner.calls[0])
	}
	if !strings.Contains(strings.Join(runner.calls[1], " "), "converted.srt") {
		t.Fatalf("burn does not use converted file: %v", runner.calls[1])
	}
}

func TestSelectSubtitleUsesGlobalIndex(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "in.mkv")
	output := filepath.Join(dir, "out.mkv")
	prober := &fakeProber{info: &media.Info{
		SubtitleTracks: []media.SubtitleTrack{
			{StreamIndex: 2, Language: "eng", AttachmentIndex: -1},
			{StreamIndex: 3, Language: "jpn", AttachmentIndex: -1},
		},
	}}
	runner := &fakeRunner{}
	eng := newEngine(runner, prober, dir)

	if err := eng.SelectSubtitle(context.Background(), input, output, ByLanguage("japanese"), true); err != nil {
		t.Fatalf("SelectSubtitle: %v", err)
	}
	joined := strings.Join(runner.calls[0], " ")
	if !strings.Contains(joined, "-map 0 -map -0:s -map 0:3") {
		t.Fatalf("map args wrong: %s", joined)
	}
	if !strings.Contains(joined, "-disposition:s:0 default") {
		t.Fatalf("disposition wrong: %s", joined)
	}
}

func TestSelectSubtitleRejectsNestedTracks(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "in.mkv")
	prober := &fakeProber{info: &media.Info{
		SubtitleTracks: []media.SubtitleTrack{
			{StreamIndex: 0, Language: "eng", AttachmentIndex: 4},
		},
	}}
	eng := newEngine(&fakeRunner{}, prober, dir)

	err := eng.SelectSubtitle(context.Background(), input, "out.mkv", ByIndex(0), false)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for nested track, got %v", err)
	}
}

func TestBurnSubtitleDerivesFilterPosition(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "in.mkv")
	output := filepath.Join(dir, "out.mp4")
	prober := &fakeProber{info: &media.Info{
		SubtitleTracks: []media.SubtitleTrack{
			{StreamIndex: 2, Language: "eng", AttachmentIndex: -1},
			{StreamIndex: 5, Language: "jpn", AttachmentIndex: -1},
		},
	}}
	runner := &fakeRunner{}
	eng := newEngine(runner, prober, dir)

	if err := eng.BurnSubtitle(context.Background(), input, output, ByIndex(5)); err != nil {
		t.Fatalf("BurnSubtitle: %v", err)
	}
	joined := strings.Join(runner.calls[0], " ")
	if !strings.Contains(joined, ":si=1") {
		t.Fatalf("filter position wrong (global 5 is the second subtitle stream): %s", joined)
	}
	if !strings.Contains(joined, "-movflags +faststart") {
		t.Fatalf("faststart missing for mp4 output: %s", joined)
	}
}

func TestExtractSubtitlesSkipsFailuresAndNested(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "movie.mkv")
	outDir := t.TempDir()
	prober := &fakeProber{info: &media.Info{
		SubtitleTracks: []media.SubtitleTrack{
			{StreamIndex: 2, Language: "eng", Codec: media.SubtitleSubRip, AttachmentIndex: -1},
			{StreamIndex: 3, Language: "jpn", Codec: media.SubtitleASS, AttachmentIndex: -1},
			{StreamIndex: 0, Language: "fra", Codec: media.SubtitleSRT, AttachmentIndex: 5},
		},
	}}
	runner := &fakeRunner{failOn: func(args []string) bool {
		return strings.Contains(strings.Join(args, " "), "0:3")
	}}
	eng := newEngine(runner, prober, dir)

	produced, err := eng.ExtractSubtitles(context.Background(), input, outDir)
	if err != nil {
		t.Fatalf("ExtractSubtitles: %v", err)
	}
	if len(produced) != 1 {
		t.Fatalf("produced = %v, want only the eng track", produced)
	}
	if filepath.Base(produced[0]) != "movie_eng_2.srt" {
		t.Fatalf("sidecar name = %q", filepath.Base(produced[0]))
	}
}

func TestSelectAudioByLanguage(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "in.mp4")
	output := filepath.Join(dir, "out.mp4")
	prober := &fakeProber{info: &media.Info{
		AudioTracks: []media.AudioTrack{
			{StreamIndex: 1, Language: "eng"},
			{StreamIndex: 2, Language: "fra"},
		},
	}}
	runner := &fakeRunner{}
	eng := newEngine(runner, prober, dir)

	if err := eng.SelectAudio(context.Background(), input, output, ByLanguage("fr"), false); err != nil {
		t.Fatalf("SelectAudio: %v", err)
	}
	joined := strings.Join(runner.calls[0], " ")
	if !strings.Contains(joined, "-map 0:v -map 0:2") {
		t.Fatalf("map args wrong: %s", joined)
	}
	if !strings.Contains(joined, "-disposition:a:0 0") {
		t.Fatalf("disposition wrong: %s", joined)
	}
}

func TestSelectAudioNoMatch(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "in.mkv")
	prober := &fakeProber{info: &media.Info{
		AudioTracks: []media.AudioTrack{{StreamIndex: 1, Language: "eng"}},
	}}
	eng := newEngine(&fakeRunner{}, prober, dir)

	err := eng.SelectAudio(context.Background(), input, "out.mkv", ByLanguage("ko"), false)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestExtractAudioCodecArgs(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "in.mkv")
	runner := &fakeRunner{}
	eng := newEngine(runner, &fakeProber{}, dir)

	if err := eng.ExtractAudio(context.Background(), input, filepath.Join(dir, "out.aac"), media.AudioAAC, 0); err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}
	joined := strings.Join(runner.calls[0], " ")
	if !strings.Contains(joined, "-vn -c:a aac -b:a 192k") || !strings.Contains(joined, "-aac_coder twoloop") {
		t.Fatalf("aac args wrong: %s", joined)
	}

	if err := eng.ExtractAudio(context.Background(), input, filepath.Join(dir, "out.opus"), media.AudioOpus, 128); err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}
	joined = strings.Join(runner.calls[1], " ")
	if !strings.Contains(joined, "-c:a libopus -b:a 128k") || !strings.Contains(joined, "-application audio") {
		t.Fatalf("opus args wrong: %s", joined)
	}

	err := eng.ExtractAudio(context.Background(), input, "out.dts", media.AudioDTS, 192)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unsupported encoder, got %v", err)
	}
}

func TestMergeAudio(t *testing.T) {
	dir := t.TempDir()
	video := writeFile(t, dir, "video.mp4")
	audio := writeFile(t, dir, "audio.aac")
	output := filepath.Join(dir, "out.mp4")
	runner := &fakeRunner{}
	eng := newEngine(runner, &fakeProber{}, dir)

	if err := eng.MergeAudio(context.Background(), video, audio, output); err != nil {
		t.Fatalf("MergeAudio: %v", err)
	}
	joined := strings.Join(runner.calls[0], " ")
	for _, want := range []string{"-map 0:v:0 -map 1:a:0", "-c:v copy", "-c:a aac", "-shortest", "-movflags +faststart"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("merge args missing %q: %s", want, joined)
		}
	}
}

func TestThumbnailArgs(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "in.mkv")
	runner := &fakeRunner{}
	eng := newEngine(runner, &fakeProber{}, dir)

	if err := eng.Thumbnail(context.Background(), input, filepath.Join(dir, "thumb.jpg"), "", 0); err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	joined := strings.Join(runner.calls[0], " ")
	for _, want := range []string{"-ss 00:00:05", "-frames:v 1", "scale=640:-2:flags=lanczos", "-q:v 3", "-f image2"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("thumbnail args missing %q: %s", want, joined)
		}
	}
}

func TestRemuxCopiesStreams(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "in.mkv")
	output := filepath.Join(dir, "out.mp4")
	runner := &fakeRunner{}
	eng := newEngine(runner, &fakeProber{}, dir)

	if err := eng.Remux(context.Background(), input, output); err != nil {
		t.Fatalf("Remux: %v", err)
	}
	joined := strings.Join(runner.calls[0], " ")
	if !strings.Contains(joined, "-c copy") || !strings.Contains(joined, "-movflags +faststart") {
		t.Fatalf("remux args wrong: %s", joined)
	}
}

func TestStripSubtitlesDropsAttachmentsToo(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "in.mkv")
	output := filepath.Join(dir, "out.mkv")
	runner := &fakeRunner{}
	eng := newEngine(runner, &fakeProber{}, dir)

	if err := eng.StripSubtitles(context.Background(), input, output); err != nil {
		t.Fatalf("StripSubtitles: %v", err)
	}
	joined := strings.Join(runner.calls[0], " ")
	if !strings.Contains(joined, "-map 0 -map -0:s -map -0:t") {
		t.Fatalf("strip args wrong: %s", joined)
	}
}
