package compress

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
	joined := strings.Join(args, " ")
	if i := strings.Index(joined, "-passlogfile "); i >= 0 && strings.Contains(joined, "-pass 1") {
		rest := strings.Fields(joined[i+len("-passlogfile "):])
		_ = os.WriteFile(rest[0]+".log", []byte("stats"), 0o644)
		_ = os.WriteFile(rest[0]+".log.mbtree", []byte("stats"), 0o644)
		return nil
	}
	if len(args) > 0 && args[len(args)-1] != os.DevNull {
		_ = os.WriteFile(args[len(args)-1], []byte("out"), 0o644)
	}
	return nil
}

func (f *fakeRunner) RunCapture(ctx context.Context, args []string, timeout time.Duration) ([]byte, error) {
	return nil, f.Run(ctx, args, timeout)
}

type fakeProber struct {
	height int
}

func (f *fakeProber) Describe(context.Context, string) (*media.Info, error) {
	return &media.Info{Width: 16 * f.height / 9, Height: f.height, DurationSeconds: 60}, nil
}

func newInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.mkv")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func TestLadder(t *testing.T) {
	names := func(ladder []ResolutionProfile) []string {
		out := make([]string, len(ladder))
		for i, p := range ladder {
			out[i] = p.Name
		}
		return out
	}

	got := names(Ladder(480, false))
	if strings.Join(got, ",") != "144p,240p,360p,480p" {
		t.Fatalf("480p ladder = %v", got)
	}

	got = names(Ladder(1080, false))
	if strings.Join(got, ",") != "144p,240p,360p,480p,720p,1080p" {
		t.Fatalf("1080p ladder = %v", got)
	}

	// source between rungs only gets its own tier with keepOriginal
	got = names(Ladder(600, false))
	if strings.Join(got, ",") != "144p,240p,360p,480p" {
		t.Fatalf("600p ladder = %v", got)
	}
	got = names(Ladder(600, true))
	if strings.Join(got, ",") != "144p,240p,360p,480p,600p" {
		t.Fatalf("600p keep-original ladder = %v", got)
	}

	if Ladder(100, false) != nil {
		t.Fatal("sub-144p source must yield an empty ladder")
	}
}

func TestRunProducesMatrix(t *testing.T) {
	input := newInput(t)
	outDir := t.TempDir()
	runner := &fakeRunner{}
	m := NewMatrix(runner, &fakeProber{height: 360}, time.Minute, 4, nil)

	result, err := m.Run(context.Background(), Request{
		Input: input, OutputDir: outDir, BaseName: "clip",
		Formats: []string{"mp4", "webm"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// 2 formats x 3 rungs (144p, 240p, 360p)
	if len(result.Files["mp4"]) != 3 || len(result.Files["webm"]) != 3 {
		t.Fatalf("files = %v", result.Files)
	}
	if filepath.Base(result.Files["mp4"][0]) != "clip_144p.mp4" {
		t.Fatalf("naming/order wrong: %v", result.Files["mp4"])
	}
	if filepath.Base(result.Files["webm"][2]) != "clip_360p.webm" {
		t.Fatalf("naming/order wrong: %v", result.Files["webm"])
	}
}

func TestRunIsIdempotent(t *testing.T) {
	input := newInput(t)
	outDir := t.TempDir()
	for _, name := range []string{"clip_144p.mp4", "clip_240p.mp4"} {
		if err := os.WriteFile(filepath.Join(outDir, name), []byte("done"), 0o644); err != nil {
			t.Fatalf("seed output: %v", err)
		}
	}
	runner := &fakeRunner{}
	m := NewMatrix(runner, &fakeProber{height: 240}, time.Minute, 4, nil)

	result, err := m.Run(context.Background(), Request{
		Input: input, OutputDir: outDir, BaseName: "clip", Formats: []string{"mp4"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(runner.calls) != 0 {
		t.Fatalf("encoder invoked %d times for satisfied jobs", len(runner.calls))
	}
	if len(result.Files["mp4"]) != 2 {
		t.Fatalf("files = %v", result.Files)
	}
}

func TestRunTwoPass(t *testing.T) {
	input := newInput(t)
	outDir := t.TempDir()
	runner := &fakeRunner{}
	m := NewMatrix(runner, &fakeProber{height: 720}, time.Minute, 4, nil)

	result, err := m.Run(context.Background(), Request{
		Input: input, OutputDir: outDir, BaseName: "clip",
		Formats: []string{"mp4"}, TwoPass: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Files["mp4"]) != 5 {
		t.Fatalf("files = %v", result.Files)
	}

	// only the 720p rung is two-pass eligible: 4 single-pass + 2 passes
	if len(runner.calls) != 6 {
		t.Fatalf("invocations = %d, want 6", len(runner.calls))
	}
	var logBases []string
	for _, call := range runner.calls {
		joined := strings.Join(call, " ")
		if i := strings.Index(joined, "-passlogfile "); i >= 0 {
			logBases = append(logBases, strings.Fields(joined[i+len("-passlogfile "):])[0])
		}
	}
	if len(logBases) != 2 || logBases[0] != logBases[1] {
		t.Fatalf("pass-log bases = %v, want one shared base", logBases)
	}
	for _, suffix := range []string{".log", ".log.mbtree"} {
		if _, err := os.Stat(logBases[0] + suffix); !os.IsNotExist(err) {
			t.Fatalf("pass log %s%s survived the run", logBases[0], suffix)
		}
	}
}

func TestRunJobFailureLeavesGap(t *testing.T) {
	input := newInput(t)
	outDir := t.TempDir()
	runner := &fakeRunner{failOn: func(args []string) bool {
		return strings.Contains(strings.Join(args, " "), "clip_240p")
	}}
	m := NewMatrix(runner, &fakeProber{height: 240}, time.Minute, 4, nil)

	result, err := m.Run(context.Background(), Request{
		Input: input, OutputDir: outDir, BaseName: "clip", Formats: []string{"mp4"},
	})
	if err != nil {
		t.Fatalf("one failed job must not fail the matrix: %v", err)
	}
	if len(result.Files["mp4"]) != 1 || !strings.Contains(result.Files["mp4"][0], "144p") {
		t.Fatalf("files = %v, want only the 144p rendition", result.Files)
	}
}

func TestRunFlagsSmallOutputs(t *testing.T) {
	input := newInput(t)
	runner := &fakeRunner{} // fake outputs are a few bytes, far below any floor
	m := NewMatrix(runner, &fakeProber{height: 144}, time.Minute, 4, nil)

	result, err := m.Run(context.Background(), Request{
		Input: input, OutputDir: t.TempDir(), BaseName: "clip", Formats: []string{"mp4"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Files["mp4"]) != 1 {
		t.Fatalf("warning must not drop the rendition: %v", result.Files)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "below the") {
		t.Fatalf("warnings = %v", result.Warnings)
	}
}

func TestRunRejectsUnknownFormatsOnly(t *testing.T) {
	input := newInput(t)
	m := NewMatrix(&fakeRunner{}, &fakeProber{height: 480}, time.Minute, 4, nil)

	_, err := m.Run(context.Background(), Request{
		Input: input, OutputDir: t.TempDir(), BaseName: "clip", Formats: []string{"avi"},
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestJobArgsCodecFamilies(t *testing.T) {
	m := NewMatrix(&fakeRunner{}, nil, time.Minute, 8, nil)
	res720 := resolutionProfiles[4]

	x264 := strings.Join(m.jobArgs("in.mkv", job{format: formatProfiles["mp4"], resolution: res720}), " ")
	for _, want := range []string{
		"-vf scale=-2:720", "-c:v libx264", "-b:v 2250k", "-maxrate 3000k", "-minrate 1500k",
		"-bufsize 4500k", "-b:a 128k", "-movflags +faststart", "-crf 22",
		"-x264-params log-level=error:threads=4",
	} {
		if !strings.Contains(x264, want) {
			t.Errorf("mp4 args missing %q:\n%s", want, x264)
		}
	}

	hevc := strings.Join(m.jobArgs("in.mkv", job{format: formatProfiles["hevc"], resolution: res720}), " ")
	if !strings.Contains(hevc, "-tag:v hvc1") || !strings.Contains(hevc, "-x265-params") {
		t.Errorf("hevc args wrong:\n%s", hevc)
	}

	webm := strings.Join(m.jobArgs("in.mkv", job{format: formatProfiles["webm"], resolution: res720}), " ")
	for _, want := range []string{"-c:v libvpx-vp9", "-c:a libopus", "-row-mt 1", "-quality good", "-threads 8", "-speed 4"} {
		if !strings.Contains(webm, want) {
			t.Errorf("webm args missing %q:\n%s", want, webm)
		}
	}

	// low rungs force the fast preset / speed regardless of profile
	res360 := resolutionProfiles[2]
	low := strings.Join(m.jobArgs("in.mkv", job{format: formatProfiles["mp4"], resolution: res360}), " ")
	if !strings.Contains(low, "-preset fast") {
		t.Errorf("low rung preset wrong:\n%s", low)
	}
}
