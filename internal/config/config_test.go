package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if cfg.Processing.Threads != defaultThreads {
		t.Fatalf("threads=%d want %d", cfg.Processing.Threads, defaultThreads)
	}
	if cfg.FFmpegBinary() != "ffmpeg" || cfg.FFprobeBinary() != "ffprobe" {
		t.Fatalf("unexpected tool binaries: %q %q", cfg.FFmpegBinary(), cfg.FFprobeBinary())
	}
	if !filepath.IsAbs(cfg.Paths.OutputDir) {
		t.Fatalf("output dir not expanded: %q", cfg.Paths.OutputDir)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clipforge.toml")
	content := `
[paths]
output_dir = "` + filepath.Join(dir, "out") + `"
scratch_dir = "` + filepath.Join(dir, "scratch") + `"

[tools]
ffmpeg = "/opt/ffmpeg/bin/ffmpeg"

[processing]
threads = 50
encode_timeout = 120

[logging]
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved=%q exists=%v", resolved, exists)
	}
	if cfg.Processing.Threads != maxThreads {
		t.Fatalf("threads should clamp to %d, got %d", maxThreads, cfg.Processing.Threads)
	}
	if cfg.EncodeTimeout() != 120*time.Second {
		t.Fatalf("encode timeout=%v", cfg.EncodeTimeout())
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level not lowercased: %q", cfg.Logging.Level)
	}
	if cfg.FFmpegBinary() != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("ffmpeg binary: %q", cfg.FFmpegBinary())
	}
}

func TestValidateRejectsSharedScratchAndOutput(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatal(err)
	}
	cfg.Paths.ScratchDir = cfg.Paths.OutputDir
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for shared scratch/output dir")
	}
}

func TestValidateRejectsBadLogging(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatal(err)
	}
	cfg.Logging.Format = "yaml"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "logging.format") {
		t.Fatalf("expected logging.format error, got %v", err)
	}
}

func TestCreateSampleWritesParseableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := Load(path); err != nil || !exists {
		t.Fatalf("sample config does not load: exists=%v err=%v", exists, err)
	}
}

func TestTimeoutFallbacks(t *testing.T) {
	cfg := Config{}
	if cfg.ProbeTimeout() != time.Duration(defaultProbeTimeoutSeconds)*time.Second {
		t.Fatalf("probe timeout fallback: %v", cfg.ProbeTimeout())
	}
	if cfg.CopyTimeout() != time.Duration(defaultCopyTimeoutSeconds)*time.Second {
		t.Fatalf("copy timeout fallback: %v", cfg.CopyTimeout())
	}
}
