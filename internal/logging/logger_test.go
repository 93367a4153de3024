package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerFormatsRecord(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelInfo)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger = NewComponentLogger(logger, "probe")
	logger.Info("media inspected",
		String("input", "/tmp/in.mkv"),
		Int("streams", 4),
		Bool("ok", true),
	)

	line := buf.String()
	if !strings.Contains(line, "INFO") {
		t.Fatalf("missing level label: %q", line)
	}
	if !strings.Contains(line, "probe: media inspected") {
		t.Fatalf("component prefix missing: %q", line)
	}
	if !strings.Contains(line, "input=/tmp/in.mkv") {
		t.Fatalf("attribute missing: %q", line)
	}
	if !strings.Contains(line, "streams=4") {
		t.Fatalf("int attribute missing: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Warn("failed", Error(errors.New("exit status 1: missing file")))

	if !strings.Contains(buf.String(), `error="exit status 1: missing file"`) {
		t.Fatalf("error not quoted: %q", buf.String())
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info record suppressed, got %q", buf.String())
	}
	logger.Error("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected error record, got %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNoopHandlerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("noop logger should not be enabled")
	}
}
