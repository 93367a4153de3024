package ffmpeg

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"clipforge/internal/services"
)

func TestRunSuccess(t *testing.T) {
	exec := NewExecutor("sh", nil, false)
	if err := exec.Run(context.Background(), []string{"-c", "exit 0"}, time.Minute); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRunClassifiesNonZeroExit(t *testing.T) {
	exec := NewExecutor("sh", nil, false)
	err := exec.Run(context.Background(), []string{"-c", "echo broken pipe >&2; exit 3"}, time.Minute)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if !strings.Contains(err.Error(), "broken pipe") {
		t.Fatalf("stderr excerpt missing: %v", err)
	}
}

func TestRunClassifiesTimeout(t *testing.T) {
	exec := NewExecutor("sh", nil, false)
	started := time.Now()
	err := exec.Run(context.Background(), []string{"-c", "sleep 10"}, 100*time.Millisecond)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(started); elapsed > 5*time.Second {
		t.Fatalf("process not killed promptly, took %v", elapsed)
	}
}

func TestRunClassifiesMissingBinary(t *testing.T) {
	exec := NewExecutor("definitely-not-a-real-binary-xyz", nil, false)
	err := exec.Run(context.Background(), nil, time.Minute)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRunCaptureReturnsStdout(t *testing.T) {
	exec := NewExecutor("sh", nil, false)
	out, err := exec.RunCapture(context.Background(), []string{"-c", "echo hello"}, time.Minute)
	if err != nil {
		t.Fatalf("RunCapture: %v", err)
	}
	if strings.TrimSpace(string(out)) != "hello" {
		t.Fatalf("stdout=%q", out)
	}
}

func TestRunWithMemorySampler(t *testing.T) {
	// Sampler failures must never affect the command outcome; the command
	// exits long before the first sample fires.
	exec := NewExecutor("sh", nil, true)
	if err := exec.Run(context.Background(), []string{"-c", "exit 0"}, time.Minute); err != nil {
		t.Fatalf("Run with sampler: %v", err)
	}
}

func TestExcerptTruncatesLongOutput(t *testing.T) {
	long := strings.Repeat("x", 4096) + " tail"
	got := excerpt([]byte(long))
	if !strings.HasPrefix(got, "...") {
		t.Fatalf("expected truncation marker, got %q", got[:8])
	}
	if !strings.HasSuffix(got, "tail") {
		t.Fatal("expected tail of output preserved")
	}
}
