package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks precondition failures detected before any
	// subprocess is spawned (missing input, invalid range, bad selector).
	ErrValidation = errors.New("validation error")

	// ErrExternalTool marks a non-zero exit from ffmpeg or ffprobe.
	ErrExternalTool = errors.New("external tool error")

	// ErrTimeout marks a child process killed after exceeding its deadline.
	ErrTimeout = errors.New("timeout")

	// ErrNotFound marks a missing executable or a missing requested entity
	// (e.g. chapter index out of range, no matching subtitle track).
	ErrNotFound = errors.New("not found")

	// ErrTransient marks failures with no more specific classification.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error that includes engine context while tagging it with
// the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, engine, operation, message string, err error) error {
	detail := buildDetail(engine, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ExitCode maps a classified error to a CLI exit code. Precondition
// failures exit 2 so scripts can tell bad invocations from tool failures.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
		return 2
	default:
		return 1
	}
}

func buildDetail(engine, operation, message string) string {
	parts := make([]string, 0, 3)
	if engine = strings.TrimSpace(engine); engine != "" {
		parts = append(parts, engine)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
