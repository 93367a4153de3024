package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"clipforge/internal/logging"
	"clipforge/internal/services"
)

// Runner is the subprocess surface engines depend on. Tests substitute
// fake runners; production code uses *Executor.
type Runner interface {
	// Run executes the binary with args under the given timeout.
	Run(ctx context.Context, args []string, timeout time.Duration) error
	// RunCapture is Run but returns the child's stdout. Used where stdout
	// is structured data (probe JSON, chapter metadata dumps).
	RunCapture(ctx context.Context, args []string, timeout time.Duration) ([]byte, error)
}

// Executor runs one external command per call with timeout supervision
// and optional best-effort memory sampling.
type Executor struct {
	binary       string
	logger       *slog.Logger
	sampleMemory bool
}

// NewExecutor constructs an Executor for the given binary.
func NewExecutor(binary string, logger *slog.Logger, sampleMemory bool) *Executor {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Executor{
		binary:       binary,
		logger:       logging.NewComponentLogger(logger, "executor"),
		sampleMemory: sampleMemory,
	}
}

// Binary returns the executable this executor launches.
func (e *Executor) Binary() string {
	return e.binary
}

// Run executes the command and waits for completion.
func (e *Executor) Run(ctx context.Context, args []string, timeout time.Duration) error {
	_, err := e.run(ctx, args, timeout, false)
	return err
}

// RunCapture executes the command and returns its stdout on success.
func (e *Executor) RunCapture(ctx context.Context, args []string, timeout time.Duration) ([]byte, error) {
	return e.run(ctx, args, timeout, true)
}

func (e *Executor) run(ctx context.Context, args []string, timeout time.Duration, wantStdout bool) ([]byte, error) {
	if timeout <= 0 {
		timeout = time.Hour
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, e.binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Debug("executing command",
		logging.String("binary", e.binary),
		logging.String("args", strings.Join(args, " ")),
		logging.Duration("timeout", timeout),
	)

	started := time.Now()
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			e.logger.Error("executable not found", logging.String("binary", e.binary))
			return nil, services.Wrap(services.ErrNotFound, "executor", e.binary, "executable not found", err)
		}
		return nil, services.Wrap(services.ErrExternalTool, "executor", e.binary, "start failed", err)
	}

	var sampler *memorySampler
	if e.sampleMemory {
		sampler = startMemorySampler(cmd.Process.Pid, e.logger)
	}

	err := cmd.Wait()
	if sampler != nil {
		sampler.stop()
	}
	elapsed := time.Since(started)

	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			e.logger.Warn("command timed out",
				logging.String("binary", e.binary),
				logging.Duration("timeout", timeout),
			)
			return nil, services.Wrap(services.ErrTimeout, "executor", e.binary, "killed after deadline", err)
		}
		detail := excerpt(stderr.Bytes())
		if detail == "" {
			detail = excerpt(stdout.Bytes())
		}
		e.logger.Error("command failed",
			logging.String("binary", e.binary),
			logging.Duration("elapsed", elapsed),
			logging.String("stderr", detail),
		)
		return nil, services.Wrap(services.ErrExternalTool, "executor", e.binary, detail, err)
	}

	e.logger.Debug("command completed",
		logging.String("binary", e.binary),
		logging.Duration("elapsed", elapsed),
	)
	if wantStdout {
		return stdout.Bytes(), nil
	}
	return nil, nil
}

// excerpt trims captured output to a loggable tail. ffmpeg writes its
// progress spam first; the failure reason is at the end.
func excerpt(output []byte) string {
	const limit = 1024
	text := strings.TrimSpace(string(output))
	if len(text) > limit {
		text = "..." + text[len(text)-limit:]
	}
	return text
}

var _ Runner = (*Executor)(nil)
