package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"clipforge/internal/chapters"
	"clipforge/internal/compress"
	"clipforge/internal/concat"
	"clipforge/internal/config"
	"clipforge/internal/ffmpeg"
	"clipforge/internal/logging"
	"clipforge/internal/media/probe"
	"clipforge/internal/timerange"
	"clipforge/internal/trackops"
)

// commandContext lazily builds the shared configuration, logger, and
// engines for every command.
type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.New(logging.Options{
			Level:       cfg.Logging.Level,
			Format:      cfg.Logging.Format,
			OutputPaths: []string{"stderr", filepath.Join(cfg.Paths.LogDir, "clipforge.log")},
		})
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) ffmpegRunner() (*ffmpeg.Executor, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return ffmpeg.NewExecutor(cfg.FFmpegBinary(), logger, cfg.Processing.SampleMemory), nil
}

func (c *commandContext) ffprobeRunner() (*ffmpeg.Executor, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return ffmpeg.NewExecutor(cfg.FFprobeBinary(), logger, false), nil
}

func (c *commandContext) prober() (*probe.Prober, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	probeRunner, err := c.ffprobeRunner()
	if err != nil {
		return nil, err
	}
	ffmpegRunner, err := c.ffmpegRunner()
	if err != nil {
		return nil, err
	}
	return probe.NewProber(probeRunner, ffmpegRunner, cfg.ProbeTimeout(), cfg.Paths.ScratchDir, logger), nil
}

func (c *commandContext) timerangeEngine() (*timerange.Engine, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	runner, err := c.ffmpegRunner()
	if err != nil {
		return nil, err
	}
	prober, err := c.prober()
	if err != nil {
		return nil, err
	}
	return timerange.NewEngine(runner, prober, cfg.CopyTimeout(), cfg.EncodeTimeout(), logger), nil
}

func (c *commandContext) concatEngine() (*concat.Engine, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	runner, err := c.ffmpegRunner()
	if err != nil {
		return nil, err
	}
	prober, err := c.prober()
	if err != nil {
		return nil, err
	}
	return concat.NewEngine(runner, prober, cfg.CopyTimeout(), cfg.EncodeTimeout(), cfg.Paths.ScratchDir, logger), nil
}

func (c *commandContext) compressMatrix() (*compress.Matrix, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	runner, err := c.ffmpegRunner()
	if err != nil {
		return nil, err
	}
	prober, err := c.prober()
	if err != nil {
		return nil, err
	}
	return compress.NewMatrix(runner, prober, cfg.EncodeTimeout(), cfg.Processing.Threads, logger), nil
}

func (c *commandContext) chapterEngine() (*chapters.Engine, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	runner, err := c.ffmpegRunner()
	if err != nil {
		return nil, err
	}
	return chapters.NewEngine(runner, cfg.CopyTimeout(), cfg.Paths.ScratchDir, logger), nil
}

func (c *commandContext) trackopsEngine() (*trackops.Engine, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	runner, err := c.ffmpegRunner()
	if err != nil {
		return nil, err
	}
	prober, err := c.prober()
	if err != nil {
		return nil, err
	}
	return trackops.NewEngine(runner, prober, cfg.CopyTimeout(), cfg.EncodeTimeout(), cfg.Paths.ScratchDir, logger), nil
}

// withOutputLock serializes mutating commands against the shared output
// directory.
func (c *commandContext) withOutputLock(fn func() error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire output lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("output directory is busy: another clipforge invocation holds %s", cfg.LockPath())
	}
	defer lock.Unlock()
	return fn()
}

// outputPath resolves the destination for an operation: the explicit
// --output flag when given, otherwise a derived name in the output
// directory.
func (c *commandContext) outputPath(explicit, input, suffix string) (string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(explicit) != "" {
		return config.ExpandPath(explicit)
	}
	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(filepath.Base(input), ext)
	return filepath.Join(cfg.Paths.OutputDir, stem+"_"+suffix+ext), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
