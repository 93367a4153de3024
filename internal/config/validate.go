package config

import (
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return fmt.Errorf("paths.output_dir is required")
	}
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		return fmt.Errorf("paths.scratch_dir is required")
	}
	if c.Paths.OutputDir == c.Paths.ScratchDir {
		return fmt.Errorf("paths.scratch_dir must differ from paths.output_dir")
	}
	if c.Processing.Threads < 1 || c.Processing.Threads > maxThreads {
		return fmt.Errorf("processing.threads must be between 1 and %d, got %d", maxThreads, c.Processing.Threads)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
