// Package staging manages per-operation scratch directories. Every public
// operation owns one workspace for its intermediate artifacts (concat
// lists, pass logs, extracted attachments) and removes it on every exit
// path.
package staging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"clipforge/internal/logging"
)

// Workspace is a private scratch directory for one operation.
type Workspace struct {
	Root   string
	logger *slog.Logger
}

// NewWorkspace creates a uniquely named scratch directory under baseDir.
func NewWorkspace(baseDir, operation string, logger *slog.Logger) (*Workspace, error) {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		return nil, fmt.Errorf("staging: base directory required")
	}
	operation = strings.TrimSpace(operation)
	if operation == "" {
		operation = "op"
	}
	name := operation + "-" + uuid.NewString()
	root := filepath.Join(baseDir, name)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("staging: create workspace: %w", err)
	}
	return &Workspace{Root: root, logger: logging.NewComponentLogger(logger, "staging")}, nil
}

// Path joins elem onto the workspace root.
func (w *Workspace) Path(elem ...string) string {
	return filepath.Join(append([]string{w.Root}, elem...)...)
}

// Cleanup removes the workspace and everything in it. Safe to defer and to
// call more than once; removal failures are logged, never returned.
func (w *Workspace) Cleanup() {
	if w == nil || w.Root == "" {
		return
	}
	if err := os.RemoveAll(w.Root); err != nil {
		if w.logger != nil {
			w.logger.Warn("failed to remove scratch workspace",
				logging.String("path", w.Root),
				logging.Error(err),
			)
		}
		return
	}
	w.Root = ""
}

// CleanStale removes workspaces under baseDir older than maxAge. Leftovers
// only appear after a crash; routine cleanup happens per operation.
func CleanStale(baseDir string, maxAge time.Duration, logger *slog.Logger) []string {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		return nil
	}
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil
	}
	log := logging.NewComponentLogger(logger, "staging")
	cutoff := time.Now().Add(-maxAge)

	var removed []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(baseDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			log.Warn("failed to remove stale workspace", logging.String("path", path), logging.Error(err))
			continue
		}
		removed = append(removed, path)
		log.Info("removed stale workspace",
			logging.String("path", path),
			logging.Duration("age", time.Since(info.ModTime())),
		)
	}
	return removed
}
