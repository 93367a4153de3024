// Package preflight verifies the environment before operations run:
// required binaries on PATH and directory permissions.
package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"clipforge/internal/config"
	"clipforge/internal/deps"
)

// Result captures a single preflight check outcome.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external binaries for the given config.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for every transformation",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for media inspection",
		},
	}
	return deps.CheckBinaries(ctx, requirements)
}

// Run executes all preflight checks and reports the combined outcome.
func Run(ctx context.Context, cfg *config.Config) ([]Result, bool) {
	results := make([]Result, 0, 4)

	ok := true
	for _, status := range CheckSystemDeps(ctx, cfg) {
		result := Result{Name: status.Name, Passed: status.Available, Detail: status.Detail}
		if status.Available {
			result.Detail = status.Version
		}
		results = append(results, result)
		ok = ok && status.Available
	}

	for _, dir := range []struct{ name, path string }{
		{"Output directory", cfg.Paths.OutputDir},
		{"Scratch directory", cfg.Paths.ScratchDir},
	} {
		result := CheckDirectoryAccess(dir.name, dir.path)
		results = append(results, result)
		ok = ok && result.Passed
	}

	return results, ok
}
