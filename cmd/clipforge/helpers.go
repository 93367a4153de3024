package main

import (
	"fmt"
	"os"

	"clipforge/internal/config"
)

// resolveInput expands and verifies a user-supplied input path.
func resolveInput(path string) (string, error) {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(expanded); err != nil {
		return "", fmt.Errorf("input %s: %w", path, err)
	}
	return expanded, nil
}

func humanSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func humanSizeOf(path string) string {
	st, err := os.Stat(path)
	if err != nil {
		return "-"
	}
	return humanSize(st.Size())
}

func humanDuration(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
}
