package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SummaryPath is where the markdown summary of a given day is written.
// A second run on the same day overwrites it.
func SummaryPath(dir string, day time.Time) string {
	return filepath.Join(dir, "message_"+day.Format("2006_01_02")+".md")
}

// WriteSummary saves the rendered summary and returns its path.
func WriteSummary(dir string, day time.Time, summary string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("summary: create output dir: %w", err)
	}

	path := SummaryPath(dir, day)
	if err := os.WriteFile(path, []byte(summary), 0644); err != nil {
		return "", fmt.Errorf("summary: write %q: %w", path, err)
	}
	return path, nil
}
