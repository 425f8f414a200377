// Package storage persists accepted review texts as a flat text file.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PersistenceError is returned when the output artifact cannot be written.
type PersistenceError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("write reviews to %s: %v", e.Path, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// FileName returns the deterministic artifact name for a run. Thresholds in
// whole hours are written as "{h}h", anything else as "{s}s".
func FileName(productID, minPlaytimeSeconds int) string {
	return fmt.Sprintf("steam_reviews_%d_%s.txt", productID, thresholdLabel(minPlaytimeSeconds))
}

func thresholdLabel(seconds int) string {
	if seconds%3600 == 0 {
		return fmt.Sprintf("%dh", seconds/3600)
	}
	return fmt.Sprintf("%ds", seconds)
}

// WriteReviews writes texts joined by newlines into dir and returns the
// absolute path of the file. An existing file is replaced.
func WriteReviews(dir string, productID, minPlaytimeSeconds int, texts []string) (string, error) {
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, FileName(productID, minPlaytimeSeconds))

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &PersistenceError{Path: path, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", &PersistenceError{Path: abs, Err: err}
	}

	if err := os.WriteFile(abs, []byte(strings.Join(texts, "\n")), 0o644); err != nil {
		return "", &PersistenceError{Path: abs, Err: err}
	}

	return abs, nil
}
