package config

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// PrepareOutputDir creates dir when it is absent. An existing directory
// must be empty; results from different runs are never mixed.
func PrepareOutputDir(dir string) error {
	f, err := os.Open(dir) //nolint:gosec // operator supplied path
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to open output directory: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat output directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is a file", ErrOutputNotEmpty, dir)
	}

	if _, err := f.Readdirnames(1); !errors.Is(err, io.EOF) {
		if err != nil {
			return fmt.Errorf("failed to read output directory: %w", err)
		}
		return fmt.Errorf("%w: %s", ErrOutputNotEmpty, dir)
	}
	return nil
}
