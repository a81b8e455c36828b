package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FileValidator checks the output locations of the render and export
// commands before any work is done.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateOutputDirectory ensures dir exists, creating it if needed, and
// that files can be created in it.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".cordpulse-probe-*")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}

// ValidateOutputFile checks that path can be written: its directory is
// usable and path itself is not a directory. An existing file is replaced.
func (v *FileValidator) ValidateOutputFile(path string) error {
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		v.logger.Error("Output path is a directory",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("failed to stat output file %s: %w", path, err)
	}
	return v.ValidateOutputDirectory(filepath.Dir(path))
}
