package gateways

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// BinaryPlacer installs staged binaries with an atomic rename
type BinaryPlacer struct{}

// NewBinaryPlacer creates a new binary placer
func NewBinaryPlacer() *BinaryPlacer {
	return &BinaryPlacer{}
}

// Place copies stagedPath next to destination and renames it over the old
// file, so a reader sees either the previous binary or the new one.
func (p *BinaryPlacer) Place(stagedPath, destination string) error {
	dir := filepath.Dir(destination)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: bin directories are world-readable
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	//nolint:gosec // G304: stagedPath is our own staging file
	in, err := os.Open(stagedPath)
	if err != nil {
		return fmt.Errorf("failed to open staged binary: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer in.Close()

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(destination)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to copy binary: %w", err)
	}
	if err := tmp.Chmod(0o755); err != nil { //nolint:gosec // G302: executable
		_ = tmp.Close()
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync binary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close binary: %w", err)
	}

	if err := os.Rename(tmp.Name(), destination); err != nil {
		return fmt.Errorf("failed to place binary at %s: %w", destination, err)
	}
	return nil
}

// Remove deletes an installed binary. A missing file is not an error.
func (p *BinaryPlacer) Remove(destination string) error {
	if err := os.Remove(destination); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", destination, err)
	}
	return nil
}
