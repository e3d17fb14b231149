package gateways

import (
	"archive/tar"
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/mholt/archiver/v3"

	"github.com/ochairo/zepup/internal/domain/entities"
	"github.com/ochairo/zepup/internal/domain/interfaces"
)

// maxBinarySize caps extracted entries to guard against decompression bombs
const maxBinarySize = 1 << 30

// Extractor pulls a single named binary out of a release archive
type Extractor struct {
	logger interfaces.Logger
}

// NewExtractor creates a new extractor
func NewExtractor(logger interfaces.Logger) *Extractor {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &Extractor{logger: logger.Named("extractor")}
}

// ExtractBinary writes the archive entry whose base name is binary into
// destDir and returns its path. Archives are recognised by extension
// (.tar.xz, .tar.gz, .tgz, .tar.zst, .zip, ...); anything else is treated as
// the raw binary itself.
func (e *Extractor) ExtractBinary(ctx context.Context, archivePath, binary, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	dest := filepath.Join(destDir, binary)

	format, err := archiver.ByExtension(archivePath)
	if err != nil {
		e.logger.Debug("not an archive, using download as binary", interfaces.F("path", archivePath))
		return dest, copyExecutable(archivePath, dest)
	}

	walker, ok := format.(archiver.Walker)
	if !ok {
		return "", fmt.Errorf("unsupported archive format: %s", filepath.Base(archivePath))
	}

	found := false
	err = walker.Walk(archivePath, func(f archiver.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := entryName(f)
		if err := checkEntryPath(name); err != nil {
			return err
		}
		if f.IsDir() || path.Base(name) != binary {
			return nil
		}
		if !f.Mode().IsRegular() {
			return fmt.Errorf("archive entry %s is not a regular file", name)
		}

		if err := writeExecutable(dest, f); err != nil {
			return err
		}
		e.logger.Debug("extracted binary", interfaces.F("entry", name), interfaces.F("dest", dest))
		found = true
		return archiver.ErrStopWalk
	})
	if err != nil && !errors.Is(err, archiver.ErrStopWalk) {
		_ = os.Remove(dest)
		return "", fmt.Errorf("failed to extract %s: %w", filepath.Base(archivePath), err)
	}
	if !found {
		return "", fmt.Errorf("%w: %s in %s", entities.ErrBinaryNotFound, binary, filepath.Base(archivePath))
	}
	return dest, nil
}

// entryName returns the full in-archive path; FileInfo.Name() is only the base
func entryName(f archiver.File) string {
	switch h := f.Header.(type) {
	case *tar.Header:
		return h.Name
	case tar.Header:
		return h.Name
	case zip.FileHeader:
		return h.Name
	case *zip.FileHeader:
		return h.Name
	default:
		return f.Name()
	}
}

// checkEntryPath rejects absolute paths and entries that climb out of the
// extraction root
func checkEntryPath(name string) error {
	clean := path.Clean(strings.ReplaceAll(name, `\`, "/"))
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("invalid file path in archive: %s", name)
	}
	return nil
}

func writeExecutable(dest string, r io.Reader) error {
	//nolint:gosec // G302: installed binaries must be executable
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	n, err := io.Copy(out, io.LimitReader(r, maxBinarySize+1))
	if err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if n > maxBinarySize {
		_ = out.Close()
		return fmt.Errorf("binary exceeds %d bytes", maxBinarySize)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	// OpenFile honours umask; the staged binary must be runnable for the smoke test
	return os.Chmod(dest, 0o755) //nolint:gosec // G302: executable
}

func copyExecutable(src, dest string) error {
	//nolint:gosec // G304: src is the downloaded artifact
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer in.Close()
	return writeExecutable(dest, in)
}
