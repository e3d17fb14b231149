package gateways

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mholt/archiver/v3"

	"github.com/ochairo/zepup/internal/domain/entities"
)

// Packager packs a compiled binary into a release archive
type Packager struct {
	checksums *checksumVerifier
}

// NewPackager creates a new packager
func NewPackager() *Packager {
	return &Packager{checksums: NewChecksumVerifier()}
}

// Pack writes <outputDir>/<binary>_<arch>-<os>_<version>.tar.xz holding the
// binary as a single executable entry, plus a .sha256 sidecar
func (p *Packager) Pack(ctx context.Context, req entities.PackRequest) (*entities.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.OutputDir == "" {
		req.OutputDir = "dist"
	}

	info, err := os.Stat(req.BinaryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat binary: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", req.BinaryPath)
	}

	// The archive entry takes the source's base name, so stage a copy under
	// the release binary name
	staging, err := os.MkdirTemp("", "zepup-pack-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(staging) }()

	staged := filepath.Join(staging, req.Binary)
	if err := copyExecutable(req.BinaryPath, staged); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(req.OutputDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	archivePath := filepath.Join(req.OutputDir, req.ArchiveName())

	tarXz := archiver.NewTarXz()
	tarXz.OverwriteExisting = true
	if err := tarXz.Archive([]string{staged}, archivePath); err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}

	_, sum, err := p.checksums.WriteSidecar(archivePath)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}

	return &entities.Artifact{
		Name:     req.Binary,
		Version:  req.Version,
		Platform: req.OS + "-" + req.Arch,
		Path:     archivePath,
		SHA256:   sum,
		Type:     entities.ArtifactArchive,
		Size:     stat.Size(),
	}, nil
}
