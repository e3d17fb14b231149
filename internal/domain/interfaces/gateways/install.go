package gateways

import (
	"context"
	"time"

	"github.com/ochairo/zepup/internal/domain/entities"
)

// Fetcher downloads release archives, reusing cached copies when possible
type Fetcher interface {
	// Fetch returns a local copy of the target's archive. The copy is not
	// verified against the declared checksum by Fetch itself.
	Fetch(ctx context.Context, d *entities.ReleaseDescriptor, target entities.PlatformTarget) (*entities.Artifact, error)

	// Discard removes a fetched artifact, e.g. after a checksum mismatch
	Discard(artifact *entities.Artifact) error
}

// Extractor pulls the release binary out of a downloaded archive
type Extractor interface {
	// ExtractBinary writes the entry named binary into destDir and returns its path
	ExtractBinary(ctx context.Context, archivePath, binary, destDir string) (string, error)
}

// SmokeTester runs an installed or staged binary to confirm it works
type SmokeTester interface {
	Run(ctx context.Context, argv []string, timeout time.Duration) *entities.SmokeResult
}

// BinaryPlacer moves binaries into and out of the install prefix
type BinaryPlacer interface {
	Place(stagedPath, destination string) error
	Remove(destination string) error
}

// Packager builds release archives from a compiled binary
type Packager interface {
	Pack(ctx context.Context, req entities.PackRequest) (*entities.Artifact, error)
}
