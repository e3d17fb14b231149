package gateways

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ochairo/zepup/internal/domain/entities"
	"github.com/ochairo/zepup/internal/domain/services"
)

// ArtifactFinder locates release archives produced by Pack
type ArtifactFinder struct{}

// NewArtifactFinder creates a new artifact finder
func NewArtifactFinder() *ArtifactFinder {
	return &ArtifactFinder{}
}

// FindArchives walks dir recursively for <binary>_<arch>-<os>_<version>.*
// archives and returns them keyed by OS. Two archives for the same OS are an
// error since a descriptor holds one target per OS.
func (f *ArtifactFinder) FindArchives(dir, binary, version string) (map[string]*entities.Artifact, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("artifacts directory does not exist: %s", dir)
	}

	found := make(map[string]*entities.Artifact)
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		platform, ok := services.ParseArchiveName(binary, version, entry.Name())
		if !ok {
			return nil
		}
		if prev, dup := found[platform.OS]; dup {
			return fmt.Errorf("multiple %s archives: %s and %s", platform.OS, prev.Path, path)
		}
		found[platform.OS] = &entities.Artifact{
			Name:     binary,
			Version:  version,
			Platform: platform.String(),
			Path:     path,
			Type:     entities.ArtifactArchive,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return found, nil
}
