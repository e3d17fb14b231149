// Package catalog stores release descriptors as one file per version, either
// in a directory on disk or embedded in the binary.
package catalog

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ochairo/zepup/internal/domain/entities"
	"github.com/ochairo/zepup/internal/domain/interfaces"
	"github.com/ochairo/zepup/internal/domain/services"
	"github.com/ochairo/zepup/internal/external-adapters/toml"
	"github.com/ochairo/zepup/internal/external-adapters/yaml"
)

//go:embed releases/*.yml
var embedded embed.FS

// Repository implements repositories.DescriptorRepository over a file tree
type Repository struct {
	fsys   fs.FS
	dir    string // empty for the embedded catalog
	yaml   *yaml.DescriptorParser
	toml   *toml.DescriptorParser
	rules  *services.ReleaseService
	logger interfaces.Logger
}

// NewDirectoryRepository creates a catalog backed by a directory of *.yml,
// *.yaml, and *.toml files
func NewDirectoryRepository(dir string, logger interfaces.Logger) *Repository {
	return newRepository(os.DirFS(dir), dir, logger)
}

// NewEmbeddedRepository returns the catalog compiled into the binary
func NewEmbeddedRepository(logger interfaces.Logger) *Repository {
	sub, err := fs.Sub(embedded, "releases")
	if err != nil {
		panic(err)
	}
	return newRepository(sub, "", logger)
}

func newRepository(fsys fs.FS, dir string, logger interfaces.Logger) *Repository {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &Repository{
		fsys:   fsys,
		dir:    dir,
		yaml:   yaml.NewDescriptorParser(),
		toml:   toml.NewDescriptorParser(),
		rules:  services.NewReleaseService(nil),
		logger: logger.Named("catalog"),
	}
}

// Location describes where descriptors are read from
func (r *Repository) Location() string {
	if r.dir == "" {
		return "embedded"
	}
	return r.dir
}

// Load parses and validates every descriptor file without ordering or
// uniqueness checks. A file named <version>.<ext> must declare that version.
func (r *Repository) Load(ctx context.Context) ([]*entities.ReleaseDescriptor, error) {
	entries, err := fs.ReadDir(r.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", r.Location(), err)
	}

	descriptors := make([]*entities.ReleaseDescriptor, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !isDescriptorFile(entry.Name()) {
			continue
		}

		d, err := r.parse(entry.Name())
		if err != nil {
			return nil, err
		}

		stem := strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))
		if stem != d.Version {
			return nil, fmt.Errorf("%w: %s declares version %s", entities.ErrInvalidDescriptor, entry.Name(), d.Version)
		}
		if err := r.rules.ValidateRelease(d).Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}

		r.logger.Debug("loaded descriptor", interfaces.F("file", entry.Name()), interfaces.F("version", d.Version))
		descriptors = append(descriptors, d)
	}

	return descriptors, nil
}

// ListDescriptors returns all descriptors ordered by ascending version
func (r *Repository) ListDescriptors(ctx context.Context) ([]*entities.ReleaseDescriptor, error) {
	descriptors, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(descriptors))
	for _, d := range descriptors {
		if seen[d.Version] {
			return nil, fmt.Errorf("%w: %s", entities.ErrDuplicateVersion, d.Version)
		}
		seen[d.Version] = true
	}

	if err := services.SortDescriptors(descriptors); err != nil {
		return nil, err
	}
	return descriptors, nil
}

// GetDescriptor retrieves the descriptor for an exact version
func (r *Repository) GetDescriptor(ctx context.Context, version string) (*entities.ReleaseDescriptor, error) {
	descriptors, err := r.ListDescriptors(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range descriptors {
		if d.Version == version {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: version %s in %s catalog", entities.ErrDescriptorNotFound, version, r.Location())
}

// LatestDescriptor returns the descriptor with the highest version
func (r *Repository) LatestDescriptor(ctx context.Context) (*entities.ReleaseDescriptor, error) {
	descriptors, err := r.ListDescriptors(ctx)
	if err != nil {
		return nil, err
	}
	if len(descriptors) == 0 {
		return nil, fmt.Errorf("%w: %s catalog is empty", entities.ErrDescriptorNotFound, r.Location())
	}
	return descriptors[len(descriptors)-1], nil
}

// SaveDescriptor writes a new <version>.yml file. Existing versions are never
// overwritten.
func (r *Repository) SaveDescriptor(_ context.Context, d *entities.ReleaseDescriptor) (string, error) {
	if r.dir == "" {
		return "", errors.New("embedded catalog is read-only")
	}

	for _, ext := range []string{".yml", ".yaml", ".toml"} {
		if _, err := fs.Stat(r.fsys, d.Version+ext); err == nil {
			return "", fmt.Errorf("%w: %s already exists", entities.ErrDuplicateVersion, d.Version+ext)
		}
	}

	data, err := r.yaml.Marshal(d)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(r.dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create catalog directory: %w", err)
	}

	tmp, err := os.CreateTemp(r.dir, ".descriptor-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write descriptor: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write descriptor: %w", err)
	}

	target := filepath.Join(r.dir, d.Version+".yml")
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("failed to save descriptor: %w", err)
	}

	r.logger.Info("saved descriptor", interfaces.F("path", target), interfaces.F("version", d.Version))
	return target, nil
}

func (r *Repository) parse(name string) (*entities.ReleaseDescriptor, error) {
	data, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	var d *entities.ReleaseDescriptor
	if path.Ext(name) == ".toml" {
		d, err = r.toml.Parse(data)
	} else {
		d, err = r.yaml.Parse(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}

func isDescriptorFile(name string) bool {
	switch path.Ext(name) {
	case ".yml", ".yaml", ".toml":
		return !strings.HasPrefix(name, ".")
	default:
		return false
	}
}
