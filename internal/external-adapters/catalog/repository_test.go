package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/zepup/internal/domain/entities"
	"github.com/ochairo/zepup/internal/domain/services"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

const linux130 = `name: zep
license: GPLv3
version: 1.3.0
platforms:
  linux:
    url: https://zep.run/releases/1.3.0/zep_x86_64-linux_1.3.0.tar.xz
    sha256: 0000000000000000000000000000000000000000000000000000000000000001
`

func TestEmbeddedRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewEmbeddedRepository(nil)

	descs, err := repo.ListDescriptors(ctx)
	require.NoError(t, err)
	require.Len(t, descs, 2)
	assert.Equal(t, "1.1.0", descs[0].Version)
	assert.Equal(t, "1.2.0", descs[1].Version)

	latest, err := repo.LatestDescriptor(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", latest.Version)

	linux, ok := latest.Target("linux")
	require.True(t, ok)
	assert.Equal(t, "4713b33b59e0fe627e6aebe5ab202043da83c32b76fd710262b1c265efd28616", linux.SHA256)
	assert.Equal(t, "https://zep.run/releases/1.2.0/zep_x86_64-linux_1.2.0.tar.xz", linux.URL)

	old, err := repo.GetDescriptor(ctx, "1.1.0")
	require.NoError(t, err)
	assert.Equal(t, []string{"linux", "macos"}, old.PlatformKeys())

	_, err = repo.GetDescriptor(ctx, "9.9.9")
	assert.True(t, errors.Is(err, entities.ErrDescriptorNotFound))

	_, err = repo.SaveDescriptor(ctx, latest)
	assert.Error(t, err)
}

func TestEmbeddedCatalogIsValid(t *testing.T) {
	descs, err := NewEmbeddedRepository(nil).Load(context.Background())
	require.NoError(t, err)

	result := services.NewReleaseService(nil).ValidateCatalog(descs)
	for _, r := range result.Releases {
		assert.True(t, r.IsReady(), "%s: %s", r.Version, r.ErrorMessage())
	}
	assert.Empty(t, result.Problems)
}

func TestDirectoryRepository_MixedFormats(t *testing.T) {
	dir := t.TempDir()
	data, err := embedded.ReadFile("releases/1.1.0.yml")
	require.NoError(t, err)
	writeFile(t, dir, "1.1.0.yml", string(data))
	writeFile(t, dir, "1.3.0.yaml", linux130)
	writeFile(t, dir, "1.2.0.toml", `
name = "zep"
license = "GPLv3"
version = "1.2.0"

[platforms.linux]
url = "https://zep.run/releases/1.2.0/zep_x86_64-linux_1.2.0.tar.xz"
sha256 = "4713b33b59e0fe627e6aebe5ab202043da83c32b76fd710262b1c265efd28616"
`)
	writeFile(t, dir, "README.md", "not a descriptor")

	repo := NewDirectoryRepository(dir, nil)
	descs, err := repo.ListDescriptors(context.Background())
	require.NoError(t, err)

	versions := make([]string, 0, len(descs))
	for _, d := range descs {
		versions = append(versions, d.Version)
	}
	assert.Equal(t, []string{"1.1.0", "1.2.0", "1.3.0"}, versions)
	assert.Equal(t, dir, repo.Location())
}

func TestDirectoryRepository_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate version", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "1.3.0.yml", linux130)
		writeFile(t, dir, "1.3.0.yaml", linux130)

		_, err := NewDirectoryRepository(dir, nil).ListDescriptors(ctx)
		assert.True(t, errors.Is(err, entities.ErrDuplicateVersion), "got %v", err)
	})

	t.Run("file name disagrees with version", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "1.4.0.yml", linux130)

		_, err := NewDirectoryRepository(dir, nil).ListDescriptors(ctx)
		assert.True(t, errors.Is(err, entities.ErrInvalidDescriptor), "got %v", err)
	})

	t.Run("unparseable file", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "1.3.0.yml", "name: [")

		_, err := NewDirectoryRepository(dir, nil).ListDescriptors(ctx)
		assert.True(t, errors.Is(err, entities.ErrInvalidDescriptor), "got %v", err)
	})

	t.Run("invalid fields", func(t *testing.T) {
		tests := []struct {
			name    string
			content string
		}{
			{
				name: "sha256 is a path",
				content: strings.Replace(linux130,
					"0000000000000000000000000000000000000000000000000000000000000001", "../../escaped", 1),
			},
			{
				name:    "install target leaves the prefix",
				content: linux130 + "install_target: ../../outside/zep\n",
			},
			{
				name:    "binary name with a separator",
				content: linux130 + "binary: ../zep\n",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				dir := t.TempDir()
				writeFile(t, dir, "1.3.0.yml", tt.content)

				repo := NewDirectoryRepository(dir, nil)
				_, err := repo.GetDescriptor(ctx, "1.3.0")
				assert.True(t, errors.Is(err, entities.ErrInvalidDescriptor), "got %v", err)
				_, err = repo.LatestDescriptor(ctx)
				assert.True(t, errors.Is(err, entities.ErrInvalidDescriptor), "got %v", err)
			})
		}
	})

	t.Run("empty catalog", func(t *testing.T) {
		_, err := NewDirectoryRepository(t.TempDir(), nil).LatestDescriptor(ctx)
		assert.True(t, errors.Is(err, entities.ErrDescriptorNotFound))
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := NewDirectoryRepository(filepath.Join(t.TempDir(), "nope"), nil).ListDescriptors(ctx)
		assert.Error(t, err)
	})
}

func TestDirectoryRepository_SaveDescriptor(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo := NewDirectoryRepository(dir, nil)

	d := &entities.ReleaseDescriptor{
		Name:    "zep",
		License: "GPLv3",
		Version: "1.3.0",
		Platforms: map[string]entities.PlatformTarget{
			"linux": {OS: "linux", URL: "https://zep.run/a.tar.xz", SHA256: "0000000000000000000000000000000000000000000000000000000000000001"},
		},
		Test: entities.SmokeTest{Args: []string{"version"}},
	}

	path, err := repo.SaveDescriptor(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "1.3.0.yml"), path)

	got, err := repo.GetDescriptor(ctx, "1.3.0")
	require.NoError(t, err)
	assert.Equal(t, "https://zep.run/a.tar.xz", got.Platforms["linux"].URL)

	_, err = repo.SaveDescriptor(ctx, d)
	assert.True(t, errors.Is(err, entities.ErrDuplicateVersion))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
