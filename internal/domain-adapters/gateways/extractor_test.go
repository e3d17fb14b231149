package gateways

import (
	"archive/tar"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/zepup/internal/domain/entities"
)

func TestExtractor_ExtractBinary(t *testing.T) {
	src := t.TempDir()

	tests := []struct {
		name    string
		archive string
	}{
		{
			name: "tar.xz with top level directory",
			archive: writeTarXz(t, src, "zep_x86_64-linux_1.2.0.tar.xz", []tarEntry{
				{name: "zep_x86_64-linux_1.2.0/", typeflag: tar.TypeDir},
				{name: "zep_x86_64-linux_1.2.0/LICENSE", body: "GPLv3", mode: 0o644},
				{name: "zep_x86_64-linux_1.2.0/zep", body: shellBinary},
			}),
		},
		{
			name:    "flat tar.gz",
			archive: writeTarGz(t, src, "zep.tar.gz", []tarEntry{{name: "zep", body: shellBinary}}),
		},
		{
			name:    "tar.zst",
			archive: writeTarZst(t, src, "zep.tar.zst", []tarEntry{{name: "zep-1.2.0/zep", body: shellBinary}}),
		},
		{
			name:    "zip",
			archive: writeZip(t, src, "zep.zip", map[string]string{"bin/zep": shellBinary}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest := t.TempDir()
			path, err := NewExtractor(nil).ExtractBinary(context.Background(), tt.archive, "zep", dest)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dest, "zep"), path)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, shellBinary, string(data))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

			entries, err := os.ReadDir(dest)
			require.NoError(t, err)
			assert.Len(t, entries, 1, "only the binary is extracted")
		})
	}
}

func TestExtractor_RawBinary(t *testing.T) {
	src := filepath.Join(t.TempDir(), "zep-linux")
	require.NoError(t, os.WriteFile(src, []byte(shellBinary), 0o600))

	path, err := NewExtractor(nil).ExtractBinary(context.Background(), src, "zep", t.TempDir())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, shellBinary, string(data))
}

func TestExtractor_Errors(t *testing.T) {
	src := t.TempDir()

	t.Run("binary missing", func(t *testing.T) {
		archive := writeTarXz(t, src, "nobin.tar.xz", []tarEntry{{name: "README", body: "hi"}})
		_, err := NewExtractor(nil).ExtractBinary(context.Background(), archive, "zep", t.TempDir())
		assert.True(t, errors.Is(err, entities.ErrBinaryNotFound), "got %v", err)
	})

	t.Run("path traversal", func(t *testing.T) {
		archive := writeTarXz(t, src, "evil.tar.xz", []tarEntry{
			{name: "../../etc/zep", body: "evil"},
			{name: "zep", body: shellBinary},
		})
		dest := t.TempDir()
		_, err := NewExtractor(nil).ExtractBinary(context.Background(), archive, "zep", dest)
		assert.ErrorContains(t, err, "invalid file path")
		assert.NoFileExists(t, filepath.Join(dest, "zep"))
	})

	t.Run("absolute path", func(t *testing.T) {
		archive := writeTarGz(t, src, "abs.tar.gz", []tarEntry{{name: "/usr/bin/zep", body: "evil"}})
		_, err := NewExtractor(nil).ExtractBinary(context.Background(), archive, "zep", t.TempDir())
		assert.ErrorContains(t, err, "invalid file path")
	})

	t.Run("corrupt archive", func(t *testing.T) {
		archive := filepath.Join(src, "corrupt.tar.xz")
		require.NoError(t, os.WriteFile(archive, []byte("not xz"), 0o600))
		_, err := NewExtractor(nil).ExtractBinary(context.Background(), archive, "zep", t.TempDir())
		assert.Error(t, err)
	})
}

func TestCheckEntryPath(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"zep", true},
		{"dir/zep", true},
		{"./zep", true},
		{"a/../zep", true},
		{"../zep", false},
		{"a/../../zep", false},
		{"/zep", false},
		{`..\zep`, false},
	}
	for _, tt := range tests {
		err := checkEntryPath(tt.name)
		assert.Equal(t, tt.valid, err == nil, tt.name)
	}
}
