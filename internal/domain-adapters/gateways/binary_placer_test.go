package gateways

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryPlacer_PlaceAndReplace(t *testing.T) {
	staging := t.TempDir()
	prefix := t.TempDir()
	dest := filepath.Join(prefix, "bin", "zep")
	placer := NewBinaryPlacer()

	v1 := filepath.Join(staging, "v1")
	require.NoError(t, os.WriteFile(v1, []byte("one"), 0o600))
	require.NoError(t, placer.Place(v1, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	v2 := filepath.Join(staging, "v2")
	require.NoError(t, os.WriteFile(v2, []byte("two"), 0o600))
	require.NoError(t, placer.Place(v2, dest))

	data, err = os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
	assert.FileExists(t, v2, "staged file is copied, not moved")
}

func TestBinaryPlacer_MissingStagedFile(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "bin", "zep")
	err := NewBinaryPlacer().Place(filepath.Join(t.TempDir(), "nope"), dest)
	assert.Error(t, err)
	assert.NoFileExists(t, dest)
}

func TestBinaryPlacer_Remove(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "zep")
	require.NoError(t, os.WriteFile(dest, []byte("x"), 0o600))

	placer := NewBinaryPlacer()
	require.NoError(t, placer.Remove(dest))
	assert.NoFileExists(t, dest)
	assert.NoError(t, placer.Remove(dest))
}
