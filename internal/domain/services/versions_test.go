package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/zepup/internal/domain/entities"
)

func TestSortDescriptors(t *testing.T) {
	descs := []*entities.ReleaseDescriptor{
		{Name: "zep", Version: "1.10.0"},
		{Name: "zep", Version: "1.2.0"},
		{Name: "zep", Version: "1.1.0"},
	}

	require.NoError(t, SortDescriptors(descs))

	got := []string{descs[0].Version, descs[1].Version, descs[2].Version}
	assert.Equal(t, []string{"1.1.0", "1.2.0", "1.10.0"}, got)
}

func TestSortDescriptorsInvalidVersion(t *testing.T) {
	err := SortDescriptors([]*entities.ReleaseDescriptor{{Name: "zep", Version: "latest"}})
	assert.True(t, errors.Is(err, entities.ErrInvalidDescriptor))
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		version string
		valid   bool
	}{
		{"1.2.0", true},
		{"10.0.3", true},
		{"v1.2.0", false},
		{"1.2", false},
		{"1.2.0-rc.1", false},
		{"1.2.0+rebuild", false},
		{"1.2.0-rc.1+build.5", false},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			_, err := ParseVersion(tt.version)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, "invalid version")
		})
	}
}

func TestCheckSuccessor(t *testing.T) {
	tests := []struct {
		name    string
		latest  string
		next    string
		wantErr error
	}{
		{"first release", "", "1.1.0", nil},
		{"minor bump", "1.1.0", "1.2.0", nil},
		{"patch bump", "1.2.0", "1.2.1", nil},
		{"same version", "1.2.0", "1.2.0", entities.ErrVersionNotIncreasing},
		{"downgrade", "1.2.0", "1.1.9", entities.ErrVersionNotIncreasing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckSuccessor(tt.latest, tt.next)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}

	assert.Error(t, CheckSuccessor("1.1.0", "next"))
}

func TestLatest(t *testing.T) {
	latest, err := Latest(nil)
	require.NoError(t, err)
	assert.Nil(t, latest)

	latest, err = Latest([]*entities.ReleaseDescriptor{
		{Version: "1.2.0"},
		{Version: "1.1.0"},
	})
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", latest.Version)
}
