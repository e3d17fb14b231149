package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/zepup/internal/domain/entities"
)

func TestPlatformFor(t *testing.T) {
	tests := []struct {
		goos, goarch string
		want         string
	}{
		{"darwin", "amd64", "macos-x86_64"},
		{"linux", "amd64", "linux-x86_64"},
		{"linux", "arm64", "linux-aarch64"},
		{"freebsd", "riscv64", "freebsd-riscv64"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PlatformFor(tt.goos, tt.goarch).String())
	}
}

func TestParsePlatform(t *testing.T) {
	tests := []struct {
		in      string
		want    Platform
		wantErr bool
	}{
		{"linux", Platform{OS: "linux", Arch: "x86_64"}, false},
		{"darwin-arm64", Platform{OS: "macos", Arch: "aarch64"}, false},
		{" MacOS-x86_64 ", Platform{OS: "macos", Arch: "x86_64"}, false},
		{"", Platform{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePlatform(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectTarget(t *testing.T) {
	d := validDescriptor("1.2.0")
	delete(d.Platforms, "macos")

	target, err := SelectTarget(d, Platform{OS: "linux", Arch: "x86_64"})
	require.NoError(t, err)
	assert.Equal(t, linuxSum, target.SHA256)
	assert.Equal(t, "linux-x86_64", target.Platform())

	_, err = SelectTarget(d, Platform{OS: "macos", Arch: "x86_64"})
	assert.True(t, errors.Is(err, entities.ErrUnsupportedPlatform))

	_, err = SelectTarget(d, Platform{OS: "linux", Arch: "aarch64"})
	assert.True(t, errors.Is(err, entities.ErrUnsupportedPlatform))
}
