package services

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/ochairo/zepup/internal/domain/entities"
)

// Platform identifies an operating system and CPU architecture pair using
// release naming (macos/linux, x86_64/aarch64) rather than Go naming
type Platform struct {
	OS   string
	Arch string
}

// String returns the "os-arch" form, e.g. "linux-x86_64"
func (p Platform) String() string {
	return fmt.Sprintf("%s-%s", p.OS, p.Arch)
}

// HostPlatform returns the platform this process runs on
func HostPlatform() Platform {
	return PlatformFor(runtime.GOOS, runtime.GOARCH)
}

// PlatformFor maps Go's GOOS/GOARCH to release naming
func PlatformFor(goos, goarch string) Platform {
	osMap := map[string]string{
		"darwin": entities.OSMacOS,
		"linux":  entities.OSLinux,
	}
	archMap := map[string]string{
		"amd64": "x86_64",
		"arm64": "aarch64",
		"386":   "i386",
	}

	osName := osMap[goos]
	if osName == "" {
		osName = goos
	}
	arch := archMap[goarch]
	if arch == "" {
		arch = goarch
	}
	return Platform{OS: osName, Arch: arch}
}

// ParsePlatform parses "os" or "os-arch". A bare OS gets the default release arch.
func ParsePlatform(s string) (Platform, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return Platform{}, fmt.Errorf("empty platform")
	}
	osName, arch, found := strings.Cut(s, "-")
	if osName == "darwin" {
		osName = entities.OSMacOS
	}
	if !found || arch == "" {
		arch = entities.DefaultArch
	}
	if arch == "amd64" {
		arch = "x86_64"
	}
	if arch == "arm64" {
		arch = "aarch64"
	}
	return Platform{OS: osName, Arch: arch}, nil
}

// SelectTarget picks the descriptor's target for a platform. Both the OS key
// and the architecture must match.
func SelectTarget(d *entities.ReleaseDescriptor, p Platform) (entities.PlatformTarget, error) {
	target, ok := d.Target(p.OS)
	if !ok {
		return entities.PlatformTarget{}, fmt.Errorf("%w: %s has no %s target (available: %s)",
			entities.ErrUnsupportedPlatform, d.Title(), p.OS, strings.Join(d.PlatformKeys(), ", "))
	}
	if target.Arch != p.Arch {
		return entities.PlatformTarget{}, fmt.Errorf("%w: %s publishes %s for %s, host is %s",
			entities.ErrUnsupportedPlatform, d.Title(), target.Arch, p.OS, p.Arch)
	}
	return target, nil
}
