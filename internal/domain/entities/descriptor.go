package entities

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// Operating system identifiers used as platform target keys
const (
	OSMacOS = "macos"
	OSLinux = "linux"
)

// DefaultArch is the CPU architecture published for every zep release so far
const DefaultArch = "x86_64"

// DefaultSmokeArgs is the argument list passed to the installed binary when
// a descriptor does not declare its own smoke test
var DefaultSmokeArgs = []string{"version"}

// ReleaseDescriptor describes how to fetch, verify, and install one versioned
// binary artifact. A descriptor is never mutated; the next release replaces it.
type ReleaseDescriptor struct {
	Name          string
	Description   string
	Homepage      string
	License       string
	Version       string
	Binary        string // Name under which the fetched artifact is installed
	InstallTarget string // Path relative to the install prefix, e.g. "bin/zep"
	Platforms     map[string]PlatformTarget
	Test          SmokeTest
}

// PlatformTarget is the single download for one operating system
type PlatformTarget struct {
	OS           string
	Arch         string
	URL          string
	SHA256       string
	SignatureURL string // Optional detached OpenPGP signature
}

// SmokeTest is the post-install check: the binary is invoked with Args and
// must exit 0
type SmokeTest struct {
	Args []string
}

// Target returns the platform target for an operating system key
func (d *ReleaseDescriptor) Target(osName string) (PlatformTarget, bool) {
	target, ok := d.Platforms[osName]
	if !ok {
		return PlatformTarget{}, false
	}
	if target.OS == "" {
		target.OS = osName
	}
	if target.Arch == "" {
		target.Arch = DefaultArch
	}
	return target, true
}

// PlatformKeys returns the platform keys in stable order
func (d *ReleaseDescriptor) PlatformKeys() []string {
	keys := make([]string, 0, len(d.Platforms))
	for k := range d.Platforms {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BinaryName returns the installed binary name, falling back to the package name
func (d *ReleaseDescriptor) BinaryName() string {
	if d.Binary != "" {
		return d.Binary
	}
	return d.Name
}

// Destination returns the install target relative to the prefix
func (d *ReleaseDescriptor) Destination() string {
	if d.InstallTarget != "" {
		return d.InstallTarget
	}
	return path.Join("bin", d.BinaryName())
}

// SmokeArgs returns the smoke test arguments (defaults to "version")
func (d *ReleaseDescriptor) SmokeArgs() []string {
	if len(d.Test.Args) == 0 {
		return append([]string(nil), DefaultSmokeArgs...)
	}
	return append([]string(nil), d.Test.Args...)
}

// SmokeArgv returns the full smoke test invocation for a binary path
func (d *ReleaseDescriptor) SmokeArgv(binaryPath string) []string {
	return append([]string{binaryPath}, d.SmokeArgs()...)
}

// ArchiveFilename returns the base name of the target's download
func (t PlatformTarget) ArchiveFilename() string {
	u := t.URL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	name := path.Base(u)
	if name == "." || name == ".." || name == "/" || name == "" {
		return "download"
	}
	return name
}

// Platform returns the "os-arch" identifier of the target
func (t PlatformTarget) Platform() string {
	arch := t.Arch
	if arch == "" {
		arch = DefaultArch
	}
	return fmt.Sprintf("%s-%s", t.OS, arch)
}

// Title returns a short human-readable label such as "[zep @ 1.2.0]"
func (d *ReleaseDescriptor) Title() string {
	return fmt.Sprintf("[%s @ %s]", d.Name, d.Version)
}
