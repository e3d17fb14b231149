package services

import (
	"strings"

	"github.com/ochairo/zepup/internal/domain/entities"
)

// DefaultURLTemplate is where zep release archives are published
const DefaultURLTemplate = "https://zep.run/releases/{version}/zep_{arch}-{os}_{version}.tar.xz"

// ExpandURLTemplate substitutes {version}, {os} and {arch} in a download URL
// template. Unknown placeholders are left as they are.
func ExpandURLTemplate(template, version string, platform Platform) string {
	arch := platform.Arch
	if arch == "" {
		arch = entities.DefaultArch
	}
	return strings.NewReplacer(
		"{version}", version,
		"{os}", platform.OS,
		"{arch}", arch,
	).Replace(template)
}
