// Package version holds build information.
package version

// Build information set by ldflags
var (
	Version = "dev"     // -X github.com/ochairo/zepup/internal/version.Version={{.Version}}
	Commit  = "unknown" // -X github.com/ochairo/zepup/internal/version.Commit={{.Commit}}
	Date    = "unknown" // -X github.com/ochairo/zepup/internal/version.Date={{.Date}}
)

// UserAgent is sent with every HTTP request
func UserAgent() string {
	return "zepup/" + Version
}
