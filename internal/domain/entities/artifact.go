// Package entities defines core domain models and data structures.
package entities

// Artifact types
const (
	ArtifactArchive = "archive"
	ArtifactBinary  = "binary"
)

// Artifact represents a fetched or produced release file on local disk
type Artifact struct {
	Name     string
	Version  string
	Platform string
	Path     string
	SHA256   string
	Type     string
	Cached   bool // Served from the download cache
	Size     int64
}

// PackRequest describes a binary to be packed into a release archive
type PackRequest struct {
	BinaryPath string
	Binary     string // Entry name inside the archive
	OS         string
	Arch       string
	Version    string
	OutputDir  string
}

// ArchiveName returns the release archive file name, e.g.
// "zep_x86_64-linux_1.2.0.tar.xz"
func (r PackRequest) ArchiveName() string {
	return r.Binary + "_" + r.Arch + "-" + r.OS + "_" + r.Version + ".tar.xz"
}
