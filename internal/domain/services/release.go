// Package services implements domain business logic and use cases.
package services

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ochairo/zepup/internal/domain/entities"
)

// ReleaseStatus represents the validation status of a release descriptor
type ReleaseStatus string

// Release validation statuses
const (
	StatusReady               ReleaseStatus = "ready"
	StatusInvalid             ReleaseStatus = "invalid"
	StatusNoPlatforms         ReleaseStatus = "no_platforms"
	StatusMissingPlatforms    ReleaseStatus = "missing_platforms"
	StatusUnexpectedPlatforms ReleaseStatus = "unexpected_platforms"
)

// KnownOS lists the operating system keys a descriptor may declare
var KnownOS = []string{entities.OSMacOS, entities.OSLinux}

var sha256Pattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

var binaryNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// IsBinaryName reports whether name is a plain file name made of letters,
// digits, dots, dashes, and underscores
func IsBinaryName(name string) bool {
	return name != "." && name != ".." && binaryNamePattern.MatchString(name)
}

// IsSHA256 reports whether sum is a lowercase hex SHA-256 digest
func IsSHA256(sum string) bool {
	return sha256Pattern.MatchString(sum)
}

// ReleaseValidation contains the validation result for one descriptor
type ReleaseValidation struct {
	Status              ReleaseStatus
	Version             string
	Problems            []string
	ExpectedPlatforms   []string
	AvailablePlatforms  []string
	MissingPlatforms    []string
	UnexpectedPlatforms []string
}

// IsReady returns true if the descriptor can be published
func (rv *ReleaseValidation) IsReady() bool {
	return rv.Status == StatusReady
}

// Err returns nil when ready, otherwise an ErrInvalidDescriptor carrying every problem
func (rv *ReleaseValidation) Err() error {
	if rv.IsReady() {
		return nil
	}
	return fmt.Errorf("%w %s: %s", entities.ErrInvalidDescriptor, rv.Version, rv.ErrorMessage())
}

// ErrorMessage returns a human-readable error message if not ready
func (rv *ReleaseValidation) ErrorMessage() string {
	switch rv.Status {
	case StatusReady:
		return ""
	case StatusNoPlatforms:
		return "no platform targets declared"
	case StatusMissingPlatforms:
		return fmt.Sprintf("missing platforms: %s", strings.Join(rv.MissingPlatforms, ", "))
	case StatusUnexpectedPlatforms:
		return fmt.Sprintf("unexpected platforms: %s", strings.Join(rv.UnexpectedPlatforms, ", "))
	case StatusInvalid:
		return strings.Join(rv.Problems, "; ")
	default:
		return "unknown status"
	}
}

// CatalogValidation aggregates per-descriptor results plus catalog-wide checks
type CatalogValidation struct {
	Releases []*ReleaseValidation
	Problems []string
}

// IsReady returns true when every descriptor and the catalog itself are valid
func (cv *CatalogValidation) IsReady() bool {
	if len(cv.Problems) > 0 {
		return false
	}
	for _, r := range cv.Releases {
		if !r.IsReady() {
			return false
		}
	}
	return true
}

// ReleaseService holds descriptor validation rules
type ReleaseService struct {
	expectedPlatforms []string
}

// NewReleaseService creates a release service. When expectedPlatforms is
// non-empty, every descriptor must declare exactly those OS keys.
func NewReleaseService(expectedPlatforms []string) *ReleaseService {
	expected := append([]string(nil), expectedPlatforms...)
	sort.Strings(expected)
	return &ReleaseService{expectedPlatforms: expected}
}

// ValidateRelease checks one descriptor. Field problems take precedence over
// platform coverage problems.
func (s *ReleaseService) ValidateRelease(d *entities.ReleaseDescriptor) *ReleaseValidation {
	validation := &ReleaseValidation{
		Version:            d.Version,
		ExpectedPlatforms:  s.expectedPlatforms,
		AvailablePlatforms: d.PlatformKeys(),
	}

	validation.Problems = append(validation.Problems, s.checkFields(d)...)
	validation.Problems = append(validation.Problems, s.checkTargets(d)...)

	if len(s.expectedPlatforms) > 0 {
		validation.MissingPlatforms = difference(s.expectedPlatforms, validation.AvailablePlatforms)
		validation.UnexpectedPlatforms = difference(validation.AvailablePlatforms, s.expectedPlatforms)
	}

	switch {
	case len(validation.Problems) > 0:
		validation.Status = StatusInvalid
	case len(validation.AvailablePlatforms) == 0:
		validation.Status = StatusNoPlatforms
	case len(validation.MissingPlatforms) > 0:
		validation.Status = StatusMissingPlatforms
	case len(validation.UnexpectedPlatforms) > 0:
		validation.Status = StatusUnexpectedPlatforms
	default:
		validation.Status = StatusReady
	}

	return validation
}

// ValidateCatalog checks every descriptor and the catalog invariants: one
// descriptor per version and a single package name
func (s *ReleaseService) ValidateCatalog(descriptors []*entities.ReleaseDescriptor) *CatalogValidation {
	result := &CatalogValidation{}
	seen := make(map[string]bool)
	names := make(map[string]bool)

	for _, d := range descriptors {
		result.Releases = append(result.Releases, s.ValidateRelease(d))
		if seen[d.Version] {
			result.Problems = append(result.Problems, fmt.Sprintf("%v: %s", entities.ErrDuplicateVersion, d.Version))
		}
		seen[d.Version] = true
		names[d.Name] = true
	}

	if len(names) > 1 {
		list := make([]string, 0, len(names))
		for n := range names {
			list = append(list, n)
		}
		sort.Strings(list)
		result.Problems = append(result.Problems, fmt.Sprintf("catalog mixes packages: %s", strings.Join(list, ", ")))
	}

	return result
}

func (s *ReleaseService) checkFields(d *entities.ReleaseDescriptor) []string {
	var problems []string

	if d.Name == "" {
		problems = append(problems, "name is required")
	}
	if d.Version == "" {
		problems = append(problems, "version is required")
	} else if _, err := ParseVersion(d.Version); err != nil {
		problems = append(problems, err.Error())
	}
	if d.License == "" {
		problems = append(problems, "license is required")
	}

	binary := d.BinaryName()
	if !IsBinaryName(binary) {
		problems = append(problems, fmt.Sprintf("invalid binary name %q", binary))
	}

	dest := d.Destination()
	if path.IsAbs(dest) || filepath.IsAbs(dest) || path.Clean(dest) != dest || strings.HasPrefix(dest, "..") {
		problems = append(problems, fmt.Sprintf("install target %q must be a clean relative path", dest))
	}

	for _, arg := range d.Test.Args {
		if strings.TrimSpace(arg) == "" {
			problems = append(problems, "smoke test arguments must not be blank")
			break
		}
	}

	return problems
}

func (s *ReleaseService) checkTargets(d *entities.ReleaseDescriptor) []string {
	var problems []string
	urls := make(map[string]string)

	for _, key := range d.PlatformKeys() {
		target, _ := d.Target(key)

		if !contains(KnownOS, key) {
			problems = append(problems, fmt.Sprintf("%s: unknown operating system", key))
		}
		if target.OS != key {
			problems = append(problems, fmt.Sprintf("%s: target os %q does not match its key", key, target.OS))
		}

		u, err := url.Parse(target.URL)
		if target.URL == "" || err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			problems = append(problems, fmt.Sprintf("%s: url %q must be an absolute http(s) URL", key, target.URL))
		} else if other, dup := urls[target.URL]; dup {
			problems = append(problems, fmt.Sprintf("%s: url is shared with %s", key, other))
		} else {
			urls[target.URL] = key
		}

		if !sha256Pattern.MatchString(target.SHA256) {
			problems = append(problems, fmt.Sprintf("%s: sha256 must be 64 lowercase hex characters", key))
		}

		if target.SignatureURL != "" {
			if su, err := url.Parse(target.SignatureURL); err != nil || su.Host == "" {
				problems = append(problems, fmt.Sprintf("%s: invalid signature_url %q", key, target.SignatureURL))
			}
		}
	}

	return problems
}

// ParseArchiveName extracts the platform from a release archive file name of
// the form <binary>_<arch>-<os>_<version>.<ext>
func ParseArchiveName(binary, version, filename string) (Platform, bool) {
	base := filepath.Base(filename)
	prefix := binary + "_"
	if !strings.HasPrefix(base, prefix) {
		return Platform{}, false
	}
	rest := strings.TrimPrefix(base, prefix)

	marker := "_" + version + "."
	idx := strings.LastIndex(rest, marker)
	if idx < 0 {
		return Platform{}, false
	}
	ext := rest[idx+len(marker):]
	if isChecksumSidecar(ext) {
		return Platform{}, false
	}

	arch, osName, found := strings.Cut(rest[:idx], "-")
	if !found || arch == "" || osName == "" {
		return Platform{}, false
	}
	return Platform{OS: osName, Arch: arch}, true
}

func isChecksumSidecar(ext string) bool {
	return strings.HasSuffix(ext, ".sha256") || strings.HasSuffix(ext, ".sha512") || strings.HasSuffix(ext, ".asc") || strings.HasSuffix(ext, ".sig")
}

// difference returns elements of a that are not in b
func difference(a, b []string) []string {
	set := make(map[string]bool, len(b))
	for _, v := range b {
		set[v] = true
	}
	var out []string
	for _, v := range a {
		if !set[v] {
			out = append(out, v)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
