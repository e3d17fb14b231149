package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ochairo/zepup/internal/domain/entities"
	"github.com/ochairo/zepup/internal/domain/interfaces"
	"github.com/ochairo/zepup/internal/domain/interfaces/gateways"
	"github.com/ochairo/zepup/internal/domain/interfaces/repositories"
	"github.com/ochairo/zepup/internal/domain/services"
)

// ArchiveFinder locates release archives produced by a build
type ArchiveFinder interface {
	FindArchives(dir, binary, version string) (map[string]*entities.Artifact, error)
}

// ReleaseOrchestrator packs release archives and authors new descriptors
type ReleaseOrchestrator struct {
	catalog     repositories.DescriptorRepository
	writer      repositories.DescriptorWriter
	packager    gateways.Packager
	finder      ArchiveFinder
	checksums   gateways.ChecksumVerifier
	validator   *services.ReleaseService
	urlTemplate string
	logger      interfaces.Logger
}

// ReleaseOrchestratorConfig holds configuration for the orchestrator
type ReleaseOrchestratorConfig struct {
	URLTemplate       string
	ExpectedPlatforms []string
}

// ReleaseDependencies groups the gateways release authoring needs. Writer may
// be nil for read-only catalogs.
type ReleaseDependencies struct {
	Catalog   repositories.DescriptorRepository
	Writer    repositories.DescriptorWriter
	Packager  gateways.Packager
	Finder    ArchiveFinder
	Checksums gateways.ChecksumVerifier
}

// NewReleaseOrchestrator creates a new release orchestrator
func NewReleaseOrchestrator(deps ReleaseDependencies, config ReleaseOrchestratorConfig, logger interfaces.Logger) *ReleaseOrchestrator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	template := config.URLTemplate
	if template == "" {
		template = services.DefaultURLTemplate
	}

	return &ReleaseOrchestrator{
		catalog:     deps.Catalog,
		writer:      deps.Writer,
		packager:    deps.Packager,
		finder:      deps.Finder,
		checksums:   deps.Checksums,
		validator:   services.NewReleaseService(config.ExpectedPlatforms),
		urlTemplate: template,
		logger:      logger.Named("release"),
	}
}

// Pack builds a release archive and checksum sidecar from a compiled binary
func (o *ReleaseOrchestrator) Pack(ctx context.Context, req entities.PackRequest) (*entities.Artifact, error) {
	if _, err := services.ParseVersion(req.Version); err != nil {
		return nil, err
	}
	if req.OS == "" {
		return nil, errors.New("target os is required")
	}
	if req.Arch == "" {
		req.Arch = entities.DefaultArch
	}
	if req.Binary == "" {
		return nil, errors.New("binary name is required")
	}

	artifact, err := o.packager.Pack(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", req.ArchiveName(), err)
	}
	o.logger.Info("packed release archive",
		interfaces.F("path", artifact.Path),
		interfaces.F("sha256", artifact.SHA256))
	return artifact, nil
}

// NewReleaseRequest describes the archives of a release that has been built
// but not yet published in the catalog
type NewReleaseRequest struct {
	Version      string
	ArtifactsDir string            // Searched for <binary>_<arch>-<os>_<version>.* archives
	Archives     map[string]string // OS key to archive path; overrides ArtifactsDir matches
	URLTemplate  string            // Overrides the configured template
	Base         *entities.ReleaseDescriptor
	DryRun       bool
}

// NewReleaseResult contains the authored descriptor
type NewReleaseResult struct {
	Descriptor *entities.ReleaseDescriptor
	Validation *services.ReleaseValidation
	Path       string // Empty on a dry run
	Duration   time.Duration
	Success    bool
	Error      error
}

// NewRelease authors the descriptor for the next version. Metadata is
// inherited from the latest release (or req.Base for an empty catalog) and
// checksums are computed from the local archives.
func (o *ReleaseOrchestrator) NewRelease(ctx context.Context, req NewReleaseRequest) (*NewReleaseResult, error) {
	startTime := time.Now()
	result := &NewReleaseResult{}

	// Step 1: Find the release this one supersedes
	base := req.Base
	latestVersion := ""
	latest, err := o.catalog.LatestDescriptor(ctx)
	switch {
	case err == nil:
		latestVersion = latest.Version
		if base == nil {
			base = latest
		}
	case errors.Is(err, entities.ErrDescriptorNotFound):
		if base == nil {
			result.Error = errors.New("catalog is empty: base metadata is required for the first release")
			return result, result.Error
		}
	default:
		result.Error = fmt.Errorf("failed to load latest release: %w", err)
		return result, result.Error
	}

	// Step 2: Enforce monotonic versions
	if err := services.CheckSuccessor(latestVersion, req.Version); err != nil {
		result.Error = err
		return result, result.Error
	}

	// Step 3: Collect archives
	archives, err := o.collectArchives(base.BinaryName(), req)
	if err != nil {
		result.Error = err
		return result, result.Error
	}

	// Step 4: Build the descriptor
	template := req.URLTemplate
	if template == "" {
		template = o.urlTemplate
	}
	d := inheritMetadata(base, req.Version)
	for osName, archive := range archives {
		target, err := o.buildTarget(osName, archive, template, req.Version)
		if err != nil {
			result.Error = err
			return result, result.Error
		}
		d.Platforms[osName] = target
	}
	result.Descriptor = d

	// Step 5: Validate
	result.Validation = o.validator.ValidateRelease(d)
	if err := result.Validation.Err(); err != nil {
		result.Error = err
		return result, result.Error
	}

	// Step 6: Save
	if !req.DryRun {
		if o.writer == nil {
			result.Error = errors.New("catalog is read-only")
			return result, result.Error
		}
		path, err := o.writer.SaveDescriptor(ctx, d)
		if err != nil {
			result.Error = fmt.Errorf("failed to save descriptor: %w", err)
			return result, result.Error
		}
		result.Path = path
		o.logger.Info("wrote release descriptor", interfaces.F("version", d.Version), interfaces.F("path", path))
	}

	result.Success = true
	result.Duration = time.Since(startTime)
	return result, nil
}

func (o *ReleaseOrchestrator) collectArchives(binary string, req NewReleaseRequest) (map[string]*entities.Artifact, error) {
	archives := make(map[string]*entities.Artifact)

	if req.ArtifactsDir != "" {
		if o.finder == nil {
			return nil, errors.New("no archive finder configured")
		}
		found, err := o.finder.FindArchives(req.ArtifactsDir, binary, req.Version)
		if err != nil {
			return nil, fmt.Errorf("failed to find archives: %w", err)
		}
		for osName, a := range found {
			archives[osName] = a
		}
	}

	for osName, path := range req.Archives {
		platform, ok := services.ParseArchiveName(binary, req.Version, path)
		if !ok {
			platform = services.Platform{OS: osName, Arch: entities.DefaultArch}
		}
		if platform.OS != osName {
			return nil, fmt.Errorf("archive %s is for %s, not %s", path, platform.OS, osName)
		}
		archives[osName] = &entities.Artifact{
			Name:     binary,
			Version:  req.Version,
			Platform: platform.String(),
			Path:     path,
			Type:     entities.ArtifactArchive,
		}
	}

	if len(archives) == 0 {
		return nil, fmt.Errorf("no %s archives found for %s", binary, req.Version)
	}
	return archives, nil
}

func (o *ReleaseOrchestrator) buildTarget(osName string, archive *entities.Artifact, template, version string) (entities.PlatformTarget, error) {
	platform, err := services.ParsePlatform(archive.Platform)
	if err != nil {
		return entities.PlatformTarget{}, err
	}

	sum, err := o.checksums.CalculateChecksum(archive.Path)
	if err != nil {
		return entities.PlatformTarget{}, fmt.Errorf("failed to checksum %s: %w", archive.Path, err)
	}

	target := entities.PlatformTarget{
		OS:     osName,
		Arch:   platform.Arch,
		URL:    services.ExpandURLTemplate(template, version, platform),
		SHA256: sum,
	}
	if _, err := os.Stat(archive.Path + ".asc"); err == nil {
		target.SignatureURL = target.URL + ".asc"
	}
	return target, nil
}

func inheritMetadata(base *entities.ReleaseDescriptor, version string) *entities.ReleaseDescriptor {
	return &entities.ReleaseDescriptor{
		Name:          base.Name,
		Description:   base.Description,
		Homepage:      base.Homepage,
		License:       base.License,
		Version:       version,
		Binary:        base.Binary,
		InstallTarget: base.InstallTarget,
		Platforms:     make(map[string]entities.PlatformTarget),
		Test:          entities.SmokeTest{Args: append([]string(nil), base.Test.Args...)},
	}
}

// GetReleaseSummary returns a human-readable summary of the new release
func (r *NewReleaseResult) GetReleaseSummary() string {
	if !r.Success {
		return fmt.Sprintf("Release failed: %v", r.Error)
	}

	summary := fmt.Sprintf("Release %s ready", r.Descriptor.Version)
	for _, key := range r.Descriptor.PlatformKeys() {
		t := r.Descriptor.Platforms[key]
		summary += fmt.Sprintf("\n  %s: %s\n    sha256 %s", t.Platform(), t.URL, t.SHA256)
	}
	if r.Path != "" {
		summary += fmt.Sprintf("\nWrote %s", r.Path)
	}
	return summary
}
