// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ochairo/zepup/internal/domain/entities"
	"github.com/ochairo/zepup/internal/domain/interfaces"
	"github.com/ochairo/zepup/internal/domain/interfaces/gateways"
	"github.com/ochairo/zepup/internal/domain/interfaces/repositories"
	"github.com/ochairo/zepup/internal/domain/services"
)

// DefaultSmokeTimeout bounds a smoke test when no timeout is configured
const DefaultSmokeTimeout = 30 * time.Second

// InstallOrchestrator coordinates the fetch, verify, test, and place workflow
type InstallOrchestrator struct {
	catalog    repositories.DescriptorRepository
	fetcher    gateways.Fetcher
	checksums  gateways.ChecksumVerifier
	signatures gateways.SignatureVerifier
	extractor  gateways.Extractor
	smoke      gateways.SmokeTester
	placer     gateways.BinaryPlacer
	receipts   repositories.ReceiptStore
	validator  *services.ReleaseService
	logger     interfaces.Logger

	prefix       string
	stagingDir   string
	smokeTimeout time.Duration
	skipTest     bool
	now          func() time.Time
}

// InstallOrchestratorConfig holds configuration for the orchestrator
type InstallOrchestratorConfig struct {
	Prefix       string
	StagingDir   string // Parent of per-install staging directories; defaults to os.TempDir()
	SmokeTimeout time.Duration
	SkipTest     bool
}

// InstallDependencies groups the gateways an install needs. Signatures may be
// nil, in which case signature URLs are reported but not checked.
type InstallDependencies struct {
	Catalog    repositories.DescriptorRepository
	Fetcher    gateways.Fetcher
	Checksums  gateways.ChecksumVerifier
	Signatures gateways.SignatureVerifier
	Extractor  gateways.Extractor
	Smoke      gateways.SmokeTester
	Placer     gateways.BinaryPlacer
	Receipts   repositories.ReceiptStore
}

// NewInstallOrchestrator creates a new install orchestrator
func NewInstallOrchestrator(deps InstallDependencies, config InstallOrchestratorConfig, logger interfaces.Logger) *InstallOrchestrator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	timeout := config.SmokeTimeout
	if timeout <= 0 {
		timeout = DefaultSmokeTimeout
	}

	return &InstallOrchestrator{
		catalog:      deps.Catalog,
		fetcher:      deps.Fetcher,
		checksums:    deps.Checksums,
		signatures:   deps.Signatures,
		extractor:    deps.Extractor,
		smoke:        deps.Smoke,
		placer:       deps.Placer,
		receipts:     deps.Receipts,
		validator:    services.NewReleaseService(nil),
		logger:       logger.Named("install"),
		prefix:       config.Prefix,
		stagingDir:   config.StagingDir,
		smokeTimeout: timeout,
		skipTest:     config.SkipTest,
		now:          time.Now,
	}
}

// InstallRequest selects what to install and where
type InstallRequest struct {
	Version  string             // Empty means the latest release
	Platform *services.Platform // Nil means the host platform
	Prefix   string             // Overrides the configured prefix
	SkipTest bool
	Force    bool // Reinstall even when the receipt matches
}

// InstallResult contains the result of an install operation
type InstallResult struct {
	Descriptor       *entities.ReleaseDescriptor
	Target           entities.PlatformTarget
	Artifact         *entities.Artifact
	Receipt          *entities.InstallReceipt
	Smoke            *entities.SmokeResult
	Destination      string
	AlreadyInstalled bool
	SignatureChecked bool
	FetchDuration    time.Duration
	VerifyDuration   time.Duration
	TestDuration     time.Duration
	TotalDuration    time.Duration
	Success          bool
	Error            error
}

// Install executes the complete install workflow for one release
func (o *InstallOrchestrator) Install(ctx context.Context, req InstallRequest) (*InstallResult, error) {
	startTime := time.Now()
	result := &InstallResult{}

	// Step 1: Resolve the descriptor
	var (
		d   *entities.ReleaseDescriptor
		err error
	)
	if req.Version == "" || req.Version == "latest" {
		d, err = o.catalog.LatestDescriptor(ctx)
	} else {
		d, err = o.catalog.GetDescriptor(ctx, req.Version)
	}
	if err != nil {
		result.Error = fmt.Errorf("failed to resolve release: %w", err)
		return result, result.Error
	}
	result.Descriptor = d

	// Catalog and index entries name cache and install paths, so they are
	// checked before anything touches the filesystem
	if err := o.validator.ValidateRelease(d).Err(); err != nil {
		result.Error = err
		return result, result.Error
	}

	// Step 2: Select the platform target
	platform := services.HostPlatform()
	if req.Platform != nil {
		platform = *req.Platform
	}
	target, err := services.SelectTarget(d, platform)
	if err != nil {
		result.Error = err
		return result, result.Error
	}
	result.Target = target

	prefix := req.Prefix
	if prefix == "" {
		prefix = o.prefix
	}
	if prefix == "" {
		result.Error = errors.New("no install prefix configured")
		return result, result.Error
	}
	result.Destination = filepath.Join(prefix, filepath.FromSlash(d.Destination()))

	// Step 3: Skip when the receipt already matches
	if !req.Force {
		if receipt := o.installedReceipt(d, result.Destination); receipt != nil {
			o.logger.Info("release already installed",
				interfaces.F("version", d.Version),
				interfaces.F("path", result.Destination))
			result.Receipt = receipt
			result.AlreadyInstalled = true
			result.Success = true
			result.TotalDuration = time.Since(startTime)
			return result, nil
		}
	}

	// Step 4: Fetch the archive
	fetchStart := time.Now()
	artifact, err := o.fetcher.Fetch(ctx, d, target)
	if err != nil {
		result.Error = fmt.Errorf("failed to fetch %s: %w", target.URL, err)
		return result, result.Error
	}
	result.Artifact = artifact
	result.FetchDuration = time.Since(fetchStart)

	// Step 5: Verify checksum, discarding the download on mismatch
	verifyStart := time.Now()
	if err := o.checksums.VerifyChecksum(ctx, artifact.Path, target.SHA256); err != nil {
		o.discard(artifact)
		result.Error = fmt.Errorf("%s %s: %w", d.Title(), target.Platform(), err)
		return result, result.Error
	}

	// Step 6: Verify signature (optional)
	if target.SignatureURL != "" {
		if o.signatures == nil || o.signatures.GetKeyringSize() == 0 {
			o.logger.Warn("release is signed but no keyring is configured; skipping signature check",
				interfaces.F("signature_url", target.SignatureURL))
		} else {
			if err := o.signatures.VerifySignature(ctx, artifact.Path, target.SignatureURL); err != nil {
				o.discard(artifact)
				result.Error = fmt.Errorf("%s %s: %w", d.Title(), target.Platform(), err)
				return result, result.Error
			}
			result.SignatureChecked = true
		}
	}
	result.VerifyDuration = time.Since(verifyStart)

	// Step 7: Extract into a private staging directory
	staging, err := os.MkdirTemp(o.stagingDir, "zepup-stage-*")
	if err != nil {
		result.Error = fmt.Errorf("failed to create staging directory: %w", err)
		return result, result.Error
	}
	defer func() {
		if err := os.RemoveAll(staging); err != nil {
			o.logger.Warn("failed to clean staging directory", interfaces.F("path", staging), interfaces.Err(err))
		}
	}()

	staged, err := o.extractor.ExtractBinary(ctx, artifact.Path, d.BinaryName(), staging)
	if err != nil {
		result.Error = fmt.Errorf("failed to extract %s: %w", d.BinaryName(), err)
		return result, result.Error
	}

	// Step 8: Smoke test the staged binary before touching the prefix
	if !req.SkipTest && !o.skipTest {
		testStart := time.Now()
		smoke := o.smoke.Run(ctx, d.SmokeArgv(staged), o.smokeTimeout)
		result.Smoke = smoke
		result.TestDuration = time.Since(testStart)
		if err := smoke.AsError(); err != nil {
			result.Error = err
			return result, result.Error
		}
	}

	// Step 9: Place the binary
	if err := o.placer.Place(staged, result.Destination); err != nil {
		result.Error = fmt.Errorf("failed to install %s: %w", result.Destination, err)
		return result, result.Error
	}

	// Step 10: Record the receipt
	receipt := &entities.InstallReceipt{
		ID:          uuid.NewString(),
		Name:        d.Name,
		Version:     d.Version,
		Platform:    target.Platform(),
		SHA256:      strings.ToLower(target.SHA256),
		Path:        result.Destination,
		InstalledAt: o.now().UTC(),
	}
	if err := o.receipts.Save(receipt); err != nil {
		result.Error = fmt.Errorf("installed %s but failed to write receipt: %w", result.Destination, err)
		return result, result.Error
	}
	result.Receipt = receipt

	o.logger.Info("installed release",
		interfaces.F("version", d.Version),
		interfaces.F("platform", target.Platform()),
		interfaces.F("path", result.Destination),
		interfaces.F("cached", artifact.Cached))

	result.Success = true
	result.TotalDuration = time.Since(startTime)
	return result, nil
}

func (o *InstallOrchestrator) installedReceipt(d *entities.ReleaseDescriptor, destination string) *entities.InstallReceipt {
	receipt, err := o.receipts.Load(d.Name)
	if err != nil {
		if !errors.Is(err, entities.ErrNotInstalled) {
			o.logger.Warn("ignoring unreadable receipt", interfaces.Err(err))
		}
		return nil
	}
	if receipt.Version != d.Version || receipt.Path != destination {
		return nil
	}
	if _, err := os.Stat(destination); err != nil {
		return nil
	}
	return receipt
}

func (o *InstallOrchestrator) discard(artifact *entities.Artifact) {
	if err := o.fetcher.Discard(artifact); err != nil {
		o.logger.Warn("failed to discard download", interfaces.F("path", artifact.Path), interfaces.Err(err))
	}
}

// InstallStatus describes what the receipt says is installed
type InstallStatus struct {
	Receipt  *entities.InstallReceipt
	Present  bool   // The binary still exists at the receipt path
	Latest   string // Highest catalog version, empty if the catalog is unavailable
	UpToDate bool
}

// Status reports the installed release for a package name
func (o *InstallOrchestrator) Status(ctx context.Context, name string) (*InstallStatus, error) {
	receipt, err := o.receipts.Load(name)
	if err != nil {
		return nil, err
	}

	status := &InstallStatus{Receipt: receipt}
	if _, err := os.Stat(receipt.Path); err == nil {
		status.Present = true
	}

	latest, err := o.catalog.LatestDescriptor(ctx)
	if err != nil {
		o.logger.Warn("could not determine latest release", interfaces.Err(err))
		return status, nil
	}
	status.Latest = latest.Version
	status.UpToDate = services.CheckSuccessor(receipt.Version, latest.Version) != nil
	return status, nil
}

// TestInstalled runs the smoke test against the installed binary
func (o *InstallOrchestrator) TestInstalled(ctx context.Context, name string) (*entities.SmokeResult, error) {
	receipt, err := o.receipts.Load(name)
	if err != nil {
		return nil, err
	}

	args := entities.DefaultSmokeArgs
	d, err := o.catalog.GetDescriptor(ctx, receipt.Version)
	if err != nil {
		o.logger.Warn("descriptor unavailable, using default smoke test",
			interfaces.F("version", receipt.Version), interfaces.Err(err))
	} else {
		args = d.SmokeArgs()
	}

	argv := append([]string{receipt.Path}, args...)
	result := o.smoke.Run(ctx, argv, o.smokeTimeout)
	return result, result.AsError()
}

// Uninstall removes the installed binary and its receipt
func (o *InstallOrchestrator) Uninstall(_ context.Context, name string) (*entities.InstallReceipt, error) {
	receipt, err := o.receipts.Load(name)
	if err != nil {
		return nil, err
	}
	if err := o.placer.Remove(receipt.Path); err != nil {
		return nil, fmt.Errorf("failed to remove %s: %w", receipt.Path, err)
	}
	if err := o.receipts.Delete(name); err != nil {
		return nil, fmt.Errorf("removed %s but failed to delete receipt: %w", receipt.Path, err)
	}
	o.logger.Info("uninstalled release", interfaces.F("version", receipt.Version), interfaces.F("path", receipt.Path))
	return receipt, nil
}

// GetInstallSummary returns a human-readable summary of the install
func (r *InstallResult) GetInstallSummary() string {
	if !r.Success {
		return fmt.Sprintf("Install failed: %v", r.Error)
	}
	if r.AlreadyInstalled {
		return fmt.Sprintf("%s %s is already installed at %s", r.Descriptor.Name, r.Descriptor.Version, r.Destination)
	}

	source := "downloaded"
	if r.Artifact != nil && r.Artifact.Cached {
		source = "cached"
	}
	summary := fmt.Sprintf(`Install successful!
Package: %s %s
Platform: %s
Path: %s
Fetch: %v (%s)
Verify: %v
Test: %v
Total: %v`,
		r.Descriptor.Name, r.Descriptor.Version,
		r.Target.Platform(),
		r.Destination,
		r.FetchDuration, source,
		r.VerifyDuration,
		r.TestDuration,
		r.TotalDuration,
	)

	if r.SignatureChecked {
		summary += "\nSignature: verified"
	}
	return summary
}
