package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ochairo/zepup/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/zepup/internal/domain-orchestrators"
	"github.com/ochairo/zepup/internal/domain/interfaces/repositories"
	"github.com/ochairo/zepup/internal/external-adapters/catalog"
	"github.com/ochairo/zepup/internal/external-adapters/receipts"
	"github.com/ochairo/zepup/internal/version"
)

// catalogSource is a descriptor repository that can say where it reads from
type catalogSource interface {
	repositories.DescriptorRepository
	Location() string
}

// catalog picks the configured descriptor source: a directory, a remote
// index, or the catalog built into the binary
func (a *app) catalog() catalogSource {
	switch {
	case a.cfg.Catalog.Dir != "":
		return catalog.NewDirectoryRepository(a.cfg.Catalog.Dir, a.logger)
	case a.cfg.Catalog.IndexURL != "":
		return gateways.NewHTTPIndexGateway(
			a.cfg.Catalog.IndexURL,
			gateways.DefaultRetryPolicy(a.cfg.Download.MaxRetries),
			version.UserAgent(),
		)
	default:
		return catalog.NewEmbeddedRepository(a.logger)
	}
}

// installer wires the install workflow. The keyring is only loaded when
// withSignatures is set, so status, test, and uninstall never depend on it.
func (a *app) installer(ctx context.Context, withSignatures bool) (*orchestrators.InstallOrchestrator, error) {
	deps := orchestrators.InstallDependencies{
		Catalog: a.catalog(),
		Fetcher: gateways.NewDownloader(gateways.DownloaderConfig{
			CacheDir:  a.cfg.Cache.Dir,
			Timeout:   a.cfg.Download.Timeout,
			Retry:     gateways.DefaultRetryPolicy(a.cfg.Download.MaxRetries),
			UserAgent: version.UserAgent(),
		}, a.logger),
		Checksums: gateways.NewChecksumVerifier(),
		Extractor: gateways.NewExtractor(a.logger),
		Smoke:     gateways.NewSmokeTester(a.cfg.Install.SmokeTimeout, a.logger),
		Placer:    gateways.NewBinaryPlacer(),
		Receipts:  receipts.NewStore(a.cfg.ReceiptsDir()),
	}

	if withSignatures && a.cfg.Verify.Keyring != "" {
		verifier := gateways.NewGPGVerifier()
		if err := verifier.LoadKeyring(ctx, a.cfg.Verify.Keyring); err != nil {
			return nil, fmt.Errorf("failed to load keyring %s: %w", a.cfg.Verify.Keyring, err)
		}
		deps.Signatures = verifier
	}

	return orchestrators.NewInstallOrchestrator(deps, orchestrators.InstallOrchestratorConfig{
		Prefix:       a.cfg.Install.Prefix,
		SmokeTimeout: a.cfg.Install.SmokeTimeout,
		SkipTest:     a.cfg.Install.SkipTest,
	}, a.logger), nil
}

// releaser wires release authoring. Descriptors are written to the configured
// catalog directory, which is created when missing.
func (a *app) releaser() (*orchestrators.ReleaseOrchestrator, error) {
	deps := orchestrators.ReleaseDependencies{
		Packager:  gateways.NewPackager(),
		Finder:    gateways.NewArtifactFinder(),
		Checksums: gateways.NewChecksumVerifier(),
	}

	if a.cfg.Catalog.Dir != "" {
		if err := os.MkdirAll(a.cfg.Catalog.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
		repo := catalog.NewDirectoryRepository(a.cfg.Catalog.Dir, a.logger)
		deps.Catalog = repo
		deps.Writer = repo
	} else {
		deps.Catalog = a.catalog()
	}

	return orchestrators.NewReleaseOrchestrator(deps, orchestrators.ReleaseOrchestratorConfig{
		URLTemplate:       a.cfg.Release.URLTemplate,
		ExpectedPlatforms: a.cfg.Release.ExpectedPlatforms,
	}, a.logger), nil
}
