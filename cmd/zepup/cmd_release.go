package main

import (
	"github.com/spf13/cobra"

	orchestrators "github.com/ochairo/zepup/internal/domain-orchestrators"
	"github.com/ochairo/zepup/internal/domain/entities"
	"github.com/ochairo/zepup/internal/external-adapters/catalog"
)

func (a *app) newReleaseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Pack release archives and author release descriptors",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(a.newReleasePackCommand())
	cmd.AddCommand(a.newReleaseNewCommand())
	return cmd
}

func (a *app) newReleasePackCommand() *cobra.Command {
	var req entities.PackRequest

	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Pack a compiled binary into <name>_<arch>-<os>_<version>.tar.xz with a .sha256 sidecar",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			releaser, err := a.releaser()
			if err != nil {
				return err
			}

			artifact, err := releaser.Pack(cmd.Context(), req)
			if err != nil {
				return err
			}
			a.success("Packed %s", artifact.Path)
			a.printf("   sha256 %s\n", a.styles.dim.Render(artifact.SHA256))
			return nil
		},
	}

	cmd.Flags().StringVar(&req.BinaryPath, "binary", "", "Path to the compiled binary")
	cmd.Flags().StringVar(&req.Binary, "name", "zep", "Binary name inside the archive")
	cmd.Flags().StringVar(&req.OS, "os", "", "Target operating system (linux, macos)")
	cmd.Flags().StringVar(&req.Arch, "arch", entities.DefaultArch, "Target architecture")
	cmd.Flags().StringVar(&req.Version, "version", "", "Release version (MAJOR.MINOR.PATCH)")
	cmd.Flags().StringVar(&req.OutputDir, "out", "dist", "Output directory")
	_ = cmd.MarkFlagRequired("binary")
	_ = cmd.MarkFlagRequired("os")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}

func (a *app) newReleaseNewCommand() *cobra.Command {
	var (
		artifactsDir string
		archives     map[string]string
		urlTemplate  string
		dryRun       bool
	)

	cmd := &cobra.Command{
		Use:   "new <version>",
		Short: "Write the descriptor for a new release into the catalog directory",
		Long: `New computes checksums for the release archives, inherits name, license,
and smoke test from the latest release, and writes <catalog>/<version>.yml.
The version must be greater than every release already in the catalog.`,
		Example: `  zepup release new 1.3.0 --catalog releases --artifacts dist
  zepup release new 1.3.0 --catalog releases --archive linux=dist/zep_x86_64-linux_1.3.0.tar.xz --dry-run`,
		Args: args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, positional []string) error {
			if a.cfg.Catalog.Dir == "" && !dryRun {
				return usageErrorf("release new needs a catalog directory (--catalog or catalog.dir)")
			}
			if artifactsDir == "" && len(archives) == 0 {
				return usageErrorf("pass --artifacts or at least one --archive os=path")
			}

			releaser, err := a.releaser()
			if err != nil {
				return err
			}

			req := orchestrators.NewReleaseRequest{
				Version:      positional[0],
				ArtifactsDir: artifactsDir,
				Archives:     archives,
				URLTemplate:  urlTemplate,
				DryRun:       dryRun,
			}

			// A fresh catalog directory inherits metadata from the built-in catalog
			if a.cfg.Catalog.Dir != "" {
				existing, err := a.catalog().ListDescriptors(cmd.Context())
				if err != nil {
					return err
				}
				if len(existing) == 0 {
					base, err := catalog.NewEmbeddedRepository(a.logger).LatestDescriptor(cmd.Context())
					if err != nil {
						return err
					}
					req.Base = base
				}
			}

			result, err := releaser.NewRelease(cmd.Context(), req)
			if err != nil {
				if result != nil && result.Validation != nil {
					for _, p := range result.Validation.Problems {
						a.failure("%s", p)
					}
				}
				a.failure("%s", result.GetReleaseSummary())
				return err
			}
			a.success("%s", result.GetReleaseSummary())
			return nil
		},
	}

	cmd.Flags().StringVar(&artifactsDir, "artifacts", "", "Directory containing the release archives")
	cmd.Flags().StringToStringVar(&archives, "archive", nil, "Archive for one OS as os=path (repeatable)")
	cmd.Flags().StringVar(&urlTemplate, "url-template", "", "Download URL template with {version}, {os}, {arch} (default from config release.url_template)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the descriptor summary without writing it")
	return cmd
}
