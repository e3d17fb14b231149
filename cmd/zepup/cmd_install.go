package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	orchestrators "github.com/ochairo/zepup/internal/domain-orchestrators"
	"github.com/ochairo/zepup/internal/domain/entities"
	"github.com/ochairo/zepup/internal/domain/services"
)

func (a *app) newInstallCommand() *cobra.Command {
	var (
		platform string
		prefix   string
		skipTest bool
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "install [version]",
		Short: "Download, verify, and install a zep release (default: latest)",
		Example: `  zepup install                      # latest release for this machine
  zepup install 1.1.0                # a specific release
  zepup install --prefix /usr/local  # installs /usr/local/bin/zep`,
		Args: args(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, positional []string) error {
			req := orchestrators.InstallRequest{
				Prefix:   prefix,
				SkipTest: skipTest,
				Force:    force,
			}
			if len(positional) == 1 {
				req.Version = positional[0]
			}
			if platform != "" {
				p, err := services.ParsePlatform(platform)
				if err != nil {
					return usageErrorf("invalid --platform: %v", err)
				}
				req.Platform = &p
			}

			installer, err := a.installer(cmd.Context(), true)
			if err != nil {
				return err
			}

			a.printf("📦 Installing %s\n", a.styles.accent.Render(displayVersion(req.Version)))
			result, err := installer.Install(cmd.Context(), req)
			if err != nil {
				if result != nil && result.Smoke != nil && !result.Smoke.Passed() {
					a.printf("%s\n", a.styles.dim.Render(result.Smoke.Stdout+result.Smoke.Stderr))
				}
				a.failure("%s", result.GetInstallSummary())
				return err
			}

			if result.AlreadyInstalled {
				a.success("%s (use --force to reinstall)", result.GetInstallSummary())
				return nil
			}
			a.success("%s", result.GetInstallSummary())
			return nil
		},
	}

	cmd.Flags().StringVar(&platform, "platform", "", "Target platform as os[-arch] (default: this machine)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Install prefix (default from config install.prefix)")
	cmd.Flags().BoolVar(&skipTest, "skip-test", false, "Do not smoke test the binary before installing it")
	cmd.Flags().BoolVar(&force, "force", false, "Reinstall even if this version is already installed")
	return cmd
}

func (a *app) newTestCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run the smoke test against the installed binary",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			installer, err := a.installer(cmd.Context(), false)
			if err != nil {
				return err
			}

			result, err := installer.TestInstalled(cmd.Context(), name)
			if result != nil {
				a.printf("🧪 %s\n", a.styles.dim.Render(fmt.Sprint(result.Argv)))
				if result.Stdout != "" {
					a.printf("%s", result.Stdout)
				}
			}
			if err != nil {
				a.failure("Smoke test failed")
				return err
			}
			a.success("Smoke test passed in %v", result.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "zep", "Installed package name")
	return cmd
}

func (a *app) newStatusCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show what is installed and whether it is current",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			installer, err := a.installer(cmd.Context(), false)
			if err != nil {
				return err
			}

			status, err := installer.Status(cmd.Context(), name)
			if errors.Is(err, entities.ErrNotInstalled) {
				a.warning("%s is not installed", name)
				return nil
			}
			if err != nil {
				return err
			}

			r := status.Receipt
			a.printf("%s\n", a.styles.heading.Render(fmt.Sprintf("%s %s", r.Name, r.Version)))
			a.printf("  Path:      %s\n", r.Path)
			a.printf("  Platform:  %s\n", r.Platform)
			a.printf("  SHA-256:   %s\n", r.SHA256)
			a.printf("  Installed: %s\n", r.InstalledAt.Format(time.RFC3339))
			a.printf("  Receipt:   %s\n", r.ID)

			if !status.Present {
				a.warning("binary is missing from %s; run zepup install --force", r.Path)
			}
			switch {
			case status.Latest == "":
				a.warning("latest release unknown")
			case status.UpToDate:
				a.success("up to date")
			default:
				a.warning("%s is available", status.Latest)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "zep", "Installed package name")
	return cmd
}

func (a *app) newUninstallCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the installed binary and its receipt",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			installer, err := a.installer(cmd.Context(), false)
			if err != nil {
				return err
			}

			receipt, err := installer.Uninstall(cmd.Context(), name)
			if err != nil {
				return err
			}
			a.success("Removed %s %s from %s", receipt.Name, receipt.Version, receipt.Path)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "zep", "Installed package name")
	return cmd
}

func displayVersion(v string) string {
	if v == "" {
		return "latest"
	}
	return v
}
