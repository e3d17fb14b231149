package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ochairo/zepup/internal/domain-adapters/gateways"
	"github.com/ochairo/zepup/internal/domain/services"
)

func (a *app) newVerifyCommand() *cobra.Command {
	var (
		releaseVersion string
		platform       string
		sha256         string
		signature      string
	)

	cmd := &cobra.Command{
		Use:   "verify <file>",
		Short: "Verify a downloaded archive against a checksum and optional signature",
		Long: `Verify checks a local file's SHA-256 against, in order of preference:
  --sha256      an explicit checksum
  --version     the checksum the catalog declares for that release
  <file>.sha256 a sha256sum sidecar next to the file

With --signature the file is also checked against a detached OpenPGP
signature using the keyring from verify.keyring.`,
		Args: args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, positional []string) error {
			path := positional[0]
			if _, err := os.Stat(path); err != nil {
				return err
			}

			expected, source, err := a.expectedChecksum(cmd, path, sha256, releaseVersion, platform)
			if err != nil {
				return err
			}

			a.printf("🔍 Verifying %s\n", filepath.Base(path))
			a.printf("📋 Checksum from %s\n", source)
			if err := gateways.NewChecksumVerifier().VerifyChecksum(cmd.Context(), path, expected); err != nil {
				a.failure("Checksum verification FAILED")
				return err
			}
			a.success("Checksum verified")

			if signature != "" {
				if a.cfg.Verify.Keyring == "" {
					return usageErrorf("--signature requires verify.keyring to be configured")
				}
				verifier := gateways.NewGPGVerifier()
				if err := verifier.LoadKeyring(cmd.Context(), a.cfg.Verify.Keyring); err != nil {
					return err
				}
				a.printf("🔐 Verifying signature with %d keys\n", verifier.GetKeyringSize())
				if err := verifier.VerifySignatureFromFile(path, signature); err != nil {
					a.failure("Signature verification FAILED")
					return err
				}
				a.success("Signature verified")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&releaseVersion, "version", "", "Release whose declared checksum to use")
	cmd.Flags().StringVar(&platform, "platform", "", "Platform of the file as os[-arch] (default: from file name, then this machine)")
	cmd.Flags().StringVar(&sha256, "sha256", "", "Expected SHA-256 checksum")
	cmd.Flags().StringVar(&signature, "signature", "", "Detached OpenPGP signature file (.asc)")
	return cmd
}

func (a *app) expectedChecksum(cmd *cobra.Command, path, sum, releaseVersion, platform string) (string, string, error) {
	if sum != "" {
		return sum, "--sha256", nil
	}

	if releaseVersion != "" {
		d, err := a.catalog().GetDescriptor(cmd.Context(), releaseVersion)
		if err != nil {
			return "", "", err
		}

		p, ok := services.ParseArchiveName(d.BinaryName(), d.Version, path)
		if platform != "" {
			p, err = services.ParsePlatform(platform)
			if err != nil {
				return "", "", usageErrorf("invalid --platform: %v", err)
			}
		} else if !ok {
			p = services.HostPlatform()
		}

		target, err := services.SelectTarget(d, p)
		if err != nil {
			return "", "", err
		}
		return target.SHA256, fmt.Sprintf("release %s (%s)", d.Version, target.Platform()), nil
	}

	sidecar := path + ".sha256"
	if _, err := os.Stat(sidecar); err == nil {
		expected, err := gateways.ReadSidecar(sidecar, filepath.Base(path))
		if err != nil {
			return "", "", err
		}
		return expected, filepath.Base(sidecar), nil
	}

	return "", "", usageErrorf("no checksum source: pass --sha256 or --version, or place %s next to the file", filepath.Base(sidecar))
}
