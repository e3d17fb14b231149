package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/ochairo/zepup/internal/domain/entities"
	"github.com/ochairo/zepup/internal/domain/services"
	"github.com/ochairo/zepup/internal/external-adapters/homebrew"
	tomlparser "github.com/ochairo/zepup/internal/external-adapters/toml"
	yamlparser "github.com/ochairo/zepup/internal/external-adapters/yaml"
)

func (a *app) newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List releases in the catalog",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			source := a.catalog()
			descriptors, err := source.ListDescriptors(cmd.Context())
			if err != nil {
				return err
			}
			if len(descriptors) == 0 {
				a.warning("No releases in %s catalog", source.Location())
				return nil
			}

			latest := descriptors[len(descriptors)-1].Version
			t := table.New().
				Border(lipgloss.HiddenBorder()).
				Headers("VERSION", "PLATFORMS", "URL").
				StyleFunc(func(row, _ int) lipgloss.Style {
					if row == table.HeaderRow {
						return a.styles.heading
					}
					return a.styles.renderer.NewStyle()
				})
			for i := len(descriptors) - 1; i >= 0; i-- {
				d := descriptors[i]
				label := d.Version
				if d.Version == latest {
					label += " (latest)"
				}
				var platforms, urls []string
				for _, key := range d.PlatformKeys() {
					target, _ := d.Target(key)
					platforms = append(platforms, target.Platform())
					urls = append(urls, target.URL)
				}
				t.Row(label, strings.Join(platforms, "\n"), strings.Join(urls, "\n"))
			}

			a.printf("📋 %s catalog\n", source.Location())
			a.printf("%s\n", t.String())
			return nil
		},
	}
}

func (a *app) newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [version]",
		Short: "Print a release descriptor as YAML (default: latest)",
		Args:  args(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, positional []string) error {
			d, err := a.resolve(cmd.Context(), positional)
			if err != nil {
				return err
			}
			data, err := yamlparser.NewDescriptorParser().Marshal(d)
			if err != nil {
				return err
			}
			_, err = a.stdout.Write(data)
			return err
		},
	}
}

func (a *app) newFormulaCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "formula [version]",
		Short: "Render the Homebrew formula for a release (default: latest)",
		Args:  args(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, positional []string) error {
			d, err := a.resolve(cmd.Context(), positional)
			if err != nil {
				return err
			}
			formula, err := homebrew.Render(d)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = a.stdout.Write(formula)
				return err
			}
			if err := os.WriteFile(output, formula, 0o644); err != nil {
				return fmt.Errorf("failed to write formula: %w", err)
			}
			a.success("Wrote %s", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the formula to a file instead of stdout")
	return cmd
}

func (a *app) newValidateCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate [file...]",
		Short: "Validate descriptor files or the whole catalog",
		Long: `Validate checks every descriptor field and, for a catalog, that versions are
unique and belong to one package. With --strict every release must also
cover release.expected_platforms.`,
		RunE: func(cmd *cobra.Command, files []string) error {
			var expected []string
			if strict {
				expected = a.cfg.Release.ExpectedPlatforms
			}
			validator := services.NewReleaseService(expected)

			var descriptors []*entities.ReleaseDescriptor
			if len(files) == 0 {
				source := a.catalog()
				a.printf("🔍 Validating %s catalog\n", source.Location())
				list, err := source.ListDescriptors(cmd.Context())
				if err != nil {
					return err
				}
				descriptors = list
			} else {
				for _, f := range files {
					d, err := parseDescriptorFile(f)
					if err != nil {
						return err
					}
					descriptors = append(descriptors, d)
				}
			}

			report := validator.ValidateCatalog(descriptors)
			for _, r := range report.Releases {
				if r.IsReady() {
					a.success("%s: %s", r.Version, strings.Join(r.AvailablePlatforms, ", "))
				} else {
					a.failure("%s: %s", r.Version, r.ErrorMessage())
				}
			}
			for _, p := range report.Problems {
				a.failure("%s", p)
			}

			if !report.IsReady() {
				return fmt.Errorf("%w: catalog has problems", entities.ErrInvalidDescriptor)
			}
			a.success("%d releases valid", len(report.Releases))
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Require release.expected_platforms on every release")
	return cmd
}

// resolve returns the descriptor named by an optional version argument
func (a *app) resolve(ctx context.Context, positional []string) (*entities.ReleaseDescriptor, error) {
	source := a.catalog()
	if len(positional) == 0 || positional[0] == "latest" {
		return source.LatestDescriptor(ctx)
	}
	return source.GetDescriptor(ctx, positional[0])
}

func parseDescriptorFile(path string) (*entities.ReleaseDescriptor, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return tomlparser.NewDescriptorParser().ParseFile(path)
	case ".yml", ".yaml":
		return yamlparser.NewDescriptorParser().ParseFile(path)
	default:
		return nil, usageErrorf("%s: descriptor files must be .yml, .yaml, or .toml", path)
	}
}
