package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/ochairo/zepup/internal/config"
	"github.com/ochairo/zepup/internal/logging"
)

// annotationNoConfig marks commands that run without loading configuration
const annotationNoConfig = "zepup/no-config"

// app carries global flags and everything built from them
type app struct {
	verbosity  int
	configFile string
	catalogDir string
	indexURL   string

	cfg    *config.Config
	logger *logging.Logger
	styles *styles
	stdout io.Writer
	stderr io.Writer
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, styles: newStyles(stdout)}

	cmd := &cobra.Command{
		Use:   "zepup",
		Short: "Install, verify, and publish zep releases",
		Long: `zepup installs the zep binary from a catalog of release descriptors.
Each descriptor pins one download and SHA-256 checksum per platform; the
download is verified and smoke tested before it replaces anything on disk.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[annotationNoConfig] == "true" {
				return nil
			}
			return a.setup(cmd)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	cmd.PersistentFlags().CountVarP(&a.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	cmd.PersistentFlags().StringVar(&a.configFile, "config", "", "Config file (default "+config.DefaultFile()+")")
	cmd.PersistentFlags().StringVar(&a.catalogDir, "catalog", "", "Directory of release descriptors (default: built-in catalog)")
	cmd.PersistentFlags().StringVar(&a.indexURL, "index", "", "Base URL of a zepup index server")

	cmd.AddCommand(
		a.newInstallCommand(),
		a.newListCommand(),
		a.newShowCommand(),
		a.newVerifyCommand(),
		a.newValidateCommand(),
		a.newTestCommand(),
		a.newStatusCommand(),
		a.newUninstallCommand(),
		a.newFormulaCommand(),
		a.newReleaseCommand(),
		a.newServeCommand(),
		a.newVersionCommand(),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	overrides := map[string]interface{}{}
	if cmd.Flags().Changed("catalog") {
		overrides["catalog.dir"] = a.catalogDir
	}
	if cmd.Flags().Changed("index") {
		overrides["catalog.index_url"] = a.indexURL
		if !cmd.Flags().Changed("catalog") {
			overrides["catalog.dir"] = ""
		}
	}

	cfg, err := config.Load(config.LoadOptions{File: a.configFile, Overrides: overrides})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.Setup(a.verbosity, cfg.Log.File)
	a.logger.Debug("command started")
	return nil
}

// args wraps a cobra argument validator so violations exit with the usage code
func args(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, a []string) error {
		if err := validate(cmd, a); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}
