package main

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ochairo/zepup/internal/domain/services"
	"github.com/ochairo/zepup/internal/version"
)

func (a *app) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  args(cobra.NoArgs),
		Annotations: map[string]string{
			annotationNoConfig: "true",
		},
		Run: func(_ *cobra.Command, _ []string) {
			a.printf("zepup version %s\n", version.Version)
			a.printf("  commit:   %s\n", version.Commit)
			a.printf("  built:    %s\n", version.Date)
			a.printf("  platform: %s (%s)\n", services.HostPlatform(), runtime.Version())
		},
	}
}
