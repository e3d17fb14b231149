package main

import (
	"github.com/spf13/cobra"

	"github.com/ochairo/zepup/internal/domain/interfaces"
	"github.com/ochairo/zepup/internal/external-adapters/index"
)

func (a *app) newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog as a JSON index with checksums and Homebrew formulae",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.Serve.Addr
			}

			source := a.catalog()
			descriptors, err := source.ListDescriptors(cmd.Context())
			if err != nil {
				return err
			}
			server, err := index.NewServer(descriptors, a.logger)
			if err != nil {
				return err
			}

			a.printf("🌐 Serving %d releases from %s on http://%s\n", len(descriptors), source.Location(), addr)
			a.logger.Info("index server starting", interfaces.F("addr", addr))
			return server.ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config serve.addr)")
	return cmd
}
