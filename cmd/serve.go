package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/contentplan/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Runs the HTTP API and worker pool",
		Long: `Starts the plan API on the configured port. Jobs submitted to
POST /v1/plans are queued and processed by the worker pool until the process
receives SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd.Context())
			if err != nil {
				return err
			}
			app, err := server.Build(cmd.Context(), cfg, server.Options{})
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			return app.Run(cmd.Context())
		},
	}
}
