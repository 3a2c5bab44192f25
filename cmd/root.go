// Package cmd defines the contentplan CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/contentplan/internal/config"
)

type cfgKeyType string

const cfgKey cfgKeyType = "config"

// rootFlags are shared by every subcommand.
type rootFlags struct {
	cfgFile string
	envFile string
}

// newRootCmd creates the root command. Configuration is loaded once in the
// pre-run hook and handed to subcommands through the context.
func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:   "contentplan",
		Short: "Generates SEO content plans for websites.",
		Long: `contentplan scans a website, works out its niche and language, and
builds a deduplicated content plan of pillar topics, clusters and article
briefs. Run it as an HTTP service with "serve" or once with "generate".`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(flags.envFile); err != nil {
				return err
			}
			cfg, err := config.Load(flags.cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), cfgKey, &cfg))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flags.cfgFile, "config", "", "config file (yaml, json or toml)")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before the config")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newGenerateCmd())
	return cmd
}

func resolveConfig(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(cfgKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return cfg, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "contentplan: %v\n", err)
		os.Exit(1)
	}
}
