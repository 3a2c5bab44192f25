package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/contentplan/internal/server"
)

type generateFlags struct {
	url     string
	owner   string
	project string
	output  string
	timeout time.Duration
}

// newGenerateCmd runs one plan in-process with a throwaway job store and
// prints the finished job as JSON.
func newGenerateCmd() *cobra.Command {
	flags := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generates one content plan and prints it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, flags)
		},
	}
	cmd.Flags().StringVar(&flags.url, "url", "", "website to plan for")
	cmd.Flags().StringVar(&flags.owner, "owner", "", "owner reference stored on the job")
	cmd.Flags().StringVar(&flags.project, "project", "", "project reference stored on the job")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write the job JSON to this file instead of stdout")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 15*time.Minute, "overall time limit")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func runGenerate(cmd *cobra.Command, flags *generateFlags) error {
	cfg, err := resolveConfig(cmd.Context())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if flags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flags.timeout)
		defer cancel()
	}

	app, err := server.Build(ctx, cfg, server.Options{InMemory: true})
	if err != nil {
		return fmt.Errorf("failed to initialize application services: %w", err)
	}
	defer app.Close(context.WithoutCancel(ctx))

	job, genErr := app.Generate(ctx, server.GenerateRequest{
		SourceURL:  flags.url,
		OwnerRef:   flags.owner,
		ProjectRef: flags.project,
	})
	if job.ID == "" {
		return genErr
	}

	var out io.Writer = cmd.OutOrStdout()
	if flags.output != "" {
		f, err := os.Create(flags.output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(job); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	return genErr
}
