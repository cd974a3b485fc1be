package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mr-nozko/rag-mcp/internal/cliui"
	"github.com/mr-nozko/rag-mcp/internal/embed"
)

func newEmbedCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Embed every chunk currently missing a vector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmbed(cmd, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "re-embed chunks even if a vector already exists")
	return cmd
}

func runEmbed(cmd *cobra.Command, force bool) error {
	ctx := cmd.Context()

	b, err := openBootstrap(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer b.Close()

	if force {
		if err := b.st.ClearEmbeddings(ctx); err != nil {
			return err
		}
	}

	pipeline := embed.NewPipeline(b.st, b.embedder, embed.PipelineOptions{BatchSize: b.cfg.Embeddings.BatchSize})

	var report *embed.Report
	var runErr error
	err = cliui.WithSpinner(cmd.OutOrStdout(), "embedding chunks", func() error {
		report, runErr = pipeline.Run(ctx)
		return runErr
	})

	out := cmd.OutOrStdout()
	if report != nil {
		fmt.Fprintf(out, "requested %d, embedded %d, skipped %d\n", report.Requested, report.Embedded, report.Skipped)
		for _, e := range report.Errors {
			fmt.Fprintf(out, "  error: chunk %s: %v\n", e.ChunkID, e.Err)
		}
	}
	return err
}
