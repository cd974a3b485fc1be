package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mr-nozko/rag-mcp/internal/cliui"
	"github.com/mr-nozko/rag-mcp/internal/ingest"
)

func newIngestCmd() *cobra.Command {
	var force, cleanup bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Reconcile the corpus directory with the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, force, cleanup)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "re-ingest every document regardless of content hash")
	cmd.Flags().BoolVar(&cleanup, "cleanup", false, "remove documents whose source file no longer exists")
	return cmd
}

func runIngest(cmd *cobra.Command, force, cleanup bool) error {
	ctx := cmd.Context()

	b, err := openBootstrap(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer b.Close()

	ing := ingest.New(b.st, ingest.Options{
		Root:              b.root,
		AllowedExtensions: b.cfg.RAGMCP.AllowedExtensions,
		Chunk:             chunkOptions(b.cfg),
	})

	var report *ingest.Report
	err = cliui.WithSpinner(cmd.OutOrStdout(), "ingesting corpus", func() error {
		var runErr error
		report, runErr = ing.Run(ctx, force, cleanup)
		return runErr
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "scanned %d, created %d, updated %d, unchanged %d, removed %d\n",
		report.Scanned, report.Created, report.Updated, report.Unchanged, report.Removed)
	for _, e := range report.Errors {
		fmt.Fprintf(out, "  error: %s: %v\n", e.Path, e.Err)
	}
	return nil
}
