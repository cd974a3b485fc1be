package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print index statistics (document, chunk and embedded-chunk counts; namespaces, doc types, agents)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd)
		},
	}
}

// runStats reuses the explain(index_stats) tool's shape, reading the same
// Store queries directly rather than round-tripping through an MCP client.
func runStats(cmd *cobra.Command) error {
	ctx := cmd.Context()

	b, err := openBootstrap(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer b.Close()

	namespaces, err := b.st.ListNamespaces(ctx)
	if err != nil {
		return err
	}
	docTypes, err := b.st.ListDocTypes(ctx)
	if err != nil {
		return err
	}
	agents, err := b.st.ListAgents(ctx)
	if err != nil {
		return err
	}

	var docCount int
	row := b.st.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`)
	if err := row.Scan(&docCount); err != nil {
		return fmt.Errorf("count documents: %w", err)
	}

	var chunkCount, embeddedCount int
	if err := b.st.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&chunkCount); err != nil {
		return fmt.Errorf("count chunks: %w", err)
	}
	if err := b.st.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE embedding IS NOT NULL`).Scan(&embeddedCount); err != nil {
		return fmt.Errorf("count embedded chunks: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "documents: %d\n", docCount)
	fmt.Fprintf(out, "chunks:    %d (%d embedded)\n", chunkCount, embeddedCount)
	fmt.Fprintf(out, "namespaces: %v\n", namespaces)
	fmt.Fprintf(out, "doc_types:  %v\n", docTypes)
	fmt.Fprintf(out, "agents:     %v\n", agents)
	return nil
}
