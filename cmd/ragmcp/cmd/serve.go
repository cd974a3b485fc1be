package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mr-nozko/rag-mcp/internal/graphrel"
	"github.com/mr-nozko/rag-mcp/internal/ingest"
	"github.com/mr-nozko/rag-mcp/internal/mcpserver"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
}

func runServe(cmd *cobra.Command) error {
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

	s := mcpserver.New(mcpserver.Deps{
		Store:      b.st,
		Engine:     newSearchEngine(b),
		Ingester:   ing,
		Embedder:   b.embedder,
		Paths:      b.paths,
		Walker:     graphrel.NewWalker(b.st),
		CorpusRoot: b.root,
		Logger:     slog.Default(),
	})

	return s.ServeStdio(ctx)
}
