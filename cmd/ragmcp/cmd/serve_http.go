package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mr-nozko/rag-mcp/internal/graphrel"
	"github.com/mr-nozko/rag-mcp/internal/ingest"
	"github.com/mr-nozko/rag-mcp/internal/mcpserver"
)

func newServeHTTPCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve-http",
		Short: "Start the MCP server on the HTTP/SSE transport",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServeHTTP(cmd, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to :<http_server.port>)")
	return cmd
}

func runServeHTTP(cmd *cobra.Command, addr string) error {
	ctx := cmd.Context()

	b, err := openBootstrap(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer b.Close()

	if addr == "" {
		addr = fmt.Sprintf(":%d", b.cfg.HTTPServer.Port)
	}

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

	transport := mcpserver.NewHTTPTransport(s, mcpserver.HTTPTransportOptions{
		Authless: b.cfg.HTTPServer.Authless,
		APIKey:   b.cfg.APIKey(),
	})

	slog.Info("serving MCP over HTTP/SSE", slog.String("addr", addr))
	return transport.ListenAndServe(ctx, addr)
}
