package mcpserver

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mr-nozko/rag-mcp/internal/embed"
	"github.com/mr-nozko/rag-mcp/internal/graphrel"
	"github.com/mr-nozko/rag-mcp/internal/ingest"
	"github.com/mr-nozko/rag-mcp/internal/pathsafe"
	"github.com/mr-nozko/rag-mcp/internal/rerr"
	"github.com/mr-nozko/rag-mcp/internal/search"
	"github.com/mr-nozko/rag-mcp/internal/store"
	"github.com/mr-nozko/rag-mcp/pkg/version"
)

// Server bridges MCP clients to the retrieval pipeline: search, get, list,
// related, explain, and the three write tools, per §4.10.
type Server struct {
	mcp      *mcp.Server
	st       *store.Store
	engine   *search.Engine
	ingester *ingest.Ingester
	embedder embed.Embedder
	paths    *pathsafe.Validator
	walker   *graphrel.Walker
	logger   *slog.Logger

	corpusRoot string
}

// Deps collects everything a Server needs, already constructed by the
// caller (typically cmd/ragmcp's serve command).
type Deps struct {
	Store      *store.Store
	Engine     *search.Engine
	Ingester   *ingest.Ingester
	Embedder   embed.Embedder
	Paths      *pathsafe.Validator
	Walker     *graphrel.Walker
	CorpusRoot string
	Logger     *slog.Logger
}

func New(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		st:         d.Store,
		engine:     d.Engine,
		ingester:   d.Ingester,
		embedder:   d.Embedder,
		paths:      d.Paths,
		walker:     d.Walker,
		logger:     logger,
		corpusRoot: d.CorpusRoot,
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "ragmcp",
		Version: version.Version,
	}, nil)

	s.registerTools()
	return s
}

// MCPServer returns the underlying SDK server, for transports to drive.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ServeStdio runs the server over the stdio line-framed JSON-RPC
// transport, per §4.11.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.logger.Info("starting mcp server", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		s.logger.Error("mcp server stopped with error", slog.String("error", err.Error()))
	}
	return err
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Hybrid keyword + semantic search over the indexed document corpus. Returns ranked chunks with document path, section, and score.",
	}, s.handleSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get",
		Description: "Fetch a single document by its corpus-relative path, or a subset of its sections.",
	}, s.handleGet)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list",
		Description: "List one of the corpus's vocabularies: agents, system docs, namespaces, or document types.",
	}, s.handleList)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "related",
		Description: "Traverse entity relations mined from the corpus, breadth-first, up to a bounded depth.",
	}, s.handleRelated)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "explain",
		Description: "Explain index state: corpus-wide stats, a single document's metadata, or its freshness.",
	}, s.handleExplain)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "create_doc",
		Description: "Create a new document under the corpus root. Rejects paths that escape the root or use a disallowed extension.",
	}, s.handleCreateDoc)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "update_doc",
		Description: "Overwrite an existing document's content and re-index it immediately.",
	}, s.handleUpdateDoc)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "delete_doc",
		Description: "Remove a document and its chunks from the corpus and the index.",
	}, s.handleDeleteDoc)

	s.logger.Debug("registered mcp tools", slog.Int("count", 8))
}

// audit records a write-tool outcome regardless of success, per §4.10's
// audit-log rule: the row is written even when the operation itself failed.
func (s *Server) audit(ctx context.Context, operation, docPath string, opErr error) {
	entry := store.AuditEntry{
		Operation: operation,
		DocPath:   docPath,
		Success:   opErr == nil,
	}
	if opErr != nil {
		entry.ErrorMessage = opErr.Error()
	}
	if err := s.st.LogAudit(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit log entry", slog.String("error", err.Error()))
	}
}

// embedInline embeds a single document's chunks immediately after a write
// tool creates or updates it, so the new content is searchable before the
// tool call returns (§4.10), rather than waiting for the next embed_missing
// pass. Mirrors internal/embed.Pipeline's per-batch commit and dimension
// check, scoped to one document instead of the whole corpus.
func (s *Server) embedInline(ctx context.Context, docID string) error {
	chunks, err := s.st.GetChunksByDoc(ctx, docID)
	if err != nil {
		return err
	}

	var pending []*store.Chunk
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			pending = append(pending, c)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	texts := make([]string, len(pending))
	for i, c := range pending {
		texts[i] = c.Text
	}

	vecs, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return rerr.Wrap(rerr.EmbeddingError, fmt.Errorf("embed document %s: %w", docID, err))
	}

	dims := s.embedder.Dimensions()
	return s.st.Transaction(ctx, func(tx *sql.Tx) error {
		for i, c := range pending {
			if len(vecs[i]) != dims {
				continue
			}
			if err := store.SetChunkEmbedding(ctx, tx, c.ID, vecs[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeFile persists content to an absolute path validated by pathsafe,
// creating parent directories as needed.
func writeFile(absPath, content string) error {
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(absPath, []byte(content), 0o644)
}
