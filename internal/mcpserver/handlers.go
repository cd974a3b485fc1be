package mcpserver

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mr-nozko/rag-mcp/internal/rerr"
	"github.com/mr-nozko/rag-mcp/internal/search"
	"github.com/mr-nozko/rag-mcp/internal/store"
)

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, SearchOutput{}, invalidParams("query must not be empty")
	}

	k := 0
	if in.K != nil {
		k = *in.K
	}
	results, err := s.engine.Search(ctx, search.Query{
		Text:      in.Query,
		K:         k,
		KExplicit: in.K != nil,
		Namespace: in.Namespace,
		Agent:     in.Agent,
		MinScore:  in.MinScore,
		Overfetch: in.Overfetch,
	})
	if err != nil {
		return nil, SearchOutput{}, MapError(err)
	}

	return nil, SearchOutput{Results: toSearchResults(results)}, nil
}

func toSearchResults(results []search.Result) []SearchResult {
	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, SearchResult{
			ChunkID:         r.ChunkID,
			DocPath:         r.DocPath,
			Namespace:       r.Namespace,
			SectionHeader:   r.SectionHeader,
			Text:            r.Text,
			Score:           r.Score,
			RetrievalMethod: string(r.RetrievalMethod),
		})
	}
	return out
}

func (s *Server) handleGet(ctx context.Context, _ *mcp.CallToolRequest, in GetInput) (*mcp.CallToolResult, GetOutput, error) {
	if strings.TrimSpace(in.Path) == "" {
		return nil, GetOutput{}, invalidParams("path must not be empty")
	}

	doc, err := s.st.GetDocumentByPath(ctx, in.Path)
	if err != nil {
		return nil, GetOutput{}, MapError(err)
	}

	chunks, err := s.st.GetChunksByDoc(ctx, doc.ID)
	if err != nil {
		return nil, GetOutput{}, MapError(err)
	}

	wantSections := len(in.Sections) > 0
	if wantSections {
		sectionSet := make(map[string]bool, len(in.Sections))
		for _, sec := range in.Sections {
			sectionSet[sec] = true
		}
		filtered := chunks[:0]
		for _, c := range chunks {
			if sectionSet[c.SectionHeader] {
				filtered = append(filtered, c)
			}
		}
		chunks = filtered
	}

	returnFull := in.ReturnFullDoc || !wantSections

	out := GetOutput{
		Path:       doc.Path,
		Namespace:  doc.Namespace,
		DocType:    doc.DocType,
		AgentName:  doc.AgentName,
		TokenCount: doc.TokenCount,
		Chunks:     make([]ChunkInfo, 0, len(chunks)),
	}
	if returnFull {
		out.Content = doc.ContentText
	} else {
		var sb strings.Builder
		for _, c := range chunks {
			sb.WriteString(c.Text)
			sb.WriteString("\n")
		}
		out.Content = strings.TrimRight(sb.String(), "\n")
	}
	for _, c := range chunks {
		out.Chunks = append(out.Chunks, ChunkInfo{
			Index:         c.ChunkIndex,
			SectionHeader: c.SectionHeader,
			TokenCount:    c.TokenCount,
		})
	}
	return nil, out, nil
}

func (s *Server) handleList(ctx context.Context, _ *mcp.CallToolRequest, in ListInput) (*mcp.CallToolResult, ListOutput, error) {
	var items []string
	var err error

	switch in.ListType {
	case "agents":
		items, err = s.st.ListAgents(ctx)
	case "namespaces":
		items, err = s.st.ListNamespaces(ctx)
	case "doc_types":
		items, err = s.st.ListDocTypes(ctx)
	case "system_docs":
		items, err = s.systemDocPaths(ctx, in.AgentName)
	default:
		return nil, ListOutput{}, invalidParams("list_type must be one of: agents, system_docs, namespaces, doc_types")
	}
	if err != nil {
		return nil, ListOutput{}, MapError(err)
	}

	return nil, ListOutput{Items: items}, nil
}

// systemDocPaths lists document paths that are not owned by any agent, the
// "system" corpus outside the agents/<name>/... convention. When agentName
// is given it instead lists that agent's documents, so list_type=system_docs
// with agent_name scopes the same vocabulary the other way round.
func (s *Server) systemDocPaths(ctx context.Context, agentName string) ([]string, error) {
	query := `SELECT path FROM documents WHERE `
	var args []any
	if agentName != "" {
		query += "agent_name = ?"
		args = append(args, agentName)
	} else {
		query += "(agent_name IS NULL OR agent_name = '')"
	}
	query += " ORDER BY path ASC"

	rows, err := s.st.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, rerr.Wrap(rerr.StoreError, fmt.Errorf("list system docs: %w", err))
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, rerr.Wrap(rerr.StoreError, fmt.Errorf("scan document path: %w", err))
		}
		paths = append(paths, path)
	}
	return paths, rows.Err()
}

// documentCount returns the total number of indexed documents, for
// explain's index_stats summary.
func (s *Server) documentCount(ctx context.Context) (int, error) {
	var count int
	row := s.st.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`)
	if err := row.Scan(&count); err != nil {
		return 0, rerr.Wrap(rerr.StoreError, fmt.Errorf("count documents: %w", err))
	}
	return count, nil
}

func (s *Server) handleRelated(ctx context.Context, _ *mcp.CallToolRequest, in RelatedInput) (*mcp.CallToolResult, RelatedOutput, error) {
	if strings.TrimSpace(in.Entity) == "" {
		return nil, RelatedOutput{}, invalidParams("entity must not be empty")
	}

	edges, err := s.walker.Related(ctx, in.Entity, in.MaxDepth, in.RelationTypes)
	if err != nil {
		return nil, RelatedOutput{}, MapError(err)
	}

	out := RelatedOutput{Edges: make([]RelatedEdge, 0, len(edges))}
	for _, e := range edges {
		out.Edges = append(out.Edges, RelatedEdge{Source: e.Source, Relation: e.Relation, Target: e.Target, Depth: e.Depth})
	}
	return nil, out, nil
}

func (s *Server) handleExplain(ctx context.Context, _ *mcp.CallToolRequest, in ExplainInput) (*mcp.CallToolResult, ExplainOutput, error) {
	switch in.ExplainWhat {
	case "index_stats":
		stats, err := s.indexStats(ctx)
		if err != nil {
			return nil, ExplainOutput{}, MapError(err)
		}
		return nil, ExplainOutput{IndexStats: stats}, nil

	case "doc_info":
		if strings.TrimSpace(in.DocPath) == "" {
			return nil, ExplainOutput{}, invalidParams("doc_path is required when explain_what is \"doc_info\"")
		}
		doc, err := s.st.GetDocumentByPath(ctx, in.DocPath)
		if err != nil {
			return nil, ExplainOutput{}, MapError(err)
		}
		return nil, ExplainOutput{DocInfo: &DocInfo{
			Path:       doc.Path,
			Namespace:  doc.Namespace,
			DocType:    doc.DocType,
			AgentName:  doc.AgentName,
			TokenCount: doc.TokenCount,
			FileHash:   doc.FileHash,
		}}, nil

	case "freshness":
		if strings.TrimSpace(in.DocPath) == "" {
			return nil, ExplainOutput{}, invalidParams("doc_path is required when explain_what is \"freshness\"")
		}
		doc, err := s.st.GetDocumentByPath(ctx, in.DocPath)
		if err != nil {
			return nil, ExplainOutput{}, MapError(err)
		}
		return nil, ExplainOutput{Freshness: &Freshness{
			Path:       doc.Path,
			ModifiedAt: doc.ModifiedAt,
			CreatedAt:  doc.CreatedAt,
			UpdatedAt:  doc.UpdatedAt,
			Stale:      doc.ModifiedAt.After(doc.UpdatedAt),
		}}, nil

	default:
		return nil, ExplainOutput{}, invalidParams("explain_what must be one of: index_stats, doc_info, freshness")
	}
}

func (s *Server) indexStats(ctx context.Context) (*IndexStats, error) {
	namespaces, err := s.st.ListNamespaces(ctx)
	if err != nil {
		return nil, err
	}
	docTypes, err := s.st.ListDocTypes(ctx)
	if err != nil {
		return nil, err
	}
	agents, err := s.st.ListAgents(ctx)
	if err != nil {
		return nil, err
	}
	count, err := s.documentCount(ctx)
	if err != nil {
		return nil, err
	}
	return &IndexStats{
		DocumentCount: count,
		Namespaces:    namespaces,
		DocTypes:      docTypes,
		Agents:        agents,
	}, nil
}

func (s *Server) handleCreateDoc(ctx context.Context, _ *mcp.CallToolRequest, in CreateDocInput) (*mcp.CallToolResult, CreateDocOutput, error) {
	out, err := s.writeDoc(ctx, "create_doc", in.Path, in.Content, in.DocType, true)
	return nil, CreateDocOutput(out), err
}

func (s *Server) handleUpdateDoc(ctx context.Context, _ *mcp.CallToolRequest, in UpdateDocInput) (*mcp.CallToolResult, UpdateDocOutput, error) {
	out, err := s.writeDoc(ctx, "update_doc", in.Path, in.Content, "", false)
	return nil, UpdateDocOutput(out), err
}

// writeDocResult is the shared shape create_doc and update_doc return.
type writeDocResult struct {
	Path       string `json:"path"`
	ChunkCount int    `json:"chunk_count"`
}

// writeDoc validates the target path, writes content to disk, and
// re-ingests the document inline so it is searchable before the call
// returns, per §4.10. An audit entry is appended regardless of outcome.
func (s *Server) writeDoc(ctx context.Context, operation, requestedPath, content, docTypeOverride string, mustNotExist bool) (writeDocResult, error) {
	abs, rel, err := s.paths.Validate(requestedPath)
	if err != nil {
		s.audit(ctx, operation, requestedPath, err)
		return writeDocResult{}, MapError(err)
	}

	if mustNotExist {
		if _, err := s.st.GetDocumentByPath(ctx, rel); err == nil {
			dupErr := rerr.New(rerr.InvalidInput, fmt.Sprintf("document %q already exists", rel))
			s.audit(ctx, operation, rel, dupErr)
			return writeDocResult{}, MapError(dupErr)
		}
	} else {
		if _, err := s.st.GetDocumentByPath(ctx, rel); err != nil {
			s.audit(ctx, operation, rel, err)
			return writeDocResult{}, MapError(err)
		}
	}

	if err := writeFile(abs, content); err != nil {
		wrapped := rerr.Wrap(rerr.StoreError, fmt.Errorf("write %s: %w", rel, err))
		s.audit(ctx, operation, rel, wrapped)
		return writeDocResult{}, MapError(wrapped)
	}

	doc, err := s.ingester.IngestPathWithType(ctx, rel, docTypeOverride)
	if err != nil {
		s.audit(ctx, operation, rel, err)
		return writeDocResult{}, MapError(err)
	}

	if s.embedder != nil {
		if embErr := s.embedInline(ctx, doc.ID); embErr != nil {
			s.logger.Warn("inline embedding failed after write", "path", rel, "error", embErr)
		}
	}

	s.audit(ctx, operation, rel, nil)

	chunks, err := s.st.GetChunksByDoc(ctx, doc.ID)
	if err != nil {
		return writeDocResult{}, MapError(err)
	}
	return writeDocResult{Path: rel, ChunkCount: len(chunks)}, nil
}

func (s *Server) handleDeleteDoc(ctx context.Context, _ *mcp.CallToolRequest, in DeleteDocInput) (*mcp.CallToolResult, DeleteDocOutput, error) {
	if strings.TrimSpace(in.Path) == "" {
		return nil, DeleteDocOutput{}, invalidParams("path must not be empty")
	}
	if !in.Confirm {
		return nil, DeleteDocOutput{}, invalidParams("confirm must be true to delete a document")
	}

	_, rel, err := s.paths.Validate(in.Path)
	if err != nil {
		s.audit(ctx, "delete_doc", in.Path, err)
		return nil, DeleteDocOutput{}, MapError(err)
	}

	err = s.st.Transaction(ctx, func(tx *sql.Tx) error {
		return store.DeleteDocumentByPath(ctx, tx, rel)
	})
	s.audit(ctx, "delete_doc", rel, err)
	if err != nil {
		return nil, DeleteDocOutput{}, MapError(err)
	}

	return nil, DeleteDocOutput{Path: rel, Deleted: true}, nil
}
