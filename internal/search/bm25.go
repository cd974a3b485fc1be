package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/mr-nozko/rag-mcp/internal/store"
)

// BM25Result is one ranked BM25 hit.
type BM25Result struct {
	ChunkID string
	Score   float64 // higher is better
}

// BM25Searcher runs keyword search over the chunks_fts shadow table.
type BM25Searcher struct {
	st *store.Store
}

func NewBM25Searcher(st *store.Store) *BM25Searcher {
	return &BM25Searcher{st: st}
}

// Search implements bm25(query, filters, k) → ranked [(chunk_id, score)]
// per §4.6. Empty or whitespace-only queries return no results rather than
// matching everything.
func (b *BM25Searcher) Search(ctx context.Context, query string, f Filters, k int) ([]BM25Result, error) {
	matchExpr := escapeFTS5Query(query)
	if matchExpr == "" {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString(`
		SELECT c.id, -bm25(chunks_fts) AS score
		FROM chunks_fts
		JOIN chunks c ON c.rowid = chunks_fts.rowid
		JOIN documents d ON d.id = c.doc_id
		WHERE chunks_fts MATCH ?
	`)
	args := []any{matchExpr}

	if f.Namespace != "" {
		sb.WriteString(" AND d.namespace = ?")
		args = append(args, f.Namespace)
	}
	if f.Agent != "" {
		sb.WriteString(" AND d.agent_name = ?")
		args = append(args, f.Agent)
	}
	if len(f.DocTypes) > 0 {
		placeholders := make([]string, len(f.DocTypes))
		for i, dt := range f.DocTypes {
			placeholders[i] = "?"
			args = append(args, dt)
		}
		sb.WriteString(fmt.Sprintf(" AND d.doc_type IN (%s)", strings.Join(placeholders, ",")))
	}

	sb.WriteString(" ORDER BY score DESC, c.id ASC LIMIT ?")
	args = append(args, k)

	rows, err := b.st.DB().QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("bm25 search: %w", err)
	}
	defer rows.Close()

	var results []BM25Result
	for rows.Next() {
		var r BM25Result
		if err := rows.Scan(&r.ChunkID, &r.Score); err != nil {
			return nil, fmt.Errorf("scan bm25 row: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// escapeFTS5Query turns free text into a safe FTS5 MATCH expression: every
// whitespace-separated token is quoted as a literal string, so none of
// FTS5's operators (AND, OR, NOT, NEAR, *, -, :, parentheses) are
// interpreted from user input. An empty or whitespace-only query yields "".
func escapeFTS5Query(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	quoted := make([]string, len(fields))
	for i, tok := range fields {
		quoted[i] = `"` + strings.ReplaceAll(tok, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " ")
}
