package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mr-nozko/rag-mcp/internal/rerr"
)

// QueryLogEntry is the append-only retrieval record §3 describes — written
// by the Fusion engine after every search, driving telemetry.
type QueryLogEntry struct {
	QueryText        string
	NamespaceFilter  string // empty if unfiltered
	RetrievalMethod  string // "hybrid" | "bm25_only" | "vector_only"
	ReturnedChunkIDs []string
	LatencyMS        int64
	ResultCount      int
	LoggedAt         time.Time
}

// LogQuery appends a query-log row. Called asynchronously by the Fusion
// engine per §4.8 step 6, so a logging failure never blocks a search
// response — callers should log.Warn on error rather than propagate it.
func (s *Store) LogQuery(ctx context.Context, e QueryLogEntry) error {
	idsJSON, err := json.Marshal(e.ReturnedChunkIDs)
	if err != nil {
		return rerr.Wrap(rerr.Internal, fmt.Errorf("marshal returned chunk ids: %w", err))
	}

	loggedAt := e.LoggedAt
	if loggedAt.IsZero() {
		loggedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO query_log (query_text, namespace_filter, retrieval_method, returned_chunk_ids, latency_ms, result_count, logged_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.QueryText, nullableString(e.NamespaceFilter), e.RetrievalMethod, string(idsJSON), e.LatencyMS, e.ResultCount, loggedAt.Unix())
	if err != nil {
		return rerr.Wrap(rerr.StoreError, fmt.Errorf("log query: %w", err))
	}
	return nil
}

// AuditEntry is the append-only write-tool record §3 describes — written
// by the Dispatcher once per mutating call, after its outcome is known.
type AuditEntry struct {
	Operation    string // "create_doc" | "update_doc" | "delete_doc"
	DocPath      string
	Success      bool
	ErrorMessage string // empty on success
	LoggedAt     time.Time
}

// LogAudit appends an audit-log row, regardless of the operation's outcome
// per §4.10's "append an audit entry regardless of outcome" rule.
func (s *Store) LogAudit(ctx context.Context, e AuditEntry) error {
	loggedAt := e.LoggedAt
	if loggedAt.IsZero() {
		loggedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (operation, doc_path, success, error_message, logged_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.Operation, e.DocPath, boolToInt(e.Success), nullableString(e.ErrorMessage), loggedAt.Unix())
	if err != nil {
		return rerr.Wrap(rerr.StoreError, fmt.Errorf("log audit entry: %w", err))
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// GetState reads a single kv_state value, returning "" if absent.
func (s *Store) GetState(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_state WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return "", nil
		}
		return "", rerr.Wrap(rerr.StoreError, fmt.Errorf("get state %s: %w", key, err))
	}
	return value, nil
}

// SetState upserts a single kv_state value.
func (s *Store) SetState(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return rerr.Wrap(rerr.StoreError, fmt.Errorf("set state %s: %w", key, err))
	}
	return nil
}
