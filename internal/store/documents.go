package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mr-nozko/rag-mcp/internal/rerr"
)

// Document mirrors §3's Document entity: identity is Path, relative to the
// corpus root and unique.
type Document struct {
	ID          string
	Path        string
	DocType     string
	Namespace   string
	AgentName   string // empty if not inferred
	ContentText string
	TokenCount  int
	FileHash    string
	ModifiedAt  time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HashContent returns the SHA-256 hex digest of canonicalised document
// bytes, the value stored as FileHash and re-checked by the invariant in §3.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// NewDocumentID mints an opaque id for a document not yet in the store.
func NewDocumentID() string {
	return uuid.NewString()
}

// UpsertDocument inserts a new document row, or updates an existing one by
// path (the identity §3 names), inside tx. Callers own the transaction so
// chunk cascade-delete-then-insert (§4.4) happens atomically alongside.
func UpsertDocument(ctx context.Context, tx *sql.Tx, d *Document) error {
	if d.ID == "" {
		d.ID = NewDocumentID()
	}
	now := time.Now()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	_, err := tx.ExecContext(ctx, `
		INSERT INTO documents (id, path, doc_type, namespace, agent_name, content_text, token_count, file_hash, modified_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			doc_type = excluded.doc_type,
			namespace = excluded.namespace,
			agent_name = excluded.agent_name,
			content_text = excluded.content_text,
			token_count = excluded.token_count,
			file_hash = excluded.file_hash,
			modified_at = excluded.modified_at,
			updated_at = excluded.updated_at
	`,
		d.ID, d.Path, d.DocType, d.Namespace, nullableString(d.AgentName), d.ContentText, d.TokenCount, d.FileHash,
		d.ModifiedAt.Unix(), d.CreatedAt.Unix(), d.UpdatedAt.Unix(),
	)
	if err != nil {
		return rerr.Wrap(rerr.StoreError, fmt.Errorf("upsert document %s: %w", d.Path, err))
	}

	// ON CONFLICT DO UPDATE doesn't tell us the pre-existing id; reload it
	// so the caller's document (and its chunks) use the row that actually
	// persisted.
	row := tx.QueryRowContext(ctx, `SELECT id FROM documents WHERE path = ?`, d.Path)
	if err := row.Scan(&d.ID); err != nil {
		return rerr.Wrap(rerr.StoreError, fmt.Errorf("reload document id for %s: %w", d.Path, err))
	}
	return nil
}

// GetDocumentByPath fetches a document by its unique path. Returns a
// rerr.NotFound error if absent.
func (s *Store) GetDocumentByPath(ctx context.Context, path string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, documentSelectCols+` WHERE path = ?`, path)
	return scanDocument(row)
}

// GetDocumentByID fetches a document by its opaque id.
func (s *Store) GetDocumentByID(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, documentSelectCols+` WHERE id = ?`, id)
	return scanDocument(row)
}

const documentSelectCols = `
	SELECT id, path, doc_type, namespace, agent_name, content_text, token_count, file_hash, modified_at, created_at, updated_at
	FROM documents
`

func scanDocument(row *sql.Row) (*Document, error) {
	var d Document
	var agentName sql.NullString
	var modifiedAt, createdAt, updatedAt int64

	err := row.Scan(&d.ID, &d.Path, &d.DocType, &d.Namespace, &agentName, &d.ContentText, &d.TokenCount,
		&d.FileHash, &modifiedAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rerr.Missing("document not found")
	}
	if err != nil {
		return nil, rerr.Wrap(rerr.StoreError, fmt.Errorf("scan document: %w", err))
	}

	d.AgentName = agentName.String
	d.ModifiedAt = time.Unix(modifiedAt, 0)
	d.CreatedAt = time.Unix(createdAt, 0)
	d.UpdatedAt = time.Unix(updatedAt, 0)
	return &d, nil
}

// ListDocumentsByNamespace returns every document in a namespace, ordered
// by path for determinism.
func (s *Store) ListDocumentsByNamespace(ctx context.Context, namespace string) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, doc_type, namespace, agent_name, content_text, token_count, file_hash, modified_at, created_at, updated_at
		FROM documents WHERE namespace = ? ORDER BY path ASC
	`, namespace)
	if err != nil {
		return nil, rerr.Wrap(rerr.StoreError, fmt.Errorf("list documents by namespace %s: %w", namespace, err))
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// ListNamespaces returns the distinct set of namespaces present in the
// index, ordered alphabetically.
func (s *Store) ListNamespaces(ctx context.Context) ([]string, error) {
	return s.distinctStrings(ctx, `SELECT DISTINCT namespace FROM documents ORDER BY namespace ASC`)
}

// ListDocTypes returns the distinct set of document types present.
func (s *Store) ListDocTypes(ctx context.Context) ([]string, error) {
	return s.distinctStrings(ctx, `SELECT DISTINCT doc_type FROM documents ORDER BY doc_type ASC`)
}

// ListAgents returns the distinct set of non-empty agent names present.
func (s *Store) ListAgents(ctx context.Context) ([]string, error) {
	return s.distinctStrings(ctx, `SELECT DISTINCT agent_name FROM documents WHERE agent_name IS NOT NULL AND agent_name != '' ORDER BY agent_name ASC`)
}

func (s *Store) distinctStrings(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, rerr.Wrap(rerr.StoreError, fmt.Errorf("query distinct values: %w", err))
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, rerr.Wrap(rerr.StoreError, fmt.Errorf("scan distinct value: %w", err))
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func scanDocuments(rows *sql.Rows) ([]*Document, error) {
	var docs []*Document
	for rows.Next() {
		var d Document
		var agentName sql.NullString
		var modifiedAt, createdAt, updatedAt int64
		if err := rows.Scan(&d.ID, &d.Path, &d.DocType, &d.Namespace, &agentName, &d.ContentText, &d.TokenCount,
			&d.FileHash, &modifiedAt, &createdAt, &updatedAt); err != nil {
			return nil, rerr.Wrap(rerr.StoreError, fmt.Errorf("scan document row: %w", err))
		}
		d.AgentName = agentName.String
		d.ModifiedAt = time.Unix(modifiedAt, 0)
		d.CreatedAt = time.Unix(createdAt, 0)
		d.UpdatedAt = time.Unix(updatedAt, 0)
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}

// ExistingHashesByPath returns a path→file_hash map for every document,
// the lookup §4.4's reconciliation pass joins candidate paths against.
func (s *Store) ExistingHashesByPath(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, file_hash FROM documents`)
	if err != nil {
		return nil, rerr.Wrap(rerr.StoreError, fmt.Errorf("query existing hashes: %w", err))
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, rerr.Wrap(rerr.StoreError, fmt.Errorf("scan hash row: %w", err))
		}
		hashes[path] = hash
	}
	return hashes, rows.Err()
}

// DeleteDocumentByPath removes a document (cascading to its chunks) inside
// tx. Returns rerr.NotFound if no row matched.
func DeleteDocumentByPath(ctx context.Context, tx *sql.Tx, path string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, path)
	if err != nil {
		return rerr.Wrap(rerr.StoreError, fmt.Errorf("delete document %s: %w", path, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return rerr.Wrap(rerr.StoreError, fmt.Errorf("rows affected for delete %s: %w", path, err))
	}
	if n == 0 {
		return rerr.Missing("document %q not found", path)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
