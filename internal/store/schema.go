package store

import (
	"context"
	"fmt"

	"github.com/mr-nozko/rag-mcp/internal/rerr"
)

// migration is one ordered, idempotent schema step, applied in its own
// transaction and recorded in schema_migrations per §4.1.
type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		name:    "initial_schema",
		sql: `
CREATE TABLE IF NOT EXISTS documents (
	id            TEXT PRIMARY KEY,
	path          TEXT NOT NULL UNIQUE,
	doc_type      TEXT NOT NULL,
	namespace     TEXT NOT NULL,
	agent_name    TEXT,
	content_text  TEXT NOT NULL,
	token_count   INTEGER NOT NULL DEFAULT 0,
	file_hash     TEXT NOT NULL,
	modified_at   INTEGER NOT NULL,
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_namespace ON documents(namespace);
CREATE INDEX IF NOT EXISTS idx_documents_doc_type ON documents(doc_type);
CREATE INDEX IF NOT EXISTS idx_documents_agent_name ON documents(agent_name);

CREATE TABLE IF NOT EXISTS chunks (
	id             TEXT PRIMARY KEY,
	doc_id         TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	chunk_index    INTEGER NOT NULL,
	text           TEXT NOT NULL,
	token_count    INTEGER NOT NULL,
	section_header TEXT,
	chunk_type     TEXT,
	embedding      BLOB,
	embedding_dims INTEGER NOT NULL DEFAULT 0,
	created_at     INTEGER NOT NULL,
	UNIQUE(doc_id, chunk_index)
);

CREATE INDEX IF NOT EXISTS idx_chunks_doc_id ON chunks(doc_id);
CREATE INDEX IF NOT EXISTS idx_chunks_embedding_null ON chunks(id) WHERE embedding IS NULL;

CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
	chunk_text,
	section_header,
	content='chunks',
	content_rowid='rowid',
	tokenize='porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS chunks_ai AFTER INSERT ON chunks BEGIN
	INSERT INTO chunks_fts(rowid, chunk_text, section_header)
	VALUES (new.rowid, new.text, coalesce(new.section_header, ''));
END;

CREATE TRIGGER IF NOT EXISTS chunks_ad AFTER DELETE ON chunks BEGIN
	INSERT INTO chunks_fts(chunks_fts, rowid, chunk_text, section_header)
	VALUES ('delete', old.rowid, old.text, coalesce(old.section_header, ''));
END;

CREATE TRIGGER IF NOT EXISTS chunks_au AFTER UPDATE ON chunks BEGIN
	INSERT INTO chunks_fts(chunks_fts, rowid, chunk_text, section_header)
	VALUES ('delete', old.rowid, old.text, coalesce(old.section_header, ''));
	INSERT INTO chunks_fts(rowid, chunk_text, section_header)
	VALUES (new.rowid, new.text, coalesce(new.section_header, ''));
END;

CREATE TABLE IF NOT EXISTS entity_relations (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	source_entity   TEXT NOT NULL,
	relation_type   TEXT NOT NULL,
	target_entity   TEXT NOT NULL,
	chunk_id        TEXT REFERENCES chunks(id) ON DELETE SET NULL,
	created_at      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entity_relations_source ON entity_relations(source_entity);
CREATE INDEX IF NOT EXISTS idx_entity_relations_target ON entity_relations(target_entity);

CREATE TABLE IF NOT EXISTS query_log (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	query_text        TEXT NOT NULL,
	namespace_filter  TEXT,
	retrieval_method  TEXT NOT NULL,
	returned_chunk_ids TEXT NOT NULL,
	latency_ms        INTEGER NOT NULL,
	result_count      INTEGER NOT NULL,
	logged_at         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	operation     TEXT NOT NULL,
	doc_path      TEXT NOT NULL,
	success       INTEGER NOT NULL,
	error_message TEXT,
	logged_at     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS kv_state (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`,
	},
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return rerr.Wrap(rerr.StoreError, fmt.Errorf("create schema_migrations: %w", err))
	}

	for _, m := range migrations {
		var applied int
		err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, m.version).Scan(&applied)
		if err != nil {
			return rerr.Wrap(rerr.StoreError, fmt.Errorf("check migration %d: %w", m.version, err))
		}
		if applied > 0 {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return rerr.Wrap(rerr.StoreError, fmt.Errorf("begin migration %d: %w", m.version, err))
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			_ = tx.Rollback()
			return rerr.Wrap(rerr.StoreError, fmt.Errorf("apply migration %d (%s): %w", m.version, m.name, err))
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, strftime('%s','now'))`, m.version, m.name); err != nil {
			_ = tx.Rollback()
			return rerr.Wrap(rerr.StoreError, fmt.Errorf("record migration %d: %w", m.version, err))
		}
		if err := tx.Commit(); err != nil {
			return rerr.Wrap(rerr.StoreError, fmt.Errorf("commit migration %d: %w", m.version, err))
		}
	}

	return nil
}
