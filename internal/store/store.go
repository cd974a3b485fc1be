// Package store is the SQLite-backed persistence layer: documents, chunks,
// their FTS5 shadow table, entity relations, the query log, and the audit
// log. A single *Store wraps one database file opened with WAL journaling
// and a single-writer connection pool.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure-Go driver, no CGO

	"github.com/mr-nozko/rag-mcp/internal/rerr"
)

// Store owns the database handle and enforces the single-writer contract
// described in §4.1: one *sql.DB with MaxOpenConns(1) so every write is
// serialized through SQLite's own locking instead of Go-level contention.
type Store struct {
	db       *sql.DB
	path     string
	readonly bool
}

// Open opens (creating if necessary) the database at path, sets connection
// pragmas, and applies any unapplied migrations. Pass readonly=true for a
// handle that will never write (e.g. a read replica for dashboards).
func Open(ctx context.Context, path string, readonly bool) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, rerr.Wrap(rerr.StoreError, fmt.Errorf("create store directory %s: %w", dir, err))
			}
		}
	}

	dsn := path
	if path != ":memory:" {
		mode := "rwc"
		if readonly {
			mode = "ro"
		}
		dsn = fmt.Sprintf("%s?mode=%s&_pragma=busy_timeout(5000)", path, mode)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, rerr.Wrap(rerr.StoreError, fmt.Errorf("open database: %w", err))
	}

	// Single writer: SQLite serializes at the connection level, avoiding
	// SQLITE_BUSY storms under concurrent Go-level access.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	if !readonly {
		pragmas = append([]string{"PRAGMA journal_mode = WAL"}, pragmas...)
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, rerr.Wrap(rerr.StoreError, fmt.Errorf("set pragma %q: %w", p, err))
		}
	}

	s := &Store{db: db, path: path, readonly: readonly}

	if !readonly {
		if err := s.migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return s, nil
}

// Close releases the database handle, checkpointing the WAL first.
func (s *Store) Close() error {
	if !s.readonly {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	}
	return s.db.Close()
}

// DB exposes the underlying handle for read-only query composition by
// sibling packages (the BM25 searcher's FTS5 MATCH queries, the vector
// searcher's embedding scan). Mutating callers outside this package must
// not use it; go through Store's typed methods instead.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Transaction executes f inside a BEGIN … COMMIT block (SQLite's default
// deferred transaction, opened by BeginTx with default options), rolling
// back on any error f returns — the single-document-granularity write unit
// §4.1 and §4.4 describe.
func (s *Store) Transaction(ctx context.Context, f func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return rerr.Wrap(rerr.StoreError, fmt.Errorf("begin transaction: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	if err := f(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return rerr.Wrap(rerr.StoreError, fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}
