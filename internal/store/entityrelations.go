package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mr-nozko/rag-mcp/internal/rerr"
)

// EntityRelation is the (source_entity, relation_type, target_entity)
// triple §3 describes, extracted heuristically from chunk text during
// ingest and consumed only by the `related` tool.
type EntityRelation struct {
	ID           int64
	SourceEntity string
	RelationType string
	TargetEntity string
	ChunkID      string // empty if not tied to a specific chunk
	CreatedAt    time.Time
}

// InsertEntityRelations writes a batch of relations inside tx, called by
// the Ingester alongside ReplaceChunks for the same document.
func InsertEntityRelations(ctx context.Context, tx *sql.Tx, docChunkID string, rels []EntityRelation) error {
	if len(rels) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entity_relations (source_entity, relation_type, target_entity, chunk_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return rerr.Wrap(rerr.StoreError, fmt.Errorf("prepare entity relation insert: %w", err))
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, r := range rels {
		chunkID := r.ChunkID
		if chunkID == "" {
			chunkID = docChunkID
		}
		if _, err := stmt.ExecContext(ctx, r.SourceEntity, r.RelationType, r.TargetEntity, nullableString(chunkID), now); err != nil {
			return rerr.Wrap(rerr.StoreError, fmt.Errorf("insert entity relation %s->%s: %w", r.SourceEntity, r.TargetEntity, err))
		}
	}
	return nil
}

// RelationsFrom returns every relation whose source_entity matches entity,
// optionally restricted to relationTypes (empty means all types) — the
// one-hop expansion step the `related` tool's BFS repeats up to max_depth.
func (s *Store) RelationsFrom(ctx context.Context, entity string, relationTypes []string) ([]EntityRelation, error) {
	query := `SELECT id, source_entity, relation_type, target_entity, chunk_id, created_at FROM entity_relations WHERE source_entity = ?`
	args := []any{entity}
	if len(relationTypes) > 0 {
		placeholders := make([]string, len(relationTypes))
		for i, t := range relationTypes {
			placeholders[i] = "?"
			args = append(args, t)
		}
		query += fmt.Sprintf(` AND relation_type IN (%s)`, joinComma(placeholders))
	}
	query += ` ORDER BY target_entity ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, rerr.Wrap(rerr.StoreError, fmt.Errorf("query relations from %s: %w", entity, err))
	}
	defer rows.Close()

	var rels []EntityRelation
	for rows.Next() {
		var r EntityRelation
		var chunkID sql.NullString
		var createdAt int64
		if err := rows.Scan(&r.ID, &r.SourceEntity, &r.RelationType, &r.TargetEntity, &chunkID, &createdAt); err != nil {
			return nil, rerr.Wrap(rerr.StoreError, fmt.Errorf("scan relation row: %w", err))
		}
		r.ChunkID = chunkID.String
		r.CreatedAt = time.Unix(createdAt, 0)
		rels = append(rels, r)
	}
	return rels, rows.Err()
}
