package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/mr-nozko/rag-mcp/internal/rerr"
)

// Chunk mirrors §3's Chunk entity: belongs to exactly one Document, ordered
// (doc_id, chunk_index) unique. Embedding is nil until the Embedder runs.
type Chunk struct {
	ID            string
	DocID         string
	ChunkIndex    int
	Text          string
	TokenCount    int
	SectionHeader string // empty if absent
	ChunkType     string // empty if absent
	Embedding     []float32
	CreatedAt     time.Time
}

// NewChunkID mints an opaque id for a chunk not yet in the store.
func NewChunkID() string {
	return uuid.NewString()
}

// EncodeEmbedding serializes a float32 vector as a little-endian BLOB, the
// wire format §4.1 mandates for the embedding column.
func EncodeEmbedding(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeEmbedding reinterprets a little-endian BLOB as a float32 vector.
func DecodeEmbedding(buf []byte) []float32 {
	n := len(buf) / 4
	vec := make([]float32, n)
	for i := 0; i < n; i++ {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}

// ReplaceChunks deletes every existing chunk for docID and inserts the
// given chunks inside tx — the cascade-delete-then-insert §4.4 describes
// for a changed document.
func ReplaceChunks(ctx context.Context, tx *sql.Tx, docID string, chunks []*Chunk) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE doc_id = ?`, docID); err != nil {
		return rerr.Wrap(rerr.StoreError, fmt.Errorf("delete existing chunks for %s: %w", docID, err))
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, doc_id, chunk_index, text, token_count, section_header, chunk_type, embedding, embedding_dims, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return rerr.Wrap(rerr.StoreError, fmt.Errorf("prepare chunk insert: %w", err))
	}
	defer stmt.Close()

	now := time.Now()
	for _, c := range chunks {
		if c.ID == "" {
			c.ID = NewChunkID()
		}
		c.DocID = docID
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}

		var blob []byte
		var dims int
		if len(c.Embedding) > 0 {
			blob = EncodeEmbedding(c.Embedding)
			dims = len(c.Embedding)
		}

		_, err := stmt.ExecContext(ctx, c.ID, c.DocID, c.ChunkIndex, c.Text, c.TokenCount,
			nullableString(c.SectionHeader), nullableString(c.ChunkType), blob, dims, c.CreatedAt.Unix())
		if err != nil {
			return rerr.Wrap(rerr.StoreError, fmt.Errorf("insert chunk %d for %s: %w", c.ChunkIndex, docID, err))
		}
	}
	return nil
}

const chunkSelectCols = `
	SELECT id, doc_id, chunk_index, text, token_count, section_header, chunk_type, embedding, created_at
	FROM chunks
`

func scanChunkRow(scanner interface {
	Scan(dest ...any) error
}) (*Chunk, error) {
	var c Chunk
	var sectionHeader, chunkType sql.NullString
	var embedding []byte
	var createdAt int64

	if err := scanner.Scan(&c.ID, &c.DocID, &c.ChunkIndex, &c.Text, &c.TokenCount, &sectionHeader, &chunkType, &embedding, &createdAt); err != nil {
		return nil, err
	}
	c.SectionHeader = sectionHeader.String
	c.ChunkType = chunkType.String
	if len(embedding) > 0 {
		c.Embedding = DecodeEmbedding(embedding)
	}
	c.CreatedAt = time.Unix(createdAt, 0)
	return &c, nil
}

// GetChunk fetches a single chunk by id.
func (s *Store) GetChunk(ctx context.Context, id string) (*Chunk, error) {
	row := s.db.QueryRowContext(ctx, chunkSelectCols+` WHERE id = ?`, id)
	c, err := scanChunkRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rerr.Missing("chunk %q not found", id)
	}
	if err != nil {
		return nil, rerr.Wrap(rerr.StoreError, fmt.Errorf("scan chunk %s: %w", id, err))
	}
	return c, nil
}

// GetChunks fetches chunks by id, skipping ids that don't exist. The
// returned slice is ordered to match ids where possible.
func (s *Store) GetChunks(ctx context.Context, ids []string) ([]*Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := chunkSelectCols + fmt.Sprintf(` WHERE id IN (%s)`, joinComma(placeholders))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, rerr.Wrap(rerr.StoreError, fmt.Errorf("get chunks: %w", err))
	}
	defer rows.Close()

	byID := make(map[string]*Chunk, len(ids))
	for rows.Next() {
		c, err := scanChunkRow(rows)
		if err != nil {
			return nil, rerr.Wrap(rerr.StoreError, fmt.Errorf("scan chunk row: %w", err))
		}
		byID[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, rerr.Wrap(rerr.StoreError, err)
	}

	ordered := make([]*Chunk, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			ordered = append(ordered, c)
		}
	}
	return ordered, nil
}

// GetChunksByDoc returns every chunk belonging to docID, ordered by index.
func (s *Store) GetChunksByDoc(ctx context.Context, docID string) ([]*Chunk, error) {
	rows, err := s.db.QueryContext(ctx, chunkSelectCols+` WHERE doc_id = ? ORDER BY chunk_index ASC`, docID)
	if err != nil {
		return nil, rerr.Wrap(rerr.StoreError, fmt.Errorf("get chunks by doc %s: %w", docID, err))
	}
	defer rows.Close()

	var chunks []*Chunk
	for rows.Next() {
		c, err := scanChunkRow(rows)
		if err != nil {
			return nil, rerr.Wrap(rerr.StoreError, fmt.Errorf("scan chunk row: %w", err))
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// ChunksMissingEmbeddings returns up to limit chunks with a NULL embedding,
// in deterministic (ascending) id order, the pagination contract §4.5
// requires for embed_missing.
func (s *Store) ChunksMissingEmbeddings(ctx context.Context, limit int) ([]*Chunk, error) {
	rows, err := s.db.QueryContext(ctx, chunkSelectCols+` WHERE embedding IS NULL ORDER BY id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, rerr.Wrap(rerr.StoreError, fmt.Errorf("query chunks missing embeddings: %w", err))
	}
	defer rows.Close()

	var chunks []*Chunk
	for rows.Next() {
		c, err := scanChunkRow(rows)
		if err != nil {
			return nil, rerr.Wrap(rerr.StoreError, fmt.Errorf("scan chunk row: %w", err))
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// ClearEmbeddings resets every chunk's embedding to NULL, so a subsequent
// embed_missing run re-embeds the whole corpus (the `embed --force` path).
func (s *Store) ClearEmbeddings(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE chunks SET embedding = NULL`); err != nil {
		return rerr.Wrap(rerr.StoreError, fmt.Errorf("clear embeddings: %w", err))
	}
	return nil
}

// AllChunksWithEmbeddings returns every chunk bearing a non-null embedding,
// the candidate set §4.7's brute-force vector scan loads.
func (s *Store) AllChunksWithEmbeddings(ctx context.Context) ([]*Chunk, error) {
	rows, err := s.db.QueryContext(ctx, chunkSelectCols+` WHERE embedding IS NOT NULL ORDER BY id ASC`)
	if err != nil {
		return nil, rerr.Wrap(rerr.StoreError, fmt.Errorf("query chunks with embeddings: %w", err))
	}
	defer rows.Close()

	var chunks []*Chunk
	for rows.Next() {
		c, err := scanChunkRow(rows)
		if err != nil {
			return nil, rerr.Wrap(rerr.StoreError, fmt.Errorf("scan chunk row: %w", err))
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// SetChunkEmbedding writes a single chunk's embedding inside tx, used by
// the Embedder to commit a successfully-embedded prefix of a batch even if
// a later page fails (§4.5's partial-failure rule).
func SetChunkEmbedding(ctx context.Context, tx *sql.Tx, chunkID string, embedding []float32) error {
	blob := EncodeEmbedding(embedding)
	_, err := tx.ExecContext(ctx, `UPDATE chunks SET embedding = ?, embedding_dims = ? WHERE id = ?`, blob, len(embedding), chunkID)
	if err != nil {
		return rerr.Wrap(rerr.StoreError, fmt.Errorf("set embedding for chunk %s: %w", chunkID, err))
	}
	return nil
}

// joinComma joins SQL placeholders with commas.
func joinComma(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += "," + p
	}
	return out
}
