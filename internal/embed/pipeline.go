package embed

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mr-nozko/rag-mcp/internal/rerr"
	"github.com/mr-nozko/rag-mcp/internal/store"
)

// Report summarizes one embed_missing run (§4.5).
type Report struct {
	Requested int
	Embedded  int
	Skipped   int
	Errors    []ChunkError
}

// ChunkError records a single chunk's embedding failure, non-fatal to the
// overall run.
type ChunkError struct {
	ChunkID string
	Err     error
}

// Pipeline pages chunks missing an embedding, calls an Embedder in batches,
// and writes results back a batch at a time so a successfully embedded
// prefix survives a later batch's failure (§4.5).
type Pipeline struct {
	st        *store.Store
	embedder  Embedder
	batchSize int
}

// PipelineOptions configures a Pipeline.
type PipelineOptions struct {
	BatchSize int
}

func NewPipeline(st *store.Store, embedder Embedder, opts PipelineOptions) *Pipeline {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Pipeline{st: st, embedder: embedder, batchSize: batchSize}
}

// Run embeds every chunk currently missing an embedding. A batch-level
// provider failure (retries exhausted) stops the run and returns the error
// alongside the partial report; batches already committed stay committed.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{}
	dims := p.embedder.Dimensions()
	skipped := make(map[string]bool)

	for {
		candidates, err := p.st.ChunksMissingEmbeddings(ctx, p.batchSize+len(skipped))
		if err != nil {
			return report, err
		}
		var page []*store.Chunk
		for _, c := range candidates {
			if !skipped[c.ID] && len(page) < p.batchSize {
				page = append(page, c)
			}
		}
		if len(page) == 0 {
			break
		}
		report.Requested += len(page)

		texts := make([]string, len(page))
		for i, c := range page {
			texts[i] = c.Text
		}

		vecs, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return report, rerr.Wrap(rerr.EmbeddingError, fmt.Errorf("embed batch: %w", err))
		}

		errsBefore := len(report.Errors)
		if err := p.commitBatch(ctx, page, vecs, dims, report); err != nil {
			return report, err
		}
		for _, ce := range report.Errors[errsBefore:] {
			skipped[ce.ChunkID] = true
		}
	}

	return report, nil
}

// commitBatch writes one batch's embeddings inside a single transaction.
// A chunk whose returned vector doesn't match the configured dimension is
// skipped and reported rather than written, per §4.5's dimension check.
func (p *Pipeline) commitBatch(ctx context.Context, page []*store.Chunk, vecs [][]float32, dims int, report *Report) error {
	return p.st.Transaction(ctx, func(tx *sql.Tx) error {
		for i, c := range page {
			vec := vecs[i]
			if len(vec) != dims {
				report.Skipped++
				report.Errors = append(report.Errors, ChunkError{
					ChunkID: c.ID,
					Err:     fmt.Errorf("embedding dimension %d does not match configured %d", len(vec), dims),
				})
				continue
			}
			if err := store.SetChunkEmbedding(ctx, tx, c.ID, vec); err != nil {
				return err
			}
			report.Embedded++
		}
		return nil
	})
}
