// Package ingest walks a document corpus, reconciles it against the store
// by content hash, and writes parsed, chunked documents atomically, per
// §4.4.
package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mr-nozko/rag-mcp/internal/chunk"
	"github.com/mr-nozko/rag-mcp/internal/graphrel"
	"github.com/mr-nozko/rag-mcp/internal/parse"
	"github.com/mr-nozko/rag-mcp/internal/rerr"
	"github.com/mr-nozko/rag-mcp/internal/store"
)

// Ingester reconciles a corpus directory with a Store.
type Ingester struct {
	st         *store.Store
	root       string
	allowedExt map[string]bool
	chunker    *chunk.Chunker
}

// Options configures an Ingester.
type Options struct {
	Root              string
	AllowedExtensions []string
	Chunk             chunk.Options
}

func New(st *store.Store, opts Options) *Ingester {
	return &Ingester{
		st:         st,
		root:       opts.Root,
		allowedExt: extensionSet(opts.AllowedExtensions),
		chunker:    chunk.New(opts.Chunk),
	}
}

// Run executes one ingest pass: algorithm per §4.4.
func (ing *Ingester) Run(ctx context.Context, force, cleanup bool) (*Report, error) {
	paths, err := walkCorpus(ing.root, ing.allowedExt)
	if err != nil {
		return nil, rerr.Wrap(rerr.StoreError, fmt.Errorf("walk corpus: %w", err))
	}

	existingHashes, err := ing.st.ExistingHashesByPath(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{Scanned: len(paths)}
	seen := make(map[string]bool, len(paths))

	for _, relPath := range paths {
		seen[relPath] = true

		raw, err := readFile(ing.absPath(relPath))
		if err != nil {
			report.Errors = append(report.Errors, DocumentError{Path: relPath, Err: err})
			continue
		}
		if parse.IsBinary(raw) {
			continue
		}

		hash := store.HashContent(raw)
		prevHash, existed := existingHashes[relPath]
		if existed && prevHash == hash && !force {
			report.Unchanged++
			continue
		}

		modified, err := modTime(ing.absPath(relPath))
		if err != nil {
			report.Errors = append(report.Errors, DocumentError{Path: relPath, Err: err})
			continue
		}

		if err := ing.ingestOne(ctx, relPath, raw, hash, modified, ""); err != nil {
			if rerr.KindOf(err) == rerr.ParseError {
				report.Errors = append(report.Errors, DocumentError{Path: relPath, Err: err})
				continue
			}
			return report, err
		}

		if existed {
			report.Updated++
		} else {
			report.Created++
		}
	}

	if cleanup {
		for path := range existingHashes {
			if seen[path] {
				continue
			}
			if err := ing.st.Transaction(ctx, func(tx *sql.Tx) error {
				return store.DeleteDocumentByPath(ctx, tx, path)
			}); err != nil {
				return report, err
			}
			report.Removed++
		}
	}

	return report, nil
}

// IngestPath re-ingests a single already-written file immediately, the path
// the update_doc tool takes so newly written content is searchable before
// the call returns (§4.10).
func (ing *Ingester) IngestPath(ctx context.Context, relPath string) (*store.Document, error) {
	return ing.IngestPathWithType(ctx, relPath, "")
}

// IngestPathWithType is IngestPath with an optional doc_type override,
// the create_doc tool's path for overriding the extension-inferred type.
func (ing *Ingester) IngestPathWithType(ctx context.Context, relPath, docTypeOverride string) (*store.Document, error) {
	raw, err := readFile(ing.absPath(relPath))
	if err != nil {
		return nil, rerr.Wrap(rerr.StoreError, fmt.Errorf("read %s: %w", relPath, err))
	}
	modified, err := modTime(ing.absPath(relPath))
	if err != nil {
		return nil, rerr.Wrap(rerr.StoreError, fmt.Errorf("stat %s: %w", relPath, err))
	}
	hash := store.HashContent(raw)
	if err := ing.ingestOne(ctx, relPath, raw, hash, modified, docTypeOverride); err != nil {
		return nil, err
	}
	return ing.st.GetDocumentByPath(ctx, relPath)
}

// ingestOne parses, chunks, and writes a single document inside one write
// transaction, the document-granularity crash consistency unit §4.4 names.
// docTypeOverride, when non-empty, replaces the extension-inferred doc type.
func (ing *Ingester) ingestOne(ctx context.Context, relPath string, raw []byte, hash string, modified time.Time, docTypeOverride string) error {
	units, err := parse.Parse(raw, relPath)
	if err != nil {
		return err
	}

	chunks := ing.chunker.Chunk(units)

	dt := docType(relPath)
	if docTypeOverride != "" {
		dt = docTypeOverride
	}

	doc := &store.Document{
		Path:        relPath,
		DocType:     dt,
		Namespace:   namespace(relPath),
		AgentName:   agentName(relPath),
		ContentText: string(raw),
		TokenCount:  chunk.EstimateTokens(string(raw)),
		FileHash:    hash,
		ModifiedAt:  modified,
	}

	storeChunks := make([]*store.Chunk, len(chunks))
	for i, c := range chunks {
		storeChunks[i] = &store.Chunk{
			ChunkIndex:    c.Index,
			Text:          c.Text,
			TokenCount:    c.TokenCount,
			SectionHeader: c.SectionHeader,
		}
	}

	return ing.st.Transaction(ctx, func(tx *sql.Tx) error {
		if err := store.UpsertDocument(ctx, tx, doc); err != nil {
			return err
		}
		if err := store.ReplaceChunks(ctx, tx, doc.ID, storeChunks); err != nil {
			return err
		}
		for _, c := range storeChunks {
			rels := graphrel.Extract(c.Text)
			if err := store.InsertEntityRelations(ctx, tx, c.ID, rels); err != nil {
				return err
			}
		}
		return nil
	})
}

func (ing *Ingester) absPath(relPath string) string {
	return filepath.Join(ing.root, relPath)
}
