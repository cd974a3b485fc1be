package search

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/mr-nozko/rag-mcp/internal/embed"
	"github.com/mr-nozko/rag-mcp/internal/rerr"
	"github.com/mr-nozko/rag-mcp/internal/store"
)

// Config configures an Engine.
type Config struct {
	Weights        Weights
	DefaultLimit   int
	MaxLimit       int
	QueryCacheSize int
}

// DefaultConfig returns the engine defaults per §4.8.
func DefaultConfig() Config {
	return Config{
		Weights:        DefaultWeights(),
		DefaultLimit:   10,
		MaxLimit:       100,
		QueryCacheSize: embed.DefaultEmbeddingCacheSize,
	}
}

// Query is one search() invocation's parameters, the contract §4.8 names.
type Query struct {
	Text      string
	K         int
	KExplicit bool // true when the caller set K, even to zero; see §8's k=0 law
	Namespace string
	Agent     string
	MinScore  float64
	Overfetch int // 0 means unset
}

// Engine is the hybrid search orchestrator: runs BM25 and vector search in
// parallel, fuses with RRF, hydrates, and logs the query.
type Engine struct {
	st       *store.Store
	bm25     *BM25Searcher
	vector   *VectorSearcher
	embedder embed.Embedder
	breaker  *rerr.CircuitBreaker
	cfg      Config

	queryVecCache *lru.Cache[string, []float32]
}

func NewEngine(st *store.Store, embedder embed.Embedder, cfg Config) *Engine {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 100
	}
	if cfg.QueryCacheSize <= 0 {
		cfg.QueryCacheSize = embed.DefaultEmbeddingCacheSize
	}
	cache, _ := lru.New[string, []float32](cfg.QueryCacheSize)

	return &Engine{
		st:            st,
		bm25:          NewBM25Searcher(st),
		vector:        NewVectorSearcher(st),
		embedder:      embedder,
		breaker:       rerr.NewCircuitBreaker("embedding-provider"),
		cfg:           cfg,
		queryVecCache: cache,
	}
}

// Search implements §4.8's search(query, k, namespace?, agent?, min_score,
// overfetch?) → [Result] contract.
func (e *Engine) Search(ctx context.Context, q Query) ([]Result, error) {
	start := time.Now()

	if q.K <= 0 && !q.KExplicit {
		q.K = e.cfg.DefaultLimit
	}
	if q.K < 0 {
		q.K = 0
	}
	if q.K > e.cfg.MaxLimit {
		q.K = e.cfg.MaxLimit
	}

	candidateSize := q.Overfetch
	if 2*q.K > candidateSize {
		candidateSize = 2 * q.K
	}
	if candidateSize < 20 {
		candidateSize = 20
	}

	filters := Filters{Namespace: q.Namespace, Agent: q.Agent}

	var bm25Results []BM25Result
	var vecResults []VectorResult
	vectorDegraded := false

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bm25Results, err = e.bm25.Search(gctx, q.Text, filters, candidateSize)
		return err
	})
	g.Go(func() error {
		vec, err := e.embedQuery(gctx, q.Text)
		if err != nil {
			vectorDegraded = true
			return nil // degrade to BM25-only per §4.8 step 2, not fatal
		}
		vecResults, err = e.vector.Search(gctx, vec, filters, candidateSize)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}

	weights := e.cfg.Weights
	if vectorDegraded {
		weights = Weights{BM25: 1, Vector: 0}
	}

	fusedResults := fuse(bm25Results, vecResults, weights)

	if q.Overfetch > 0 {
		if len(fusedResults) > q.Overfetch {
			fusedResults = fusedResults[:q.Overfetch]
		}
	} else {
		maxScore := maxPossibleScore(weights)
		kept := fusedResults[:0]
		for _, f := range fusedResults {
			normalized := f.Score
			if maxScore > 0 {
				normalized = f.Score / maxScore
			}
			if normalized >= q.MinScore {
				f.Score = normalized
				kept = append(kept, f)
			}
		}
		fusedResults = kept
		if len(fusedResults) > q.K {
			fusedResults = fusedResults[:q.K]
		}
	}

	results, err := e.hydrate(ctx, fusedResults, vectorDegraded)
	if err != nil {
		return nil, err
	}

	e.logAsync(q, results, time.Since(start), vectorDegraded)

	return results, nil
}

// embedQuery embeds a query string, serving from the LRU cache when
// present and guarding the provider call with a circuit breaker so a
// sustained outage fails fast instead of retrying every request.
func (e *Engine) embedQuery(ctx context.Context, text string) ([]float32, error) {
	key := fmt.Sprintf("%s\x00%s\x00%d", text, e.embedder.ModelName(), e.embedder.Dimensions())
	if vec, ok := e.queryVecCache.Get(key); ok {
		return vec, nil
	}

	vec, err := rerr.CircuitExecuteWithResult(e.breaker,
		func() ([]float32, error) { return e.embedder.Embed(ctx, text) },
		func() ([]float32, error) { return nil, rerr.ErrCircuitOpen },
	)
	if err != nil {
		return nil, err
	}
	e.queryVecCache.Add(key, vec)
	return vec, nil
}

func (e *Engine) hydrate(ctx context.Context, fusedResults []fused, vectorDegraded bool) ([]Result, error) {
	if len(fusedResults) == 0 {
		return []Result{}, nil
	}

	ids := make([]string, len(fusedResults))
	for i, f := range fusedResults {
		ids[i] = f.ChunkID
	}
	chunks, err := e.st.GetChunks(ctx, ids)
	if err != nil {
		return nil, err
	}
	chunkByID := make(map[string]*store.Chunk, len(chunks))
	for _, c := range chunks {
		chunkByID[c.ID] = c
	}

	docCache := make(map[string]*store.Document)

	out := make([]Result, 0, len(fusedResults))
	for _, f := range fusedResults {
		c, ok := chunkByID[f.ChunkID]
		if !ok {
			continue // chunk deleted between scoring and hydration
		}
		doc, ok := docCache[c.DocID]
		if !ok {
			doc, err = e.st.GetDocumentByID(ctx, c.DocID)
			if err != nil {
				continue
			}
			docCache[c.DocID] = doc
		}

		method := MethodHybrid
		switch {
		case vectorDegraded:
			method = MethodBM25Only
		case f.VectorRank > 0 && f.BM25Rank == 0:
			method = MethodVectorOnly
		case f.BM25Rank > 0 && f.VectorRank == 0:
			method = MethodBM25Only
		}

		out = append(out, Result{
			ChunkID:         c.ID,
			DocPath:         doc.Path,
			Namespace:       doc.Namespace,
			SectionHeader:   c.SectionHeader,
			Text:            c.Text,
			Score:           f.Score,
			BM25Rank:        f.BM25Rank,
			VectorRank:      f.VectorRank,
			RetrievalMethod: method,
		})
	}
	return out, nil
}

// logAsync writes the query-log row in the background so logging latency
// never adds to the search response, per §4.8 step 6.
func (e *Engine) logAsync(q Query, results []Result, latency time.Duration, vectorDegraded bool) {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ChunkID
	}
	method := MethodHybrid
	if vectorDegraded {
		method = MethodBM25Only
	}

	go func() {
		_ = e.st.LogQuery(context.Background(), store.QueryLogEntry{
			QueryText:        q.Text,
			NamespaceFilter:  q.Namespace,
			RetrievalMethod:  string(method),
			ReturnedChunkIDs: ids,
			LatencyMS:        latency.Milliseconds(),
			ResultCount:      len(results),
		})
	}()
}
