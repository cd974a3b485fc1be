package search

import (
	"context"
	"math"
	"sort"

	"github.com/mr-nozko/rag-mcp/internal/store"
)

// VectorResult is one ranked vector-similarity hit.
type VectorResult struct {
	ChunkID string
	Score   float64 // cosine similarity, higher is better
}

// VectorSearcher runs brute-force cosine search over embedded chunks,
// acceptable under the corpus size cap per §4.7's ANN non-goal.
type VectorSearcher struct {
	st *store.Store
}

func NewVectorSearcher(st *store.Store) *VectorSearcher {
	return &VectorSearcher{st: st}
}

// Search implements vector(query_vector, filters, k) → ranked
// [(chunk_id, cosine)] per §4.7. Chunks whose embedding dimension does not
// match queryVec are skipped rather than erroring.
func (v *VectorSearcher) Search(ctx context.Context, queryVec []float32, f Filters, k int) ([]VectorResult, error) {
	chunks, err := v.st.AllChunksWithEmbeddings(ctx)
	if err != nil {
		return nil, err
	}

	var docCache map[string]*store.Document
	if f.Namespace != "" || f.Agent != "" || len(f.DocTypes) > 0 {
		docCache = make(map[string]*store.Document)
	}

	results := make([]VectorResult, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) != len(queryVec) {
			continue
		}
		if docCache != nil {
			doc, ok := docCache[c.DocID]
			if !ok {
				doc, err = v.st.GetDocumentByID(ctx, c.DocID)
				if err != nil {
					continue
				}
				docCache[c.DocID] = doc
			}
			if !matchesFilters(doc, f) {
				continue
			}
		}
		results = append(results, VectorResult{ChunkID: c.ID, Score: cosine(queryVec, c.Embedding)})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func matchesFilters(doc *store.Document, f Filters) bool {
	if f.Namespace != "" && doc.Namespace != f.Namespace {
		return false
	}
	if f.Agent != "" && doc.AgentName != f.Agent {
		return false
	}
	if len(f.DocTypes) > 0 {
		found := false
		for _, dt := range f.DocTypes {
			if doc.DocType == dt {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
