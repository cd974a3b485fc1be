// Package search implements the hybrid retrieval pipeline: BM25 keyword
// search and brute-force vector search, fused by Reciprocal Rank Fusion,
// per §4.6-§4.8.
package search

// Weights configures the relative importance of BM25 vs vector search in
// fusion. Defaults to 0.5/0.5 per §4.8.
type Weights struct {
	BM25   float64
	Vector float64
}

// DefaultWeights returns the fusion weights used when config specifies none.
func DefaultWeights() Weights {
	return Weights{BM25: 0.5, Vector: 0.5}
}

// Filters restricts a search to a subset of the corpus. Zero values mean
// unfiltered.
type Filters struct {
	Namespace string
	Agent     string
	DocTypes  []string
}

// RetrievalMethod labels how a Result was produced, the value §4.8 requires
// on every returned result and logs to the query-log table.
type RetrievalMethod string

const (
	MethodHybrid     RetrievalMethod = "hybrid"
	MethodBM25Only   RetrievalMethod = "bm25_only"
	MethodVectorOnly RetrievalMethod = "vector_only"
)

// Result is one fused, hydrated search hit: §4.8's required fields (chunk
// id, document path, namespace, section header, chunk text, fused score,
// component ranks, retrieval method).
type Result struct {
	ChunkID         string
	DocPath         string
	Namespace       string
	SectionHeader   string
	Text            string
	Score           float64
	BM25Rank        int // 0 if absent from the BM25 list
	VectorRank      int // 0 if absent from the vector list
	RetrievalMethod RetrievalMethod
}
