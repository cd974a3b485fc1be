package search

import "sort"

// RRFConstant is the RRF smoothing constant K, per §4.8.
const RRFConstant = 60

// fused is one chunk's combined rank-fusion result before hydration.
type fused struct {
	ChunkID    string
	Score      float64
	BM25Rank   int
	VectorRank int
}

// fuse combines BM25 and vector rankings via Reciprocal Rank Fusion: a
// chunk missing from one list contributes zero from that list, not a
// penalized rank, per §4.8. Ties break by chunk_id ascending.
func fuse(bm25 []BM25Result, vec []VectorResult, weights Weights) []fused {
	byChunk := make(map[string]*fused)

	get := func(id string) *fused {
		f, ok := byChunk[id]
		if !ok {
			f = &fused{ChunkID: id}
			byChunk[id] = f
		}
		return f
	}

	for i, r := range bm25 {
		rank := i + 1
		f := get(r.ChunkID)
		f.BM25Rank = rank
		f.Score += weights.BM25 / float64(RRFConstant+rank)
	}
	for i, r := range vec {
		rank := i + 1
		f := get(r.ChunkID)
		f.VectorRank = rank
		f.Score += weights.Vector / float64(RRFConstant+rank)
	}

	out := make([]fused, 0, len(byChunk))
	for _, f := range byChunk {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	return out
}

// maxPossibleScore is the RRF value a chunk ranked first in both lists
// would get, the normalization divisor §4.8 step 5 names.
func maxPossibleScore(weights Weights) float64 {
	return weights.BM25/float64(RRFConstant+1) + weights.Vector/float64(RRFConstant+1)
}
