package embed

import (
	"context"
	"math"
	"time"
)

// Batch and timeout defaults for the embedding provider client.
const (
	// MinBatchSize is the minimum allowed batch size.
	MinBatchSize = 1

	// MaxBatchSize is the maximum allowed batch size (prevents memory exhaustion).
	MaxBatchSize = 256

	// DefaultBatchSize is the default page size for embed_missing.
	DefaultBatchSize = 32

	// DefaultRequestTimeout bounds a single batch HTTP call.
	DefaultRequestTimeout = 60 * time.Second

	// DefaultDimensions is the embedding dimension when config omits one.
	DefaultDimensions = 768

	// DefaultEmbeddingCacheSize is the default number of query vectors to cache.
	DefaultEmbeddingCacheSize = 1000
)

// Embedder generates vector embeddings for text via a batched external provider.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in provider order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the configured embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier sent to the provider.
	ModelName() string

	// Available reports whether the provider currently answers requests.
	Available(ctx context.Context) bool

	// Close releases any pooled connections.
	Close() error
}

// normalizeVector normalizes a vector to unit length, used when the provider
// does not already return unit-norm vectors.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
