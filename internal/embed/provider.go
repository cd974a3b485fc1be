package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ProviderConfig configures the HTTP embedding provider client.
type ProviderConfig struct {
	// BaseURL is the full endpoint requests are POSTed to, e.g.
	// "https://api.openai.com/v1/embeddings".
	BaseURL string

	// Model is the embedding model name sent in every request body.
	Model string

	// APIKey authenticates requests via the Authorization bearer header.
	APIKey string

	// Dimensions is the expected embedding width; vectors of any other
	// length are rejected by the caller (Embedder does not enforce this
	// itself so callers can detect a misconfigured model).
	Dimensions int

	// BatchSize bounds how many texts are sent in a single request.
	BatchSize int

	// Timeout bounds a single HTTP round trip.
	Timeout time.Duration

	// Retry configures the backoff policy applied around each batch.
	Retry RetryConfig
}

// DefaultProviderConfig returns sane defaults layered under an explicit config.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Dimensions: DefaultDimensions,
		BatchSize:  DefaultBatchSize,
		Timeout:    DefaultRequestTimeout,
		Retry:      DefaultRetryConfig(),
	}
}

// providerError wraps an embedding-provider failure with retry classification
// per spec: timeouts, 429, and 5xx are retryable; other 4xx are not.
type providerError struct {
	statusCode int
	err        error
}

func (e *providerError) Error() string {
	if e.statusCode == 0 {
		return e.err.Error()
	}
	return fmt.Sprintf("embedding provider returned status %d: %v", e.statusCode, e.err)
}

func (e *providerError) Unwrap() error { return e.err }

func (e *providerError) Retryable() bool {
	if e.statusCode == 0 {
		// Network-level failure (timeout, connection reset, context deadline).
		return true
	}
	if e.statusCode == http.StatusTooManyRequests {
		return true
	}
	return e.statusCode >= 500
}

// embedRequest is the wire shape POSTed to the provider: {model, input: [...]}.
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponseItem struct {
	Embedding []float32 `json:"embedding"`
}

type embedResponse struct {
	Data []embedResponseItem `json:"data"`
}

// HTTPEmbedder is a batched client for an external embedding provider
// speaking the contract in spec §6: POST {model, input[]} with a bearer
// token, response {data: [{embedding: [...]}]} in request order.
type HTTPEmbedder struct {
	client *http.Client
	cfg    ProviderConfig
}

var _ Embedder = (*HTTPEmbedder)(nil)

// NewHTTPEmbedder creates a provider client with connection pooling sized
// for batch-oriented traffic (few, long-lived connections to one host).
func NewHTTPEmbedder(cfg ProviderConfig) *HTTPEmbedder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	transport := &http.Transport{
		MaxIdleConns:        8,
		MaxIdleConnsPerHost: 8,
		MaxConnsPerHost:     8,
		IdleConnTimeout:     30 * time.Second,
	}
	return &HTTPEmbedder{
		client: &http.Client{Transport: transport},
		cfg:    cfg,
	}
}

// Dimensions returns the configured embedding width.
func (h *HTTPEmbedder) Dimensions() int { return h.cfg.Dimensions }

// ModelName returns the provider model identifier.
func (h *HTTPEmbedder) ModelName() string { return h.cfg.Model }

// Close releases pooled connections.
func (h *HTTPEmbedder) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

// Available performs a lightweight reachability probe against BaseURL.
func (h *HTTPEmbedder) Available(ctx context.Context) bool {
	_, err := h.EmbedBatch(ctx, []string{"ping"})
	return err == nil
}

// Embed generates a single embedding.
func (h *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := h.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts, splitting into
// provider-sized sub-batches and retrying each sub-batch per the
// configured backoff policy. Empty strings are sent through as-is; the
// provider is expected to return a zero vector for them.
func (h *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += h.cfg.BatchSize {
		end := start + h.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		sub := texts[start:end]

		var vecs [][]float32
		err := WithRetry(ctx, h.cfg.Retry, func() error {
			v, err := h.doRequest(ctx, sub)
			if err != nil {
				return err
			}
			vecs = v
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
		}
		if len(vecs) != len(sub) {
			return nil, fmt.Errorf("embed batch [%d:%d]: provider returned %d vectors for %d inputs", start, end, len(vecs), len(sub))
		}
		copy(results[start:end], vecs)
	}
	return results, nil
}

// doRequest runs one HTTP round trip in a goroutine so ctx cancellation can
// interrupt it cleanly rather than waiting out the full transport timeout.
func (h *HTTPEmbedder) doRequest(ctx context.Context, texts []string) ([][]float32, error) {
	type outcome struct {
		vecs [][]float32
		err  error
	}
	done := make(chan outcome, 1)

	reqCtx, cancel := context.WithTimeout(ctx, h.cfg.Timeout)
	defer cancel()

	go func() {
		vecs, err := h.send(reqCtx, texts)
		done <- outcome{vecs, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case o := <-done:
		return o.vecs, o.err
	}
}

func (h *HTTPEmbedder) send(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Model: h.cfg.Model, Input: texts})
	if err != nil {
		return nil, &providerError{err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, &providerError{err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if h.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.cfg.APIKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &providerError{err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &providerError{statusCode: resp.StatusCode, err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &providerError{statusCode: resp.StatusCode, err: fmt.Errorf("%s", payload)}
	}

	var decoded embedResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, &providerError{statusCode: resp.StatusCode, err: fmt.Errorf("decode response: %w", err)}
	}

	vecs := make([][]float32, len(decoded.Data))
	for i, item := range decoded.Data {
		vecs[i] = item.Embedding
	}
	return vecs, nil
}
