package eval

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr-nozko/rag-mcp/internal/chunk"
	"github.com/mr-nozko/rag-mcp/internal/ingest"
	"github.com/mr-nozko/rag-mcp/internal/search"
	"github.com/mr-nozko/rag-mcp/internal/store"
)

func writeCorpusFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

type constEmbedder struct{ dims int }

func (e constEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, e.dims)
	v[0] = float32(len(text))
	return v, nil
}
func (e constEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.Embed(ctx, t)
	}
	return out, nil
}
func (e constEmbedder) Dimensions() int                { return e.dims }
func (constEmbedder) ModelName() string                { return "const" }
func (constEmbedder) Available(context.Context) bool   { return true }
func (constEmbedder) Close() error                     { return nil }

func newEvalEngine(t *testing.T) *search.Engine {
	t.Helper()
	root := t.TempDir()

	st, err := store.Open(context.Background(), ":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	writeCorpusFile(t, root, "fox.md", "# Fox\n\nthe quick brown fox jumps over the lazy dog\n")

	ing := ingest.New(st, ingest.Options{
		Root:              root,
		AllowedExtensions: []string{".md"},
		Chunk:             chunk.Options{TargetTokens: 300, OverlapTokens: 50},
	})
	_, err = ing.Run(context.Background(), false, false)
	require.NoError(t, err)

	return search.NewEngine(st, constEmbedder{dims: 3}, search.DefaultConfig())
}

func TestRunner_RunQuery_MatchesExpectedPath(t *testing.T) {
	engine := newEvalEngine(t)
	r := NewRunner(engine)

	spec := QuerySpec{ID: "T1-Q1", Query: "quick brown fox", Expected: []string{"fox.md"}}
	result := r.RunQuery(context.Background(), spec)

	assert.True(t, result.Passed)
	assert.GreaterOrEqual(t, result.MatchedAt, 0)
}

func TestRunner_RunQuery_NegativeQueryNeverFailsOnNoMatch(t *testing.T) {
	engine := newEvalEngine(t)
	r := NewRunner(engine)

	spec := QuerySpec{ID: "NEG-Q1", Query: "xyzzy nonexistent term", Tier: 0}
	result := r.RunQuery(context.Background(), spec)

	assert.True(t, result.Passed)
	assert.Empty(t, result.Error)
}

func TestRunner_RunAll_TalliesPerTier(t *testing.T) {
	engine := newEvalEngine(t)
	r := NewRunner(engine)

	s := &Suite{
		Tier1:    []QuerySpec{{ID: "T1-Q1", Query: "quick brown fox", Expected: []string{"fox.md"}, Tier: 1}},
		Negative: []QuerySpec{{ID: "NEG-Q1", Query: "xyzzy nonexistent", Tier: 0}},
	}

	report := r.RunAll(context.Background(), s)
	assert.Equal(t, 1, report.Tier1Total)
	assert.Equal(t, 1, report.Tier1Pass)
	assert.Equal(t, 1, report.NegTotal)
	assert.Equal(t, 1, report.NegPass)
}

func TestLoadSuite_ParsesTestdataFixture(t *testing.T) {
	ResetSuite()
	t.Cleanup(ResetSuite)

	s, err := LoadSuite()
	require.NoError(t, err)
	require.Len(t, s.Tier1, 1)
	assert.Equal(t, 1, s.Tier1[0].Tier)
	require.Len(t, s.Negative, 1)
	assert.Equal(t, 0, s.Negative[0].Tier)
}
