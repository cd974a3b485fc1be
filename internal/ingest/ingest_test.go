package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr-nozko/rag-mcp/internal/chunk"
	"github.com/mr-nozko/rag-mcp/internal/store"
)

func newTestIngester(t *testing.T, root string) (*Ingester, *store.Store) {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ing := New(st, Options{
		Root:              root,
		AllowedExtensions: []string{".md", ".txt"},
		Chunk:             chunk.Options{TargetTokens: 300, OverlapTokens: 50},
	})
	return ing, st
}

func writeFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestRun_CreatesNewDocuments(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "notes.md", "# Title\n\nsome content\n")
	writeFile(t, root, "team/plan.md", "# Plan\n\ndetails\n")

	ing, st := newTestIngester(t, root)
	report, err := ing.Run(context.Background(), false, false)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 0, report.Updated)
	assert.Equal(t, 0, report.Unchanged)
	assert.Empty(t, report.Errors)

	doc, err := st.GetDocumentByPath(context.Background(), "notes.md")
	require.NoError(t, err)
	assert.Equal(t, "all", doc.Namespace)

	doc2, err := st.GetDocumentByPath(context.Background(), "team/plan.md")
	require.NoError(t, err)
	assert.Equal(t, "team", doc2.Namespace)
}

func TestRun_SkipsUnchangedDocuments(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "notes.md", "content one\n")

	ing, _ := newTestIngester(t, root)
	ctx := context.Background()

	_, err := ing.Run(ctx, false, false)
	require.NoError(t, err)

	report, err := ing.Run(ctx, false, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Unchanged)
	assert.Equal(t, 0, report.Created)
}

func TestRun_UpdatesChangedDocuments(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "notes.md", "version one\n")

	ing, st := newTestIngester(t, root)
	ctx := context.Background()

	_, err := ing.Run(ctx, false, false)
	require.NoError(t, err)

	writeFile(t, root, "notes.md", "version two, much longer content here\n")
	report, err := ing.Run(ctx, false, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)

	doc, err := st.GetDocumentByPath(ctx, "notes.md")
	require.NoError(t, err)
	assert.Contains(t, doc.ContentText, "version two")
}

func TestRun_ForceReingestsUnchangedDocuments(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "notes.md", "content\n")

	ing, _ := newTestIngester(t, root)
	ctx := context.Background()
	_, err := ing.Run(ctx, false, false)
	require.NoError(t, err)

	report, err := ing.Run(ctx, true, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
}

func TestRun_CleanupRemovesDeletedDocuments(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "notes.md", "content\n")

	ing, st := newTestIngester(t, root)
	ctx := context.Background()
	_, err := ing.Run(ctx, false, false)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "notes.md")))

	report, err := ing.Run(ctx, false, true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Removed)

	_, err = st.GetDocumentByPath(ctx, "notes.md")
	assert.Error(t, err)
}

func TestRun_WithoutCleanupKeepsDeletedDocuments(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "notes.md", "content\n")

	ing, st := newTestIngester(t, root)
	ctx := context.Background()
	_, err := ing.Run(ctx, false, false)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "notes.md")))

	report, err := ing.Run(ctx, false, false)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Removed)

	_, err = st.GetDocumentByPath(ctx, "notes.md")
	assert.NoError(t, err)
}

func TestRun_ZeroContentDocumentStillWritesDocumentRow(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "empty.md", "   \n\n  ")

	ing, st := newTestIngester(t, root)
	ctx := context.Background()
	report, err := ing.Run(ctx, false, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)

	doc, err := st.GetDocumentByPath(ctx, "empty.md")
	require.NoError(t, err)

	chunks, err := st.GetChunksByDoc(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestRun_ParseErrorRecordedAsNonFatal(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "good.md", "fine content\n")
	writeFile(t, root, "broken.json", `{"unterminated": `)

	st, err := store.Open(context.Background(), ":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ing := New(st, Options{
		Root:              root,
		AllowedExtensions: []string{".md", ".json"},
		Chunk:             chunk.Options{TargetTokens: 300, OverlapTokens: 50},
	})

	report, err := ing.Run(context.Background(), false, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "broken.json", report.Errors[0].Path)
}

func TestDocType_InfersFromExtension(t *testing.T) {
	assert.Equal(t, "md", docType("notes.md"))
	assert.Equal(t, "unknown", docType("README"))
}

func TestNamespace_FirstSegmentOrAll(t *testing.T) {
	assert.Equal(t, "all", namespace("notes.md"))
	assert.Equal(t, "team", namespace("Team/plan.md"))
}

func TestAgentName_FollowsAgentsSegment(t *testing.T) {
	assert.Equal(t, "researcher", agentName("agents/researcher/notes.md"))
	assert.Equal(t, "", agentName("docs/notes.md"))
}
