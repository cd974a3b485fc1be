package chunk

import (
	"strings"
	"testing"

	"github.com/mr-nozko/rag-mcp/internal/parse"
)

func TestChunk_EmptyUnitsYieldsNoChunks(t *testing.T) {
	c := New(Options{})
	if got := c.Chunk(nil); len(got) != 0 {
		t.Fatalf("expected 0 chunks, got %d", len(got))
	}
}

func TestChunk_BlankUnitsAreSkipped(t *testing.T) {
	c := New(Options{})
	got := c.Chunk([]parse.Unit{{SectionHeader: "h", Text: "   \n  "}})
	if len(got) != 0 {
		t.Fatalf("expected 0 chunks, got %d", len(got))
	}
}

func TestChunk_SmallUnitProducesOneChunkPreservingHeader(t *testing.T) {
	c := New(Options{})
	units := []parse.Unit{{SectionHeader: "Intro", Text: "a short paragraph"}}
	got := c.Chunk(units)
	if len(got) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(got))
	}
	if got[0].SectionHeader != "Intro" {
		t.Errorf("expected header 'Intro', got %q", got[0].SectionHeader)
	}
	if got[0].Index != 0 {
		t.Errorf("expected index 0, got %d", got[0].Index)
	}
}

func TestChunk_SectionBoundaryAlwaysForcesFlush(t *testing.T) {
	c := New(Options{TargetTokens: 1000})
	units := []parse.Unit{
		{SectionHeader: "One", Text: "first section text"},
		{SectionHeader: "Two", Text: "second section text"},
	}
	got := c.Chunk(units)
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks (one per section), got %d", len(got))
	}
	if got[0].SectionHeader != "One" || got[1].SectionHeader != "Two" {
		t.Fatalf("expected section headers preserved in order, got %+v", got)
	}
	if got[1].Index != 1 {
		t.Errorf("expected sequential index across units, got %d", got[1].Index)
	}
}

func TestChunk_LargeSectionSplitsWithOverlap(t *testing.T) {
	c := New(Options{TargetTokens: 20, OverlapTokens: 5})

	paragraphs := make([]string, 10)
	for i := range paragraphs {
		paragraphs[i] = strings.Repeat("word ", 10) + string(rune('a'+i))
	}
	text := strings.Join(paragraphs, "\n\n")

	units := []parse.Unit{{SectionHeader: "Big", Text: text}}
	got := c.Chunk(units)

	if len(got) < 2 {
		t.Fatalf("expected the large section to split into multiple chunks, got %d", len(got))
	}
	for _, ch := range got {
		if ch.SectionHeader != "Big" {
			t.Errorf("expected section header 'Big' on every split chunk, got %q", ch.SectionHeader)
		}
	}
	if overlap := trailingOverlap(got[0].Text, 5); overlap == "" || !strings.HasPrefix(got[1].Text, overlap) {
		t.Errorf("expected chunk 1 to start with the tail of chunk 0 (%q), got %q", overlap, got[1].Text)
	}
}

func TestChunk_NoParagraphBoundariesFallsBackToRuneWindow(t *testing.T) {
	c := New(Options{TargetTokens: 10, OverlapTokens: 2})
	text := strings.Repeat("x", 500)
	units := []parse.Unit{{Text: text}}
	got := c.Chunk(units)
	if len(got) < 2 {
		t.Fatalf("expected multiple chunks from rune-window fallback, got %d", len(got))
	}
}

func TestChunk_IndexIsSequentialAcrossDocument(t *testing.T) {
	c := New(Options{TargetTokens: 1000})
	units := []parse.Unit{
		{SectionHeader: "A", Text: "alpha"},
		{SectionHeader: "B", Text: "beta"},
		{SectionHeader: "C", Text: "gamma"},
	}
	got := c.Chunk(units)
	for i, ch := range got {
		if ch.Index != i {
			t.Errorf("chunk %d: expected Index %d, got %d", i, i, ch.Index)
		}
	}
}
