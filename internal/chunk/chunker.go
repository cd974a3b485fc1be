package chunk

import (
	"strings"

	"github.com/mr-nozko/rag-mcp/internal/parse"
)

// Chunker applies a token-bounded sliding window over a document's parsed
// units. Section boundaries always force a flush: a chunk never spans two
// units, but a single large unit may be split into several chunks with
// trailing overlap carried between them.
type Chunker struct {
	opts Options
}

func New(opts Options) *Chunker {
	return &Chunker{opts: opts.withDefaults()}
}

// Chunk splits units into Chunks. A document with no non-empty units
// produces no chunks; the caller still writes the document row.
func (c *Chunker) Chunk(units []parse.Unit) []Chunk {
	var chunks []Chunk
	index := 0

	for _, u := range units {
		text := strings.TrimSpace(u.Text)
		if text == "" {
			continue
		}
		for _, piece := range c.splitUnit(text) {
			chunks = append(chunks, Chunk{
				Index:         index,
				SectionHeader: u.SectionHeader,
				Text:          piece,
				TokenCount:    estimateTokens(piece),
			})
			index++
		}
	}

	return chunks
}

// splitUnit breaks a single unit's text into overlapping, token-bounded
// pieces, paragraph-aligned where possible.
func (c *Chunker) splitUnit(text string) []string {
	if estimateTokens(text) <= c.opts.TargetTokens {
		return []string{text}
	}

	paragraphs := splitParagraphs(text)
	if len(paragraphs) <= 1 {
		return splitByRunes(text, c.opts.TargetTokens, c.opts.OverlapTokens)
	}

	var pieces []string
	var buf strings.Builder

	flush := func() string {
		out := strings.TrimSpace(buf.String())
		buf.Reset()
		return out
	}

	for _, para := range paragraphs {
		paraTokens := estimateTokens(para)
		bufTokens := estimateTokens(buf.String())

		if buf.Len() > 0 && bufTokens+paraTokens > c.opts.TargetTokens {
			piece := flush()
			if piece != "" {
				pieces = append(pieces, piece)
			}
			if overlap := trailingOverlap(piece, c.opts.OverlapTokens); overlap != "" {
				buf.WriteString(overlap)
				buf.WriteString("\n\n")
			}
		}

		buf.WriteString(para)
		buf.WriteString("\n\n")
	}

	if last := flush(); last != "" {
		pieces = append(pieces, last)
	}

	return pieces
}

func splitParagraphs(text string) []string {
	parts := strings.Split(text, "\n\n")
	var out []string
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// trailingOverlap returns the last overlapTokens worth of text, trimmed
// back to the nearest preceding whitespace so overlap doesn't split a word.
func trailingOverlap(text string, overlapTokens int) string {
	if overlapTokens <= 0 {
		return ""
	}
	runes := []rune(text)
	n := overlapTokens * TokensPerChar
	if n >= len(runes) {
		return text
	}
	start := len(runes) - n
	for start < len(runes) && runes[start] != ' ' && runes[start] != '\n' {
		start++
	}
	return strings.TrimSpace(string(runes[start:]))
}

// splitByRunes is the fallback for a single paragraph-less block of text
// too large for one chunk: a pure sliding window over runes with overlap.
func splitByRunes(text string, targetTokens, overlapTokens int) []string {
	runes := []rune(text)
	window := targetTokens * TokensPerChar
	step := window - overlapTokens*TokensPerChar
	if step <= 0 {
		step = window
	}

	var pieces []string
	for start := 0; start < len(runes); start += step {
		end := start + window
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			pieces = append(pieces, piece)
		}
		if end == len(runes) {
			break
		}
	}
	return pieces
}
