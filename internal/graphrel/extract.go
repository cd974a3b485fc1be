// Package graphrel extracts lightweight entity relations from chunk text
// during ingest and answers the `related` tool's bounded graph traversal,
// per §3 and §4.10's related contract.
package graphrel

import (
	"regexp"
	"strings"

	"github.com/mr-nozko/rag-mcp/internal/store"
)

// arrowPattern matches "A -> B", "A --> B", and "A => B" style relation
// mentions, the heuristic §9 names as good enough without a full NLP
// pipeline: two bare words or phrases joined by an arrow.
var arrowPattern = regexp.MustCompile(`(?m)([A-Za-z0-9_./]+(?:[ \t]+[A-Za-z0-9_./]+){0,3})[ \t]*(?:-->|->|=>)[ \t]*([A-Za-z0-9_./]+(?:[ \t]+[A-Za-z0-9_./]+){0,3})`)

// DefaultRelationType is used for every extracted edge; the heuristic does
// not distinguish relation kinds beyond "references".
const DefaultRelationType = "references"

// Extract scans chunk text for arrow-style relation mentions. It never
// errors: a chunk with no recognizable relations simply yields none, so
// extraction failures can never fail ingest (§9).
func Extract(text string) []store.EntityRelation {
	matches := arrowPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	rels := make([]store.EntityRelation, 0, len(matches))
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		src := strings.TrimSpace(m[1])
		dst := strings.TrimSpace(m[2])
		if src == "" || dst == "" || src == dst {
			continue
		}
		key := src + "\x00" + dst
		if seen[key] {
			continue
		}
		seen[key] = true
		rels = append(rels, store.EntityRelation{
			SourceEntity: src,
			RelationType: DefaultRelationType,
			TargetEntity: dst,
		})
	}
	return rels
}
