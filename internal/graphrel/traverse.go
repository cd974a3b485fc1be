package graphrel

import (
	"context"
	"fmt"

	"github.com/dominikbraun/graph"

	"github.com/mr-nozko/rag-mcp/internal/rerr"
	"github.com/mr-nozko/rag-mcp/internal/store"
)

// MaxDepth is the hard ceiling the related tool enforces per §8's boundary
// test: a request for a deeper traversal is a schema violation, not a
// truncation. DefaultDepth is used when a caller omits max_depth.
const (
	MaxDepth     = 3
	DefaultDepth = 2
)

// Edge is one hop surfaced to the related tool's caller.
type Edge struct {
	Source   string
	Relation string
	Target   string
	Depth    int
}

// Walker runs bounded breadth-first traversal over entity_relations.
type Walker struct {
	st *store.Store
}

func NewWalker(st *store.Store) *Walker {
	return &Walker{st: st}
}

// Related returns every entity reachable from entity within maxDepth hops,
// restricted to relationTypes when non-empty. maxDepth above MaxDepth is a
// caller error, not silently clamped, per §8.
//
// Traversal keeps its own visited set rather than leaning on the graph
// library's cycle handling: a relation mined from free text can easily
// cycle back through an already-expanded entity, and the visited set is
// the only thing that bounds the walk's cost once query depth could revisit
// nodes (§9).
func (w *Walker) Related(ctx context.Context, entity string, maxDepth int, relationTypes []string) ([]Edge, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultDepth
	}
	if maxDepth > MaxDepth {
		return nil, rerr.Invalid("max_depth %d exceeds the maximum of %d", maxDepth, MaxDepth)
	}

	g := graph.New(graph.StringHash, graph.Directed())
	_ = g.AddVertex(entity)

	visited := map[string]bool{entity: true}
	frontier := []string{entity}
	var edges []Edge

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, node := range frontier {
			rels, err := w.st.RelationsFrom(ctx, node, relationTypes)
			if err != nil {
				return nil, err
			}
			for _, r := range rels {
				edges = append(edges, Edge{Source: r.SourceEntity, Relation: r.RelationType, Target: r.TargetEntity, Depth: depth})

				if _, err := g.Vertex(r.TargetEntity); err != nil {
					_ = g.AddVertex(r.TargetEntity)
				}
				_ = g.AddEdge(r.SourceEntity, r.TargetEntity, graph.EdgeAttribute("relation", r.RelationType))

				if !visited[r.TargetEntity] {
					visited[r.TargetEntity] = true
					next = append(next, r.TargetEntity)
				}
			}
		}
		frontier = next
	}

	return edges, nil
}

// String is a debugging aid; not used on the hot path.
func (e Edge) String() string {
	return fmt.Sprintf("%s --%s--> %s (depth %d)", e.Source, e.Relation, e.Target, e.Depth)
}
