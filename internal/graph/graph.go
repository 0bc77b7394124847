package graph

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrCategoryConflict is returned when a node is re-inserted with a
	// category different from the one it was created with.
	ErrCategoryConflict = errors.New("node category conflict")

	// ErrUndefined is returned when an edge or one of its endpoints has no
	// defined category or relation.
	ErrUndefined = errors.New("undefined node category or relation")
)

// edge is the shared record behind both directions of an undirected pair.
type edge struct {
	relation EdgeType   // structural relation, last insertion wins
	overlays []EdgeType // variant/similar relations, never overwritten
}

func (e *edge) has(rel EdgeType) bool {
	if rel.IsOverlay() {
		for _, o := range e.overlays {
			if o == rel {
				return true
			}
		}
		return false
	}
	return e.relation == rel && rel != EdgeUndefined
}

func (e *edge) types() []EdgeType {
	types := make([]EdgeType, 0, 1+len(e.overlays))
	if e.relation != EdgeUndefined {
		types = append(types, e.relation)
	}
	return append(types, e.overlays...)
}

// KnowledgeGraph is an undirected, typed graph of code artifacts and
// vocabulary words.
//
// Nodes are keyed by their fully-qualified identity. The graph only grows:
// there are no removal operations. Every query that returns several nodes
// returns them sorted so that algorithms iterating over the graph are
// deterministic.
//
// KnowledgeGraph is not safe for concurrent mutation; it is owned by one
// compiler for the lifetime of a run.
type KnowledgeGraph struct {
	nodes     map[string]NodeType
	adjacency map[string]map[string]*edge
	byType    map[NodeType]map[string]struct{}
	edgeCount int
}

// NewKnowledgeGraph creates a new empty graph.
func NewKnowledgeGraph() *KnowledgeGraph {
	return &KnowledgeGraph{
		nodes:     make(map[string]NodeType),
		adjacency: make(map[string]map[string]*edge),
		byType:    make(map[NodeType]map[string]struct{}),
	}
}

// NodeCount returns the number of nodes.
func (g *KnowledgeGraph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges. A pair carrying a structural
// relation and an overlay relation counts as two edges.
func (g *KnowledgeGraph) EdgeCount() int {
	return g.edgeCount
}

// CountNodesByType returns the count of nodes with the given category.
func (g *KnowledgeGraph) CountNodesByType(t NodeType) int {
	return len(g.byType[t])
}

// AddEdge inserts both endpoints, assigning their categories if absent, and
// the edge between them. A structural relation overwrites the previous
// structural relation of the pair; an overlay relation is added next to it.
//
// Re-inserting an existing edge is a no-op. A self-loop request inserts
// nothing. Both endpoints are validated before the graph is touched, so a failed
// call leaves the graph unchanged.
func (g *KnowledgeGraph) AddEdge(n1, n2 string, t1, t2 NodeType, rel EdgeType) error {
	if t1 == NodeUndefined || t2 == NodeUndefined || !rel.IsValid() {
		return fmt.Errorf("adding edge %q -> %q (%s): %w", n1, n2, rel, ErrUndefined)
	}
	if n1 == n2 {
		return nil
	}
	if err := g.checkCategory(n1, t1); err != nil {
		return err
	}
	if err := g.checkCategory(n2, t2); err != nil {
		return err
	}

	g.addNode(n1, t1)
	g.addNode(n2, t2)

	e, ok := g.adjacency[n1][n2]
	if !ok {
		e = &edge{}
		g.adjacency[n1][n2] = e
		g.adjacency[n2][n1] = e
	}

	if rel.IsOverlay() {
		if !e.has(rel) {
			e.overlays = append(e.overlays, rel)
			g.edgeCount++
		}
		return nil
	}

	if e.relation == EdgeUndefined {
		g.edgeCount++
	}
	e.relation = rel
	return nil
}

func (g *KnowledgeGraph) checkCategory(node string, t NodeType) error {
	if existing, ok := g.nodes[node]; ok && existing != t {
		return fmt.Errorf("node %q is %s, cannot insert as %s: %w", node, existing, t, ErrCategoryConflict)
	}
	return nil
}

func (g *KnowledgeGraph) addNode(node string, t NodeType) {
	if _, ok := g.nodes[node]; ok {
		return
	}
	g.nodes[node] = t
	g.adjacency[node] = make(map[string]*edge)
	if g.byType[t] == nil {
		g.byType[t] = make(map[string]struct{})
	}
	g.byType[t][node] = struct{}{}
}

// ContainsNode reports whether the node exists.
func (g *KnowledgeGraph) ContainsNode(node string) bool {
	_, ok := g.nodes[node]
	return ok
}

// NodeType returns the category of the node.
func (g *KnowledgeGraph) NodeType(node string) (NodeType, bool) {
	t, ok := g.nodes[node]
	return t, ok
}

// NodeLevel returns the hierarchy depth of the node, if its category has one.
func (g *KnowledgeGraph) NodeLevel(node string) (int, bool) {
	t, ok := g.nodes[node]
	if !ok {
		return 0, false
	}
	return t.Level()
}

// Neighbors returns the sorted, de-duplicated neighbors of node. When rels
// is non-empty only neighbors joined by at least one of those relations are
// returned.
func (g *KnowledgeGraph) Neighbors(node string, rels ...EdgeType) []string {
	adj, ok := g.adjacency[node]
	if !ok {
		return nil
	}

	result := make([]string, 0, len(adj))
	for neighbor, e := range adj {
		if len(rels) == 0 || edgeMatches(e, rels) {
			result = append(result, neighbor)
		}
	}
	sort.Strings(result)
	return result
}

func edgeMatches(e *edge, rels []EdgeType) bool {
	for _, rel := range rels {
		if e.has(rel) {
			return true
		}
	}
	return false
}

// Degree returns the number of distinct neighbors of node.
func (g *KnowledgeGraph) Degree(node string) int {
	return len(g.adjacency[node])
}

// EdgeTypes returns every relation between a and b, structural first.
func (g *KnowledgeGraph) EdgeTypes(a, b string) []EdgeType {
	e, ok := g.adjacency[a][b]
	if !ok {
		return nil
	}
	return e.types()
}

// HasEdge reports whether a and b are joined by rel.
func (g *KnowledgeGraph) HasEdge(a, b string, rel EdgeType) bool {
	e, ok := g.adjacency[a][b]
	return ok && e.has(rel)
}

// Nodes returns all node identities, sorted.
func (g *KnowledgeGraph) Nodes() []string {
	result := make([]string, 0, len(g.nodes))
	for node := range g.nodes {
		result = append(result, node)
	}
	sort.Strings(result)
	return result
}

// NodesByType returns the sorted identities of every node of category t.
func (g *KnowledgeGraph) NodesByType(t NodeType) []string {
	nodes := g.byType[t]
	result := make([]string, 0, len(nodes))
	for node := range nodes {
		result = append(result, node)
	}
	sort.Strings(result)
	return result
}

// Stats returns a summary of graph size.
func (g *KnowledgeGraph) Stats() map[string]int {
	stats := map[string]int{
		"nodes": len(g.nodes),
		"edges": g.edgeCount,
	}
	for t, nodes := range g.byType {
		stats[string(t)] = len(nodes)
	}
	return stats
}
