package predict

import (
	"fmt"

	"github.com/Benny93/pfis-go/internal/events"
	"github.com/Benny93/pfis-go/internal/graph"
)

// ShortestPath ranks every node reachable from the source of a navigation
// by its hop distance over a chosen set of relations.
type ShortestPath struct {
	name      string
	relations []graph.EdgeType
	topN      int
}

// NewShortestPath creates a shortest-path algorithm restricted to
// relations. No relations means every relation.
func NewShortestPath(name string, relations []graph.EdgeType, topN int) *ShortestPath {
	return &ShortestPath{
		name:      name,
		relations: append([]graph.EdgeType(nil), relations...),
		topN:      topN,
	}
}

// Name returns the algorithm name.
func (s *ShortestPath) Name() string {
	return s.name
}

// Relations returns the relations the search may follow.
func (s *ShortestPath) Relations() []graph.EdgeType {
	return s.relations
}

// Distances runs a breadth-first search from source and returns the hop
// distance of every reached node, source included at distance 0.
func (s *ShortestPath) Distances(g *graph.KnowledgeGraph, source string) (map[string]int, error) {
	if !g.ContainsNode(source) {
		return nil, fmt.Errorf("searching from %q: %w", source, ErrSeedMissing)
	}

	distances := map[string]int{source: 0}
	queue := []string{source}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, n := range g.Neighbors(current, s.relations...) {
			if _, seen := distances[n]; !seen {
				distances[n] = distances[current] + 1
				queue = append(queue, n)
			}
		}
	}
	return distances, nil
}

// Predict ranks the target of navigation k by ascending distance. A target
// that is unknown, not in the graph or not reached is a miss.
func (s *ShortestPath) Predict(g *graph.KnowledgeGraph, path events.Path, k int) (Prediction, error) {
	if err := checkIndex(path, k); err != nil {
		return Prediction{}, err
	}
	nav := path[k]
	if nav.ToUnknown() || !g.ContainsNode(nav.To.Patch) {
		return miss(path, k, 0), nil
	}

	distances, err := s.Distances(g, nav.FromPatch())
	if err != nil {
		return Prediction{}, fmt.Errorf("predicting navigation %d: %w", k, err)
	}

	candidates := make([]Scored, 0, len(distances))
	for node, d := range distances {
		candidates = append(candidates, Scored{ID: node, Score: float64(d)})
	}
	return ranked(path, k, candidates, Ascending, s.topN), nil
}
