package predict

import (
	"sort"

	"github.com/Benny93/pfis-go/internal/events"
	"github.com/Benny93/pfis-go/internal/graph"
)

// Frequency ranks the patches visited so far by how often they were
// visited.
type Frequency struct {
	name string
	topN int
}

// NewFrequency creates the frequency baseline.
func NewFrequency(name string, topN int) *Frequency {
	return &Frequency{name: name, topN: topN}
}

// Name returns the algorithm name.
func (f *Frequency) Name() string {
	return f.name
}

// Predict implements Algorithm. The graph is not consulted.
func (f *Frequency) Predict(_ *graph.KnowledgeGraph, path events.Path, k int) (Prediction, error) {
	if err := checkIndex(path, k); err != nil {
		return Prediction{}, err
	}

	var order []string
	counts := make(map[string]int)
	for _, patch := range visited(path, k) {
		if _, ok := counts[patch]; !ok {
			order = append(order, patch)
		}
		counts[patch]++
	}

	// stable: equal counts keep first-seen order
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	candidates := make([]Scored, len(order))
	for i, patch := range order {
		candidates[i] = Scored{ID: patch, Score: float64(counts[patch])}
	}
	return rankInOrder(path, k, candidates, Descending, f.topN), nil
}

// Recency ranks the patches visited so far, most recently visited first.
type Recency struct {
	name string
	topN int
}

// NewRecency creates the recency baseline.
func NewRecency(name string, topN int) *Recency {
	return &Recency{name: name, topN: topN}
}

// Name returns the algorithm name.
func (r *Recency) Name() string {
	return r.name
}

// Predict implements Algorithm. The graph is not consulted.
func (r *Recency) Predict(_ *graph.KnowledgeGraph, path events.Path, k int) (Prediction, error) {
	if err := checkIndex(path, k); err != nil {
		return Prediction{}, err
	}

	visits := visited(path, k)
	seen := make(map[string]bool)
	var candidates []Scored
	for i := len(visits) - 1; i >= 0; i-- {
		patch := visits[i]
		if seen[patch] {
			continue
		}
		seen[patch] = true
		candidates = append(candidates, Scored{ID: patch, Score: float64(len(candidates))})
	}
	return rankInOrder(path, k, candidates, Ascending, r.topN), nil
}

// visited returns the source patches of navigations 0..k, oldest first.
func visited(path events.Path, k int) []string {
	var patches []string
	for i := 0; i <= k; i++ {
		if patch := path[i].FromPatch(); patch != "" {
			patches = append(patches, patch)
		}
	}
	return patches
}
