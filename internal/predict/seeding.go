package predict

import (
	"github.com/Benny93/pfis-go/internal/events"
	"github.com/Benny93/pfis-go/internal/graph"
	"github.com/Benny93/pfis-go/internal/lang"
)

// MethodSeeder activates the source patch of the navigation, or with
// history enabled every patch visited so far.
type MethodSeeder struct{}

// Seed implements Seeder.
func (MethodSeeder) Seed(g *graph.KnowledgeGraph, path events.Path, k int, cfg SpreadConfig, act Activation) {
	seedPatches(g, path, k, cfg, func(patch string, v float64) {
		act.setOnce(patch, v)
	})
}

// HierarchySeeder activates every level of the patch hierarchy of each
// seeded patch with the patch's activation.
type HierarchySeeder struct {
	Helper lang.Helper

	// EndsOnly restricts seeding to the outermost and innermost levels.
	EndsOnly bool
}

// Seed implements Seeder.
func (h HierarchySeeder) Seed(g *graph.KnowledgeGraph, path events.Path, k int, cfg SpreadConfig, act Activation) {
	seedPatches(g, path, k, cfg, func(patch string, v float64) {
		levels := h.Helper.PatchHierarchy(patch)
		reverse(levels)
		if h.EndsOnly && len(levels) > 2 {
			levels = []string{levels[0], levels[len(levels)-1]}
		}
		for _, node := range levels {
			if g.ContainsNode(node) {
				act.setOnce(node, v)
			}
		}
	})
}

// seedPatches calls place for the patches to seed. Without history that is
// the source of navigation k with 1.0. With history the i-th most recent
// distinct patch visited gets DecayHistory^i; unresolved locations and
// patches missing from the graph use up their position but are not placed.
func seedPatches(g *graph.KnowledgeGraph, path events.Path, k int, cfg SpreadConfig, place func(string, float64)) {
	if !cfg.UseHistory {
		if from := path[k].FromPatch(); g.ContainsNode(from) {
			place(from, 1.0)
		}
		return
	}

	activation := 1.0
	seen := make(map[string]bool)
	for i := k; i > 0; i-- {
		patch := path[i].FromPatch()
		if seen[patch] {
			continue
		}
		if patch != "" {
			seen[patch] = true
			if g.ContainsNode(patch) {
				place(patch, activation)
			}
		}
		activation *= cfg.DecayHistory
	}
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
