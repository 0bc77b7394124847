package predict

import (
	"sort"

	"github.com/Benny93/pfis-go/internal/events"
	"github.com/Benny93/pfis-go/internal/graph"
	"github.com/Benny93/pfis-go/internal/lang"
)

// goalWordActivation is the activation given to goal words and added, times
// the decay factor, to patches that contain them.
const goalWordActivation = 1.0

// SpreadConfig holds the constants of one spreading-activation algorithm.
// It is copied into the Spreader and never changed afterwards.
type SpreadConfig struct {
	DecayFactor     float64
	DecaySimilarity float64
	DecayVariant    float64
	DecayHistory    float64
	Rounds          int

	UseHistory         bool
	UseGoalWords       bool
	ChangelogGoalBoost bool

	// GoalWords are word node identities, already stemmed.
	GoalWords []string

	// TopN is the number of best candidates reported with each prediction.
	TopN int
}

// DefaultSpreadConfig returns the constants used when none are configured.
func DefaultSpreadConfig() SpreadConfig {
	return SpreadConfig{
		DecayFactor:     0.85,
		DecaySimilarity: 0.85,
		DecayVariant:    0.85,
		DecayHistory:    0.9,
		Rounds:          2,
	}
}

// decay returns the decay of an edge carrying the given relations. When a
// pair carries several relations the largest decay applies.
func (c SpreadConfig) decay(rels []graph.EdgeType) float64 {
	best := 0.0
	for _, rel := range rels {
		d := c.DecayFactor
		switch rel {
		case graph.EdgeSimilar:
			d = c.DecaySimilarity
		case graph.EdgeVariantOf:
			d = c.DecayVariant
		}
		if d > best {
			best = d
		}
	}
	return best
}

// Activation maps node identities to their activation.
type Activation map[string]float64

// Merge overwrites the entries of a with those of other.
func (a Activation) Merge(other Activation) {
	for node, v := range other {
		a[node] = v
	}
}

// Clone returns a copy of a.
func (a Activation) Clone() Activation {
	c := make(Activation, len(a))
	for node, v := range a {
		c[node] = v
	}
	return c
}

// Nodes returns the activated nodes, sorted.
func (a Activation) Nodes() []string {
	nodes := make([]string, 0, len(a))
	for node := range a {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	return nodes
}

// setOnce activates node unless it already has an activation.
func (a Activation) setOnce(node string, v float64) {
	if _, ok := a[node]; !ok {
		a[node] = v
	}
}

// Seeder places the initial activation for predicting navigation k.
type Seeder interface {
	Seed(g *graph.KnowledgeGraph, path events.Path, k int, cfg SpreadConfig, act Activation)
}

// Propagator spreads activation over the graph and returns the result. It
// must not modify its input.
type Propagator interface {
	Propagate(g *graph.KnowledgeGraph, act Activation, cfg SpreadConfig) Activation
}

// Spreader is a PFIS spreading-activation algorithm composed of a seeding
// strategy and a propagation policy.
type Spreader struct {
	name       string
	helper     lang.Helper
	cfg        SpreadConfig
	seeder     Seeder
	propagator Propagator
}

// NewSpreader creates a spreading-activation algorithm.
func NewSpreader(name string, helper lang.Helper, cfg SpreadConfig, seeder Seeder, propagator Propagator) *Spreader {
	cfg.GoalWords = append([]string(nil), cfg.GoalWords...)
	return &Spreader{
		name:       name,
		helper:     helper,
		cfg:        cfg,
		seeder:     seeder,
		propagator: propagator,
	}
}

// Name returns the algorithm name.
func (s *Spreader) Name() string {
	return s.name
}

// Config returns the constants of the algorithm.
func (s *Spreader) Config() SpreadConfig {
	return s.cfg
}

// Activate seeds and propagates activation for navigation k and returns the
// final activation map. Every key of the result is a node of g.
func (s *Spreader) Activate(g *graph.KnowledgeGraph, path events.Path, k int) (Activation, error) {
	if err := checkIndex(path, k); err != nil {
		return nil, err
	}

	act := make(Activation)
	s.seeder.Seed(g, path, k, s.cfg, act)

	if s.cfg.UseGoalWords {
		s.seedGoalWords(g, act, goalWordActivation)
	}
	if s.cfg.ChangelogGoalBoost {
		s.boostChangelogs(g, act)
	}

	return s.propagator.Propagate(g, act, s.cfg), nil
}

// Predict ranks the target of navigation k among the activated navigable
// patches.
func (s *Spreader) Predict(g *graph.KnowledgeGraph, path events.Path, k int) (Prediction, error) {
	if err := checkIndex(path, k); err != nil {
		return Prediction{}, err
	}
	nav := path[k]
	if nav.ToUnknown() {
		return miss(path, k, 0), nil
	}

	act, err := s.Activate(g, path, k)
	if err != nil {
		return Prediction{}, err
	}

	exclude := ""
	if from := nav.FromPatch(); from != nav.To.Patch {
		exclude = from
	}
	return ranked(path, k, s.candidates(g, act, exclude), Descending, s.cfg.TopN), nil
}

// candidates returns the activated navigable patches other than exclude.
func (s *Spreader) candidates(g *graph.KnowledgeGraph, act Activation, exclude string) []Scored {
	var result []Scored
	for _, node := range act.Nodes() {
		if node == exclude || !g.ContainsNode(node) || !s.helper.IsNavigablePatch(node) {
			continue
		}
		result = append(result, Scored{ID: node, Score: act[node]})
	}
	return result
}

// goalWords returns the configured goal words that are word nodes of g.
func (s *Spreader) goalWords(g *graph.KnowledgeGraph) []string {
	var words []string
	for _, w := range s.cfg.GoalWords {
		if t, ok := g.NodeType(w); ok && t == graph.NodeWord {
			words = append(words, w)
		}
	}
	return words
}

func (s *Spreader) seedGoalWords(g *graph.KnowledgeGraph, act Activation, v float64) {
	for _, w := range s.goalWords(g) {
		act[w] = v
	}
}

// boostChangelogs adds goalWordActivation*DecayFactor to every changelog
// containing an activated goal word, then zeroes the goal words.
func (s *Spreader) boostChangelogs(g *graph.KnowledgeGraph, act Activation) {
	if !s.cfg.UseGoalWords {
		s.seedGoalWords(g, act, goalWordActivation)
	}

	for _, w := range s.goalWords(g) {
		if _, ok := act[w]; !ok {
			continue
		}
		for _, n := range g.Neighbors(w, graph.EdgeContains) {
			if t, _ := g.NodeType(n); t == graph.NodeChangelog {
				act[n] += goalWordActivation * s.cfg.DecayFactor
			}
		}
	}

	s.seedGoalWords(g, act, 0)
}
