package predict

import (
	"github.com/Benny93/pfis-go/internal/graph"
)

// Uniform spreads from every activated node to all of its neighbors for
// each round. Contributions of a round are buffered and become visible only
// in the next round.
type Uniform struct{}

// Propagate implements Propagator.
func (Uniform) Propagate(g *graph.KnowledgeGraph, act Activation, cfg SpreadConfig) Activation {
	current := act.Clone()
	for round := 0; round < cfg.Rounds; round++ {
		next := current.Clone()
		for _, node := range current.Nodes() {
			spreadTo(g, node, g.Neighbors(node), current, next, cfg)
		}
		current = next
	}
	return current
}

// Phased cycles rounds through three phases: code nodes to their words,
// code nodes to code nodes at the same or a deeper level (one level at a
// time, shallowest first), and words back to code nodes.
type Phased struct{}

// Propagate implements Propagator.
func (Phased) Propagate(g *graph.KnowledgeGraph, act Activation, cfg SpreadConfig) Activation {
	current := act.Clone()
	for round := 0; round < cfg.Rounds; round++ {
		switch round % 3 {
		case 0:
			acc := make(Activation)
			for _, node := range current.Nodes() {
				if !isWord(g, node) {
					spreadTo(g, node, filter(g, node, func(n string) bool { return isWord(g, n) }), current, acc, cfg)
				}
			}
			current.Merge(acc)

		case 1:
			for level := 0; level <= graph.MaxLevel; level++ {
				acc := make(Activation)
				for _, node := range current.Nodes() {
					if l, ok := g.NodeLevel(node); !ok || l != level || isWord(g, node) {
						continue
					}
					deeper := filter(g, node, func(n string) bool {
						l, ok := g.NodeLevel(n)
						return ok && l >= level && !isWord(g, n)
					})
					spreadTo(g, node, deeper, current, acc, cfg)
				}
				current.Merge(acc)
			}

		case 2:
			acc := make(Activation)
			for _, node := range current.Nodes() {
				if isWord(g, node) {
					spreadTo(g, node, filter(g, node, func(n string) bool { return !isWord(g, n) }), current, acc, cfg)
				}
			}
			current.Merge(acc)
		}
	}
	return current
}

// TouchOnce activates every node at most once, walking breadth-first out
// of the seeds until no new node is reached. Rounds are ignored.
type TouchOnce struct{}

// Propagate implements Propagator.
func (TouchOnce) Propagate(g *graph.KnowledgeGraph, act Activation, cfg SpreadConfig) Activation {
	result := act.Clone()
	queue := result.Nodes()

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		neighbors := g.Neighbors(current)
		if len(neighbors) == 0 {
			continue
		}
		weight := 1.0 / float64(len(neighbors))
		for _, n := range neighbors {
			if _, ok := result[n]; ok {
				continue
			}
			result[n] = result[current] * weight * cfg.DecayFactor
			queue = append(queue, n)
		}
	}
	return result
}

// spreadTo splits the activation of node evenly over targets, decayed by
// the relations of each edge, and adds it to acc. A target first seen in
// acc starts from its activation in from.
func spreadTo(g *graph.KnowledgeGraph, node string, targets []string, from, acc Activation, cfg SpreadConfig) {
	v := from[node]
	if v == 0 || len(targets) == 0 {
		return
	}
	weight := 1.0 / float64(len(targets))
	for _, t := range targets {
		if _, ok := acc[t]; !ok {
			acc[t] = from[t]
		}
		acc[t] += v * weight * cfg.decay(g.EdgeTypes(node, t))
	}
}

func filter(g *graph.KnowledgeGraph, node string, keep func(string) bool) []string {
	var result []string
	for _, n := range g.Neighbors(node) {
		if keep(n) {
			result = append(result, n)
		}
	}
	return result
}

func isWord(g *graph.KnowledgeGraph, node string) bool {
	t, _ := g.NodeType(node)
	return t == graph.NodeWord
}
