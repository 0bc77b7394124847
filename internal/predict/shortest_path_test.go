package predict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/pfis-go/internal/graph"
)

func structureGraph(t *testing.T) *graph.KnowledgeGraph {
	t.Helper()
	g := chain(t)
	mustEdge(t, g, mA, mD, graph.NodeMethod, graph.NodeMethod, graph.EdgeAdjacent)
	return g
}

func TestShortestPath_Distances(t *testing.T) {
	t.Parallel()

	g := structureGraph(t)

	t.Run("RestrictedRelations", func(t *testing.T) {
		t.Parallel()
		s := NewShortestPath("Calls", []graph.EdgeType{graph.EdgeCalls}, 0)
		d, err := s.Distances(g, mA)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{mA: 0, mB: 1, mC: 2}, d)
	})

	t.Run("AllRelations", func(t *testing.T) {
		t.Parallel()
		s := NewShortestPath("Any", nil, 0)
		d, err := s.Distances(g, mC)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{mC: 0, mB: 1, mA: 2, mD: 3}, d)
	})

	t.Run("DistancesGrowOneHopAtATime", func(t *testing.T) {
		t.Parallel()
		s := NewShortestPath("Any", nil, 0)
		d, err := s.Distances(g, mA)
		require.NoError(t, err)
		for node, dist := range d {
			if node == mA {
				continue
			}
			closer := false
			for _, n := range g.Neighbors(node) {
				if nd, ok := d[n]; ok && nd == dist-1 {
					closer = true
				}
			}
			assert.True(t, closer, node)
		}
	})

	t.Run("MissingSource", func(t *testing.T) {
		t.Parallel()
		s := NewShortestPath("Any", nil, 0)
		_, err := s.Distances(g, mX)
		require.ErrorIs(t, err, ErrSeedMissing)
	})
}

func TestShortestPath_Predict(t *testing.T) {
	t.Parallel()

	g := structureGraph(t)
	calls := NewShortestPath("Calls", []graph.EdgeType{graph.EdgeCalls}, 2)

	t.Run("Reached", func(t *testing.T) {
		t.Parallel()
		p, err := calls.Predict(g, pathOf(mX, mA, mC), 2)
		require.NoError(t, err)
		assert.Equal(t, 3, p.Rank)
		assert.Equal(t, 1, p.TieCount)
		assert.Equal(t, 3, p.PoolSize)
		assert.Equal(t, []string{mA, mB}, p.TopPredictions)
	})

	t.Run("SourceIsDistanceZero", func(t *testing.T) {
		t.Parallel()
		p, err := calls.Predict(g, pathOf(mX, mA, mA), 2)
		require.NoError(t, err)
		assert.Equal(t, 1, p.Rank)
		assert.Equal(t, 1, p.TieCount)
	})

	t.Run("Unreached", func(t *testing.T) {
		t.Parallel()
		p, err := calls.Predict(g, pathOf(mX, mA, mD), 2)
		require.NoError(t, err)
		assert.Equal(t, MissRank, p.Rank)
		assert.Equal(t, 0, p.TieCount)
		assert.Equal(t, 3, p.PoolSize)
	})

	t.Run("TargetNotInGraph", func(t *testing.T) {
		t.Parallel()
		p, err := calls.Predict(g, pathOf(mA, mX, mX+"2"), 2)
		require.NoError(t, err)
		assert.True(t, p.Miss())
	})

	t.Run("SeedMissing", func(t *testing.T) {
		t.Parallel()
		_, err := calls.Predict(g, pathOf(mA, mX, mB), 2)
		require.ErrorIs(t, err, ErrSeedMissing)
	})

	t.Run("Ties", func(t *testing.T) {
		t.Parallel()
		star := graph.NewKnowledgeGraph()
		mustEdge(t, star, mA, mB, graph.NodeMethod, graph.NodeMethod, graph.EdgeCalls)
		mustEdge(t, star, mA, mC, graph.NodeMethod, graph.NodeMethod, graph.EdgeCalls)

		p, err := calls.Predict(star, pathOf(mX, mA, mC), 2)
		require.NoError(t, err)
		assert.Equal(t, 2, p.Rank)
		assert.Equal(t, 2, p.TieCount)
	})

	t.Run("IndexOutOfRange", func(t *testing.T) {
		t.Parallel()
		_, err := calls.Predict(g, pathOf(mA, mB), 0)
		require.ErrorIs(t, err, ErrNavigationIndex)
	})
}
