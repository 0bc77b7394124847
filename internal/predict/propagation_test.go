package predict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/pfis-go/internal/graph"
	"github.com/Benny93/pfis-go/internal/lang"
)

func TestUniform_InputUnchanged(t *testing.T) {
	t.Parallel()

	g := chain(t)
	seeds := Activation{mA: 1}
	out := Uniform{}.Propagate(g, seeds, config(3))

	assert.Equal(t, Activation{mA: 1}, seeds)
	assert.Contains(t, out, mC)
}

func TestPhased(t *testing.T) {
	t.Parallel()

	g := graph.NewKnowledgeGraph()
	mustEdge(t, g, mA, "foo", graph.NodeMethod, graph.NodeWord, graph.EdgeContains)
	mustEdge(t, g, mA, "bar", graph.NodeMethod, graph.NodeWord, graph.EdgeContains)
	mustEdge(t, g, mA, mB, graph.NodeMethod, graph.NodeMethod, graph.EdgeCalls)

	seeds := Activation{mA: 1}

	t.Run("CodeToWords", func(t *testing.T) {
		t.Parallel()
		act := Phased{}.Propagate(g, seeds, config(1))
		assert.InDelta(t, 0.425, act["foo"], 1e-12)
		assert.InDelta(t, 0.425, act["bar"], 1e-12)
		assert.NotContains(t, act, mB)
	})

	t.Run("CodeToCode", func(t *testing.T) {
		t.Parallel()
		act := Phased{}.Propagate(g, seeds, config(2))
		assert.InDelta(t, 0.85, act[mB], 1e-12, "words are not targets of the level phase")
		assert.InDelta(t, 0.425, act["foo"], 1e-12)
		assert.Equal(t, 1.0, act[mA])
	})

	t.Run("WordsToCode", func(t *testing.T) {
		t.Parallel()
		act := Phased{}.Propagate(g, seeds, config(3))
		assert.InDelta(t, 1+2*0.425*0.85, act[mA], 1e-12)
		assert.InDelta(t, 0.85, act[mB], 1e-12)
	})
}

func TestPhased_LevelsMergeBeforeDeeperLevels(t *testing.T) {
	t.Parallel()

	g := graph.NewKnowledgeGraph()
	mustEdge(t, g, fooClass, mA, graph.NodeClass, graph.NodeMethod, graph.EdgeContains)
	mustEdge(t, g, mA, mB, graph.NodeMethod, graph.NodeMethod, graph.EdgeAdjacent)

	act := Phased{}.Propagate(g, Activation{fooClass: 1, mA: 1}, config(2))

	// the class (level 1) feeds A before A (level 2) spreads
	assert.InDelta(t, 1.85, act[mA], 1e-12)
	assert.InDelta(t, 1.85*0.85, act[mB], 1e-12)
	assert.Equal(t, 1.0, act[fooClass], "a deeper level never spreads back up")
}

func TestTouchOnce(t *testing.T) {
	t.Parallel()

	g := chain(t)
	mustEdge(t, g, mC, mD, graph.NodeMethod, graph.NodeMethod, graph.EdgeCalls)

	act := TouchOnce{}.Propagate(g, Activation{mA: 1}, config(0))

	assert.Equal(t, 1.0, act[mA])
	assert.InDelta(t, 0.85, act[mB], 1e-12)
	assert.InDelta(t, 0.85*0.5*0.85, act[mC], 1e-12)
	assert.InDelta(t, 0.85*0.5*0.85*0.5*0.85, act[mD], 1e-12)
}

func TestMethodSeeder_History(t *testing.T) {
	t.Parallel()

	g := chain(t)
	mustEdge(t, g, mC, mD, graph.NodeMethod, graph.NodeMethod, graph.EdgeCalls)

	cfg := config(0)
	cfg.UseHistory = true

	t.Run("DistinctPatchesDecay", func(t *testing.T) {
		t.Parallel()
		act := make(Activation)
		MethodSeeder{}.Seed(g, pathOf(mA, mB, mA, mC, mD), 4, cfg, act)

		require.Len(t, act, 3)
		assert.Equal(t, 1.0, act[mC])
		assert.InDelta(t, 0.9, act[mA], 1e-12, "most recent visit wins")
		assert.InDelta(t, 0.81, act[mB], 1e-12)
	})

	t.Run("MissingPatchUsesItsPosition", func(t *testing.T) {
		t.Parallel()
		act := make(Activation)
		MethodSeeder{}.Seed(g, pathOf(mB, mX, mA, mD), 3, cfg, act)

		assert.Equal(t, 1.0, act[mA])
		assert.NotContains(t, act, mX)
		assert.InDelta(t, 0.81, act[mB], 1e-12)
	})

	t.Run("UnresolvedLocationUsesItsPosition", func(t *testing.T) {
		t.Parallel()
		act := make(Activation)
		MethodSeeder{}.Seed(g, pathOf(mB, "", mA, mD), 3, cfg, act)

		require.Len(t, act, 2)
		assert.Equal(t, 1.0, act[mA])
		assert.InDelta(t, 0.81, act[mB], 1e-12)
	})

	t.Run("WithoutHistory", func(t *testing.T) {
		t.Parallel()
		act := make(Activation)
		MethodSeeder{}.Seed(g, pathOf(mA, mB, mA, mC, mD), 4, config(0), act)
		assert.Equal(t, Activation{mC: 1}, act)
	})
}

func TestHierarchySeeder(t *testing.T) {
	t.Parallel()

	helper := lang.NewJavaHelper(nil)
	g := graph.NewKnowledgeGraph()
	mustEdge(t, g, "org/demo", fooFile, graph.NodePackage, graph.NodeFile, graph.EdgeContains)
	mustEdge(t, g, fooFile, fooClass, graph.NodeFile, graph.NodeClass, graph.EdgeContains)
	mustEdge(t, g, fooClass, mA, graph.NodeClass, graph.NodeMethod, graph.EdgeContains)

	path := pathOf(mX, mA, mB)

	t.Run("AllLevels", func(t *testing.T) {
		t.Parallel()
		act := make(Activation)
		HierarchySeeder{Helper: helper}.Seed(g, path, 2, config(0), act)
		assert.Equal(t, Activation{"org/demo": 1, fooFile: 1, fooClass: 1, mA: 1}, act)
	})

	t.Run("EndsOnly", func(t *testing.T) {
		t.Parallel()
		act := make(Activation)
		HierarchySeeder{Helper: helper, EndsOnly: true}.Seed(g, path, 2, config(0), act)
		assert.Equal(t, Activation{"org/demo": 1, mA: 1}, act)
	})
}
