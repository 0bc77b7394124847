package patches

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/pfis-go/internal/graph"
	"github.com/Benny93/pfis-go/internal/lang"
)

const (
	fooA = "L/p/src/a/Foo;.a()V"
	fooB = "L/p/src/a/Foo;.b()V"
	fooC = "L/p/src/a/Foo;.c()V"
)

func TestKnownPatches_Add(t *testing.T) {
	t.Parallel()

	k := New(lang.NewJavaHelper(nil))

	p, ok := k.Add(fooA)
	require.True(t, ok)
	assert.Equal(t, "/p/src/a/Foo.java", p.File)
	assert.Equal(t, lang.PatchSource, p.Kind)
	assert.Equal(t, graph.NodeMethod, p.NodeType())
	assert.Equal(t, -1, p.StartOffset)

	again, ok := k.Add(fooA)
	require.True(t, ok)
	assert.Same(t, p, again)
	assert.Equal(t, 1, k.Len())

	cl, ok := k.Add("/p/CHANGES.txt;.v2")
	require.True(t, ok)
	assert.Equal(t, lang.PatchChangelog, cl.Kind)
	assert.Equal(t, graph.NodeChangelog, cl.NodeType())

	_, ok = k.Add("nonsense")
	assert.False(t, ok)
}

func TestKnownPatches_FindByOffset(t *testing.T) {
	t.Parallel()

	k := New(lang.NewJavaHelper(nil))
	require.True(t, k.SetOffset(fooA, 10))
	require.True(t, k.SetLength(fooA, 20))
	require.True(t, k.SetOffset(fooB, 40))

	assert.False(t, k.SetLength("L/p/src/a/Unknown;.x()V", 5))

	p := k.FindByOffset("/p/src/a/Foo.java", 10)
	require.NotNil(t, p)
	assert.Equal(t, fooA, p.FQN)

	assert.Equal(t, fooA, k.FindByOffset(`\p\src\a\Foo.java`, 29).FQN)
	assert.Nil(t, k.FindByOffset("/p/src/a/Foo.java", 30), "end is exclusive")
	assert.Nil(t, k.FindByOffset("/p/src/a/Foo.java", 45), "length unknown")
	assert.Nil(t, k.FindByOffset("/p/src/a/Bar.java", 12))
}

func TestKnownPatches_AdjacentLists(t *testing.T) {
	t.Parallel()

	k := New(lang.NewJavaHelper(nil))
	k.SetOffset(fooC, 300)
	k.SetOffset(fooA, 100)
	k.SetOffset(fooB, 200)
	k.Add("L/p/src/a/Bar;.x()V")

	lists := k.AdjacentLists()
	require.Len(t, lists, 1)

	var fqns []string
	for _, p := range lists[0] {
		fqns = append(fqns, p.FQN)
	}
	assert.Equal(t, []string{fooA, fooB, fooC}, fqns)
}

func TestPatch_Contains(t *testing.T) {
	t.Parallel()

	p := &Patch{StartOffset: -1, Length: 10}
	assert.False(t, p.Contains(0))

	p.StartOffset = 0
	assert.True(t, p.Contains(0))
	assert.True(t, p.Contains(9))
	assert.False(t, p.Contains(10))
}

func TestNodeTypeOf(t *testing.T) {
	t.Parallel()

	helper := lang.NewJavaHelper(nil)

	nodeType, ok := NodeTypeOf(helper, fooA)
	assert.True(t, ok)
	assert.Equal(t, graph.NodeMethod, nodeType)

	nodeType, ok = NodeTypeOf(helper, "/p/out/run.html.output;.1")
	assert.True(t, ok)
	assert.Equal(t, graph.NodeOutput, nodeType)

	_, ok = NodeTypeOf(helper, "word")
	assert.False(t, ok)
}
