package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/pfis-go/internal/lang"
)

var t0 = time.Date(2016, 3, 1, 10, 0, 0, 0, time.UTC)

func at(sec int) time.Time {
	return t0.Add(time.Duration(sec) * time.Second)
}

func rec(sec int, action Action, target, referrer string) Record {
	return Record{Timestamp: at(sec), Action: action, Target: target, Referrer: referrer}
}

func TestParseAction(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ActionMethodInvocationScent, ParseAction("Method invocation scent"))
	assert.Equal(t, ActionTextSelectionOffset, ParseAction("Text selection offset"))
	assert.Equal(t, ActionUnknown, ParseAction("Part activated"))
	assert.Equal(t, "Variable type", ActionVariableType.String())
	assert.Equal(t, "unknown", ActionUnknown.String())

	for a := ActionUnknown + 1; a < ActionCount; a++ {
		assert.Equal(t, a, ParseAction(a.String()), "round trip of %d", a)
	}
}

func TestActionClasses(t *testing.T) {
	t.Parallel()

	assert.True(t, ActionPackage.IsStructural())
	assert.True(t, ActionChangelogDeclaration.IsStructural())
	assert.False(t, ActionMethodDeclarationScent.IsStructural())
	assert.True(t, ActionMethodDeclarationScent.IsScent())
	assert.True(t, ActionMethodDeclarationLength.IsDeclaration())
	assert.False(t, ActionTextSelectionOffset.IsDeclaration())
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2016-03-01T10:00:05Z", at(5)},
		{"2016-03-01 10:00:05.250", at(5).Add(250 * time.Millisecond)},
		{"2016-03-01 10:00:05", at(5)},
		{"2016-03-01 11:00:05+01:00", at(5)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, err := ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestLog_Window(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	log := NewLog(lang.NewJavaHelper(nil), []Record{
		rec(3, ActionMethodDeclarationOffset, "L/p/src/a/Foo;.b()V", "200"),
		rec(1, ActionPackage, `\p\src\a\Foo.java`, "a"),
		rec(2, ActionMethodDeclaration, "L/p/src/a/Foo;", "L/p/src/a/Foo;.b()V"),
		rec(2, ActionTextSelectionOffset, "/p/src/a/Foo.java", "5"),
		rec(4, ActionSimilarPatch, "L/p/src/a/Foo;.b()V", "L/q/src/a/Foo;.b()V"),
	})

	t.Run("SortedAndNormalised", func(t *testing.T) {
		t.Parallel()
		records := log.Records()
		require.Len(t, records, 5)
		assert.Equal(t, "/p/src/a/Foo.java", records[0].Target)
		assert.Equal(t, []Action{
			ActionPackage, ActionMethodDeclaration, ActionTextSelectionOffset,
			ActionMethodDeclarationOffset, ActionSimilarPatch,
		}, actionsOf(records))
	})

	t.Run("Facts", func(t *testing.T) {
		t.Parallel()
		facts, err := log.Facts(ctx, time.Time{}, at(3))
		require.NoError(t, err)
		require.Len(t, facts, 2)
		assert.Equal(t, ActionPackage, facts[0].Action)
		assert.Equal(t, ActionMethodDeclaration, facts[1].Action)

		facts, err = log.Facts(ctx, at(3), at(10))
		require.NoError(t, err)
		require.Len(t, facts, 1)
		assert.Equal(t, ActionSimilarPatch, facts[0].Action)

		facts, err = log.Facts(ctx, at(5), at(5))
		require.NoError(t, err)
		assert.Empty(t, facts)
	})

	t.Run("Offsets", func(t *testing.T) {
		t.Parallel()
		offsets, err := log.Offsets(ctx, at(1), at(4))
		require.NoError(t, err)
		require.Len(t, offsets, 1)
		assert.Equal(t, OffsetFact{
			File:        "/p/src/a/Foo.java",
			Method:      "L/p/src/a/Foo;.b()V",
			StartOffset: 200,
			Timestamp:   at(3),
		}, offsets[0])
	})

	t.Run("Cancelled", func(t *testing.T) {
		t.Parallel()
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := log.Facts(cctx, time.Time{}, at(10))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLog_BadOffset(t *testing.T) {
	t.Parallel()

	log := NewLog(lang.NewJavaHelper(nil), []Record{
		rec(1, ActionMethodDeclarationOffset, "L/p/src/a/Foo;.b()V", "twelve"),
	})
	_, err := log.Offsets(context.Background(), time.Time{}, at(2))
	assert.Error(t, err)
}

func actionsOf(records []Record) []Action {
	actions := make([]Action, len(records))
	for i, r := range records {
		actions[i] = r.Action
	}
	return actions
}
