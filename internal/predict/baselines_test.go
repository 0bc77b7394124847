package predict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrequency(t *testing.T) {
	t.Parallel()

	f := NewFrequency("Frequency", 1)

	t.Run("RanksByCountWithTies", func(t *testing.T) {
		t.Parallel()
		p, err := f.Predict(nil, pathOf(mA, mB, mA, mC, mA, mB), 5)
		require.NoError(t, err)
		assert.Equal(t, 2, p.Rank)
		assert.Equal(t, 2, p.TieCount)
		assert.Equal(t, 3, p.PoolSize)
		assert.Equal(t, []string{mA}, p.TopPredictions)
	})

	t.Run("NeverVisited", func(t *testing.T) {
		t.Parallel()
		p, err := f.Predict(nil, pathOf(mA, mB, mD), 2)
		require.NoError(t, err)
		assert.Equal(t, MissRank, p.Rank)
		assert.Equal(t, 0, p.TieCount)
		assert.Equal(t, 2, p.PoolSize)
	})

	t.Run("OnlyVisitedPrefixCounts", func(t *testing.T) {
		t.Parallel()
		p, err := f.Predict(nil, pathOf(mA, mB, mC, mC, mC), 2)
		require.NoError(t, err)
		assert.True(t, p.Miss(), "C is visited only after navigation 2")
	})

	t.Run("IndexOutOfRange", func(t *testing.T) {
		t.Parallel()
		_, err := f.Predict(nil, pathOf(mA, mB), 2)
		require.ErrorIs(t, err, ErrNavigationIndex)
	})
}

func TestRecency(t *testing.T) {
	t.Parallel()

	r := NewRecency("Recency", 3)

	t.Run("RevisitMovesToFront", func(t *testing.T) {
		t.Parallel()
		path := pathOf(mB, mA, mB, mC, mA)

		p, err := r.Predict(nil, path, 4)
		require.NoError(t, err)
		assert.Equal(t, 3, p.Rank)
		assert.Equal(t, 1, p.TieCount)
		assert.Equal(t, 3, p.PoolSize)
		assert.Equal(t, []string{mC, mB, mA}, p.TopPredictions)
	})

	t.Run("NeverVisited", func(t *testing.T) {
		t.Parallel()
		p, err := r.Predict(nil, pathOf(mA, mB, mD), 2)
		require.NoError(t, err)
		assert.True(t, p.Miss())
		assert.Equal(t, 0, p.TieCount)
	})

	t.Run("UnknownTarget", func(t *testing.T) {
		t.Parallel()
		p, err := r.Predict(nil, pathOf(mA, mB, ""), 2)
		require.NoError(t, err)
		assert.True(t, p.Miss())
	})
}
