package predict

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRankWithTies(t *testing.T) {
	t.Parallel()

	desc := []Scored{{"a", 3}, {"b", 2}, {"c", 2}, {"d", 1}}
	asc := []Scored{{"a", 0}, {"b", 1}, {"c", 1}, {"d", 2}}

	tests := []struct {
		name       string
		candidates []Scored
		target     string
		order      Order
		rank, ties int
	}{
		{"Best", desc, "a", Descending, 1, 1},
		{"TiedGroupSharesFirstIndex", desc, "c", Descending, 2, 2},
		{"TiedGroupOtherMember", desc, "b", Descending, 2, 2},
		{"Worst", desc, "d", Descending, 4, 1},
		{"Ascending", asc, "c", Ascending, 2, 2},
		{"AscendingSource", asc, "a", Ascending, 1, 1},
		{"Missing", desc, "z", Descending, MissRank, 0},
		{"Empty", nil, "a", Descending, MissRank, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rank, ties := RankWithTies(tt.candidates, tt.target, tt.order)
			assert.Equal(t, tt.rank, rank)
			assert.Equal(t, tt.ties, ties)
		})
	}
}

func TestRankWithTies_UninformativeScores(t *testing.T) {
	t.Parallel()

	candidates := []Scored{{"a", 0.5}, {"b", 0.5}, {"c", 0.5}, {"d", 0.5}, {"e", 0.5}}
	for _, c := range candidates {
		rank, ties := RankWithTies(candidates, c.ID, Descending)
		assert.Equal(t, 1, rank, c.ID)
		assert.Equal(t, len(candidates), ties, c.ID)
	}
}

func TestRankWithTies_MatchesSortedPosition(t *testing.T) {
	t.Parallel()

	candidates := []Scored{{"e", 0.2}, {"b", 0.9}, {"d", 0.2}, {"a", 0.9}, {"c", 0.5}, {"f", 0.1}}
	Sort(candidates, Descending)

	for _, target := range candidates {
		rank, ties := RankWithTies(candidates, target.ID, Descending)

		first, last := -1, -1
		for i, c := range candidates {
			if c.Score == target.Score {
				if first < 0 {
					first = i
				}
				last = i
			}
		}
		assert.Equal(t, first+1, rank, target.ID)
		assert.Equal(t, last-first+1, ties, target.ID)
	}
}

func TestSort(t *testing.T) {
	t.Parallel()

	t.Run("DescendingTiesByID", func(t *testing.T) {
		t.Parallel()
		c := []Scored{{"b", 1}, {"c", 2}, {"a", 1}}
		Sort(c, Descending)
		assert.Equal(t, []Scored{{"c", 2}, {"a", 1}, {"b", 1}}, c)
	})

	t.Run("Ascending", func(t *testing.T) {
		t.Parallel()
		c := []Scored{{"x", 2}, {"y", 0}, {"z", 1}}
		Sort(c, Ascending)
		assert.Equal(t, []string{"y", "z", "x"}, TopN(c, 3))
	})
}

func TestTopN(t *testing.T) {
	t.Parallel()

	c := []Scored{{"a", 3}, {"b", 2}}
	assert.Nil(t, TopN(c, 0))
	assert.Equal(t, []string{"a"}, TopN(c, 1))
	assert.Equal(t, []string{"a", "b"}, TopN(c, 10))
}
