package predict

import (
	"sort"
)

// MissRank is reported when the target cannot be ranked. It is larger than
// any real rank.
const MissRank = 999999

// Order is the direction in which scores rank.
type Order int

const (
	// Descending ranks higher scores first (activation, visit count).
	Descending Order = iota
	// Ascending ranks lower scores first (distance, recency position).
	Ascending
)

// better reports whether score a ranks strictly before score b.
func (o Order) better(a, b float64) bool {
	if o == Ascending {
		return a < b
	}
	return a > b
}

// Scored is a ranking candidate.
type Scored struct {
	ID    string
	Score float64
}

// Sort orders candidates by score, ties by ID.
func Sort(candidates []Scored, order Order) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return order.better(a.Score, b.Score)
		}
		return a.ID < b.ID
	})
}

// RankWithTies returns the rank of target among candidates and the number
// of candidates sharing its exact score, target included. The rank is one
// plus the number of candidates scoring strictly better, which is the first
// index of the tied group in a sorted list plus one.
//
// A target that is not a candidate yields MissRank and zero ties.
func RankWithTies(candidates []Scored, target string, order Order) (rank, ties int) {
	score, ok := scoreOf(candidates, target)
	if !ok {
		return MissRank, 0
	}

	better := 0
	for _, c := range candidates {
		switch {
		case c.Score == score:
			ties++
		case order.better(c.Score, score):
			better++
		}
	}
	return better + 1, ties
}

func scoreOf(candidates []Scored, id string) (float64, bool) {
	for _, c := range candidates {
		if c.ID == id {
			return c.Score, true
		}
	}
	return 0, false
}

// TopN returns the IDs of the first n sorted candidates.
func TopN(candidates []Scored, n int) []string {
	if n <= 0 {
		return nil
	}
	if n > len(candidates) {
		n = len(candidates)
	}
	ids := make([]string, n)
	for i := range ids {
		ids[i] = candidates[i].ID
	}
	return ids
}
