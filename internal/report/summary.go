package report

import (
	"github.com/Benny93/pfis-go/internal/predict"
)

// Summary aggregates the predictions of one algorithm.
type Summary struct {
	Algorithm string  `json:"algorithm"`
	Total     int     `json:"total"`
	Scored    int     `json:"scored"`
	Misses    int     `json:"misses"`
	Hit1      int     `json:"hit_1"`
	Hit5      int     `json:"hit_5"`
	Hit10     int     `json:"hit_10"`
	MRR       float64 `json:"mrr"`
}

// Summarize computes hit counts and the mean reciprocal rank. Misses count
// as a reciprocal rank of zero.
func Summarize(algorithm string, predictions []predict.Prediction) Summary {
	s := Summary{Algorithm: algorithm, Total: len(predictions)}

	var reciprocal float64
	for _, p := range predictions {
		if p.Miss() {
			s.Misses++
			continue
		}
		s.Scored++
		reciprocal += 1 / float64(p.Rank)
		if p.Rank <= 1 {
			s.Hit1++
		}
		if p.Rank <= 5 {
			s.Hit5++
		}
		if p.Rank <= 10 {
			s.Hit10++
		}
	}
	if s.Total > 0 {
		s.MRR = reciprocal / float64(s.Total)
	}
	return s
}

// HitRate returns the share of predictions ranked at or above n.
func (s Summary) HitRate(n int) float64 {
	if s.Total == 0 {
		return 0
	}
	hits := s.Hit10
	switch {
	case n <= 1:
		hits = s.Hit1
	case n <= 5:
		hits = s.Hit5
	}
	return float64(hits) / float64(s.Total)
}
