// Package predict implements the navigation prediction algorithms: the
// PFIS spreading-activation family, a shortest-path baseline and the
// frequency and recency baselines. All of them share one ranking contract.
package predict

import (
	"errors"
	"fmt"
	"time"

	"github.com/Benny93/pfis-go/internal/events"
	"github.com/Benny93/pfis-go/internal/graph"
)

var (
	// ErrNavigationIndex is returned when asked to predict navigation 0 or
	// an index past the end of the path.
	ErrNavigationIndex = errors.New("navigation index out of range")

	// ErrSeedMissing is returned when the source of a navigation is not in
	// the graph and the algorithm cannot be seeded.
	ErrSeedMissing = errors.New("seed node not in graph")
)

// Prediction is the outcome of predicting one navigation.
type Prediction struct {
	NavIndex       int       `json:"nav_index"`
	Rank           int       `json:"rank"`
	PoolSize       int       `json:"pool_size"`
	TieCount       int       `json:"tie_count"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	Timestamp      time.Time `json:"timestamp"`
	TopPredictions []string  `json:"top_predictions,omitempty"`
}

// Miss reports whether the target could not be ranked.
func (p Prediction) Miss() bool {
	return p.Rank == MissRank
}

// Algorithm predicts navigation k of a path from the graph built up to that
// navigation.
type Algorithm interface {
	Name() string
	Predict(g *graph.KnowledgeGraph, path events.Path, k int) (Prediction, error)
}

func checkIndex(path events.Path, k int) error {
	if k < 1 || k >= path.Len() {
		return fmt.Errorf("predicting navigation %d of %d: %w", k, path.Len(), ErrNavigationIndex)
	}
	return nil
}

func miss(path events.Path, k, pool int) Prediction {
	nav := path[k]
	return Prediction{
		NavIndex:  k,
		Rank:      MissRank,
		PoolSize:  pool,
		From:      nav.FromString(),
		To:        nav.To.String(),
		Timestamp: nav.To.Timestamp,
	}
}

// ranked sorts candidates and ranks the target of navigation k among them.
func ranked(path events.Path, k int, candidates []Scored, order Order, topN int) Prediction {
	Sort(candidates, order)
	return rankInOrder(path, k, candidates, order, topN)
}

// rankInOrder ranks the target among candidates that are already in their
// final order.
func rankInOrder(path events.Path, k int, candidates []Scored, order Order, topN int) Prediction {
	nav := path[k]
	if nav.ToUnknown() {
		return miss(path, k, len(candidates))
	}
	rank, ties := RankWithTies(candidates, nav.To.Patch, order)
	if rank == MissRank {
		return miss(path, k, len(candidates))
	}
	return Prediction{
		NavIndex:       k,
		Rank:           rank,
		PoolSize:       len(candidates),
		TieCount:       ties,
		From:           nav.FromString(),
		To:             nav.To.String(),
		Timestamp:      nav.To.Timestamp,
		TopPredictions: TopN(candidates, topN),
	}
}
