// Package storage persists prediction runs so they can be listed, reported
// and served after the evaluation that produced them has exited.
//
// It defines the RunStore interface all storage implementations satisfy,
// along with the record types shared by the backends.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Benny93/pfis-go/internal/predict"
	"github.com/Benny93/pfis-go/internal/report"
)

// ErrRunNotFound is returned when a run ID is not in the store.
var ErrRunNotFound = errors.New("run not found")

// Run describes one evaluation of a recorded session.
type Run struct {
	// ID is a UUID assigned when the run is saved.
	ID string `json:"id"`

	CreatedAt time.Time     `json:"created_at"`
	Duration  time.Duration `json:"duration"`

	// Session is the path of the session log that was replayed.
	Session  string `json:"session"`
	Language string `json:"language"`

	// Navigations is the length of the navigation path.
	Navigations int `json:"navigations"`

	Algorithms []string `json:"algorithms"`
}

// Result holds the predictions of one algorithm within a run.
type Result struct {
	Algorithm   string               `json:"algorithm"`
	FileName    string               `json:"file_name"`
	Predictions []predict.Prediction `json:"predictions"`
	Summary     report.Summary       `json:"summary"`
}

// PredictionHit is a prediction matched by a search.
type PredictionHit struct {
	RunID      string             `json:"run_id"`
	Algorithm  string             `json:"algorithm"`
	Score      float64            `json:"score"`
	Prediction predict.Prediction `json:"prediction"`
}

// RunStore defines the interface for run storage implementations.
//
// Implementations must be safe for concurrent use.
type RunStore interface {
	// Initialize opens or creates the store at the given path.
	// If readOnly is true, the store is opened in read-only mode.
	Initialize(path string, readOnly bool) error

	// Close releases all resources held by the store.
	Close() error

	// SaveRun stores a run and its results. A run without an ID is given a
	// new one; the ID is written back into run.
	SaveRun(ctx context.Context, run *Run, results []Result) error

	// GetRun returns a run by ID or ErrRunNotFound.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns every run, newest first.
	ListRuns(ctx context.Context) ([]*Run, error)

	// GetResults returns the results of a run in algorithm order.
	GetResults(ctx context.Context, id string) ([]Result, error)

	// DeleteRun removes a run and its results.
	DeleteRun(ctx context.Context, id string) error

	// SearchPredictions finds predictions whose source or target location
	// matches query, best matches first.
	SearchPredictions(ctx context.Context, query string, limit int) ([]PredictionHit, error)
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

func prepareRun(run *Run, results []Result) {
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if len(run.Algorithms) == 0 {
		for _, r := range results {
			run.Algorithms = append(run.Algorithms, r.Algorithm)
		}
	}
}
