// Package session replays a recorded programming session: it builds the
// navigation path, grows one graph per graph configuration navigation by
// navigation, asks every configured algorithm to predict each navigation,
// and records the results.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Benny93/pfis-go/internal/compiler"
	"github.com/Benny93/pfis-go/internal/config"
	"github.com/Benny93/pfis-go/internal/events"
	"github.com/Benny93/pfis-go/internal/lang"
	"github.com/Benny93/pfis-go/internal/lexicon"
	"github.com/Benny93/pfis-go/internal/predict"
	"github.com/Benny93/pfis-go/internal/report"
	"github.com/Benny93/pfis-go/internal/storage"
)

// Outcome is the result of one evaluation.
type Outcome struct {
	Run     *storage.Run
	Results []storage.Result
	Stats   []compiler.Stats
}

// Evaluator runs the configured algorithms over a session.
type Evaluator struct {
	cfg    *config.Config
	store  storage.RunStore
	logger *slog.Logger
}

// NewEvaluator creates an evaluator. store may be nil, in which case runs
// are not persisted.
func NewEvaluator(cfg *config.Config, store storage.RunStore, logger *slog.Logger) *Evaluator {
	return &Evaluator{cfg: cfg, store: store, logger: logger}
}

// Run loads the configured session database and evaluates it.
func (e *Evaluator) Run(ctx context.Context) (*Outcome, error) {
	helper, err := NewHelper(e.cfg)
	if err != nil {
		return nil, err
	}

	log, err := events.LoadSQLite(ctx, e.cfg.Session.DB, helper, e.logger)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return e.Evaluate(ctx, log)
}

// Evaluate predicts every navigation of log with every algorithm, writes
// the reports and saves the run.
func (e *Evaluator) Evaluate(ctx context.Context, log *events.Log) (*Outcome, error) {
	start := time.Now()

	tokenizer, err := NewTokenizer(e.cfg.Lexicon)
	if err != nil {
		return nil, err
	}
	algs, err := BuildAlgorithms(e.cfg, log.Helper(), tokenizer)
	if err != nil {
		return nil, err
	}

	path, err := events.BuildNavigationPath(log, PathOptions(e.cfg))
	if err != nil {
		return nil, fmt.Errorf("building navigation path: %w", err)
	}
	e.logger.Info("navigation path built", "navigations", path.Len(), "records", log.Len())

	preds, stats, err := Predict(ctx, log, log.Helper(), tokenizer, path, algs, e.logger)
	if err != nil {
		return nil, err
	}

	results := make([]storage.Result, len(algs))
	for i, alg := range algs {
		results[i] = storage.Result{
			Algorithm:   alg.Name(),
			FileName:    alg.FileName,
			Predictions: preds[i],
			Summary:     report.Summarize(alg.Name(), preds[i]),
		}
	}

	if dir := e.cfg.Output.Dir; dir != "" {
		for _, r := range results {
			if err := report.Save(dir, r.Algorithm, r.FileName, r.Predictions); err != nil {
				return nil, fmt.Errorf("writing report for %s: %w", r.Algorithm, err)
			}
		}
	}

	run := &storage.Run{
		Session:     e.cfg.Session.DB,
		Language:    e.cfg.Session.Language,
		Navigations: path.Len(),
		Duration:    time.Since(start),
	}
	if e.store != nil {
		if err := e.store.SaveRun(ctx, run, results); err != nil {
			return nil, fmt.Errorf("saving run: %w", err)
		}
		e.logger.Info("run saved", "run", run.ID)
	}

	return &Outcome{Run: run, Results: results, Stats: stats}, nil
}

// PathOptions derives the navigation path options from cfg.
func PathOptions(cfg *config.Config) events.PathOptions {
	return events.PathOptions{
		ExcludeChangelog: cfg.Graph.ExcludeChangelog,
		ExcludeOutput:    cfg.Graph.ExcludeOutput,
	}
}

// Predict replays path for every algorithm. Algorithms sharing graph
// options share one compiler; for each navigation k the graph is extended
// to the navigation's timestamp before any of them predicts k. The result
// holds the predictions of algs[i] at index i, and the compiler statistics
// of every graph built.
func Predict(ctx context.Context, source events.Source, helper lang.Helper, tokenizer *lexicon.Tokenizer,
	path events.Path, algs []Algorithm, logger *slog.Logger) ([][]predict.Prediction, []compiler.Stats, error) {
	preds := make([][]predict.Prediction, len(algs))

	var order []compiler.Options
	groups := make(map[compiler.Options][]int)
	for i, alg := range algs {
		if _, ok := groups[alg.Graph]; !ok {
			order = append(order, alg.Graph)
		}
		groups[alg.Graph] = append(groups[alg.Graph], i)
	}

	stats := make([]compiler.Stats, 0, len(order))
	for _, opts := range order {
		c := compiler.New(source, helper, tokenizer, opts, logger)
		members := groups[opts]

		for k := 1; k < path.Len(); k++ {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			if err := c.ExtendTo(ctx, path[k].To.Timestamp); err != nil {
				return nil, nil, fmt.Errorf("extending graph for navigation %d: %w", k, err)
			}
			for _, i := range members {
				p, err := algs[i].Predict(c.Graph(), path, k)
				if err != nil {
					return nil, nil, fmt.Errorf("%s navigation %d: %w", algs[i].Name(), k, err)
				}
				preds[i] = append(preds[i], p)
			}
		}

		s := c.Stats()
		logger.Debug("graph compiled",
			"variant_topology", opts.VariantTopology,
			"nodes", c.Graph().NodeCount(),
			"edges", c.Graph().EdgeCount(),
			"facts", s.Facts,
			"skipped", s.Skipped,
			"word_collisions", s.WordCollisions)
		stats = append(stats, s)
	}
	return preds, stats, nil
}
