package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes for different data types
const (
	prefixRun    = "run:" // run:<id> -> Run
	prefixResult = "res:" // res:<id>:<index> -> Result
)

// BadgerStore is a BadgerDB-backed run store.
type BadgerStore struct {
	db          *badger.DB
	initialized bool
	mu          sync.RWMutex
}

var _ RunStore = (*BadgerStore)(nil)

// NewBadgerStore creates a new BadgerDB store.
func NewBadgerStore() *BadgerStore {
	return &BadgerStore{}
}

// Initialize opens or creates the BadgerDB database at the given path.
func (b *BadgerStore) Initialize(path string, readOnly bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithLoggingLevel(badger.ERROR) // Suppress INFO/WARNING logs

	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	var err error
	b.db, err = badger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening badger DB: %w", err)
	}

	b.initialized = true
	return nil
}

// Close releases all resources held by the store.
func (b *BadgerStore) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil
	b.initialized = false
	return err
}

func runKey(id string) []byte {
	return []byte(prefixRun + id)
}

func resultPrefix(id string) []byte {
	return []byte(prefixResult + id + ":")
}

// resultKey zero-pads the index so keys iterate in algorithm order.
func resultKey(id string, index int) []byte {
	return []byte(fmt.Sprintf("%s%s:%04d", prefixResult, id, index))
}

// SaveRun stores a run and its results in one transaction.
func (b *BadgerStore) SaveRun(ctx context.Context, run *Run, results []Result) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	prepareRun(run, results)

	return b.db.Update(func(txn *badger.Txn) error {
		data, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("marshaling run: %w", err)
		}
		if err := txn.Set(runKey(run.ID), data); err != nil {
			return fmt.Errorf("setting run: %w", err)
		}

		for i, r := range results {
			data, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("marshaling result %s: %w", r.Algorithm, err)
			}
			if err := txn.Set(resultKey(run.ID, i), data); err != nil {
				return fmt.Errorf("setting result %s: %w", r.Algorithm, err)
			}
		}
		return nil
	})
}

// GetRun returns a run by ID.
func (b *BadgerStore) GetRun(ctx context.Context, id string) (*Run, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var run Run
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(runKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &run)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}
	return &run, nil
}

// ListRuns returns every run, newest first.
func (b *BadgerStore) ListRuns(ctx context.Context) ([]*Run, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var runs []*Run
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixRun)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var run Run
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &run)
			}); err != nil {
				return fmt.Errorf("unmarshaling run: %w", err)
			}
			runs = append(runs, &run)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortRuns(runs)
	return runs, nil
}

// GetResults returns the results of a run in algorithm order.
func (b *BadgerStore) GetResults(ctx context.Context, id string) ([]Result, error) {
	if _, err := b.GetRun(ctx, id); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	var results []Result
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		results, err = readResults(txn, id)
		return err
	})
	return results, err
}

func readResults(txn *badger.Txn, id string) ([]Result, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = resultPrefix(id)
	it := txn.NewIterator(opts)
	defer it.Close()

	var results []Result
	for it.Rewind(); it.Valid(); it.Next() {
		var r Result
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &r)
		}); err != nil {
			return nil, fmt.Errorf("unmarshaling result: %w", err)
		}
		results = append(results, r)
	}
	return results, nil
}

// DeleteRun removes a run and its results.
func (b *BadgerStore) DeleteRun(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(runKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("run %s: %w", id, ErrRunNotFound)
			}
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = resultPrefix(id)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)

		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("deleting result: %w", err)
			}
		}
		return txn.Delete(runKey(id))
	})
}

// SearchPredictions scans the stored results for predictions matching query.
func (b *BadgerStore) SearchPredictions(ctx context.Context, query string, limit int) ([]PredictionHit, error) {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	runs, err := b.ListRuns(ctx)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	var hits []PredictionHit
	err = b.db.View(func(txn *badger.Txn) error {
		for _, run := range runs {
			if err := ctx.Err(); err != nil {
				return err
			}
			results, err := readResults(txn, run.ID)
			if err != nil {
				return err
			}
			hits = append(hits, matchResults(run.ID, results, tokens)...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rankHits(hits, limit), nil
}

func sortRuns(runs []*Run) {
	sort.SliceStable(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].ID < runs[j].ID
	})
}
