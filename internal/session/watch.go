package session

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultBatchInterval is how long the watcher waits for writes to a
// session database to settle before re-evaluating.
const DefaultBatchInterval = 2 * time.Second

// Watcher re-runs a callback whenever a session database changes.
type Watcher struct {
	// Path is the session database. Its sqlite journal files count as
	// changes to it.
	Path string

	// Interval batches bursts of writes. Zero means DefaultBatchInterval.
	Interval time.Duration

	Logger *slog.Logger

	// Ready, if set, is closed once the watch is registered.
	Ready chan struct{}
}

// Watch blocks until ctx is cancelled, calling onChange after each batch
// of changes. Errors from onChange are logged and do not stop the watch.
func (w *Watcher) Watch(ctx context.Context, onChange func(ctx context.Context) error) error {
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultBatchInterval
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// sqlite replaces and truncates files next to the database, so the
	// directory is watched rather than the file.
	dir := filepath.Dir(w.Path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	if w.Ready != nil {
		close(w.Ready)
	}

	pending := false
	batchTimer := time.NewTimer(interval)
	batchTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.concerns(event) {
				continue
			}
			pending = true
			batchTimer.Reset(interval)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.Logger.Warn("watch error", "error", err)

		case <-batchTimer.C:
			if !pending {
				continue
			}
			pending = false
			w.Logger.Info("session changed", "path", w.Path)
			if err := onChange(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.Logger.Error("re-evaluation failed", "error", err)
			}
		}
	}
}

// concerns reports whether event touches the database or its journal.
func (w *Watcher) concerns(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(w.Path)
	name := filepath.Base(event.Name)
	return name == base || strings.HasPrefix(name, base+"-")
}
