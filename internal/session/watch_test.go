package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/pfis-go/internal/logging"
)

func TestWatcher_Concerns(t *testing.T) {
	t.Parallel()

	w := &Watcher{Path: "/data/session.db"}

	tests := []struct {
		name     string
		event    fsnotify.Event
		expected bool
	}{
		{"Write", fsnotify.Event{Name: "/data/session.db", Op: fsnotify.Write}, true},
		{"Journal", fsnotify.Event{Name: "/data/session.db-journal", Op: fsnotify.Create}, true},
		{"WAL", fsnotify.Event{Name: "/data/session.db-wal", Op: fsnotify.Write}, true},
		{"OtherFile", fsnotify.Event{Name: "/data/notes.txt", Op: fsnotify.Write}, false},
		{"Chmod", fsnotify.Event{Name: "/data/session.db", Op: fsnotify.Chmod}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, w.concerns(tt.event))
		})
	}
}

func TestWatcher_Watch(t *testing.T) {
	t.Parallel()

	db := filepath.Join(t.TempDir(), "session.db")
	require.NoError(t, os.WriteFile(db, []byte("v1"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := &Watcher{
		Path:     db,
		Interval: 20 * time.Millisecond,
		Logger:   logging.Discard(),
		Ready:    make(chan struct{}),
	}

	changed := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, func(context.Context) error {
			changed <- struct{}{}
			return nil
		})
	}()

	select {
	case <-w.Ready:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not start")
	}

	require.NoError(t, os.WriteFile(db, []byte("v2"), 0o644))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("change was not reported")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
