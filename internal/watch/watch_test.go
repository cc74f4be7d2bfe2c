package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectionWatcherDebouncesChanges(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var batches [][]string
	calls := make(chan struct{}, 10)
	sw, err := New(dir, 100*time.Millisecond, func(_ context.Context, changed []string) error {
		mu.Lock()
		batches = append(batches, changed)
		mu.Unlock()
		calls <- struct{}{}
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- sw.Run(ctx) }()

	// Give the watcher loop a moment to start selecting.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "01-hero.tsx"), []byte("a"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "02-cta.tsx"), []byte("b"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not invoked")
	}
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	var seen []string
	for _, b := range batches {
		seen = append(seen, b...)
	}
	assert.Contains(t, seen, "01-hero.tsx")
	assert.NotContains(t, seen, "notes.txt")
}

func TestNewMissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), 0, func(context.Context, []string) error { return nil })
	require.Error(t, err)
}

func TestRelevant(t *testing.T) {
	assert.True(t, relevant(fsnotify.Event{Name: "/p/01-hero.tsx", Op: fsnotify.Write}))
	assert.True(t, relevant(fsnotify.Event{Name: "/p/01-hero.tsx", Op: fsnotify.Remove}))
	assert.False(t, relevant(fsnotify.Event{Name: "/p/01-hero.tsx", Op: fsnotify.Chmod}))
	assert.False(t, relevant(fsnotify.Event{Name: "/p/.01-hero.tsx", Op: fsnotify.Write}))
	assert.False(t, relevant(fsnotify.Event{Name: "/p/page.json", Op: fsnotify.Create}))
}
