// Package watch re-runs assembly and review when section files change.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/craigdanielk/web-builder/internal/foundation/errors"
	"github.com/craigdanielk/web-builder/internal/logfields"
)

// DefaultDebounce collapses bursts of editor writes into one rebuild.
const DefaultDebounce = 500 * time.Millisecond

// Handler is invoked after a quiet period following section changes.
type Handler func(ctx context.Context, changed []string) error

// SectionWatcher monitors a sections directory.
type SectionWatcher struct {
	dir      string
	handler  Handler
	debounce time.Duration
	watcher  *fsnotify.Watcher
}

// New creates a watcher for dir. A non-positive debounce uses DefaultDebounce.
func New(dir string, debounce time.Duration, handler Handler) (*SectionWatcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "resolve sections directory").
			WithContext("path", dir).Build()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRuntime, "create file watcher").Build()
	}
	if err := w.Add(abs); err != nil {
		_ = w.Close()
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "watch sections directory").
			WithContext("path", abs).Build()
	}
	return &SectionWatcher{dir: abs, handler: handler, debounce: debounce, watcher: w}, nil
}

// Run processes events until ctx is done. Handler errors are logged and the
// watcher keeps going.
func (sw *SectionWatcher) Run(ctx context.Context) error {
	defer func() {
		if err := sw.watcher.Close(); err != nil {
			slog.Error("Error closing file watcher", logfields.Error(err))
		}
	}()
	slog.Info("Watching sections", logfields.Path(sw.dir))

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending = map[string]struct{}{}
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-sw.watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			slog.Debug("Section change detected", logfields.File(filepath.Base(event.Name)), "op", event.Op.String())
			pending[filepath.Base(event.Name)] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(sw.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(sw.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for name := range pending {
				changed = append(changed, name)
			}
			clear(pending)
			slices.Sort(changed)
			if err := sw.handler(ctx, changed); err != nil {
				slog.Error("Rebuild after section change failed", logfields.Error(err))
			}

		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("Section watcher error", logfields.Error(err))
		}
	}
}

func relevant(e fsnotify.Event) bool {
	if !strings.HasSuffix(e.Name, ".tsx") || strings.HasPrefix(filepath.Base(e.Name), ".") {
		return false
	}
	return e.Op.Has(fsnotify.Write) || e.Op.Has(fsnotify.Create) ||
		e.Op.Has(fsnotify.Remove) || e.Op.Has(fsnotify.Rename)
}
