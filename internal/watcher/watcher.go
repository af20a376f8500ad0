// Package watcher reports content changes of a single file.
//
// The parent directory is watched instead of the file itself so that replacing the file
// (write to a temporary name, then rename over the original) is seen as well.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher calls back when the watched file is written or recreated.
type Watcher struct {
	path     string
	debounce time.Duration
	log      *slog.Logger
	ready    chan struct{} // closed once the directory watch is in place
}

// New creates a Watcher for path. Events closer together than debounce are merged into
// a single notification.
func New(path string, debounce time.Duration, log *slog.Logger) *Watcher {
	return &Watcher{
		path:     path,
		debounce: debounce,
		log:      log,
		ready:    make(chan struct{}),
	}
}

// Run watches until ctx is cancelled. onChange runs on the watcher goroutine and must not block.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	target, err := filepath.Abs(w.path)
	if err != nil {
		return fmt.Errorf("resolve watched path %s: %w", w.path, err)
	}
	dir := filepath.Dir(target)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fsw.Close()

	if err = fsw.Add(dir); err != nil {
		return fmt.Errorf("watch directory %s: %w", dir, err)
	}
	close(w.ready)

	w.log.InfoContext(ctx, "Watching gazetteer for changes", "path", target, "debounce", w.debounce)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.log.InfoContext(ctx, "File watcher stopped.")
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !contentChanged(event, target) {
				continue
			}
			w.log.DebugContext(ctx, "Gazetteer file event", "op", event.Op.String(), "path", event.Name)

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.WarnContext(ctx, "File watcher error", "error", err)
		case <-fire:
			fire = nil
			onChange()
		}
	}
}

// contentChanged drops events for other files and metadata-only changes.
func contentChanged(event fsnotify.Event, target string) bool {
	if filepath.Clean(event.Name) != target {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}
