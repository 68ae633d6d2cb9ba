package snapshot

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the watcher waits for writes to settle
const DefaultDebounce = 500 * time.Millisecond

// Watcher rebuilds the snapshot when the corpus database file changes.
type Watcher struct {
	holder   *Holder
	watcher  *fsnotify.Watcher
	dir      string
	names    map[string]struct{}
	debounce time.Duration
	logger   *zap.Logger
}

// WatcherOption configures a Watcher
type WatcherOption func(*Watcher)

// WatcherWithDebounce sets the debounce interval
func WatcherWithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WatcherWithLogger sets the logger
func WatcherWithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = l
	}
}

// NewWatcher watches the database file at path. The parent directory is
// watched so that a file replaced by rename is still seen; SQLite's -wal and
// -journal siblings count as changes too.
func NewWatcher(holder *Holder, path string, opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	base := filepath.Base(path)
	w := &Watcher{
		holder:   holder,
		watcher:  fw,
		dir:      filepath.Dir(path),
		names:    map[string]struct{}{base: {}, base + "-wal": {}, base + "-journal": {}},
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	w.logger = w.logger.With(zap.String("component", "snapshot-watcher"), zap.String("path", path))

	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	return w, nil
}

// Run reloads the snapshot after each burst of changes until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", zap.Error(err))

		case <-timer.C:
			w.logger.Info("corpus file changed, reloading")
			if _, err := w.holder.Load(ctx); err != nil {
				w.logger.Warn("keeping previous snapshot", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if _, ok := w.names[filepath.Base(event.Name)]; !ok {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0
}

// Close stops the underlying file watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
