package library

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher keeps a cached listing of a directory's media files and refreshes
// it whenever fsnotify reports a change.
type Watcher struct {
	dir string
	log *slog.Logger

	mu    sync.RWMutex
	files []string

	fsw *fsnotify.Watcher
}

func NewWatcher(dir string, log *slog.Logger) (*Watcher, error) {
	files, err := Scan(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &Watcher{dir: dir, log: log, files: files, fsw: fsw}, nil
}

// Files returns a copy of the current listing.
func (w *Watcher) Files() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.files)
}

func (w *Watcher) Contains(name string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, found := slices.BinarySearch(w.files, name)
	return found
}

// Refresh rescans the directory immediately.
func (w *Watcher) Refresh() error {
	files, err := Scan(w.dir)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.files = files
	w.mu.Unlock()
	return nil
}

// Run processes filesystem events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Chmod) || !IsMedia(ev.Name) {
				continue
			}
			if err := w.Refresh(); err != nil {
				w.log.Warn("library refresh failed", "dir", w.dir, "err", err)
				continue
			}
			w.log.Debug("library changed", "event", ev.Op.String(), "file", ev.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("library watcher error", "err", err)
		}
	}
}
