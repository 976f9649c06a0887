package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce coalesces the bursts of events editors produce when
// saving.
const DefaultWatchDebounce = 200 * time.Millisecond

// Watcher reloads the configuration when the file or one of its includes
// changes on disk.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	callbacks []func(*LoadResult)
	files     map[string]struct{}
}

// NewWatcher creates a watcher for the config file at path.
func NewWatcher(path string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     path,
		debounce: DefaultWatchDebounce,
		logger:   logger,
	}
}

// OnConfigChange registers a callback invoked with each successfully
// reloaded configuration.
func (w *Watcher) OnConfigChange(callback func(*LoadResult)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Run watches until ctx is done. Invalid configurations are logged and
// skipped so the previous one stays in effect.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer fsw.Close()

	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Watch directories rather than files: editors replace files on save,
	// which drops a watch on the old inode.
	watched := map[string]struct{}{}
	w.track(fsw, watched, []string{w.path})
	if res, err := LoadFromPath(w.path); err == nil {
		w.track(fsw, watched, res.Files)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("config change detected", "op", ev.Op.String(), "file", ev.Name)
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
			w.logger.Warn("config watcher error", "error", err)

		case <-fire:
			fire = nil
			res, err := LoadFromPath(w.path)
			if err != nil {
				w.logger.Warn("failed to reload config", "error", err)
				continue
			}
			w.track(fsw, watched, res.Files)
			w.notify(res)
		}
	}
}

func (w *Watcher) track(fsw *fsnotify.Watcher, watched map[string]struct{}, files []string) {
	w.mu.Lock()
	if w.files == nil {
		w.files = map[string]struct{}{}
	}
	for _, f := range files {
		w.files[filepath.Clean(f)] = struct{}{}
	}
	w.mu.Unlock()

	for _, f := range files {
		dir := filepath.Dir(f)
		if _, ok := watched[dir]; ok {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			w.logger.Warn("cannot watch config directory", "dir", dir, "error", err)
			continue
		}
		watched[dir] = struct{}{}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	name := filepath.Clean(ev.Name)

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.files[name]; ok {
		return true
	}
	// Canonical paths differ from the configured path under symlinks.
	if real, err := filepath.EvalSymlinks(name); err == nil {
		_, ok := w.files[real]
		return ok
	}
	return false
}

func (w *Watcher) notify(res *LoadResult) {
	w.mu.Lock()
	callbacks := make([]func(*LoadResult), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	for _, callback := range callbacks {
		callback(res)
	}
}
