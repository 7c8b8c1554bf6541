package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"gitpress/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the config file for changes and re-runs resolution.
// Rapid editor saves are debounced so a single change triggers one reload.
type Watcher struct {
	mu        sync.Mutex
	watcher   *fsnotify.Watcher
	path      string
	st        ConfigStore
	onChange  func(Config)
	lastEvent time.Time
	dirty     bool
	stopCh    chan struct{}
	doneCh    chan struct{}
	running   bool
}

// NewWatcher creates a watcher for the given config file path.
// onChange receives the freshly resolved Config after each settled change.
func NewWatcher(path string, st ConfigStore, onChange func(Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:  fw,
		path:     path,
		st:       st,
		onChange: onChange,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; events are handled in a goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	// Watch the directory: editors replace files, which breaks file watches.
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		logging.Get(logging.CategoryConfig).Warn("Config watch failed for %s: %v", dir, err)
	} else {
		logging.Config("Watching config directory: %s", dir)
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for cleanup.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryConfig).Error("Error closing config watcher: %v", err)
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	debounce := time.NewTicker(200 * time.Millisecond)
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.Lock()
			w.dirty = true
			w.lastEvent = time.Now()
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryConfig).Error("Config watcher error: %v", err)

		case <-debounce.C:
			w.mu.Lock()
			fire := w.dirty && time.Since(w.lastEvent) > 300*time.Millisecond
			if fire {
				w.dirty = false
			}
			w.mu.Unlock()
			if fire {
				logging.Config("Config file changed, reloading: %s", w.path)
				if err := logging.ReloadConfig(); err != nil {
					logging.Get(logging.CategoryConfig).Warn("Logging config reload failed: %v", err)
				}
				if w.onChange != nil {
					w.onChange(Resolve(w.st, w.path))
				}
			}
		}
	}
}
