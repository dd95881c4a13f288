package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nodecurio/curator/internal/logging"
)

// ReloadFunc receives a freshly loaded Config after the watched file
// changes on disk. It is called on the watcher's own goroutine; callers
// that need to publish the new config elsewhere must do their own
// synchronization.
type ReloadFunc func(*Config)

// Watcher watches a config file for writes and re-runs Load on change,
// debouncing rapid successive writes the way editors/deploy tools tend to
// produce them (save-then-rename, multiple writes per save).
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	path     string
	onReload ReloadFunc
	debounce time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// NewWatcher constructs a Watcher for path. Start must be called to begin
// watching.
func NewWatcher(path string, onReload ReloadFunc) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:  fw,
		path:     path,
		onReload: onReload,
		debounce: 300 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching the config file's parent directory (fsnotify
// can't watch a file across an editor's rename-to-replace save, only the
// directory reliably sees every event) in a background goroutine.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return err
	}

	go w.run()
	logging.Boot("config: watching %s for changes", w.path)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
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
	_ = w.watcher.Close()
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	var pending bool
	debounceTicker := time.NewTicker(50 * time.Millisecond)
	defer debounceTicker.Stop()
	lastEvent := time.Now()

	for {
		select {
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
			pending = true
			lastEvent = time.Now()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.BootError("config: watcher error: %v", err)

		case <-debounceTicker.C:
			if pending && time.Since(lastEvent) >= w.debounce {
				pending = false
				w.reload()
			}
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		logging.BootError("config: reload of %s failed, keeping previous configuration: %v", w.path, err)
		return
	}
	logging.Boot("config: reloaded %s", w.path)
	if w.onReload != nil {
		w.onReload(cfg)
	}
}
