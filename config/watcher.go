package config

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Yunusemreunal45/ezcad2-wscad/errors"
)

// ReloadCallback is called with the freshly loaded config after the file
// changes on disk. Returning an error is logged; other callbacks still run.
type ReloadCallback func(*Config) error

// Watcher watches the config file for external edits and triggers reload
// callbacks. Writes performed through the Manager are suppressed via
// MarkOwnWrite to prevent reload loops.
type Watcher struct {
	manager *Manager
	watcher *fsnotify.Watcher
	logger  *zap.SugaredLogger

	mu            sync.RWMutex
	callbacks     []ReloadCallback
	debounceTimer *time.Timer

	ownWriteAt     time.Time
	ownWriteMu     sync.Mutex
	debouncePeriod time.Duration

	done chan struct{}
}

// NewWatcher creates a watcher over the manager's config file
func NewWatcher(manager *Manager, logger *zap.SugaredLogger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	if err := fsw.Add(manager.Path()); err != nil {
		fsw.Close()
		return nil, errors.Wrapf(err, "failed to watch config file %s", manager.Path())
	}

	w := &Watcher{
		manager:        manager,
		watcher:        fsw,
		logger:         logger,
		debouncePeriod: 500 * time.Millisecond, // editors fire several events per save
		done:           make(chan struct{}),
	}

	// Saves through the manager must not bounce back as reloads
	manager.OnSave(w.MarkOwnWrite)

	return w, nil
}

// OnReload registers a callback to run after each successful reload
func (w *Watcher) OnReload(callback ReloadCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// MarkOwnWrite marks an imminent write as coming from us (prevents reload
// loops). All file events within the suppression window are ignored, since
// one save can surface as several fsnotify events.
func (w *Watcher) MarkOwnWrite() {
	w.ownWriteMu.Lock()
	defer w.ownWriteMu.Unlock()
	w.ownWriteAt = time.Now()
}

func (w *Watcher) checkOwnWrite() bool {
	w.ownWriteMu.Lock()
	defer w.ownWriteMu.Unlock()
	return time.Since(w.ownWriteAt) < time.Second
}

// Start begins watching for config file changes
func (w *Watcher) Start() {
	go w.watchLoop()
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if isBackupFile(event.Name) {
				continue
			}
			if w.checkOwnWrite() {
				w.logger.Debugw("Config watcher ignoring own write", "file", event.Name)
				continue
			}

			w.logger.Infow("Config file changed on disk",
				"file", event.Name,
				"op", event.Op.String())
			w.scheduleReload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("Config watcher error", "error", err)
		}
	}
}

// scheduleReload debounces rapid file changes before reloading
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(w.debouncePeriod, func() {
		if err := w.reload(); err != nil {
			w.logger.Errorw("Config reload failed", "error", err)
		}
	})
}

func (w *Watcher) reload() error {
	if err := w.manager.Reload(); err != nil {
		return err
	}

	w.logger.Infow("Config reloaded", "path", w.manager.Path())

	w.mu.RLock()
	callbacks := make([]ReloadCallback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()

	for _, callback := range callbacks {
		if err := callback(w.manager.Active()); err != nil {
			w.logger.Warnw("Config reload callback error", "error", err)
		}
	}
	return nil
}

// Stop stops watching for config changes
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}

func isBackupFile(path string) bool {
	for _, suffix := range []string{".back1", ".back2", ".back3"} {
		if len(path) > len(suffix) && path[len(path)-len(suffix):] == suffix {
			return true
		}
	}
	return false
}
