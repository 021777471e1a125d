// Package watcher observes a directory for new and modified files, filters
// them by extension, and emits debounced notifications onto a
// consumer-supplied sink. Whether a notification becomes a job is the
// consumer's policy, not the watcher's.
package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Yunusemreunal45/ezcad2-wscad/config"
	"github.com/Yunusemreunal45/ezcad2-wscad/errors"
)

// EventKind classifies a file notification
type EventKind string

const (
	EventCreated  EventKind = "created"
	EventModified EventKind = "modified"
)

// Notification is one debounced file event
type Notification struct {
	Path string
	Kind EventKind
}

// Config describes what to observe
type Config struct {
	Directory string
	Recursive bool
	Patterns  config.PatternSet
}

// DebounceWindow is how long repeat events for the same path are coalesced.
// Most OS save sequences fire several create/modify events per logical write.
const DebounceWindow = 2 * time.Second

// Watcher observes one directory and emits notifications to a sink channel.
// Safe for concurrent Start/Stop.
type Watcher struct {
	sink   chan<- Notification
	logger *zap.SugaredLogger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	cfg     Config
	running bool
	done    chan struct{}
	wg      sync.WaitGroup

	// last emit time per absolute path, for debounce
	seenMu sync.Mutex
	seen   map[string]time.Time

	window time.Duration
}

// New creates a watcher that delivers notifications to sink
func New(sink chan<- Notification, logger *zap.SugaredLogger) *Watcher {
	return &Watcher{
		sink:   sink,
		logger: logger,
		seen:   make(map[string]time.Time),
		window: DebounceWindow,
	}
}

// Start begins observing the configured directory. Fails with
// ErrInvalidDirectory when the directory does not exist. Calling Start while
// already running is a no-op that logs a warning.
func (w *Watcher) Start(cfg Config) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		w.logger.Warnw("Watcher already running, ignoring start", "directory", w.cfg.Directory)
		return nil
	}

	info, err := os.Stat(cfg.Directory)
	if err != nil || !info.IsDir() {
		return errors.Wrapf(errors.ErrInvalidDirectory, "watch directory %q", cfg.Directory)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create fsnotify watcher")
	}

	if err := fsw.Add(cfg.Directory); err != nil {
		fsw.Close()
		return errors.Wrapf(err, "failed to watch %s", cfg.Directory)
	}

	if cfg.Recursive {
		if err := addSubdirectories(fsw, cfg.Directory); err != nil {
			fsw.Close()
			return err
		}
	}

	w.fsw = fsw
	w.cfg = cfg
	w.done = make(chan struct{})
	w.running = true

	w.wg.Add(1)
	go w.observe(fsw, cfg, w.done)

	w.logger.Infow("Started watching directory",
		"directory", cfg.Directory,
		"recursive", cfg.Recursive,
		"extensions", cfg.Patterns.Suffixes())
	return nil
}

// Stop halts observation and blocks until the observation goroutine has
// fully terminated. No notification is emitted after Stop returns. Safe to
// call when not running.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.done)
	w.fsw.Close()
	w.running = false
	w.mu.Unlock()

	w.wg.Wait()
	w.logger.Info("Stopped watching directory")
}

// Running reports whether the watcher is currently observing
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) observe(fsw *fsnotify.Watcher, cfg Config, done chan struct{}) {
	defer w.wg.Done()

	for {
		select {
		case <-done:
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(fsw, cfg, done, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("Watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, cfg Config, done chan struct{}, event fsnotify.Event) {
	var kind EventKind
	switch {
	case event.Has(fsnotify.Create):
		kind = EventCreated
	case event.Has(fsnotify.Write):
		kind = EventModified
	default:
		return
	}

	// New subdirectory under a recursive watch gets its own watch entry
	if kind == EventCreated && cfg.Recursive {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := fsw.Add(event.Name); err != nil {
				w.logger.Warnw("Failed to watch new subdirectory",
					"directory", event.Name, "error", err)
			}
			return
		}
	}

	if !cfg.Patterns.Matches(event.Name) {
		return
	}

	if !w.debounce(event.Name) {
		w.logger.Debugw("Coalesced duplicate file event", "path", event.Name)
		return
	}

	abs, err := filepath.Abs(event.Name)
	if err != nil {
		abs = event.Name
	}

	w.logger.Infow("File detected", "path", abs, "kind", kind)

	select {
	case w.sink <- Notification{Path: abs, Kind: kind}:
	case <-done:
	}
}

// debounce records the event time for path and reports whether the event
// should be emitted (true) or coalesced into a recent one (false)
func (w *Watcher) debounce(path string) bool {
	now := time.Now()

	w.seenMu.Lock()
	defer w.seenMu.Unlock()

	if last, ok := w.seen[path]; ok && now.Sub(last) < w.window {
		return false
	}

	// Expired entries can never coalesce anything again; dropping them here
	// keeps the map bounded by the number of paths seen within one window
	for p, last := range w.seen {
		if now.Sub(last) >= w.window {
			delete(w.seen, p)
		}
	}

	w.seen[path] = now
	return true
}

func addSubdirectories(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(err, "failed to walk %s", path)
		}
		if d.IsDir() && path != root {
			if err := fsw.Add(path); err != nil {
				return errors.Wrapf(err, "failed to watch %s", path)
			}
		}
		return nil
	})
}
