// Package watcher reports settled changes to files on disk. The editor uses
// it to notice when another process rewrites the shared projects cache.
package watcher

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

// Watcher monitors files and directories with fsnotify, debouncing bursts of
// writes until the file stops changing.
type Watcher struct {
	logger  *slog.Logger
	opts    Options
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	files   map[string]bool // individually watched files
	dirs    map[string]bool // fully watched directories
	known   map[string]bool // files seen present, to tell added from modified
	pending map[string]*pendingEvent

	events   chan Event
	errors   chan error
	done     chan struct{}
	stopOnce sync.Once
}

// pendingEvent tracks a file that may still be changing.
type pendingEvent struct {
	size    int64
	modTime time.Time
	timer   *time.Timer
}

// New creates a watcher.
func New(logger *slog.Logger, opts Options) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts.setDefaults()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		logger:  logger,
		opts:    opts,
		watcher: fw,
		files:   make(map[string]bool),
		dirs:    make(map[string]bool),
		known:   make(map[string]bool),
		pending: make(map[string]*pendingEvent),
		events:  make(chan Event, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Watch adds a file or directory. A file need not exist yet, but its parent
// directory must.
func (w *Watcher) Watch(path string) error {
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to add watch: %w", err)
		}
		w.mu.Lock()
		w.dirs[path] = true
		w.mu.Unlock()
		return nil

	case err != nil && !os.IsNotExist(err):
		return fmt.Errorf("failed to stat path: %w", err)
	}

	if err := w.watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to add watch: %w", err)
	}
	w.mu.Lock()
	w.files[path] = true
	w.known[path] = err == nil
	w.mu.Unlock()
	w.logger.Debug("watching file", "path", path)
	return nil
}

// Start processes events until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.done:
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			select {
			case w.errors <- err:
			default:
				w.logger.Warn("watcher error dropped", "error", err)
			}
		}
	}
}

// Events returns settled change events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns fsnotify errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Stop releases the watcher. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)

		w.mu.Lock()
		for _, p := range w.pending {
			p.timer.Stop()
		}
		clear(w.pending)
		w.mu.Unlock()

		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) relevant(path string) bool {
	if w.opts.shouldIgnore(path) {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[path] || w.dirs[filepath.Dir(path)]
}

func (w *Watcher) handle(event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	if !w.relevant(path) {
		return
	}

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.removed(path)
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
		w.startSettling(path)
	}
}

func (w *Watcher) removed(path string) {
	w.mu.Lock()
	if p, ok := w.pending[path]; ok {
		p.timer.Stop()
		delete(w.pending, path)
	}
	wasKnown := w.known[path]
	w.known[path] = false
	w.mu.Unlock()

	if wasKnown {
		w.emit(Event{Type: EventRemoved, Path: path})
	}
}

func (w *Watcher) startSettling(path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.pending[path]; ok {
		p.timer.Stop()
	}
	p := &pendingEvent{size: info.Size(), modTime: info.ModTime()}
	p.timer = time.AfterFunc(w.opts.SettleDelay, func() { w.checkSettled(path) })
	w.pending[path] = p
}

func (w *Watcher) checkSettled(path string) {
	info, statErr := os.Stat(path)

	w.mu.Lock()
	p, ok := w.pending[path]
	if !ok {
		w.mu.Unlock()
		return
	}

	if statErr != nil {
		delete(w.pending, path)
		wasKnown := w.known[path]
		w.known[path] = false
		w.mu.Unlock()
		if wasKnown {
			w.emit(Event{Type: EventRemoved, Path: path})
		}
		return
	}

	if info.Size() != p.size || !info.ModTime().Equal(p.modTime) {
		p.size = info.Size()
		p.modTime = info.ModTime()
		p.timer = time.AfterFunc(w.opts.SettleDelay, func() { w.checkSettled(path) })
		w.mu.Unlock()
		return
	}

	delete(w.pending, path)
	typ := EventAdded
	if w.known[path] {
		typ = EventModified
	}
	w.known[path] = true
	w.mu.Unlock()

	w.emit(Event{Type: typ, Path: path, Size: info.Size(), ModTime: info.ModTime()})
}

func (w *Watcher) emit(event Event) {
	select {
	case w.events <- event:
	case <-w.done:
	}
}
