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

// Kind classifies the filesystem change that produced an Event.
type Kind int

const (
	Created Kind = iota
	Modified
	Removed
)

func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is a single coalesced filesystem change under the watched tree,
// ready to be submitted as pipeline input.
type Event struct {
	Path       string
	Kind       Kind
	ObservedAt time.Time
}

// DefaultDebounce is how long the Watcher waits for a burst of events on the
// same path to settle before emitting a single coalesced Event.
const DefaultDebounce = 200 * time.Millisecond

// Watcher recursively watches a source tree with fsnotify and coalesces
// bursts of events on the same path into a single Event per debounce
// window.
type Watcher struct {
	root     string
	debounce time.Duration
	logger   *slog.Logger
	fsw      *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*pendingEvent
}

type pendingEvent struct {
	kind  Kind
	timer *time.Timer
}

// New constructs a Watcher rooted at root. debounce <= 0 uses DefaultDebounce.
func New(root string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	w := &Watcher{
		root:     root,
		debounce: debounce,
		logger:   logger,
		fsw:      fsw,
		pending:  make(map[string]*pendingEvent),
	}

	if err := w.addTreeRecursive(root); err != nil {
		fsw.Close()
		return nil, err
	}

	return w, nil
}

func (w *Watcher) addTreeRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := w.fsw.Add(path); err != nil {
				return fmt.Errorf("watcher: watch %s: %w", path, err)
			}
		}
		return nil
	})
}

// Run consumes fsnotify events until ctx is canceled, calling emit once per
// coalesced Event. Run blocks; callers run it in its own goroutine.
func (w *Watcher) Run(ctx context.Context, emit func(Event)) {
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			w.drainTimers()
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleRawEvent(ev, emit)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher: fsnotify error", "error", err)
		}
	}
}

func (w *Watcher) handleRawEvent(ev fsnotify.Event, emit func(Event)) {
	kind, ok := classify(ev.Op)
	if !ok {
		return
	}

	if kind == Created {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.fsw.Add(ev.Name); err != nil {
				w.logger.Warn("watcher: failed to watch new directory", "path", ev.Name, "error", err)
			}
			return
		}
	}

	w.debounceEmit(ev.Name, kind, emit)
}

func classify(op fsnotify.Op) (Kind, bool) {
	switch {
	case op&fsnotify.Create != 0:
		return Created, true
	case op&fsnotify.Remove != 0, op&fsnotify.Rename != 0:
		return Removed, true
	case op&fsnotify.Write != 0, op&fsnotify.Chmod != 0:
		return Modified, true
	default:
		return 0, false
	}
}

// debounceEmit resets the pending timer for path so that a burst of events
// within the debounce window collapses to exactly one Event, carrying the
// most recently observed Kind.
func (w *Watcher) debounceEmit(path string, kind Kind, emit func(Event)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.pending[path]; ok {
		p.kind = kind
		p.timer.Reset(w.debounce)
		return
	}

	p := &pendingEvent{kind: kind}
	p.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		finalKind := p.kind
		w.mu.Unlock()

		emit(Event{Path: path, Kind: finalKind, ObservedAt: time.Now()})
	})
	w.pending[path] = p
}

func (w *Watcher) drainTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, path)
	}
}
