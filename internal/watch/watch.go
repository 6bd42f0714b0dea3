// Package watch reports debounced file changes under a directory tree.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
	slogctx "github.com/veqryn/slog-context"
)

// DefaultDebounce is how long a path must stay quiet before its change is
// reported.
const DefaultDebounce = 150 * time.Millisecond

// Event is one debounced change.
type Event struct {
	Path    string
	Removed bool
}

// Watcher watches a directory tree recursively.
type Watcher struct {
	root     string
	debounce time.Duration
	excludes []glob.Glob
	filter   func(path string) bool

	fsw     *fsnotify.Watcher
	mu      sync.Mutex
	pending map[string]*time.Timer
	ready   chan Event
	done    chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithFilter restricts reported events to paths for which fn returns true.
// Directories are always watched.
func WithFilter(fn func(path string) bool) Option {
	return func(w *Watcher) {
		w.filter = fn
	}
}

// New creates a Watcher for root. Exclude patterns are globs matched against
// slash-separated paths relative to root; matching directories are not
// descended into.
func New(root string, excludes []string, opts ...Option) (*Watcher, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch: %s is not a directory", root)
	}

	w := &Watcher{
		root:     root,
		debounce: DefaultDebounce,
		pending:  make(map[string]*time.Timer),
		ready:    make(chan Event, 64),
		done:     make(chan struct{}),
	}
	for _, p := range excludes {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("watch: exclude pattern %q: %w", p, err)
		}
		w.excludes = append(w.excludes, g)
	}
	for _, opt := range opts {
		opt(w)
	}

	w.fsw, err = fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if err := w.addTree(root); err != nil {
		w.fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run delivers events to fn until ctx is cancelled. Calls to fn are
// serialized. Run closes the Watcher on return.
func (w *Watcher) Run(ctx context.Context, fn func(context.Context, Event)) error {
	defer w.close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slogctx.Warn(ctx, "watch error", "err", err)
		case ev := <-w.ready:
			fn(ctx, ev)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	if w.excluded(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				slogctx.Warn(ctx, "watch: adding directory", "path", ev.Name, "err", err)
			}
			return
		}
	}
	if w.filter != nil && !w.filter(ev.Name) {
		return
	}
	removed := ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
	w.schedule(Event{Path: ev.Name, Removed: removed})
}

// schedule restarts the quiet period for a path; the latest event wins.
func (w *Watcher) schedule(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[ev.Path]; ok {
		t.Stop()
	}
	w.pending[ev.Path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, ev.Path)
		w.mu.Unlock()
		select {
		case w.ready <- ev:
		case <-w.done:
		}
	})
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.excluded(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: adding %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) excluded(path string) bool {
	if len(w.excludes) == 0 {
		return false
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, g := range w.excludes {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

func (w *Watcher) close() {
	w.mu.Lock()
	for _, t := range w.pending {
		t.Stop()
	}
	w.pending = map[string]*time.Timer{}
	w.mu.Unlock()
	close(w.done)
	w.fsw.Close()
}
