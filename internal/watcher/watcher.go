package watcher

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/logging"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/store"
)

// flushInterval is how often buffered events are committed to the database.
const flushInterval = 5 * time.Second

// Watcher records filesystem changes under its roots into the database.
// Events are buffered in memory and flushed on a ticker so a noisy directory
// costs one transaction per tick.
type Watcher struct {
	store *store.Store
	roots []string

	fs          *fsnotify.Watcher
	flushTicker *time.Ticker
	stopCh      chan struct{}
	wg          sync.WaitGroup

	mu      sync.Mutex
	pending []*store.WatchEvent
}

// New creates a Watcher over the given roots. Roots must exist; a missing
// root is a configuration error, not something to silently skip.
func New(st *store.Store, roots []string) (*Watcher, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("no roots to watch")
	}

	abs := make([]string, 0, len(roots))
	for _, root := range roots {
		a, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
		}
		info, err := os.Stat(a)
		if err != nil {
			return nil, fmt.Errorf("failed to stat root %s: %w", a, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("root %s is not a directory", a)
		}
		abs = append(abs, a)
	}

	return &Watcher{
		store:  st,
		roots:  abs,
		stopCh: make(chan struct{}),
	}, nil
}

// Start subscribes to change notifications for every directory under the
// roots and begins buffering events.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	w.fs = fsw

	for _, root := range w.roots {
		if err := w.addTree(root); err != nil {
			fsw.Close()
			return fmt.Errorf("failed to watch %s: %w", root, err)
		}
	}

	w.flushTicker = time.NewTicker(flushInterval)

	w.wg.Add(1)
	go w.run()

	logging.L().Info().Strs("roots", w.roots).Msg("watcher started")
	return nil
}

// Stop halts the watcher and flushes any buffered events.
func (w *Watcher) Stop() error {
	close(w.stopCh)

	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	w.wg.Wait()

	if w.fs != nil {
		if err := w.fs.Close(); err != nil {
			return fmt.Errorf("failed to close watcher: %w", err)
		}
	}
	return nil
}

// Growth aggregates recorded churn per root since the given time.
func (w *Watcher) Growth(since time.Time) ([]*store.RootGrowth, error) {
	return w.store.GrowthSince(since)
}

// addTree registers a watch on dir and every directory below it. Unreadable
// subdirectories are skipped with a log line; losing one subtree should not
// take down the whole watch.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			logging.L().Warn().Str("path", path).Err(err).Msg("skipping unreadable directory")
			return fs.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fs.Add(path); err != nil {
			logging.L().Warn().Str("path", path).Err(err).Msg("failed to add watch")
			return fs.SkipDir
		}
		return nil
	})
}

// run is the event loop. It drains notifications into the buffer, flushes on
// each tick, and does a final flush when the stop signal is received.
func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				w.flush()
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				w.flush()
				return
			}
			logging.L().Warn().Err(err).Msg("watch error")
		case <-w.flushTicker.C:
			w.flush()
		case <-w.stopCh:
			w.flush()
			return
		}
	}
}

// handleEvent buffers one notification. New directories are added to the
// watch set so the recursion stays complete as the tree grows.
func (w *Watcher) handleEvent(ev fsnotify.Event) {
	op := opString(ev.Op)
	if op == "" {
		return
	}

	root := w.rootFor(ev.Name)
	if root == "" {
		return
	}

	var size int64
	if op == "create" || op == "write" {
		info, err := os.Lstat(ev.Name)
		if err == nil {
			if info.IsDir() {
				if op == "create" {
					if err := w.addTree(ev.Name); err != nil {
						logging.L().Warn().Str("path", ev.Name).Err(err).Msg("failed to watch new directory")
					}
				}
				return
			}
			size = info.Size()
		}
	}

	w.mu.Lock()
	w.pending = append(w.pending, &store.WatchEvent{
		Root:      root,
		Path:      ev.Name,
		Op:        op,
		SizeBytes: size,
		Timestamp: time.Now(),
	})
	w.mu.Unlock()
}

// flush commits the buffered events in one transaction. On failure the
// batch is dropped rather than retried; growth tracking is advisory and an
// unbounded retry buffer is worse than a gap.
func (w *Watcher) flush() {
	w.mu.Lock()
	batch := w.pending
	w.pending = nil
	w.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	if err := w.store.InsertWatchEvents(batch); err != nil {
		logging.L().Error().Int("events", len(batch)).Err(err).Msg("failed to flush watch events")
	}
}

// rootFor returns the configured root containing path, or "" when the path
// is outside every root. Matches at path-component boundaries so /data-old
// does not fall under /data.
func (w *Watcher) rootFor(path string) string {
	for _, root := range w.roots {
		if path == root {
			return root
		}
		if strings.HasPrefix(path, root+string(filepath.Separator)) {
			return root
		}
	}
	return ""
}

// opString maps a notification to the stored op name. Chmod is noise for
// growth tracking and maps to "".
func opString(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	default:
		return ""
	}
}
