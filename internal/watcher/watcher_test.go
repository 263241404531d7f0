package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/store"
)

func TestNewValidatesRoots(t *testing.T) {
	st := setupTestStore(t)

	if _, err := New(nil, []string{t.TempDir()}); err == nil {
		t.Error("New() accepted a nil store")
	}
	if _, err := New(st, nil); err == nil {
		t.Error("New() accepted an empty root list")
	}
	if _, err := New(st, []string{"/does/not/exist-xyz"}); err == nil {
		t.Error("New() accepted a missing root")
	}

	file := filepath.Join(t.TempDir(), "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(st, []string{file}); err == nil {
		t.Error("New() accepted a file as a root")
	}
}

func TestRootFor(t *testing.T) {
	st := setupTestStore(t)
	root := t.TempDir()

	w, err := New(st, []string{root})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		path string
		want string
	}{
		{filepath.Join(root, "sub", "file.tmp"), root},
		{root, root},
		{root + "-sibling/file.tmp", ""},
		{"/elsewhere/file.tmp", ""},
	}
	for _, tt := range tests {
		if got := w.rootFor(tt.path); got != tt.want {
			t.Errorf("rootFor(%s) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestOpString(t *testing.T) {
	tests := []struct {
		op   fsnotify.Op
		want string
	}{
		{fsnotify.Create, "create"},
		{fsnotify.Write, "write"},
		{fsnotify.Remove, "remove"},
		{fsnotify.Rename, "rename"},
		{fsnotify.Chmod, ""},
	}
	for _, tt := range tests {
		if got := opString(tt.op); got != tt.want {
			t.Errorf("opString(%v) = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestHandleEventBuffersAndFlushes(t *testing.T) {
	st := setupTestStore(t)
	root := t.TempDir()

	w, err := New(st, []string{root})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	path := filepath.Join(root, "grown.dat")
	if err := os.WriteFile(path, []byte("twelve bytes"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Create})
	w.handleEvent(fsnotify.Event{Name: "/outside/ignored.dat", Op: fsnotify.Create})
	w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Chmod})

	if len(w.pending) != 1 {
		t.Fatalf("pending = %d events, want 1", len(w.pending))
	}
	if w.pending[0].SizeBytes != 12 {
		t.Errorf("recorded size = %d, want 12", w.pending[0].SizeBytes)
	}

	w.flush()
	if len(w.pending) != 0 {
		t.Error("flush left events in the buffer")
	}

	growth, err := st.GrowthSince(time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("GrowthSince: %v", err)
	}
	if len(growth) != 1 || growth[0].Root != root {
		t.Fatalf("growth = %+v, want one entry for %s", growth, root)
	}
	if growth[0].BytesAdded != 12 {
		t.Errorf("bytes added = %d, want 12", growth[0].BytesAdded)
	}
}

func TestWatcherRecordsLiveChanges(t *testing.T) {
	st := setupTestStore(t)
	root := t.TempDir()

	w, err := New(st, []string{root})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	path := filepath.Join(root, "appeared.tmp")
	if err := os.WriteFile(path, []byte("fresh"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	// Give the kernel time to deliver the notification, then Stop flushes
	// whatever was buffered.
	time.Sleep(500 * time.Millisecond)
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	growth, err := st.GrowthSince(time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("GrowthSince: %v", err)
	}
	if len(growth) != 1 || growth[0].Events == 0 {
		t.Fatalf("growth = %+v, want recorded events for %s", growth, root)
	}
}

func TestWatcherPicksUpNewDirectories(t *testing.T) {
	st := setupTestStore(t)
	root := t.TempDir()

	w, err := New(st, []string{root})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// A directory created after Start must be watched too.
	sub := filepath.Join(root, "newdir")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	time.Sleep(300 * time.Millisecond)

	path := filepath.Join(sub, "nested.tmp")
	if err := os.WriteFile(path, []byte("below the new dir"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(500 * time.Millisecond)

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	growth, err := st.GrowthSince(time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("GrowthSince: %v", err)
	}
	if len(growth) != 1 || growth[0].Events == 0 {
		t.Fatalf("growth = %+v, want events from the new subdirectory", growth)
	}
}

func TestPruneWatchEvents(t *testing.T) {
	st := setupTestStore(t)

	old := &store.WatchEvent{Root: "/r", Path: "/r/old.tmp", Op: "create", Timestamp: time.Now().Add(-48 * time.Hour)}
	recent := &store.WatchEvent{Root: "/r", Path: "/r/new.tmp", Op: "create", Timestamp: time.Now()}
	if err := st.InsertWatchEvents([]*store.WatchEvent{old, recent}); err != nil {
		t.Fatalf("InsertWatchEvents: %v", err)
	}

	pruned, err := st.PruneWatchEvents(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("PruneWatchEvents: %v", err)
	}
	if pruned != 1 {
		t.Errorf("pruned = %d, want 1", pruned)
	}
}
