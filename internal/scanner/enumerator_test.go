package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func collect(t *testing.T, ch <-chan FileRecord) []FileRecord {
	t.Helper()
	var records []FileRecord
	for rec := range ch {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })
	return records
}

func paths(records []FileRecord) []string {
	out := make([]string, len(records))
	for i, rec := range records {
		out[i] = rec.Path
	}
	return out
}

func TestEnumerateBasic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.log"), 10)
	writeFile(t, filepath.Join(root, "sub", "b.TMP"), 20)
	writeFile(t, filepath.Join(root, "sub", "deep", "c"), 30)

	e := New(Options{})
	records := collect(t, e.Enumerate(context.Background(), []string{root}))

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d: %v", len(records), paths(records))
	}
	if e.Emitted() != 3 {
		t.Errorf("Emitted() = %d, want 3", e.Emitted())
	}
	for _, rec := range records {
		if rec.Root != root {
			t.Errorf("record %s has root %s, want %s", rec.Path, rec.Root, root)
		}
		if rec.ModTime.IsZero() {
			t.Errorf("record %s has zero mod time", rec.Path)
		}
	}
	// Extensions are lowercased at emission.
	byName := map[string]FileRecord{}
	for _, rec := range records {
		byName[filepath.Base(rec.Path)] = rec
	}
	if got := byName["b.TMP"].Ext; got != ".tmp" {
		t.Errorf("ext for b.TMP = %q, want .tmp", got)
	}
	if got := byName["c"].Ext; got != "" {
		t.Errorf("ext for c = %q, want empty", got)
	}
	if got := byName["a.log"].Size; got != 10 {
		t.Errorf("size for a.log = %d, want 10", got)
	}
}

func TestMinSizeFilter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "small.tmp"), 5)
	writeFile(t, filepath.Join(root, "big.tmp"), 50)

	e := New(Options{MinSize: 10})
	records := collect(t, e.Enumerate(context.Background(), []string{root}))

	if len(records) != 1 || filepath.Base(records[0].Path) != "big.tmp" {
		t.Fatalf("expected only big.tmp, got %v", paths(records))
	}
	if e.Skipped() != 1 {
		t.Errorf("Skipped() = %d, want 1", e.Skipped())
	}
}

func TestMinAgeFilter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "fresh.tmp"), 5)
	old := filepath.Join(root, "old.tmp")
	writeFile(t, old, 5)
	mtime := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(old, mtime, mtime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	e := New(Options{MinAge: 24 * time.Hour})
	records := collect(t, e.Enumerate(context.Background(), []string{root}))

	if len(records) != 1 || filepath.Base(records[0].Path) != "old.tmp" {
		t.Fatalf("expected only old.tmp, got %v", paths(records))
	}
	if e.Skipped() != 1 {
		t.Errorf("Skipped() = %d, want 1", e.Skipped())
	}
}

func TestExcludedExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "app.EXE"), 10)
	writeFile(t, filepath.Join(root, "lib.dll"), 10)
	writeFile(t, filepath.Join(root, "notes.txt"), 10)

	// Mixed dot and dotless forms must both match, case-insensitively.
	e := New(Options{ExcludedExtensions: []string{".exe", "DLL"}})
	records := collect(t, e.Enumerate(context.Background(), []string{root}))

	if len(records) != 1 || filepath.Base(records[0].Path) != "notes.txt" {
		t.Fatalf("expected only notes.txt, got %v", paths(records))
	}
}

func TestMaxDepth(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "top.tmp"), 10)
	writeFile(t, filepath.Join(root, "one", "mid.tmp"), 10)
	writeFile(t, filepath.Join(root, "one", "two", "deep.tmp"), 10)

	tests := []struct {
		depth int
		want  int
	}{
		{depth: 1, want: 1},
		{depth: 2, want: 2},
		{depth: 0, want: 3},
	}
	for _, tt := range tests {
		e := New(Options{MaxDepth: tt.depth})
		records := collect(t, e.Enumerate(context.Background(), []string{root}))
		if len(records) != tt.want {
			t.Errorf("depth %d: got %d records %v, want %d",
				tt.depth, len(records), paths(records), tt.want)
		}
	}
}

func TestSymlinksNotFollowed(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	writeFile(t, filepath.Join(root, "real.tmp"), 10)
	writeFile(t, filepath.Join(outside, "target.tmp"), 10)

	if err := os.Symlink(filepath.Join(outside, "target.tmp"), filepath.Join(root, "link.tmp")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if err := os.Symlink(outside, filepath.Join(root, "linkdir")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	e := New(Options{})
	records := collect(t, e.Enumerate(context.Background(), []string{root}))

	if len(records) != 1 || filepath.Base(records[0].Path) != "real.tmp" {
		t.Fatalf("expected only real.tmp, got %v", paths(records))
	}
}

func TestMissingRootWarns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.tmp"), 10)
	missing := filepath.Join(root, "does-not-exist")

	e := New(Options{})
	records := collect(t, e.Enumerate(context.Background(), []string{root, missing}))

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %v", paths(records))
	}
	warnings := e.Warnings()
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", warnings)
	}
}

func TestSingleFileRoot(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "only.log")
	writeFile(t, file, 10)

	e := New(Options{})
	records := collect(t, e.Enumerate(context.Background(), []string{file}))

	if len(records) != 1 || records[0].Path != file {
		t.Fatalf("expected %s, got %v", file, paths(records))
	}
}

func TestEnumerateCancellation(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 200; i++ {
		writeFile(t, filepath.Join(root, "dir", fmt.Sprintf("f%03d.tmp", i)), 1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := New(Options{Concurrency: 1})
	ch := e.Enumerate(ctx, []string{root})

	// Cancel after the first record; the channel must still close.
	<-ch
	cancel()
	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("channel did not close after cancellation")
	}
}

func TestEnumeratorReuse(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.tmp"), 10)

	e := New(Options{})
	first := collect(t, e.Enumerate(context.Background(), []string{root}))
	second := collect(t, e.Enumerate(context.Background(), []string{root}))

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("reuse changed results: first %v second %v", paths(first), paths(second))
	}
	if e.Emitted() != 1 {
		t.Errorf("counters not reset between runs: emitted = %d", e.Emitted())
	}
}
