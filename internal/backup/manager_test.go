package backup

import (
	"archive/zip"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/store"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.CreateSchema(); err != nil {
		t.Fatalf("CreateSchema: %v", err)
	}
	return st
}

func TestCreateSealsManifest(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.tmp"), "content a")
	writeFile(t, filepath.Join(src, "sub", "b.tmp"), "content b")

	m := New(t.TempDir(), nil)
	manifest, failures, err := m.Create(context.Background(), "clean", []string{
		filepath.Join(src, "a.tmp"),
		filepath.Join(src, "sub", "b.tmp"),
	}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %v", failures)
	}
	if manifest.ID == "" {
		t.Error("manifest has no ID")
	}
	if len(manifest.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(manifest.Entries))
	}
	for _, e := range manifest.Entries {
		if e.Checksum == "" {
			t.Errorf("entry %s has no checksum", e.OriginalPath)
		}
	}

	// The archive must exist and contain manifest.json plus both files.
	zr, err := zip.OpenReader(manifest.ArchivePath)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{"manifest.json", "a.tmp", "b.tmp"} {
		if !names[want] {
			t.Errorf("archive missing entry %s (have %v)", want, names)
		}
	}

	// The sibling manifest file must be loadable and identical.
	reloaded, err := m.Get(manifest.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(reloaded.Entries) != 2 {
		t.Errorf("reloaded manifest has %d entries, want 2", len(reloaded.Entries))
	}
}

func TestCreateReportsPerFileFailures(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "ok.tmp"), "fine")

	m := New(t.TempDir(), nil)
	manifest, failures, err := m.Create(context.Background(), "clean", []string{
		filepath.Join(src, "ok.tmp"),
		filepath.Join(src, "missing.tmp"),
	}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(manifest.Entries) != 1 {
		t.Errorf("expected 1 entry, got %d", len(manifest.Entries))
	}
	if len(failures) != 1 || failures[0].Path != filepath.Join(src, "missing.tmp") {
		t.Errorf("expected 1 failure for missing.tmp, got %v", failures)
	}
}

func TestArchiveNameDeduplication(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "x", "cache.tmp"), "one")
	writeFile(t, filepath.Join(src, "y", "cache.tmp"), "two")
	writeFile(t, filepath.Join(src, "z", "cache.tmp"), "three")

	m := New(t.TempDir(), nil)
	manifest, _, err := m.Create(context.Background(), "clean", []string{
		filepath.Join(src, "x", "cache.tmp"),
		filepath.Join(src, "y", "cache.tmp"),
		filepath.Join(src, "z", "cache.tmp"),
	}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	seen := map[string]bool{}
	for _, e := range manifest.Entries {
		if seen[e.ArchiveName] {
			t.Errorf("duplicate archive name %s", e.ArchiveName)
		}
		seen[e.ArchiveName] = true
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	src := t.TempDir()
	path := filepath.Join(src, "data.log")
	writeFile(t, path, "precious bytes")

	m := New(t.TempDir(), nil)
	manifest, _, err := m.Create(context.Background(), "clean", []string{path}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Simulate the deletion the backup exists for.
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}

	result, err := m.Restore(manifest)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if result.Restored != 1 || result.Failed != 0 {
		t.Fatalf("restore result = %+v, want 1 restored", result)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read restored file: %v", err)
	}
	if string(got) != "precious bytes" {
		t.Errorf("restored content = %q, want original bytes", got)
	}
}

func TestRestoreNeverOverwrites(t *testing.T) {
	src := t.TempDir()
	path := filepath.Join(src, "data.log")
	writeFile(t, path, "original")

	m := New(t.TempDir(), nil)
	manifest, _, err := m.Create(context.Background(), "clean", []string{path}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// The file still exists with new content; restore must not touch it.
	writeFile(t, path, "newer content")
	result, err := m.Restore(manifest)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if result.Skipped != 1 || result.Restored != 0 {
		t.Fatalf("restore result = %+v, want 1 skipped", result)
	}

	got, _ := os.ReadFile(path)
	if string(got) != "newer content" {
		t.Errorf("restore overwrote an existing file: %q", got)
	}
}

func TestCreateIndexesIntoStore(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.tmp"), "indexed")

	st := newTestStore(t)
	m := New(t.TempDir(), st)
	manifest, _, err := m.Create(context.Background(), "clean", []string{filepath.Join(src, "a.tmp")}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	backups, err := st.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups: %v", err)
	}
	if len(backups) != 1 || backups[0].ID != manifest.ID {
		t.Fatalf("backup not indexed: %+v", backups)
	}
	entries, err := st.GetBackupEntries(manifest.ID)
	if err != nil {
		t.Fatalf("GetBackupEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 indexed entry, got %d", len(entries))
	}
}

// fakeSet writes an aged backup set (empty archive plus manifest JSON)
// directly into the backup directory.
func fakeSet(t *testing.T, dir, id string, createdAt time.Time) {
	t.Helper()
	base := "clean_" + id
	archive := filepath.Join(dir, base+".zip")

	f, err := os.Create(archive)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	zw := zip.NewWriter(f)
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	f.Close()

	manifest := Manifest{ID: id, Reason: "clean", CreatedAt: createdAt, ArchivePath: archive}
	data, err := json.Marshal(manifest)
	if err != nil {
		t.Fatalf("marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, base+".json"), data, 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}

func TestPruneRespectsRetentionAndMinimum(t *testing.T) {
	dir := t.TempDir()
	m := New(dir, nil)

	now := time.Now()
	fakeSet(t, dir, "new", now)
	fakeSet(t, dir, "mid", now.AddDate(0, 0, -45))
	fakeSet(t, dir, "old", now.AddDate(0, 0, -90))

	// Retention 30 days, but keep at least 2 sets: only the oldest goes.
	removed, err := m.Prune(30, 2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	remaining, err := m.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("expected 2 sets left, got %d", len(remaining))
	}
	for _, manifest := range remaining {
		if manifest.ID == "old" {
			t.Error("oldest set survived pruning")
		}
	}
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	m := New(dir, nil)

	if _, err := m.Latest(); err == nil {
		t.Error("Latest() on empty directory should fail")
	}

	now := time.Now()
	fakeSet(t, dir, "older", now.Add(-time.Hour))
	fakeSet(t, dir, "newest", now)

	latest, err := m.Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.ID != "newest" {
		t.Errorf("Latest() = %s, want newest", latest.ID)
	}
}
