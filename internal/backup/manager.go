// Package backup archives deletion candidates before anything is removed.
//
// Every backup set is one zip archive plus a manifest recording original
// path, archive entry name, size and checksum per file. The manifest is
// written twice: inside the archive for self-containment and as a sibling
// JSON file for listing without opening the zip. A set is only usable once
// Create returns; per-file failures are reported back so the caller evicts
// those candidates from the deletion set instead of deleting them unbacked.
package backup

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/logging"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/progress"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/store"
)

// Manager owns the backup directory. The store index is optional; when
// present every sealed manifest is also recorded there for run history.
type Manager struct {
	dir string
	st  *store.Store
}

// New returns a Manager writing under dir. st may be nil.
func New(dir string, st *store.Store) *Manager {
	return &Manager{dir: dir, st: st}
}

// Create archives the given paths into a new backup set and seals the
// manifest. Files that cannot be read are returned as failures and are NOT
// part of the manifest. Cancellation is honored between files, never
// mid-entry, so the archive stays consistent; entries written before the
// cancellation remain valid and sealed.
//
// The error return is reserved for set-level problems (cannot create the
// archive, cannot seal the manifest). Per-file problems never fail the set.
func (m *Manager) Create(ctx context.Context, reason string, paths []string, tracker *progress.Tracker) (*Manifest, []Failure, error) {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	manifest := &Manifest{
		ID:        uuid.NewString(),
		Reason:    reason,
		CreatedAt: time.Now(),
	}
	base := fmt.Sprintf("%s_%s", sanitizeReason(reason), manifest.CreatedAt.Format("20060102_150405"))
	manifest.ArchivePath = filepath.Join(m.dir, base+".zip")

	f, err := os.OpenFile(manifest.ArchivePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create backup archive: %w", err)
	}
	zw := zip.NewWriter(f)

	var failures []Failure
	names := make(map[string]int)
	for i, path := range paths {
		if ctx.Err() != nil {
			break
		}
		entry, err := m.addFile(zw, path, names)
		if err != nil {
			failures = append(failures, Failure{Path: path, Err: err})
			logging.L().Warn().Err(err).Str("path", path).Msg("backup failed for candidate")
			continue
		}
		manifest.Entries = append(manifest.Entries, entry)
		tracker.Publish(progress.Event{
			Stage:       progress.StageBackup,
			Done:        int64(i + 1),
			Total:       int64(len(paths)),
			Bytes:       manifest.TotalBytes(),
			CurrentItem: path,
		})
	}

	if err := m.seal(zw, f, manifest); err != nil {
		return nil, failures, err
	}

	if m.st != nil {
		if err := m.index(manifest); err != nil {
			// The archive and manifest file are already durable; a failed
			// index row costs listing convenience, not recoverability.
			logging.L().Warn().Err(err).Str("id", manifest.ID).Msg("failed to index backup in store")
		}
	}

	tracker.Publish(progress.Event{
		Stage:     progress.StageBackup,
		Done:      int64(len(manifest.Entries)),
		Total:     int64(len(paths)),
		Bytes:     manifest.TotalBytes(),
		Completed: true,
	})
	logging.L().Info().
		Str("id", manifest.ID).
		Int("entries", len(manifest.Entries)).
		Int("failures", len(failures)).
		Msg("backup set sealed")
	return manifest, failures, nil
}

// addFile streams one file into the archive and returns its manifest entry.
func (m *Manager) addFile(zw *zip.Writer, path string, names map[string]int) (ManifestEntry, error) {
	src, err := os.Open(path)
	if err != nil {
		return ManifestEntry{}, fmt.Errorf("failed to open: %w", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return ManifestEntry{}, fmt.Errorf("failed to stat: %w", err)
	}

	name := archiveName(path, names)
	hdr := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: info.ModTime(),
	}
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return ManifestEntry{}, fmt.Errorf("failed to create archive entry: %w", err)
	}

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(w, h), src)
	if err != nil {
		return ManifestEntry{}, fmt.Errorf("failed to write archive entry: %w", err)
	}

	return ManifestEntry{
		OriginalPath: path,
		ArchiveName:  name,
		Size:         n,
		Checksum:     hex.EncodeToString(h.Sum(nil)),
		BackedUpAt:   time.Now(),
	}, nil
}

// seal writes the manifest into the archive and beside it, then flushes and
// closes everything. Only after seal returns nil may any deletion begin.
func (m *Manager) seal(zw *zip.Writer, f *os.File, manifest *Manifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	w, err := zw.Create("manifest.json")
	if err != nil {
		return fmt.Errorf("failed to create manifest entry: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write manifest entry: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close archive file: %w", err)
	}

	if err := os.WriteFile(m.manifestPath(manifest), data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}
	return nil
}

func (m *Manager) manifestPath(manifest *Manifest) string {
	return strings.TrimSuffix(manifest.ArchivePath, ".zip") + ".json"
}

func (m *Manager) index(manifest *Manifest) error {
	rec := &store.Backup{
		ID:           manifest.ID,
		CreatedAt:    manifest.CreatedAt,
		Reason:       manifest.Reason,
		ArchivePath:  manifest.ArchivePath,
		ManifestPath: m.manifestPath(manifest),
		EntryCount:   len(manifest.Entries),
		TotalBytes:   manifest.TotalBytes(),
	}
	if err := m.st.InsertBackup(rec); err != nil {
		return err
	}
	for _, e := range manifest.Entries {
		entry := &store.BackupEntry{
			BackupID:     manifest.ID,
			OriginalPath: e.OriginalPath,
			ArchiveName:  e.ArchiveName,
			SizeBytes:    e.Size,
			Checksum:     e.Checksum,
		}
		if err := m.st.InsertBackupEntry(entry); err != nil {
			return err
		}
	}
	return nil
}

// archiveName flattens an absolute path into a safe archive entry name and
// de-duplicates repeats with a counter suffix, so two files named cache.tmp
// from different directories both survive.
func archiveName(path string, seen map[string]int) string {
	name := filepath.Base(path)
	if n := seen[name]; n > 0 {
		seen[name] = n + 1
		ext := filepath.Ext(name)
		name = fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), n, ext)
	} else {
		seen[name] = 1
	}
	return name
}

// sanitizeReason makes a reason string safe for a file name.
func sanitizeReason(reason string) string {
	if reason == "" {
		return "backup"
	}
	mapper := func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}
	return strings.Map(mapper, reason)
}

// List returns every manifest found in the backup directory, newest first.
func (m *Manager) List() ([]*Manifest, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var manifests []*Manifest
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		manifest, err := loadManifest(filepath.Join(m.dir, entry.Name()))
		if err != nil {
			logging.L().Warn().Err(err).Str("file", entry.Name()).Msg("skipping unreadable manifest")
			continue
		}
		manifests = append(manifests, manifest)
	}

	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].CreatedAt.After(manifests[j].CreatedAt)
	})
	return manifests, nil
}

// Get returns the manifest with the given ID.
func (m *Manager) Get(id string) (*Manifest, error) {
	manifests, err := m.List()
	if err != nil {
		return nil, err
	}
	for _, manifest := range manifests {
		if manifest.ID == id {
			return manifest, nil
		}
	}
	return nil, fmt.Errorf("backup %s not found", id)
}

// Latest returns the most recent manifest.
func (m *Manager) Latest() (*Manifest, error) {
	manifests, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(manifests) == 0 {
		return nil, fmt.Errorf("no backups available")
	}
	return manifests[0], nil
}

// Prune removes backup sets older than the retention window, always keeping
// the keepMin newest sets regardless of age. Returns how many sets were
// removed.
func (m *Manager) Prune(retentionDays, keepMin int) (int, error) {
	manifests, err := m.List()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for i, manifest := range manifests {
		if i < keepMin || !manifest.CreatedAt.Before(cutoff) {
			continue
		}
		if err := os.Remove(manifest.ArchivePath); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("failed to remove archive %s: %w", manifest.ArchivePath, err)
		}
		if err := os.Remove(m.manifestPath(manifest)); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("failed to remove manifest %s: %w", m.manifestPath(manifest), err)
		}
		if m.st != nil {
			if err := m.st.DeleteBackup(manifest.ID); err != nil {
				logging.L().Warn().Err(err).Str("id", manifest.ID).Msg("failed to remove backup index row")
			}
		}
		removed++
	}
	return removed, nil
}

func loadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return &manifest, nil
}
