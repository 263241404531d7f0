package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Run operations

// InsertRun records the start of a pipeline run.
func (s *Store) InsertRun(run *Run) error {
	query := `
		INSERT INTO runs (id, kind, started_at, dry_run)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		run.ID,
		run.Kind,
		run.StartedAt.Format(time.RFC3339),
		run.DryRun,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun records the outcome of a run.
func (s *Store) FinishRun(run *Run) error {
	query := `
		UPDATE runs
		SET finished_at = ?, files_deleted = ?, files_failed = ?, bytes_freed = ?, manifest_id = ?
		WHERE id = ?
	`

	res, err := s.db.Exec(query,
		run.FinishedAt.Format(time.RFC3339),
		run.FilesDeleted,
		run.FilesFailed,
		run.BytesFreed,
		nullString(run.ManifestID),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", run.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check run update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	query := `
		SELECT id, kind, started_at, finished_at, dry_run,
		       files_deleted, files_failed, bytes_freed, manifest_id
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var startedAt string
		var finishedAt, manifestID sql.NullString
		if err := rows.Scan(
			&run.ID,
			&run.Kind,
			&startedAt,
			&finishedAt,
			&run.DryRun,
			&run.FilesDeleted,
			&run.FilesFailed,
			&run.BytesFreed,
			&manifestID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt, err = time.Parse(time.RFC3339, startedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse started_at for %s: %w", run.ID, err)
		}
		if finishedAt.Valid {
			run.FinishedAt, err = time.Parse(time.RFC3339, finishedAt.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse finished_at for %s: %w", run.ID, err)
			}
		}
		run.ManifestID = manifestID.String
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// Backup index operations

// InsertBackup records a sealed backup set.
func (s *Store) InsertBackup(b *Backup) error {
	query := `
		INSERT INTO backups (id, created_at, reason, archive_path, manifest_path, entry_count, total_bytes)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		b.ID,
		b.CreatedAt.Format(time.RFC3339),
		b.Reason,
		b.ArchivePath,
		b.ManifestPath,
		b.EntryCount,
		b.TotalBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to insert backup %s: %w", b.ID, err)
	}
	return nil
}

// InsertBackupEntry records one archived file of a backup set.
func (s *Store) InsertBackupEntry(e *BackupEntry) error {
	query := `
		INSERT INTO backup_entries (backup_id, original_path, archive_name, size_bytes, checksum)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query, e.BackupID, e.OriginalPath, e.ArchiveName, e.SizeBytes, e.Checksum)
	if err != nil {
		return fmt.Errorf("failed to insert backup entry for %s: %w", e.OriginalPath, err)
	}
	return nil
}

// ListBackups returns all backup index rows, newest first.
func (s *Store) ListBackups() ([]*Backup, error) {
	query := `
		SELECT id, created_at, reason, archive_path, manifest_path, entry_count, total_bytes
		FROM backups
		ORDER BY created_at DESC
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	defer rows.Close()

	var backups []*Backup
	for rows.Next() {
		var b Backup
		var createdAt string
		if err := rows.Scan(&b.ID, &createdAt, &b.Reason, &b.ArchivePath, &b.ManifestPath, &b.EntryCount, &b.TotalBytes); err != nil {
			return nil, fmt.Errorf("failed to scan backup: %w", err)
		}
		b.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at for %s: %w", b.ID, err)
		}
		backups = append(backups, &b)
	}
	return backups, rows.Err()
}

// GetBackupEntries returns the archived files of one backup set.
func (s *Store) GetBackupEntries(backupID string) ([]*BackupEntry, error) {
	query := `
		SELECT backup_id, original_path, archive_name, size_bytes, checksum
		FROM backup_entries
		WHERE backup_id = ?
		ORDER BY original_path
	`

	rows, err := s.db.Query(query, backupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get backup entries: %w", err)
	}
	defer rows.Close()

	var entries []*BackupEntry
	for rows.Next() {
		var e BackupEntry
		if err := rows.Scan(&e.BackupID, &e.OriginalPath, &e.ArchiveName, &e.SizeBytes, &e.Checksum); err != nil {
			return nil, fmt.Errorf("failed to scan backup entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// DeleteBackup removes a backup index row and its entries (via cascade).
func (s *Store) DeleteBackup(id string) error {
	if _, err := s.db.Exec(`DELETE FROM backups WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete backup %s: %w", id, err)
	}
	return nil
}

// Watch event operations

// InsertWatchEvent records one filesystem change under a watched root.
func (s *Store) InsertWatchEvent(ev *WatchEvent) error {
	query := `
		INSERT INTO watch_events (root, path, op, size_bytes, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query, ev.Root, ev.Path, ev.Op, ev.SizeBytes, ev.Timestamp.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert watch event for %s: %w", ev.Path, err)
	}
	return nil
}

// InsertWatchEvents records a batch of filesystem changes in one
// transaction. The watcher flushes its buffer through here so a busy root
// costs one commit per tick, not one per event.
func (s *Store) InsertWatchEvents(events []*WatchEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO watch_events (root, path, op, size_bytes, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare watch event insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.Exec(ev.Root, ev.Path, ev.Op, ev.SizeBytes, ev.Timestamp.Format(time.RFC3339)); err != nil {
			return fmt.Errorf("failed to insert watch event for %s: %w", ev.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit watch events: %w", err)
	}
	return nil
}

// GrowthSince aggregates create/write churn per root since the given time.
// Remove events do not count toward growth.
func (s *Store) GrowthSince(since time.Time) ([]*RootGrowth, error) {
	query := `
		SELECT root, COUNT(*), COALESCE(SUM(size_bytes), 0)
		FROM watch_events
		WHERE timestamp >= ? AND op IN ('create', 'write')
		GROUP BY root
		ORDER BY root
	`

	rows, err := s.db.Query(query, since.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate watch events: %w", err)
	}
	defer rows.Close()

	var growth []*RootGrowth
	for rows.Next() {
		var g RootGrowth
		if err := rows.Scan(&g.Root, &g.Events, &g.BytesAdded); err != nil {
			return nil, fmt.Errorf("failed to scan growth row: %w", err)
		}
		growth = append(growth, &g)
	}
	return growth, rows.Err()
}

// PruneWatchEvents removes watch events older than the given time. Returns
// the number of rows removed.
func (s *Store) PruneWatchEvents(before time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM watch_events WHERE timestamp < ?`, before.Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to prune watch events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned watch events: %w", err)
	}
	return n, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
