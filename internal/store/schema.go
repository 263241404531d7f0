package store

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    dry_run BOOLEAN NOT NULL DEFAULT 0,
    files_deleted INTEGER NOT NULL DEFAULT 0,
    files_failed INTEGER NOT NULL DEFAULT 0,
    bytes_freed INTEGER NOT NULL DEFAULT 0,
    manifest_id TEXT
);

CREATE TABLE IF NOT EXISTS backups (
    id TEXT PRIMARY KEY,
    created_at TIMESTAMP NOT NULL,
    reason TEXT,
    archive_path TEXT NOT NULL,
    manifest_path TEXT NOT NULL,
    entry_count INTEGER NOT NULL DEFAULT 0,
    total_bytes INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS backup_entries (
    backup_id TEXT NOT NULL,
    original_path TEXT NOT NULL,
    archive_name TEXT NOT NULL,
    size_bytes INTEGER NOT NULL DEFAULT 0,
    checksum TEXT NOT NULL,
    FOREIGN KEY (backup_id) REFERENCES backups(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS watch_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    root TEXT NOT NULL,
    path TEXT NOT NULL,
    op TEXT NOT NULL,
    size_bytes INTEGER NOT NULL DEFAULT 0,
    timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_backup_entries_backup ON backup_entries(backup_id);
CREATE INDEX IF NOT EXISTS idx_watch_events_root ON watch_events(root);
CREATE INDEX IF NOT EXISTS idx_watch_events_timestamp ON watch_events(timestamp);
`
