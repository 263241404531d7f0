package store

import "time"

// Run is one recorded pipeline execution.
type Run struct {
	ID           string
	Kind         string // scan | clean | dedup
	StartedAt    time.Time
	FinishedAt   time.Time
	DryRun       bool
	FilesDeleted int
	FilesFailed  int
	BytesFreed   int64
	ManifestID   string
}

// Backup is the index row for one backup set. The authoritative record is
// the manifest JSON next to the archive; this row exists for fast listing
// and run history.
type Backup struct {
	ID           string
	CreatedAt    time.Time
	Reason       string
	ArchivePath  string
	ManifestPath string
	EntryCount   int
	TotalBytes   int64
}

// BackupEntry is one archived file within a backup set.
type BackupEntry struct {
	BackupID     string
	OriginalPath string
	ArchiveName  string
	SizeBytes    int64
	Checksum     string
}

// WatchEvent is one filesystem change observed under a watched root.
type WatchEvent struct {
	ID        int64
	Root      string
	Path      string
	Op        string // create | write | remove | rename
	SizeBytes int64
	Timestamp time.Time
}

// RootGrowth aggregates watch events per root since a point in time.
type RootGrowth struct {
	Root       string
	Events     int
	BytesAdded int64
}
