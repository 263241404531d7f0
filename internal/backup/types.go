package backup

import "time"

// ManifestEntry maps one backed-up file to its archive entry.
type ManifestEntry struct {
	OriginalPath string    `json:"original_path"`
	ArchiveName  string    `json:"archive_name"`
	Size         int64     `json:"size"`
	Checksum     string    `json:"checksum"` // sha256 of the file content, hex
	BackedUpAt   time.Time `json:"backed_up_at"`
}

// Manifest is the durable record of one backup set. It is sealed before any
// deletion starts and never modified afterwards.
type Manifest struct {
	ID          string          `json:"id"`
	Reason      string          `json:"reason"`
	CreatedAt   time.Time       `json:"created_at"`
	ArchivePath string          `json:"archive_path"`
	Entries     []ManifestEntry `json:"entries"`
}

// TotalBytes sums the original sizes of every entry.
func (m *Manifest) TotalBytes() int64 {
	var n int64
	for _, e := range m.Entries {
		n += e.Size
	}
	return n
}

// Failure records one candidate the backup could not capture. The caller must
// evict the path from the deletion set.
type Failure struct {
	Path string
	Err  error
}

// RestoreResult accounts for one restore operation.
type RestoreResult struct {
	Restored int
	Skipped  int // target already existed, never overwritten
	Failed   int
	Errors   []Failure
}
