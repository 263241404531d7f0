package engine

import (
	"errors"
	"sort"
	"time"

	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/classify"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/dedup"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/safety"
)

// ErrSafetyViolation marks an attempt to admit a dangerous or protected file
// into a deletion set. It is rejected at the API boundary, never downgraded
// to a per-file error: reaching it means a caller (or this package) has a
// bug, and nothing gets deleted.
var ErrSafetyViolation = errors.New("safety violation: dangerous or protected file in deletion set")

// ErrUnknownPath is returned by Plan when an explicit selection names a path
// the scan report does not contain.
var ErrUnknownPath = errors.New("path not present in scan report")

// ErrorCode classifies per-file failures in an OperationResult.
type ErrorCode string

const (
	// CodeBackupFailed: the candidate could not be backed up and was
	// evicted from the deletion set. The file still exists.
	CodeBackupFailed ErrorCode = "backup-failed"

	// CodeBecameInUse: the pre-deletion probe found the file locked. The
	// file is skipped, not force-deleted.
	CodeBecameInUse ErrorCode = "became-in-use"

	// CodeDeleteFailed: the remove call itself failed (permissions changed,
	// file vanished).
	CodeDeleteFailed ErrorCode = "delete-failed"

	// CodeCancelled: the run was cancelled before this candidate was
	// processed.
	CodeCancelled ErrorCode = "cancelled"
)

// FileError is one per-file failure. Failures are accumulated, never thrown:
// a single bad file must not abort the batch.
type FileError struct {
	Path string
	Code ErrorCode
	Err  string
}

// ScanOptions control one Scan call. Zero values fall back to the run
// configuration.
type ScanOptions struct {
	// Roots override the configured scan paths when non-empty.
	Roots []string

	// MaxDepth bounds directory recursion. Zero means unlimited.
	MaxDepth int

	// IncludeDuplicates enables the duplicate-resolution stage.
	IncludeDuplicates bool
}

// Aggregate is a file count plus byte total.
type Aggregate struct {
	Files int
	Bytes int64
}

// ScanReport is the read-only outcome of one Scan. Protected files are not
// listed at all; they are counted in ProtectedSkipped so the caller can say
// "N files were off limits" without ever surfacing them as selectable.
type ScanReport struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Roots     []string

	// Records holds every scored, unprotected file, re-tagged where
	// duplicate resolution marked copies redundant.
	Records []safety.Scored

	// Duplicates lists the resolved duplicate groups, when requested.
	Duplicates []dedup.Group

	// Warnings are soft per-entry problems from the walk.
	Warnings []string

	ProtectedSkipped int
	InUseCount       int
}

// ByCategory aggregates records per category.
func (r *ScanReport) ByCategory() map[classify.Category]Aggregate {
	out := make(map[classify.Category]Aggregate)
	for _, rec := range r.Records {
		a := out[rec.Category]
		a.Files++
		a.Bytes += rec.Size
		out[rec.Category] = a
	}
	return out
}

// ByLevel aggregates records per safety level.
func (r *ScanReport) ByLevel() map[safety.Level]Aggregate {
	out := make(map[safety.Level]Aggregate)
	for _, rec := range r.Records {
		a := out[rec.Level]
		a.Files++
		a.Bytes += rec.Size
		out[rec.Level] = a
	}
	return out
}

// Find returns the record for an absolute path.
func (r *ScanReport) Find(path string) (safety.Scored, bool) {
	for _, rec := range r.Records {
		if rec.Path == path {
			return rec, true
		}
	}
	return safety.Scored{}, false
}

// ScanStats is the descriptive summary shown after a scan: which extensions
// dominate, how old things are and where the big wins sit.
type ScanStats struct {
	Extensions map[string]Aggregate
	AgeBuckets AgeBuckets
	Largest    []safety.Scored
}

// AgeBuckets groups files by idle age.
type AgeBuckets struct {
	Week  Aggregate // modified within 7 days
	Month Aggregate // 7 to 30 days
	Older Aggregate // over 30 days
}

// Stats computes the scan summary. topN bounds the largest-file list.
func (r *ScanReport) Stats(topN int) ScanStats {
	stats := ScanStats{Extensions: make(map[string]Aggregate)}
	now := time.Now()

	for _, rec := range r.Records {
		ext := rec.Ext
		if ext == "" {
			ext = "(none)"
		}
		a := stats.Extensions[ext]
		a.Files++
		a.Bytes += rec.Size
		stats.Extensions[ext] = a

		age := now.Sub(rec.ModTime)
		switch {
		case age <= 7*24*time.Hour:
			stats.AgeBuckets.Week.Files++
			stats.AgeBuckets.Week.Bytes += rec.Size
		case age <= 30*24*time.Hour:
			stats.AgeBuckets.Month.Files++
			stats.AgeBuckets.Month.Bytes += rec.Size
		default:
			stats.AgeBuckets.Older.Files++
			stats.AgeBuckets.Older.Bytes += rec.Size
		}
	}

	largest := append([]safety.Scored(nil), r.Records...)
	sort.Slice(largest, func(i, j int) bool {
		if largest[i].Size != largest[j].Size {
			return largest[i].Size > largest[j].Size
		}
		return largest[i].Path < largest[j].Path
	})
	if len(largest) > topN {
		largest = largest[:topN]
	}
	stats.Largest = largest
	return stats
}

// Selection names what a DeletionPlan should contain: either explicit paths
// or everything admissible at or below Threshold.
type Selection struct {
	Paths     []string
	Threshold safety.Level
}

// DeletionPlan is the finalized candidate set for one Execute call. Every
// candidate satisfies the admission invariant (safety at or below the
// selection bound, not protected, not in use) at planning time.
type DeletionPlan struct {
	RunID      string
	Candidates []safety.Scored
	TotalBytes int64

	// Excluded lists selected files that did not make the cut for
	// per-file reasons (currently in use). Safety violations are not
	// listed here; they fail the whole Plan call.
	Excluded []FileError
}

// ExecuteOptions control one Execute call.
type ExecuteOptions struct {
	// CreateBackup archives every candidate before deletion. Setting this
	// to false is the caller's explicit acknowledgment that deleted files
	// cannot be recovered.
	CreateBackup bool

	// DryRun performs every step except archive writes and removal.
	DryRun bool

	// Reason labels the backup set and run history row. Empty means
	// "clean".
	Reason string
}

// OperationResult is the exact accounting of one Execute call. Deleted plus
// failed always equals the number of candidates that entered the run; no
// candidate is ever silently dropped.
type OperationResult struct {
	RunID        string
	DryRun       bool
	FilesDeleted int
	FilesFailed  int
	BytesFreed   int64
	ManifestID   string
	Errors       []FileError
	Duration     time.Duration
}
