// Package engine orchestrates the cleanup pipeline behind three operations:
// Scan finds and scores disposable files, Plan resolves a vetted deletion
// candidate set, and Execute backs candidates up and removes them with
// per-file failure isolation.
//
// The stages are wired in dependency order: enumeration feeds classification,
// classification feeds safety scoring, scored records optionally pass through
// duplicate resolution, and only Plan/Execute ever turn records into
// deletions. Progress events from every stage flow into one shared tracker.
package engine

import (
	"fmt"
	"time"

	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/backup"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/classify"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/config"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/dedup"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/progress"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/safety"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/store"
)

// Engine runs the pipeline. Construct with New; the engine holds only
// read-only configuration and stateless stages and is safe for sequential
// reuse across runs.
type Engine struct {
	cfg        *config.Config
	classifier *classify.Classifier
	scorer     *safety.Scorer
	resolver   *dedup.Resolver
	backups    *backup.Manager
	st         *store.Store
	tracker    *progress.Tracker

	// probe is the pre-deletion in-use re-check, replaceable in tests.
	probe func(path string) bool

	// minAge is the candidacy floor for freshly modified files,
	// replaceable in tests.
	minAge time.Duration
}

// freshnessFloor keeps files modified within the last day out of every scan.
// Whatever just wrote a file probably still wants it, regardless of what the
// classifier would make of the path.
const freshnessFloor = 24 * time.Hour

// New wires the pipeline for one configuration. st and tracker may be nil:
// without a store no history is recorded, without a tracker progress is
// discarded.
func New(cfg *config.Config, st *store.Store, tracker *progress.Tracker) (*Engine, error) {
	resolver, err := dedup.NewResolver(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build duplicate resolver: %w", err)
	}
	return &Engine{
		cfg:        cfg,
		classifier: classify.NewClassifier(),
		scorer:     safety.NewScorer(cfg),
		resolver:   resolver,
		backups:    backup.New(cfg.BackupDir, st),
		st:         st,
		tracker:    tracker,
		probe:      safety.InUse,
		minAge:     freshnessFloor,
	}, nil
}

// Backups exposes the backup manager for the restore and prune commands,
// which operate on backup sets without running the pipeline.
func (e *Engine) Backups() *backup.Manager {
	return e.backups
}

// Progress exposes the tracker so a caller can drain events while Scan or
// Execute runs. Nil when the engine was built without one.
func (e *Engine) Progress() *progress.Tracker {
	return e.tracker
}

// ResetProgress installs a fresh tracker for the next pipeline call. A
// command that closes its tracker to flush rendering between Scan and
// Execute calls this before the next stage publishes.
func (e *Engine) ResetProgress() {
	e.tracker = progress.NewTracker(256)
}
