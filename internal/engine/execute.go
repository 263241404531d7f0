package engine

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/backup"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/logging"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/progress"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/safety"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/store"
)

// deleteWorkerCap bounds deletion concurrency. Deletion is deliberately
// narrower than scanning: unlink storms hurt disk latency and a small pool
// keeps failure accounting easy to follow.
const deleteWorkerCap = 4

// Execute runs the backup-then-delete phase for a finalized plan.
//
// Ordering guarantee: when CreateBackup is set, the backup set is fully
// sealed before the first removal is attempted; any candidate the backup
// could not capture is evicted and reported, never deleted unbacked. DryRun
// performs every step except archive writes and removal, with the same
// accounting shape as a live run.
func (e *Engine) Execute(ctx context.Context, plan *DeletionPlan, opts ExecuteOptions) (*OperationResult, error) {
	// Re-assert the admission invariant at the last boundary before side
	// effects. Failing here means a programming error upstream.
	if err := validatePlan(plan); err != nil {
		return nil, err
	}

	reason := opts.Reason
	if reason == "" {
		reason = "clean"
	}

	started := time.Now()
	result := &OperationResult{RunID: plan.RunID, DryRun: opts.DryRun}

	// Work on a copy: eviction filters below compact the slice in place
	// and the caller's plan must stay intact.
	candidates := append([]safety.Scored(nil), plan.Candidates...)
	// Planned exclusions carry over so the result accounts for every file
	// the caller selected.
	for _, excl := range plan.Excluded {
		result.Errors = append(result.Errors, excl)
		result.FilesFailed++
	}

	if opts.CreateBackup && !opts.DryRun && len(candidates) > 0 {
		manifest, failures, err := e.backups.Create(ctx, reason, candidatePaths(candidates), e.tracker)
		if err != nil {
			return nil, err
		}
		result.ManifestID = manifest.ID
		candidates = evictFailed(candidates, failures, result)
		// Only manifest-verified candidates may proceed: a cancellation
		// mid-backup leaves files that are neither archived nor failed,
		// and those must not be deleted unbacked.
		candidates = keepBackedUp(candidates, manifest, result)
	}

	e.deleteAll(ctx, candidates, opts.DryRun, result)

	result.Duration = time.Since(started)
	e.recordRun(&store.Run{
		ID:           plan.RunID,
		Kind:         reason,
		StartedAt:    started,
		FinishedAt:   started.Add(result.Duration),
		DryRun:       opts.DryRun,
		FilesDeleted: result.FilesDeleted,
		FilesFailed:  result.FilesFailed,
		BytesFreed:   result.BytesFreed,
		ManifestID:   result.ManifestID,
	})

	logging.L().Info().
		Str("run", plan.RunID).
		Bool("dry_run", opts.DryRun).
		Int("deleted", result.FilesDeleted).
		Int("failed", result.FilesFailed).
		Int64("bytes_freed", result.BytesFreed).
		Msg("execution finished")
	return result, nil
}

// deleteAll removes candidates over a small bounded worker pool. Every
// candidate ends up in exactly one bucket: deleted, or failed with a coded
// error. Cancellation stops the pool between files and accounts for the
// remainder as cancelled.
func (e *Engine) deleteAll(ctx context.Context, candidates []safety.Scored, dryRun bool, result *OperationResult) {
	if len(candidates) == 0 {
		return
	}

	workers := e.cfg.WorkerCount() / 2
	if workers < 1 {
		workers = 1
	}
	if workers > deleteWorkerCap {
		workers = deleteWorkerCap
	}

	var (
		deleted atomic.Int64
		freed   atomic.Int64
		done    atomic.Int64

		mu       sync.Mutex
		failures []FileError
	)
	fail := func(fe FileError) {
		mu.Lock()
		failures = append(failures, fe)
		mu.Unlock()
	}

	tasks := make(chan safety.Scored)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range tasks {
				e.deleteOne(rec, dryRun, &deleted, &freed, fail)
				e.tracker.Publish(progress.Event{
					Stage:       progress.StageDelete,
					Done:        done.Add(1),
					Total:       int64(len(candidates)),
					Bytes:       freed.Load(),
					CurrentItem: rec.Path,
				})
			}
		}()
	}

	cancelledFrom := -1
feed:
	for i, rec := range candidates {
		select {
		case tasks <- rec:
		case <-ctx.Done():
			cancelledFrom = i
			break feed
		}
	}
	close(tasks)
	wg.Wait()
	e.tracker.Publish(progress.Event{
		Stage:     progress.StageDelete,
		Done:      done.Load(),
		Total:     int64(len(candidates)),
		Bytes:     freed.Load(),
		Completed: true,
	})

	// Exact accounting: everything not handed to a worker is recorded as
	// cancelled, never silently dropped.
	if cancelledFrom >= 0 {
		for _, rec := range candidates[cancelledFrom:] {
			fail(FileError{Path: rec.Path, Code: CodeCancelled, Err: context.Cause(ctx).Error()})
		}
	}

	result.FilesDeleted += int(deleted.Load())
	result.BytesFreed += freed.Load()
	result.FilesFailed += len(failures)
	result.Errors = append(result.Errors, failures...)
}

// deleteOne processes a single candidate in isolation. The in-use probe runs
// again here: scoring happened earlier in the run and the file may have been
// opened since.
func (e *Engine) deleteOne(rec safety.Scored, dryRun bool, deleted, freed *atomic.Int64, fail func(FileError)) {
	if e.probe(rec.Path) {
		fail(FileError{Path: rec.Path, Code: CodeBecameInUse, Err: "file became in use since scan"})
		return
	}

	if !dryRun {
		if err := os.Remove(rec.Path); err != nil {
			fail(FileError{Path: rec.Path, Code: CodeDeleteFailed, Err: err.Error()})
			return
		}
	}

	deleted.Add(1)
	freed.Add(rec.Size)
}

func candidatePaths(candidates []safety.Scored) []string {
	paths := make([]string, len(candidates))
	for i, rec := range candidates {
		paths[i] = rec.Path
	}
	return paths
}

// evictFailed drops backup failures from the candidate list and records them
// in the result. A file without a backup is not deletable in a
// backup-enabled run.
func evictFailed(candidates []safety.Scored, failures []backup.Failure, result *OperationResult) []safety.Scored {
	if len(failures) == 0 {
		return candidates
	}
	failed := make(map[string]error, len(failures))
	for _, f := range failures {
		failed[f.Path] = f.Err
	}

	kept := candidates[:0]
	for _, rec := range candidates {
		if err, ok := failed[rec.Path]; ok {
			result.Errors = append(result.Errors, FileError{
				Path: rec.Path,
				Code: CodeBackupFailed,
				Err:  err.Error(),
			})
			result.FilesFailed++
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}

// keepBackedUp filters the candidate list down to files the sealed manifest
// actually contains.
func keepBackedUp(candidates []safety.Scored, manifest *backup.Manifest, result *OperationResult) []safety.Scored {
	if len(manifest.Entries) == len(candidates) {
		return candidates
	}
	backed := make(map[string]bool, len(manifest.Entries))
	for _, e := range manifest.Entries {
		backed[e.OriginalPath] = true
	}

	kept := candidates[:0]
	for _, rec := range candidates {
		if !backed[rec.Path] {
			result.Errors = append(result.Errors, FileError{
				Path: rec.Path,
				Code: CodeCancelled,
				Err:  "backup did not complete for this file",
			})
			result.FilesFailed++
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}
