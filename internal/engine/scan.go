package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/dedup"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/logging"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/progress"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/safety"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/scanner"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/store"
)

// Scan walks the roots, classifies and scores every file, and optionally
// resolves duplicates. It never touches the filesystem beyond reads. Invalid
// roots are a configuration error and abort the scan before any work; a
// per-entry problem during the walk is a soft warning.
func (e *Engine) Scan(ctx context.Context, opts ScanOptions) (*ScanReport, error) {
	roots := opts.Roots
	if len(roots) == 0 {
		roots = e.cfg.ScanPaths
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("no scan roots configured")
	}
	for _, root := range roots {
		if _, err := os.Stat(root); err != nil {
			return nil, fmt.Errorf("invalid scan root %s: %w", root, err)
		}
	}

	report := &ScanReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Roots:     roots,
	}

	enum := scanner.New(scanner.Options{
		MinSize:            e.cfg.MinSizeBytes(),
		MinAge:             e.minAge,
		MaxDepth:           opts.MaxDepth,
		ExcludedExtensions: e.cfg.ExcludedExtensions,
		Concurrency:        e.cfg.WorkerCount(),
	})

	// Classification and scoring are pure, so they run inline on the
	// enumeration stream instead of through another worker hop.
	var seen int64
	for rec := range enum.Enumerate(ctx, roots) {
		seen++
		scored := e.scorer.Score(e.classifier.Classify(rec))
		if scored.Protected {
			report.ProtectedSkipped++
			continue
		}
		if scored.InUse {
			report.InUseCount++
		}
		report.Records = append(report.Records, scored)
		e.tracker.Publish(progress.Event{
			Stage:       progress.StageScan,
			Done:        seen,
			CurrentItem: rec.Path,
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.tracker.Publish(progress.Event{
		Stage:     progress.StageScan,
		Done:      seen,
		Completed: true,
	})
	report.Warnings = enum.Warnings()

	if opts.IncludeDuplicates {
		groups, err := e.resolver.Resolve(ctx, report.Records, e.tracker)
		if err != nil {
			return nil, fmt.Errorf("duplicate resolution failed: %w", err)
		}
		report.Duplicates = groups
		applyDuplicates(report, groups)
	}

	report.Duration = time.Since(report.StartedAt)
	e.recordRun(&store.Run{
		ID:         report.RunID,
		Kind:       "scan",
		StartedAt:  report.StartedAt,
		FinishedAt: report.StartedAt.Add(report.Duration),
	})

	logging.L().Info().
		Str("run", report.RunID).
		Int("files", len(report.Records)).
		Int("protected_skipped", report.ProtectedSkipped).
		Int("warnings", len(report.Warnings)).
		Dur("took", report.Duration).
		Msg("scan finished")
	return report, nil
}

// applyDuplicates folds the re-tagged redundant records back into the flat
// record list so category and level aggregates reflect the resolution.
func applyDuplicates(report *ScanReport, groups []dedup.Group) {
	retag := make(map[string]safety.Scored)
	for _, g := range groups {
		for _, rec := range g.Redundant {
			retag[rec.Path] = rec
		}
	}
	for i, rec := range report.Records {
		if updated, ok := retag[rec.Path]; ok {
			report.Records[i] = updated
		}
	}
}

// recordRun best-effort persists a history row. History is convenience, not
// correctness; a failed insert is logged and the run continues.
func (e *Engine) recordRun(run *store.Run) {
	if e.st == nil {
		return
	}
	if err := e.st.InsertRun(run); err != nil {
		logging.L().Warn().Err(err).Str("run", run.ID).Msg("failed to record run")
		return
	}
	if !run.FinishedAt.IsZero() {
		if err := e.st.FinishRun(run); err != nil {
			logging.L().Warn().Err(err).Str("run", run.ID).Msg("failed to finish run row")
		}
	}
}
