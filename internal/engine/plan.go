package engine

import (
	"fmt"

	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/safety"
)

// Plan resolves the final deletion candidate set from a scan report. It is
// pure: no filesystem access, no mutation of the report.
//
// With explicit paths, each named file must exist in the report; naming a
// dangerous or protected file fails the whole call with ErrSafetyViolation
// rather than silently dropping it, and files currently in use are excluded
// with a per-file note. Explicit selection admits up to Risky. Without
// explicit paths, everything admissible at or below sel.Threshold (default
// Safe) is planned.
func (e *Engine) Plan(report *ScanReport, sel Selection) (*DeletionPlan, error) {
	plan := &DeletionPlan{RunID: report.RunID}

	if len(sel.Paths) > 0 {
		for _, path := range sel.Paths {
			rec, ok := report.Find(path)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownPath, path)
			}
			if rec.Protected || rec.Level == safety.Dangerous {
				return nil, fmt.Errorf("%w: %s", ErrSafetyViolation, path)
			}
			if rec.InUse {
				plan.Excluded = append(plan.Excluded, FileError{
					Path: path,
					Code: CodeBecameInUse,
					Err:  "file is in use, retry after the owning process exits",
				})
				continue
			}
			plan.Candidates = append(plan.Candidates, rec)
			plan.TotalBytes += rec.Size
		}
		return plan, validatePlan(plan)
	}

	threshold := sel.Threshold
	if threshold == 0 {
		threshold = safety.Safe
	}
	for _, rec := range report.Records {
		if !rec.Admissible(threshold) {
			continue
		}
		plan.Candidates = append(plan.Candidates, rec)
		plan.TotalBytes += rec.Size
	}
	return plan, validatePlan(plan)
}

// validatePlan is the last line of defense for the admission invariant. A
// violation here is a bug in this package, not user error, and nothing from
// the plan may be executed.
func validatePlan(plan *DeletionPlan) error {
	for _, rec := range plan.Candidates {
		if rec.Protected || rec.InUse || rec.Level == safety.Dangerous {
			return fmt.Errorf("%w: %s slipped through planning", ErrSafetyViolation, rec.Path)
		}
	}
	return nil
}
