// Package output provides terminal output utilities for utac.
//
// This package includes:
//   - Table rendering for scan reports, duplicate groups, backup sets and run history
//   - Progress bars for long-running operations
//   - Spinners for indeterminate operations
//   - Human-readable formatting for sizes, dates, and other data
//
// All table rendering functions use ASCII characters and ANSI color codes for terminal output.
// Progress indicators are thread-safe and can be used from multiple goroutines.
package output

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/backup"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/dedup"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/engine"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/safety"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/store"
)

// ANSI color codes for safety level display
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// levelColor returns the ANSI color code for a safety level.
func levelColor(level safety.Level) string {
	switch level {
	case safety.VerySafe, safety.Safe:
		return colorGreen
	case safety.Moderate:
		return colorYellow
	case safety.Risky:
		return colorRed
	default:
		return colorGray
	}
}

// formatSize converts bytes to a human-readable size.
func formatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// truncatePath truncates a path to maxLen keeping the tail, which carries
// the file name and its closest parents.
func truncatePath(p string, maxLen int) string {
	if len(p) <= maxLen {
		return p
	}
	if maxLen <= 3 {
		return p[len(p)-maxLen:]
	}
	return "..." + p[len(p)-(maxLen-3):]
}

// RenderScanSummary renders the one-line outcome of a scan.
// Format: "Scanned 1,234 files (2.1 GiB) in 1.2s · 3 protected skipped · 1 in use"
func RenderScanSummary(report *engine.ScanReport) string {
	var total int64
	for _, rec := range report.Records {
		total += rec.Size
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Scanned %s files (%s) in %s",
		humanize.Comma(int64(len(report.Records))),
		formatSize(total),
		report.Duration.Round(time.Millisecond)))
	if report.ProtectedSkipped > 0 {
		sb.WriteString(fmt.Sprintf(" · %d protected skipped", report.ProtectedSkipped))
	}
	if report.InUseCount > 0 {
		sb.WriteString(fmt.Sprintf(" · %d in use", report.InUseCount))
	}
	if len(report.Warnings) > 0 {
		sb.WriteString(fmt.Sprintf(" · %d warnings", len(report.Warnings)))
	}
	return sb.String()
}

// RenderCategoryTable renders the per-category breakdown of a scan report,
// largest category first.
func RenderCategoryTable(report *engine.ScanReport) string {
	byCat := report.ByCategory()
	if len(byCat) == 0 {
		return "No files found.\n"
	}

	type entry struct {
		category string
		agg      engine.Aggregate
	}
	entries := make([]entry, 0, len(byCat))
	for cat, agg := range byCat {
		entries = append(entries, entry{category: string(cat), agg: agg})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].agg.Bytes != entries[j].agg.Bytes {
			return entries[i].agg.Bytes > entries[j].agg.Bytes
		}
		return entries[i].category < entries[j].category
	})

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-12s %-8s %s\n", "Category", "Files", "Size"))
	sb.WriteString(strings.Repeat("─", 36))
	sb.WriteString("\n")
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("%-12s %-8d %s\n",
			e.category, e.agg.Files, formatSize(e.agg.Bytes)))
	}
	return sb.String()
}

// RenderLevelSummary renders a colored one-line safety breakdown.
// Format: "very-safe: 12 (43 MiB) · safe: 19 (186 MiB) · moderate: 4 (12 MiB) · risky: 2 (1.1 MiB)"
func RenderLevelSummary(report *engine.ScanReport) string {
	byLevel := report.ByLevel()

	var parts []string
	for _, level := range safety.Levels() {
		agg, ok := byLevel[level]
		if !ok {
			continue
		}
		label := level.String()
		if IsColorEnabled() {
			label = levelColor(level) + label + colorReset
		}
		parts = append(parts, fmt.Sprintf("%s: %d (%s)", label, agg.Files, formatSize(agg.Bytes)))
	}
	if len(parts) == 0 {
		return "nothing scanned"
	}
	return strings.Join(parts, " · ")
}

// RenderRecordTable renders scored files, largest first, capped at limit
// rows. A zero limit shows everything.
func RenderRecordTable(records []safety.Scored, limit int) string {
	if len(records) == 0 {
		return "No files found.\n"
	}

	sorted := make([]safety.Scored, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Size != sorted[j].Size {
			return sorted[i].Size > sorted[j].Size
		}
		return sorted[i].Path < sorted[j].Path
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-44s %-10s %-9s %-13s %s\n",
		"Path", "Category", "Size", "Modified", "Safety"))
	sb.WriteString(strings.Repeat("─", 92))
	sb.WriteString("\n")
	for _, rec := range sorted {
		label := rec.Level.String()
		if rec.InUse {
			label += " (in use)"
		}
		if IsColorEnabled() {
			sb.WriteString(fmt.Sprintf("%-44s %-10s %-9s %-13s %s%s%s\n",
				truncatePath(rec.Path, 44),
				rec.Category,
				formatSize(rec.Size),
				formatRelativeTime(rec.ModTime),
				levelColor(rec.Level), label, colorReset))
		} else {
			sb.WriteString(fmt.Sprintf("%-44s %-10s %-9s %-13s %s\n",
				truncatePath(rec.Path, 44),
				rec.Category,
				formatSize(rec.Size),
				formatRelativeTime(rec.ModTime),
				label))
		}
	}
	return sb.String()
}

// RenderStatsTable renders the descriptive scan summary: age buckets and
// the dominant extensions.
func RenderStatsTable(stats engine.ScanStats) string {
	var sb strings.Builder

	sb.WriteString("Age:\n")
	sb.WriteString(fmt.Sprintf("  last week:  %6d files  %s\n",
		stats.AgeBuckets.Week.Files, formatSize(stats.AgeBuckets.Week.Bytes)))
	sb.WriteString(fmt.Sprintf("  last month: %6d files  %s\n",
		stats.AgeBuckets.Month.Files, formatSize(stats.AgeBuckets.Month.Bytes)))
	sb.WriteString(fmt.Sprintf("  older:      %6d files  %s\n",
		stats.AgeBuckets.Older.Files, formatSize(stats.AgeBuckets.Older.Bytes)))

	type entry struct {
		ext string
		agg engine.Aggregate
	}
	entries := make([]entry, 0, len(stats.Extensions))
	for ext, agg := range stats.Extensions {
		entries = append(entries, entry{ext: ext, agg: agg})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].agg.Bytes != entries[j].agg.Bytes {
			return entries[i].agg.Bytes > entries[j].agg.Bytes
		}
		return entries[i].ext < entries[j].ext
	})
	if len(entries) > 10 {
		entries = entries[:10]
	}

	if len(entries) > 0 {
		sb.WriteString("\nTop extensions:\n")
		for _, e := range entries {
			sb.WriteString(fmt.Sprintf("  %-10s %6d files  %s\n",
				e.ext, e.agg.Files, formatSize(e.agg.Bytes)))
		}
	}

	if len(stats.Largest) > 0 {
		sb.WriteString("\nLargest files:\n")
		for _, rec := range stats.Largest {
			sb.WriteString(fmt.Sprintf("  %-9s %s\n",
				formatSize(rec.Size), truncatePath(rec.Path, 64)))
		}
	}

	return sb.String()
}

// RenderDuplicateTable renders resolved duplicate groups: the retained copy
// first, redundant copies indented beneath it.
func RenderDuplicateTable(groups []dedup.Group) string {
	if len(groups) == 0 {
		return "No duplicates found.\n"
	}

	var reclaimable int64
	var sb strings.Builder
	for i, g := range groups {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("%s · %d copies\n", formatSize(g.Size), len(g.Redundant)+1))
		sb.WriteString(fmt.Sprintf("  keep    %s\n", g.Retained.Path))
		for _, r := range g.Redundant {
			sb.WriteString(fmt.Sprintf("  delete  %s\n", r.Path))
			reclaimable += r.Size
		}
	}
	sb.WriteString(fmt.Sprintf("\nReclaimable: %s across %d groups\n",
		formatSize(reclaimable), len(groups)))
	return sb.String()
}

// RenderPlanTable renders a deletion plan for confirmation: candidates by
// size plus one footer line with the total.
func RenderPlanTable(plan *engine.DeletionPlan) string {
	if len(plan.Candidates) == 0 {
		return "Nothing to delete.\n"
	}

	var sb strings.Builder
	sb.WriteString(RenderRecordTable(plan.Candidates, 0))
	sb.WriteString(fmt.Sprintf("\nTotal: %d files · %s\n",
		len(plan.Candidates), formatSize(plan.TotalBytes)))
	for _, excl := range plan.Excluded {
		sb.WriteString(fmt.Sprintf("excluded: %s (%s)\n", excl.Path, excl.Code))
	}
	return sb.String()
}

// RenderResultSummary renders the outcome of an execute call, including
// per-file failures.
func RenderResultSummary(result *engine.OperationResult) string {
	var sb strings.Builder

	verb := "Deleted"
	if result.DryRun {
		verb = "Would delete"
	}
	line := fmt.Sprintf("%s %d files · %s freed", verb, result.FilesDeleted, formatSize(result.BytesFreed))
	if result.FilesFailed > 0 {
		line += fmt.Sprintf(" · %s", colorize(colorRed, fmt.Sprintf("%d failed", result.FilesFailed)))
	}
	sb.WriteString(line)
	sb.WriteString("\n")

	if result.ManifestID != "" {
		sb.WriteString(fmt.Sprintf("Backup: %s (utac restore %s)\n", result.ManifestID, result.ManifestID))
	}
	for _, fe := range result.Errors {
		sb.WriteString(fmt.Sprintf("  %-14s %s: %s\n", fe.Code, truncatePath(fe.Path, 48), fe.Err))
	}
	return sb.String()
}

// RenderBackupTable renders backup sets, newest first.
func RenderBackupTable(manifests []*backup.Manifest) string {
	if len(manifests) == 0 {
		return "No backups found.\n"
	}

	sorted := make([]*backup.Manifest, len(manifests))
	copy(sorted, manifests)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-38s %-14s %-8s %-9s %s\n",
		"ID", "Created", "Files", "Size", "Reason"))
	sb.WriteString(strings.Repeat("─", 86))
	sb.WriteString("\n")
	for _, m := range sorted {
		sb.WriteString(fmt.Sprintf("%-38s %-14s %-8d %-9s %s\n",
			m.ID,
			formatRelativeTime(m.CreatedAt),
			len(m.Entries),
			formatSize(m.TotalBytes()),
			truncate(m.Reason, 24)))
	}
	return sb.String()
}

// RenderRunTable renders run history rows, as returned by the store
// (newest first).
func RenderRunTable(runs []*store.Run) string {
	if len(runs) == 0 {
		return "No runs recorded.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-8s %-14s %-9s %-8s %-9s %s\n",
		"Kind", "Started", "Deleted", "Failed", "Freed", "Mode"))
	sb.WriteString(strings.Repeat("─", 64))
	sb.WriteString("\n")
	for _, run := range runs {
		mode := "live"
		if run.DryRun {
			mode = "dry-run"
		}
		sb.WriteString(fmt.Sprintf("%-8s %-14s %-9d %-8d %-9s %s\n",
			truncate(run.Kind, 8),
			formatRelativeTime(run.StartedAt),
			run.FilesDeleted,
			run.FilesFailed,
			formatSize(run.BytesFreed),
			mode))
	}
	return sb.String()
}
