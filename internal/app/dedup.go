package app

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/engine"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/output"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/progress"
)

var (
	dedupKeep   string
	dedupDryRun bool
	dedupYes    bool

	dedupCmd = &cobra.Command{
		Use:   "dedup [paths...]",
		Short: "Find duplicate files and delete the redundant copies",
		Long: `Detect files with identical content under the scanned roots and delete
all but one copy of each.

Candidate duplicates are grouped by size, hashed, and byte-for-byte verified
before anything is marked redundant; a hash collision can never cause a
deletion. The --keep policy decides which copy survives:

  newest         keep the most recently modified copy (default)
  oldest         keep the oldest copy
  shortest-path  keep the copy with the shortest path

Redundant copies are backed up and deleted like any other candidate; the
retained copy is never touched.`,
		Example: `  # Preview duplicate groups without deleting
  utac dedup --dry-run

  # Deduplicate, keeping the oldest copy of each file
  utac dedup --keep oldest

  # Deduplicate a specific directory without a prompt
  utac dedup ~/Downloads --yes`,
		RunE: runDedup,
	}
)

func init() {
	dedupCmd.Flags().StringVar(&dedupKeep, "keep", "", "retention policy: newest, oldest or shortest-path (default from config)")
	dedupCmd.Flags().BoolVar(&dedupDryRun, "dry-run", false, "show duplicate groups without deleting")
	dedupCmd.Flags().BoolVar(&dedupYes, "yes", false, "skip the confirmation prompt")
}

func runDedup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dedupKeep != "" {
		cfg.DuplicateKeep = dedupKeep
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	e, err := engine.New(cfg, st, progress.NewTracker(256))
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	stopProgress := renderProgress(e, false)
	report, err := e.Scan(ctx, engine.ScanOptions{
		Roots:             args,
		IncludeDuplicates: true,
	})
	stopProgress()
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	fmt.Print(output.RenderDuplicateTable(report.Duplicates))
	if len(report.Duplicates) == 0 {
		return nil
	}

	// Only the redundant copies are candidates: plan over the duplicate
	// category so retained copies and unrelated files stay out.
	var paths []string
	for _, g := range report.Duplicates {
		for _, r := range g.Redundant {
			paths = append(paths, r.Path)
		}
	}
	plan, err := e.Plan(report, engine.Selection{Paths: paths})
	if err != nil {
		return fmt.Errorf("planning failed: %w", err)
	}
	if len(plan.Candidates) == 0 {
		fmt.Println("No deletable duplicate copies.")
		return nil
	}

	if dedupDryRun {
		fmt.Printf("\nWould delete %d redundant copies (%s).\n",
			len(plan.Candidates), humanize.IBytes(uint64(plan.TotalBytes)))
		return nil
	}

	if !dedupYes && !confirmDeletion(len(plan.Candidates), humanize.IBytes(uint64(plan.TotalBytes))) {
		fmt.Println("Cancelled.")
		return nil
	}

	e.ResetProgress()
	stopProgress = renderProgress(e, false)
	result, err := e.Execute(ctx, plan, engine.ExecuteOptions{
		CreateBackup: true,
		Reason:       "dedup",
	})
	stopProgress()
	if err != nil {
		return fmt.Errorf("dedup failed: %w", err)
	}

	fmt.Println()
	fmt.Print(output.RenderResultSummary(result))
	return nil
}
