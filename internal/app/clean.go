package app

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/engine"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/output"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/safety"
)

var (
	cleanLevel        string
	cleanDryRun       bool
	cleanYes          bool
	cleanNoBackup     bool
	cleanIncludeDups  bool
	cleanIncludeRisky bool

	cleanCmd = &cobra.Command{
		Use:   "clean [paths...]",
		Short: "Back up and delete disposable files",
		Long: `Scan, plan and execute a cleanup in one pass.

Files at or below the --level safety threshold are deleted after being
archived into a backup set. The backup is sealed before the first file is
removed; anything the backup could not capture is skipped and reported, never
deleted unprotected. Files in use are skipped. Dangerous and protected files
are never candidates at any level.

--no-backup skips the archive step. That is the one way to lose data with
this tool, so it asks for explicit confirmation.`,
		Example: `  # Preview what a default cleanup would remove
  utac clean --dry-run

  # Clean very-safe and safe files with a confirmation prompt
  utac clean

  # Include moderately-safe files, skip the prompt
  utac clean --level moderate --yes

  # Clean specific directories only
  utac clean ~/Downloads /var/tmp`,
		RunE: runClean,
	}
)

func init() {
	cleanCmd.Flags().StringVar(&cleanLevel, "level", "safe", "safety threshold: very-safe, safe or moderate")
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "report what would be deleted without touching anything")
	cleanCmd.Flags().BoolVar(&cleanYes, "yes", false, "skip the confirmation prompt")
	cleanCmd.Flags().BoolVar(&cleanNoBackup, "no-backup", false, "delete without creating a backup (cannot be undone)")
	cleanCmd.Flags().BoolVar(&cleanIncludeDups, "duplicates", false, "also resolve and delete duplicate copies")
	cleanCmd.Flags().BoolVar(&cleanIncludeRisky, "include-risky", false, "raise the threshold to risky (dangerous files are still never deleted)")
}

func runClean(cmd *cobra.Command, args []string) error {
	threshold, err := parseLevel(cleanLevel)
	if err != nil {
		return err
	}
	if cleanIncludeRisky {
		threshold = safety.Risky
	}

	e, st, _, err := buildEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := commandContext()
	defer cancel()

	stopProgress := renderProgress(e, false)
	report, err := e.Scan(ctx, engine.ScanOptions{
		Roots:             args,
		IncludeDuplicates: cleanIncludeDups,
	})
	stopProgress()
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	plan, err := e.Plan(report, engine.Selection{Threshold: threshold})
	if err != nil {
		return fmt.Errorf("planning failed: %w", err)
	}
	if len(plan.Candidates) == 0 {
		fmt.Println("Nothing to delete.")
		return nil
	}

	fmt.Print(output.RenderPlanTable(plan))
	fmt.Println()

	if !cleanDryRun && !cleanYes {
		size := humanize.IBytes(uint64(plan.TotalBytes))
		if cleanNoBackup {
			if !confirmNoBackup(len(plan.Candidates)) {
				fmt.Println("Cancelled.")
				return nil
			}
		} else if !confirmDeletion(len(plan.Candidates), size) {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	e.ResetProgress()
	stopProgress = renderProgress(e, false)
	result, err := e.Execute(ctx, plan, engine.ExecuteOptions{
		CreateBackup: !cleanNoBackup,
		DryRun:       cleanDryRun,
		Reason:       "clean",
	})
	stopProgress()
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	fmt.Print(output.RenderResultSummary(result))
	return nil
}
