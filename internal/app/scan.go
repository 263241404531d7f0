package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/engine"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/output"
)

var (
	scanDuplicates bool
	scanStats      bool
	scanTop        int
	scanMaxDepth   int
	scanQuiet      bool

	scanCmd = &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Scan for disposable files and score them for deletion safety",
		Long: `Scan the configured roots (or the given paths) for temp files, caches,
logs, browser artifacts and other disposable data.

Every file found is classified by category and scored for deletion safety.
Protected paths are never listed; files currently held open by a process are
shown but marked in use. Scanning changes nothing on disk.

Safety levels, from very-safe to dangerous, bound what later commands may
delete: 'utac clean' only touches files at or below its --level threshold,
and dangerous files are never deletable at all.`,
		Example: `  # Scan the configured roots
  utac scan

  # Scan specific directories
  utac scan ~/Downloads /var/tmp

  # Include duplicate detection (hashes file content, slower)
  utac scan --duplicates

  # Show extension and age statistics with the 10 largest files
  utac scan --stats --top 10`,
		RunE: runScan,
	}
)

func init() {
	scanCmd.Flags().BoolVar(&scanDuplicates, "duplicates", false, "detect duplicate files by content hash")
	scanCmd.Flags().BoolVar(&scanStats, "stats", false, "show extension and age statistics")
	scanCmd.Flags().IntVar(&scanTop, "top", 20, "rows to show in file listings")
	scanCmd.Flags().IntVar(&scanMaxDepth, "max-depth", 0, "limit directory recursion depth (0 = unlimited)")
	scanCmd.Flags().BoolVar(&scanQuiet, "quiet", false, "suppress per-file output, print the summary only")
}

func runScan(cmd *cobra.Command, args []string) error {
	e, st, _, err := buildEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := commandContext()
	defer cancel()

	stopProgress := renderProgress(e, scanQuiet)
	report, err := e.Scan(ctx, engine.ScanOptions{
		Roots:             args,
		MaxDepth:          scanMaxDepth,
		IncludeDuplicates: scanDuplicates,
	})
	stopProgress()
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	fmt.Println(output.RenderScanSummary(report))
	fmt.Println(output.RenderLevelSummary(report))
	fmt.Println()

	if !scanQuiet {
		fmt.Print(output.RenderCategoryTable(report))
		fmt.Println()
		fmt.Print(output.RenderRecordTable(report.Records, scanTop))
	}

	if scanDuplicates {
		fmt.Println()
		fmt.Print(output.RenderDuplicateTable(report.Duplicates))
	}

	if scanStats {
		fmt.Println()
		fmt.Print(output.RenderStatsTable(report.Stats(scanTop)))
	}

	for _, warning := range report.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
	}

	return nil
}
