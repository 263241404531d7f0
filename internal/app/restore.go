package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/backup"
)

var (
	restoreList bool

	restoreCmd = &cobra.Command{
		Use:   "restore <backup-id|latest>",
		Short: "Restore files from a backup set",
		Long: `Extract every file from a backup set back to its original path.

Restore never overwrites: a file that already exists at its original path is
skipped and reported. Extracted content is verified against the manifest
checksum; a corrupted entry fails that file only, not the whole restore.`,
		Example: `  # Restore the most recent backup set
  utac restore latest

  # Restore a specific set by ID
  utac restore 9f3c2a1e-8d4b-4c6a-b1e2-7a5d9c3f0e8b

  # Show what a set contains without restoring
  utac restore latest --list`,
		Args: cobra.ExactArgs(1),
		RunE: runRestore,
	}
)

func init() {
	restoreCmd.Flags().BoolVar(&restoreList, "list", false, "list the set's contents instead of restoring")
}

func runRestore(cmd *cobra.Command, args []string) error {
	e, st, _, err := buildEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	var manifest *backup.Manifest
	if args[0] == "latest" {
		manifest, err = e.Backups().Latest()
	} else {
		manifest, err = e.Backups().Get(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to load backup: %w", err)
	}

	if restoreList {
		fmt.Printf("Backup %s (%s, %d files)\n\n", manifest.ID, manifest.Reason, len(manifest.Entries))
		for _, entry := range manifest.Entries {
			fmt.Printf("  %s\n", entry.OriginalPath)
		}
		return nil
	}

	result, err := e.Backups().Restore(manifest)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	fmt.Printf("Restored %d files", result.Restored)
	if result.Skipped > 0 {
		fmt.Printf(" · %d skipped (already exist)", result.Skipped)
	}
	if result.Failed > 0 {
		fmt.Printf(" · %d failed", result.Failed)
	}
	fmt.Println()

	for _, failure := range result.Errors {
		fmt.Printf("  failed: %s: %v\n", failure.Path, failure.Err)
	}
	return nil
}
