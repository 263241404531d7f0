package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/output"
)

var (
	backupsCmd = &cobra.Command{
		Use:   "backups",
		Short: "List backup sets",
		Long: `List every backup set under the backup directory, newest first.

Each deletion run that creates a backup leaves a zip archive plus a JSON
manifest recording every archived file with its original path and checksum.
Use 'utac restore <id>' to bring a set back.`,
		Example: `  # List all backup sets
  utac backups

  # Remove expired backup sets
  utac backups prune`,
		RunE: runBackupsList,
	}

	backupsPruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "Remove backup sets past the retention window",
		Long: `Delete backup archives older than the configured retention period.

The newest sets are always kept regardless of age (backup_keep_min in the
config), so pruning can never leave you without a restore point.`,
		RunE: runBackupsPrune,
	}
)

func init() {
	backupsCmd.AddCommand(backupsPruneCmd)
}

func runBackupsList(cmd *cobra.Command, args []string) error {
	e, st, _, err := buildEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	manifests, err := e.Backups().List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	fmt.Print(output.RenderBackupTable(manifests))
	return nil
}

func runBackupsPrune(cmd *cobra.Command, args []string) error {
	e, st, cfg, err := buildEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	removed, err := e.Backups().Prune(cfg.BackupRetentionDays, cfg.BackupKeepMin)
	if err != nil {
		return fmt.Errorf("failed to prune backups: %w", err)
	}

	if removed == 0 {
		fmt.Println("Nothing to prune.")
	} else {
		fmt.Printf("Removed %d backup sets older than %d days.\n", removed, cfg.BackupRetentionDays)
	}
	return nil
}
