package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/logging"
)

var (
	cfgPath   string
	dbPath    string
	debugMode bool

	// RootCmd is the root command for utac
	RootCmd = &cobra.Command{
		Use:   "utac",
		Short: "Safe application-data cleanup with backup-before-delete",
		Long: `utac scans application data directories for disposable files (temp files,
caches, logs, browser artifacts, duplicates), scores each one for deletion
safety, and removes only what you approve - after archiving everything into
a restorable backup set.

Nothing is deleted without a backup unless you explicitly say so, protected
paths are never touched, and files in use are skipped rather than forced.

Quick Start:
  1. utac scan                 # see what is reclaimable
  2. utac clean --dry-run      # preview a cleanup
  3. utac clean                # back up and delete
  4. utac restore latest       # changed your mind? bring it all back

Examples:
  # Scan the configured roots
  utac scan

  # Find duplicate files and preview what a dedup would remove
  utac dedup --dry-run

  # Clean including moderately-safe files, no prompt
  utac clean --level moderate --yes

  # List backup sets and restore the newest one
  utac backups
  utac restore latest

  # Track directory growth in the background
  utac watch --daemon`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Setup(debugMode, "")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("utac: application-data cleanup with backup-before-delete")
			fmt.Println()
			fmt.Println("Run 'utac scan' to see what is reclaimable.")
			fmt.Println("Run 'utac --help' for the full reference.")
			return nil
		},
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default: ~/.utac/config.yaml)")
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: ~/.utac/utac.db)")
	RootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2

	// Register subcommands
	RootCmd.AddCommand(scanCmd)
	RootCmd.AddCommand(cleanCmd)
	RootCmd.AddCommand(dedupCmd)
	RootCmd.AddCommand(backupsCmd)
	RootCmd.AddCommand(restoreCmd)
	RootCmd.AddCommand(statusCmd)
	RootCmd.AddCommand(watchCmd)
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// utacDir returns ~/.utac, creating it if needed.
func utacDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	dir := filepath.Join(home, ".utac")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create utac directory: %w", err)
	}
	return dir, nil
}

// getDBPath returns the database path, using the flag value or default
func getDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	dir, err := utacDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "utac.db"), nil
}

// getDefaultPIDFile returns the default PID file path
func getDefaultPIDFile() (string, error) {
	dir, err := utacDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "watch.pid"), nil
}

// getDefaultLogFile returns the default log file path
func getDefaultLogFile() (string, error) {
	dir, err := utacDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "watch.log"), nil
}
