package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/spf13/cobra"

	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/output"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/watcher"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show run history, backup usage and watcher status",
	Long: `Display the current state of utac on this machine.

Shows:
  • Recent scan and cleanup runs with what they freed
  • Backup sets on disk and the space they occupy
  • Free space on the backup volume
  • Watch daemon status and recorded directory growth

This is the command to run when you wonder whether cleaning is worth it yet.`,
	Example: `  # Check status
  utac status`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	e, st, cfg, err := buildEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	// Run history
	runs, err := st.ListRuns(10)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	fmt.Println("Recent runs:")
	fmt.Print(output.RenderRunTable(runs))
	fmt.Println()

	// Backup usage
	manifests, err := e.Backups().List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	var backupBytes int64
	for _, m := range manifests {
		backupBytes += m.TotalBytes()
	}
	fmt.Printf("Backups: %d sets · %s archived · dir %s\n",
		len(manifests), humanize.IBytes(uint64(backupBytes)), cfg.BackupDir)

	if usage, err := disk.Usage(cfg.BackupDir); err == nil {
		fmt.Printf("Backup volume: %s free of %s (%.0f%% used)\n",
			humanize.IBytes(usage.Free), humanize.IBytes(usage.Total), usage.UsedPercent)
	}
	fmt.Println()

	// Watch daemon
	pidFile, err := getDefaultPIDFile()
	if err != nil {
		return fmt.Errorf("failed to get PID file path: %w", err)
	}
	daemonRunning, err := watcher.IsDaemonRunning(pidFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if daemonRunning {
		var pid int
		if pidData, err := os.ReadFile(pidFile); err == nil {
			pid, _ = strconv.Atoi(strings.TrimSpace(string(pidData)))
		}
		fmt.Printf("Watch daemon: running (PID %d)\n", pid)

		growth, err := st.GrowthSince(time.Now().Add(-24 * time.Hour))
		if err == nil && len(growth) > 0 {
			fmt.Println("Growth in the last 24h:")
			for _, g := range growth {
				fmt.Printf("  %-40s %5d events · %s\n",
					g.Root, g.Events, humanize.IBytes(uint64(g.BytesAdded)))
			}
		}
	} else {
		fmt.Println("Watch daemon: not running (start with 'utac watch --daemon')")
	}

	return nil
}
