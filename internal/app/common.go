package app

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/config"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/engine"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/output"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/progress"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/safety"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/store"
)

// loadConfig reads the config file named by --config, falling back to the
// default location. A missing file yields the built-in defaults.
func loadConfig() (*config.Config, error) {
	path := cfgPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openStore opens the run-history database, creating the schema if needed.
func openStore() (*store.Store, error) {
	path, err := getDBPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get database path: %w", err)
	}
	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := st.CreateSchema(); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create database schema: %w", err)
	}
	return st, nil
}

// buildEngine wires config, store and pipeline for one command invocation.
// The caller owns closing the returned store.
func buildEngine() (*engine.Engine, *store.Store, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	st, err := openStore()
	if err != nil {
		return nil, nil, nil, err
	}
	e, err := engine.New(cfg, st, progress.NewTracker(256))
	if err != nil {
		st.Close()
		return nil, nil, nil, err
	}
	return e, st, cfg, nil
}

// renderProgress streams pipeline progress to the terminal while a command
// runs. The returned stop function closes the tracker and waits for the last
// line to be flushed, so it must be called before the command prints tables.
// Off a terminal, or with quiet set, events are dropped unrendered.
func renderProgress(e *engine.Engine, quiet bool) func() {
	tracker := e.Progress()
	if tracker == nil {
		return func() {}
	}
	if quiet || !isatty.IsTerminal(os.Stdout.Fd()) {
		return tracker.Close
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		output.RenderProgress(tracker.Events(), os.Stdout)
	}()
	return func() {
		tracker.Close()
		<-done
	}
}

// commandContext returns a context cancelled by Ctrl+C, so a long scan or
// delete run can be interrupted and still account for what it did.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

// parseLevel converts a --level flag value, listing the valid names in the
// error so the user does not have to guess.
func parseLevel(s string) (safety.Level, error) {
	level, err := safety.ParseLevel(s)
	if err != nil {
		names := make([]string, 0, len(safety.Levels()))
		for _, l := range safety.Levels() {
			names = append(names, l.String())
		}
		return 0, fmt.Errorf("invalid level %q (valid: %s)", s, strings.Join(names, ", "))
	}
	if level >= safety.Risky {
		return 0, fmt.Errorf("level %q cannot be used as a bulk threshold; select risky files explicitly", s)
	}
	return level, nil
}

// confirmDeletion prompts before a live deletion run. Accepts "y" or "yes".
func confirmDeletion(count int, size string) bool {
	reader := bufio.NewReader(os.Stdin)

	fmt.Printf("Delete %d files (%s)? A backup will be created first. [y/N]: ", count, size)

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

// confirmNoBackup requires the literal "yes" before deleting without a
// backup; there is no undo for that.
func confirmNoBackup(count int) bool {
	reader := bufio.NewReader(os.Stdin)

	fmt.Printf("WARNING: You are about to delete %d files WITHOUT a backup.\n", count)
	fmt.Println("Deleted files cannot be recovered.")
	fmt.Print("Type \"yes\" to confirm (or press Enter to cancel): ")

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(response) == "yes"
}
