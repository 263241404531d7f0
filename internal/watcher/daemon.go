package watcher

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/logging"
)

// readPIDFile returns the PID recorded in pidFile, or 0 when the file is
// missing or does not hold a positive number.
func readPIDFile(pidFile string) int {
	raw, err := os.ReadFile(pidFile)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || pid <= 0 {
		return 0
	}
	return pid
}

// IsDaemonRunning reports whether the process recorded in pidFile is alive.
// A stale file, one naming a dead process or holding garbage, is removed so
// the next start does not trip over it.
func IsDaemonRunning(pidFile string) (bool, error) {
	pid := readPIDFile(pidFile)
	if pid == 0 {
		if _, err := os.Stat(pidFile); err == nil {
			os.Remove(pidFile)
		}
		return false, nil
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false, nil
	}
	// Signal 0 probes for existence without delivering anything.
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		os.Remove(pidFile)
		return false, nil
	}
	return true, nil
}

// StartDaemon re-launches the current binary as a detached child running the
// watch loop, records the child's PID and sends its output to logFile. The
// pid and log file flags are forwarded so a custom location survives the
// re-exec instead of the child re-deriving defaults.
func (w *Watcher) StartDaemon(pidFile, logFile string) error {
	running, err := IsDaemonRunning(pidFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		return fmt.Errorf("watcher daemon already running, pid file %s", pidFile)
	}

	logSink, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logSink.Close()

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}

	child := exec.Command(self, "watch", "--daemon-child",
		"--pid-file", pidFile, "--log-file", logFile)
	child.Stdout = logSink
	child.Stderr = logSink
	child.SysProcAttr = &syscall.SysProcAttr{
		// A fresh session detaches the child from our controlling
		// terminal, so it survives the parent exiting.
		Setsid: true,
	}
	if err := child.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	pid := child.Process.Pid
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		child.Process.Kill()
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	if err := child.Process.Release(); err != nil {
		return fmt.Errorf("failed to detach daemon: %w", err)
	}
	logging.L().Info().Int("pid", pid).Str("pid_file", pidFile).Msg("watcher daemon started")
	return nil
}

// RunDaemon is the child side of StartDaemon: it runs the watcher until
// SIGTERM or SIGINT arrives, then stops cleanly and clears the pid file.
func (w *Watcher) RunDaemon(pidFile string) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	sig := <-sigCh
	logging.L().Info().Str("signal", sig.String()).Msg("watcher daemon shutting down")

	if err := w.Stop(); err != nil {
		return fmt.Errorf("failed to stop watcher: %w", err)
	}
	if err := os.Remove(pidFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove pid file: %w", err)
	}
	return nil
}

// StopDaemon sends SIGTERM to the process recorded in pidFile. The daemon
// removes its own pid file on the way down.
func StopDaemon(pidFile string) error {
	pid := readPIDFile(pidFile)
	if pid == 0 {
		return fmt.Errorf("no watcher daemon recorded at %s", pidFile)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to signal process %d: %w", pid, err)
	}
	return nil
}
