package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/progress"
)

// writerIsTTY reports whether w is backed by a terminal. Writers without an
// Fd method, such as *bytes.Buffer, are never terminals.
func writerIsTTY(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && isatty.IsTerminal(f.Fd())
}

// stageLabel is the verb shown while a pipeline stage runs.
func stageLabel(st progress.Stage) string {
	switch st {
	case progress.StageScan:
		return "Scanning"
	case progress.StageHash:
		return "Hashing"
	case progress.StageBackup:
		return "Backing up"
	case progress.StageDelete:
		return "Deleting"
	}
	return string(st)
}

// RenderProgress drains pipeline progress events and renders them on w until
// the channel closes. Stages that know their totals get an in-place progress
// bar; the open-ended scan stage gets a live file counter. On a non-terminal
// writer each stage prints one start line and one completion line, so piped
// output stays readable.
//
// The caller runs this on its own goroutine and closes the tracker once the
// pipeline call returns; the channel close is the shutdown signal.
func RenderProgress(events <-chan progress.Event, w io.Writer) {
	tty := writerIsTTY(w)
	var (
		stage progress.Stage
		bar   *ProgressBar
	)
	for ev := range events {
		if ev.Stage != stage {
			if bar != nil {
				bar.Finish()
				bar = nil
			}
			stage = ev.Stage
			if !tty {
				fmt.Fprintf(w, "%s...\n", stageLabel(stage))
			}
		}
		switch {
		case ev.Completed:
			if bar != nil {
				bar.Set(ev.Done, ev.Bytes)
				bar.Finish()
				bar = nil
			} else if tty {
				clearLine(w)
			} else {
				fmt.Fprintf(w, "%s done: %s files\n", stageLabel(stage), humanize.Comma(ev.Done))
			}
			stage = ""
		case !tty:
			// Live updates are terminal-only.
		case ev.Total > 0:
			if bar == nil {
				bar = NewProgressBar(stageLabel(stage), ev.Total)
				bar.SetWriter(w)
			}
			bar.Set(ev.Done, ev.Bytes)
		default:
			fmt.Fprintf(w, "\r%s  %s files", stageLabel(stage), humanize.Comma(ev.Done))
		}
	}
	// A cancelled pipeline can close the tracker mid-stage; leave no
	// half-drawn line behind.
	if bar != nil {
		bar.Finish()
	} else if tty && stage != "" {
		clearLine(w)
	}
}

func clearLine(w io.Writer) {
	fmt.Fprintf(w, "\r%s\r", strings.Repeat(" ", 72))
}

// ProgressBar renders one in-place line for a stage with a known total:
//
//	Backing up  [##########----------]  50%  3/6  1.2 MiB
//
// On a terminal every Set redraws the line; off-terminal the bar stays
// silent until Finish prints its final state once.
type ProgressBar struct {
	mu    sync.Mutex
	w     io.Writer
	label string
	total int64
	done  int64
	bytes int64
	width int
}

// NewProgressBar returns a bar for total items, writing to stdout.
func NewProgressBar(label string, total int64) *ProgressBar {
	return &ProgressBar{
		w:     os.Stdout,
		label: label,
		total: total,
		width: 20,
	}
}

// SetWriter redirects the bar's output, mainly for tests.
func (b *ProgressBar) SetWriter(w io.Writer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.w = w
}

// Set updates progress and redraws. done is clamped to the total; bytes may
// stay zero for stages that do not track sizes.
func (b *ProgressBar) Set(done, bytes int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if done > b.total {
		done = b.total
	}
	b.done = done
	b.bytes = bytes
	if writerIsTTY(b.w) {
		b.draw("\r")
	}
}

// Finish pins the bar at its current state and terminates the line. Off a
// terminal this is the only time the bar prints at all.
func (b *ProgressBar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if writerIsTTY(b.w) {
		b.draw("\r")
	} else {
		b.draw("")
	}
	fmt.Fprintln(b.w)
}

// draw writes the bar line. Callers hold the mutex.
func (b *ProgressBar) draw(prefix string) {
	pct := int64(100)
	filled := b.width
	if b.total > 0 {
		pct = b.done * 100 / b.total
		filled = int(b.done * int64(b.width) / b.total)
	}
	cells := strings.Repeat("#", filled) + strings.Repeat("-", b.width-filled)
	line := fmt.Sprintf("%s%-11s [%s] %3d%%  %d/%d", prefix, b.label, cells, pct, b.done, b.total)
	if b.bytes > 0 {
		line += "  " + humanize.IBytes(uint64(b.bytes))
	}
	fmt.Fprint(b.w, line)
}

// spinnerFrames is the rotation shown while a Spinner runs.
const spinnerFrames = `-\|/`

// Spinner shows an animated "working" line for operations with nothing to
// count, such as starting or stopping the watch daemon. Off a terminal the
// message prints once and the animation is skipped.
type Spinner struct {
	mu      sync.Mutex
	w       io.Writer
	message string
	running bool
	quit    chan struct{}
}

// NewSpinner returns a spinner writing to stdout. Call Start to run it.
func NewSpinner(message string) *Spinner {
	return &Spinner{
		w:       os.Stdout,
		message: message,
	}
}

// SetWriter redirects the spinner's output, mainly for tests.
func (s *Spinner) SetWriter(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = w
}

// Start begins the animation. Starting a running spinner does nothing.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.quit = make(chan struct{})
	if !writerIsTTY(s.w) {
		fmt.Fprintln(s.w, s.message)
		return
	}
	go s.spin(s.quit)
}

func (s *Spinner) spin(quit chan struct{}) {
	ticker := time.NewTicker(120 * time.Millisecond)
	defer ticker.Stop()
	frame := 0
	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			if s.running {
				fmt.Fprintf(s.w, "\r%c %s", spinnerFrames[frame%len(spinnerFrames)], s.message)
				frame++
			}
			s.mu.Unlock()
		case <-quit:
			return
		}
	}
}

// Stop halts the animation and clears the line. Stopping a spinner that was
// never started does nothing.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.quit)
	if writerIsTTY(s.w) {
		fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", len(s.message)+3))
	}
}

// StopWithMessage stops the spinner and prints a final line in its place.
func (s *Spinner) StopWithMessage(message string) {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, message)
}
