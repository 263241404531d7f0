// Package progress carries live pipeline progress to a single consumer.
//
// Every pipeline stage publishes typed events into a Tracker; the consumer
// (the CLI today) drains the event channel and renders however it likes.
// Publishing is best-effort: when the consumer falls behind, events are
// dropped rather than blocking a worker, so a slow terminal can never stall
// enumeration, hashing or deletion.
package progress

import (
	"sync"
	"sync/atomic"
)

// Stage identifies which pipeline stage an event came from.
type Stage string

const (
	StageScan   Stage = "scan"
	StageHash   Stage = "hash"
	StageBackup Stage = "backup"
	StageDelete Stage = "delete"
)

// Event is one progress notification. Total is zero when the stage does not
// know its total up front (enumeration discovers files as it goes).
type Event struct {
	Stage Stage

	// Done counts items completed so far within the stage.
	Done int64

	// Total is the number of items the stage will process, or zero when
	// unknown.
	Total int64

	// Bytes is the cumulative byte count processed by the stage.
	Bytes int64

	// CurrentItem is the path most recently worked on, possibly empty.
	CurrentItem string

	// Completed marks the stage's final event. A consumer uses it to
	// finish whatever it rendered for the stage before output from the
	// next stage, or from the command itself, follows on the terminal.
	Completed bool
}

// Percent returns the completion percentage, or -1 when Total is unknown.
func (e Event) Percent() float64 {
	if e.Total <= 0 {
		return -1
	}
	p := float64(e.Done) / float64(e.Total) * 100
	if p > 100 {
		p = 100
	}
	return p
}

// Tracker is the shared sink pipeline stages publish into. A nil Tracker is
// valid and discards everything, so stages never need nil checks.
type Tracker struct {
	mu      sync.Mutex
	ch      chan Event
	closed  bool
	dropped atomic.Int64
}

// NewTracker returns a Tracker with the given event buffer size. A buffer of
// zero gets a small default.
func NewTracker(buffer int) *Tracker {
	if buffer <= 0 {
		buffer = 64
	}
	return &Tracker{ch: make(chan Event, buffer)}
}

// Publish sends an event without blocking. Events are dropped when the buffer
// is full or the tracker is closed. The mutex orders Publish against Close,
// so a publisher racing a Close can never send on a closed channel.
func (t *Tracker) Publish(ev Event) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	select {
	case t.ch <- ev:
	default:
		t.dropped.Add(1)
	}
}

// Events returns the channel the consumer drains. It is closed by Close.
func (t *Tracker) Events() <-chan Event {
	if t == nil {
		return nil
	}
	return t.ch
}

// Dropped reports how many events were discarded because the consumer was
// behind.
func (t *Tracker) Dropped() int64 {
	if t == nil {
		return 0
	}
	return t.dropped.Load()
}

// Close marks the tracker closed and closes the event channel. Publish calls
// after Close are discarded; calling Close again is a no-op.
func (t *Tracker) Close() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	close(t.ch)
}
