package progress

import (
	"sync"
	"testing"
)

func TestPublishAndDrain(t *testing.T) {
	tr := NewTracker(4)

	tr.Publish(Event{Stage: StageScan, Done: 1})
	tr.Publish(Event{Stage: StageScan, Done: 2})
	tr.Close()

	var got []Event
	for ev := range tr.Events() {
		got = append(got, ev)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[1].Done != 2 {
		t.Errorf("second event Done = %d, want 2", got[1].Done)
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	tr := NewTracker(1)

	// Fill the buffer, then keep publishing with no consumer.
	for i := 0; i < 10; i++ {
		tr.Publish(Event{Stage: StageHash, Done: int64(i)})
	}

	if tr.Dropped() != 9 {
		t.Errorf("Dropped() = %d, want 9", tr.Dropped())
	}
}

func TestNilTrackerIsSafe(t *testing.T) {
	var tr *Tracker
	tr.Publish(Event{Stage: StageDelete})
	tr.Close()
	if tr.Dropped() != 0 {
		t.Errorf("nil tracker reported drops")
	}
}

func TestPublishAfterCloseIsDiscarded(t *testing.T) {
	tr := NewTracker(4)
	tr.Close()
	tr.Publish(Event{Stage: StageBackup})

	n := 0
	for range tr.Events() {
		n++
	}
	if n != 0 {
		t.Errorf("expected no events after close, got %d", n)
	}
}

func TestPublishRacingCloseDoesNotPanic(t *testing.T) {
	tr := NewTracker(4)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 1000; j++ {
				tr.Publish(Event{Stage: StageDelete, Done: int64(j)})
			}
		}()
	}

	// Close while publishers are mid-flight. A send on the closed channel
	// would panic one of the goroutines and fail the test.
	close(start)
	tr.Close()
	wg.Wait()
}

func TestPercent(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want float64
	}{
		{"unknown total", Event{Done: 5}, -1},
		{"halfway", Event{Done: 50, Total: 100}, 50},
		{"overshoot clamps", Event{Done: 120, Total: 100}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ev.Percent(); got != tt.want {
				t.Errorf("Percent() = %g, want %g", got, tt.want)
			}
		})
	}
}
