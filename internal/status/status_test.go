package status

import (
	"fmt"
	"sync"
	"testing"
)

func TestUnknownPathReportsNone(t *testing.T) {
	table := NewTable()
	entry := table.Get("/courses/a/x.mp4")
	if entry.State != StateNone {
		t.Fatalf("state %q, want none", entry.State)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	table := NewTable()
	path := "/courses/a/x.mp4"

	table.MarkQueued(path)
	if got := table.Get(path).State; got != StateQueued {
		t.Fatalf("state %q after queue", got)
	}

	table.MarkProcessing(path, "starting conversion")
	table.SetProgress(path, "converting (42%)", 42, "3m 10s")
	entry := table.Get(path)
	if entry.State != StateProcessing || entry.Percent != 42 || entry.ETA != "3m 10s" {
		t.Fatalf("unexpected entry %+v", entry)
	}

	table.MarkCompleted(path, "converted")
	entry = table.Get(path)
	if entry.State != StateCompleted || entry.Percent != 100 {
		t.Fatalf("unexpected completed entry %+v", entry)
	}
}

func TestSetProgressClampsPercent(t *testing.T) {
	table := NewTable()
	table.SetProgress("p", "m", 150, "")
	if got := table.Get("p").Percent; got != 100 {
		t.Fatalf("percent %d, want clamped 100", got)
	}
	table.SetProgress("p", "m", -5, "")
	if got := table.Get("p").Percent; got != 0 {
		t.Fatalf("percent %d, want clamped 0", got)
	}
}

func TestAllowsEnqueue(t *testing.T) {
	cases := map[State]bool{
		StateNone:       true,
		StateFailed:     true,
		StateQueued:     false,
		StateProcessing: false,
		StateCompleted:  false,
	}
	for state, want := range cases {
		if got := state.AllowsEnqueue(); got != want {
			t.Fatalf("AllowsEnqueue(%q) = %v, want %v", state, got, want)
		}
	}
}

func TestFailedEntryPersistsUntilResubmission(t *testing.T) {
	table := NewTable()
	path := "/courses/a/x.mp4"
	table.MarkFailed(path, "ffmpeg failed")
	if got := table.Get(path).State; got != StateFailed {
		t.Fatalf("state %q", got)
	}

	// Resubmission transitions failed back to queued.
	table.MarkQueued(path)
	if got := table.Get(path).State; got != StateQueued {
		t.Fatalf("state %q after resubmission", got)
	}
}

func TestInFlightAndPrune(t *testing.T) {
	table := NewTable()
	table.MarkQueued("/a")
	table.MarkProcessing("/b", "working")
	table.MarkCompleted("/c", "done")
	table.MarkFailed("/d", "broken")

	inflight := table.InFlight()
	if len(inflight) != 2 {
		t.Fatalf("inflight %d, want 2", len(inflight))
	}

	if removed := table.PruneFinished(); removed != 2 {
		t.Fatalf("pruned %d, want 2", removed)
	}
	if len(table.Snapshot()) != 2 {
		t.Fatalf("snapshot %d entries after prune", len(table.Snapshot()))
	}
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	table := NewTable()
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				path := fmt.Sprintf("/courses/%d/%d.mp4", w, i)
				table.MarkQueued(path)
				table.SetProgress(path, "converting", i%101, "1m 0s")
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = table.Snapshot()
				_ = table.InFlight()
			}
		}()
	}
	wg.Wait()

	if len(table.Snapshot()) != 400 {
		t.Fatalf("expected 400 entries, got %d", len(table.Snapshot()))
	}
}
