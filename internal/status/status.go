// Package status holds the shared conversion status table polled by external
// observers. The worker overwrites entries in place as conversions progress;
// entries persist until resubmission, an explicit prune, or process restart.
package status

import (
	"sort"
	"sync"
	"time"
)

// State identifies where a path sits in the conversion lifecycle.
type State string

const (
	StateNone       State = "none"
	StateQueued     State = "queued"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// AllowsEnqueue reports whether a path in this state may be (re)submitted.
// Failed entries are re-enqueueable; queued, processing, and completed are not.
func (s State) AllowsEnqueue() bool {
	switch s {
	case StateQueued, StateProcessing, StateCompleted:
		return false
	default:
		return true
	}
}

// Finished reports whether the state is terminal for the current attempt.
func (s State) Finished() bool {
	return s == StateCompleted || s == StateFailed
}

// Entry is the externally visible status of one path.
type Entry struct {
	Path      string
	State     State
	Message   string
	Percent   int
	ETA       string
	UpdatedAt time.Time
}

// Table is a concurrency-safe mapping from file path to conversion status.
type Table struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewTable constructs an empty status table.
func NewTable() *Table {
	return &Table{entries: make(map[string]Entry)}
}

// Get returns the entry for a path. Unknown paths report StateNone.
func (t *Table) Get(path string) Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if entry, ok := t.entries[path]; ok {
		return entry
	}
	return Entry{Path: path, State: StateNone}
}

// MarkQueued records a successful enqueue.
func (t *Table) MarkQueued(path string) {
	t.set(Entry{Path: path, State: StateQueued, Message: "waiting in queue", ETA: "waiting"})
}

// MarkProcessing records that the worker picked the path up.
func (t *Table) MarkProcessing(path, message string) {
	t.set(Entry{Path: path, State: StateProcessing, Message: message, ETA: "calculating"})
}

// SetProgress overwrites progress details for an in-flight path.
func (t *Table) SetProgress(path, message string, percent int, eta string) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	t.set(Entry{Path: path, State: StateProcessing, Message: message, Percent: percent, ETA: eta})
}

// MarkCompleted records a successful conversion.
func (t *Table) MarkCompleted(path, message string) {
	t.set(Entry{Path: path, State: StateCompleted, Message: message, Percent: 100, ETA: "0s"})
}

// MarkFailed records a failed attempt. The entry persists until the path is
// resubmitted or pruned.
func (t *Table) MarkFailed(path, message string) {
	t.set(Entry{Path: path, State: StateFailed, Message: message, ETA: "n/a"})
}

func (t *Table) set(entry Entry) {
	entry.UpdatedAt = time.Now()
	t.mu.Lock()
	t.entries[entry.Path] = entry
	t.mu.Unlock()
}

// Snapshot returns all entries ordered by path.
func (t *Table) Snapshot() []Entry {
	t.mu.RLock()
	entries := make([]Entry, 0, len(t.entries))
	for _, entry := range t.entries {
		entries = append(entries, entry)
	}
	t.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries
}

// InFlight returns queued and processing entries ordered by path.
func (t *Table) InFlight() []Entry {
	var inflight []Entry
	for _, entry := range t.Snapshot() {
		if entry.State == StateQueued || entry.State == StateProcessing {
			inflight = append(inflight, entry)
		}
	}
	return inflight
}

// PruneFinished removes completed and failed entries, returning how many were
// dropped. Queued and processing entries are never pruned.
func (t *Table) PruneFinished() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for path, entry := range t.entries {
		if entry.State.Finished() {
			delete(t.entries, path)
			removed++
		}
	}
	return removed
}
