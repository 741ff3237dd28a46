package scanner

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lectern/internal/ledger"
	"lectern/internal/logging"
	"lectern/internal/media/ffprobe"
	"lectern/internal/queue"
	"lectern/internal/status"
	"lectern/internal/testsupport"
)

func codecProbe(codecs map[string]string) ProbeFunc {
	return func(_ context.Context, path string) (ffprobe.Info, error) {
		codec, ok := codecs[filepath.Base(path)]
		if !ok {
			codec = "mpeg4"
		}
		return ffprobe.Info{Codec: codec, Container: "mov,mp4,m4a", DurationSeconds: 120, SizeMB: 10}, nil
	}
}

func newTestScanner(t *testing.T, probe ProbeFunc) (*Scanner, *status.Table, *queue.Queue, *ledger.Store) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	table := status.NewTable()
	q := queue.New(cfg.Queue.Capacity)
	s := New(cfg, store, table, q, logging.NewNop(), WithProbe(probe))

	testsupport.WriteMedia(t, cfg, "algebra/week1/lecture1.mp4", "raw video a")
	testsupport.WriteMedia(t, cfg, "algebra/week1/lecture2.mp4", "raw video b")
	testsupport.WriteMedia(t, cfg, "algebra/notes.txt", "not media")
	testsupport.WriteMedia(t, cfg, "rootclip.mp4", "no course")
	testsupport.WriteMedia(t, cfg, "_archive/old/done.mp4", "archived")
	testsupport.WriteMedia(t, cfg, "_temp/partial.mp4", "in flight")

	return s, table, q, store
}

func TestScanOnceClassifiesAndEnqueues(t *testing.T) {
	probe := codecProbe(map[string]string{
		"lecture1.mp4": "mpeg4",
		"lecture2.mp4": "h264",
	})
	s, table, q, _ := newTestScanner(t, probe)

	if state := s.CacheState(); state != CacheReady {
		t.Fatalf("initial cache state %q", state)
	}
	if err := s.ScanOnce(context.Background()); err != nil {
		t.Fatalf("scan: %v", err)
	}

	snapshot := s.Snapshot()
	if len(snapshot.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", len(snapshot.Candidates), snapshot.Candidates)
	}
	if snapshot.ScannedAt.IsZero() {
		t.Fatal("snapshot timestamp not set")
	}

	byName := map[string]Candidate{}
	for _, c := range snapshot.Candidates {
		byName[c.Filename] = c
		if c.Course != "algebra" || c.Section != "week1" {
			t.Fatalf("bad course/section for %s: %q/%q", c.Filename, c.Course, c.Section)
		}
	}
	if !byName["lecture1.mp4"].NeedsConversion {
		t.Fatal("mpeg4 file should need conversion")
	}
	if byName["lecture2.mp4"].NeedsConversion {
		t.Fatal("h264 file should not need conversion")
	}

	items := q.Items()
	if len(items) != 1 || !strings.HasSuffix(items[0], "lecture1.mp4") {
		t.Fatalf("queue items %v", items)
	}
	if state := table.Get(items[0]).State; state != status.StateQueued {
		t.Fatalf("enqueued path state %q", state)
	}
}

func TestScanOnceIsIdempotentWhileQueued(t *testing.T) {
	s, _, q, _ := newTestScanner(t, codecProbe(nil))

	for range 3 {
		if err := s.ScanOnce(context.Background()); err != nil {
			t.Fatalf("scan: %v", err)
		}
	}
	if got := len(q.Items()); got != 2 {
		t.Fatalf("expected 2 queued items after repeated scans, got %d", got)
	}
}

func TestScanOnceSkipsLedgeredPaths(t *testing.T) {
	s, _, q, store := newTestScanner(t, codecProbe(nil))

	path := filepath.Join(s.cfg.Paths.LibraryDir, "algebra", "week1", "lecture1.mp4")
	rec := &ledger.Record{
		Fingerprint:   "aaaa",
		OriginalPath:  filepath.Join(s.cfg.ArchiveDir(), "lecture1.mp4"),
		ConvertedPath: path,
		Status:        ledger.StatusArchived,
	}
	if err := store.Insert(context.Background(), rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := s.ScanOnce(context.Background()); err != nil {
		t.Fatalf("scan: %v", err)
	}

	for _, item := range q.Items() {
		if item == path {
			t.Fatal("ledgered path must not be enqueued")
		}
	}
	for _, c := range s.Snapshot().Candidates {
		if c.Path == path && !c.Processed {
			t.Fatal("ledgered path should be marked processed")
		}
	}
}

func TestScanOnceExcludesUnprobeableFiles(t *testing.T) {
	probe := func(_ context.Context, path string) (ffprobe.Info, error) {
		if strings.HasSuffix(path, "lecture2.mp4") {
			return ffprobe.Info{}, context.DeadlineExceeded
		}
		return ffprobe.Info{Codec: "mpeg4", DurationSeconds: 60}, nil
	}
	s, _, _, _ := newTestScanner(t, probe)

	if err := s.ScanOnce(context.Background()); err != nil {
		t.Fatalf("scan should survive per-file probe errors: %v", err)
	}
	for _, c := range s.Snapshot().Candidates {
		if c.Filename == "lecture2.mp4" {
			t.Fatal("unprobeable file should be excluded from snapshot")
		}
	}
	if len(s.Snapshot().Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(s.Snapshot().Candidates))
	}
}

func TestScanOnceDefersWhenQueueFull(t *testing.T) {
	s, table, q, _ := newTestScanner(t, codecProbe(nil))
	q.Resize(1)

	if err := s.ScanOnce(context.Background()); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if got := len(q.Items()); got != 1 {
		t.Fatalf("expected 1 queued item, got %d", got)
	}

	// The deferred file stays enqueueable and lands on the next cycle once
	// capacity exists.
	q.Resize(5)
	if err := s.ScanOnce(context.Background()); err != nil {
		t.Fatalf("rescan: %v", err)
	}
	if got := len(q.Items()); got != 2 {
		t.Fatalf("expected 2 queued items after rescan, got %d", got)
	}
	for _, item := range q.Items() {
		if table.Get(item).State != status.StateQueued {
			t.Fatalf("queued item %s not marked queued", item)
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s, _, _, _ := newTestScanner(t, codecProbe(nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for s.snapshot.Load() == nil {
		select {
		case <-deadline:
			t.Fatal("first scan never completed")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
