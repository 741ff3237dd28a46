package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lectern/internal/ledger"
	"lectern/internal/logging"
	"lectern/internal/media/ffprobe"
	"lectern/internal/scanner"
	"lectern/internal/status"
	"lectern/internal/testsupport"
	"lectern/internal/worker"
)

type instantEncoder struct{}

func (instantEncoder) Convert(_ context.Context, _, outputPath string, progress func(float64)) error {
	if progress != nil {
		progress(60)
	}
	return os.WriteFile(outputPath, []byte("converted"), 0o644)
}

func stubProbe(codec string) func(context.Context, string) (ffprobe.Info, error) {
	return func(context.Context, string) (ffprobe.Info, error) {
		return ffprobe.Info{Codec: codec, DurationSeconds: 60}, nil
	}
}

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	d, err := New(cfg, logging.NewNop(),
		WithScannerOptions(scanner.WithProbe(stubProbe("mpeg4"))),
		WithWorkerOptions(
			worker.WithEncoder(instantEncoder{}),
			worker.WithProbe(stubProbe("mpeg4")),
		),
	)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestStartStopLifecycle(t *testing.T) {
	d := newTestDaemon(t)

	if d.Running() {
		t.Fatal("running before start")
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !d.Running() {
		t.Fatal("not running after start")
	}
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("second start must fail")
	}
	d.Stop()
	if d.Running() {
		t.Fatal("running after stop")
	}
	d.Stop() // idempotent
}

func TestSecondInstanceRejected(t *testing.T) {
	d := newTestDaemon(t)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	rival, err := New(d.cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("new rival: %v", err)
	}
	defer rival.Close()

	if err := rival.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestEnqueueValidation(t *testing.T) {
	d := newTestDaemon(t)
	path := testsupport.WriteMedia(t, d.cfg, "algebra/week1/lecture1.mp4", "bytes")

	if err := d.Enqueue("/etc/passwd"); err == nil {
		t.Fatal("path outside library accepted")
	}
	if err := d.Enqueue(filepath.Join(d.cfg.Paths.LibraryDir, "algebra", "notes.txt")); err == nil {
		t.Fatal("non-media extension accepted")
	}
	if err := d.Enqueue(filepath.Join(d.cfg.Paths.LibraryDir, "algebra", "gone.mp4")); err == nil {
		t.Fatal("missing file accepted")
	}

	if err := d.Enqueue(path); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := d.Enqueue(path); err == nil {
		t.Fatal("duplicate enqueue accepted while queued")
	}

	items := d.QueueItems()
	if len(items) != 1 || items[0] != path {
		t.Fatalf("queue items %v", items)
	}
	if state := d.Status()[0].State; state != status.StateQueued {
		t.Fatalf("state %q", state)
	}
}

func TestEndToEndConversion(t *testing.T) {
	d := newTestDaemon(t)
	path := testsupport.WriteMedia(t, d.cfg, "algebra/week1/lecture1.mp4", "original")

	if err := d.Enqueue(path); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	deadline := time.After(5 * time.Second)
	for {
		if entry := d.table.Get(path); entry.State.Finished() {
			if entry.State != status.StateCompleted {
				t.Fatalf("conversion finished %q: %s", entry.State, entry.Message)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("conversion never finished")
		case <-time.After(10 * time.Millisecond):
		}
	}

	got, err := os.ReadFile(path)
	if err != nil || string(got) != "converted" {
		t.Fatalf("library file = %q, %v", got, err)
	}
	records, err := d.LedgerList(context.Background())
	if err != nil {
		t.Fatalf("ledger list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}

func TestResizeQueueReportsDropped(t *testing.T) {
	d := newTestDaemon(t)
	var paths []string
	for _, name := range []string{"a.mp4", "b.mp4", "c.mp4"} {
		p := testsupport.WriteMedia(t, d.cfg, "algebra/"+name, name)
		if err := d.Enqueue(p); err != nil {
			t.Fatalf("enqueue %s: %v", name, err)
		}
		paths = append(paths, p)
	}

	rejected := d.ResizeQueue(1)
	if len(rejected) != 2 {
		t.Fatalf("rejected %v", rejected)
	}
	if d.QueueCapacity() != 1 {
		t.Fatalf("capacity %d", d.QueueCapacity())
	}
	for _, p := range rejected {
		entry := d.table.Get(p)
		if entry.State != status.StateFailed {
			t.Fatalf("dropped item %s state %q", p, entry.State)
		}
	}
	if entry := d.table.Get(paths[0]); entry.State != status.StateQueued {
		t.Fatalf("surviving item state %q", entry.State)
	}
}

func TestLedgerDeleteRemovesArchivedFile(t *testing.T) {
	d := newTestDaemon(t)

	archived := filepath.Join(d.cfg.ArchiveDir(), "lecture1.mp4")
	if err := os.MkdirAll(filepath.Dir(archived), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(archived, []byte("original"), 0o644); err != nil {
		t.Fatalf("write archived: %v", err)
	}

	rec := &ledger.Record{
		Fingerprint:   "ffff",
		OriginalPath:  archived,
		ConvertedPath: filepath.Join(d.cfg.Paths.LibraryDir, "algebra", "lecture1.mp4"),
		Status:        ledger.StatusArchived,
	}
	if err := d.store.Insert(context.Background(), rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	removed, err := d.LedgerDelete(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed == nil || removed.ID != rec.ID {
		t.Fatalf("removed %+v", removed)
	}
	if _, err := os.Stat(archived); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("archived file still present: %v", err)
	}

	if again, err := d.LedgerDelete(context.Background(), rec.ID); err != nil || again != nil {
		t.Fatalf("second delete: %+v, %v", again, err)
	}
}

func TestPruneStatus(t *testing.T) {
	d := newTestDaemon(t)
	d.table.MarkCompleted("/a.mp4", "done")
	d.table.MarkFailed("/b.mp4", "broken")
	d.table.MarkQueued("/c.mp4")

	if removed := d.PruneStatus(); removed != 2 {
		t.Fatalf("removed %d", removed)
	}
	if entries := d.Status(); len(entries) != 1 || entries[0].State != status.StateQueued {
		t.Fatalf("entries %+v", entries)
	}
}
