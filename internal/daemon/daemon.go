// Package daemon composes the scanner, worker, queue, status table, and
// ledger into one supervised process. A file lock under the log directory
// keeps a second daemon from racing the same library.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"lectern/internal/config"
	"lectern/internal/deps"
	"lectern/internal/ledger"
	"lectern/internal/logging"
	"lectern/internal/queue"
	"lectern/internal/scanner"
	"lectern/internal/status"
	"lectern/internal/worker"
)

// ErrAlreadyRunning reports a second daemon contending for the same library.
var ErrAlreadyRunning = errors.New("daemon already running for this library")

// Option configures daemon construction.
type Option func(*options)

type options struct {
	scannerOpts []scanner.Option
	workerOpts  []worker.Option
}

// WithScannerOptions forwards options to the scanner (used in tests).
func WithScannerOptions(opts ...scanner.Option) Option {
	return func(o *options) { o.scannerOpts = append(o.scannerOpts, opts...) }
}

// WithWorkerOptions forwards options to the worker (used in tests).
func WithWorkerOptions(opts ...worker.Option) Option {
	return func(o *options) { o.workerOpts = append(o.workerOpts, opts...) }
}

// Daemon supervises the conversion pipeline.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *ledger.Store
	table   *status.Table
	queue   *queue.Queue
	scanner *scanner.Scanner
	worker  *worker.Worker
	lock    *flock.Flock

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New builds a daemon and its collaborators. The ledger database is opened
// immediately; background loops start on Start.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("prepare directories: %w", err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	store, err := ledger.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	table := status.NewTable()
	q := queue.New(cfg.Queue.Capacity)

	return &Daemon{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "daemon"),
		store:   store,
		table:   table,
		queue:   q,
		scanner: scanner.New(cfg, store, table, q, logger, o.scannerOpts...),
		worker:  worker.New(cfg, q, table, store, logger, o.workerOpts...),
		lock:    flock.New(filepath.Join(cfg.Paths.LogDir, "lectern.lock")),
	}, nil
}

// Start acquires the instance lock and launches the scan and conversion loops.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return errors.New("daemon already started")
	}

	locked, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running = true

	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		d.scanner.Run(runCtx)
	}()
	go func() {
		defer d.wg.Done()
		d.worker.Run(runCtx)
	}()

	d.logger.Info("daemon started",
		logging.String("library", d.cfg.Paths.LibraryDir),
		logging.Int("queue_capacity", d.cfg.Queue.Capacity),
	)
	return nil
}

// Stop cancels the background loops, waits for them, and releases the lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()

	cancel()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release instance lock", logging.Error(err))
	}
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and closes the ledger.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Running reports whether the background loops are active.
func (d *Daemon) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// LibraryDir returns the scanned library root.
func (d *Daemon) LibraryDir() string {
	return d.cfg.Paths.LibraryDir
}

// LogPath returns the daemon's log file location.
func (d *Daemon) LogPath() string {
	return filepath.Join(d.cfg.Paths.LogDir, "lectern.log")
}

// Dependencies reports availability of the external tools the pipeline uses.
func (d *Daemon) Dependencies() []deps.Status {
	return deps.Check(deps.Requirements(d.cfg))
}

// Status returns all status entries ordered by path.
func (d *Daemon) Status() []status.Entry {
	return d.table.Snapshot()
}

// InFlight returns queued and processing entries.
func (d *Daemon) InFlight() []status.Entry {
	return d.table.InFlight()
}

// StatusFor returns the status entry for one path.
func (d *Daemon) StatusFor(path string) status.Entry {
	return d.table.Get(path)
}

// Candidates returns the most recent scan snapshot and the cache state.
func (d *Daemon) Candidates() (scanner.Snapshot, scanner.CacheState) {
	return d.scanner.Snapshot(), d.scanner.CacheState()
}

// QueueItems returns queued paths in FIFO order.
func (d *Daemon) QueueItems() []string {
	return d.queue.Items()
}

// QueueCapacity returns the queue's current capacity.
func (d *Daemon) QueueCapacity() int {
	return d.queue.Capacity()
}

// Enqueue submits one file for conversion ahead of the next scan cycle. The
// path must be a readable media file inside the library, and its current
// status must allow resubmission.
func (d *Daemon) Enqueue(path string) error {
	resolved, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	rel, err := filepath.Rel(d.cfg.Paths.LibraryDir, resolved)
	if err != nil || rel == "." || filepath.IsAbs(rel) || rel[0] == '.' {
		return fmt.Errorf("path %q is outside the library", path)
	}
	if !d.cfg.ScansExtension(filepath.Base(resolved)) {
		return fmt.Errorf("path %q is not a scannable media file", path)
	}
	if info, statErr := os.Stat(resolved); statErr != nil {
		return fmt.Errorf("stat %q: %w", path, statErr)
	} else if info.IsDir() {
		return fmt.Errorf("path %q is a directory", path)
	}
	if state := d.table.Get(resolved).State; !state.AllowsEnqueue() {
		return fmt.Errorf("path %q is already %s", path, state)
	}

	if err := d.queue.Push(resolved); err != nil {
		return err
	}
	d.table.MarkQueued(resolved)
	d.logger.Info("manual enqueue", logging.String("path", resolved))
	return nil
}

// ResizeQueue changes the queue capacity. Items that no longer fit are marked
// failed so the drop is visible; they become eligible again on a later scan.
func (d *Daemon) ResizeQueue(capacity int) []string {
	rejected := d.queue.Resize(capacity)
	for _, path := range rejected {
		d.table.MarkFailed(path, "dropped on queue shrink")
		d.logger.Warn("queued item dropped on shrink", logging.String("path", path))
	}
	d.logger.Info("queue resized",
		logging.Int("capacity", capacity),
		logging.Int("dropped", len(rejected)),
	)
	return rejected
}

// LedgerList returns all conversion records.
func (d *Daemon) LedgerList(ctx context.Context) ([]*ledger.Record, error) {
	return d.store.List(ctx)
}

// LedgerDelete removes a conversion record and deletes its archived original
// from disk. A missing archive file is not an error; anything else fails
// after the record is already gone, so it is reported but not rolled back.
func (d *Daemon) LedgerDelete(ctx context.Context, id int64) (*ledger.Record, error) {
	rec, err := d.store.Remove(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	if err := os.Remove(rec.OriginalPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		d.logger.Warn("delete archived original",
			logging.String("path", rec.OriginalPath),
			logging.Error(err),
		)
	}
	return rec, nil
}

// PruneStatus drops completed and failed status entries.
func (d *Daemon) PruneStatus() int {
	removed := d.table.PruneFinished()
	d.logger.Info("status table pruned", logging.Int("removed", removed))
	return removed
}
