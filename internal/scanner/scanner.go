// Package scanner walks the course library on a fixed interval, classifies
// media files, and enqueues conversion candidates. Each cycle produces a fresh
// candidate snapshot that replaces the previous one atomically, so readers see
// either the old complete set or the new one, never a partial mix.
package scanner

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"lectern/internal/config"
	"lectern/internal/ledger"
	"lectern/internal/logging"
	"lectern/internal/media/ffprobe"
	"lectern/internal/queue"
	"lectern/internal/status"
)

// CacheState reports whether the current snapshot is fresh or mid-rebuild.
type CacheState string

const (
	CacheScanning CacheState = "scanning"
	CacheReady    CacheState = "ready"
)

// Candidate is a media file classified during one scan cycle. Candidates are
// owned by the cycle that produced them and are never mutated afterwards.
type Candidate struct {
	Course          string
	Section         string
	Filename        string
	Path            string
	Codec           string
	Container       string
	SizeMB          float64
	DurationSeconds float64
	NeedsConversion bool
	Status          status.State
	Processed       bool
}

// Snapshot is the complete result of one scan cycle.
type Snapshot struct {
	Candidates []Candidate
	ScannedAt  time.Time
}

// ProbeFunc classifies a single media file.
type ProbeFunc func(ctx context.Context, path string) (ffprobe.Info, error)

// Option configures optional scanner behavior.
type Option func(*Scanner)

// WithProbe replaces the media prober (used in tests).
func WithProbe(probe ProbeFunc) Option {
	return func(s *Scanner) {
		if probe != nil {
			s.probe = probe
		}
	}
}

// Scanner periodically rebuilds the catalog and feeds the conversion queue.
type Scanner struct {
	cfg    *config.Config
	store  *ledger.Store
	table  *status.Table
	queue  *queue.Queue
	logger *slog.Logger
	probe  ProbeFunc

	snapshot atomic.Pointer[Snapshot]
	scanning atomic.Bool
}

// New constructs a scanner.
func New(cfg *config.Config, store *ledger.Store, table *status.Table, q *queue.Queue, logger *slog.Logger, opts ...Option) *Scanner {
	s := &Scanner{
		cfg:    cfg,
		store:  store,
		table:  table,
		queue:  q,
		logger: logging.NewComponentLogger(logger, "scanner"),
	}
	s.probe = func(ctx context.Context, path string) (ffprobe.Info, error) {
		return ffprobe.Probe(ctx, cfg.Encoding.FFprobeBinary, path)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run scans immediately and then on every interval tick until the context is
// canceled. Cycle failures are logged and the loop continues.
func (s *Scanner) Run(ctx context.Context) {
	for {
		if err := s.ScanOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("scan cycle failed", logging.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.ScanInterval()):
		}
	}
}

// ScanOnce performs a single catalog scan, swapping in the new snapshot at the
// end. Per-file probe errors exclude only that file from the cycle's results.
func (s *Scanner) ScanOnce(ctx context.Context) error {
	s.scanning.Store(true)
	defer s.scanning.Store(false)

	processed, err := s.store.ConvertedPaths(ctx)
	if err != nil {
		return err
	}

	root := s.cfg.Paths.LibraryDir
	var candidates []Candidate
	enqueued := 0

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn("walk error; subtree skipped", logging.String("path", path), logging.Error(err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			name := d.Name()
			if name == config.ArchiveDirName || name == config.TempDirName {
				return fs.SkipDir
			}
			return nil
		}
		if !s.cfg.ScansExtension(d.Name()) {
			return nil
		}

		course, section, ok := splitCourse(root, path)
		if !ok {
			// Files directly under the library root have no course and are
			// not scanned as content.
			return nil
		}

		info, probeErr := s.probe(ctx, path)
		if probeErr != nil {
			s.logger.Warn("probe failed; file excluded this cycle",
				logging.String("path", path),
				logging.Error(probeErr),
			)
			return nil
		}

		entry := s.table.Get(path)
		_, alreadyProcessed := processed[path]
		candidate := Candidate{
			Course:          course,
			Section:         section,
			Filename:        d.Name(),
			Path:            path,
			Codec:           info.Codec,
			Container:       info.Container,
			SizeMB:          info.SizeMB,
			DurationSeconds: info.DurationSeconds,
			NeedsConversion: !s.cfg.AcceptsCodec(info.Codec),
			Status:          entry.State,
			Processed:       alreadyProcessed,
		}
		candidates = append(candidates, candidate)

		if candidate.NeedsConversion && entry.State.AllowsEnqueue() && !alreadyProcessed {
			if pushErr := s.queue.Push(path); pushErr != nil {
				// Full queue: the file is retried on a later cycle.
				s.logger.Debug("queue full; candidate deferred", logging.String("path", path))
			} else {
				s.table.MarkQueued(path)
				enqueued++
			}
		}
		return nil
	})
	if walkErr != nil {
		return walkErr
	}

	snapshot := &Snapshot{Candidates: candidates, ScannedAt: time.Now()}
	s.snapshot.Store(snapshot)

	s.logger.Info("catalog scan complete",
		logging.Int("candidates", len(candidates)),
		logging.Int("enqueued", enqueued),
	)
	return nil
}

// Snapshot returns the most recent complete scan result. Before the first
// cycle finishes it is empty.
func (s *Scanner) Snapshot() Snapshot {
	if snapshot := s.snapshot.Load(); snapshot != nil {
		return *snapshot
	}
	return Snapshot{}
}

// CacheState reports scanning while a cycle is rebuilding the snapshot.
func (s *Scanner) CacheState() CacheState {
	if s.scanning.Load() {
		return CacheScanning
	}
	return CacheReady
}

func splitCourse(root, path string) (course, section string, ok bool) {
	rel, err := filepath.Rel(root, filepath.Dir(path))
	if err != nil || rel == "." {
		return "", "", false
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) == 0 || parts[0] == "" {
		return "", "", false
	}
	return parts[0], strings.Join(parts[1:], "/"), true
}
