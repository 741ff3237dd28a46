// Package worker drains the conversion queue one item at a time. A single
// worker goroutine owns the encode lifecycle: fingerprint, probe, encode into
// the temp subtree, archive the original, swap in the converted file, enrich
// with subtitles, and record the conversion in the ledger.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"lectern/internal/config"
	"lectern/internal/identity"
	"lectern/internal/ledger"
	"lectern/internal/logging"
	"lectern/internal/media/ffprobe"
	"lectern/internal/queue"
	"lectern/internal/services/ffmpeg"
	"lectern/internal/status"
	"lectern/internal/subtitles"
)

// ProbeFunc inspects a media file before encoding.
type ProbeFunc func(ctx context.Context, path string) (ffprobe.Info, error)

// FingerprintFunc computes the content fingerprint of a file.
type FingerprintFunc func(path string) (string, error)

// Option configures optional worker collaborators, mainly for tests.
type Option func(*Worker)

// WithEncoder replaces the encoder client.
func WithEncoder(encoder ffmpeg.Client) Option {
	return func(w *Worker) {
		if encoder != nil {
			w.encoder = encoder
		}
	}
}

// WithProbe replaces the media prober.
func WithProbe(probe ProbeFunc) Option {
	return func(w *Worker) {
		if probe != nil {
			w.probe = probe
		}
	}
}

// WithFingerprint replaces the content fingerprint function.
func WithFingerprint(fingerprint FingerprintFunc) Option {
	return func(w *Worker) {
		if fingerprint != nil {
			w.fingerprint = fingerprint
		}
	}
}

// WithSubtitles replaces the subtitle generator.
func WithSubtitles(gen subtitles.Generator) Option {
	return func(w *Worker) {
		if gen != nil {
			w.subtitles = gen
		}
	}
}

// Worker converts queued media files sequentially.
type Worker struct {
	cfg         *config.Config
	queue       *queue.Queue
	table       *status.Table
	store       *ledger.Store
	logger      *slog.Logger
	encoder     ffmpeg.Client
	probe       ProbeFunc
	fingerprint FingerprintFunc
	subtitles   subtitles.Generator
}

// New constructs a worker wired to the shared queue, status table, and ledger.
func New(cfg *config.Config, q *queue.Queue, table *status.Table, store *ledger.Store, logger *slog.Logger, opts ...Option) *Worker {
	w := &Worker{
		cfg:    cfg,
		queue:  q,
		table:  table,
		store:  store,
		logger: logging.NewComponentLogger(logger, "worker"),
		encoder: ffmpeg.NewCLI(
			ffmpeg.WithBinary(cfg.Encoding.FFmpegBinary),
			ffmpeg.WithTargetCodec(cfg.Encoding.TargetCodec),
			ffmpeg.WithPreset(cfg.Encoding.Preset),
		),
		fingerprint: identity.Fingerprint,
		subtitles:   subtitles.NewFromConfig(cfg),
	}
	w.probe = func(ctx context.Context, path string) (ffprobe.Info, error) {
		return ffprobe.Probe(ctx, cfg.Encoding.FFprobeBinary, path)
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run blocks on the queue and processes items until the context is canceled.
// A failed conversion never stops the loop.
func (w *Worker) Run(ctx context.Context) {
	for {
		path, err := w.queue.Pop(ctx)
		if err != nil {
			return
		}
		w.Process(ctx, path)
	}
}

// Process converts one file in place. On success the original lands in the
// archive directory, the converted output replaces it at the same path, and the
// ledger gains a record. On failure the original is left untouched.
func (w *Worker) Process(ctx context.Context, path string) {
	logger := w.logger.With(logging.String("path", path))
	w.table.MarkProcessing(path, "preparing conversion")

	fingerprint, err := w.fingerprint(path)
	if err != nil {
		logger.Error("fingerprint failed", logging.Error(err))
		w.table.MarkFailed(path, "could not read file: "+err.Error())
		return
	}

	// A duplicate is terminal, not failed: failed entries are eligible for
	// resubmission, and the scanner would re-hash the same bytes every cycle.
	if existing, lookupErr := w.store.ByFingerprint(ctx, fingerprint); lookupErr == nil && existing != nil {
		logger.Info("content already converted; skipping encode",
			logging.String("converted_path", existing.ConvertedPath))
		w.table.MarkCompleted(path, "identical content already converted to "+existing.ConvertedPath)
		return
	}

	// Duration drives percent and ETA. A failed probe degrades progress
	// reporting but never blocks the conversion itself.
	var duration float64
	if info, probeErr := w.probe(ctx, path); probeErr != nil {
		logger.Warn("probe failed; progress will omit percent", logging.Error(probeErr))
	} else {
		duration = info.DurationSeconds
	}

	tempOut := filepath.Join(w.cfg.TempDir(), uuid.NewString()+filepath.Ext(path))
	start := time.Now()
	w.table.MarkProcessing(path, "converting")

	encodeErr := w.encoder.Convert(ctx, path, tempOut, func(elapsed float64) {
		w.reportProgress(path, duration, elapsed, time.Since(start))
	})
	if encodeErr != nil {
		_ = os.Remove(tempOut)
		if ctx.Err() != nil {
			logger.Warn("conversion canceled", logging.Error(ctx.Err()))
			w.table.MarkFailed(path, "conversion canceled")
			return
		}
		logger.Error("conversion failed", logging.Error(encodeErr))
		w.table.MarkFailed(path, "conversion failed: "+encodeErr.Error())
		return
	}

	archivePath, err := w.commit(path, tempOut)
	if err != nil {
		logger.Error("commit failed", logging.Error(err))
		w.table.MarkFailed(path, "commit failed: "+err.Error())
		return
	}

	hasSubtitles := false
	if vtt, subErr := w.subtitles.Generate(ctx, path); subErr != nil {
		// Enrichment only: the conversion stands regardless.
		logger.Warn("subtitle generation failed", logging.Error(subErr))
	} else if vtt != "" {
		hasSubtitles = true
		logger.Info("subtitles generated", logging.String("vtt", vtt))
	}

	record := &ledger.Record{
		Fingerprint:   fingerprint,
		OriginalPath:  archivePath,
		ConvertedPath: path,
		Status:        ledger.StatusArchived,
		HasSubtitles:  hasSubtitles,
	}
	if err := w.store.Insert(ctx, record); err != nil {
		logger.Error("ledger insert failed", logging.Error(err))
		w.table.MarkFailed(path, "converted but not recorded: "+err.Error())
		return
	}

	logger.Info("conversion complete",
		logging.String("archive", archivePath),
		logging.Duration("took", time.Since(start)),
	)
	w.table.MarkCompleted(path, "converted")
}

// commit displaces the original into the archive directory under its bare
// filename and moves the converted output into its place. A failed swap
// restores the original before reporting the error. Archive names are flat:
// same-named files from different courses share one archive slot, and the
// newest conversion wins.
func (w *Worker) commit(path, tempOut string) (string, error) {
	archivePath := filepath.Join(w.cfg.ArchiveDir(), filepath.Base(path))
	if err := os.MkdirAll(w.cfg.ArchiveDir(), 0o755); err != nil {
		return "", fmt.Errorf("create archive directory: %w", err)
	}

	if err := os.Rename(path, archivePath); err != nil {
		_ = os.Remove(tempOut)
		return "", fmt.Errorf("archive original: %w", err)
	}
	if err := os.Rename(tempOut, path); err != nil {
		if restoreErr := os.Rename(archivePath, path); restoreErr != nil {
			return "", errors.Join(
				fmt.Errorf("install converted file: %w", err),
				fmt.Errorf("restore original: %w", restoreErr),
			)
		}
		_ = os.Remove(tempOut)
		return "", fmt.Errorf("install converted file: %w", err)
	}
	return archivePath, nil
}

func (w *Worker) reportProgress(path string, duration, elapsed float64, wall time.Duration) {
	if duration <= 0 {
		w.table.SetProgress(path, fmt.Sprintf("converting (%s encoded)", formatSeconds(elapsed)), 0, "unknown")
		return
	}

	percent := int(elapsed / duration * 100)
	if percent > 100 {
		percent = 100
	}
	eta := "calculating"
	if elapsed > 0 {
		remaining := wall.Seconds() * (duration - elapsed) / elapsed
		if remaining < 0 {
			remaining = 0
		}
		eta = formatSeconds(remaining)
	}
	w.table.SetProgress(path, "converting", percent, eta)
}

func formatSeconds(seconds float64) string {
	total := int(seconds + 0.5)
	if total < 60 {
		return fmt.Sprintf("%ds", total)
	}
	return fmt.Sprintf("%dm%ds", total/60, total%60)
}
