// Package subtitles is the optional enrichment collaborator invoked after a
// successful conversion. It has no queueing or concurrency rules: one blocking
// call per video, and failures never revert the conversion that triggered it.
package subtitles

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"lectern/internal/config"
	"lectern/internal/services"
)

// Generator produces a sidecar subtitle file for a video, returning its path.
type Generator interface {
	Generate(ctx context.Context, videoPath string) (string, error)
}

// Noop is used when subtitle generation is disabled.
type Noop struct{}

// Generate reports no subtitle file without doing any work.
func (Noop) Generate(context.Context, string) (string, error) {
	return "", nil
}

// WhisperCLI shells out to a whisper-compatible transcriber that writes a
// WebVTT file next to the video.
type WhisperCLI struct {
	binary   string
	model    string
	language string
}

// NewFromConfig returns the configured generator, or Noop when disabled.
func NewFromConfig(cfg *config.Config) Generator {
	if cfg == nil || !cfg.Subtitles.Enabled {
		return Noop{}
	}
	return &WhisperCLI{
		binary:   cfg.Subtitles.WhisperBinary,
		model:    cfg.Subtitles.Model,
		language: cfg.Subtitles.Language,
	}
}

// Generate transcribes the video into <stem>.vtt beside it. An existing
// sidecar file is reused without invoking the transcriber.
func (w *WhisperCLI) Generate(ctx context.Context, videoPath string) (string, error) {
	dir := filepath.Dir(videoPath)
	base := filepath.Base(videoPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	vttPath := filepath.Join(dir, stem+".vtt")

	if _, err := os.Stat(vttPath); err == nil {
		return vttPath, nil
	}

	args := []string{videoPath, "--model", w.model, "--output_format", "vtt", "--output_dir", dir}
	if w.language != "" {
		args = append(args, "--language", w.language)
	}
	cmd := exec.CommandContext(ctx, w.binary, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		detail := videoPath
		if trimmed := strings.TrimSpace(string(output)); trimmed != "" {
			detail = videoPath + ": " + trimmed
		}
		return "", services.Wrap(services.ErrExternalTool, "subtitles", "generate", detail, err)
	}

	if _, err := os.Stat(vttPath); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "subtitles", "generate", "transcriber produced no "+vttPath, err)
	}
	return vttPath, nil
}

var _ Generator = (*WhisperCLI)(nil)
var _ Generator = Noop{}
