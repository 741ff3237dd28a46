// Package ffmpeg wraps the external encoder binary. Progress is read from the
// process's combined output stream one line at a time; parsing lives behind
// ParseElapsed so the pattern is testable without process plumbing.
package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"os/exec"
	"strings"

	"lectern/internal/services"
)

var commandContext = exec.CommandContext

// Client defines encoder behaviour. Progress reports the elapsed media time
// encoded so far, in seconds.
type Client interface {
	Convert(ctx context.Context, inputPath, outputPath string, progress func(elapsedSeconds float64)) error
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default encoder binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithTargetCodec overrides the video codec passed to the encoder.
func WithTargetCodec(codec string) Option {
	return func(c *CLI) {
		if codec != "" {
			c.targetCodec = codec
		}
	}
}

// WithPreset overrides the encoder preset.
func WithPreset(preset string) Option {
	return func(c *CLI) {
		if preset != "" {
			c.preset = preset
		}
	}
}

// CLI wraps the ffmpeg command-line encoder.
type CLI struct {
	binary      string
	targetCodec string
	preset      string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "ffmpeg", targetCodec: "libx264", preset: "fast"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Convert transcodes inputPath into outputPath, copying audio streams and
// re-encoding video with the configured codec. The process runs until it exits
// or the context is canceled; there is no imposed timeout.
func (c *CLI) Convert(ctx context.Context, inputPath, outputPath string, progress func(float64)) error {
	if strings.TrimSpace(inputPath) == "" {
		return errors.New("input path required")
	}
	if strings.TrimSpace(outputPath) == "" {
		return errors.New("output path required")
	}

	args := []string{
		"-i", inputPath,
		"-c:v", c.targetCodec,
		"-preset", c.preset,
		"-c:a", "copy",
		"-progress", "pipe:1",
		outputPath,
	}
	cmd := commandContext(ctx, c.binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return services.Wrap(services.ErrEncode, "ffmpeg", "stdout pipe", inputPath, err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrEncode, "ffmpeg", "start", inputPath, err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if elapsed, ok := ParseElapsed(scanner.Text()); ok && progress != nil {
			progress(elapsed)
		}
	}
	if err := scanner.Err(); err != nil {
		_ = cmd.Wait()
		return services.Wrap(services.ErrEncode, "ffmpeg", "read output", inputPath, err)
	}

	if err := cmd.Wait(); err != nil {
		return services.Wrap(services.ErrEncode, "ffmpeg", "convert", inputPath, err)
	}
	return nil
}

var _ Client = (*CLI)(nil)
