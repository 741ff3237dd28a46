package config

import (
	"errors"
	"strings"
)

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		problems = append(problems, "paths.library_dir is required")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir is required")
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		problems = append(problems, "paths.socket_path is required")
	}
	if c.Scanner.IntervalSeconds <= 0 {
		problems = append(problems, "scanner.interval_seconds must be positive")
	}
	if len(c.Scanner.Extensions) == 0 {
		problems = append(problems, "scanner.extensions must list at least one extension")
	}
	if len(c.Scanner.AcceptableCodecs) == 0 {
		problems = append(problems, "scanner.acceptable_codecs must list at least one codec")
	}
	if strings.TrimSpace(c.Encoding.FFmpegBinary) == "" {
		problems = append(problems, "encoding.ffmpeg_binary is required")
	}
	if strings.TrimSpace(c.Encoding.FFprobeBinary) == "" {
		problems = append(problems, "encoding.ffprobe_binary is required")
	}
	if strings.TrimSpace(c.Encoding.TargetCodec) == "" {
		problems = append(problems, "encoding.target_codec is required")
	}
	if c.Queue.Capacity <= 0 {
		problems = append(problems, "queue.capacity must be positive")
	}
	if c.Subtitles.Enabled && strings.TrimSpace(c.Subtitles.WhisperBinary) == "" {
		problems = append(problems, "subtitles.whisper_binary is required when subtitles are enabled")
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
