package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// ArchiveDirName and TempDirName are reserved subtrees under the library root.
// Archived originals land in the former, in-progress encoder output in the latter.
// Neither is ever scanned as content.
const (
	ArchiveDirName = "_archive"
	TempDirName    = "_temp"
)

// Paths contains directory and socket configuration.
type Paths struct {
	LibraryDir string `toml:"library_dir"`
	LogDir     string `toml:"log_dir"`
	SocketPath string `toml:"socket_path"`
}

// Scanner contains configuration for the periodic catalog scan.
type Scanner struct {
	IntervalSeconds  int      `toml:"interval_seconds"`
	Extensions       []string `toml:"extensions"`
	AcceptableCodecs []string `toml:"acceptable_codecs"`
}

// Encoding contains configuration for the external inspector and encoder.
type Encoding struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	TargetCodec   string `toml:"target_codec"`
	Preset        string `toml:"preset"`
}

// Queue contains configuration for the conversion queue.
type Queue struct {
	Capacity int `toml:"capacity"`
}

// Subtitles contains configuration for the optional subtitle enrichment step.
type Subtitles struct {
	Enabled       bool   `toml:"enabled"`
	WhisperBinary string `toml:"whisper_binary"`
	Model         string `toml:"model"`
	Language      string `toml:"language"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for lectern.
//
// Configuration sections by subsystem:
//   - Paths: library root, log directory, daemon socket
//   - Scanner: scan interval, media extensions, playback-compatible codecs
//   - Encoding: ffmpeg/ffprobe binaries and encode parameters
//   - Queue: conversion queue capacity
//   - Subtitles: whisper-based subtitle generation after conversion
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Scanner   Scanner   `toml:"scanner"`
	Encoding  Encoding  `toml:"encoding"`
	Queue     Queue     `toml:"queue"`
	Subtitles Subtitles `toml:"subtitles"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/lectern/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The boolean reports whether the
// resolved file existed; when it does not, defaults are returned.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("lectern.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// ArchiveDir returns the reserved subtree holding displaced originals.
func (c *Config) ArchiveDir() string {
	return filepath.Join(c.Paths.LibraryDir, ArchiveDirName)
}

// TempDir returns the reserved subtree holding in-progress encoder output.
func (c *Config) TempDir() string {
	return filepath.Join(c.Paths.LibraryDir, TempDirName)
}

// ScanInterval returns the catalog scan period.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Scanner.IntervalSeconds) * time.Second
}

// AcceptsCodec reports whether a codec is playback-compatible and needs no conversion.
func (c *Config) AcceptsCodec(codec string) bool {
	for _, accepted := range c.Scanner.AcceptableCodecs {
		if strings.EqualFold(codec, accepted) {
			return true
		}
	}
	return false
}

// ScansExtension reports whether a filename carries a scannable media extension.
func (c *Config) ScansExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, candidate := range c.Scanner.Extensions {
		if ext == strings.ToLower(candidate) {
			return true
		}
	}
	return false
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LibraryDir, c.Paths.LogDir, c.ArchiveDir(), c.TempDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return err
	}

	c.Encoding.FFmpegBinary = strings.TrimSpace(c.Encoding.FFmpegBinary)
	c.Encoding.FFprobeBinary = strings.TrimSpace(c.Encoding.FFprobeBinary)
	c.Encoding.TargetCodec = strings.TrimSpace(c.Encoding.TargetCodec)
	c.Encoding.Preset = strings.TrimSpace(c.Encoding.Preset)

	normalized := make([]string, 0, len(c.Scanner.Extensions))
	for _, ext := range c.Scanner.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	c.Scanner.Extensions = normalized

	codecs := make([]string, 0, len(c.Scanner.AcceptableCodecs))
	for _, codec := range c.Scanner.AcceptableCodecs {
		codec = strings.ToLower(strings.TrimSpace(codec))
		if codec == "" {
			continue
		}
		codecs = append(codecs, codec)
	}
	c.Scanner.AcceptableCodecs = codecs

	return nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
