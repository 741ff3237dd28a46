package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"lectern/internal/services"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`
}

// Info is the condensed classification callers work with.
type Info struct {
	Codec           string
	Container       string
	DurationSeconds float64
	SizeMB          float64
}

// Inspect executes ffprobe against the provided path and decodes the JSON
// response. A non-zero exit or malformed payload yields an error tagged
// services.ErrProbe; callers treat it as "skip this file this cycle".
func Inspect(ctx context.Context, binary, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, services.Wrap(services.ErrProbe, "ffprobe", "inspect", "empty path", nil)
	}

	cmd := exec.CommandContext(ctx, binary, "-i", path, "-show_streams", "-show_format", "-print_format", "json")
	output, err := cmd.Output()
	if err != nil {
		detail := path
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			detail = path + ": " + strings.TrimSpace(string(exitErr.Stderr))
		}
		return Result{}, services.Wrap(services.ErrProbe, "ffprobe", "inspect", detail, err)
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, services.Wrap(services.ErrProbe, "ffprobe", "parse", path, err)
	}
	return result, nil
}

// Probe inspects a file and condenses the result into an Info. Size comes from
// the filesystem rather than the container header so zero-length and truncated
// files still classify.
func Probe(ctx context.Context, binary, path string) (Info, error) {
	result, err := Inspect(ctx, binary, path)
	if err != nil {
		return Info{}, err
	}

	info := Info{
		Codec:           result.VideoCodec(),
		Container:       result.Format.FormatName,
		DurationSeconds: result.DurationSeconds(),
	}
	if stat, statErr := os.Stat(path); statErr == nil {
		info.SizeMB = float64(stat.Size()) / (1024 * 1024)
	}
	return info, nil
}

// VideoCodec returns the codec name of the first video stream, or "" when the
// container has no video stream.
func (r Result) VideoCodec() string {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			return stream.CodecName
		}
	}
	return ""
}

// DurationSeconds returns the container duration in seconds, or 0 when absent
// or unparseable. Zero is a legitimate value for malformed media; callers must
// not divide by it without a guard.
func (r Result) DurationSeconds() float64 {
	cleaned := strings.TrimSpace(r.Format.Duration)
	if cleaned == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}
