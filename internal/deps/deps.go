// Package deps checks that the external tools the pipeline shells out to are
// resolvable before conversions start failing mid-flight.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"lectern/internal/config"
)

// Requirement names one external binary the pipeline invokes.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of one requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements derives the tool list from configuration. The transcriber is
// only required when subtitle generation is enabled.
func Requirements(cfg *config.Config) []Requirement {
	reqs := []Requirement{
		{
			Name:        "ffmpeg",
			Command:     cfg.Encoding.FFmpegBinary,
			Description: "video encoder",
		},
		{
			Name:        "ffprobe",
			Command:     cfg.Encoding.FFprobeBinary,
			Description: "media inspector",
		},
	}
	if cfg.Subtitles.Enabled {
		reqs = append(reqs, Requirement{
			Name:        "whisper",
			Command:     cfg.Subtitles.WhisperBinary,
			Description: "subtitle transcriber",
			Optional:    true,
		})
	}
	return reqs
}

// Check evaluates the requirements against PATH.
func Check(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		command := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     command,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case command == "":
			status.Detail = "command not configured"
		default:
			if _, err := exec.LookPath(command); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", command)
			} else {
				status.Available = true
			}
		}
		results = append(results, status)
	}
	return results
}
