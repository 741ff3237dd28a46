package deps

import (
	"testing"

	"lectern/internal/config"
)

func TestRequirementsFollowConfig(t *testing.T) {
	cfg := config.Default()
	reqs := Requirements(&cfg)
	if len(reqs) != 2 {
		t.Fatalf("expected ffmpeg and ffprobe only, got %+v", reqs)
	}

	cfg.Subtitles.Enabled = true
	reqs = Requirements(&cfg)
	if len(reqs) != 3 || reqs[2].Name != "whisper" || !reqs[2].Optional {
		t.Fatalf("expected optional whisper requirement, got %+v", reqs)
	}
}

func TestCheckReportsMissingAndUnconfigured(t *testing.T) {
	results := Check([]Requirement{
		{Name: "shell", Command: "sh", Description: "posix shell"},
		{Name: "ghost", Command: "definitely-not-a-binary-xyz"},
		{Name: "blank", Command: "  "},
	})
	if len(results) != 3 {
		t.Fatalf("results %+v", results)
	}
	if !results[0].Available {
		t.Fatalf("sh should resolve: %+v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("missing binary not reported: %+v", results[1])
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unconfigured command not reported: %+v", results[2])
	}
}
