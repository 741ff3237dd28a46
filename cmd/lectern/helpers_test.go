package main

import (
	"strings"
	"testing"
)

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable(
		[]string{"A", "B"},
		[][]string{{"one"}, {"two", "2"}},
		[]columnAlignment{alignLeft, alignRight},
	)
	if !strings.Contains(out, "one") || !strings.Contains(out, "two") {
		t.Fatalf("table output missing rows:\n%s", out)
	}
}

func TestRenderTableEmptyHeaders(t *testing.T) {
	if out := renderTable(nil, nil, nil); out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
}

func TestShortFingerprint(t *testing.T) {
	if got := shortFingerprint("abc"); got != "abc" {
		t.Fatalf("short input mangled: %q", got)
	}
	long := strings.Repeat("ab", 32)
	if got := shortFingerprint(long); got != long[:12] {
		t.Fatalf("long input not truncated: %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	if got := formatDuration(3725); got != "1h2m5s" {
		t.Fatalf("formatDuration(3725) = %q", got)
	}
	if got := formatDuration(0); got != "0s" {
		t.Fatalf("formatDuration(0) = %q", got)
	}
}

func TestStateLabelWithoutColor(t *testing.T) {
	for _, state := range []string{"queued", "processing", "completed", "failed", "none"} {
		if got := stateLabel(state, false); got != state {
			t.Fatalf("stateLabel(%q) = %q", state, got)
		}
	}
	if got := stateLabel("failed", true); !strings.Contains(got, ansiRed) {
		t.Fatalf("colorized label missing escape: %q", got)
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"status", "candidates", "queue", "ledger", "logs", "prune", "stop", "config"} {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("missing subcommand %q", name)
		}
	}
}
