package services

import (
	"errors"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("disk on fire")
	err := Wrap(ErrFileRead, "identity", "fingerprint", "reading chunk", base)
	if !errors.Is(err, ErrFileRead) {
		t.Fatalf("expected ErrFileRead, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	want := "file read error: identity: fingerprint: reading chunk: disk on fire"
	if err.Error() != want {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestWrapDefaultsMarkerAndDetail(t *testing.T) {
	err := Wrap(nil, "", "", "", nil)
	if !errors.Is(err, ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool fallback, got %v", err)
	}
	if err.Error() != "external tool error: service failure" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := Wrap(ErrQueueFull, "queue", "push", "capacity 5 reached", nil)
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}
