package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFileRead marks failures reading media content (hashing, stat, rename).
	ErrFileRead = errors.New("file read error")
	// ErrProbe marks inspector failures: non-zero exit or malformed JSON.
	ErrProbe = errors.New("probe error")
	// ErrEncode marks encoder spawn failures or non-zero exits.
	ErrEncode = errors.New("encode error")
	// ErrQueueFull marks a rejected enqueue on a full queue.
	ErrQueueFull = errors.New("queue full")
	// ErrPersistence marks ledger write conflicts or IO failures.
	ErrPersistence = errors.New("persistence error")
	// ErrExternalTool marks failures in optional external collaborators.
	ErrExternalTool = errors.New("external tool error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
