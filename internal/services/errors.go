package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks malformed input rejected before any work started.
	ErrValidation = errors.New("validation error")
	// ErrSubtitle marks subtitle normalization failures: encoding detection
	// exhausted, missing style section, or a failed conversion run.
	ErrSubtitle = errors.New("subtitle error")
	// ErrProcess marks a transcode process that exited non-zero.
	ErrProcess = errors.New("process failure")
	// ErrCancelled marks a deliberate early termination. It is not a failure
	// and must never surface as one.
	ErrCancelled = errors.New("cancelled")
	// ErrExternalTool marks failures launching or driving an external binary.
	ErrExternalTool = errors.New("external tool error")
	// ErrNotFound marks lookups for jobs or outputs that do not exist.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later status classification. The marker should
// be one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrProcess
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsCancellation reports whether err represents a deliberate stop rather
// than a failure, either via the sentinel or a cancelled context. A
// deadline expiry is a failure (network timeouts surface as
// context.DeadlineExceeded), not a cancellation.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
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
