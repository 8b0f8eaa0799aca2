package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"subforge/internal/services"
)

func TestWrapPreservesMarkerAndCause(t *testing.T) {
	cause := errors.New("exit status 1")
	err := services.Wrap(services.ErrProcess, "encode", "run ffmpeg", "720p rendition", cause)
	if !errors.Is(err, services.ErrProcess) {
		t.Fatalf("expected process marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	for _, fragment := range []string{"encode", "run ffmpeg", "720p rendition", "exit status 1"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("error %q missing fragment %q", err.Error(), fragment)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrProcess) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected generic detail, got %q", err.Error())
	}
}

func TestIsCancellation(t *testing.T) {
	err := services.Wrap(services.ErrCancelled, "burn-in", "", "stop requested", nil)
	if !services.IsCancellation(err) {
		t.Fatalf("expected cancellation classification for %v", err)
	}
	if services.IsCancellation(services.Wrap(services.ErrSubtitle, "subtitle", "", "bad encoding", nil)) {
		t.Fatal("subtitle error misclassified as cancellation")
	}
	if !services.IsCancellation(fmt.Errorf("read progress: %w", context.Canceled)) {
		t.Fatal("cancelled context not classified as cancellation")
	}
	if services.IsCancellation(fmt.Errorf("download video: %w", context.DeadlineExceeded)) {
		t.Fatal("timeout misclassified as cancellation")
	}
}
