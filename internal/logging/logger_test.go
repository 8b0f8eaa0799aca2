package logging_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"subforge/internal/logging"
	"subforge/internal/services"
)

func TestNewWritesConsoleFormat(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "subforge.log")
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("job accepted", logging.String(logging.FieldComponent, "api"), logging.String("job_id", "abc"))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "INFO api: job accepted") {
		t.Fatalf("unexpected console line: %q", line)
	}
	if !strings.Contains(line, "job_id=abc") {
		t.Fatalf("missing attribute in line: %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsJobFields(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "subforge.log")
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := services.WithJobID(context.Background(), "job-1")
	ctx = services.WithStage(ctx, "Encode Videos")
	logging.WithContext(ctx, logger).Info("stage started")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "job_id=job-1") {
		t.Fatalf("missing job id: %q", line)
	}
	if !strings.Contains(line, `stage="Encode Videos"`) {
		t.Fatalf("missing quoted stage: %q", line)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("should not panic", logging.Error(nil))
}
