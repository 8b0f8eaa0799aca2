package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("Work directory", dir)
	if !result.Passed {
		t.Fatalf("accessible directory failed: %s", result.Detail)
	}

	missing := CheckDirectoryAccess("Work directory", filepath.Join(dir, "missing"))
	if missing.Passed {
		t.Fatal("missing directory passed")
	}
	if !strings.Contains(missing.Detail, "does not exist") {
		t.Fatalf("detail = %q", missing.Detail)
	}

	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	notDir := CheckDirectoryAccess("Work directory", file)
	if notDir.Passed {
		t.Fatal("plain file passed directory check")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	result := CheckFreeSpace(dir, 0)
	if !result.Passed {
		t.Fatalf("zero-minimum free space check failed: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "GiB available") {
		t.Fatalf("detail = %q", result.Detail)
	}

	// An absurd minimum must fail on any real machine.
	huge := CheckFreeSpace(dir, 1<<20)
	if huge.Passed {
		t.Fatal("petabyte minimum passed")
	}
}

func TestAllPassedAndSummarize(t *testing.T) {
	ok := []Result{{Name: "A", Passed: true}, {Name: "B", Passed: true}}
	if !AllPassed(ok) {
		t.Fatal("AllPassed false for passing set")
	}
	if err := Summarize(ok); err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	mixed := append(ok, Result{Name: "C", Detail: "broken"})
	if AllPassed(mixed) {
		t.Fatal("AllPassed true for failing set")
	}
	err := Summarize(mixed)
	if err == nil || !strings.Contains(err.Error(), "C: broken") {
		t.Fatalf("Summarize = %v", err)
	}
}
