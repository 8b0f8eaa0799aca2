// Package preflight verifies the runtime environment before the daemon
// accepts work: required binaries, directory permissions, and free space.
package preflight

import (
	"fmt"

	"subforge/internal/config"
	"subforge/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable check for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	for _, status := range CheckSystemDeps(cfg) {
		result := Result{Name: status.Name, Passed: status.Available, Detail: status.Command}
		if !status.Available {
			result.Detail = status.Detail
			if status.Optional {
				result.Passed = true
				result.Detail = status.Detail + " (optional)"
			}
		}
		results = append(results, result)
	}

	directories := []struct {
		name string
		path string
	}{
		{"Work directory", cfg.Paths.WorkDir},
		{"Download directory", cfg.Paths.DownloadDir},
		{"Processing directory", cfg.Paths.ProcessingDir},
		{"Output directory", cfg.Paths.OutputDir},
	}
	for _, dir := range directories {
		if dir.path != "" {
			results = append(results, CheckDirectoryAccess(dir.name, dir.path))
		}
	}

	if cfg.Workflow.MinFreeSpaceGiB > 0 {
		results = append(results, CheckFreeSpace(cfg.Paths.WorkDir, cfg.Workflow.MinFreeSpaceGiB))
	}

	return results
}

// CheckSystemDeps evaluates the external binaries the pipeline shells out to.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries([]deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for subtitle embedding and encoding",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for media inspection",
		},
	})
}

// AllPassed reports whether every result succeeded.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}

// Summarize renders failures as one error, or nil when everything passed.
func Summarize(results []Result) error {
	var failed []string
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", result.Name, result.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("preflight failed: %v", failed)
}
