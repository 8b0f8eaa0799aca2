// Package api defines the wire types shared by the daemon's HTTP surface and
// the CLI client.
package api

import "subforge/internal/jobs"

// SubmitRequest is the body of POST /api/submit.
type SubmitRequest struct {
	VideoURL    string   `json:"video_url"`
	SubtitleURL string   `json:"subtitle_url"`
	Resolutions []string `json:"resolutions,omitempty"`
	Soft        bool     `json:"soft"`
}

// SubmitResponse acknowledges an accepted submission.
type SubmitResponse struct {
	JobID string `json:"job_id"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job *jobs.Job `json:"job"`
}

// JobListResponse wraps the full job listing, newest first.
type JobListResponse struct {
	Jobs []*jobs.Job `json:"jobs"`
}

// CancelResponse acknowledges a cancellation request.
type CancelResponse struct {
	JobID     string `json:"job_id"`
	Cancelled bool   `json:"cancelled"`
}

// LogTailResponse carries a chunk of daemon log lines and the offset to
// resume from.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// HealthResponse reports daemon liveness.
type HealthResponse struct {
	Status     string `json:"status"`
	ActiveJobs int    `json:"active_jobs"`
}

// ErrorResponse carries a failure message.
type ErrorResponse struct {
	Error string `json:"error"`
}
