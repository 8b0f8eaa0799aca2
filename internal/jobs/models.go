// Package jobs defines the job data model and the in-memory registry tracking
// every submission from creation to terminal state.
package jobs

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a job. Transitions are one-directional:
// a job never returns to an earlier state.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCancelling Status = "cancelling"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// rank orders statuses for the monotonic-transition check. Terminal states
// share the highest rank; moving between them is also forbidden.
func (s Status) rank() int {
	switch s {
	case StatusQueued:
		return 0
	case StatusProcessing:
		return 1
	case StatusCancelling:
		return 2
	case StatusCompleted, StatusFailed, StatusCancelled:
		return 3
	default:
		return -1
	}
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// TaskStatus tracks one pipeline step inside a job.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Task names, in pipeline order.
const (
	TaskDownloadVideo    = "Download Video"
	TaskDownloadSubtitle = "Download Subtitle"
	TaskUploadSubtitle   = "Upload Subtitle"
	TaskProcessSubtitles = "Process Subtitles"
	TaskEncodeVideos     = "Encode Videos"
)

// Task is one ordered step of the pipeline.
type Task struct {
	Name   string     `json:"name"`
	Status TaskStatus `json:"status"`
}

// Progress is the most recent progress token reported by the active stage.
type Progress struct {
	Current float64 `json:"current"`
	Total   float64 `json:"total"`
	Percent float64 `json:"percent"`
}

// Request captures the submission parameters a job was created with.
type Request struct {
	VideoURL     string   `json:"video_url"`
	SubtitleURL  string   `json:"subtitle_url,omitempty"`
	SubtitlePath string   `json:"-"`
	Resolutions  []string `json:"resolutions"`
	Soft         bool     `json:"soft"`
}

// Job is a single processing submission tracked by the registry.
type Job struct {
	ID        string            `json:"id"`
	Status    Status            `json:"status"`
	Stage     string            `json:"stage,omitempty"`
	Tasks     []Task            `json:"tasks"`
	Progress  Progress          `json:"progress"`
	Outputs   map[string]string `json:"outputs,omitempty"`
	Error     string            `json:"error,omitempty"`
	Request   Request           `json:"request"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewJob builds a queued job for the given request with the fixed task list.
func NewJob(req Request) *Job {
	now := time.Now().UTC()
	subtitleTask := TaskDownloadSubtitle
	if req.SubtitlePath != "" {
		subtitleTask = TaskUploadSubtitle
	}
	return &Job{
		ID:     uuid.NewString(),
		Status: StatusQueued,
		Tasks: []Task{
			{Name: TaskDownloadVideo, Status: TaskPending},
			{Name: subtitleTask, Status: TaskPending},
			{Name: TaskProcessSubtitles, Status: TaskPending},
			{Name: TaskEncodeVideos, Status: TaskPending},
		},
		Outputs:   make(map[string]string),
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SubtitleTaskName reports whether the second pipeline step is a download or
// an accepted upload.
func (j *Job) SubtitleTaskName() string {
	if j.Request.SubtitlePath != "" {
		return TaskUploadSubtitle
	}
	return TaskDownloadSubtitle
}

// SetTask updates the named task's status in place.
func (j *Job) SetTask(name string, status TaskStatus) {
	for i := range j.Tasks {
		if j.Tasks[i].Name == name {
			j.Tasks[i].Status = status
			return
		}
	}
}

// Clone returns a deep copy safe to hand to concurrent readers.
func (j *Job) Clone() *Job {
	out := *j
	out.Tasks = append([]Task(nil), j.Tasks...)
	out.Outputs = make(map[string]string, len(j.Outputs))
	for k, v := range j.Outputs {
		out.Outputs[k] = v
	}
	out.Request.Resolutions = append([]string(nil), j.Request.Resolutions...)
	return &out
}
