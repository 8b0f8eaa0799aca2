package jobs

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"subforge/internal/services"
)

// Registry is the authoritative job store. Jobs move from the active
// partition to the completed partition when they reach a terminal status and
// are never deleted by the registry itself. The cancellation-request set is
// tracked independently of job status so an orchestrator can observe a
// request at its own polling cadence.
type Registry struct {
	mu        sync.RWMutex
	active    map[string]*Job
	completed map[string]*Job
	cancelled map[string]struct{}
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		active:    make(map[string]*Job),
		completed: make(map[string]*Job),
		cancelled: make(map[string]struct{}),
	}
}

// Create registers a new job. The id must be unused.
func (r *Registry) Create(job *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[job.ID]; ok {
		return fmt.Errorf("job %s already registered", job.ID)
	}
	if _, ok := r.completed[job.ID]; ok {
		return fmt.Errorf("job %s already registered", job.ID)
	}
	r.active[job.ID] = job
	return nil
}

// Update applies mutate to the stored job under the registry lock. The call
// is a no-op when the id is unknown, since a completed or cancelled job may
// already have been archived by the time a late update arrives. Status
// regressions are ignored; a terminal status moves the job to the completed
// partition.
func (r *Registry) Update(id string, mutate func(*Job)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.active[id]
	if !ok {
		return
	}
	before := job.Status
	mutate(job)
	if job.Status != before && job.Status.rank() <= before.rank() {
		job.Status = before
	}
	job.UpdatedAt = time.Now().UTC()
	if job.Status.IsTerminal() {
		delete(r.active, id)
		r.completed[id] = job
	}
}

// Get returns a copy of the job, or ErrNotFound.
func (r *Registry) Get(id string) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if job, ok := r.active[id]; ok {
		return job.Clone(), nil
	}
	if job, ok := r.completed[id]; ok {
		return job.Clone(), nil
	}
	return nil, services.Wrap(services.ErrNotFound, "", "get job", fmt.Sprintf("job %s", id), nil)
}

// List returns copies of every known job, newest first.
func (r *Registry) List() []*Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Job, 0, len(r.active)+len(r.completed))
	for _, job := range r.active {
		out = append(out, job.Clone())
	}
	for _, job := range r.completed {
		out = append(out, job.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// RequestCancel flags the job for cancellation. Returns ErrNotFound for an
// unknown id and a validation error for a job already in a terminal state.
func (r *Registry) RequestCancel(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[id]; ok {
		r.cancelled[id] = struct{}{}
		return nil
	}
	if _, ok := r.completed[id]; ok {
		return services.Wrap(services.ErrValidation, "", "cancel job",
			fmt.Sprintf("job %s already finished", id), nil)
	}
	return services.Wrap(services.ErrNotFound, "", "cancel job", fmt.Sprintf("job %s", id), nil)
}

// IsCancelled reports whether cancellation has been requested for id.
func (r *Registry) IsCancelled(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.cancelled[id]
	return ok
}

// ActiveCount returns the number of jobs not yet in a terminal state.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.active)
}
