package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job lifecycle statuses
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// Job tracks one asynchronous scan run
type Job struct {
	ID         string      `json:"id"`
	Status     string      `json:"status"`
	Done       int         `json:"done"`
	Total      int         `json:"total"`
	Symbol     string      `json:"symbol,omitempty"`
	Error      string      `json:"error,omitempty"`
	Result     interface{} `json:"result,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`

	cancel context.CancelFunc
}

type jobEntry struct {
	job       *Job
	expiresAt time.Time
}

// Tracker manages async job state with TTL eviction of finished jobs
type Tracker struct {
	mu   sync.RWMutex
	jobs map[string]*jobEntry
	ttl  time.Duration
}

// NewTracker creates a tracker; finished jobs expire after ttl
func NewTracker(ttl time.Duration) *Tracker {
	return &Tracker{
		jobs: make(map[string]*jobEntry),
		ttl:  ttl,
	}
}

// Start registers a new running job and returns it with a derived
// context the worker should run under.
func (t *Tracker) Start(parent context.Context, total int) (*Job, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	job := &Job{
		ID:        uuid.New().String(),
		Status:    StatusRunning,
		Total:     total,
		StartedAt: time.Now(),
		cancel:    cancel,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.evictExpiredLocked()
	t.jobs[job.ID] = &jobEntry{job: job}
	return job, ctx
}

// Get returns a snapshot copy of the job, or nil if unknown or expired
func (t *Tracker) Get(id string) *Job {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entry, ok := t.jobs[id]
	if !ok {
		return nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		return nil
	}
	snapshot := *entry.job
	return &snapshot
}

// Progress records per-symbol progress on a running job
func (t *Tracker) Progress(id, symbol string, done int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if entry, ok := t.jobs[id]; ok && entry.job.Status == StatusRunning {
		entry.job.Symbol = symbol
		entry.job.Done = done
	}
}

// Complete marks a job finished and stores its result
func (t *Tracker) Complete(id string, result interface{}) {
	t.finish(id, StatusCompleted, "", result)
}

// Fail marks a job failed
func (t *Tracker) Fail(id string, errMsg string) {
	t.finish(id, StatusFailed, errMsg, nil)
}

// Cancel requests cancellation of a running job. Returns false if the
// job is unknown or already finished.
func (t *Tracker) Cancel(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.jobs[id]
	if !ok || entry.job.Status != StatusRunning {
		return false
	}
	entry.job.cancel()
	return true
}

// MarkCancelled records that a job stopped early at a cancellation
// point, keeping whatever partial result the run produced.
func (t *Tracker) MarkCancelled(id string, result interface{}) {
	t.finish(id, StatusCancelled, "", result)
}

func (t *Tracker) finish(id, status, errMsg string, result interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.jobs[id]
	if !ok || entry.job.Status != StatusRunning {
		return
	}
	now := time.Now()
	entry.job.Status = status
	entry.job.Error = errMsg
	entry.job.Result = result
	entry.job.FinishedAt = &now
	entry.expiresAt = now.Add(t.ttl)
	entry.job.cancel()
}

// evictExpiredLocked drops finished jobs past their TTL. Caller holds the lock.
func (t *Tracker) evictExpiredLocked() {
	now := time.Now()
	for id, entry := range t.jobs {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(t.jobs, id)
		}
	}
}
