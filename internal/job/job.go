// Package job provides the Job aggregate and the Service that supervises
// watermark compositing jobs. It includes the Job entity with state machine
// transitions, cooperative cancellation, repository interfaces for
// persistence, and callback dispatch for lifecycle events.
package job

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusQueued indicates the job was accepted but a worker has not started it.
	StatusQueued Status = "QUEUED"
	// StatusRunning indicates the frame loop is in progress.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates the output was finalized successfully.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the job encountered an unrecoverable error.
	StatusFailed Status = "FAILED"
	// StatusCancelled indicates the job was cancelled by the caller.
	StatusCancelled Status = "CANCELLED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed. Terminal
// states have no outgoing transitions, which is what makes the terminal
// callback exactly-once: only the first terminal transition can succeed.
var validTransitions = map[Status][]Status{
	StatusQueued:    {StatusRunning, StatusCancelled, StatusFailed},
	StatusRunning:   {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Job represents one watermark compositing job aggregate. The pipeline worker
// updates progress, the caller flips the cancellation flag, and the Service
// drives status transitions.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// Request is the configuration the job was started with.
	Request ComposeRequest
	// Status is the current job state.
	Status Status
	// OutputPath is the resolved output file.
	OutputPath string
	// Progress is the fractional completion in [0,1].
	Progress float64
	// ETASeconds is the estimated media time remaining, in seconds.
	ETASeconds float64
	// Error contains the failure message if the job failed.
	Error string
	// ErrorKind is the coarse error code if the job failed.
	ErrorKind ErrorKind
	// Result holds the terminal payload for completed jobs.
	Result *Result
	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
	// StartedAt is when processing started.
	StartedAt time.Time
	// CompletedAt is when processing finished.
	CompletedAt time.Time

	cancel atomic.Bool
}

// New creates a new Job with a generated ID and initial QUEUED status.
func New(req ComposeRequest) *Job {
	now := time.Now()
	return &Job{
		ID:        shortuuid.New(),
		Request:   req,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewWithID creates a new Job with the specified ID and initial QUEUED status.
// Useful for testing or when the ID needs to be externally generated.
func NewWithID(jobID string, req ComposeRequest) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Request:   req,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	switch status {
	case StatusRunning:
		j.StartedAt = j.UpdatedAt
	case StatusCompleted, StatusFailed, StatusCancelled:
		j.CompletedAt = j.UpdatedAt
	}

	return nil
}

// Start transitions the job from QUEUED to RUNNING.
func (j *Job) Start() error {
	return j.TransitionTo(StatusRunning)
}

// Complete records the result and transitions the job to COMPLETED.
func (j *Job) Complete(res *Result) error {
	j.mu.Lock()
	j.Result = res
	j.mu.Unlock()
	return j.TransitionTo(StatusCompleted)
}

// Fail records the error and transitions the job to FAILED.
func (j *Job) Fail(kind ErrorKind, message string) error {
	j.mu.Lock()
	j.ErrorKind = kind
	j.Error = message
	j.mu.Unlock()
	return j.TransitionTo(StatusFailed)
}

// Cancel transitions the job to CANCELLED state.
func (j *Job) Cancel() error {
	return j.TransitionTo(StatusCancelled)
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status == StatusCompleted ||
		j.Status == StatusFailed ||
		j.Status == StatusCancelled
}

// RequestCancel flips the cooperative cancellation flag. The worker polls it
// once per frame, so cancellation takes effect at the next frame boundary.
func (j *Job) RequestCancel() {
	j.cancel.Store(true)
}

// CancelRequested reports whether cancellation was requested.
func (j *Job) CancelRequested() bool {
	return j.cancel.Load()
}

// SetOutputPath records the resolved output file.
func (j *Job) SetOutputPath(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.OutputPath = path
	j.UpdatedAt = time.Now()
}

// UpdateProgress records clamped progress and the remaining-time estimate.
func (j *Job) UpdateProgress(fraction, etaSeconds float64) {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	if etaSeconds < 0 {
		etaSeconds = 0
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress = fraction
	j.ETASeconds = etaSeconds
	j.UpdatedAt = time.Now()
}

// Clone creates a copy of the job for safe reads. The cancellation flag's
// current value is carried over but the clone's flag is independent.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	c := &Job{
		ID:          j.ID,
		Request:     j.Request,
		Status:      j.Status,
		OutputPath:  j.OutputPath,
		Progress:    j.Progress,
		ETASeconds:  j.ETASeconds,
		Error:       j.Error,
		ErrorKind:   j.ErrorKind,
		Result:      j.Result,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
	c.cancel.Store(j.cancel.Load())
	return c
}
