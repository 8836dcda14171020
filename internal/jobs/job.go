// Package jobs orchestrates asynchronous cleaning work: a state
// machine per job, pluggable persistence, a worker-pool queue, and a
// status broadcaster.
package jobs

import (
	"errors"
	"time"

	"dataclean/internal/cleaner"
	"dataclean/internal/validator"
)

var (
	// ErrJobNotFound is returned for unknown job IDs.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobTerminal is returned when cancelling a job that already
	// reached a terminal state.
	ErrJobTerminal = errors.New("job already finished")
	// ErrQueueFull is returned when the queue cannot accept more work.
	ErrQueueFull = errors.New("job queue is full")
)

// Status represents the status of a job
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether the status is absorbing: no transition ever
// leaves it.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Valid reports whether the status is one of the five known states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Job represents one asynchronous cleaning run.
type Job struct {
	ID           string            `json:"id"`
	FileID       string            `json:"file_id"`
	Mode         cleaner.Mode      `json:"mode"`
	Options      cleaner.Options   `json:"options"`
	Status       Status            `json:"status"`
	Progress     int               `json:"progress"`
	Step         string            `json:"step,omitempty"`
	Message      string            `json:"message,omitempty"`
	Error        string            `json:"error,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	StartedAt    *time.Time        `json:"started_at,omitempty"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	ResultFileID string            `json:"result_file_id,omitempty"`
	Report       *cleaner.Report   `json:"report,omitempty"`
	Validation   *validator.Result `json:"validation,omitempty"`
}

// Clone returns a copy safe to hand to concurrent readers. Report and
// Validation are written once at completion and treated as immutable,
// so sharing them is fine; timestamps are reallocated.
func (j *Job) Clone() *Job {
	c := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// Filter selects jobs in List queries.
type Filter struct {
	Status Status
	FileID string
	Since  time.Time
	Limit  int
}

// Store is the job persistence interface. Get must return a copy the
// caller can read without synchronizing against the worker.
type Store interface {
	Create(job *Job) error
	Get(id string) (*Job, error)
	Update(job *Job) error
	List(filter Filter) ([]*Job, error)
	Delete(id string) error
}
