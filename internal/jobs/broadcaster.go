package jobs

import (
	"encoding/json"
	"log/slog"
	"time"
)

// Hub is the push transport the broadcaster writes to. The websocket
// hub implements it; a nil-hub broadcaster drops every event, which
// keeps polling-only deployments working.
type Hub interface {
	Broadcast(message []byte)
}

// Event types pushed over the hub.
const (
	EventJobStatus   = "job:status"
	EventJobProgress = "job:progress"
	EventJobComplete = "job:complete"
	EventJobError    = "job:error"
)

// Event is the wire shape of a job update.
type Event struct {
	Type      string    `json:"type"`
	JobID     string    `json:"job_id"`
	Status    Status    `json:"status"`
	Progress  int       `json:"progress"`
	Step      string    `json:"step,omitempty"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Broadcaster pushes job lifecycle events to the hub. Polling remains
// the API contract; these events only shorten the wait.
type Broadcaster struct {
	hub    Hub
	logger *slog.Logger
}

// NewBroadcaster creates a broadcaster. hub may be nil.
func NewBroadcaster(hub Hub, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		hub:    hub,
		logger: logger.With(slog.String("component", "broadcaster")),
	}
}

// JobStatus announces a state transition
func (b *Broadcaster) JobStatus(job *Job) {
	b.send(EventJobStatus, job)
}

// JobProgress announces step progress
func (b *Broadcaster) JobProgress(job *Job) {
	b.send(EventJobProgress, job)
}

// JobComplete announces successful completion
func (b *Broadcaster) JobComplete(job *Job) {
	b.send(EventJobComplete, job)
}

// JobError announces failure
func (b *Broadcaster) JobError(job *Job) {
	b.send(EventJobError, job)
}

func (b *Broadcaster) send(eventType string, job *Job) {
	if b == nil || b.hub == nil {
		return
	}
	event := Event{
		Type:      eventType,
		JobID:     job.ID,
		Status:    job.Status,
		Progress:  job.Progress,
		Step:      job.Step,
		Message:   job.Message,
		Error:     job.Error,
		Timestamp: time.Now(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("failed to encode job event", slog.String("error", err.Error()))
		return
	}
	b.hub.Broadcast(payload)
}
