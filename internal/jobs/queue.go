package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Executor runs the actual cleaning work for one job. Implementations
// must honor ctx cancellation, report progress through the callback,
// and write their outputs (result file, report, validation) onto the
// job before returning.
type Executor interface {
	Execute(ctx context.Context, job *Job, progress func(step string, completed, total int)) error
}

// Queue manages async job execution with a fixed worker pool.
type Queue struct {
	mu          sync.RWMutex
	jobs        chan *Job
	workers     int
	wg          sync.WaitGroup
	store       Store
	executor    Executor
	broadcaster *Broadcaster
	logger      *slog.Logger
	tracer      trace.Tracer
	timeout     time.Duration
	shutdown    chan struct{}
	cancels     map[string]context.CancelFunc // Currently executing jobs
}

// QueueConfig configures a Queue.
type QueueConfig struct {
	Workers   int
	QueueSize int
	// Timeout is the watchdog limit per job; jobs running longer fail.
	Timeout time.Duration
}

// NewQueue creates a new job queue
func NewQueue(cfg QueueConfig, store Store, executor Executor, broadcaster *Broadcaster, logger *slog.Logger, tracer trace.Tracer) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers * 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("jobs")
	}

	return &Queue{
		jobs:        make(chan *Job, cfg.QueueSize),
		workers:     cfg.Workers,
		store:       store,
		executor:    executor,
		broadcaster: broadcaster,
		logger:      logger.With(slog.String("component", "jobqueue")),
		tracer:      tracer,
		timeout:     cfg.Timeout,
		shutdown:    make(chan struct{}),
		cancels:     make(map[string]context.CancelFunc),
	}
}

// Start begins processing jobs
func (q *Queue) Start(ctx context.Context) {
	q.logger.Info("starting job queue",
		slog.Int("workers", q.workers),
		slog.Duration("timeout", q.timeout))

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
}

// Stop gracefully shuts down the job queue
func (q *Queue) Stop(timeout time.Duration) error {
	q.logger.Info("stopping job queue")

	close(q.shutdown)

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("job queue stopped gracefully")
		return nil
	case <-time.After(timeout):
		q.logger.Warn("job queue stop timeout exceeded")
		return fmt.Errorf("timeout waiting for workers to finish")
	}
}

// Submit enqueues a job and returns immediately. The returned job is in
// the pending state; poll GetJob for progress.
func (q *Queue) Submit(job *Job) (*Job, error) {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	job.Status = StatusPending
	job.Progress = 0
	job.CreatedAt = time.Now()

	if err := q.store.Create(job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}
	q.broadcaster.JobStatus(job)

	select {
	case q.jobs <- job.Clone():
		q.logger.Info("job enqueued",
			slog.String("job_id", job.ID),
			slog.String("file_id", job.FileID),
			slog.String("mode", string(job.Mode)))
		return job.Clone(), nil
	default:
		job.Status = StatusFailed
		job.Error = ErrQueueFull.Error()
		now := time.Now()
		job.CompletedAt = &now
		q.store.Update(job)
		return nil, ErrQueueFull
	}
}

// GetJob retrieves a job by ID
func (q *Queue) GetJob(id string) (*Job, error) {
	return q.store.Get(id)
}

// List returns jobs matching the filter
func (q *Queue) List(filter Filter) ([]*Job, error) {
	return q.store.List(filter)
}

// Cancel requests cooperative cancellation. Pending jobs become
// cancelled immediately; processing jobs are interrupted at the next
// step boundary. Terminal jobs return ErrJobTerminal.
//
// The whole decision runs under the queue lock, the same lock workers
// claim pending jobs under, so a cancel can neither overwrite a state a
// worker is writing nor be lost to a worker pickup in flight.
func (q *Queue) Cancel(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, err := q.store.Get(id)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrJobTerminal, id, job.Status)
	}

	if cancel, active := q.cancels[id]; active {
		// Worker owns the transition; it marks the job cancelled when the
		// context error surfaces.
		cancel()
		return nil
	}

	if job.Status != StatusPending {
		// Processing with no cancel handle: the worker already finished
		// executing and is writing its terminal state.
		return fmt.Errorf("%w: %s is finishing", ErrJobTerminal, id)
	}

	// Still pending and unclaimed: mark cancelled now so the worker skips
	// it when the job surfaces from the channel.
	job.Status = StatusCancelled
	job.Message = "Job cancelled before it started"
	now := time.Now()
	job.CompletedAt = &now
	if err := q.store.Update(job); err != nil {
		return err
	}
	q.broadcaster.JobStatus(job)
	return nil
}

// ActiveCount returns the number of jobs currently executing
func (q *Queue) ActiveCount() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.cancels)
}

// Stats returns queue statistics
func (q *Queue) Stats() map[string]interface{} {
	return map[string]interface{}{
		"workers":     q.workers,
		"queue_size":  len(q.jobs),
		"queue_cap":   cap(q.jobs),
		"active_jobs": q.ActiveCount(),
	}
}

// worker processes jobs from the queue
func (q *Queue) worker(ctx context.Context, workerID int) {
	defer q.wg.Done()

	logger := q.logger.With(slog.Int("worker_id", workerID))
	logger.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker stopped by context")
			return
		case <-q.shutdown:
			logger.Debug("worker stopped by shutdown")
			return
		case job := <-q.jobs:
			q.processJob(ctx, job, logger)
		}
	}
}

// processJob executes a single job
func (q *Queue) processJob(ctx context.Context, job *Job, logger *slog.Logger) {
	logger = logger.With(
		slog.String("job_id", job.ID),
		slog.String("file_id", job.FileID),
	)

	// Claim the job under the queue lock: the pending re-check (it may
	// have been cancelled while queued) and the cancel registration must
	// be atomic with respect to Cancel, which updates pending jobs under
	// the same lock.
	q.mu.Lock()
	fresh, err := q.store.Get(job.ID)
	if err != nil {
		q.mu.Unlock()
		logger.Error("failed to load queued job", slog.String("error", err.Error()))
		return
	}
	if fresh.Status != StatusPending {
		q.mu.Unlock()
		logger.Info("skipping job", slog.String("status", string(fresh.Status)))
		return
	}
	job = fresh
	jobCtx, cancel := context.WithTimeout(ctx, q.timeout)
	q.cancels[job.ID] = cancel
	q.mu.Unlock()
	defer cancel()

	defer func() {
		// Recover from any panics to prevent server crash
		if r := recover(); r != nil {
			logger.Error("job processing panicked", slog.Any("panic", r))
			q.finishJob(job, StatusFailed, fmt.Sprintf("job processing panicked: %v", r), logger)
		}

		q.mu.Lock()
		delete(q.cancels, job.ID)
		q.mu.Unlock()
	}()

	logger.Info("processing job started")

	job.Status = StatusProcessing
	now := time.Now()
	job.StartedAt = &now
	job.Message = "Job started"
	if err := q.store.Update(job); err != nil {
		logger.Error("failed to update job status", slog.String("error", err.Error()))
	}
	q.broadcaster.JobStatus(job)

	spanCtx, span := q.tracer.Start(jobCtx, "job.execute",
		trace.WithAttributes(
			attribute.String("job.id", job.ID),
			attribute.String("job.file_id", job.FileID),
			attribute.String("job.mode", string(job.Mode)),
		))
	defer span.End()

	progress := func(step string, completed, total int) {
		job.Step = step
		if total > 0 {
			job.Progress = completed * 100 / total
		}
		job.Message = fmt.Sprintf("Running %s", step)
		if err := q.store.Update(job); err != nil {
			logger.Error("failed to update job progress", slog.String("error", err.Error()))
		}
		q.broadcaster.JobProgress(job)
	}

	if err := q.executor.Execute(spanCtx, job, progress); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		switch {
		case errors.Is(err, context.Canceled):
			q.finishJob(job, StatusCancelled, "Job cancelled", logger)
		case errors.Is(err, context.DeadlineExceeded):
			q.finishJob(job, StatusFailed, fmt.Sprintf("job exceeded the %s timeout", q.timeout), logger)
		default:
			q.finishJob(job, StatusFailed, err.Error(), logger)
		}
		return
	}

	span.SetStatus(codes.Ok, "")
	job.Progress = 100
	job.Step = "done"
	q.finishJob(job, StatusCompleted, "Job completed successfully", logger)
}

// finishJob moves a job to a terminal state and broadcasts it
func (q *Queue) finishJob(job *Job, status Status, message string, logger *slog.Logger) {
	job.Status = status
	now := time.Now()
	job.CompletedAt = &now
	switch status {
	case StatusFailed:
		job.Error = message
		job.Message = "Job failed"
	default:
		job.Message = message
	}

	if err := q.store.Update(job); err != nil {
		logger.Error("failed to update job completion", slog.String("error", err.Error()))
	}

	switch status {
	case StatusCompleted:
		q.broadcaster.JobComplete(job)
	case StatusFailed:
		q.broadcaster.JobError(job)
	default:
		q.broadcaster.JobStatus(job)
	}

	logger.Info("job finished", slog.String("status", string(status)))
}
