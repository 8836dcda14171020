package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataclean/internal/cleaner"
)

// fakeExecutor scripts executor behavior per test.
type fakeExecutor struct {
	run func(ctx context.Context, job *Job, progress func(string, int, int)) error
}

func (f *fakeExecutor) Execute(ctx context.Context, job *Job, progress func(string, int, int)) error {
	if f.run == nil {
		return nil
	}
	return f.run(ctx, job, progress)
}

// captureHub records broadcast payloads.
type captureHub struct {
	mu       sync.Mutex
	messages [][]byte
}

func (h *captureHub) Broadcast(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, append([]byte(nil), message...))
}

func (h *captureHub) eventTypes() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var types []string
	for _, msg := range h.messages {
		var e Event
		if json.Unmarshal(msg, &e) == nil {
			types = append(types, e.Type)
		}
	}
	return types
}

func newTestQueue(t *testing.T, executor Executor, hub Hub, cfg QueueConfig) (*Queue, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	q := NewQueue(cfg, store, executor, NewBroadcaster(hub, nil), nil, nil)
	t.Cleanup(func() { q.Stop(2 * time.Second) })
	return q, store
}

func waitForStatus(t *testing.T, store Store, id string, want Status) *Job {
	t.Helper()
	var job *Job
	require.Eventually(t, func() bool {
		j, err := store.Get(id)
		if err != nil {
			return false
		}
		job = j
		return j.Status == want
	}, 3*time.Second, 5*time.Millisecond, "waiting for job %s to reach %s", id, want)
	return job
}

func TestQueueLifecycle(t *testing.T) {
	t.Run("submit runs to completion", func(t *testing.T) {
		hub := &captureHub{}
		exec := &fakeExecutor{run: func(ctx context.Context, job *Job, progress func(string, int, int)) error {
			progress("remove_duplicates", 0, 2)
			progress("fill_nulls", 1, 2)
			job.ResultFileID = "result-file"
			job.Report = &cleaner.Report{RowsBefore: 4, RowsAfter: 3}
			return nil
		}}
		q, store := newTestQueue(t, exec, hub, QueueConfig{Workers: 1})
		q.Start(context.Background())

		submitted, err := q.Submit(&Job{FileID: "f1", Mode: cleaner.ModeStandard})
		require.NoError(t, err)
		assert.NotEmpty(t, submitted.ID)
		assert.Equal(t, StatusPending, submitted.Status)

		job := waitForStatus(t, store, submitted.ID, StatusCompleted)
		assert.Equal(t, 100, job.Progress)
		assert.Equal(t, "result-file", job.ResultFileID)
		require.NotNil(t, job.Report)
		assert.Equal(t, 3, job.Report.RowsAfter)
		assert.NotNil(t, job.StartedAt)
		assert.NotNil(t, job.CompletedAt)

		types := hub.eventTypes()
		assert.Contains(t, types, EventJobStatus)
		assert.Contains(t, types, EventJobProgress)
		assert.Contains(t, types, EventJobComplete)
	})

	t.Run("executor failure fails the job", func(t *testing.T) {
		exec := &fakeExecutor{run: func(ctx context.Context, job *Job, progress func(string, int, int)) error {
			return errors.New("file is corrupt")
		}}
		q, store := newTestQueue(t, exec, nil, QueueConfig{Workers: 1})
		q.Start(context.Background())

		submitted, err := q.Submit(&Job{FileID: "f1"})
		require.NoError(t, err)

		job := waitForStatus(t, store, submitted.ID, StatusFailed)
		assert.Equal(t, "file is corrupt", job.Error)
	})

	t.Run("panicking executor fails the job", func(t *testing.T) {
		exec := &fakeExecutor{run: func(ctx context.Context, job *Job, progress func(string, int, int)) error {
			panic("boom")
		}}
		q, store := newTestQueue(t, exec, nil, QueueConfig{Workers: 1})
		q.Start(context.Background())

		submitted, err := q.Submit(&Job{FileID: "f1"})
		require.NoError(t, err)

		job := waitForStatus(t, store, submitted.ID, StatusFailed)
		assert.Contains(t, job.Error, "panicked")
	})

	t.Run("watchdog times out stuck jobs", func(t *testing.T) {
		exec := &fakeExecutor{run: func(ctx context.Context, job *Job, progress func(string, int, int)) error {
			<-ctx.Done()
			return ctx.Err()
		}}
		q, store := newTestQueue(t, exec, nil, QueueConfig{Workers: 1, Timeout: 30 * time.Millisecond})
		q.Start(context.Background())

		submitted, err := q.Submit(&Job{FileID: "f1"})
		require.NoError(t, err)

		job := waitForStatus(t, store, submitted.ID, StatusFailed)
		assert.Contains(t, job.Error, "timeout")
	})
}

func TestQueueCancel(t *testing.T) {
	t.Run("cancel before start yields cancelled, not completed", func(t *testing.T) {
		exec := &fakeExecutor{}
		// Queue not started: the job sits in the channel like it would
		// behind a busy worker pool.
		q, store := newTestQueue(t, exec, nil, QueueConfig{Workers: 1})

		submitted, err := q.Submit(&Job{FileID: "f1"})
		require.NoError(t, err)

		require.NoError(t, q.Cancel(submitted.ID))
		job, err := store.Get(submitted.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, job.Status)

		// Workers come up afterwards and must skip the cancelled job.
		q.Start(context.Background())
		time.Sleep(50 * time.Millisecond)
		job, err = store.Get(submitted.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, job.Status)
	})

	t.Run("cancel during processing interrupts cooperatively", func(t *testing.T) {
		started := make(chan struct{})
		exec := &fakeExecutor{run: func(ctx context.Context, job *Job, progress func(string, int, int)) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		}}
		q, store := newTestQueue(t, exec, nil, QueueConfig{Workers: 1})
		q.Start(context.Background())

		submitted, err := q.Submit(&Job{FileID: "f1"})
		require.NoError(t, err)
		<-started

		require.NoError(t, q.Cancel(submitted.ID))
		job := waitForStatus(t, store, submitted.ID, StatusCancelled)
		assert.NotNil(t, job.CompletedAt)
	})

	t.Run("cancel cannot overwrite a finishing job", func(t *testing.T) {
		// Workers never started, so no cancel handle exists. A processing
		// status without a handle means the worker already dropped it and
		// is writing its terminal state; cancel must not interfere.
		q, store := newTestQueue(t, &fakeExecutor{}, nil, QueueConfig{Workers: 1})

		submitted, err := q.Submit(&Job{FileID: "f1"})
		require.NoError(t, err)

		job, err := store.Get(submitted.ID)
		require.NoError(t, err)
		job.Status = StatusProcessing
		require.NoError(t, store.Update(job))

		require.ErrorIs(t, q.Cancel(submitted.ID), ErrJobTerminal)

		job, err = store.Get(submitted.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusProcessing, job.Status)
	})

	t.Run("terminal jobs cannot be cancelled", func(t *testing.T) {
		exec := &fakeExecutor{}
		q, store := newTestQueue(t, exec, nil, QueueConfig{Workers: 1})
		q.Start(context.Background())

		submitted, err := q.Submit(&Job{FileID: "f1"})
		require.NoError(t, err)
		waitForStatus(t, store, submitted.ID, StatusCompleted)

		err = q.Cancel(submitted.ID)
		require.ErrorIs(t, err, ErrJobTerminal)
	})

	t.Run("unknown job", func(t *testing.T) {
		q, _ := newTestQueue(t, &fakeExecutor{}, nil, QueueConfig{Workers: 1})
		_, err := q.GetJob("nope")
		require.ErrorIs(t, err, ErrJobNotFound)
		require.ErrorIs(t, q.Cancel("nope"), ErrJobNotFound)
	})
}

func TestQueueFull(t *testing.T) {
	// One-slot queue, no workers running: the second submit has nowhere
	// to go.
	q, store := newTestQueue(t, &fakeExecutor{}, nil, QueueConfig{Workers: 1, QueueSize: 1})

	first, err := q.Submit(&Job{FileID: "f1"})
	require.NoError(t, err)

	_, err = q.Submit(&Job{FileID: "f2"})
	require.ErrorIs(t, err, ErrQueueFull)

	job, err := store.Get(first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, job.Status)
}

func TestMemoryStore(t *testing.T) {
	t.Run("clone on read", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Create(&Job{ID: "j1", Status: StatusPending, CreatedAt: time.Now()}))

		got, err := store.Get("j1")
		require.NoError(t, err)
		got.Status = StatusFailed

		again, err := store.Get("j1")
		require.NoError(t, err)
		assert.Equal(t, StatusPending, again.Status)
	})

	t.Run("list filters by status newest first", func(t *testing.T) {
		store := NewMemoryStore()
		base := time.Now()
		require.NoError(t, store.Create(&Job{ID: "a", Status: StatusCompleted, CreatedAt: base}))
		require.NoError(t, store.Create(&Job{ID: "b", Status: StatusPending, CreatedAt: base.Add(time.Second)}))
		require.NoError(t, store.Create(&Job{ID: "c", Status: StatusCompleted, CreatedAt: base.Add(2 * time.Second)}))

		completed, err := store.List(Filter{Status: StatusCompleted})
		require.NoError(t, err)
		require.Len(t, completed, 2)
		assert.Equal(t, "c", completed[0].ID)
		assert.Equal(t, "a", completed[1].ID)

		limited, err := store.List(Filter{Limit: 1})
		require.NoError(t, err)
		require.Len(t, limited, 1)
		assert.Equal(t, "c", limited[0].ID)
	})

	t.Run("cleanup removes old terminal jobs only", func(t *testing.T) {
		store := NewMemoryStore()
		old := time.Now().Add(-2 * time.Hour)
		require.NoError(t, store.Create(&Job{ID: "done", Status: StatusCompleted, CreatedAt: old}))
		require.NoError(t, store.Create(&Job{ID: "live", Status: StatusProcessing, CreatedAt: old}))

		deleted, err := store.CleanupOldJobs(time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 1, deleted)

		_, err = store.Get("done")
		require.ErrorIs(t, err, ErrJobNotFound)
		_, err = store.Get("live")
		require.NoError(t, err)
	})
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(t.TempDir() + "/jobs.db")
	require.NoError(t, err)

	job := &Job{
		ID:        "j1",
		FileID:    "f1",
		Mode:      cleaner.ModeAggressive,
		Options:   cleaner.DefaultOptions(),
		Status:    StatusPending,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.Create(job))

	job.Status = StatusCompleted
	job.Progress = 100
	job.Report = &cleaner.Report{RowsBefore: 10, RowsAfter: 8, RowsRemoved: 2}
	require.NoError(t, store.Update(job))

	got, err := store.Get("j1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, cleaner.ModeAggressive, got.Mode)
	assert.True(t, got.Options.FillNulls)
	require.NotNil(t, got.Report)
	assert.Equal(t, 2, got.Report.RowsRemoved)

	_, err = store.Get("missing")
	require.ErrorIs(t, err, ErrJobNotFound)

	listed, err := store.List(Filter{Status: StatusCompleted})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "j1", listed[0].ID)
}
