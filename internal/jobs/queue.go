// Package jobs provides the per-playlist job queue: every externally
// triggered playout operation runs as a job, and no two jobs for the same
// playlist ever run concurrently. Jobs for different playlists are
// independent and run in parallel.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harbourlight/conductor/internal/logger"
)

// Common errors
var (
	ErrQueueStopped = errors.New("job queue has been stopped")
	ErrQueueFull    = errors.New("job queue is full for this playlist")
)

const defaultJobBuffer = 64

// Job is one unit of serialized playout work.
type Job func(ctx context.Context) error

type queuedJob struct {
	name string
	ctx  context.Context
	fn   Job
	done chan error
}

// Queue owns one worker goroutine per playlist, created lazily on first use.
// Each worker drains its playlist's jobs strictly in order.
type Queue struct {
	mu      sync.Mutex
	workers map[uuid.UUID]*worker
	timers  map[uuid.UUID]*time.Timer
	buffer  int
	stopped bool
	wg      sync.WaitGroup
}

type worker struct {
	jobs chan queuedJob
}

// NewQueue creates a job queue. buffer caps how many jobs may wait per
// playlist; zero or negative uses a sane default.
func NewQueue(buffer int) *Queue {
	if buffer <= 0 {
		buffer = defaultJobBuffer
	}
	return &Queue{
		workers: make(map[uuid.UUID]*worker),
		timers:  make(map[uuid.UUID]*time.Timer),
		buffer:  buffer,
	}
}

// Execute runs fn under the playlist's exclusive lock and waits for it to
// finish, returning the job's error. The context cancels the wait, not a job
// already running.
func (q *Queue) Execute(ctx context.Context, playlistID uuid.UUID, name string, fn Job) error {
	done, err := q.enqueue(ctx, playlistID, name, fn)
	if err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("job %s cancelled while queued: %w", name, ctx.Err())
	}
}

// Enqueue schedules fn without waiting. The returned channel receives the
// job's error exactly once.
func (q *Queue) Enqueue(ctx context.Context, playlistID uuid.UUID, name string, fn Job) (<-chan error, error) {
	return q.enqueue(ctx, playlistID, name, fn)
}

func (q *Queue) enqueue(ctx context.Context, playlistID uuid.UUID, name string, fn Job) (chan error, error) {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return nil, ErrQueueStopped
	}
	w, ok := q.workers[playlistID]
	if !ok {
		w = &worker{jobs: make(chan queuedJob, q.buffer)}
		q.workers[playlistID] = w
		q.wg.Add(1)
		go q.runWorker(playlistID, w)
	}

	// Send under the lock: Stop closes worker channels under the same lock,
	// so a send can never race a close.
	job := queuedJob{name: name, ctx: ctx, fn: fn, done: make(chan error, 1)}
	select {
	case w.jobs <- job:
		q.mu.Unlock()
		return job.done, nil
	default:
		q.mu.Unlock()
		return nil, ErrQueueFull
	}
}

// ScheduleAt arranges for fn to be enqueued at the given unix millisecond
// time, replacing any previously scheduled job for the playlist. This backs
// timeline self-requested regeneration; the scheduled job goes through the
// normal queue, it does not bypass the lock.
func (q *Queue) ScheduleAt(playlistID uuid.UUID, name string, at int64, fn Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return
	}
	if t, ok := q.timers[playlistID]; ok {
		t.Stop()
	}
	delay := time.Until(time.UnixMilli(at))
	if delay < 0 {
		delay = 0
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		// Drop the map entry unless a later ScheduleAt already replaced it.
		// The lock also orders this callback after the assignment below.
		q.mu.Lock()
		if q.timers[playlistID] == timer {
			delete(q.timers, playlistID)
		}
		q.mu.Unlock()

		if _, err := q.Enqueue(context.Background(), playlistID, name, fn); err != nil {
			logger.Log.Warn().
				Err(err).
				Str("playlist_id", playlistID.String()).
				Str("job", name).
				Msg("failed to enqueue scheduled job")
		}
	})
	q.timers[playlistID] = timer
}

// CancelScheduled drops a pending ScheduleAt timer for the playlist.
func (q *Queue) CancelScheduled(playlistID uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if t, ok := q.timers[playlistID]; ok {
		t.Stop()
		delete(q.timers, playlistID)
	}
}

// Stop rejects new jobs, cancels scheduled timers, lets queued jobs drain and
// waits for the workers to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}
	for _, w := range q.workers {
		close(w.jobs)
	}
	q.mu.Unlock()

	q.wg.Wait()
}

func (q *Queue) runWorker(playlistID uuid.UUID, w *worker) {
	defer q.wg.Done()
	for job := range w.jobs {
		q.runJob(playlistID, job)
	}
}

func (q *Queue) runJob(playlistID uuid.UUID, job queuedJob) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("job %s panicked: %v", job.name, r)
			logger.Log.Error().
				Err(err).
				Str("playlist_id", playlistID.String()).
				Msg("playout job panic")
			job.done <- err
		}
	}()

	if err := job.ctx.Err(); err != nil {
		job.done <- fmt.Errorf("job %s cancelled before start: %w", job.name, err)
		return
	}

	start := time.Now()
	err := job.fn(job.ctx)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Str("playlist_id", playlistID.String()).
			Str("job", job.name).
			Dur("took", time.Since(start)).
			Msg("playout job failed")
	} else {
		logger.Log.Debug().
			Str("playlist_id", playlistID.String()).
			Str("job", job.name).
			Dur("took", time.Since(start)).
			Msg("playout job finished")
	}
	job.done <- err
}
