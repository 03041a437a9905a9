package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_SamePlaylistJobsRunSerially(t *testing.T) {
	q := NewQueue(16)
	defer q.Stop()
	playlistID := uuid.New()

	var running int32
	var maxConcurrent int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := q.Execute(context.Background(), playlistID, "test", func(context.Context) error {
				n := atomic.AddInt32(&running, 1)
				for {
					old := atomic.LoadInt32(&maxConcurrent)
					if n <= old || atomic.CompareAndSwapInt32(&maxConcurrent, old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxConcurrent))
}

func TestQueue_OrderPreservedPerPlaylist(t *testing.T) {
	q := NewQueue(16)
	defer q.Stop()
	playlistID := uuid.New()

	var mu sync.Mutex
	var order []int
	var chans []<-chan error
	for i := 0; i < 5; i++ {
		i := i
		done, err := q.Enqueue(context.Background(), playlistID, "ordered", func(context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
		require.NoError(t, err)
		chans = append(chans, done)
	}
	for _, done := range chans {
		require.NoError(t, <-done)
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestQueue_DifferentPlaylistsRunInParallel(t *testing.T) {
	q := NewQueue(16)
	defer q.Stop()

	release := make(chan struct{})
	blocked, err := q.Enqueue(context.Background(), uuid.New(), "blocker", func(context.Context) error {
		<-release
		return nil
	})
	require.NoError(t, err)

	// A second playlist's job must not wait behind the blocker.
	err = q.Execute(context.Background(), uuid.New(), "independent", func(context.Context) error {
		return nil
	})
	assert.NoError(t, err)

	close(release)
	require.NoError(t, <-blocked)
}

func TestQueue_ExecuteReturnsJobError(t *testing.T) {
	q := NewQueue(16)
	defer q.Stop()

	sentinel := errors.New("selection failed")
	err := q.Execute(context.Background(), uuid.New(), "failing", func(context.Context) error {
		return sentinel
	})

	assert.ErrorIs(t, err, sentinel)
}

func TestQueue_PanicIsContained(t *testing.T) {
	q := NewQueue(16)
	defer q.Stop()
	playlistID := uuid.New()

	err := q.Execute(context.Background(), playlistID, "panicking", func(context.Context) error {
		panic("boom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")

	// The worker survives.
	assert.NoError(t, q.Execute(context.Background(), playlistID, "after", func(context.Context) error {
		return nil
	}))
}

func TestQueue_StoppedRejectsJobs(t *testing.T) {
	q := NewQueue(16)
	q.Stop()

	err := q.Execute(context.Background(), uuid.New(), "late", func(context.Context) error {
		return nil
	})

	assert.ErrorIs(t, err, ErrQueueStopped)
}

func TestQueue_ScheduleAtEnqueuesJob(t *testing.T) {
	q := NewQueue(16)
	defer q.Stop()

	fired := make(chan struct{})
	q.ScheduleAt(uuid.New(), "regenerate", time.Now().UnixMilli()+10, func(context.Context) error {
		close(fired)
		return nil
	})

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled job never ran")
	}
}

func TestQueue_ScheduleAtReplacesPrevious(t *testing.T) {
	q := NewQueue(16)
	defer q.Stop()
	playlistID := uuid.New()

	var firstRan atomic.Bool
	q.ScheduleAt(playlistID, "regenerate", time.Now().UnixMilli()+50, func(context.Context) error {
		firstRan.Store(true)
		return nil
	})

	fired := make(chan struct{})
	q.ScheduleAt(playlistID, "regenerate", time.Now().UnixMilli()+10, func(context.Context) error {
		close(fired)
		return nil
	})

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("replacement job never ran")
	}
	time.Sleep(100 * time.Millisecond)
	assert.False(t, firstRan.Load(), "replaced job must not run")
}

func TestQueue_ScheduleAtReleasesFiredTimer(t *testing.T) {
	q := NewQueue(16)
	defer q.Stop()
	playlistID := uuid.New()

	fired := make(chan struct{})
	q.ScheduleAt(playlistID, "regenerate", time.Now().UnixMilli(), func(context.Context) error {
		close(fired)
		return nil
	})

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled job never ran")
	}

	require.Eventually(t, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		return len(q.timers) == 0
	}, 2*time.Second, 10*time.Millisecond, "fired timer must leave the map")
}
