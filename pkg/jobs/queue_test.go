package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesAndDrains(t *testing.T) {
	var handled int32
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&handled, 1)
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())

	for i := 0; i < 10; i++ {
		require.NoError(t, q.Enqueue(Job{ID: "j"}))
	}
	require.NoError(t, q.Stop(context.Background()))
	assert.EqualValues(t, 10, atomic.LoadInt32(&handled))
}

func TestQueueRetriesThenSucceeds(t *testing.T) {
	var calls int32
	q := NewQueue("retry", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: time.Millisecond})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "a"}))
	require.NoError(t, q.Stop(context.Background()))
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestQueueDropsAfterRetries(t *testing.T) {
	var mu sync.Mutex
	var dropped []Job
	q := NewQueue("drop", func(ctx context.Context, job Job) error {
		return errors.New("permanent")
	}, QueueConfig{MaxRetries: 1, RetryDelay: time.Millisecond, OnDrop: func(j Job, err error) {
		mu.Lock()
		dropped = append(dropped, j)
		mu.Unlock()
	}})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "x"}))
	require.NoError(t, q.Stop(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, dropped, 1)
	assert.Equal(t, 2, dropped[0].Attempt)
}

func TestQueueStopDropsUnfinishedJobs(t *testing.T) {
	var mu sync.Mutex
	var dropped []string
	started := make(chan struct{}, 1)
	q := NewQueue("slow", func(ctx context.Context, job Job) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return ctx.Err()
	}, QueueConfig{Workers: 1, BufferSize: 4, OnDrop: func(j Job, err error) {
		mu.Lock()
		dropped = append(dropped, j.ID)
		mu.Unlock()
	}})
	q.Start(context.Background())

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job{ID: id}))
	}
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Stop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a", "b", "c"}, dropped)
}

func TestQueueStopDropsPendingRetries(t *testing.T) {
	var drops int32
	q := NewQueue("backoff", func(ctx context.Context, job Job) error {
		return errors.New("transient")
	}, QueueConfig{MaxRetries: 5, RetryDelay: time.Hour, OnDrop: func(j Job, err error) {
		atomic.AddInt32(&drops, 1)
	}})
	q.Start(context.Background())
	require.NoError(t, q.Enqueue(Job{ID: "r"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, q.Stop(ctx))
	assert.EqualValues(t, 1, atomic.LoadInt32(&drops))
}

func TestEnqueueRejectedWhenNotRunning(t *testing.T) {
	q := NewQueue("idle", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	assert.ErrorIs(t, q.Enqueue(Job{}), ErrClosed)

	q.Start(context.Background())
	require.NoError(t, q.Stop(context.Background()))
	assert.ErrorIs(t, q.Enqueue(Job{}), ErrClosed)
}
