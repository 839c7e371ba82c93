package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan Job, 1)
	q := NewQueue("test", func(_ context.Context, job Job) error {
		done <- job
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 4})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "noop"}))

	select {
	case job := <-done:
		assert.Equal(t, "job-1", job.ID)
		assert.False(t, job.Enqueued.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts atomic.Int32
	done := make(chan struct{}, 1)
	q := NewQueue("test", func(_ context.Context, _ Job) error {
		if attempts.Add(1) == 1 {
			return errors.New("transient")
		}
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 4, MaxRetries: 2, RetryDelay: 10 * time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "flaky"}))

	select {
	case <-done:
		assert.Equal(t, int32(2), attempts.Load())
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(_ context.Context, _ Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{ID: "job-1"}))
}
