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

func TestQueueDrainsOnStop(t *testing.T) {
	var mu sync.Mutex
	seen := []int{}
	q := NewQueue[int]("test", func(_ context.Context, n int) error {
		mu.Lock()
		seen = append(seen, n)
		mu.Unlock()
		return nil
	}, QueueConfig{Workers: 2, BufferSize: 16})
	q.Start(context.Background())

	for i := 0; i < 10; i++ {
		require.NoError(t, q.Enqueue(i))
	}
	q.Stop()

	assert.Len(t, seen, 10)
	assert.ErrorIs(t, q.Enqueue(11), ErrStopped)
}

func TestQueueRetriesFailures(t *testing.T) {
	var calls int32
	done := make(chan struct{})
	q := NewQueue[string]("retry", func(_ context.Context, _ string) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue("audit"))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	q := NewQueue[string]("give-up", func(_ context.Context, _ string) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("permanent")
	}, QueueConfig{MaxRetries: 1, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue("audit"))
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 2 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	q.Stop()

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestQueueRequiresStart(t *testing.T) {
	q := NewQueue[int]("idle", func(context.Context, int) error { return nil }, QueueConfig{})

	assert.Error(t, q.Enqueue(1))
	q.Stop()
	q.Start(context.Background())
	assert.ErrorIs(t, q.Enqueue(1), ErrStopped)
}
