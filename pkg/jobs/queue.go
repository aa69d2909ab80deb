// Package jobs runs background work on a small in-memory worker pool.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrStopped is returned by Enqueue once the queue no longer accepts work.
var ErrStopped = errors.New("jobs: queue stopped")

// Handler processes one payload.
type Handler[T any] func(context.Context, T) error

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

type task[T any] struct {
	payload  T
	attempt  int
	enqueued time.Time
}

// Queue dispatches typed payloads to a handler. Failed payloads are retried
// after RetryDelay up to MaxRetries times. Stop drains everything already queued.
type Queue[T any] struct {
	name    string
	handler Handler[T]

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	tasks   chan task[T]
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	retries sync.WaitGroup
	mu      sync.RWMutex
	started bool
	stopped bool
}

// NewQueue builds a queue with the provided handler.
func NewQueue[T any](name string, handler Handler[T], cfg QueueConfig) *Queue[T] {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue[T]{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		tasks:      make(chan task[T], cfg.BufferSize),
	}
}

// Start begins worker consumption. Calls after the first are no-ops.
func (q *Queue[T]) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.stopped {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Info("queue started", zap.String("queue", q.name), zap.Int("workers", q.workers))
}

// Stop refuses new work, waits for queued payloads to be handled and then
// stops the workers. Pending retries are abandoned.
func (q *Queue[T]) Stop() {
	q.mu.Lock()
	if !q.started || q.stopped {
		q.stopped = true
		q.mu.Unlock()
		return
	}
	q.stopped = true
	close(q.tasks)
	q.mu.Unlock()

	q.wg.Wait()
	q.cancel()
	q.retries.Wait()
	q.logger.Info("queue stopped", zap.String("queue", q.name))
}

// Enqueue pushes a payload onto the queue, blocking while the buffer is full.
func (q *Queue[T]) Enqueue(payload T) error {
	return q.push(task[T]{payload: payload, enqueued: time.Now().UTC()})
}

func (q *Queue[T]) push(t task[T]) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.stopped {
		return ErrStopped
	}
	if !q.started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	q.tasks <- t
	return nil
}

func (q *Queue[T]) worker() {
	defer q.wg.Done()
	for t := range q.tasks {
		if err := q.handler(q.ctx, t.payload); err != nil {
			q.handleFailure(t, err)
		}
	}
}

func (q *Queue[T]) handleFailure(t task[T], err error) {
	t.attempt++
	if t.attempt > q.maxRetries {
		q.logger.Error("job exceeded retries", zap.String("queue", q.name), zap.Int("attempts", t.attempt), zap.Error(err))
		return
	}
	q.logger.Warn("job failed, retrying", zap.String("queue", q.name), zap.Int("attempt", t.attempt), zap.Error(err))

	q.retries.Add(1)
	go func() {
		defer q.retries.Done()
		timer := time.NewTimer(q.retryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			return
		case <-timer.C:
			if err := q.push(t); err != nil {
				q.logger.Error("failed to requeue job", zap.String("queue", q.name), zap.Error(err))
			}
		}
	}()
}
