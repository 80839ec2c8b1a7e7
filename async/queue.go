package async

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"portfolio/api/metrics"
)

var ErrShutdownTimeout = errors.New("async queue shutdown timed out")

// Task is one unit of background work.
type Task func(ctx context.Context) error

type job struct {
	name string
	fn   Task
}

type Config struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
}

// Queue runs fire-and-forget tasks on a fixed set of workers. Submit never
// blocks: when the buffer is full or the queue is closed the task is dropped
// and logged. Task errors and panics are logged and counted, never returned
// to the submitter.
type Queue struct {
	cfg     Config
	log     *zap.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	jobs   chan job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func NewQueue(cfg Config, log *zap.Logger, m *metrics.Metrics) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		cfg:     cfg,
		log:     log.Named("async"),
		metrics: m,
		jobs:    make(chan job, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	for i := 0; i < cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	return q
}

// Submit schedules fn and reports whether it was accepted.
func (q *Queue) Submit(name string, fn Task) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.drop(name, "closed")
		return false
	}
	select {
	case q.jobs <- job{name: name, fn: fn}:
		return true
	default:
		q.drop(name, "full")
		return false
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish. After
// timeout the workers' context is cancelled and the remaining tasks are lost.
func (q *Queue) Shutdown(timeout time.Duration) error {
	var err error
	q.once.Do(func() {
		q.mu.Lock()
		q.closed = true
		close(q.jobs)
		q.mu.Unlock()

		done := make(chan struct{})
		go func() {
			q.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(timeout):
			err = fmt.Errorf("%w after %v", ErrShutdownTimeout, timeout)
		}
		q.cancel()
	})
	return err
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	for j := range q.jobs {
		if q.ctx.Err() != nil {
			q.drop(j.name, "cancelled")
			continue
		}
		q.run(id, j)
	}
}

func (q *Queue) run(id int, j job) {
	ctx, cancel := context.WithTimeout(q.ctx, q.cfg.TaskTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			q.metrics.AsyncTasksFailed.WithLabelValues(j.name).Inc()
			q.log.Error("background task panicked",
				zap.String("task", j.name),
				zap.Int("worker", id),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()

	if err := j.fn(ctx); err != nil {
		q.metrics.AsyncTasksFailed.WithLabelValues(j.name).Inc()
		q.log.Warn("background task failed",
			zap.String("task", j.name),
			zap.Int("worker", id),
			zap.Error(err),
		)
	}
}

func (q *Queue) drop(name, reason string) {
	q.metrics.AsyncTasksDropped.WithLabelValues(name).Inc()
	q.log.Warn("background task dropped", zap.String("task", name), zap.String("reason", reason))
}
