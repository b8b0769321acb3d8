// Package workerpool provides a bounded worker pool for controlled concurrency.
// Used to decode many interchanges in parallel; each task runs on one worker.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrPoolStopped is returned when submitting to a stopped pool
	ErrPoolStopped = errors.New("pool is shutting down")
	// ErrQueueFull is returned by Submit when the task queue has no room
	ErrQueueFull = errors.New("task queue is full")
)

// Task represents a unit of work to be processed
type Task[T any] struct {
	ID      string
	Payload T
	Context context.Context
}

// Result represents the outcome of task processing
type Result[R any] struct {
	TaskID  string
	Success bool
	Error   error
	Data    R
}

// WorkerFunc is the function signature for task processing
type WorkerFunc[T, R any] func(ctx context.Context, task *Task[T]) *Result[R]

// Config holds worker pool configuration
type Config struct {
	// Workers is the number of concurrent workers
	Workers int
	// QueueSize is the size of the task queue
	QueueSize int
	// MaxRetries is the maximum number of retries for failed tasks
	MaxRetries int
	// RetryDelay is the delay between retries
	RetryDelay time.Duration
	// GracefulShutdownTimeout is the timeout for graceful shutdown
	GracefulShutdownTimeout time.Duration
	// Retryable reports whether a failed task may be retried; nil retries
	// every failure
	Retryable func(error) bool
}

// DefaultConfig returns defaults sized for decode workloads
func DefaultConfig() Config {
	return Config{
		Workers:                 8,
		QueueSize:               1024,
		MaxRetries:              0,
		RetryDelay:              100 * time.Millisecond,
		GracefulShutdownTimeout: 30 * time.Second,
	}
}

// job pairs a task with the channel its result goes to
type job[T, R any] struct {
	task  *Task[T]
	reply chan *Result[R]
}

// Pool manages a pool of workers for concurrent task processing
type Pool[T, R any] struct {
	config     Config
	workerFunc WorkerFunc[T, R]
	logger     *zap.Logger

	jobs       chan job[T, R]
	resultChan chan *Result[R]
	wg         sync.WaitGroup
	stopOnce   sync.Once
	mu         sync.RWMutex
	stopped    bool

	ctx    context.Context
	cancel context.CancelFunc

	// Metrics
	tasksSubmitted int64
	tasksCompleted int64
	tasksFailed    int64
	tasksRetried   int64
	activeWorkers  int64
	queueDepth     int64
}

// New creates a new worker pool
func New[T, R any](cfg Config, fn WorkerFunc[T, R], logger *zap.Logger) (*Pool[T, R], error) {
	if fn == nil {
		return nil, fmt.Errorf("worker function is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.GracefulShutdownTimeout <= 0 {
		cfg.GracefulShutdownTimeout = DefaultConfig().GracefulShutdownTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool[T, R]{
		config:     cfg,
		workerFunc: fn,
		logger:     logger,
		jobs:       make(chan job[T, R], cfg.QueueSize),
		resultChan: make(chan *Result[R], cfg.QueueSize),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Start launches all workers
func (p *Pool[T, R]) Start() {
	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Info("worker pool started",
		zap.Int("workers", p.config.Workers),
		zap.Int("queue_size", p.config.QueueSize))
}

// Submit adds a task to the queue without blocking. Its result is delivered
// on Results.
func (p *Pool[T, R]) Submit(task *Task[T]) error {
	return p.enqueue(nil, job[T, R]{task: task})
}

// SubmitWait adds a task, blocking while the queue is full, and waits for
// its result.
func (p *Pool[T, R]) SubmitWait(ctx context.Context, task *Task[T]) (*Result[R], error) {
	reply := make(chan *Result[R], 1)
	if err := p.enqueue(ctx, job[T, R]{task: task, reply: reply}); err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-reply:
		return result, nil
	}
}

// Map runs fn over every payload and returns the results in payload order.
func (p *Pool[T, R]) Map(ctx context.Context, payloads []T, id func(int, T) string) []*Result[R] {
	results := make([]*Result[R], len(payloads))
	var wg sync.WaitGroup
	for i, payload := range payloads {
		task := &Task[T]{ID: id(i, payload), Payload: payload, Context: ctx}
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := p.SubmitWait(ctx, task)
			if err != nil {
				res = &Result[R]{TaskID: task.ID, Error: err}
			}
			results[i] = res
		}()
	}
	wg.Wait()
	return results
}

// enqueue blocks on a full queue only when ctx is non-nil
func (p *Pool[T, R]) enqueue(ctx context.Context, j job[T, R]) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}

	if ctx == nil {
		select {
		case p.jobs <- j:
		default:
			return ErrQueueFull
		}
	} else {
		select {
		case p.jobs <- j:
		case <-ctx.Done():
			return ctx.Err()
		case <-p.ctx.Done():
			return ErrPoolStopped
		}
	}
	atomic.AddInt64(&p.tasksSubmitted, 1)
	atomic.AddInt64(&p.queueDepth, 1)
	return nil
}

// Results returns the result channel for tasks added with Submit
func (p *Pool[T, R]) Results() <-chan *Result[R] {
	return p.resultChan
}

// Stop gracefully shuts down the pool
func (p *Pool[T, R]) Stop() error {
	p.stopOnce.Do(func() {
		p.logger.Info("stopping worker pool")

		// Signal shutdown and wake blocked submitters before taking the lock
		p.cancel()
		p.mu.Lock()
		p.stopped = true
		close(p.jobs)
		p.mu.Unlock()

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			p.logger.Info("worker pool stopped gracefully")
			close(p.resultChan)
		case <-time.After(p.config.GracefulShutdownTimeout):
			p.logger.Warn("worker pool shutdown timed out")
		}
	})
	return nil
}

// worker is the main worker goroutine
func (p *Pool[T, R]) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("worker started", zap.Int("worker_id", id))
	atomic.AddInt64(&p.activeWorkers, 1)
	defer atomic.AddInt64(&p.activeWorkers, -1)

	for j := range p.jobs {
		atomic.AddInt64(&p.queueDepth, -1)
		p.processTask(id, j)
	}

	p.logger.Debug("worker stopped", zap.Int("worker_id", id))
}

// processTask handles a single task with retries
func (p *Pool[T, R]) processTask(workerID int, j job[T, R]) {
	task := j.task
	ctx := task.Context
	if ctx == nil {
		ctx = context.Background()
	}

	result := p.run(ctx, task)

	if result.Success {
		atomic.AddInt64(&p.tasksCompleted, 1)
	} else {
		atomic.AddInt64(&p.tasksFailed, 1)
		p.logger.Error("task failed",
			zap.String("task_id", task.ID),
			zap.Int("worker_id", workerID),
			zap.Error(result.Error))
	}

	if j.reply != nil {
		j.reply <- result
		return
	}
	// Send result (non-blocking)
	select {
	case p.resultChan <- result:
	default:
		p.logger.Warn("result channel full, dropping result",
			zap.String("task_id", task.ID))
	}
}

func (p *Pool[T, R]) run(ctx context.Context, task *Task[T]) *Result[R] {
	var lastErr error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return &Result[R]{TaskID: task.ID, Error: err}
		}

		result := p.workerFunc(ctx, task)
		if result == nil {
			result = &Result[R]{TaskID: task.ID, Error: fmt.Errorf("worker returned no result")}
		}
		if result.Success {
			return result
		}
		lastErr = result.Error
		if p.config.MaxRetries == 0 {
			return result
		}
		if p.config.Retryable != nil && !p.config.Retryable(lastErr) {
			return result
		}

		// Don't retry on last attempt
		if attempt < p.config.MaxRetries {
			atomic.AddInt64(&p.tasksRetried, 1)
			p.logger.Debug("retrying task",
				zap.String("task_id", task.ID),
				zap.Int("attempt", attempt+1),
				zap.Error(lastErr))

			select {
			case <-ctx.Done():
				return &Result[R]{TaskID: task.ID, Error: ctx.Err()}
			case <-time.After(p.config.RetryDelay * time.Duration(attempt+1)):
			}
		}
	}

	return &Result[R]{
		TaskID: task.ID,
		Error:  fmt.Errorf("task failed after %d retries: %w", p.config.MaxRetries, lastErr),
	}
}

// Stats returns current pool statistics
type Stats struct {
	TasksSubmitted int64
	TasksCompleted int64
	TasksFailed    int64
	TasksRetried   int64
	ActiveWorkers  int64
	QueueDepth     int64
	QueueCapacity  int
	Workers        int
}

// Stats returns current pool statistics
func (p *Pool[T, R]) Stats() Stats {
	return Stats{
		TasksSubmitted: atomic.LoadInt64(&p.tasksSubmitted),
		TasksCompleted: atomic.LoadInt64(&p.tasksCompleted),
		TasksFailed:    atomic.LoadInt64(&p.tasksFailed),
		TasksRetried:   atomic.LoadInt64(&p.tasksRetried),
		ActiveWorkers:  atomic.LoadInt64(&p.activeWorkers),
		QueueDepth:     atomic.LoadInt64(&p.queueDepth),
		QueueCapacity:  p.config.QueueSize,
		Workers:        p.config.Workers,
	}
}

// IsHealthy returns true if the pool is operating normally
func (p *Pool[T, R]) IsHealthy() bool {
	stats := p.Stats()
	// Healthy if queue isn't backing up significantly
	return float64(stats.QueueDepth)/float64(stats.QueueCapacity) < 0.9
}
