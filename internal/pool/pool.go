package pool

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/vyrodovalexey/avadispatch/internal/observability"
	"github.com/vyrodovalexey/avadispatch/internal/util"
)

// DefaultIdleTimeout is how long an idle worker waits for a task before exiting.
const DefaultIdleTimeout = 60 * time.Second

// Task is a unit of work run by a worker.
type Task func()

// Option is a functional option for configuring the pool.
type Option func(*Pool)

// WithIdleTimeout sets the idle worker timeout. Non-positive values are ignored.
func WithIdleTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.idleTimeout = d
		}
	}
}

// WithMaxWorkers bounds the number of concurrent workers. Zero means unbounded.
func WithMaxWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.sem = semaphore.NewWeighted(int64(n))
			p.maxWorkers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(p *Pool) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics *Metrics) Option {
	return func(p *Pool) {
		p.metrics = metrics
	}
}

// Pool is a cached worker pool.
type Pool struct {
	tasks chan Task
	done  chan struct{}
	freed chan struct{}

	sem         *semaphore.Weighted
	maxWorkers  int
	idleTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	workers atomic.Int64
	idle    atomic.Int64

	logger  observability.Logger
	metrics *Metrics
}

// New creates a pool. No workers are started until the first Submit.
func New(opts ...Option) *Pool {
	p := &Pool{
		tasks:       make(chan Task),
		done:        make(chan struct{}),
		freed:       make(chan struct{}, 1),
		idleTimeout: DefaultIdleTimeout,
		logger:      observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit runs task on a pool worker. It returns util.ErrPoolClosed once
// Close has been called. On a bounded pool it blocks until a worker is free.
func (p *Pool) Submit(task Task) error {
	return p.SubmitContext(context.Background(), task)
}

// SubmitContext is Submit with a context bounding the wait for a free
// worker on a bounded pool.
func (p *Pool) SubmitContext(ctx context.Context, task Task) error {
	if task == nil {
		return errors.New("pool: nil task")
	}

	for {
		if p.isClosed() {
			return util.ErrPoolClosed
		}

		select {
		case p.tasks <- task:
			return nil
		default:
		}

		started, err := p.tryStart(task)
		if err != nil || started {
			return err
		}

		select {
		case p.tasks <- task:
			return nil
		case <-p.freed:
		case <-p.done:
			return util.ErrPoolClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// tryStart starts a new worker for task unless the pool is at capacity.
func (p *Pool) tryStart(task Task) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return false, util.ErrPoolClosed
	}
	if p.sem != nil && !p.sem.TryAcquire(1) {
		return false, nil
	}

	p.wg.Add(1)
	p.workers.Add(1)
	p.metrics.workerStarted()
	go p.worker(task)

	return true, nil
}

func (p *Pool) worker(first Task) {
	defer func() {
		p.workers.Add(-1)
		p.metrics.workerStopped()
		if p.sem != nil {
			p.sem.Release(1)
			select {
			case p.freed <- struct{}{}:
			default:
			}
		}
		p.wg.Done()
	}()

	p.run(first)

	timer := time.NewTimer(p.idleTimeout)
	defer timer.Stop()

	for {
		p.idle.Add(1)
		p.metrics.idleDelta(1)

		select {
		case task := <-p.tasks:
			p.idle.Add(-1)
			p.metrics.idleDelta(-1)
			p.run(task)
			timer.Reset(p.idleTimeout)
		case <-timer.C:
			p.idle.Add(-1)
			p.metrics.idleDelta(-1)
			return
		case <-p.done:
			p.idle.Add(-1)
			p.metrics.idleDelta(-1)
			return
		}
	}
}

// run executes a task, recovering any panic so the worker survives.
func (p *Pool) run(task Task) {
	panicked := true
	defer func() {
		if panicked {
			r := recover()
			p.logger.Error("recovered panic in pool task",
				observability.Any("panic", r),
				observability.String("stack", string(debug.Stack())),
			)
		}
		p.metrics.taskDone(panicked)
	}()

	task()
	panicked = false
}

func (p *Pool) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// Workers returns the number of live workers.
func (p *Pool) Workers() int {
	return int(p.workers.Load())
}

// IdleWorkers returns the number of workers waiting for a task.
func (p *Pool) IdleWorkers() int {
	return int(p.idle.Load())
}

// MaxWorkers returns the worker bound, or zero when unbounded.
func (p *Pool) MaxWorkers() int {
	return p.maxWorkers
}

// Close stops accepting tasks, releases idle workers and waits for running
// tasks to finish or ctx to expire.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.done)
	}
	p.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
