// Package pool runs tasks on a fixed number of worker goroutines fed from a
// single FIFO queue.
package pool

import (
	"context"
	"runtime"
	"sync"

	"github.com/pkg/errors"

	"github.com/zeidlermicha/deepForest/metrics"
)

var ErrPoolShutdown = errors.New("pool: shut down before the task was dispatched")

// Future is resolved once its task has run, or when the pool drops the task
// on shutdown.
type Future struct {
	done chan struct{}
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(err error) {
	f.err = err
	close(f.done)
}

// Done is closed when the future is resolved.
func (f *Future) Done() <-chan struct{} { return f.done }

// Err returns the task error. It must only be called after Done is closed.
func (f *Future) Err() error { return f.err }

// Wait blocks until the task finished or ctx is done. A canceled wait does
// not cancel the task.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TypedFuture carries the value produced by a Submit task.
type TypedFuture[T any] struct {
	*Future
	value T
}

func (f *TypedFuture[T]) Get(ctx context.Context) (T, error) {
	if err := f.Wait(ctx); err != nil {
		var zero T
		return zero, err
	}
	return f.value, nil
}

type task struct {
	run    func() error
	future *Future
}

type Pool struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    []*task
	shutdown bool
	size     int
	wg       sync.WaitGroup
}

// New starts size workers. A non-positive size uses one worker per CPU.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &Pool{size: size}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) Size() int { return p.size }

// Pending is the number of queued tasks not yet picked up by a worker.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Add enqueues work and wakes one idle worker. Work is never retried; an
// error or a panic is reported through the returned future.
func (p *Pool) Add(work func() error) *Future {
	t := &task{run: work, future: newFuture()}

	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		t.future.resolve(ErrPoolShutdown)
		return t.future
	}
	p.queue = append(p.queue, t)
	metrics.PoolQueueDepth.Set(float64(len(p.queue)))
	p.mu.Unlock()

	p.cond.Signal()
	return t.future
}

// Submit enqueues work that produces a value.
func Submit[T any](p *Pool, work func() (T, error)) *TypedFuture[T] {
	tf := &TypedFuture[T]{}
	tf.Future = p.Add(func() (err error) {
		tf.value, err = work()
		return err
	})
	return tf
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for !p.shutdown && len(p.queue) == 0 {
			p.cond.Wait()
		}
		if p.shutdown {
			p.mu.Unlock()
			return
		}
		t := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		metrics.PoolQueueDepth.Set(float64(len(p.queue)))
		p.mu.Unlock()

		t.future.resolve(run(t.run))
	}
}

func run(work func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("pool: task panicked: %v", r)
		}
		if err != nil {
			metrics.PoolTasksTotal.WithLabelValues("failed").Inc()
		} else {
			metrics.PoolTasksTotal.WithLabelValues("ok").Inc()
		}
	}()
	return work()
}

// Shutdown stops the workers after their current task and waits for them.
// Tasks still queued are not run; their futures resolve with
// ErrPoolShutdown.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return
	}
	p.shutdown = true
	p.mu.Unlock()

	p.cond.Broadcast()
	p.wg.Wait()

	p.mu.Lock()
	dropped := p.queue
	p.queue = nil
	metrics.PoolQueueDepth.Set(0)
	p.mu.Unlock()

	for _, t := range dropped {
		t.future.resolve(ErrPoolShutdown)
	}
}
