package drain

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// workerPool is a fixed set of goroutines consuming submitted jobs from an
// unbounded queue. Submission never blocks: drain scheduling must return
// to the caller immediately no matter how many long-lived tasks already
// occupy the workers. Close is immediate and non-graceful: the pool
// context is cancelled, queued jobs are discarded, and in-flight jobs are
// expected to observe the context themselves.
type workerPool struct {
	name   string
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
	wg     sync.WaitGroup
	logger *slog.Logger

	mu    sync.Mutex
	cond  *sync.Cond
	queue []func(context.Context)
}

func newWorkerPool(name string, workers, queueHint int, logger *slog.Logger) *workerPool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &workerPool{
		name:   name,
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		queue:  make([]func(context.Context), 0, queueHint),
	}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}
	return p
}

func (p *workerPool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed.Load() {
			p.cond.Wait()
		}
		if p.closed.Load() {
			p.mu.Unlock()
			return
		}
		job := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		job(p.ctx)
	}
}

// submit queues a job and returns immediately. It reports false once the
// pool is closed; it never blocks on busy workers or queued backlog.
func (p *workerPool) submit(job func(context.Context)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed.Load() {
		return false
	}
	p.queue = append(p.queue, job)
	p.cond.Signal()
	return true
}

// close shuts the pool down without waiting for queued or in-flight jobs.
func (p *workerPool) close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.cancel()
	p.mu.Lock()
	p.queue = nil
	p.cond.Broadcast()
	p.mu.Unlock()
	p.logger.Debug("worker pool closed", "pool", p.name)
}

func (p *workerPool) isClosed() bool {
	return p.closed.Load()
}
