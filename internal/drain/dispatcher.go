package drain

import (
	"context"
	"log/slog"
	"sync"
)

// ChunkFunc receives one non-empty decoded chunk of process output. It is
// invoked on the callback pool, never on the goroutine doing the reads.
type ChunkFunc func(chunk string)

// dispatcher delivers chunks to one caller callback in FIFO order while
// running them on a shared multi-worker pool. Each drain task owns one
// dispatcher; enqueue never blocks on the callback, so a slow callback
// cannot stall the read loop. The queue is unbounded, mirroring the
// pools' executor-style submission model.
type dispatcher struct {
	fn     ChunkFunc
	pool   *workerPool
	logger *slog.Logger

	mu      sync.Mutex
	queue   []string
	running bool
}

func newDispatcher(fn ChunkFunc, pool *workerPool, logger *slog.Logger) *dispatcher {
	return &dispatcher{fn: fn, pool: pool, logger: logger}
}

// enqueue appends a chunk and makes sure a single drain job is servicing
// the queue. Only one job runs at a time, which is what preserves per-task
// ordering on a pool with several workers.
func (d *dispatcher) enqueue(chunk string) {
	d.mu.Lock()
	d.queue = append(d.queue, chunk)
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	if !d.pool.submit(d.drain) {
		// Pool closed mid-drain; drop what is queued.
		d.mu.Lock()
		d.queue = nil
		d.running = false
		d.mu.Unlock()
	}
}

func (d *dispatcher) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			d.mu.Lock()
			d.queue = nil
			d.running = false
			d.mu.Unlock()
			return
		}

		d.mu.Lock()
		if len(d.queue) == 0 {
			d.running = false
			d.mu.Unlock()
			return
		}
		chunk := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()

		d.deliver(chunk)
	}
}

// deliver invokes the callback, turning a panic into a log line so one
// faulty invocation does not end the drain task.
func (d *dispatcher) deliver(chunk string) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("chunk callback panicked", "panic", r)
		}
	}()
	d.fn(chunk)
}
