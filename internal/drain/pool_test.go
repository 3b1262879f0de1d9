package drain

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPoolRunsJobs(t *testing.T) {
	pool := newWorkerPool("reader", 2, 4, testLogger())
	defer pool.close()

	var ran atomic.Int64
	for range 8 {
		if !pool.submit(func(context.Context) { ran.Add(1) }) {
			t.Fatal("submit returned false on an open pool")
		}
	}

	waitFor(t, time.Second, func() bool { return ran.Load() == 8 })
}

func TestWorkerPoolCloseIsImmediate(t *testing.T) {
	pool := newWorkerPool("reader", 1, 1, testLogger())

	blocked := make(chan struct{})
	release := make(chan struct{})
	pool.submit(func(ctx context.Context) {
		close(blocked)
		select {
		case <-release:
		case <-ctx.Done():
		}
	})
	<-blocked

	done := make(chan struct{})
	go func() {
		pool.close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("close blocked on an in-flight job")
	}

	if !pool.isClosed() {
		t.Error("isClosed() = false after close")
	}
	if pool.submit(func(context.Context) {}) {
		t.Error("submit succeeded on a closed pool")
	}
	close(release)
}

func TestWorkerPoolSubmitNeverBlocksWhenSaturated(t *testing.T) {
	pool := newWorkerPool("reader", 1, 1, testLogger())
	defer pool.close()

	// Occupy the only worker with a job that holds until shutdown.
	started := make(chan struct{})
	pool.submit(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	})
	<-started

	// Every further submission must return immediately even though no
	// worker is free and the initial queue capacity is exhausted.
	done := make(chan struct{})
	go func() {
		for range 8 {
			if !pool.submit(func(ctx context.Context) { <-ctx.Done() }) {
				t.Error("submit returned false on an open pool")
			}
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("submit blocked on a saturated pool")
	}
}

func TestWorkerPoolJobsSeeCancellation(t *testing.T) {
	pool := newWorkerPool("reader", 1, 1, testLogger())

	cancelled := make(chan struct{})
	pool.submit(func(ctx context.Context) {
		<-ctx.Done()
		close(cancelled)
	})

	pool.close()

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("in-flight job never observed pool shutdown")
	}
}
