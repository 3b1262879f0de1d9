package events

import (
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestPublishReachesTypedSubscriber(t *testing.T) {
	bus := New()

	var got atomic.Int64
	unsub := bus.Subscribe(func(e DrainChunkEvent) {
		got.Store(int64(e.Bytes))
	})
	defer unsub()

	bus.Publish(DrainChunkEvent{Pid: "1", Stream: "stdout", Bytes: 42})
	waitFor(t, time.Second, func() bool { return got.Load() == 42 })
}

func TestSubscriberOnlySeesItsType(t *testing.T) {
	bus := New()

	var chunks, terms atomic.Int64
	defer bus.Subscribe(func(DrainChunkEvent) { chunks.Add(1) })()
	defer bus.Subscribe(func(DrainTerminatedEvent) { terms.Add(1) })()

	bus.Publish(DrainTerminatedEvent{Pid: "1", Stream: "stdout", Reason: "process exited"})

	waitFor(t, time.Second, func() bool { return terms.Load() == 1 })
	if chunks.Load() != 0 {
		t.Errorf("chunk subscriber saw %d events, want 0", chunks.Load())
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := New()

	var got atomic.Int64
	unsub := bus.Subscribe(func(DrainStartedEvent) { got.Add(1) })

	bus.Publish(DrainStartedEvent{Pid: "1", Stream: "stdout"})
	waitFor(t, time.Second, func() bool { return got.Load() == 1 })

	unsub()
	bus.Publish(DrainStartedEvent{Pid: "1", Stream: "stdout"})
	time.Sleep(20 * time.Millisecond)
	if got.Load() != 1 {
		t.Errorf("events after unsubscribe: got %d deliveries, want 1", got.Load())
	}
}

func TestSubscribeUnknownHandlerIsNoop(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(int) {})
	unsub()
}
