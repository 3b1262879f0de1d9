package drain

import (
	"context"
	"log/slog"
	"time"

	"github.com/smazurov/procdrain/internal/events"
	"github.com/smazurov/procdrain/internal/metrics"
)

// streamTag selects which output stream a drain task owns. The tag is
// resolved into a concrete reader once, at task creation, so the poll loop
// never branches on it.
type streamTag int

const (
	standardOutput streamTag = iota
	standardError
)

func (t streamTag) String() string {
	if t == standardError {
		return "stderr"
	}
	return "stdout"
}

// task drains one stream of one process. It has two externally meaningful
// states: polling (the loop below) and terminated (the loop has returned).
// A task is created per Drain call, submitted to the reader pool, and never
// retained by anything afterwards.
type task struct {
	proc     Process
	stream   streamTag
	reader   *chunkReader
	disp     *dispatcher
	sleeper  Sleeper
	interval time.Duration
	logger   *slog.Logger
	bus      *events.Bus

	pid    string
	chunks uint64
	bytes  uint64
}

func newTask(h *Handler, p Process, stream streamTag, fn ChunkFunc) *task {
	src := p.Stdout()
	if stream == standardError {
		src = p.Stderr()
	}
	t := &task{
		proc:     p,
		stream:   stream,
		reader:   newChunkReader(src, h.cfg.BufferCapacity),
		sleeper:  h.sleeper,
		interval: h.cfg.PollInterval,
		bus:      h.bus,
		pid:      pidLabel(p, h.logger),
	}
	t.logger = h.logger.With("pid", t.pid, "stream", stream.String())
	t.disp = newDispatcher(fn, h.callbacks, t.logger)
	return t
}

// run is the poll loop. Each cycle checks liveness first; a dead process
// ends the task before any read is attempted. While the process is alive
// the task pauses once at the sleep gate, then performs one bounded read.
// Pausing before reading keeps a quiet live process from being hot-spun
// and bounds read latency by the configured interval; output written
// between the last alive poll and the actual death may be lost.
func (t *task) run(ctx context.Context) {
	t.logger.Debug("drain task polling")
	metrics.DrainTaskStarted(t.stream.String())

	reason := "process exited"
	for {
		if ctx.Err() != nil {
			reason = "handler closed"
			break
		}
		if !t.proc.Alive() {
			break
		}

		t.sleeper.Sleep(ctx, t.interval)

		chunk, err := t.reader.next()
		if err != nil {
			// Never propagates: the Drain call already returned, so
			// there is no channel back to the caller but the logs.
			t.logger.Debug("read failed, stopping drain", "error", err)
			metrics.DrainReadFailure(t.stream.String())
			reason = "read failed"
			break
		}
		if chunk != "" {
			t.dispatch(chunk)
		}
	}

	metrics.DrainTaskTerminated(t.stream.String())
	t.publishTerminated(reason)
	t.logger.Debug("drain task terminated",
		"reason", reason, "chunks", t.chunks, "bytes", t.bytes)
}

func (t *task) dispatch(chunk string) {
	t.chunks++
	t.bytes += uint64(len(chunk))
	metrics.DrainChunk(t.stream.String(), len(chunk))
	if t.bus != nil {
		t.bus.Publish(events.DrainChunkEvent{
			Pid:    t.pid,
			Stream: t.stream.String(),
			Bytes:  len(chunk),
		})
	}
	t.disp.enqueue(chunk)
}

func (t *task) publishTerminated(reason string) {
	if t.bus == nil {
		return
	}
	t.bus.Publish(events.DrainTerminatedEvent{
		Pid:       t.pid,
		Stream:    t.stream.String(),
		Reason:    reason,
		Chunks:    t.chunks,
		Bytes:     t.bytes,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}
