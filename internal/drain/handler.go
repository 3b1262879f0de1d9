package drain

import (
	"log/slog"
	"time"

	"github.com/smazurov/procdrain/internal/events"
)

// Result tells the caller whether draining was scheduled. It says nothing
// about the draining's outcome; that is delivered to the callback or, on
// failure, to the logs.
type Result string

const (
	// IgnoreDeadProcess means the process was already dead at call time
	// (or the handler was closed) and nothing was scheduled. The process
	// and the callback are never touched in this case.
	IgnoreDeadProcess Result = "ignore_dead_process"

	// Handling means exactly one drain task was submitted to the reader
	// pool. Chunks will flow to the callback until the process dies.
	Handling Result = "handling"
)

// Handler is the drainer facade. It exclusively owns the reader pool and
// the callback pool; nothing else may shut them down. Construct with New,
// release with Close.
//
// The two pools are the only state shared across the Handler's lifetime.
// Every drain task exclusively owns the one stream it was bound to at
// creation, so no locking beyond the pools' own is needed.
type Handler struct {
	cfg       Config
	readers   *workerPool
	callbacks *workerPool
	sleeper   Sleeper
	logger    *slog.Logger
	bus       *events.Bus
}

// Option adjusts a Handler at construction. Options exist mainly so tests
// can inject a deterministic sleep gate.
type Option func(*Handler)

// WithLogger sets the logger used by the handler and its tasks.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithSleeper replaces the timer-based sleep gate between liveness polls.
func WithSleeper(s Sleeper) Option {
	return func(h *Handler) { h.sleeper = s }
}

// WithEventBus makes the handler publish drain lifecycle events. A nil
// bus (the default) disables publishing.
func WithEventBus(bus *events.Bus) Option {
	return func(h *Handler) { h.bus = bus }
}

// New builds a Handler and its two worker pools from cfg. The returned
// Handler is a scoped resource: callers must Close it when finished.
func New(cfg Config, opts ...Option) (*Handler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	h := &Handler{
		cfg:     cfg.withDefaults(),
		sleeper: timerSleeper{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.readers = newWorkerPool("reader", h.cfg.ReaderWorkers, h.cfg.QueueDepth, h.logger)
	h.callbacks = newWorkerPool("callback", h.cfg.CallbackWorkers, h.cfg.QueueDepth, h.logger)
	return h, nil
}

// DrainStdout schedules background draining of the process's standard
// output into fn. It performs exactly one synchronous liveness check and
// returns without waiting for any output.
func (h *Handler) DrainStdout(p Process, fn ChunkFunc) Result {
	return h.drain(p, standardOutput, fn)
}

// DrainStderr schedules background draining of the process's standard
// error into fn. Same contract as DrainStdout.
func (h *Handler) DrainStderr(p Process, fn ChunkFunc) Result {
	return h.drain(p, standardError, fn)
}

func (h *Handler) drain(p Process, stream streamTag, fn ChunkFunc) Result {
	if !p.Alive() {
		// Hard guarantee: zero further interaction with a dead process.
		return IgnoreDeadProcess
	}

	t := newTask(h, p, stream, fn)
	if !h.readers.submit(t.run) {
		h.logger.Warn("drain refused, handler closed",
			"pid", t.pid, "stream", stream.String())
		return IgnoreDeadProcess
	}

	if h.bus != nil {
		h.bus.Publish(events.DrainStartedEvent{
			Pid:       t.pid,
			Stream:    stream.String(),
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
	return Handling
}

// Close requests immediate shutdown of both pools. It does not wait for
// outstanding tasks or callbacks; callers who need the full output must
// wait for the process to die before closing.
func (h *Handler) Close() {
	h.readers.close()
	h.callbacks.close()
}

// Closed reports whether both pools have shut down.
func (h *Handler) Closed() bool {
	return h.readers.isClosed() && h.callbacks.isClosed()
}
