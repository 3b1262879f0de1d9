// Package attach tracks the processes the daemon has attached the drainer
// to. The drain core itself is fire-and-forget; this registry is the
// operator-facing bookkeeping around it, fed by drain lifecycle events.
package attach

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/smazurov/procdrain/internal/events"
	"github.com/smazurov/procdrain/internal/logging"
)

// State of one tracked attachment.
type State string

// Attachment states.
const (
	StateDraining   State = "draining"   // Drain task scheduled and not yet terminated
	StateTerminated State = "terminated" // Drain task left its poll loop
)

// Attachment is one pid/stream pair handed to the drainer.
type Attachment struct {
	ID        string    `json:"id"`
	Pid       string    `json:"pid"`
	Stream    string    `json:"stream"`
	Source    string    `json:"source"`
	State     State     `json:"state"`
	Reason    string    `json:"reason,omitempty"`
	StartedAt time.Time `json:"started_at"`
	Chunks    uint64    `json:"chunks"`
	Bytes     uint64    `json:"bytes"`

	// closer releases the opened source when the attachment terminates.
	closer io.Closer
}

// Registry subscribes to drain events and keeps per-attachment counters.
type Registry struct {
	logger      logging.Logger
	unsubscribe []func()

	mu    sync.RWMutex
	items map[string]*Attachment
}

// NewRegistry creates a registry subscribed to bus.
func NewRegistry(bus *events.Bus, logger logging.Logger) *Registry {
	r := &Registry{
		logger: logger,
		items:  make(map[string]*Attachment),
	}
	r.unsubscribe = append(r.unsubscribe,
		bus.Subscribe(func(e events.DrainChunkEvent) { r.onChunk(e) }),
		bus.Subscribe(func(e events.DrainTerminatedEvent) { r.onTerminated(e) }),
	)
	return r
}

// Track records an attachment before its drain is scheduled. The key is
// pid/stream, matching the correlation fields in drain events. The
// registry takes ownership of closer (nil is fine) and closes it when the
// attachment terminates.
func (r *Registry) Track(pid, stream, source string, closer io.Closer) *Attachment {
	a := &Attachment{
		ID:        key(pid, stream),
		Pid:       pid,
		Stream:    stream,
		Source:    source,
		State:     StateDraining,
		StartedAt: time.Now().UTC(),
		closer:    closer,
	}

	r.mu.Lock()
	r.items[a.ID] = a
	r.mu.Unlock()

	r.logger.Info("attachment tracked", "pid", pid, "stream", stream, "source", source)
	return a
}

// Get returns a copy of one attachment.
func (r *Registry) Get(id string) (Attachment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.items[id]; ok {
		return *a, true
	}
	return Attachment{}, false
}

// List returns copies of all attachments.
func (r *Registry) List() []Attachment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Attachment, 0, len(r.items))
	for _, a := range r.items {
		result = append(result, *a)
	}
	return result
}

// MarkTerminated moves an attachment to the terminated state without a
// bus event. Used when the drainer refused the stream in the first place,
// so no task exists to publish a termination.
func (r *Registry) MarkTerminated(id, reason string) {
	r.mu.Lock()
	a, ok := r.items[id]
	if ok && a.State != StateTerminated {
		a.State = StateTerminated
		a.Reason = reason
		r.releaseLocked(a)
	} else {
		ok = false
	}
	r.mu.Unlock()

	if ok {
		r.logger.Info("attachment terminated", "id", id, "reason", reason)
	}
}

// Close unsubscribes the registry from the event bus.
func (r *Registry) Close() {
	for _, unsub := range r.unsubscribe {
		unsub()
	}
}

func (r *Registry) onChunk(e events.DrainChunkEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.items[key(e.Pid, e.Stream)]; ok {
		a.Chunks++
		a.Bytes += uint64(e.Bytes)
	}
}

func (r *Registry) onTerminated(e events.DrainTerminatedEvent) {
	r.mu.Lock()
	a, ok := r.items[key(e.Pid, e.Stream)]
	if ok {
		a.State = StateTerminated
		a.Reason = e.Reason
		// The event totals are authoritative; chunk events may still be
		// in flight when termination lands.
		a.Chunks = e.Chunks
		a.Bytes = e.Bytes
		r.releaseLocked(a)
	}
	r.mu.Unlock()

	if ok {
		r.logger.Info("attachment terminated",
			"pid", e.Pid, "stream", e.Stream, "reason", e.Reason,
			"chunks", e.Chunks, "bytes", e.Bytes)
	}
}

// releaseLocked closes the attachment's source exactly once. Caller holds
// r.mu.
func (r *Registry) releaseLocked(a *Attachment) {
	if a.closer == nil {
		return
	}
	if err := a.closer.Close(); err != nil {
		r.logger.Warn("closing attachment source", "id", a.ID, "error", err)
	}
	a.closer = nil
}

func key(pid, stream string) string {
	return fmt.Sprintf("%s/%s", pid, stream)
}
