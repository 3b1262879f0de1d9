package events

// Event type constants for kelindar/event.
const (
	TypeDrainStarted uint32 = iota + 1
	TypeDrainChunk
	TypeDrainTerminated
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// DrainStartedEvent is published when a drain task has been scheduled for
// a process stream.
type DrainStartedEvent struct {
	Pid       string `json:"pid" example:"4242" doc:"Process identifier, or 'unknown' on platforms without pid access"`
	Stream    string `json:"stream" example:"stdout" doc:"Which output stream is drained: stdout or stderr"`
	Timestamp string `json:"timestamp" example:"2026-08-23T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DrainStartedEvent.
func (e DrainStartedEvent) Type() uint32 { return TypeDrainStarted }

// DrainChunkEvent is published for every non-empty chunk handed to the
// callback dispatcher.
type DrainChunkEvent struct {
	Pid    string `json:"pid" example:"4242" doc:"Process identifier"`
	Stream string `json:"stream" example:"stdout" doc:"Which output stream produced the chunk"`
	Bytes  int    `json:"bytes" example:"4096" doc:"Decoded chunk size in bytes"`
}

// Type returns the event type identifier for DrainChunkEvent.
func (e DrainChunkEvent) Type() uint32 { return TypeDrainChunk }

// DrainTerminatedEvent is published when a drain task leaves its poll loop,
// either because the process died or because a read failed.
type DrainTerminatedEvent struct {
	Pid       string `json:"pid" example:"4242" doc:"Process identifier"`
	Stream    string `json:"stream" example:"stdout" doc:"Which output stream was drained"`
	Reason    string `json:"reason" example:"process exited" doc:"Why the task terminated"`
	Chunks    uint64 `json:"chunks" example:"17" doc:"Chunks dispatched over the task lifetime"`
	Bytes     uint64 `json:"bytes" example:"69632" doc:"Bytes dispatched over the task lifetime"`
	Timestamp string `json:"timestamp" example:"2026-08-23T10:31:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DrainTerminatedEvent.
func (e DrainTerminatedEvent) Type() uint32 { return TypeDrainTerminated }
