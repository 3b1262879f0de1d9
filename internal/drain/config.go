package drain

import (
	"errors"
	"fmt"
	"time"
)

// Defaults for Config fields left at their zero value.
const (
	// DefaultBufferCapacity is the per-read buffer size in bytes.
	DefaultBufferCapacity = 4096

	// DefaultPollInterval is the pause between liveness polls.
	DefaultPollInterval = 100 * time.Millisecond

	defaultReaderWorkers   = 4
	defaultCallbackWorkers = 2
	defaultQueueDepth      = 16
)

// ErrBufferCapacity is returned by New when Config.BufferCapacity is not
// positive.
var ErrBufferCapacity = errors.New("buffer capacity must be positive")

// ErrPollInterval is returned by New when Config.PollInterval is negative.
var ErrPollInterval = errors.New("poll interval must not be negative")

// Config sizes a Handler. It is a plain value; the Handler copies it at
// construction and never reads it again.
type Config struct {
	// BufferCapacity is the maximum number of bytes a drain task reads
	// from its stream per cycle. Must be positive.
	BufferCapacity int `toml:"buffer_capacity"`

	// PollInterval is the fixed pause before each read attempt. Zero is
	// allowed and means the task polls as fast as its reads return.
	PollInterval time.Duration `toml:"poll_interval"`

	// ReaderWorkers is the size of the pool running drain tasks. Each
	// concurrently drained stream occupies one worker for the lifetime
	// of its process.
	ReaderWorkers int `toml:"reader_workers"`

	// CallbackWorkers is the size of the pool running caller callbacks.
	CallbackWorkers int `toml:"callback_workers"`

	// QueueDepth is the initial submission queue capacity of each pool.
	// Queues grow as needed; submission never blocks on backlog.
	QueueDepth int `toml:"queue_depth"`
}

// DefaultConfig returns the configuration used when no file or flags
// override it.
func DefaultConfig() Config {
	return Config{
		BufferCapacity:  DefaultBufferCapacity,
		PollInterval:    DefaultPollInterval,
		ReaderWorkers:   defaultReaderWorkers,
		CallbackWorkers: defaultCallbackWorkers,
		QueueDepth:      defaultQueueDepth,
	}
}

// withDefaults fills zero-valued sizing fields. BufferCapacity is not
// defaulted: an explicit non-positive capacity is a caller error, caught
// by validate.
func (c Config) withDefaults() Config {
	if c.ReaderWorkers <= 0 {
		c.ReaderWorkers = defaultReaderWorkers
	}
	if c.CallbackWorkers <= 0 {
		c.CallbackWorkers = defaultCallbackWorkers
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = defaultQueueDepth
	}
	return c
}

func (c Config) validate() error {
	if c.BufferCapacity <= 0 {
		return fmt.Errorf("%w: got %d", ErrBufferCapacity, c.BufferCapacity)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("%w: got %v", ErrPollInterval, c.PollInterval)
	}
	return nil
}
