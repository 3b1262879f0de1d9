package drain

import (
	"errors"
	"io"
	"log/slog"
	"strconv"
)

// ErrPidUnsupported is returned by Process.Pid on platforms where the
// operating system does not expose a process identifier.
var ErrPidUnsupported = errors.New("process identifier not supported on this platform")

// Process is the handle a drain task polls and reads from. Implementations
// are external collaborators; this package never starts, signals, or waits
// on a process.
type Process interface {
	// Alive reports whether the process is still running.
	Alive() bool

	// Pid returns the operating-system identifier of the process.
	// May fail with ErrPidUnsupported on some platforms.
	Pid() (int, error)

	// Stdout returns the process's standard output stream.
	Stdout() io.Reader

	// Stderr returns the process's standard error stream.
	Stderr() io.Reader
}

// pidLabel resolves the process identifier for diagnostic logging. The
// lookup can fail on some platforms; that failure is logged once here and
// never reaches the read loop.
func pidLabel(p Process, logger *slog.Logger) string {
	pid, err := p.Pid()
	if err != nil {
		logger.Debug("process identifier unavailable", "error", err)
		return "unknown"
	}
	return strconv.Itoa(pid)
}
