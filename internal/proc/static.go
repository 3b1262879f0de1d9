package proc

import (
	"io"
	"strings"
	"sync/atomic"
)

// Static is a fixed process handle with canned output, useful for demos
// and tests that need a drainable process without a real pid. It starts
// alive; Kill flips it dead.
type Static struct {
	pid    int
	alive  atomic.Bool
	stdout io.Reader
	stderr io.Reader
}

// NewStatic builds a live handle serving the given stream contents.
func NewStatic(pid int, stdout, stderr string) *Static {
	s := &Static{
		pid:    pid,
		stdout: strings.NewReader(stdout),
		stderr: strings.NewReader(stderr),
	}
	s.alive.Store(true)
	return s
}

// Kill marks the handle dead.
func (s *Static) Kill() {
	s.alive.Store(false)
}

// Alive reports whether Kill has been called.
func (s *Static) Alive() bool {
	return s.alive.Load()
}

// Pid returns the configured pid.
func (s *Static) Pid() (int, error) {
	return s.pid, nil
}

// Stdout returns the canned stdout stream.
func (s *Static) Stdout() io.Reader {
	return s.stdout
}

// Stderr returns the canned stderr stream.
func (s *Static) Stderr() io.Reader {
	return s.stderr
}
