// Package proc adapts already-running operating system processes to the
// drain.Process contract. It never starts, signals, or reaps processes;
// liveness is probed with the null signal and output is read from
// filesystem paths (FIFOs or redirected log files) that the target
// process writes to.
package proc

import (
	"fmt"
	"io"
	"strings"
)

// Attached is a drain.Process for a process identified by pid whose output
// streams are caller-provided readers.
type Attached struct {
	pid    int
	stdout io.Reader
	stderr io.Reader
}

// Attach wraps a running process. Either stream may be nil when the caller
// only drains the other one; a nil stream reads as empty.
func Attach(pid int, stdout, stderr io.Reader) (*Attached, error) {
	if pid <= 0 {
		return nil, fmt.Errorf("attach: invalid pid %d", pid)
	}
	if !pidAlive(pid) {
		return nil, fmt.Errorf("attach: process %d is not running", pid)
	}
	if stdout == nil {
		stdout = strings.NewReader("")
	}
	if stderr == nil {
		stderr = strings.NewReader("")
	}
	return &Attached{pid: pid, stdout: stdout, stderr: stderr}, nil
}

// Alive reports whether the process still exists.
func (a *Attached) Alive() bool { return pidAlive(a.pid) }

// Pid returns the identifier the process was attached by.
func (a *Attached) Pid() (int, error) { return a.pid, nil }

// Stdout returns the reader standing in for the process's standard output.
func (a *Attached) Stdout() io.Reader { return a.stdout }

// Stderr returns the reader standing in for the process's standard error.
func (a *Attached) Stderr() io.Reader { return a.stderr }
