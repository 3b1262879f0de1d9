//go:build unix

package proc

import (
	"errors"
	"syscall"
)

// pidAlive probes a process with the null signal. EPERM means the process
// exists but belongs to another user, which still counts as alive.
func pidAlive(pid int) bool {
	err := syscall.Kill(pid, syscall.Signal(0))
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}
