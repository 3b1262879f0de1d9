//go:build !unix

package proc

import "os"

// pidAlive is a best-effort probe on platforms without the null signal.
func pidAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	_ = p.Release()
	return true
}
