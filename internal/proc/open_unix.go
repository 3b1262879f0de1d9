//go:build unix

package proc

import (
	"os"
	"syscall"
)

// OpenSource opens a stream source for reading. The non-blocking flag
// keeps the open from hanging on a FIFO with no writer yet; the runtime
// poller still parks readers until data arrives.
func OpenSource(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDONLY|syscall.O_NONBLOCK, 0)
}
