//go:build !unix

package proc

import "os"

// OpenSource opens a stream source for reading.
func OpenSource(path string) (*os.File, error) {
	return os.Open(path)
}
