package drain

import (
	"errors"
	"io"
	"unicode/utf8"
)

// chunkReader performs bounded reads from one stream and decodes the bytes
// as UTF-8 text. A multi-byte sequence split across two reads is not
// corrupted: the incomplete tail (at most utf8.UTFMax-1 bytes) is held back
// and prepended to the next chunk.
//
// A chunkReader is owned by exactly one drain task and is not safe for
// concurrent use.
type chunkReader struct {
	src     io.Reader
	buf     []byte
	pending []byte
}

func newChunkReader(src io.Reader, capacity int) *chunkReader {
	return &chunkReader{
		src:     src,
		buf:     make([]byte, capacity),
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

// next reads at most cap(buf) bytes and returns them decoded as text. An
// empty chunk with a nil error means no data was available this cycle;
// end of stream is reported the same way because a live process may simply
// have closed one descriptor. Any other failure is returned as-is and is
// expected to end the owning task.
func (r *chunkReader) next() (string, error) {
	n, err := r.src.Read(r.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}

	data := r.buf[:n]
	if len(r.pending) > 0 {
		data = append(r.pending, data...)
		r.pending = make([]byte, 0, utf8.UTFMax)
	}

	// On EOF there is no next read to complete a split sequence, so the
	// tail is emitted as-is rather than held back forever.
	if !errors.Is(err, io.EOF) {
		if cut := incompleteTail(data); cut > 0 {
			r.pending = append(r.pending, data[len(data)-cut:]...)
			data = data[:len(data)-cut]
		}
	}

	return string(data), nil
}

// incompleteTail returns how many trailing bytes of data form the start of
// a UTF-8 sequence whose continuation has not been read yet. Zero means the
// data ends on a rune boundary (or with bytes that can never become valid,
// which are passed through untouched).
func incompleteTail(data []byte) int {
	for i := 1; i <= utf8.UTFMax && i <= len(data); i++ {
		b := data[len(data)-i]
		if b < utf8.RuneSelf {
			return 0 // ASCII tail, nothing split
		}
		if b&0xC0 == 0xC0 {
			// Found the leading byte of the trailing sequence. Held
			// back only if the sequence is genuinely truncated.
			if r, _ := utf8.DecodeRune(data[len(data)-i:]); r == utf8.RuneError && !utf8.FullRune(data[len(data)-i:]) {
				return i
			}
			return 0
		}
	}
	return 0
}
