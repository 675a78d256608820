package assistant

import (
	"errors"
	"io"
	"iter"
	"unicode/utf8"
)

const chunkSize = 512

// Chunks yields the text of r as it arrives. A multi-byte character split
// across reads is held back and emitted with the following chunk. The
// sequence ends at EOF; a read error is yielded once as the last element.
// It consumes r and cannot be restarted.
func Chunks(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		buf := make([]byte, chunkSize)
		var pending []byte
		for {
			n, err := r.Read(buf)
			if n > 0 {
				pending = append(pending, buf[:n]...)
				cut := completePrefix(pending)
				if cut > 0 {
					if !yield(string(pending[:cut]), nil) {
						return
					}
					pending = append(pending[:0], pending[cut:]...)
				}
			}
			if errors.Is(err, io.EOF) {
				if len(pending) > 0 {
					yield(string(pending), nil)
				}
				return
			}
			if err != nil {
				yield("", err)
				return
			}
		}
	}
}

// completePrefix returns the length of the longest prefix of b that does
// not end inside an incomplete UTF-8 sequence.
func completePrefix(b []byte) int {
	// A rune is at most utf8.UTFMax bytes, so only the tail needs checking.
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if utf8.FullRune(b[i:]) {
			return len(b)
		}
		return i
	}
	return len(b)
}
