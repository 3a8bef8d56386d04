package wire

import "bytes"

// LineFramer splits an incoming chunk stream into complete lines. Chunk
// boundaries may fall anywhere, including inside a multi-byte rune; bytes
// are buffered until their line's newline arrives. Lines end with '\n' and
// tolerate a preceding '\r'.
type LineFramer struct {
	rest []byte
}

// Split appends chunk to any held fragment and returns the complete lines
// found, terminators stripped. The trailing unterminated fragment stays held
// for the next call.
func (f *LineFramer) Split(chunk string) []string {
	if chunk == "" {
		return nil
	}
	f.rest = append(f.rest, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(f.rest, '\n')
		if i < 0 {
			return lines
		}
		lines = append(lines, string(trimCR(f.rest[:i])))
		f.rest = f.rest[i+1:]
	}
}

// Flush surrenders the held unterminated fragment, if any, and resets the
// framer. At end of stream the fragment is a complete line that simply
// never got its terminator.
func (f *LineFramer) Flush() (string, bool) {
	if len(f.rest) == 0 {
		return "", false
	}
	line := string(trimCR(f.rest))
	f.rest = nil
	return line, true
}

// Pending reports whether a fragment is being held.
func (f *LineFramer) Pending() bool {
	return len(f.rest) > 0
}

func trimCR(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\r' {
		return b[:n-1]
	}
	return b
}
