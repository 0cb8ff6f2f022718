package export

import (
	"fmt"
	"io"
)

const relayBufferSize = 32 * 1024

// Relay copies the upstream body to dst verbatim in a single pass,
// counting complete exposition-format records as they stream through. A
// record is one newline-delimited line that is non-empty and does not
// start with '#'. Chunk boundaries need not align with line boundaries;
// only the state of the current unterminated line is carried between
// reads, never the body.
//
// flush, when non-nil, is called after every forwarded chunk so chunked
// responses reach the caller as the upstream produces them.
//
// On clean EOF the returned count is exact (a trailing line without a
// newline still counts). If the upstream read or the downstream write
// fails mid-transfer, Relay stops forwarding immediately and returns the
// records fully counted before the cut wrapped in ErrStreamInterrupted.
func Relay(dst io.Writer, src io.Reader, flush func()) (int64, error) {
	var (
		count     int64
		buf       = make([]byte, relayBufferSize)
		lineLen   int  // bytes seen so far on the current line
		lineFirst byte // first byte of the current line
	)

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if _, err := dst.Write(chunk); err != nil {
				return count, fmt.Errorf("%w: %v", ErrStreamInterrupted, err)
			}
			if flush != nil {
				flush()
			}

			for _, b := range chunk {
				if b == '\n' {
					if lineLen > 0 && lineFirst != '#' {
						count++
					}
					lineLen = 0
					continue
				}
				if lineLen == 0 {
					lineFirst = b
				}
				lineLen++
			}
		}

		if readErr == io.EOF {
			if lineLen > 0 && lineFirst != '#' {
				count++
			}
			return count, nil
		}
		if readErr != nil {
			return count, fmt.Errorf("%w: %v", ErrStreamInterrupted, readErr)
		}
	}
}
