package telemetry

import (
	"bytes"
	"strings"

	"github.com/banshee-data/posture.report/internal/monitoring"
)

// MaxBufferedBytes bounds the partial-line buffer. A stream that produces
// this much data with no terminator is presumed pathological; the buffer is
// flushed as a single best-effort line rather than growing without bound.
const MaxBufferedBytes = 4096

// LineDecoder reassembles terminator-delimited lines from arbitrarily
// fragmented byte chunks. It holds at most one partial line between calls
// and is not safe for concurrent use; callers must deliver chunks in
// arrival order from a single goroutine.
type LineDecoder struct {
	buf []byte
}

// NewLineDecoder returns an empty decoder.
func NewLineDecoder() *LineDecoder {
	return &LineDecoder{}
}

// Decode appends chunk to the internal buffer and returns every complete
// line found, in arrival order. Trailing carriage returns are stripped and
// empty lines discarded. Any residual partial line stays buffered for the
// next call.
func (d *LineDecoder) Decode(chunk []byte) []string {
	d.buf = append(d.buf, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		line := trimLine(string(d.buf[:i]))
		d.buf = d.buf[i+1:]
		if line != "" {
			lines = append(lines, line)
		}
	}

	if len(d.buf) > MaxBufferedBytes {
		monitoring.Logf("line decoder: flushing %d unterminated bytes", len(d.buf))
		if line := trimLine(string(d.buf)); line != "" {
			lines = append(lines, line)
		}
		d.buf = nil
	}

	return lines
}

// Pending returns the number of buffered bytes awaiting a terminator.
func (d *LineDecoder) Pending() int {
	return len(d.buf)
}

// Reset discards any buffered partial line. Called on disconnect so a stale
// fragment cannot prefix the next session's first line.
func (d *LineDecoder) Reset() {
	d.buf = nil
}

func trimLine(s string) string {
	return strings.TrimSuffix(s, "\r")
}
