package telemetry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSingleLine(t *testing.T) {
	t.Parallel()

	d := NewLineDecoder()
	lines := d.Decode([]byte("ax=0.0 ay=0.0 az=1.0\n"))
	require.Len(t, lines, 1)
	assert.Equal(t, "ax=0.0 ay=0.0 az=1.0", lines[0])
	assert.Zero(t, d.Pending())
}

func TestDecodeStripsCarriageReturn(t *testing.T) {
	t.Parallel()

	d := NewLineDecoder()
	lines := d.Decode([]byte("CAL:DONE\r\n"))
	require.Len(t, lines, 1)
	assert.Equal(t, "CAL:DONE", lines[0])
}

func TestDecodeDropsEmptyLines(t *testing.T) {
	t.Parallel()

	d := NewLineDecoder()
	lines := d.Decode([]byte("\n\r\nax=1\n\n"))
	require.Len(t, lines, 1)
	assert.Equal(t, "ax=1", lines[0])
}

func TestDecodeFragmentedAcrossCalls(t *testing.T) {
	t.Parallel()

	d := NewLineDecoder()
	assert.Empty(t, d.Decode([]byte("ax=0.5 ay=")))
	assert.Equal(t, 10, d.Pending())

	lines := d.Decode([]byte("0.1 az=0.9\nCAL:"))
	require.Len(t, lines, 1)
	assert.Equal(t, "ax=0.5 ay=0.1 az=0.9", lines[0])

	lines = d.Decode([]byte("DONE\n"))
	require.Len(t, lines, 1)
	assert.Equal(t, "CAL:DONE", lines[0])
}

// TestDecodeChunkingInvariance verifies that the emitted lines do not depend
// on how the byte stream is split across Decode calls.
func TestDecodeChunkingInvariance(t *testing.T) {
	t.Parallel()

	stream := "ax=0.0 ay=0.0 az=1.0 posture=GOOD\nCAL:DONE\nax=1.0 ay=0.0 az=0.0 posture=BAD\n"
	want := []string{
		"ax=0.0 ay=0.0 az=1.0 posture=GOOD",
		"CAL:DONE",
		"ax=1.0 ay=0.0 az=0.0 posture=BAD",
	}

	for _, chunkSize := range []int{1, 2, 3, 7, 16, len(stream)} {
		d := NewLineDecoder()
		var got []string
		for i := 0; i < len(stream); i += chunkSize {
			end := i + chunkSize
			if end > len(stream) {
				end = len(stream)
			}
			got = append(got, d.Decode([]byte(stream[i:end]))...)
		}
		assert.Equal(t, want, got, "chunk size %d", chunkSize)
		assert.Zero(t, d.Pending(), "chunk size %d", chunkSize)
	}
}

func TestDecodeFlushesOversizedBuffer(t *testing.T) {
	t.Parallel()

	d := NewLineDecoder()
	junk := strings.Repeat("x", MaxBufferedBytes+1)

	lines := d.Decode([]byte(junk))
	require.Len(t, lines, 1)
	assert.Equal(t, junk, lines[0])
	assert.Zero(t, d.Pending())

	// The decoder keeps working after a flush.
	lines = d.Decode([]byte("ax=1\n"))
	require.Len(t, lines, 1)
	assert.Equal(t, "ax=1", lines[0])
}

func TestDecodeUnderSizeLimitStaysBuffered(t *testing.T) {
	t.Parallel()

	d := NewLineDecoder()
	junk := strings.Repeat("x", MaxBufferedBytes)
	assert.Empty(t, d.Decode([]byte(junk)))
	assert.Equal(t, MaxBufferedBytes, d.Pending())
}

func TestReset(t *testing.T) {
	t.Parallel()

	d := NewLineDecoder()
	d.Decode([]byte("partial"))
	d.Reset()
	assert.Zero(t, d.Pending())

	lines := d.Decode([]byte("ax=2\n"))
	require.Len(t, lines, 1)
	assert.Equal(t, "ax=2", lines[0])
}
