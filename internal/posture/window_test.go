package posture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollingWindowPushAndEvict(t *testing.T) {
	t.Parallel()

	w := NewRollingWindow(3)
	assert.Zero(t, w.Len())
	assert.Equal(t, 3, w.Cap())

	w.Push(1)
	w.Push(2)
	w.Push(3)
	assert.Equal(t, []float64{1, 2, 3}, w.Values())

	// Oldest evicted on overflow; size never exceeds capacity.
	w.Push(4)
	assert.Equal(t, 3, w.Len())
	assert.Equal(t, []float64{2, 3, 4}, w.Values())

	w.Push(5)
	w.Push(6)
	assert.Equal(t, []float64{4, 5, 6}, w.Values())
}

func TestRollingWindowStats(t *testing.T) {
	t.Parallel()

	w := NewRollingWindow(10)
	assert.Zero(t, w.Mean())
	assert.Zero(t, w.StdDev())

	w.Push(2)
	assert.Equal(t, 2.0, w.Mean())
	// Fewer than two samples has zero standard deviation.
	assert.Zero(t, w.StdDev())

	w.Push(4)
	w.Push(6)
	assert.InDelta(t, 4.0, w.Mean(), 1e-12)
	assert.InDelta(t, 2.0, w.StdDev(), 1e-12)
}

func TestRollingWindowClear(t *testing.T) {
	t.Parallel()

	w := NewRollingWindow(4)
	w.Push(1)
	w.Push(2)
	w.Clear()
	assert.Zero(t, w.Len())
	assert.Empty(t, w.Values())

	w.Push(9)
	assert.Equal(t, []float64{9}, w.Values())
}

func TestRollingWindowRejectsZeroCapacity(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() { NewRollingWindow(0) })
}
