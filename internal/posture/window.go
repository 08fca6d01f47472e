// Package posture estimates the wearer's posture state from a stream of
// orientation samples, learning a personal baseline and applying adaptive,
// debounced thresholds.
package posture

import "gonum.org/v1/gonum/stat"

// RollingWindow is a fixed-capacity ring of the most recent float64
// observations. Pushing beyond capacity evicts the oldest value, so size
// never exceeds capacity and per-sample cost stays constant regardless of
// session length.
type RollingWindow struct {
	values []float64
	next   int
	count  int
}

// NewRollingWindow creates a window holding at most capacity values.
// Capacity must be positive.
func NewRollingWindow(capacity int) *RollingWindow {
	if capacity < 1 {
		panic("posture: rolling window capacity must be positive")
	}
	return &RollingWindow{values: make([]float64, capacity)}
}

// Push appends v, evicting the oldest value once the window is full.
func (w *RollingWindow) Push(v float64) {
	w.values[w.next] = v
	w.next = (w.next + 1) % len(w.values)
	if w.count < len(w.values) {
		w.count++
	}
}

// Len returns the number of stored values.
func (w *RollingWindow) Len() int { return w.count }

// Cap returns the window capacity.
func (w *RollingWindow) Cap() int { return len(w.values) }

// Clear empties the window without releasing its backing storage.
func (w *RollingWindow) Clear() {
	w.next = 0
	w.count = 0
}

// Values returns the stored values oldest-first. The returned slice is a
// copy and safe to retain.
func (w *RollingWindow) Values() []float64 {
	out := make([]float64, 0, w.count)
	if w.count < len(w.values) {
		return append(out, w.values[:w.count]...)
	}
	out = append(out, w.values[w.next:]...)
	return append(out, w.values[:w.next]...)
}

// Mean returns the arithmetic mean of the stored values, 0 when empty.
func (w *RollingWindow) Mean() float64 {
	if w.count == 0 {
		return 0
	}
	return stat.Mean(w.Values(), nil)
}

// StdDev returns the sample standard deviation of the stored values. A
// window with fewer than two values has a standard deviation of 0.
func (w *RollingWindow) StdDev() float64 {
	if w.count < 2 {
		return 0
	}
	return stat.StdDev(w.Values(), nil)
}
