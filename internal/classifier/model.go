// Package classifier implements the trainable posture classifier: a binary
// logistic regression over pitch, roll, and movement, plus the descriptive
// statistics used for explainability and export.
package classifier

import (
	"math"

	"github.com/banshee-data/posture.report/internal/telemetry"
)

// LabeledSample is the unit of supervised training: one telemetry sample
// plus the wearer's good/bad feedback label.
type LabeledSample struct {
	Sample telemetry.Sample
	Good   bool
}

// Model holds the trained classifier parameters and auxiliary statistics.
// A single instance belongs to one user profile. Training mutates a working
// copy and swaps all fields in together, so a model is never observed in a
// mixed-parameter state.
type Model struct {
	WeightPitch    float64
	WeightRoll     float64
	WeightMovement float64
	Bias           float64

	// Per-channel class means over the raw 6-axis sensor tuple
	// (ax, ay, az, gx, gy, gz).
	GoodVector [6]float64
	BadVector  [6]float64

	// BadRadius is the maximum distance, in the acceleration subspace,
	// from a bad-labeled training sample to BadVector.
	BadRadius             float64
	StabilityIndex        float64
	SensitivityMultiplier float64
	MotionIgnoreLevel     float64

	// ConfidenceScore is the resubstitution accuracy of the last training
	// run.
	ConfidenceScore float64

	TrainedSampleCount int
	LastTrainedAtMs    int64
}

// NewModel returns an untrained model. All weights are zero; the derived
// statistics hold the same defaults used when loading a persisted parameter
// set with missing fields.
func NewModel() *Model {
	return &Model{
		SensitivityMultiplier: 1.0,
		MotionIgnoreLevel:     0.5,
	}
}

// IsTrained reports whether the model has been trained. Zero weights and
// bias serve as the untrained sentinel; a legitimately trained model that
// settles at exactly zero on all four parameters would read as untrained,
// which matches the persisted-format semantics this model round-trips.
func (m *Model) IsTrained() bool {
	return m.WeightPitch != 0 || m.WeightRoll != 0 || m.WeightMovement != 0 || m.Bias != 0
}

// Predict returns the probability that the given observation represents
// good posture. An all-zero-parameter model returns exactly 0.5 for any
// input.
func (m *Model) Predict(pitchDeg, rollDeg, movement float64) float64 {
	z := m.WeightPitch*pitchDeg + m.WeightRoll*rollDeg + m.WeightMovement*movement + m.Bias
	return sigmoid(z)
}

// PredictBinary thresholds Predict at 0.5.
func (m *Model) PredictBinary(pitchDeg, rollDeg, movement float64) bool {
	return m.Predict(pitchDeg, rollDeg, movement) >= 0.5
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// accelPart returns the acceleration channels of a 6-axis sensor vector.
func accelPart(v [6]float64) [3]float64 {
	return [3]float64{v[0], v[1], v[2]}
}

// accelDistance returns the Euclidean distance between two points in the
// acceleration subspace.
func accelDistance(a, b [3]float64) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	dz := a[2] - b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
