package classifier

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/posture.report/internal/config"
	"github.com/banshee-data/posture.report/internal/telemetry"
	"github.com/banshee-data/posture.report/internal/timeutil"
)

func testClock() *timeutil.MockClock {
	return timeutil.NewMockClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
}

func goodSample(pitch float64) LabeledSample {
	return LabeledSample{
		Sample: telemetry.Sample{PitchDeg: pitch, Az: 1, Movement: 0.05},
		Good:   true,
	}
}

func badSample(pitch float64) LabeledSample {
	return LabeledSample{
		Sample: telemetry.Sample{PitchDeg: pitch, Ax: 0.5, Az: 0.85, Movement: 0.05},
	}
}

// separableBatch returns a batch where good posture sits near zero pitch
// and bad posture near thirty degrees.
func separableBatch() []LabeledSample {
	var batch []LabeledSample
	for _, p := range []float64{-2, -1, 0, 1, 2} {
		batch = append(batch, goodSample(p))
	}
	for _, p := range []float64{28, 29, 30, 31, 32} {
		batch = append(batch, badSample(p))
	}
	return batch
}

func TestTrainEmptyBatch(t *testing.T) {
	t.Parallel()

	trainer := NewTrainer(config.EmptyTuningConfig(), testClock(), 1)
	_, err := trainer.Train(NewModel(), nil)
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestTrainSeparableBatch(t *testing.T) {
	t.Parallel()

	clock := testClock()
	trainer := NewTrainer(config.EmptyTuningConfig(), clock, 1)
	batch := separableBatch()

	m, err := trainer.Train(NewModel(), batch)
	require.NoError(t, err)

	assert.True(t, m.IsTrained())
	assert.GreaterOrEqual(t, m.ConfidenceScore, 0.9)
	assert.Equal(t, len(batch), m.TrainedSampleCount)
	assert.Equal(t, clock.Now().UnixMilli(), m.LastTrainedAtMs)

	// The fitted boundary separates the class prototypes.
	assert.True(t, m.PredictBinary(0, 0, 0.05))
	assert.False(t, m.PredictBinary(30, 0, 0.05))
	assert.Negative(t, m.WeightPitch)
}

func TestTrainDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	trainer := NewTrainer(config.EmptyTuningConfig(), testClock(), 1)
	prev := NewModel()
	before := *prev

	_, err := trainer.Train(prev, separableBatch())
	require.NoError(t, err)
	assert.Equal(t, before, *prev)
}

// TestRetrainDoesNotRerandomize verifies that only the first ever training
// call randomizes the initial weights: retraining an already-trained model
// is deterministic regardless of trainer seed.
func TestRetrainDoesNotRerandomize(t *testing.T) {
	t.Parallel()

	batch := separableBatch()
	base, err := NewTrainer(config.EmptyTuningConfig(), testClock(), 1).Train(NewModel(), batch)
	require.NoError(t, err)

	a, err := NewTrainer(config.EmptyTuningConfig(), testClock(), 7).Train(base, batch)
	require.NoError(t, err)
	b, err := NewTrainer(config.EmptyTuningConfig(), testClock(), 99).Train(base, batch)
	require.NoError(t, err)

	assert.Equal(t, a.WeightPitch, b.WeightPitch)
	assert.Equal(t, a.WeightRoll, b.WeightRoll)
	assert.Equal(t, a.WeightMovement, b.WeightMovement)
	assert.Equal(t, a.Bias, b.Bias)
}

func TestFirstTrainingUsesSeed(t *testing.T) {
	t.Parallel()

	// Different seeds randomize the initial weights differently, so the
	// converged parameters differ (the batch is deliberately tiny so the
	// descent cannot wash the difference out).
	cfg := config.EmptyTuningConfig()
	one := 1
	cfg.MaxIterations = &one

	batch := []LabeledSample{goodSample(0), badSample(30)}

	a, err := NewTrainer(cfg, testClock(), 1).Train(NewModel(), batch)
	require.NoError(t, err)
	b, err := NewTrainer(cfg, testClock(), 2).Train(NewModel(), batch)
	require.NoError(t, err)

	assert.NotEqual(t, a.WeightPitch, b.WeightPitch)
}

func TestTrainStatistics(t *testing.T) {
	t.Parallel()

	good1 := LabeledSample{Good: true, Sample: telemetry.Sample{Ax: 0.1, Az: 1, Gx: 1, Movement: 0.1}}
	good2 := LabeledSample{Good: true, Sample: telemetry.Sample{Ax: 0.3, Az: 1, Gx: 3, Movement: 0.3}}
	bad1 := LabeledSample{Sample: telemetry.Sample{Ax: 0.8, Az: 0.2, PitchDeg: 40}}
	bad2 := LabeledSample{Sample: telemetry.Sample{Ax: 1.0, Az: 0.2, PitchDeg: 40}}

	trainer := NewTrainer(config.EmptyTuningConfig(), testClock(), 1)
	m, err := trainer.Train(NewModel(), []LabeledSample{good1, good2, bad1, bad2})
	require.NoError(t, err)

	assert.InDelta(t, 0.2, m.GoodVector[0], 1e-12) // mean ax
	assert.InDelta(t, 1.0, m.GoodVector[2], 1e-12) // mean az
	assert.InDelta(t, 2.0, m.GoodVector[3], 1e-12) // mean gx
	assert.InDelta(t, 0.9, m.BadVector[0], 1e-12)
	assert.InDelta(t, 0.2, m.BadVector[2], 1e-12)

	// Max accel-space distance from a bad sample to the bad mean.
	assert.InDelta(t, 0.1, m.BadRadius, 1e-12)

	// 1 / (1 + sample variance of good ax values {0.1, 0.3}).
	assert.InDelta(t, 1/(1+0.02), m.StabilityIndex, 1e-9)

	// 1 / separation between class means in accel space.
	sep := math.Sqrt(0.7*0.7 + 0.8*0.8)
	assert.InDelta(t, 1/sep, m.SensitivityMultiplier, 1e-9)

	// Mean movement over good samples.
	assert.InDelta(t, 0.2, m.MotionIgnoreLevel, 1e-12)
}

// TestBadRadiusUsesAccelSubspaceOnly pins that gyro channels contribute to
// the class means but not to the distance-based statistics.
func TestBadRadiusUsesAccelSubspaceOnly(t *testing.T) {
	t.Parallel()

	// Identical acceleration, wildly different gyro readings.
	bad1 := LabeledSample{Sample: telemetry.Sample{Ax: 0.5, Az: 0.8, Gx: -50, Gz: 20}}
	bad2 := LabeledSample{Sample: telemetry.Sample{Ax: 0.5, Az: 0.8, Gx: 50, Gz: -20}}

	trainer := NewTrainer(config.EmptyTuningConfig(), testClock(), 1)
	m, err := trainer.Train(NewModel(), []LabeledSample{goodSample(0), bad1, bad2})
	require.NoError(t, err)

	assert.Zero(t, m.BadRadius)
	assert.InDelta(t, 0.0, m.BadVector[3], 1e-12) // gyro still averaged
}

func TestTrainSingleClassBatch(t *testing.T) {
	t.Parallel()

	trainer := NewTrainer(config.EmptyTuningConfig(), testClock(), 1)

	// All-good batch: bad statistics fall back to neutral values.
	m, err := trainer.Train(NewModel(), []LabeledSample{goodSample(0), goodSample(1), goodSample(2)})
	require.NoError(t, err)
	assert.Equal(t, [6]float64{}, m.BadVector)
	assert.Zero(t, m.BadRadius)
	assert.Equal(t, 1.0, m.SensitivityMultiplier)

	// All-bad batch: fewer than two good samples zeroes the stability
	// index and leaves the motion ignore level untouched.
	m, err = trainer.Train(NewModel(), []LabeledSample{badSample(30), badSample(31)})
	require.NoError(t, err)
	assert.Zero(t, m.StabilityIndex)
	assert.Equal(t, 0.5, m.MotionIgnoreLevel)
}
