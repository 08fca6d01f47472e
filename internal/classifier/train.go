package classifier

import (
	"errors"
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/posture.report/internal/config"
	"github.com/banshee-data/posture.report/internal/monitoring"
	"github.com/banshee-data/posture.report/internal/telemetry"
	"github.com/banshee-data/posture.report/internal/timeutil"
)

// ErrNoSamples is returned when Train is invoked with an empty batch. The
// caller is expected to enforce a minimum batch size before invoking.
var ErrNoSamples = errors.New("classifier: no training samples")

// Trainer fits a model to labeled feedback samples with full-batch gradient
// descent. Deterministic given a fixed seed and fixed sample order.
type Trainer struct {
	cfg   *config.TuningConfig
	clock timeutil.Clock
	rng   *rand.Rand
}

// NewTrainer creates a trainer. The seed only influences the one-time weight
// initialization of a never-trained model.
func NewTrainer(cfg *config.TuningConfig, clock timeutil.Clock, seed int64) *Trainer {
	return &Trainer{
		cfg:   cfg,
		clock: clock,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Train fits the model to samples and returns a fully populated replacement.
// The input model is never mutated: all fields of the result are computed on
// a working copy and swapped in together, so an interrupted run cannot leave
// a mixed-parameter model behind.
func (t *Trainer) Train(prev *Model, samples []LabeledSample) (*Model, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	m := *prev

	// Only a never-trained model gets random initial weights; re-training
	// starts from the converged parameters of the previous run.
	if !m.IsTrained() {
		r := t.cfg.GetWeightInitRange()
		m.WeightPitch = t.initWeight(r)
		m.WeightRoll = t.initWeight(r)
		m.WeightMovement = t.initWeight(r)
		m.Bias = t.initWeight(r)
	}

	iterations := t.descend(&m, samples)
	t.computeStatistics(&m, samples)

	m.TrainedSampleCount = len(samples)
	m.LastTrainedAtMs = t.clock.Now().UnixMilli()

	monitoring.Logf("classifier: trained on %d samples in %d iterations (confidence %.3f)",
		len(samples), iterations, m.ConfidenceScore)

	return &m, nil
}

func (t *Trainer) initWeight(r float64) float64 {
	return (t.rng.Float64()*2 - 1) * r
}

// descend runs full-batch gradient descent, stopping early once the mean
// squared error falls below the convergence epsilon. Returns the number of
// iterations executed.
func (t *Trainer) descend(m *Model, samples []LabeledSample) int {
	lr := t.cfg.GetLearningRate()
	maxIter := t.cfg.GetMaxIterations()
	epsilon := t.cfg.GetConvergenceEpsilon()
	n := float64(len(samples))

	iter := 0
	for ; iter < maxIter; iter++ {
		var gradPitch, gradRoll, gradMove, gradBias float64
		var sqErr float64

		for _, ls := range samples {
			s := ls.Sample
			pred := m.Predict(s.PitchDeg, s.RollDeg, s.Movement)
			target := 0.0
			if ls.Good {
				target = 1.0
			}
			diff := pred - target

			gradPitch += diff * s.PitchDeg
			gradRoll += diff * s.RollDeg
			gradMove += diff * s.Movement
			gradBias += diff
			sqErr += diff * diff
		}

		m.WeightPitch -= lr * gradPitch / n
		m.WeightRoll -= lr * gradRoll / n
		m.WeightMovement -= lr * gradMove / n
		m.Bias -= lr * gradBias / n

		if sqErr/n < epsilon {
			iter++
			break
		}
	}
	return iter
}

// computeStatistics recomputes the descriptive statistics from the same
// sample set the weights converged on.
func (t *Trainer) computeStatistics(m *Model, samples []LabeledSample) {
	good, bad := sortClasses(samples)

	m.GoodVector = classMean(good)
	m.BadVector = classMean(bad)

	// Maximum distance from a bad sample to the bad class mean, in the
	// acceleration subspace.
	m.BadRadius = 0
	for _, s := range bad {
		if d := accelDistance(s.AccelVector(), accelPart(m.BadVector)); d > m.BadRadius {
			m.BadRadius = d
		}
	}

	// Stability of the good class along the forward axis.
	if len(good) >= 2 {
		ax := make([]float64, len(good))
		for i, s := range good {
			ax[i] = s.Ax
		}
		m.StabilityIndex = 1 / (1 + stat.Variance(ax, nil))
	} else {
		m.StabilityIndex = 0
	}

	// Sensitivity is the inverse of class separation: well-separated
	// classes need less aggressive thresholds.
	m.SensitivityMultiplier = 1.0
	if len(good) > 0 && len(bad) > 0 {
		if sep := accelDistance(accelPart(m.GoodVector), accelPart(m.BadVector)); sep > 0 {
			m.SensitivityMultiplier = 1 / sep
		}
	}

	if len(good) > 0 {
		var sum float64
		for _, s := range good {
			sum += s.Movement
		}
		m.MotionIgnoreLevel = sum / float64(len(good))
	}

	// Resubstitution accuracy over the full batch.
	correct := 0
	for _, ls := range samples {
		s := ls.Sample
		if m.PredictBinary(s.PitchDeg, s.RollDeg, s.Movement) == ls.Good {
			correct++
		}
	}
	m.ConfidenceScore = float64(correct) / float64(len(samples))
}

func sortClasses(samples []LabeledSample) (good, bad []telemetry.Sample) {
	for _, ls := range samples {
		if ls.Good {
			good = append(good, ls.Sample)
		} else {
			bad = append(bad, ls.Sample)
		}
	}
	return good, bad
}

// classMean returns the per-channel mean of the 6-axis sensor tuple, or the
// zero vector for an empty class.
func classMean(samples []telemetry.Sample) [6]float64 {
	var mean [6]float64
	if len(samples) == 0 {
		return mean
	}
	for _, s := range samples {
		v := s.SensorVector()
		for i := range mean {
			mean[i] += v[i]
		}
	}
	for i := range mean {
		mean[i] /= float64(len(samples))
	}
	return mean
}
