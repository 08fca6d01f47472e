package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/posture.report/internal/classifier"
	"github.com/banshee-data/posture.report/internal/config"
	"github.com/banshee-data/posture.report/internal/telemetry"
	"github.com/banshee-data/posture.report/internal/timeutil"
)

// memTrainStore is an in-memory TrainStore.
type memTrainStore struct {
	samples []classifier.LabeledSample
	params  map[string]map[string]float64
	listErr error
	saveErr error
}

func newMemTrainStore() *memTrainStore {
	return &memTrainStore{params: make(map[string]map[string]float64)}
}

func (s *memTrainStore) ListTrainingSamples() ([]classifier.LabeledSample, error) {
	return s.samples, s.listErr
}

func (s *memTrainStore) CountTrainingSamples() (int, error) {
	return len(s.samples), s.listErr
}

func (s *memTrainStore) SaveModelParams(modelID string, params map[string]float64) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.params[modelID] = params
	return nil
}

func (s *memTrainStore) LoadModelParams(modelID string) (map[string]float64, error) {
	p, ok := s.params[modelID]
	if !ok {
		return map[string]float64{}, nil
	}
	return p, nil
}

func labeled(pitch float64, good bool) classifier.LabeledSample {
	return classifier.LabeledSample{
		Sample: telemetry.Sample{PitchDeg: pitch, Ax: pitch / 100},
		Good:   good,
	}
}

// trainableBatch returns a linearly separable batch above the minimum size.
func trainableBatch() []classifier.LabeledSample {
	var batch []classifier.LabeledSample
	for i := 0; i < 6; i++ {
		batch = append(batch, labeled(float64(i-3), true))
		batch = append(batch, labeled(float64(28+i), false))
	}
	return batch
}

func newWorker(t *testing.T, store TrainStore) *TrainWorker {
	t.Helper()
	clock := timeutil.NewMockClock(time.UnixMilli(99_000))
	w, err := NewTrainWorker(config.EmptyTuningConfig(), store, clock, "default", 7)
	require.NoError(t, err)
	return w
}

func TestNewWorkerStartsUntrained(t *testing.T) {
	t.Parallel()

	w := newWorker(t, newMemTrainStore())
	assert.False(t, w.Model().IsTrained())
	assert.False(t, w.Running())
}

func TestNewWorkerLoadsPersistedModel(t *testing.T) {
	t.Parallel()

	store := newMemTrainStore()
	store.params["default"] = map[string]float64{
		classifier.ParamWeightPitch: 0.4,
		classifier.ParamBias:        -0.1,
	}

	w := newWorker(t, store)
	m := w.Model()
	assert.True(t, m.IsTrained())
	assert.InDelta(t, 0.4, m.WeightPitch, 1e-9)
}

func TestTrainOnce(t *testing.T) {
	t.Parallel()

	store := newMemTrainStore()
	store.samples = trainableBatch()

	w := newWorker(t, store)
	m, err := w.TrainOnce()
	require.NoError(t, err)

	assert.True(t, m.IsTrained())
	assert.Equal(t, len(store.samples), m.TrainedSampleCount)
	assert.Equal(t, int64(99_000), m.LastTrainedAtMs)
	assert.Same(t, m, w.Model())

	// Good pitches sit near zero, bad near thirty.
	assert.True(t, m.PredictBinary(0, 0, 0))
	assert.False(t, m.PredictBinary(30, 0, 0))

	// The trained parameters were persisted under the model ID.
	saved := store.params["default"]
	require.NotEmpty(t, saved)
	assert.InDelta(t, m.WeightPitch, saved[classifier.ParamWeightPitch], 1e-9)
}

func TestTrainOnceRejectsSmallBatch(t *testing.T) {
	t.Parallel()

	store := newMemTrainStore()
	store.samples = trainableBatch()[:4]

	w := newWorker(t, store)
	_, err := w.TrainOnce()
	assert.ErrorIs(t, err, ErrNotEnoughSamples)
	assert.False(t, w.Model().IsTrained())
}

func TestTrainOnceKeepsModelOnSaveError(t *testing.T) {
	t.Parallel()

	store := newMemTrainStore()
	store.samples = trainableBatch()
	store.saveErr = errors.New("disk full")

	w := newWorker(t, store)
	prev := w.Model()
	_, err := w.TrainOnce()
	assert.Error(t, err)
	assert.Same(t, prev, w.Model())
	assert.False(t, w.Running())
}

func TestRequestRejectsSmallBatch(t *testing.T) {
	t.Parallel()

	store := newMemTrainStore()
	store.samples = trainableBatch()[:2]

	w := newWorker(t, store)
	assert.ErrorIs(t, w.Request(), ErrNotEnoughSamples)
}

func TestRequestTrainsAsynchronously(t *testing.T) {
	t.Parallel()

	store := newMemTrainStore()
	store.samples = trainableBatch()

	w := newWorker(t, store)
	require.NoError(t, w.Request())

	assert.Eventually(t, func() bool {
		return w.Model().IsTrained() && !w.Running()
	}, 5*time.Second, 10*time.Millisecond)
}

func TestConcurrentTrainingRejected(t *testing.T) {
	t.Parallel()

	store := newMemTrainStore()
	store.samples = trainableBatch()

	w := newWorker(t, store)

	// Simulate an in-flight run.
	w.mu.Lock()
	w.running = true
	w.mu.Unlock()

	assert.ErrorIs(t, w.Request(), ErrTrainingInProgress)
	_, err := w.TrainOnce()
	assert.ErrorIs(t, err, ErrTrainingInProgress)
}
