package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/banshee-data/posture.report/internal/classifier"
	"github.com/banshee-data/posture.report/internal/config"
	"github.com/banshee-data/posture.report/internal/monitoring"
	"github.com/banshee-data/posture.report/internal/timeutil"
)

var (
	// ErrTrainingInProgress is returned when a training run is already
	// underway; callers should retry once it completes.
	ErrTrainingInProgress = errors.New("session: training already in progress")

	// ErrNotEnoughSamples is returned when the stored batch is below the
	// configured minimum.
	ErrNotEnoughSamples = errors.New("session: not enough training samples")
)

// TrainStore is the subset of the database the train worker reads and writes.
type TrainStore interface {
	ListTrainingSamples() ([]classifier.LabeledSample, error)
	CountTrainingSamples() (int, error)
	SaveModelParams(modelID string, params map[string]float64) error
	LoadModelParams(modelID string) (map[string]float64, error)
}

// TrainWorker owns the active classifier model and retrains it off the
// ingest path. The model pointer is swapped atomically under the mutex, so
// readers never observe a half-trained model.
type TrainWorker struct {
	cfg     *config.TuningConfig
	store   TrainStore
	trainer *classifier.Trainer
	modelID string

	mu      sync.Mutex
	model   *classifier.Model
	running bool
}

// NewTrainWorker loads the persisted model for modelID (or starts from the
// untrained defaults when none is stored).
func NewTrainWorker(cfg *config.TuningConfig, store TrainStore, clock timeutil.Clock, modelID string, seed int64) (*TrainWorker, error) {
	params, err := store.LoadModelParams(modelID)
	if err != nil {
		return nil, fmt.Errorf("failed to load model %q: %w", modelID, err)
	}
	model := classifier.LoadParams(params)
	return &TrainWorker{
		cfg:     cfg,
		store:   store,
		trainer: classifier.NewTrainer(cfg, clock, seed),
		modelID: modelID,
		model:   model,
	}, nil
}

// Model returns the current model. The returned value must be treated as
// read-only; retraining installs a fresh copy rather than mutating it.
func (w *TrainWorker) Model() *classifier.Model {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.model
}

// Running reports whether a training run is in flight.
func (w *TrainWorker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Request validates preconditions and kicks off an asynchronous training
// run. It returns immediately; poll Running or Model to observe completion.
func (w *TrainWorker) Request() error {
	count, err := w.store.CountTrainingSamples()
	if err != nil {
		return err
	}
	if count < w.cfg.GetMinTrainingSamples() {
		return fmt.Errorf("%w: have %d, need %d", ErrNotEnoughSamples, count, w.cfg.GetMinTrainingSamples())
	}

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrTrainingInProgress
	}
	w.running = true
	w.mu.Unlock()

	go func() {
		if _, err := w.run(); err != nil {
			monitoring.Logf("training run failed: %v", err)
		}
	}()
	return nil
}

// TrainOnce runs a full training pass synchronously. Used by tooling that
// wants the result inline; the HTTP API goes through Request instead.
func (w *TrainWorker) TrainOnce() (*classifier.Model, error) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil, ErrTrainingInProgress
	}
	w.running = true
	w.mu.Unlock()

	return w.run()
}

func (w *TrainWorker) run() (*classifier.Model, error) {
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	samples, err := w.store.ListTrainingSamples()
	if err != nil {
		return nil, err
	}
	if len(samples) < w.cfg.GetMinTrainingSamples() {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughSamples, len(samples), w.cfg.GetMinTrainingSamples())
	}

	w.mu.Lock()
	prev := w.model
	w.mu.Unlock()

	next, err := w.trainer.Train(prev, samples)
	if err != nil {
		return nil, err
	}

	if err := w.store.SaveModelParams(w.modelID, next.Params()); err != nil {
		return nil, fmt.Errorf("failed to persist model %q: %w", w.modelID, err)
	}

	w.mu.Lock()
	w.model = next
	w.mu.Unlock()
	return next, nil
}
