// Package session owns the per-device pipeline: it consumes decoded lines
// from the serial mux, feeds the posture estimator, records state
// transitions, and collects labeled feedback samples for training.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/posture.report/internal/classifier"
	"github.com/banshee-data/posture.report/internal/db"
	"github.com/banshee-data/posture.report/internal/monitoring"
	"github.com/banshee-data/posture.report/internal/posture"
	"github.com/banshee-data/posture.report/internal/serialmux"
	"github.com/banshee-data/posture.report/internal/telemetry"
	"github.com/banshee-data/posture.report/internal/timeutil"
)

// ErrNoSample is returned when feedback or calibration is requested before
// any telemetry has arrived.
var ErrNoSample = errors.New("session: no sample received yet")

// StatePublisher receives posture state transitions, e.g. for MQTT fan-out.
type StatePublisher interface {
	PublishState(event db.PostureEvent) error
}

// Store is the subset of the database the session writes to.
type Store interface {
	RecordPostureEvent(db.PostureEvent) error
	AppendTrainingSample(classifier.LabeledSample) error
}

// Session binds one connected device to one estimator instance. All
// estimator access is serialized through the session mutex, so the mux
// consumer goroutine and the API can share it safely.
type Session struct {
	ID string

	mux       serialmux.SerialMuxInterface
	store     Store
	clock     timeutil.Clock
	publisher StatePublisher

	// OnCalibration, when set, receives out-of-band calibration messages.
	OnCalibration func(telemetry.CalibrationMessage)

	mu         sync.Mutex
	estimator  *posture.Estimator
	lastSample *telemetry.Sample
	lastState  posture.State
}

// New creates a session. store and publisher may be nil, in which case
// transitions are not recorded or published.
func New(mux serialmux.SerialMuxInterface, estimator *posture.Estimator, store Store, publisher StatePublisher, clock timeutil.Clock) *Session {
	return &Session{
		ID:        uuid.NewString(),
		mux:       mux,
		store:     store,
		clock:     clock,
		publisher: publisher,
		estimator: estimator,
		lastState: posture.StateNotCalibrated,
	}
}

// Run consumes lines from the mux until the context is cancelled. It is the
// single owner of estimator ingestion; run it on exactly one goroutine.
func (s *Session) Run(ctx context.Context) error {
	id, lines := s.mux.Subscribe()
	defer s.mux.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			s.HandleLine(line)
		}
	}
}

// HandleLine routes one decoded line through the pipeline. Exposed so tests
// and replay tooling can drive a session without a live mux.
func (s *Session) HandleLine(line string) {
	if telemetry.IsCalibrationLine(line) {
		msg := telemetry.ParseCalibration(line)
		if msg.Status == telemetry.StatusUnknown {
			monitoring.Logf("session %s: unrecognized calibration token %q", s.ID, msg.Raw)
		}
		if s.OnCalibration != nil {
			s.OnCalibration(msg)
		}
		return
	}

	sample, err := telemetry.ParseSample(line)
	if err != nil {
		// Transient stream noise: drop the line, keep the stream alive.
		monitoring.Logf("session %s: dropping line: %v", s.ID, err)
		return
	}

	if sample.TimestampMs == 0 {
		sample.TimestampMs = s.clock.Now().UnixMilli()
	}

	s.ingest(sample)
}

func (s *Session) ingest(sample telemetry.Sample) {
	s.mu.Lock()
	state := s.estimator.Ingest(sample.PitchDeg, sample.RollDeg, sample.Movement, sample.TimestampMs)
	transitioned := state != s.lastState
	s.lastState = state
	s.lastSample = &sample
	s.mu.Unlock()

	if !transitioned {
		return
	}

	event := db.PostureEvent{
		SessionID:   s.ID,
		State:       state.String(),
		PitchDeg:    sample.PitchDeg,
		RollDeg:     sample.RollDeg,
		Movement:    sample.Movement,
		TimestampMs: sample.TimestampMs,
	}

	if s.store != nil {
		if err := s.store.RecordPostureEvent(event); err != nil {
			monitoring.Logf("session %s: failed to record event: %v", s.ID, err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishState(event); err != nil {
			monitoring.Logf("session %s: failed to publish state: %v", s.ID, err)
		}
	}
}

// Feedback labels the most recent sample with the wearer's judgement and
// stores it as a training sample.
func (s *Session) Feedback(good bool) (classifier.LabeledSample, error) {
	s.mu.Lock()
	sample := s.lastSample
	s.mu.Unlock()

	if sample == nil {
		return classifier.LabeledSample{}, ErrNoSample
	}

	ls := classifier.LabeledSample{Sample: *sample, Good: good}
	if s.store != nil {
		if err := s.store.AppendTrainingSample(ls); err != nil {
			return classifier.LabeledSample{}, err
		}
	}
	return ls, nil
}

// CalibrateNow forces the estimator baseline to the most recent sample's
// orientation.
func (s *Session) CalibrateNow() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastSample == nil {
		return ErrNoSample
	}
	s.estimator.CalibrateNow(s.lastSample.PitchDeg, s.lastSample.RollDeg)
	s.lastState = s.estimator.State()
	return nil
}

// Reset returns the estimator to its uncalibrated state, e.g. after the
// device disconnects.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.estimator.Reset()
	s.lastState = s.estimator.State()
	s.lastSample = nil
}

// Snapshot returns the current estimator view.
func (s *Session) Snapshot() posture.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.estimator.Snapshot()
}

// SendCommand forwards a raw command string to the device.
func (s *Session) SendCommand(command string) error {
	return s.mux.SendCommand(command)
}
