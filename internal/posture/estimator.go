package posture

import (
	"math"

	"github.com/banshee-data/posture.report/internal/config"
)

// State is the estimator's externally visible posture classification.
type State int

const (
	// StateNotCalibrated is the initial state, held until a baseline
	// orientation has been learned or forced.
	StateNotCalibrated State = iota
	// StateOk means posture is within the adaptive deviation bound.
	StateOk
	// StateBad means pitch deviation has exceeded the bound for at least
	// the debounce duration.
	StateBad
	// StateMoving means movement magnitude exceeds the adaptive moving
	// threshold; it takes priority over the deviation check.
	StateMoving
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateNotCalibrated:
		return "not_calibrated"
	case StateOk:
		return "ok"
	case StateBad:
		return "bad"
	case StateMoving:
		return "moving"
	}
	return "unknown"
}

// Snapshot is a read-only view of the estimator for the API layer.
type Snapshot struct {
	State           State   `json:"state"`
	StateName       string  `json:"state_name"`
	Calibrated      bool    `json:"calibrated"`
	BaselinePitch   float64 `json:"baseline_pitch_deg"`
	BaselineRoll    float64 `json:"baseline_roll_deg"`
	BadDeg          float64 `json:"bad_deg"`
	MovingThreshold float64 `json:"moving_threshold"`
	SampleCount     int64   `json:"sample_count"`
}

// Estimator consumes one sample at a time, learns a baseline orientation
// during low-motion periods, and emits a debounced posture state. A single
// mutable instance belongs to one connected session; it is not safe for
// concurrent ingestion.
type Estimator struct {
	cfg *config.TuningConfig

	movements  *RollingWindow
	pitchDevs  *RollingWindow
	basePitch  *RollingWindow
	baseRoll   *RollingWindow
	calibrated bool

	baselinePitch float64
	baselineRoll  float64

	badDeg          float64
	movingThreshold float64

	// badSinceMs is the timestamp of the first unconfirmed bad-posture
	// sample, or -1 when no candidate is pending.
	badSinceMs   int64
	badConfirmed bool

	state       State
	sampleCount int64
}

// NewEstimator creates an estimator in StateNotCalibrated using the given
// tuning. A nil config uses defaults throughout.
func NewEstimator(cfg *config.TuningConfig) *Estimator {
	capacity := cfg.GetWindowCapacity()
	return &Estimator{
		cfg:             cfg,
		movements:       NewRollingWindow(capacity),
		pitchDevs:       NewRollingWindow(capacity),
		basePitch:       NewRollingWindow(capacity),
		baseRoll:        NewRollingWindow(capacity),
		badDeg:          cfg.GetBadDegMin(),
		movingThreshold: cfg.GetMovingThreshold(),
		badSinceMs:      -1,
		state:           StateNotCalibrated,
	}
}

// Ingest processes one sample and returns the resulting posture state.
// Timestamps must be monotonically non-decreasing within a session; the
// debounce is computed from them, not from wall-clock time.
func (e *Estimator) Ingest(pitchDeg, rollDeg, movement float64, timestampMs int64) State {
	e.sampleCount++
	e.movements.Push(movement)

	if !e.calibrated {
		e.learnBaseline(pitchDeg, rollDeg, movement)
		return e.state
	}

	pitchDeviation := math.Abs(pitchDeg - e.baselinePitch)
	e.pitchDevs.Push(pitchDeviation)
	e.updateThresholds()

	switch {
	case movement > e.movingThreshold:
		// Movement takes priority: a moving wearer is not slouching, and
		// an in-progress deviation run no longer counts as sustained.
		e.state = StateMoving
		e.clearDebounce()

	case pitchDeviation > e.badDeg:
		switch {
		case e.badConfirmed:
			e.state = StateBad
		case e.badSinceMs < 0:
			e.badSinceMs = timestampMs
			e.state = StateOk
		case timestampMs-e.badSinceMs >= e.cfg.GetBadPostureDebounceMs():
			e.badConfirmed = true
			e.state = StateBad
		default:
			e.state = StateOk
		}

	default:
		e.state = StateOk
		e.clearDebounce()
	}

	return e.state
}

// learnBaseline records low-motion samples until enough have accumulated to
// average into a baseline orientation.
func (e *Estimator) learnBaseline(pitchDeg, rollDeg, movement float64) {
	if movement >= e.cfg.GetLowMotionThreshold() {
		return
	}

	e.basePitch.Push(pitchDeg)
	e.baseRoll.Push(rollDeg)

	if e.basePitch.Len() < e.cfg.GetMinBaselineSamples() {
		return
	}

	e.baselinePitch = e.basePitch.Mean()
	e.baselineRoll = e.baseRoll.Mean()
	e.calibrated = true
	e.state = StateOk
}

// updateThresholds recomputes the adaptive thresholds from the rolling
// windows. Recomputed on every ingestion so the thresholds track the
// wearer's recent behaviour.
func (e *Estimator) updateThresholds() {
	e.badDeg = clamp(
		e.cfg.GetBadDegMultiplier()*e.pitchDevs.StdDev(),
		e.cfg.GetBadDegMin(),
		e.cfg.GetBadDegMax(),
	)
	e.movingThreshold = e.movements.Mean() + e.cfg.GetMovingStdMultiplier()*e.movements.StdDev()
}

func (e *Estimator) clearDebounce() {
	e.badSinceMs = -1
	e.badConfirmed = false
}

// CalibrateNow force-sets the baseline orientation, bypassing automatic
// learning, and moves the estimator to StateOk.
func (e *Estimator) CalibrateNow(pitchDeg, rollDeg float64) {
	e.baselinePitch = pitchDeg
	e.baselineRoll = rollDeg
	e.calibrated = true
	e.clearDebounce()
	e.state = StateOk
}

// Reset returns the estimator to its initial state: windows emptied,
// baseline forgotten, thresholds back to defaults. Called on disconnect or
// explicit recalibration.
func (e *Estimator) Reset() {
	e.movements.Clear()
	e.pitchDevs.Clear()
	e.basePitch.Clear()
	e.baseRoll.Clear()
	e.calibrated = false
	e.baselinePitch = 0
	e.baselineRoll = 0
	e.badDeg = e.cfg.GetBadDegMin()
	e.movingThreshold = e.cfg.GetMovingThreshold()
	e.clearDebounce()
	e.state = StateNotCalibrated
	e.sampleCount = 0
}

// State returns the current posture state.
func (e *Estimator) State() State { return e.state }

// Calibrated reports whether a baseline has been learned or forced.
func (e *Estimator) Calibrated() bool { return e.calibrated }

// Baseline returns the learned baseline pitch and roll in degrees.
func (e *Estimator) Baseline() (pitchDeg, rollDeg float64) {
	return e.baselinePitch, e.baselineRoll
}

// Snapshot returns a copy of the externally relevant estimator state.
func (e *Estimator) Snapshot() Snapshot {
	return Snapshot{
		State:           e.state,
		StateName:       e.state.String(),
		Calibrated:      e.calibrated,
		BaselinePitch:   e.baselinePitch,
		BaselineRoll:    e.baselineRoll,
		BadDeg:          e.badDeg,
		MovingThreshold: e.movingThreshold,
		SampleCount:     e.sampleCount,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
