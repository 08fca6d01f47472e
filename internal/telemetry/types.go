// Package telemetry turns the wearable's line-oriented byte stream into
// structured samples and calibration messages.
package telemetry

// Sample is one orientation observation decoded from a telemetry line. It is
// immutable once built: the parser derives pitch, roll, and movement from the
// raw acceleration vector and callers only read from it.
type Sample struct {
	PitchDeg float64
	RollDeg  float64

	// Movement is the acceleration magnitude with the 1g gravity baseline
	// removed, clamped at zero.
	Movement float64

	Ax, Ay, Az float64
	Gx, Gy, Gz float64

	TimestampMs int64

	// DeviceGood is the device-reported posture flag, nil when the line did
	// not carry one.
	DeviceGood *bool
}

// AccelVector returns the 3-axis acceleration tuple.
func (s Sample) AccelVector() [3]float64 {
	return [3]float64{s.Ax, s.Ay, s.Az}
}

// SensorVector returns the full 6-axis accel+gyro tuple used by the
// classifier's descriptive statistics.
func (s Sample) SensorVector() [6]float64 {
	return [6]float64{s.Ax, s.Ay, s.Az, s.Gx, s.Gy, s.Gz}
}

// CalibrationStep identifies which calibration pose a status message refers
// to, where the protocol distinguishes one.
type CalibrationStep int

const (
	StepNone CalibrationStep = iota
	StepGood
	StepBad
)

// CalibrationStatus classifies an out-of-band calibration line.
type CalibrationStatus int

const (
	StatusUnknown CalibrationStatus = iota
	StatusStepStart
	StatusStepDone
	StatusDone
)

// CalibrationMessage is a decoded out-of-band status line. Unknown tokens
// are passed through with StatusUnknown so callers can ignore them without
// the decoder dropping the line.
type CalibrationMessage struct {
	Status CalibrationStatus
	Step   CalibrationStep

	// Raw is the status token as received, useful for logging.
	Raw string
}
