package telemetry

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CalibrationPrefix marks out-of-band status lines from the device.
const CalibrationPrefix = "CAL:"

// Status tokens the device emits after the calibration prefix.
const (
	tokenStartGood = "START_GOOD"
	tokenStartBad  = "START_BAD"
	tokenDoneGood  = "DONE_GOOD"
	tokenDoneBad   = "DONE_BAD"
	tokenDone      = "DONE"
)

// IsCalibrationLine reports whether line is an out-of-band calibration
// status message rather than a telemetry record.
func IsCalibrationLine(line string) bool {
	return strings.HasPrefix(line, CalibrationPrefix)
}

// ParseCalibration decodes a calibration status line. Unrecognized tokens
// yield StatusUnknown with the raw token preserved; they are never an error.
func ParseCalibration(line string) CalibrationMessage {
	token := strings.TrimSpace(strings.TrimPrefix(line, CalibrationPrefix))
	msg := CalibrationMessage{Raw: token}

	switch token {
	case tokenStartGood:
		msg.Status, msg.Step = StatusStepStart, StepGood
	case tokenStartBad:
		msg.Status, msg.Step = StatusStepStart, StepBad
	case tokenDoneGood:
		msg.Status, msg.Step = StatusStepDone, StepGood
	case tokenDoneBad:
		msg.Status, msg.Step = StatusStepDone, StepBad
	case tokenDone:
		msg.Status = StatusDone
	}
	return msg
}

// ParseSample builds a Sample from a telemetry line of whitespace-separated
// key=value tokens. Keys are case-sensitive and order-independent; unknown
// keys and malformed tokens are skipped. A value that fails numeric parsing
// makes the whole line unusable and is reported as an error so the caller
// can drop it without disturbing the stream.
func ParseSample(line string) (Sample, error) {
	var s Sample
	var pitchSet, rollSet, moveSet bool

	for _, token := range strings.Fields(line) {
		key, value, ok := splitToken(token)
		if !ok {
			continue
		}

		switch key {
		case "ax", "ay", "az", "gx", "gy", "gz":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return Sample{}, fmt.Errorf("bad %s value %q: %w", key, value, err)
			}
			switch key {
			case "ax":
				s.Ax = f
			case "ay":
				s.Ay = f
			case "az":
				s.Az = f
			case "gx":
				s.Gx = f
			case "gy":
				s.Gy = f
			case "gz":
				s.Gz = f
			}
		case "pitch", "roll", "move":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return Sample{}, fmt.Errorf("bad %s value %q: %w", key, value, err)
			}
			switch key {
			case "pitch":
				s.PitchDeg, pitchSet = f, true
			case "roll":
				s.RollDeg, rollSet = f, true
			case "move":
				// Movement is a magnitude; negative wire values clamp
				// to zero like the derived path.
				s.Movement, moveSet = math.Max(0, f), true
			}
		case "ts":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return Sample{}, fmt.Errorf("bad ts value %q: %w", value, err)
			}
			s.TimestampMs = ts
		case "posture":
			good := strings.EqualFold(value, "GOOD")
			s.DeviceGood = &good
		}
	}

	// The higher-fidelity wire format carries only the raw acceleration
	// vector; orientation and movement are derived here. Explicit pitch,
	// roll, or move keys from the low-rate format take precedence.
	if !pitchSet {
		s.PitchDeg = PitchFromAccel(s.Ax, s.Ay, s.Az)
	}
	if !rollSet {
		s.RollDeg = RollFromAccel(s.Ay, s.Az)
	}
	if !moveSet {
		s.Movement = MovementFromAccel(s.Ax, s.Ay, s.Az)
	}

	return s, nil
}

// splitToken splits a key=value token. Tokens without an equals sign, or
// with more than one, are malformed and skipped.
func splitToken(token string) (key, value string, ok bool) {
	if strings.Count(token, "=") != 1 {
		return "", "", false
	}
	key, value, _ = strings.Cut(token, "=")
	if key == "" {
		return "", "", false
	}
	return key, value, true
}

// PitchFromAccel derives the pitch angle in degrees from the acceleration
// vector.
func PitchFromAccel(ax, ay, az float64) float64 {
	return math.Atan2(ax, math.Sqrt(ay*ay+az*az)) * 180 / math.Pi
}

// RollFromAccel derives the roll angle in degrees from the acceleration
// vector.
func RollFromAccel(ay, az float64) float64 {
	return math.Atan2(ay, az) * 180 / math.Pi
}

// MovementFromAccel removes the 1g gravity baseline from the acceleration
// magnitude, clamped at zero.
func MovementFromAccel(ax, ay, az float64) float64 {
	return math.Max(0, math.Sqrt(ax*ax+ay*ay+az*az)-1)
}
