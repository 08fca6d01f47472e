package classifier

import (
	"fmt"
	"strings"
)

// Report renders the model as a plain-text, human-readable parameter dump:
// fixed sections of `label = value` lines suitable for export alongside the
// opaque persisted parameter set.
func (m *Model) Report() string {
	var b strings.Builder

	b.WriteString("posture classifier model\n")
	b.WriteString("========================\n\n")

	b.WriteString("[weights]\n")
	writeValue(&b, ParamWeightPitch, m.WeightPitch)
	writeValue(&b, ParamWeightRoll, m.WeightRoll)
	writeValue(&b, ParamWeightMovement, m.WeightMovement)
	writeValue(&b, ParamBias, m.Bias)

	b.WriteString("\n[vectors]\n")
	for i, name := range vectorParamNames("good") {
		writeValue(&b, name, m.GoodVector[i])
	}
	for i, name := range vectorParamNames("bad") {
		writeValue(&b, name, m.BadVector[i])
	}

	b.WriteString("\n[thresholds]\n")
	writeValue(&b, ParamBadRadius, m.BadRadius)
	writeValue(&b, ParamSensitivityMultiplier, m.SensitivityMultiplier)
	writeValue(&b, ParamMotionIgnoreLevel, m.MotionIgnoreLevel)

	b.WriteString("\n[metrics]\n")
	writeValue(&b, ParamStabilityIndex, m.StabilityIndex)
	writeValue(&b, ParamConfidenceScore, m.ConfidenceScore)
	fmt.Fprintf(&b, "%s = %d\n", ParamTrainedSampleCount, m.TrainedSampleCount)
	fmt.Fprintf(&b, "%s = %d\n", ParamLastTrainedAtMs, m.LastTrainedAtMs)

	return b.String()
}

func writeValue(b *strings.Builder, label string, value float64) {
	fmt.Fprintf(b, "%s = %.6f\n", label, value)
}
