package classifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReportSectionsAndLabels(t *testing.T) {
	t.Parallel()

	m := &Model{
		WeightPitch:           -0.25,
		Bias:                  0.5,
		GoodVector:            [6]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6},
		BadRadius:             1.25,
		SensitivityMultiplier: 2,
		ConfidenceScore:       0.875,
		TrainedSampleCount:    32,
		LastTrainedAtMs:       1700000000000,
	}

	report := m.Report()

	for _, section := range []string{"[weights]", "[vectors]", "[thresholds]", "[metrics]"} {
		assert.Contains(t, report, section)
	}

	assert.Contains(t, report, "weight_pitch = -0.250000")
	assert.Contains(t, report, "bias = 0.500000")
	assert.Contains(t, report, "good_ax = 0.100000")
	assert.Contains(t, report, "bad_gz = 0.000000")
	assert.Contains(t, report, "bad_radius = 1.250000")
	assert.Contains(t, report, "confidence_score = 0.875000")
	assert.Contains(t, report, "trained_sample_count = 32")
	assert.Contains(t, report, "last_trained_at_ms = 1700000000000")
}

// Every line after the header is either blank, a section marker, or a
// `label = value` pair.
func TestReportLineFormat(t *testing.T) {
	t.Parallel()

	lines := strings.Split(strings.TrimRight(NewModel().Report(), "\n"), "\n")
	for _, line := range lines[2:] {
		if line == "" || strings.HasPrefix(line, "[") {
			continue
		}
		assert.Contains(t, line, " = ", "line %q", line)
	}
}
