package classifier

// Parameter names for the flat persisted mapping. The storage layer treats
// these as opaque name/value rows; loading tolerates missing fields via
// per-field defaults so a partially written or schema-evolved set degrades
// gracefully instead of failing to load.
const (
	ParamWeightPitch    = "weight_pitch"
	ParamWeightRoll     = "weight_roll"
	ParamWeightMovement = "weight_movement"
	ParamBias           = "bias"

	ParamBadRadius             = "bad_radius"
	ParamStabilityIndex        = "stability_index"
	ParamSensitivityMultiplier = "sensitivity_multiplier"
	ParamMotionIgnoreLevel     = "motion_ignore_level"
	ParamConfidenceScore       = "confidence_score"
	ParamTrainedSampleCount    = "trained_sample_count"
	ParamLastTrainedAtMs       = "last_trained_at_ms"
)

// vectorParamNames returns the persisted names of the six channels of the
// good or bad class-mean vector, e.g. good_ax .. good_gz.
func vectorParamNames(prefix string) [6]string {
	return [6]string{
		prefix + "_ax", prefix + "_ay", prefix + "_az",
		prefix + "_gx", prefix + "_gy", prefix + "_gz",
	}
}

// Params flattens the model into a name→value mapping for persistence.
func (m *Model) Params() map[string]float64 {
	params := map[string]float64{
		ParamWeightPitch:           m.WeightPitch,
		ParamWeightRoll:            m.WeightRoll,
		ParamWeightMovement:        m.WeightMovement,
		ParamBias:                  m.Bias,
		ParamBadRadius:             m.BadRadius,
		ParamStabilityIndex:        m.StabilityIndex,
		ParamSensitivityMultiplier: m.SensitivityMultiplier,
		ParamMotionIgnoreLevel:     m.MotionIgnoreLevel,
		ParamConfidenceScore:       m.ConfidenceScore,
		ParamTrainedSampleCount:    float64(m.TrainedSampleCount),
		ParamLastTrainedAtMs:       float64(m.LastTrainedAtMs),
	}
	for i, name := range vectorParamNames("good") {
		params[name] = m.GoodVector[i]
	}
	for i, name := range vectorParamNames("bad") {
		params[name] = m.BadVector[i]
	}
	return params
}

// LoadParams builds a model from a flat parameter mapping. Missing fields
// fall back to their defaults: weights, bias, vectors, and most statistics
// to 0, sensitivity_multiplier to 1.0, motion_ignore_level to 0.5.
func LoadParams(params map[string]float64) *Model {
	m := &Model{
		WeightPitch:           get(params, ParamWeightPitch, 0),
		WeightRoll:            get(params, ParamWeightRoll, 0),
		WeightMovement:        get(params, ParamWeightMovement, 0),
		Bias:                  get(params, ParamBias, 0),
		BadRadius:             get(params, ParamBadRadius, 0),
		StabilityIndex:        get(params, ParamStabilityIndex, 0),
		SensitivityMultiplier: get(params, ParamSensitivityMultiplier, 1.0),
		MotionIgnoreLevel:     get(params, ParamMotionIgnoreLevel, 0.5),
		ConfidenceScore:       get(params, ParamConfidenceScore, 0),
		TrainedSampleCount:    int(get(params, ParamTrainedSampleCount, 0)),
		LastTrainedAtMs:       int64(get(params, ParamLastTrainedAtMs, 0)),
	}
	for i, name := range vectorParamNames("good") {
		m.GoodVector[i] = get(params, name, 0)
	}
	for i, name := range vectorParamNames("bad") {
		m.BadVector[i] = get(params, name, 0)
	}
	return m
}

func get(params map[string]float64, name string, def float64) float64 {
	if v, ok := params[name]; ok {
		return v
	}
	return def
}
