package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Default tuning values. These are the single source of truth for the
// estimator and trainer constants; the Get* accessors below fall back to
// them whenever a field is absent from the loaded JSON.
const (
	DefaultWindowCapacity       = 50
	DefaultLowMotionThreshold   = 0.1
	DefaultMinBaselineSamples   = 10
	DefaultBadPostureDebounceMs = 500
	DefaultBadDegMin            = 2.0
	DefaultBadDegMax            = 12.0
	DefaultBadDegMultiplier     = 1.2
	DefaultMovingStdMultiplier  = 2.0
	DefaultMovingThreshold      = 0.5

	DefaultLearningRate       = 0.01
	DefaultMaxIterations      = 1000
	DefaultConvergenceEpsilon = 1e-4
	DefaultWeightInitRange    = 0.05
	DefaultMinTrainingSamples = 10
)

// TuningConfig holds the tunable parameters of the posture pipeline. All
// fields are optional pointers so that a partial JSON file only overrides
// the values it names; everything else keeps its default.
type TuningConfig struct {
	// Estimator params
	WindowCapacity       *int     `json:"window_capacity,omitempty"`
	LowMotionThreshold   *float64 `json:"low_motion_threshold,omitempty"`
	MinBaselineSamples   *int     `json:"min_baseline_samples,omitempty"`
	BadPostureDebounceMs *int64   `json:"bad_posture_debounce_ms,omitempty"`
	BadDegMin            *float64 `json:"bad_deg_min,omitempty"`
	BadDegMax            *float64 `json:"bad_deg_max,omitempty"`
	BadDegMultiplier     *float64 `json:"bad_deg_multiplier,omitempty"`
	MovingStdMultiplier  *float64 `json:"moving_std_multiplier,omitempty"`
	MovingThreshold      *float64 `json:"moving_threshold,omitempty"`

	// Trainer params
	LearningRate       *float64 `json:"learning_rate,omitempty"`
	MaxIterations      *int     `json:"max_iterations,omitempty"`
	ConvergenceEpsilon *float64 `json:"convergence_epsilon,omitempty"`
	WeightInitRange    *float64 `json:"weight_init_range,omitempty"`
	MinTrainingSamples *int     `json:"min_training_samples,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset. The Get*
// accessors return defaults for every field.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Fields omitted
// from the file retain their default values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that every set field is in a sane range.
func (c *TuningConfig) Validate() error {
	if c.WindowCapacity != nil && *c.WindowCapacity < 2 {
		return fmt.Errorf("window_capacity must be at least 2, got %d", *c.WindowCapacity)
	}
	if c.LowMotionThreshold != nil && *c.LowMotionThreshold <= 0 {
		return fmt.Errorf("low_motion_threshold must be positive, got %g", *c.LowMotionThreshold)
	}
	if c.MinBaselineSamples != nil && *c.MinBaselineSamples < 1 {
		return fmt.Errorf("min_baseline_samples must be at least 1, got %d", *c.MinBaselineSamples)
	}
	if c.MinBaselineSamples != nil && c.WindowCapacity != nil && *c.MinBaselineSamples > *c.WindowCapacity {
		return fmt.Errorf("min_baseline_samples %d exceeds window_capacity %d", *c.MinBaselineSamples, *c.WindowCapacity)
	}
	if c.BadPostureDebounceMs != nil && *c.BadPostureDebounceMs < 0 {
		return fmt.Errorf("bad_posture_debounce_ms must not be negative, got %d", *c.BadPostureDebounceMs)
	}
	if c.BadDegMin != nil && c.BadDegMax != nil && *c.BadDegMin > *c.BadDegMax {
		return fmt.Errorf("bad_deg_min %g exceeds bad_deg_max %g", *c.BadDegMin, *c.BadDegMax)
	}
	if c.BadDegMultiplier != nil && *c.BadDegMultiplier <= 0 {
		return fmt.Errorf("bad_deg_multiplier must be positive, got %g", *c.BadDegMultiplier)
	}
	if c.MovingStdMultiplier != nil && *c.MovingStdMultiplier < 0 {
		return fmt.Errorf("moving_std_multiplier must not be negative, got %g", *c.MovingStdMultiplier)
	}
	if c.LearningRate != nil && *c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be positive, got %g", *c.LearningRate)
	}
	if c.MaxIterations != nil && *c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1, got %d", *c.MaxIterations)
	}
	if c.ConvergenceEpsilon != nil && *c.ConvergenceEpsilon <= 0 {
		return fmt.Errorf("convergence_epsilon must be positive, got %g", *c.ConvergenceEpsilon)
	}
	if c.WeightInitRange != nil && *c.WeightInitRange < 0 {
		return fmt.Errorf("weight_init_range must not be negative, got %g", *c.WeightInitRange)
	}
	if c.MinTrainingSamples != nil && *c.MinTrainingSamples < 1 {
		return fmt.Errorf("min_training_samples must be at least 1, got %d", *c.MinTrainingSamples)
	}
	return nil
}

// GetWindowCapacity returns the rolling window capacity.
func (c *TuningConfig) GetWindowCapacity() int {
	if c != nil && c.WindowCapacity != nil {
		return *c.WindowCapacity
	}
	return DefaultWindowCapacity
}

// GetLowMotionThreshold returns the movement magnitude below which a sample
// is eligible for baseline learning.
func (c *TuningConfig) GetLowMotionThreshold() float64 {
	if c != nil && c.LowMotionThreshold != nil {
		return *c.LowMotionThreshold
	}
	return DefaultLowMotionThreshold
}

// GetMinBaselineSamples returns the minimum low-motion samples before the
// baseline is considered learned.
func (c *TuningConfig) GetMinBaselineSamples() int {
	if c != nil && c.MinBaselineSamples != nil {
		return *c.MinBaselineSamples
	}
	return DefaultMinBaselineSamples
}

// GetBadPostureDebounceMs returns how long a pitch deviation must be
// sustained before the state confirms as bad.
func (c *TuningConfig) GetBadPostureDebounceMs() int64 {
	if c != nil && c.BadPostureDebounceMs != nil {
		return *c.BadPostureDebounceMs
	}
	return DefaultBadPostureDebounceMs
}

// GetBadDegMin returns the lower clamp of the adaptive bad-posture threshold.
func (c *TuningConfig) GetBadDegMin() float64 {
	if c != nil && c.BadDegMin != nil {
		return *c.BadDegMin
	}
	return DefaultBadDegMin
}

// GetBadDegMax returns the upper clamp of the adaptive bad-posture threshold.
func (c *TuningConfig) GetBadDegMax() float64 {
	if c != nil && c.BadDegMax != nil {
		return *c.BadDegMax
	}
	return DefaultBadDegMax
}

// GetBadDegMultiplier returns the stddev multiplier for the bad threshold.
func (c *TuningConfig) GetBadDegMultiplier() float64 {
	if c != nil && c.BadDegMultiplier != nil {
		return *c.BadDegMultiplier
	}
	return DefaultBadDegMultiplier
}

// GetMovingStdMultiplier returns the stddev multiplier for the moving
// threshold.
func (c *TuningConfig) GetMovingStdMultiplier() float64 {
	if c != nil && c.MovingStdMultiplier != nil {
		return *c.MovingStdMultiplier
	}
	return DefaultMovingStdMultiplier
}

// GetMovingThreshold returns the moving threshold used before any movement
// history has accumulated.
func (c *TuningConfig) GetMovingThreshold() float64 {
	if c != nil && c.MovingThreshold != nil {
		return *c.MovingThreshold
	}
	return DefaultMovingThreshold
}

// GetLearningRate returns the gradient descent learning rate.
func (c *TuningConfig) GetLearningRate() float64 {
	if c != nil && c.LearningRate != nil {
		return *c.LearningRate
	}
	return DefaultLearningRate
}

// GetMaxIterations returns the gradient descent iteration cap.
func (c *TuningConfig) GetMaxIterations() int {
	if c != nil && c.MaxIterations != nil {
		return *c.MaxIterations
	}
	return DefaultMaxIterations
}

// GetConvergenceEpsilon returns the early-stop MSE threshold.
func (c *TuningConfig) GetConvergenceEpsilon() float64 {
	if c != nil && c.ConvergenceEpsilon != nil {
		return *c.ConvergenceEpsilon
	}
	return DefaultConvergenceEpsilon
}

// GetWeightInitRange returns the half-width of the uniform weight
// initialization interval.
func (c *TuningConfig) GetWeightInitRange() float64 {
	if c != nil && c.WeightInitRange != nil {
		return *c.WeightInitRange
	}
	return DefaultWeightInitRange
}

// GetMinTrainingSamples returns the smallest batch a training run accepts.
func (c *TuningConfig) GetMinTrainingSamples() int {
	if c != nil && c.MinTrainingSamples != nil {
		return *c.MinTrainingSamples
	}
	return DefaultMinTrainingSamples
}
