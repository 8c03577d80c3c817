// Package config provides the JSON-backed numeric settings of the transform engine.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const settingsFile = "settings.json"

// Settings holds the tunable thresholds of the solvers and the resampler.
type Settings struct {
	// Helmert iteration stops when every update is below these tolerances.
	HelmertAngularTolerance float64 `json:"helmert_angular_tolerance"` // radians
	HelmertLinearTolerance  float64 `json:"helmert_linear_tolerance"`  // coordinate units
	HelmertMaxIterations    int     `json:"helmert_max_iterations"`

	// SingularEpsilon is the relative pivot threshold of the factorizations and
	// the absolute determinant threshold of the closed-form inversions.
	SingularEpsilon float64 `json:"singular_epsilon"`

	// Thin-plate-spline sources are rescaled into a unit box above this count.
	SplineStabilityMinPoints int `json:"spline_stability_min_points"`

	// DefaultKernel names the resampling kernel the CLIs use when none is given.
	DefaultKernel string `json:"default_kernel"`

	LogLevel string `json:"log_level,omitempty"`
}

// Default returns the settings the engine uses when no file is present.
func Default() Settings {
	return Settings{
		HelmertAngularTolerance:  1e-10,
		HelmertLinearTolerance:   1e-8,
		HelmertMaxIterations:     30,
		SingularEpsilon:          1e-14,
		SplineStabilityMinPoints: 3,
		DefaultKernel:            "nearest",
		LogLevel:                 "info",
	}
}

// Validate rejects settings the solvers cannot work with.
func (s Settings) Validate() error {
	if s.HelmertAngularTolerance <= 0 || s.HelmertLinearTolerance <= 0 {
		return fmt.Errorf("helmert tolerances must be positive, got %g and %g",
			s.HelmertAngularTolerance, s.HelmertLinearTolerance)
	}
	if s.HelmertMaxIterations < 1 {
		return fmt.Errorf("helmert_max_iterations must be at least 1, got %d", s.HelmertMaxIterations)
	}
	if s.SingularEpsilon <= 0 || s.SingularEpsilon >= 1 {
		return fmt.Errorf("singular_epsilon must be in (0,1), got %g", s.SingularEpsilon)
	}
	if s.SplineStabilityMinPoints < 0 {
		return fmt.Errorf("spline_stability_min_points must not be negative, got %d", s.SplineStabilityMinPoints)
	}
	return nil
}

// DefaultPath is ~/.config/tiepoint/settings.json.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "tiepoint", settingsFile)
}

// Load reads settings from path. Fields absent from the file keep their
// defaults; a missing file yields Default().
func Load(path string) (Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("failed to read settings: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return Default(), fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Default(), fmt.Errorf("invalid settings %s: %w", path, err)
	}
	return s, nil
}

// Save writes settings to path, creating the directory if needed.
func (s Settings) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
