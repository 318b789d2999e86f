// Package config persists the analyzer settings between sessions.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/user/cac_analyzer_go/internal/analysis"
)

// Config holds the user adjustable analysis and plot settings.
type Config struct {
	PeakWindows       analysis.PeakWindows `json:"peak_windows"`
	Criterion         analysis.Criterion   `json:"criterion"`
	ParallelTolerance float64              `json:"parallel_tolerance"`
	PlotWidthPt       float64              `json:"plot_width_pt"`
	PlotHeightPt      float64              `json:"plot_height_pt"`
	LastDirectory     string               `json:"last_directory"`
}

// Default returns the settings used when no config file exists.
func Default() Config {
	return Config{
		PeakWindows:       analysis.DefaultPeakWindows(),
		Criterion:         analysis.CriterionRMSE,
		ParallelTolerance: analysis.DefaultParallelTolerance,
		PlotWidthPt:       800,
		PlotHeightPt:      500,
	}
}

// DefaultDir returns ~/.cac_analyzer, or ./.cac_analyzer if the home
// directory is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".cac_analyzer")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.json")
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if err := c.PeakWindows.Validate(); err != nil {
		return fmt.Errorf("peak windows: %w", err)
	}
	if _, err := analysis.ParseCriterion(string(c.Criterion)); err != nil {
		return err
	}
	if !(c.ParallelTolerance > 0) {
		return fmt.Errorf("parallel tolerance must be positive, got %g", c.ParallelTolerance)
	}
	if c.PlotWidthPt <= 0 || c.PlotHeightPt <= 0 {
		return fmt.Errorf("plot size must be positive, got %gx%g", c.PlotWidthPt, c.PlotHeightPt)
	}
	return nil
}

// AnalysisOptions converts the config into pipeline options.
func (c Config) AnalysisOptions() analysis.Options {
	return analysis.Options{
		Windows:           c.PeakWindows,
		Criterion:         c.Criterion,
		ParallelTolerance: c.ParallelTolerance,
	}
}

// Load reads the config at path. A missing file yields Default with no error.
// Fields absent from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	cfg.Criterion, _ = analysis.ParseCriterion(string(cfg.Criterion))
	return cfg, nil
}

// Save writes cfg to path, creating parent directories as needed.
func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
