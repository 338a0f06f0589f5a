package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"trainload/internal/analysis"
)

// Config represents the application configuration
type Config struct {
	Athlete   AthleteConfig   `json:"athlete"`
	Analysis  AnalysisConfig  `json:"analysis"`
	Scanner   ScannerConfig   `json:"scanner"`
	Threshold ThresholdConfig `json:"threshold"`
	Metrics   MetricsConfig   `json:"metrics"`
	Storage   StorageConfig   `json:"storage"`
	Export    ExportConfig    `json:"export"`
}

// AthleteConfig holds athlete-specific settings. Zero or negative values are
// accepted by the analysis and leave the dependent metrics undefined.
type AthleteConfig struct {
	FTP         float64 `json:"ftp_w" validate:"gte=0"`
	ThresholdHR float64 `json:"hr_threshold_bpm" validate:"gte=0"`
}

// AnalysisConfig selects the window scanner behaviour
type AnalysisConfig struct {
	WindowMinutes float64 `json:"window_minutes" validate:"gte=5,lte=180"`
	Mode          string  `json:"mode" validate:"oneof=best decoupling_valid"`
	Sport         string  `json:"sport" validate:"oneof=auto bike run"`
}

// ScannerConfig holds the decoupling_valid gates
type ScannerConfig struct {
	MinHRCoverageGlobal float64 `json:"min_hr_coverage_global" validate:"gte=0,lte=1"`
	MinHRCoverageWindow float64 `json:"min_hr_coverage_window" validate:"gte=0,lte=1"`
	MaxCV               float64 `json:"max_cv" validate:"gt=0"`
}

// ThresholdConfig holds the VT2 estimator heuristics
type ThresholdConfig struct {
	WindowSamples      int     `json:"window_samples" validate:"gte=10"`
	RampMin            float64 `json:"ramp_min_w_per_min" validate:"gte=0"`
	HRFlatMax          float64 `json:"hr_flat_max_bpm_per_min" validate:"gt=0"`
	EffSlopeMax        float64 `json:"efficiency_slope_max" validate:"gt=0"`
	CurvatureThreshold float64 `json:"curvature_threshold" validate:"gte=0"`
	TauPowerS          float64 `json:"tau_power_s"`
	TauHRS             float64 `json:"tau_hr_s"`
	TauEfficiencyS     float64 `json:"tau_efficiency_s"`
	BandLowPct         float64 `json:"band_low_pct" validate:"gte=0,lte=100"`
	BandHighPct        float64 `json:"band_high_pct" validate:"gtefield=BandLowPct,lte=100"`
}

// MetricsConfig holds the auxiliary series windows
type MetricsConfig struct {
	RollingWindowSeconds float64 `json:"rolling_window_s" validate:"gt=0"`
	DisplaySmoothSeconds float64 `json:"display_smooth_s" validate:"gt=0"`
	FillHRGaps           bool    `json:"fill_hr_gaps"`
	HRFillSeconds        float64 `json:"hr_fill_s" validate:"gt=0"`
}

// StorageConfig locates the history database
type StorageConfig struct {
	DBPath string `json:"db_path,omitempty"` // default ~/.trainload/history.db
}

// ExportConfig controls per-sample exports
type ExportConfig struct {
	Format string `json:"format" validate:"oneof=parquet csv"`
	Dir    string `json:"dir,omitempty"`
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	scan := analysis.DefaultScanOptions()
	thr := analysis.DefaultThresholdConfig()
	met := analysis.DefaultMetricsConfig()

	return Config{
		Athlete: AthleteConfig{
			FTP:         250,
			ThresholdHR: 165,
		},
		Analysis: AnalysisConfig{
			WindowMinutes: 20,
			Mode:          string(analysis.ModeBest),
			Sport:         string(analysis.SportAuto),
		},
		Scanner: ScannerConfig{
			MinHRCoverageGlobal: scan.MinHRCoverageGlobal,
			MinHRCoverageWindow: scan.MinHRCoverageWindow,
			MaxCV:               scan.MaxCV,
		},
		Threshold: ThresholdConfig{
			WindowSamples:      thr.WindowSamples,
			RampMin:            thr.RampMin,
			HRFlatMax:          thr.HRFlatMax,
			EffSlopeMax:        thr.EffSlopeMax,
			CurvatureThreshold: thr.CurvatureThreshold,
			TauPowerS:          thr.TauPower,
			TauHRS:             thr.TauHR,
			TauEfficiencyS:     thr.TauEfficiency,
			BandLowPct:         thr.BandLowPct,
			BandHighPct:        thr.BandHighPct,
		},
		Metrics: MetricsConfig{
			RollingWindowSeconds: met.RollingWindowSeconds,
			DisplaySmoothSeconds: met.DisplaySmoothSeconds,
			FillHRGaps:           met.FillHRGaps,
			HRFillSeconds:        met.HRFillSeconds,
		},
		Export: ExportConfig{
			Format: "parquet",
		},
	}
}

// Load reads the configuration from ~/.trainload/config.json
func Load() (*Config, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the configuration from path, filling unset values with defaults
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNoConfig
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// keys missing from the file keep their defaults; explicit zeros stick
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return &cfg, nil
}

// Save writes the configuration to ~/.trainload/config.json
func Save(cfg *Config) error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

// SaveTo writes the configuration to path
func SaveTo(path string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample creates an example config file if none exists and returns its path
func CreateExample() (string, error) {
	path, err := getConfigPath()
	if err != nil {
		return "", err
	}

	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return path, nil // Config exists, don't overwrite
	}

	example := DefaultConfig()
	return path, SaveTo(path, &example)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report json names so errors match the config file
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks value ranges
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating config: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		msgs = append(msgs, fmt.Sprintf("%s: %v fails %s", field, fe.Value(), describeRule(fe.Tag(), fe.Param())))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func describeRule(tag, param string) string {
	switch tag {
	case "gte":
		return ">= " + param
	case "lte":
		return "<= " + param
	case "gt":
		return "> " + param
	case "oneof":
		return "one of [" + param + "]"
	case "gtefield":
		return ">= " + param
	}
	return tag
}

// Params returns the per-run analysis parameters
func (c *Config) Params() analysis.Params {
	return analysis.Params{
		FTP:           c.Athlete.FTP,
		ThresholdHR:   c.Athlete.ThresholdHR,
		WindowMinutes: c.Analysis.WindowMinutes,
		Mode:          analysis.WindowMode(c.Analysis.Mode),
		Sport:         analysis.Sport(c.Analysis.Sport),
	}
}

// AnalysisConfig returns the tuning for every analysis component
func (c *Config) AnalysisConfig() analysis.Config {
	cfg := analysis.DefaultConfig()

	cfg.Scan.MinHRCoverageGlobal = c.Scanner.MinHRCoverageGlobal
	cfg.Scan.MinHRCoverageWindow = c.Scanner.MinHRCoverageWindow
	cfg.Scan.MaxCV = c.Scanner.MaxCV

	cfg.Threshold.WindowSamples = c.Threshold.WindowSamples
	cfg.Threshold.RampMin = c.Threshold.RampMin
	cfg.Threshold.HRFlatMax = c.Threshold.HRFlatMax
	cfg.Threshold.EffSlopeMax = c.Threshold.EffSlopeMax
	cfg.Threshold.CurvatureThreshold = c.Threshold.CurvatureThreshold
	cfg.Threshold.TauPower = c.Threshold.TauPowerS
	cfg.Threshold.TauHR = c.Threshold.TauHRS
	cfg.Threshold.TauEfficiency = c.Threshold.TauEfficiencyS
	cfg.Threshold.BandLowPct = c.Threshold.BandLowPct
	cfg.Threshold.BandHighPct = c.Threshold.BandHighPct

	cfg.Metrics.RollingWindowSeconds = c.Metrics.RollingWindowSeconds
	cfg.Metrics.DisplaySmoothSeconds = c.Metrics.DisplaySmoothSeconds
	cfg.Metrics.FillHRGaps = c.Metrics.FillHRGaps
	cfg.Metrics.HRFillSeconds = c.Metrics.HRFillSeconds

	return cfg
}

// DBPath returns the history database location
func (c *Config) DBPath() (string, error) {
	if c.Storage.DBPath != "" {
		return c.Storage.DBPath, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".trainload"), nil
}
