// Package config provides configuration loading for the segregation model.
// It supports YAML files, named variant presets, and environment overrides.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrDimensions indicates a non-positive grid width or height.
	ErrDimensions = errors.New("config: width and height must be positive")
	// ErrFraction indicates a probability outside [0, 1].
	ErrFraction = errors.New("config: value must be within [0, 1]")
	// ErrThreshold indicates a homophily threshold invalid for its policy.
	ErrThreshold = errors.New("config: invalid homophily threshold")
	// ErrRunLength indicates a run length outside [0, 8].
	ErrRunLength = errors.New("config: run length must be within [0, 8]")
	// ErrUnknownPolicy indicates an unrecognized policy name.
	ErrUnknownPolicy = errors.New("config: unknown policy")
	// ErrUnknownPreset indicates an unrecognized preset name.
	ErrUnknownPreset = errors.New("config: unknown preset")
	// ErrInvalid indicates any other out-of-range setting.
	ErrInvalid = errors.New("config: invalid setting")
)

// Happiness policy names.
const (
	HappinessAbsolute = "absolute"
	HappinessFraction = "fraction"
)

// Eligibility policy names.
const (
	EligibleAnywhere      = "anywhere"
	EligibleComposition   = "composition"
	EligibleSocioeconomic = "socioeconomic"
	EligibleRunLength     = "runlength"
)

// Config contains all settings.
type Config struct {
	Model   ModelConfig   `json:"model" yaml:"model"`
	Run     RunConfig     `json:"run" yaml:"run"`
	Storage StorageConfig `json:"storage" yaml:"storage"`
	Server  ServerConfig  `json:"server" yaml:"server"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
	Batch   BatchConfig   `json:"batch" yaml:"batch"`
}

// ModelConfig is the configuration surface consumed by the model itself.
type ModelConfig struct {
	// Preset names the variant the rule settings were derived from.
	Preset string `json:"preset" yaml:"preset"`

	Width  int  `json:"width" yaml:"width"`
	Height int  `json:"height" yaml:"height"`
	Torus  bool `json:"torus" yaml:"torus"`

	Density    float64 `json:"density" yaml:"density"`
	MinorityPC float64 `json:"minority_pc" yaml:"minority_pc"`

	Happiness   HappinessConfig   `json:"happiness" yaml:"happiness"`
	Eligibility EligibilityConfig `json:"eligibility" yaml:"eligibility"`

	// Termination: "all-happy", "no-movement", or "either".
	Termination string `json:"termination" yaml:"termination"`

	// Clustering biases initial kinds with a noise field. 0 is uniform.
	Clustering float64 `json:"clustering" yaml:"clustering"`
}

// HappinessConfig selects the homophily rule.
type HappinessConfig struct {
	// Policy: "absolute" (count of like neighbors) or "fraction" (share).
	Policy string `json:"policy" yaml:"policy"`

	// Threshold is a whole neighbor count in [0, 8] for "absolute" and a
	// share in [0, 1] for "fraction".
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// EligibilityConfig selects which empty cells each kind may move into.
type EligibilityConfig struct {
	// Policy: "anywhere", "composition", "socioeconomic", or "runlength".
	Policy string `json:"policy" yaml:"policy"`

	// Threshold is the minimum like-neighbor share for "composition".
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// MinorityThreshold and MajorityThreshold are the per-kind shares for
	// "socioeconomic". Zero leaves the kind unconstrained.
	MinorityThreshold float64 `json:"minority_threshold" yaml:"minority_threshold"`
	MajorityThreshold float64 `json:"majority_threshold" yaml:"majority_threshold"`

	// MinorityRun and MajorityRun are the per-kind run lengths for
	// "runlength". Zero leaves the kind unconstrained.
	MinorityRun int `json:"minority_run" yaml:"minority_run"`
	MajorityRun int `json:"majority_run" yaml:"majority_run"`

	// Boundary for the snake sampler: "torus" (default) or "open".
	Boundary string `json:"boundary" yaml:"boundary"`
}

// RunConfig controls a single run.
type RunConfig struct {
	// Seed for the random source. 0 draws a fresh seed.
	Seed uint64 `json:"seed" yaml:"seed"`

	// MaxSteps caps the run. 0 means run until the model halts.
	MaxSteps int `json:"max_steps" yaml:"max_steps"`

	// SnapshotEvery stores a grid snapshot every N steps. 0 stores only the final grid.
	SnapshotEvery int `json:"snapshot_every" yaml:"snapshot_every"`
}

// StorageConfig locates the run database.
type StorageConfig struct {
	// DBPath is the SQLite file. Empty disables persistence.
	DBPath string `json:"db_path" yaml:"db_path"`
}

// ServerConfig configures the observation API.
type ServerConfig struct {
	Port int `json:"port" yaml:"port"`

	// AdminKey is the bearer token for POST endpoints. Empty disables them.
	AdminKey string `json:"-" yaml:"admin_key"`

	// Interval between steps at speed 1.
	Interval time.Duration `json:"interval" yaml:"interval"`

	// Speed multiplies the step rate. 0 means 1; pause through the API.
	Speed float64 `json:"speed" yaml:"speed"`

	// CORSOrigins lists browser origins allowed to call the API. "*" allows any.
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level: "debug", "info", "warn", or "error".
	Level string `json:"level" yaml:"level"`

	// Format: "text", "json", or "auto" (text on a terminal, else JSON).
	Format string `json:"format" yaml:"format"`
}

// BatchConfig describes a parameter sweep.
type BatchConfig struct {
	Preset     string    `json:"preset" yaml:"preset"`
	Width      int       `json:"width" yaml:"width"`
	Height     int       `json:"height" yaml:"height"`
	Density    []float64 `json:"density" yaml:"density"`
	MinorityPC []float64 `json:"minority_pc" yaml:"minority_pc"`
	Homophily  []float64 `json:"homophily" yaml:"homophily"`
	Iterations int       `json:"iterations" yaml:"iterations"`
	MaxSteps   int       `json:"max_steps" yaml:"max_steps"`
	Seed       uint64    `json:"seed" yaml:"seed"`
}

// Default returns a Config with the "composition" preset and sensible
// operational defaults.
func Default() *Config {
	model, _ := Preset(PresetComposition)
	return &Config{
		Model: model,
		Run: RunConfig{
			MaxSteps: 200,
		},
		Server: ServerConfig{
			Port:     8080,
			Interval: 500 * time.Millisecond,
			Speed:    1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
		Batch: BatchConfig{
			Preset:     PresetComposition,
			Width:      20,
			Height:     20,
			Density:    []float64{0.1, 0.2, 0.4, 0.8},
			MinorityPC: []float64{0.1, 0.2, 0.4, 0.8},
			Homophily:  []float64{0.1, 0.3, 0.6, 0.7},
			Iterations: 100,
			MaxSteps:   200,
		},
	}
}

// LoadFromFile loads configuration from a YAML file over the defaults. If
// the file names a model preset, the preset is applied first so that any
// explicit field in the file overrides it.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var head struct {
		Model struct {
			Preset string `yaml:"preset"`
		} `yaml:"model"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := Default()
	if head.Model.Preset != "" {
		model, err := Preset(head.Model.Preset)
		if err != nil {
			return nil, err
		}
		cfg.Model = model
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Load returns the defaults, overlaid with path when it is non-empty, then
// with environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if err := c.Model.Validate(); err != nil {
		return err
	}
	if c.Run.MaxSteps < 0 {
		return fmt.Errorf("%w: max_steps must be non-negative, got %d", ErrInvalid, c.Run.MaxSteps)
	}
	if c.Run.SnapshotEvery < 0 {
		return fmt.Errorf("%w: snapshot_every must be non-negative, got %d", ErrInvalid, c.Run.SnapshotEvery)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: port %d", ErrInvalid, c.Server.Port)
	}
	if c.Server.Interval < 0 || c.Server.Speed < 0 {
		return fmt.Errorf("%w: interval and speed must be non-negative", ErrInvalid)
	}
	validLevels := map[string]bool{"": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.Logging.Level)
	}
	validFormats := map[string]bool{"": true, "auto": true, "text": true, "json": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("%w: log format %q", ErrInvalid, c.Logging.Format)
	}
	return nil
}

// Validate checks the model settings and fails on the first problem.
func (m *ModelConfig) Validate() error {
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("%w: got %dx%d", ErrDimensions, m.Width, m.Height)
	}
	for name, v := range map[string]float64{
		"density":                        m.Density,
		"minority_pc":                    m.MinorityPC,
		"clustering":                     m.Clustering,
		"eligibility.threshold":          m.Eligibility.Threshold,
		"eligibility.minority_threshold": m.Eligibility.MinorityThreshold,
		"eligibility.majority_threshold": m.Eligibility.MajorityThreshold,
	} {
		if !inUnit(v) {
			return fmt.Errorf("%w: %s = %v", ErrFraction, name, v)
		}
	}

	t := m.Happiness.Threshold
	switch m.Happiness.Policy {
	case HappinessAbsolute:
		if t < 0 || t > 8 || t != math.Trunc(t) {
			return fmt.Errorf("%w: absolute threshold must be a whole count in [0, 8], got %v", ErrThreshold, t)
		}
	case HappinessFraction:
		if !inUnit(t) {
			return fmt.Errorf("%w: fraction threshold must be within [0, 1], got %v", ErrThreshold, t)
		}
	default:
		return fmt.Errorf("%w: happiness %q", ErrUnknownPolicy, m.Happiness.Policy)
	}

	switch m.Eligibility.Policy {
	case EligibleAnywhere, EligibleComposition, EligibleSocioeconomic, EligibleRunLength:
	default:
		return fmt.Errorf("%w: eligibility %q", ErrUnknownPolicy, m.Eligibility.Policy)
	}
	for _, r := range []int{m.Eligibility.MinorityRun, m.Eligibility.MajorityRun} {
		if r < 0 || r > 8 {
			return fmt.Errorf("%w: got %d", ErrRunLength, r)
		}
	}
	switch m.Eligibility.Boundary {
	case "", "torus", "open":
	default:
		return fmt.Errorf("%w: boundary %q", ErrUnknownPolicy, m.Eligibility.Boundary)
	}
	snake := m.Eligibility.Policy == EligibleSocioeconomic || m.Eligibility.Policy == EligibleRunLength
	if snake && m.Torus && (m.Width < 3 || m.Height < 3) {
		return fmt.Errorf("%w: the %s policy needs a torus at least 3x3, got %dx%d",
			ErrDimensions, m.Eligibility.Policy, m.Width, m.Height)
	}

	switch m.Termination {
	case "all-happy", "no-movement", "either":
	default:
		return fmt.Errorf("%w: termination %q", ErrUnknownPolicy, m.Termination)
	}
	return nil
}

// SetHomophily sets the happiness threshold and, for the composition
// policy, the matching eligibility threshold.
func (m *ModelConfig) SetHomophily(h float64) {
	m.Happiness.Threshold = h
	if m.Eligibility.Policy == EligibleComposition {
		m.Eligibility.Threshold = h
	}
}

// applyEnvOverrides applies SCHELLING_* environment variables.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("SCHELLING_SEED"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: SCHELLING_SEED: %v", ErrInvalid, err)
		}
		cfg.Run.Seed = n
	}
	if v := os.Getenv("SCHELLING_MAX_STEPS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: SCHELLING_MAX_STEPS: %v", ErrInvalid, err)
		}
		cfg.Run.MaxSteps = n
	}
	if v := os.Getenv("SCHELLING_DB"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("SCHELLING_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SCHELLING_ADMIN_KEY"); v != "" {
		cfg.Server.AdminKey = v
	}
	if v := os.Getenv("SCHELLING_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.Server.CORSOrigins = append(cfg.Server.CORSOrigins, o)
			}
		}
	}
	if v := os.Getenv("SCHELLING_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: SCHELLING_PORT: %v", ErrInvalid, err)
		}
		cfg.Server.Port = n
	}
	return nil
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}
