// Package config handles application configuration for dispatch.
// It supports XDG config paths, project-level overrides, and environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for dispatch.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Matching   MatchingConfig   `mapstructure:"matching"`
	Gates      GatesConfig      `mapstructure:"gates"`
	Escalation EscalationConfig `mapstructure:"escalation"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// MatchingConfig holds capability matching settings.
type MatchingConfig struct {
	// MinScore is the floor below which a candidate match is dropped.
	MinScore float64 `mapstructure:"min_score"`
	// DefaultStrategy is the optimization strategy used when the caller does
	// not name one.
	DefaultStrategy string `mapstructure:"default_strategy"`
	// UsePerformanceMultiplier feeds rolling worker quality back into
	// capability scoring.
	UsePerformanceMultiplier bool `mapstructure:"use_performance_multiplier"`
}

// GatesConfig holds quality gate thresholds.
type GatesConfig struct {
	InputValidationThreshold float64 `mapstructure:"input_validation_threshold"`
	ContentReviewThreshold   float64 `mapstructure:"content_review_threshold"`
	PMApprovalThreshold      float64 `mapstructure:"pm_approval_threshold"`
}

// EscalationConfig holds escalation workflow settings.
type EscalationConfig struct {
	// DefinitionsPath points at the YAML file with resolution windows and
	// workflow steps. Empty means built-in defaults.
	DefinitionsPath string `mapstructure:"definitions_path"`
	// SweepInterval is how often the overdue sweeper runs.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// SweepsPerMinute throttles on-demand sweep triggers. Zero disables the
	// limiter.
	SweepsPerMinute float64 `mapstructure:"sweeps_per_minute"`
	// PendingTimeout is how long a deliverable may await review before it
	// escalates at medium level.
	PendingTimeout time.Duration `mapstructure:"pending_timeout"`
}

// MetricsConfig holds metrics engine settings.
type MetricsConfig struct {
	WindowDays int `mapstructure:"window_days"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: filepath.Join(".dispatch", "dispatch.db"),
		},
		Matching: MatchingConfig{
			MinScore:                 0.3,
			DefaultStrategy:          "balanced",
			UsePerformanceMultiplier: true,
		},
		Gates: GatesConfig{
			InputValidationThreshold: 6.0,
			ContentReviewThreshold:   7.0,
			PMApprovalThreshold:      8.0,
		},
		Escalation: EscalationConfig{
			SweepInterval:   15 * time.Minute,
			SweepsPerMinute: 2,
			PendingTimeout:  24 * time.Hour,
		},
		Metrics: MetricsConfig{
			WindowDays: 30,
		},
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Matching.MinScore < 0 || c.Matching.MinScore > 1 {
		return fmt.Errorf("matching.min_score must be between 0 and 1 (got %.2f)", c.Matching.MinScore)
	}
	for name, t := range map[string]float64{
		"gates.input_validation_threshold": c.Gates.InputValidationThreshold,
		"gates.content_review_threshold":   c.Gates.ContentReviewThreshold,
		"gates.pm_approval_threshold":      c.Gates.PMApprovalThreshold,
	} {
		if t < 0 || t > 10 {
			return fmt.Errorf("%s must be between 0 and 10 (got %.2f)", name, t)
		}
	}
	if c.Escalation.SweepInterval <= 0 {
		return fmt.Errorf("escalation.sweep_interval must be positive (got %s)", c.Escalation.SweepInterval)
	}
	if c.Escalation.PendingTimeout <= 0 {
		return fmt.Errorf("escalation.pending_timeout must be positive (got %s)", c.Escalation.PendingTimeout)
	}
	if c.Metrics.WindowDays <= 0 {
		return fmt.Errorf("metrics.window_days must be positive (got %d)", c.Metrics.WindowDays)
	}
	return nil
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (DISPATCH_*)
// 2. Project config (.dispatch.yaml in current directory or a parent)
// 3. User config (~/.config/dispatch/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("DISPATCH")
	v.AutomaticEnv()
	v.BindEnv("database.path", "DISPATCH_DB_PATH")
	v.BindEnv("escalation.definitions_path", "DISPATCH_ESCALATION_DEFINITIONS")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("database.path", defaults.Database.Path)

	v.SetDefault("matching.min_score", defaults.Matching.MinScore)
	v.SetDefault("matching.default_strategy", defaults.Matching.DefaultStrategy)
	v.SetDefault("matching.use_performance_multiplier", defaults.Matching.UsePerformanceMultiplier)

	v.SetDefault("gates.input_validation_threshold", defaults.Gates.InputValidationThreshold)
	v.SetDefault("gates.content_review_threshold", defaults.Gates.ContentReviewThreshold)
	v.SetDefault("gates.pm_approval_threshold", defaults.Gates.PMApprovalThreshold)

	v.SetDefault("escalation.definitions_path", "")
	v.SetDefault("escalation.sweep_interval", defaults.Escalation.SweepInterval.String())
	v.SetDefault("escalation.sweeps_per_minute", defaults.Escalation.SweepsPerMinute)
	v.SetDefault("escalation.pending_timeout", defaults.Escalation.PendingTimeout.String())

	v.SetDefault("metrics.window_days", defaults.Metrics.WindowDays)
}

// getUserConfigDir returns the XDG config directory for dispatch.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dispatch")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "dispatch")
	}
	return filepath.Join(home, ".config", "dispatch")
}

// findProjectConfig searches for .dispatch.yaml in the current directory and
// parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".dispatch.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}
