// Package config holds the runtime configuration surface for the analysis
// core. The core consumes these values, it does not own them: invalid cap
// values are the only error class allowed to abort before analysis starts.
package config

import (
	"fmt"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config is the root configuration object, populated by viper from the config
// file, environment (LANCET_ prefix) and command-line flags.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Registry RegistryConfig `mapstructure:"registry" yaml:"registry"`
}

// LoggerConfig holds all the configuration for the zap logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// AnalysisConfig carries the hard caps that bound speculative resolution and
// taint propagation. All four are validated before any file is analyzed.
type AnalysisConfig struct {
	// MaxSpeculativeCandidates caps the number of synthetic call edges wired
	// from a single unresolved call site.
	MaxSpeculativeCandidates int `mapstructure:"max_speculative_candidates" yaml:"max_speculative_candidates"`
	// MaxTaintPathLength bounds forward propagation; exceeding it truncates
	// the path and downgrades confidence.
	MaxTaintPathLength int `mapstructure:"max_taint_path_length" yaml:"max_taint_path_length"`
	// MaxCallDepth bounds
	// inter-procedural propagation through resolved and speculative calls.
	MaxCallDepth int `mapstructure:"max_call_depth" yaml:"max_call_depth"`
	// LiteralCap is the maximum retained length of a string literal; longer
	// literals are truncated with a content hash kept in node attrs.
	LiteralCap int `mapstructure:"literal_cap" yaml:"literal_cap"`
}

// PipelineConfig tunes the per-file worker pool and incremental mode.
type PipelineConfig struct {
	Concurrency  int           `mapstructure:"concurrency" yaml:"concurrency"`
	Deadline     time.Duration `mapstructure:"deadline" yaml:"deadline"`
	Incremental  bool          `mapstructure:"incremental" yaml:"incremental"`
	ManifestPath string        `mapstructure:"manifest_path" yaml:"manifest_path"`
}

// RegistryConfig points at the loadable sanitizer table. The Librarian
// collaborator extends sanitizer knowledge through this file, not through
// code changes.
type RegistryConfig struct {
	SanitizerTable string `mapstructure:"sanitizer_table" yaml:"sanitizer_table"`
}

// Defaults returns the configuration used when no file or flags override it.
func Defaults() *Config {
	return &Config{
		Logger: LoggerConfig{
			Level:       "info",
			Format:      "console",
			ServiceName: "lancet",
			MaxSize:     50,
			MaxBackups:  3,
			MaxAge:      14,
		},
		Analysis: AnalysisConfig{
			MaxSpeculativeCandidates: 5,
			MaxTaintPathLength:       64,
			MaxCallDepth:             8,
			LiteralCap:               200,
		},
		Pipeline: PipelineConfig{
			Concurrency:  4,
			Deadline:     0,
			ManifestPath: ".lancet/manifest.json",
		},
	}
}

// Validate rejects cap values the analysis cannot run under. This is the only
// fatal error class in the core; everything downstream degrades per-node or
// per-file instead of aborting.
func (a AnalysisConfig) Validate() error {
	if a.MaxSpeculativeCandidates < 1 {
		return fmt.Errorf("analysis.max_speculative_candidates must be >= 1, got %d", a.MaxSpeculativeCandidates)
	}
	if a.MaxTaintPathLength < 1 {
		return fmt.Errorf("analysis.max_taint_path_length must be >= 1, got %d", a.MaxTaintPathLength)
	}
	if a.MaxCallDepth < 0 {
		return fmt.Errorf("analysis.max_call_depth must be >= 0, got %d", a.MaxCallDepth)
	}
	if a.LiteralCap < 16 {
		return fmt.Errorf("analysis.literal_cap must be >= 16, got %d", a.LiteralCap)
	}
	return nil
}

// Validate checks the whole configuration tree.
func (c *Config) Validate() error {
	if err := c.Analysis.Validate(); err != nil {
		return err
	}
	if c.Pipeline.Concurrency < 1 {
		return fmt.Errorf("pipeline.concurrency must be >= 1, got %d", c.Pipeline.Concurrency)
	}
	return nil
}

// Load reads configuration from the given file (or the default search path
// when empty), applies environment overrides and unmarshals into a Config
// seeded with defaults.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home + "/.lancet")
		}
		v.SetConfigName("lancet")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("LANCET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults plus env vars apply.
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}
