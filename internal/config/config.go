// Package config defines process configuration and its loading.
//
// Conventions:
// - New() returns a Config holding every default.
// - Load layers a YAML file, a dotenv file and FCBENCH_ environment
//   variables over those defaults.
// - Errors wrap ErrLoadConfig or ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/okian/forecastbench/internal/domain/model"
	"github.com/okian/forecastbench/internal/report"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// WorkerCount sets the number of scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory job queue.
	QueueSize int `koanf:"queue_size"`

	// VendorConfig is the path of the benchmark spec.
	VendorConfig string `koanf:"vendor_config"`

	// OutputDir receives the written reports.
	OutputDir string `koanf:"output_dir"`

	// ReportFormats lists the report writers to run: json, yaml, table.
	ReportFormats []string `koanf:"report_formats"`

	// RankingMetric is the lower-is-better metric vendors are ranked by.
	RankingMetric string `koanf:"ranking_metric"`

	// AnomalyZThreshold is the |z| above which an error counts as an anomaly.
	AnomalyZThreshold float64 `koanf:"anomaly_z_threshold"`

	// TieTolerance is the score difference under which vendors tie.
	TieTolerance float64 `koanf:"tie_tolerance"`

	// ZeroTolerance flags actual values this close to zero.
	ZeroTolerance float64 `koanf:"zero_tolerance"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// MetricsNamespace prefixes every exported Prometheus metric.
	MetricsNamespace string `koanf:"metrics_namespace"`

	// MetricsSubsystem follows the namespace in metric names.
	MetricsSubsystem string `koanf:"metrics_subsystem"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		WorkerCount:         runtime.NumCPU(),
		QueueSize:           1024,
		VendorConfig:        "vendor_config.json",
		OutputDir:           "output",
		ReportFormats:       []string{"json"},
		RankingMetric:       string(model.MetricMAPE),
		AnomalyZThreshold:   3.0,
		TieTolerance:        1e-9,
		ZeroTolerance:       1e-9,
		MaxLeaderboardLimit: 100,
		MetricsNamespace:    "forecastbench",
		MetricsSubsystem:    "engine",
	}
}

// Metric returns the parsed ranking metric.
func (c *Config) Metric() (model.MetricName, error) {
	name, err := model.ParseMetricName(c.RankingMetric)
	if err != nil {
		return "", fmt.Errorf("%w: ranking_metric: %w", ErrInvalidConfig, err)
	}
	if !name.LowerIsBetter() {
		return "", fmt.Errorf("%w: ranking_metric %s is not lower-is-better", ErrInvalidConfig, name)
	}
	return name, nil
}

// Formats returns the parsed report formats.
func (c *Config) Formats() ([]report.Format, error) {
	formats, err := report.ParseFormats(c.ReportFormats)
	if err != nil {
		return nil, fmt.Errorf("%w: report_formats: %w", ErrInvalidConfig, err)
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("%w: report_formats must not be empty", ErrInvalidConfig)
	}
	return formats, nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	switch strings.ToLower(strings.TrimSpace(c.LogFormat)) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	}
	if c.VendorConfig == "" {
		return fmt.Errorf("%w: vendor_config must not be empty", ErrInvalidConfig)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("%w: output_dir must not be empty", ErrInvalidConfig)
	}
	if _, err := c.Formats(); err != nil {
		return err
	}
	if _, err := c.Metric(); err != nil {
		return err
	}
	if c.AnomalyZThreshold <= 0 {
		return fmt.Errorf("%w: anomaly_z_threshold must be positive", ErrInvalidConfig)
	}
	if c.TieTolerance < 0 || c.ZeroTolerance < 0 {
		return fmt.Errorf("%w: tolerances must not be negative", ErrInvalidConfig)
	}
	if c.MaxLeaderboardLimit < 1 {
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	}
	if !validMetricName(c.MetricsNamespace) || !validMetricName(c.MetricsSubsystem) {
		return fmt.Errorf("%w: metrics_namespace and metrics_subsystem must be [a-zA-Z_][a-zA-Z0-9_]*", ErrInvalidConfig)
	}
	return nil
}

func validMetricName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
