package main

import (
	"github.com/spf13/cobra"

	service "github.com/okian/forecastbench/internal/app"
	"github.com/okian/forecastbench/internal/benchspec"
	"github.com/okian/forecastbench/internal/config"
	"github.com/okian/forecastbench/pkg/logger"
	"github.com/okian/forecastbench/pkg/metrics"
)

var version = "dev"

// globalOptions are shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "forecastbench",
		Short: "Benchmark forecast vendors against actuals",
		Long: `forecastbench scores vendor forecasts against actual values for each
dataset, ranks vendors per dataset and overall, and writes the results as
JSON, YAML or text reports. It can also serve the latest result over HTTP.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (default $FCBENCH_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newServeCommand(opts))

	return cmd
}

// loadConfig layers the persistent flags over the loaded config and
// initializes logging and metrics. apply may override command specific fields before
// validation.
func loadConfig(cmd *cobra.Command, opts *globalOptions, apply func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(cmd.Context(), opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.LogFormat = opts.logFormat
	}
	if apply != nil {
		apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := logger.Init(
		logger.WithLevel(cfg.LogLevel),
		logger.WithFormat(cfg.LogFormat),
		logger.WithWriter(cmd.ErrOrStderr()),
	); err != nil {
		return nil, err
	}
	metrics.Init(
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
	)
	return cfg, nil
}

// newService builds a service from validated configuration.
func newService(cfg *config.Config, spec *benchspec.Spec) *service.Service {
	metric, _ := cfg.Metric()
	return service.New(
		service.WithLogger(logger.Get()),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithRankingMetric(metric),
		service.WithAnomalyThreshold(cfg.AnomalyZThreshold),
		service.WithTieTolerance(cfg.TieTolerance),
		service.WithZeroTolerance(cfg.ZeroTolerance),
		service.WithSpec(spec),
	)
}
