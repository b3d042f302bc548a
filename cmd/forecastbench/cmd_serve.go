package main

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/forecastbench/internal/adapters/http/api"
	"github.com/okian/forecastbench/internal/benchspec"
	"github.com/okian/forecastbench/internal/config"
	"github.com/okian/forecastbench/pkg/logger"
	"github.com/okian/forecastbench/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 60 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func newServeCommand(opts *globalOptions) *cobra.Command {
	var (
		addr    string
		vendors string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the benchmark once and serve results over HTTP",
		Long: `Serve runs the benchmark at startup and exposes the latest result:

  GET  /healthz              liveness
  GET  /metrics              Prometheus metrics
  GET  /stats                service statistics
  GET  /results              full result
  GET  /summary              per-dataset summaries and overall ranking
  GET  /leaderboard?limit=N  top N of the overall ranking
  GET  /vendors/{name}       one vendor's records
  GET  /datasets/{key}       one dataset's records and ranking
  POST /runs                 re-run the benchmark`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts, func(c *config.Config) {
				if cmd.Flags().Changed("addr") {
					c.Addr = addr
				}
				if cmd.Flags().Changed("vendors") {
					c.VendorConfig = vendors
				}
			})
			if err != nil {
				return err
			}
			spec, err := benchspec.Load(cfg.VendorConfig)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, spec)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (default :9080)")
	cmd.Flags().StringVar(&vendors, "vendors", "", "Benchmark spec file (default vendor_config.json)")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config, spec *benchspec.Spec) error {
	log := logger.Get()

	svc := newService(cfg, spec)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	// A failed first run leaves the read endpoints answering 503 until
	// POST /runs succeeds.
	if _, err := svc.Run(ctx, spec); err != nil {
		log.Error(ctx, "initial benchmark run failed", logger.Error(err))
	}

	go startSystemMetricsUpdater(ctx)

	mux := http.NewServeMux()
	api.NewServer(svc, cfg.MaxLeaderboardLimit).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}

	log.Info(ctx, "server stopped")
	return nil
}

// startSystemMetricsUpdater updates system metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	updateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
