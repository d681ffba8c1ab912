package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"golang.org/x/sync/errgroup"

	"github.com/tailored-agentic-units/rewind/engine"
	"github.com/tailored-agentic-units/rewind/observability"
	"github.com/tailored-agentic-units/rewind/rpc"
)

var (
	serveAddr     string
	serveWindow   time.Duration
	serveShutdown time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run an engine behind a Connect RPC endpoint",
	Long: `Start one retention engine and serve its command surface over HTTP.

Capture layers push events with rewind.v1.EngineService/AddEvent and request
bundles with ExportData. Counter totals are logged on shutdown.

Examples:
  rewind serve
  rewind serve --addr 0.0.0.0:7070 --window 30s
  rewind serve --config rewind.yaml -v`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:7070", "Address to listen on")
	serveCmd.Flags().DurationVar(&serveWindow, "window", 0, "Retention window (overrides config)")
	serveCmd.Flags().DurationVar(&serveShutdown, "shutdown-timeout", 5*time.Second, "Time allowed for the engine to stop")

	rootCmd.AddCommand(serveCmd)
}

func loadConfig() (*engine.Config, error) {
	if configFile == "" {
		cfg := engine.DefaultConfig()
		return &cfg, nil
	}
	return engine.LoadConfig(configFile)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveWindow > 0 {
		cfg.Buffer.MaxAgeMs = serveWindow.Milliseconds()
	}

	logger := newLogger()
	configured, err := observability.NewRegistry(logger).Lookup(cfg.Observer)
	if err != nil {
		return err
	}

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	metrics, err := observability.NewMetricsObserver(provider.Meter("github.com/tailored-agentic-units/rewind"), engine.MetricCounters()...)
	if err != nil {
		return fmt.Errorf("failed to create metrics observer: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := engine.New(ctx, cfg,
		engine.WithLogger(logger),
		engine.WithObserver(observability.Multi(configured, metrics)),
	)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	server := rpc.NewServer(e, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx, serveAddr)
	})
	g.Go(func() error {
		<-gctx.Done()
		return e.Shutdown(serveShutdown)
	})

	err = g.Wait()
	logTotals(logger, reader)
	return err
}

func logTotals(logger *slog.Logger, reader *sdkmetric.ManualReader) {
	ctx := context.Background()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		logger.WarnContext(ctx, "collect metrics", slog.Any("error", err))
		return
	}

	attrs := make([]any, 0)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			attrs = append(attrs, slog.Int64(m.Name, total))
		}
	}
	logger.InfoContext(ctx, "engine totals", attrs...)
}
