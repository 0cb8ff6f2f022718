// Command vmexporter serves a simplified export façade for
// VictoriaMetrics-compatible backends. Query the export path with a
// target parameter naming the upstream and an optional last parameter
// with the number of trailing seconds to export; start, end and match[]
// pass through to the upstream export API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/apozlevich/vmexporter/pkg/config"
	"github.com/apozlevich/vmexporter/pkg/events"
	"github.com/apozlevich/vmexporter/pkg/export"
	"github.com/apozlevich/vmexporter/pkg/metrics"
	"github.com/apozlevich/vmexporter/pkg/server"
)

func main() {
	cfg := config.Load()

	flag.StringVar(&cfg.Host, "host", cfg.Host, "host to bind to")
	flag.StringVar(&cfg.Port, "port", cfg.Port, "port to bind to")
	flag.StringVar(&cfg.ExportPath, "path", cfg.ExportPath, "path to serve exported metrics on")
	flag.StringVar(&cfg.MetricsPath, "self", cfg.MetricsPath, "path to serve own metrics on")
	flag.StringVar(&cfg.EventsPath, "events", cfg.EventsPath, "path to serve the export event stream on")
	flag.DurationVar(&cfg.UpstreamTimeout, "upstream-timeout", cfg.UpstreamTimeout, "upstream connect/read timeout")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("vmexporter v%s (%s)\n", config.Version, config.ReleaseStatus)
		return
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	registry := metrics.NewRegistry()
	client := export.NewClient(cfg.UpstreamTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := events.NewHub(logger)
	go hub.Run(ctx)

	exportHandler := export.NewHandler(client, registry, logger)
	exportHandler.SetNotifier(hub)

	router := server.NewRouter(cfg, exportHandler, registry, hub, logger)
	srv := server.New(cfg, router)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("shutting down")
		cancel()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}()

	logger.Info("vmexporter listening",
		zap.String("addr", cfg.Addr()),
		zap.String("export_path", cfg.ExportPath),
		zap.String("self_path", cfg.MetricsPath),
		zap.String("events_path", cfg.EventsPath))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}
