package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/apozlevich/vmexporter/pkg/config"
	"github.com/apozlevich/vmexporter/pkg/events"
	"github.com/apozlevich/vmexporter/pkg/export"
	"github.com/apozlevich/vmexporter/pkg/metrics"
)

// NewRouter mounts the export pipeline, the self-metrics renderer, the
// event stream and the health check on the configured paths.
func NewRouter(
	cfg config.Config,
	exportHandler *export.Handler,
	registry *metrics.Registry,
	hub *events.Hub,
	logger *zap.Logger,
) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc(cfg.ExportPath, exportHandler.HandleExport).Methods(http.MethodGet)
	r.Handle(cfg.MetricsPath, registry.Handler()).Methods(http.MethodGet)
	r.HandleFunc(cfg.EventsPath, hub.HandleWebSocket).Methods(http.MethodGet)
	r.HandleFunc("/health", handleHealth).Methods(http.MethodGet)

	r.Use(loggingMiddleware(logger))

	return r
}

// New builds the HTTP server around the router. WriteTimeout stays zero:
// export bodies stream for arbitrarily long.
func New(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:        cfg.Addr(),
		Handler:     handler,
		ReadTimeout: config.ServerReadTimeout,
		IdleTimeout: config.ServerIdleTimeout,
	}
}

func loggingMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
