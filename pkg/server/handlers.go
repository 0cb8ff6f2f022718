package server

import (
	"net/http"
	"time"

	"github.com/apozlevich/vmexporter/pkg/config"
	"github.com/apozlevich/vmexporter/pkg/httpx"
)

var startTime = time.Now()

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// handleHealth returns service health status. The exporter holds no
// state, so it is healthy whenever it can answer.
func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httpx.RespondJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: config.Version,
		Uptime:  time.Since(startTime).String(),
	})
}
