package config

import (
	"log"
	"net"
	"os"
	"time"
)

// Version information exported through the vmexporter info metric and the
// health endpoint.
const (
	Version       = "1.0.0"
	ReleaseStatus = "Release"
)

// Server defaults
const (
	DefaultHost        = "0.0.0.0"
	DefaultPort        = "8080"
	DefaultExportPath  = "/export"
	DefaultMetricsPath = "/metrics"
	DefaultEventsPath  = "/events"
)

// Upstream defaults
const (
	// DefaultUpstreamTimeout bounds the whole upstream exchange, body read
	// included. Export bodies can be large, so this is generous.
	DefaultUpstreamTimeout = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerReadTimeout = 10 * time.Second
	ServerIdleTimeout = 120 * time.Second
	ShutdownTimeout   = 30 * time.Second
)

// WebSocket configuration
const (
	WSReadBufferSize  = 1024
	WSWriteBufferSize = 1024
	WSBroadcastBuffer = 256
	WSChannelBuffer   = 10
	WSWriteDeadline   = 10 * time.Second
	WSReadDeadline    = 60 * time.Second
	WSPingInterval    = 30 * time.Second
)

// Config holds server configuration.
type Config struct {
	Host            string
	Port            string
	ExportPath      string
	MetricsPath     string
	EventsPath      string
	UpstreamTimeout time.Duration
}

// Load returns configuration from environment variables, falling back to
// defaults. Command-line flags layered on top by the caller take final
// precedence.
func Load() Config {
	return Config{
		Host:            getEnv("VMEXPORTER_HOST", DefaultHost),
		Port:            getEnv("VMEXPORTER_PORT", DefaultPort),
		ExportPath:      getEnv("VMEXPORTER_PATH", DefaultExportPath),
		MetricsPath:     getEnv("VMEXPORTER_SELF", DefaultMetricsPath),
		EventsPath:      getEnv("VMEXPORTER_EVENTS", DefaultEventsPath),
		UpstreamTimeout: getEnvDuration("VMEXPORTER_UPSTREAM_TIMEOUT", DefaultUpstreamTimeout),
	}
}

// Addr returns the listen address in host:port form.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// getEnv gets a string from an environment variable or returns the default.
func getEnv(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

// getEnvDuration gets a duration from an environment variable or returns
// the default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		log.Printf("Invalid value for %s: %q, using default %v", key, val, defaultValue)
	}
	return defaultValue
}
