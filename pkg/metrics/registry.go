package metrics

import (
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/apozlevich/vmexporter/pkg/config"
	"github.com/apozlevich/vmexporter/pkg/export"
)

// Registry holds the per-target export instrumentation series. It is
// created once at process start, mutated only through Record and read by
// the self-metrics endpoint; process exit is its teardown.
type Registry struct {
	registry *prometheus.Registry

	duration *prometheus.GaugeVec
	count    *prometheus.CounterVec
	failures *prometheus.CounterVec
	records  *prometheus.CounterVec

	mu      sync.Mutex
	targets map[string]*sync.Mutex
}

// NewRegistry creates the process-wide metrics registry with the export
// series, the version info metric and the default Go runtime and process
// collectors.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		targets:  make(map[string]*sync.Mutex),

		duration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "vmexporter",
				Subsystem: "export",
				Name:      "duration",
				Help:      "Last export duration",
			},
			[]string{"target"},
		),

		count: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vmexporter",
				Subsystem: "export",
				Name:      "count",
				Help:      "Exports done total",
			},
			[]string{"target"},
		),

		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vmexporter",
				Subsystem: "export",
				Name:      "failures",
				Help:      "Exports failed total",
			},
			[]string{"target"},
		),

		records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vmexporter",
				Subsystem: "export",
				Name:      "metrics",
				Help:      "Exported metrics total",
			},
			[]string{"target"},
		),
	}

	r.registry.MustRegister(r.duration, r.count, r.failures, r.records)
	r.registry.MustRegister(newInfoMetric())
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// newInfoMetric builds the vmexporter version info gauge, set once at
// startup and never mutated thereafter.
func newInfoMetric() *prometheus.GaugeVec {
	info := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vmexporter_info",
			Help: "vmexporter version information",
		},
		[]string{"version", "major", "minor", "patchlevel", "status"},
	)

	parts := strings.SplitN(config.Version, ".", 3)
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	info.WithLabelValues(config.Version, parts[0], parts[1], parts[2], config.ReleaseStatus).Set(1)

	return info
}

// Record applies one outcome to the target's four series: the duration
// gauge is last-write-wins, the export counter increments
// unconditionally, the failure counter increments iff the export failed,
// and the exported-metric counter grows by the record count. Updates to
// the same target are serialized so the series reflect one outcome
// consistently; different targets never block each other.
func (r *Registry) Record(o export.Outcome) {
	lock := r.targetLock(o.Target)
	lock.Lock()
	defer lock.Unlock()

	r.duration.WithLabelValues(o.Target).Set(o.Duration.Seconds())
	r.count.WithLabelValues(o.Target).Inc()
	if !o.Success {
		r.failures.WithLabelValues(o.Target).Inc()
	}
	r.records.WithLabelValues(o.Target).Add(float64(o.Records))
}

func (r *Registry) targetLock(target string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.targets[target]
	if !ok {
		lock = &sync.Mutex{}
		r.targets[target] = lock
	}
	return lock
}

// PrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler renders the registry in exposition text format for the
// self-metrics endpoint. Rendering has no failure path of its own.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
