// Package metrics exposes Prometheus collectors for exports and the HTTP API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"qrforge/internal/export"
)

var (
	exportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qrforge",
			Name:      "exports_total",
			Help:      "Finished exports by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	exportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "qrforge",
			Name:      "export_duration_seconds",
			Help:      "Time from export request to completion",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"kind"},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qrforge",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)
)

// Exports records pipeline results. The zero value is ready to use.
type Exports struct{}

func (Exports) ObserveExport(kind export.Kind, outcome string, elapsed time.Duration) {
	exportsTotal.WithLabelValues(string(kind), outcome).Inc()
	if outcome != "skipped" {
		exportDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
	}
}

func ObserveRequest(route, code string) {
	httpRequests.WithLabelValues(route, code).Inc()
}
