package transport

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/robolink/metric"
)

// Metrics holds Prometheus metrics for the session
type Metrics struct {
	failures   prometheus.Counter
	reconnects prometheus.Counter
	connected  prometheus.Gauge
}

// newMetrics creates and registers transport metrics. Returns nil if no
// registry is provided.
func newMetrics(registry *metric.Registry) *Metrics {
	if registry == nil {
		return nil
	}

	metrics := &Metrics{
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "robolink",
			Subsystem: "transport",
			Name:      "failures_total",
			Help:      "Connection and publish failures",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "robolink",
			Subsystem: "transport",
			Name:      "reconnects_total",
			Help:      "Successful reconnections after a dropped session",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "robolink",
			Subsystem: "transport",
			Name:      "connected",
			Help:      "1 while the session is established, 0 otherwise",
		}),
	}

	_ = registry.RegisterCounter("transport", "failures", metrics.failures)
	_ = registry.RegisterCounter("transport", "reconnects", metrics.reconnects)
	_ = registry.RegisterGauge("transport", "connected", metrics.connected)

	return metrics
}
