package comms

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/robolink/metric"
)

// Metrics holds Prometheus metrics for the communication layer
type Metrics struct {
	messagesPublished prometheus.Counter
	publishLatency    prometheus.Histogram
	messagesDecoded   *prometheus.CounterVec
	decodeFailures    *prometheus.CounterVec
}

// newMetrics creates and registers comms metrics. Returns nil if no registry
// is provided (nil input = nil feature pattern).
func newMetrics(registry *metric.Registry) *Metrics {
	if registry == nil {
		return nil
	}

	metrics := &Metrics{
		messagesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "robolink",
			Subsystem: "comms",
			Name:      "messages_published_total",
			Help:      "Total joint commands published",
		}),
		publishLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "robolink",
			Subsystem: "comms",
			Name:      "publish_duration_seconds",
			Help:      "Time to encode and publish a command",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}),
		messagesDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "robolink",
			Subsystem: "comms",
			Name:      "messages_decoded_total",
			Help:      "Successfully decoded inbound messages per topic",
		}, []string{"topic"}),
		decodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "robolink",
			Subsystem: "comms",
			Name:      "decode_failures_total",
			Help:      "Dropped inbound messages per topic and failure kind",
		}, []string{"topic", "kind"}),
	}

	_ = registry.RegisterCounter("comms", "messages_published", metrics.messagesPublished)
	_ = registry.RegisterHistogram("comms", "publish_latency", metrics.publishLatency)
	_ = registry.RegisterCounterVec("comms", "messages_decoded", metrics.messagesDecoded)
	_ = registry.RegisterCounterVec("comms", "decode_failures", metrics.decodeFailures)

	return metrics
}
