package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// StreamMetrics tracks the websocket snapshot stream.
type StreamMetrics struct {
	Clients  prometheus.Gauge
	Messages *prometheus.CounterVec
	Limited  *prometheus.CounterVec
}

// NewStreamMetrics registers the stream and rate limit collectors on reg,
// reusing ones already registered.
func NewStreamMetrics(reg prometheus.Registerer) *StreamMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &StreamMetrics{
		Clients: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stockpilot",
			Subsystem: "stream",
			Name:      "clients",
			Help:      "Open websocket snapshot streams",
		})),
		Messages: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stockpilot",
			Subsystem: "stream",
			Name:      "messages_total",
			Help:      "Snapshot stream messages by result",
		}, []string{"result"})),
		Limited: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stockpilot",
			Subsystem: "api",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the API rate limiter",
		}, []string{"route"})),
	}
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
