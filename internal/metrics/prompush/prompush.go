// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// A one-shot batch loader has nothing for a scraper to scrape, so metrics
// are collected in a private registry and pushed once at exit. All
// Prometheus-specific dependencies stay in this package; the rest of the
// loader sees only metrics.Backend.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"imatload/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	stepCounter  *prometheus.CounterVec // imatload_step_total
	stepDuration *prometheus.SummaryVec // imatload_step_duration_seconds
	rowCounter   *prometheus.CounterVec // imatload_rows_total
}

// NewBackend constructs a Pushgateway backend. jobName is the Pushgateway
// "job" grouping key; gatewayURL is the server's base URL.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "imatload"
	}

	reg := prometheus.NewRegistry()

	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imatload_step_total",
			Help: "Loader step executions, partitioned by step, split, and status.",
		},
		[]string{"step", "split", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "imatload_step_duration_seconds",
			Help:       "Duration of loader steps in seconds.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step", "split", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imatload_rows_total",
			Help: "Rows bulk-loaded per relation and split.",
		},
		[]string{"table", "split"},
	)

	for name, c := range map[string]prometheus.Collector{
		"step counter":  stepCounter,
		"step duration": stepDuration,
		"row counter":   rowCounter,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}

	return &Backend{
		gatewayURL:   gatewayURL,
		jobName:      jobName,
		reg:          reg,
		stepCounter:  stepCounter,
		stepDuration: stepDuration,
		rowCounter:   rowCounter,
	}, nil
}

// IncCounter maps the facade's counter names onto the registered vectors.
// Unknown names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "imatload_step_total":
		b.stepCounter.WithLabelValues(labels["step"], labels["split"], labels["status"]).Add(delta)
	case "imatload_rows_total":
		b.rowCounter.WithLabelValues(labels["table"], labels["split"]).Add(delta)
	}
}

// ObserveDuration records step durations; other names are ignored.
func (b *Backend) ObserveDuration(name string, value float64, labels metrics.Labels) {
	if name != "imatload_step_duration_seconds" {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["split"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
