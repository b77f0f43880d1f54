// Package metrics provides a small, backend-agnostic abstraction for
// recording operational metrics from the loader.
//
// It exposes a narrow Backend interface (counters plus duration
// observations) behind a global, pluggable backend that defaults to a no-op
// implementation, so metric calls are always safe even when no real backend
// is configured. Concrete systems (here: Prometheus Pushgateway) live in
// subpackages and are selected at startup.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveDuration records a duration-style value in seconds.
	ObserveDuration(name string, value float64, labels Labels)
	// Flush pushes metrics if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)      {}
func (nopBackend) ObserveDuration(string, float64, Labels) {}
func (nopBackend) Flush() error                            { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing one.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error { return backend.Flush() }

// RecordStep measures one loader step (schema, label_map, clear,
// info_license, images, annotations) with its outcome and duration. split is
// empty for steps without a partition dimension.
func RecordStep(step, split string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"step": step, "split": split, "status": status}
	backend.IncCounter("imatload_step_total", 1, lbls)
	backend.ObserveDuration("imatload_step_duration_seconds", d.Seconds(), lbls)
}

// RecordRows counts rows written to a relation for a split. Tables without a
// partition dimension (the label map) pass an empty split.
func RecordRows(table, split string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("imatload_rows_total", float64(delta), Labels{
		"table": table,
		"split": split,
	})
}
