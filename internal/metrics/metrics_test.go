package metrics

import (
	"errors"
	"testing"
	"time"
)

// recordingBackend captures facade calls.
type recordingBackend struct {
	counters  map[string]float64
	lastLbls  Labels
	durations int
	flushed   int
}

func (r *recordingBackend) IncCounter(name string, delta float64, labels Labels) {
	if r.counters == nil {
		r.counters = map[string]float64{}
	}
	r.counters[name] += delta
	r.lastLbls = labels
}

func (r *recordingBackend) ObserveDuration(string, float64, Labels) { r.durations++ }
func (r *recordingBackend) Flush() error                            { r.flushed++; return nil }

func install(t *testing.T, b Backend) {
	t.Helper()
	prev := backend
	SetBackend(b)
	t.Cleanup(func() { backend = prev })
}

/*
TestRecordStep verifies status labeling for success and failure, and that
each step records both a count and a duration.
*/
func TestRecordStep(t *testing.T) {
	rec := &recordingBackend{}
	install(t, rec)

	RecordStep("images", "train", nil, time.Second)
	if rec.lastLbls["status"] != "success" {
		t.Errorf("status = %q; want success", rec.lastLbls["status"])
	}

	RecordStep("images", "train", errors.New("boom"), time.Second)
	if rec.lastLbls["status"] != "failure" {
		t.Errorf("status = %q; want failure", rec.lastLbls["status"])
	}

	if rec.counters["imatload_step_total"] != 2 {
		t.Errorf("step total = %v; want 2", rec.counters["imatload_step_total"])
	}
	if rec.durations != 2 {
		t.Errorf("durations observed = %d; want 2", rec.durations)
	}
}

/*
TestRecordRows verifies the non-positive-delta guard and label plumbing.
*/
func TestRecordRows(t *testing.T) {
	rec := &recordingBackend{}
	install(t, rec)

	RecordRows("raw.imat_images", "train", 0)
	RecordRows("raw.imat_images", "train", -1)
	if len(rec.counters) != 0 {
		t.Fatalf("non-positive deltas recorded: %v", rec.counters)
	}

	RecordRows("raw.imat_images", "train", 10)
	if rec.counters["imatload_rows_total"] != 10 {
		t.Errorf("rows total = %v; want 10", rec.counters["imatload_rows_total"])
	}
	if rec.lastLbls["table"] != "raw.imat_images" || rec.lastLbls["split"] != "train" {
		t.Errorf("labels = %v", rec.lastLbls)
	}
}

/*
TestSetBackend_NilKeepsExisting verifies the nil guard and that the default
backend is safe to call.
*/
func TestSetBackend_NilKeepsExisting(t *testing.T) {
	rec := &recordingBackend{}
	install(t, rec)
	SetBackend(nil)
	RecordRows("t", "s", 1)
	if rec.counters["imatload_rows_total"] != 1 {
		t.Error("nil SetBackend replaced the installed backend")
	}
	if err := Flush(); err != nil {
		t.Errorf("Flush: %v", err)
	}
	if rec.flushed != 1 {
		t.Errorf("flushed = %d; want 1", rec.flushed)
	}
}
