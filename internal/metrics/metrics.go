// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from the results pipeline.
//
//   - It exposes a narrow interface (Backend) focused on counters and timing
//     data (histograms).
//   - It provides a global, pluggable backend that defaults to a no-op
//     implementation, so metrics are always safe to call even when no real
//     backend is configured.
//   - Concrete systems (Prometheus Pushgateway, Datadog) live in subpackages
//     so the pipeline depends only on this interface.
package metrics

import (
	"sync"
	"time"
)

// Metric names.
const (
	StepTotal           = "f1etl_step_total"
	StepDurationSeconds = "f1etl_step_duration_seconds"
	RecordsTotal        = "f1etl_records_total"
	QualityEventsTotal  = "f1etl_quality_events_total"
	CacheTotal          = "f1etl_cache_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStep measures latency and success/failure of one pipeline step
// (load, clean, join, derive, aggregate).
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRow increments a row-level counter for the given job and kind.
//
// Kinds used by the pipeline:
//   - "loaded"        rows read per source relation
//   - "skipped"       unreadable source rows
//   - "joined"        fact rows produced
//   - "join_dropped"  result rows with an unresolved foreign key
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RecordsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordQuality increments the data-quality event counter for kind.
func RecordQuality(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(QualityEventsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordCache counts a fact-cache lookup; result is "hit" or "miss".
func RecordCache(job, result string) {
	current().IncCounter(CacheTotal, 1, Labels{
		"job":    job,
		"result": result,
	})
}
