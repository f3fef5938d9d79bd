// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// It maps the pipeline series (steps, records, quality events, cache
// lookups) onto client_golang collectors held in a private registry and
// pushes that registry to a Pushgateway on Flush. The pipeline is a batch
// job, so there is no scrape endpoint.
package prompush

import (
	"fmt"

	"github.com/debastene/f1-psda-dashboard/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// DefaultJob is the Pushgateway grouping job used when none is given.
const DefaultJob = "f1etl"

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	stepCounter  *prometheus.CounterVec // f1etl_step_total
	stepDuration *prometheus.SummaryVec // f1etl_step_duration_seconds

	recordCounter  *prometheus.CounterVec // f1etl_records_total
	qualityCounter *prometheus.CounterVec // f1etl_quality_events_total
	cacheCounter   *prometheus.CounterVec // f1etl_cache_total
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName: the Pushgateway "job" name (usually the pipeline job).
// gatewayURL: base URL of the Pushgateway server.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = DefaultJob
	}

	reg := prometheus.NewRegistry()

	// job is carried by the Pushgateway grouping key, not as a label.
	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Pipeline step executions, partitioned by step and status.",
		},
		[]string{"step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       metrics.StepDurationSeconds,
			Help:       "Duration of pipeline steps in seconds, partitioned by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step", "status"},
	)
	recordCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.RecordsTotal,
			Help: "Row counts per kind (loaded, skipped, joined, join_dropped).",
		},
		[]string{"kind"},
	)
	qualityCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.QualityEventsTotal,
			Help: "Data-quality events per kind (coerce_fallback, join_dropped, ...).",
		},
		[]string{"kind"},
	)
	cacheCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.CacheTotal,
			Help: "Fact cache lookups by result (hit, miss).",
		},
		[]string{"result"},
	)

	for name, c := range map[string]prometheus.Collector{
		"step counter":    stepCounter,
		"step summary":    stepDuration,
		"record counter":  recordCounter,
		"quality counter": qualityCounter,
		"cache counter":   cacheCounter,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}

	return &Backend{
		gatewayURL:     gatewayURL,
		jobName:        jobName,
		reg:            reg,
		stepCounter:    stepCounter,
		stepDuration:   stepDuration,
		recordCounter:  recordCounter,
		qualityCounter: qualityCounter,
		cacheCounter:   cacheCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		if b.stepCounter == nil {
			return
		}
		b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)

	case metrics.RecordsTotal:
		if b.recordCounter == nil {
			return
		}
		b.recordCounter.WithLabelValues(labels["kind"]).Add(delta)

	case metrics.QualityEventsTotal:
		if b.qualityCounter == nil {
			return
		}
		b.qualityCounter.WithLabelValues(labels["kind"]).Add(delta)

	case metrics.CacheTotal:
		if b.cacheCounter == nil {
			return
		}
		b.cacheCounter.WithLabelValues(labels["result"]).Add(delta)

	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDurationSeconds || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
