// Package datadog sends pipeline metrics to a DogStatsD agent.
//
// Counter and histogram names are the ones declared in the metrics package
// with the Prometheus "_total" suffix removed, since DogStatsD counts carry
// their type on the wire. Labels become "key:value" tags; Config.GlobalTags
// and Config.Namespace are applied by the statsd client to every packet.
package datadog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/DataDog/datadog-go/v5/statsd"

	"github.com/debastene/f1-psda-dashboard/internal/metrics"
)

// DefaultNamespace is used when Config.Namespace is empty.
const DefaultNamespace = "f1etl."

// Config holds Datadog backend configuration.
type Config struct {
	// Addr is the DogStatsD address, e.g. "127.0.0.1:8125" or "unix:///path/to/socket".
	Addr string

	// Namespace prefixes every metric name. A trailing "." is added when missing.
	Namespace string

	// GlobalTags are attached to every metric, e.g. []string{"env:prod"}.
	GlobalTags []string

	// SampleRate applies to every emitted value; zero means 1.
	SampleRate float64
}

// Backend implements metrics.Backend on top of a statsd.Client.
type Backend struct {
	client *statsd.Client
	rate   float64
}

// NewBackend dials the agent described by cfg. For UDP no agent needs to be
// listening yet.
func NewBackend(cfg Config) (*Backend, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("datadog: Addr is required")
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}

	opts := []statsd.Option{
		statsd.WithNamespace(ns),
		statsd.WithoutTelemetry(),
	}
	if len(cfg.GlobalTags) > 0 {
		tags := append([]string(nil), cfg.GlobalTags...)
		sort.Strings(tags)
		opts = append(opts, statsd.WithTags(tags))
	}

	c, err := statsd.New(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("datadog: create client: %w", err)
	}

	rate := cfg.SampleRate
	if rate <= 0 || rate > 1 {
		rate = 1
	}
	return &Backend{client: c, rate: rate}, nil
}

// IncCounter emits a DogStatsD count. Fractional deltas are truncated.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	_ = b.client.Count(metricName(name), int64(delta), labelsToTags(labels), b.rate)
}

// ObserveHistogram emits a DogStatsD histogram sample.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	_ = b.client.Histogram(metricName(name), value, labelsToTags(labels), b.rate)
}

// Flush sends whatever the client has buffered or aggregated so far.
func (b *Backend) Flush() error {
	if b.client == nil {
		return nil
	}
	return b.client.Flush()
}

// Close flushes and releases the client. The backend must not be used after.
func (b *Backend) Close() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

func metricName(name string) string {
	return strings.TrimSuffix(name, "_total")
}

// labelsToTags renders labels as sorted "key:value" tags.
func labelsToTags(lbls metrics.Labels) []string {
	if len(lbls) == 0 {
		return nil
	}
	out := make([]string, 0, len(lbls))
	for k, v := range lbls {
		out = append(out, k+":"+v)
	}
	sort.Strings(out)
	return out
}
