// Package quality records data-quality observations: values the pipeline
// repaired or rows it dropped without failing. Events are counted per kind,
// a bounded sample is logged, and each event is forwarded to the metrics
// backend.
package quality

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/debastene/f1-psda-dashboard/internal/metrics"
)

// Kind classifies an event.
type Kind string

const (
	// CoerceFallback: a numeric cell was null or unparsable and became 0.
	CoerceFallback Kind = "coerce_fallback"
	// JoinDropped: a result row's foreign key did not resolve.
	JoinDropped Kind = "join_dropped"
	// JoinDuplicateKey: a referenced relation repeats a key; the first row wins.
	JoinDuplicateKey Kind = "join_duplicate_key"
	// StatusPlusAnomaly: a status contains '+' somewhere other than its start.
	StatusPlusAnomaly Kind = "status_plus_anomaly"
	// SkippedRow: the parser dropped an unreadable source row (skip_bad_rows).
	SkippedRow Kind = "skipped_row"
)

// Event is one observation.
type Event struct {
	Kind     Kind
	Relation string
	Column   string
	Row      int
	Value    string
	Detail   string
}

// Recorder collects events. It is safe for concurrent use.
type Recorder struct {
	job       string
	log       logrus.FieldLogger
	maxLogged int

	mu     sync.Mutex
	counts map[Kind]int
}

// DefaultMaxLogged caps logged samples per kind.
const DefaultMaxLogged = 20

// NewRecorder returns a Recorder that logs at most DefaultMaxLogged events
// per kind. A nil logger disables logging.
func NewRecorder(job string, log logrus.FieldLogger) *Recorder {
	return &Recorder{job: job, log: log, maxLogged: DefaultMaxLogged, counts: map[Kind]int{}}
}

// SetMaxLogged changes the per-kind log sample size.
func (r *Recorder) SetMaxLogged(n int) { r.mu.Lock(); r.maxLogged = n; r.mu.Unlock() }

// Record counts ev, logs it if the per-kind sample is not exhausted, and
// forwards it to metrics.
func (r *Recorder) Record(ev Event) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.counts[ev.Kind]++
	n := r.counts[ev.Kind]
	logIt := r.log != nil && n <= r.maxLogged
	r.mu.Unlock()

	metrics.RecordQuality(r.job, string(ev.Kind), 1)

	if !logIt {
		return
	}
	fields := logrus.Fields{"kind": string(ev.Kind), "relation": ev.Relation, "row": ev.Row}
	if ev.Column != "" {
		fields["column"] = ev.Column
	}
	if ev.Value != "" {
		fields["value"] = ev.Value
	}
	r.log.WithFields(fields).Debugf("quality: %s", ev.Detail)
	if n == r.maxLogged {
		r.log.WithField("kind", string(ev.Kind)).Debug("quality: sample limit reached; further events are only counted")
	}
}

// Count returns the number of events of kind.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[kind]
}

// Counts returns a copy of all per-kind counts.
func (r *Recorder) Counts() map[Kind]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[Kind]int, len(r.counts))
	for k, v := range r.counts {
		out[k] = v
	}
	return out
}

// Summarize logs one line per kind at Info level, sorted by kind.
func (r *Recorder) Summarize() {
	if r == nil || r.log == nil {
		return
	}
	counts := r.Counts()
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		r.log.WithFields(logrus.Fields{"kind": k, "count": counts[Kind(k)]}).Info("quality: events recorded")
	}
}
