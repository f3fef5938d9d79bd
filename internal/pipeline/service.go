package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/debastene/f1-psda-dashboard/internal/aggregate"
	"github.com/debastene/f1-psda-dashboard/internal/cache"
	"github.com/debastene/f1-psda-dashboard/internal/config"
	"github.com/debastene/f1-psda-dashboard/internal/fact"
	"github.com/debastene/f1-psda-dashboard/internal/loader"
	"github.com/debastene/f1-psda-dashboard/internal/metrics"
)

// Service answers summary queries. The fact table is rebuilt only when the
// source fingerprint changes; every query in between reuses it.
type Service struct {
	cfg    config.Pipeline
	loader loader.Loader
	cache  *cache.Cache
	opt    Options

	mu   sync.Mutex
	last Report
}

// Open builds the configured loader and returns a Service over it.
func Open(ctx context.Context, p config.Pipeline, opt Options) (*Service, error) {
	opt = opt.normalize(p.Job)
	l, err := loader.New(ctx, p, loader.Options{Job: p.Job, Log: opt.Log, Quality: opt.Quality})
	if err != nil {
		return nil, err
	}
	return NewService(p, l, opt), nil
}

// NewService returns a Service over l. The Service owns l.
func NewService(p config.Pipeline, l loader.Loader, opt Options) *Service {
	return &Service{cfg: p, loader: l, cache: cache.New(p.Job), opt: opt.normalize(p.Job)}
}

// Table returns the fact table for the current state of the source.
func (s *Service) Table(ctx context.Context) (*fact.Table, error) {
	fp, err := s.loader.Fingerprint(ctx)
	if err != nil {
		return nil, err
	}
	return s.cache.Get(ctx, fp, func(ctx context.Context) (*fact.Table, error) {
		s.opt.Log.WithField("fingerprint", fp).Info("building fact table")
		t, rep, err := Prepare(ctx, s.loader, s.cfg, s.opt)
		if err == nil {
			s.mu.Lock()
			s.last = rep
			s.mu.Unlock()
		}
		return t, err
	})
}

// Summary computes every view over seasons [lo, hi]. Load failures are
// returned as errors; a range without winners is not an error and is
// reported in Summary.WinnerErr.
func (s *Service) Summary(ctx context.Context, lo, hi int) (aggregate.Summary, error) {
	t, err := s.Table(ctx)
	if err != nil {
		return aggregate.Summary{}, err
	}
	start := time.Now()
	sum := aggregate.Compute(t, lo, hi)
	metrics.RecordStep(s.cfg.Job, StepAggregate, nil, time.Since(start))
	return sum, nil
}

// LastReport returns the report of the most recent successful build.
func (s *Service) LastReport() Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// CacheStats exposes the table cache counters.
func (s *Service) CacheStats() cache.Stats { return s.cache.Stats() }

// Close releases the loader.
func (s *Service) Close() { s.loader.Close() }
