// Package pipeline wires load, clean, join and derive into one call and
// serves summaries over the cached fact table.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/debastene/f1-psda-dashboard/internal/config"
	"github.com/debastene/f1-psda-dashboard/internal/derive"
	"github.com/debastene/f1-psda-dashboard/internal/fact"
	"github.com/debastene/f1-psda-dashboard/internal/join"
	"github.com/debastene/f1-psda-dashboard/internal/loader"
	"github.com/debastene/f1-psda-dashboard/internal/metrics"
	"github.com/debastene/f1-psda-dashboard/internal/quality"
	"github.com/debastene/f1-psda-dashboard/internal/relation"
	"github.com/debastene/f1-psda-dashboard/internal/schema"
	"github.com/debastene/f1-psda-dashboard/internal/transformer/builtin"
)

// Step names used for metrics and logs.
const (
	StepLoad      = "load"
	StepClean     = "clean"
	StepJoin      = "join"
	StepDerive    = "derive"
	StepAggregate = "aggregate"
)

// Options carries the ambient collaborators of a run.
type Options struct {
	// Log receives step progress. nil discards.
	Log logrus.FieldLogger
	// Quality receives data-quality events. nil creates a private recorder.
	Quality *quality.Recorder
}

func (o Options) normalize(job string) Options {
	if o.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.Log = l
	}
	if o.Quality == nil {
		o.Quality = quality.NewRecorder(job, o.Log)
	}
	return o
}

// Report describes what one preparation did besides producing the table.
type Report struct {
	Sentinels map[string]int
	Join      join.Stats
	Rows      int
}

// LoadAndPrepare opens the configured source, reads the five relations and
// returns the fact table. A source that cannot be read surfaces as
// *loader.SourceUnavailable; nothing is partially built in that case.
func LoadAndPrepare(ctx context.Context, p config.Pipeline, opt Options) (*fact.Table, error) {
	opt = opt.normalize(p.Job)
	l, err := loader.New(ctx, p, loader.Options{Job: p.Job, Log: opt.Log, Quality: opt.Quality})
	if err != nil {
		return nil, err
	}
	defer l.Close()
	t, _, err := Prepare(ctx, l, p, opt)
	return t, err
}

// Prepare runs every step against an already-open loader.
func Prepare(ctx context.Context, l loader.Loader, p config.Pipeline, opt Options) (*fact.Table, Report, error) {
	opt = opt.normalize(p.Job)
	var rep Report

	var raw *schema.Raw
	err := timed(p.Job, StepLoad, opt.Log, func() error {
		var err error
		raw, err = l.Load(ctx)
		return err
	})
	if err != nil {
		return nil, rep, err
	}

	err = timed(p.Job, StepClean, opt.Log, func() error {
		c, err := builtin.NewCleaner(p.Clean.Sentinel, p.Clean.Relations)
		if err != nil {
			return err
		}
		rep.Sentinels = c.Clean(raw)
		return nil
	})
	if err != nil {
		return nil, rep, err
	}

	var joined *relation.Relation
	err = timed(p.Job, StepJoin, opt.Log, func() error {
		var err error
		j := join.New(join.Options{
			Strict:    p.Join.Strict,
			Collision: join.RuleSuffixRight{Suffix: p.Join.TeamSuffix},
			Quality:   opt.Quality,
			Log:       opt.Log,
			Job:       p.Job,
		})
		joined, rep.Join, err = j.Join(raw)
		return err
	})
	if err != nil {
		return nil, rep, err
	}

	var t *fact.Table
	err = timed(p.Job, StepDerive, opt.Log, func() error {
		var err error
		t, err = derive.New(opt.Quality, opt.Log).Derive(joined)
		return err
	})
	if err != nil {
		return nil, rep, err
	}
	rep.Rows = t.Len()

	opt.Log.WithFields(logrus.Fields{
		"rows":       rep.Rows,
		"input":      rep.Join.Input,
		"sentinels":  rep.Sentinels,
		"dropped":    rep.Join.Dropped,
		"duplicates": rep.Join.Duplicates,
	}).Info("fact table ready")
	return t, rep, nil
}

func timed(job, step string, log logrus.FieldLogger, fn func() error) error {
	start := time.Now()
	err := fn()
	d := time.Since(start)
	metrics.RecordStep(job, step, err, d)
	if err != nil {
		log.WithError(err).WithField("step", step).Error("step failed")
		return fmt.Errorf("%s: %w", step, err)
	}
	log.WithFields(logrus.Fields{"step": step, "elapsed": d}).Debug("step done")
	return nil
}
