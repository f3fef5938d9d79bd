// Command f1etl loads the Ergast results relations, builds the fact table and
// prints dashboard summaries for a range of seasons.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/debastene/f1-psda-dashboard/internal/config"
	"github.com/debastene/f1-psda-dashboard/internal/metrics"
	"github.com/debastene/f1-psda-dashboard/internal/metrics/datadog"
	"github.com/debastene/f1-psda-dashboard/internal/metrics/prompush"

	// register the database backends with the storage factory.
	_ "github.com/debastene/f1-psda-dashboard/internal/storage/all"
)

const defaultPushgatewayURL = "http://localhost:9091"

// app holds what the persistent pre-run resolves for every subcommand.
type app struct {
	cfgPath        string
	logLevel       string
	logFormat      string
	metricsBackend string
	pushgatewayURL string

	cfg   config.Pipeline
	log   *logrus.Logger
	flush func()
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes one command line and flushes metrics whatever the outcome.
func run(args []string, stdout, stderr io.Writer) error {
	root, a := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.Execute()
	a.flush()
	return err
}

func newRootCmd(stdout, stderr io.Writer) (*cobra.Command, *app) {
	a := &app{flush: func() {}}

	root := &cobra.Command{
		Use:   "f1etl",
		Short: "Formula 1 results pipeline",
		Long: `f1etl reads the five Ergast relations (results, drivers, races, status,
constructors) from a directory, an HTTP mirror or a database, joins them
into one fact table and prints season-range summaries.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return a.setup(stderr)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", "", "pipeline config JSON path (default: built-in defaults)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (overrides config and F1ETL_LOG_LEVEL)")
	pf.StringVar(&a.logFormat, "log-format", "", "log format: text or json")
	pf.StringVar(&a.metricsBackend, "metrics-backend", "", "metrics backend: none, pushgateway, datadog (overrides env METRICS_BACKEND)")
	pf.StringVar(&a.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")

	root.AddCommand(newSummaryCmd(a), newValidateCmd(a), newFingerprintCmd(a))
	return root, a
}

// setup resolves config (defaults, file, env, flags), the logger and the
// metrics backend.
func (a *app) setup(stderr io.Writer) error {
	p := config.Default()
	if a.cfgPath != "" {
		var err error
		if p, err = config.Load(a.cfgPath); err != nil {
			return err
		}
	}
	config.ApplyEnv(&p, os.Getenv)
	if a.logLevel != "" {
		p.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		p.Log.Format = a.logFormat
	}
	if a.metricsBackend != "" {
		p.Metrics.Backend = a.metricsBackend
	}
	if a.pushgatewayURL != "" {
		p.Metrics.PushgatewayURL = a.pushgatewayURL
	}
	a.cfg = p
	a.log = newLogger(p.Log, stderr)
	a.setupMetrics()
	return nil
}

func newLogger(c config.Log, out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		l.Warnf("invalid log level %q, defaulting to info", c.Level)
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	if c.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

// setupMetrics installs the configured backend. A backend that cannot be
// created leaves the nop backend in place.
func (a *app) setupMetrics() {
	m := a.cfg.Metrics
	job := a.cfg.Job
	if job == "" {
		job = prompush.DefaultJob
	}
	log := a.log.WithField("backend", m.Backend)

	var (
		b   metrics.Backend
		err error
	)
	switch m.Backend {
	case config.MetricsPushgateway:
		url := m.PushgatewayURL
		if url == "" {
			url = defaultPushgatewayURL
		}
		b, err = prompush.NewBackend(job, url)
		log = log.WithField("url", url)
	case config.MetricsDatadog:
		b, err = datadog.NewBackend(datadog.Config{Addr: m.DatadogAddr, Namespace: m.Namespace, GlobalTags: m.Tags})
		log = log.WithField("addr", m.DatadogAddr)
	case "", config.MetricsNone:
		log.Debug("metrics: disabled")
		return
	default:
		log.Warn("metrics: unknown backend; metrics disabled")
		return
	}
	if err != nil {
		log.WithError(err).Warn("metrics: backend init failed; using nop")
		return
	}

	log.WithField("job", job).Info("metrics: backend ready")
	metrics.SetBackend(b)
	a.flush = func() {
		if err := metrics.Flush(); err != nil {
			a.log.WithError(err).Warn("metrics: flush error")
		}
		if c, ok := b.(io.Closer); ok {
			if err := c.Close(); err != nil {
				a.log.WithError(err).Warn("metrics: close error")
			}
		}
	}
}
