// Package config provides configuration models and helpers for the results
// pipeline.
//
// This file adds a lightweight linter/validator for Pipeline values. It
// performs static checks over a decoded Pipeline and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"net/url"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "source.kind",
// "clean.relations[1]"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// relationNames is duplicated from schema to keep config dependency-free.
var relationNames = map[string]struct{}{
	"results": {}, "drivers": {}, "races": {}, "status": {}, "constructors": {},
}

// ValidatePipeline performs static validation / linting of a Pipeline.
//
// It does not mutate the pipeline. Callers may decide whether to treat
// warnings as fatal or not.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateParser(p.Parser, p.Source.Kind)...)
	issues = append(issues, validateClean(p.Clean)...)
	issues = append(issues, validateJoin(p.Join)...)
	issues = append(issues, validateMetrics(p.Metrics)...)
	issues = append(issues, validateYears(p.Years)...)

	return issues
}

// validateSource validates Source configuration.
func validateSource(s Source) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  "source.kind must not be empty",
		})
	}

	switch s.Kind {
	case SourceDir:
		if strings.TrimSpace(s.Dir.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.dir.path",
				Message:  "dir source requires a non-empty path",
			})
		}
	case SourceHTTP:
		u, err := url.Parse(s.HTTP.BaseURL)
		if strings.TrimSpace(s.HTTP.BaseURL) == "" || err != nil || u.Scheme == "" || u.Host == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.http.base_url",
				Message:  "http source requires an absolute base_url",
			})
		}
		if s.HTTP.MaxRetries < 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.http.max_retries",
				Message:  "max_retries must not be negative",
			})
		}
	case SourceSQLite, SourcePostgres:
		if strings.TrimSpace(s.DB.DSN) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.db.dsn",
				Message:  fmt.Sprintf("%s source requires a non-empty dsn", s.Kind),
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unknown source kind %q; want one of dir, http, sqlite, postgres", s.Kind),
		})
	}

	for name, table := range s.Tables {
		if _, ok := relationNames[name]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "source.tables." + name,
				Message:  fmt.Sprintf("unknown relation %q; override is ignored", name),
			})
		}
		if strings.TrimSpace(table) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.tables." + name,
				Message:  "table override must not be empty",
			})
		}
	}

	return issues
}

// validateParser validates parser configuration. Database sources do not
// use the parser, so its settings are only checked for file-like sources.
func validateParser(p Parser, sourceKind string) []Issue {
	var issues []Issue

	if sourceKind == SourceSQLite || sourceKind == SourcePostgres {
		return nil
	}
	if strings.TrimSpace(p.Kind) == "" {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.kind",
			Message:  "parser.kind must not be empty",
		})
	}
	if p.Kind != "csv" {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.kind",
			Message:  fmt.Sprintf("unknown parser kind %q; only csv is supported", p.Kind),
		})
	}

	switch enc := strings.ToLower(p.Options.String("encoding", "latin1")); enc {
	case "latin1", "iso-8859-1", "iso8859-1", "windows1252", "cp1252":
	case "utf8", "utf-8":
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "parser.options.encoding",
			Message:  "utf8 selected; the Ergast CSV dump is Latin-1 and accented names will be mangled if it is read as UTF-8",
		})
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.options.encoding",
			Message:  fmt.Sprintf("unsupported encoding %q", enc),
		})
	}
	if c := p.Options.String("comma", ","); len([]rune(c)) != 1 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.options.comma",
			Message:  "comma must be a single character",
		})
	}

	return issues
}

// validateClean validates sentinel cleaning.
func validateClean(c Clean) []Issue {
	var issues []Issue

	if c.Sentinel == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "clean.sentinel",
			Message:  "no sentinel configured; missing values will reach numeric coercion as text",
		})
	}
	for i, name := range c.Relations {
		path := fmt.Sprintf("clean.relations[%d]", i)
		if _, ok := relationNames[name]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  fmt.Sprintf("unknown relation %q", name),
			})
			continue
		}
		if name == "status" || name == "constructors" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  fmt.Sprintf("relation %q must not be sentinel-cleaned", name),
			})
		}
	}

	return issues
}

// validateJoin validates the join policy.
func validateJoin(j Join) []Issue {
	if strings.TrimSpace(j.TeamSuffix) == "" {
		return []Issue{{
			Severity: SeverityError,
			Path:     "join.team_suffix",
			Message:  "team_suffix must not be empty; races and constructors both carry a name column",
		}}
	}
	return nil
}

// validateMetrics validates the metrics backend selection.
func validateMetrics(m Metrics) []Issue {
	var issues []Issue

	switch m.Backend {
	case "", MetricsNone:
	case MetricsPushgateway:
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "metrics.pushgateway_url",
				Message:  "pushgateway backend without url; http://localhost:9091 is used",
			})
		}
	case MetricsDatadog:
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.datadog_addr",
				Message:  "datadog backend requires datadog_addr",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; metrics will be disabled", m.Backend),
		})
	}

	return issues
}

// validateYears checks the default query range.
func validateYears(y YearRange) []Issue {
	if y.From == 0 && y.To == 0 {
		return nil
	}
	if y.From > y.To {
		return []Issue{{
			Severity: SeverityError,
			Path:     "years",
			Message:  fmt.Sprintf("years.from (%d) is after years.to (%d)", y.From, y.To),
		}}
	}
	if y.From < YearDomain.From || y.To > YearDomain.To {
		return []Issue{{
			Severity: SeverityWarning,
			Path:     "years",
			Message:  fmt.Sprintf("range %d-%d extends beyond %d-%d", y.From, y.To, YearDomain.From, YearDomain.To),
		}}
	}
	return nil
}
