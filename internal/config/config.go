// Package config defines the JSON-serializable configuration model for the
// results pipeline: where the five relations come from, how they are parsed
// and cleaned, how strictly foreign keys are enforced, and where metrics go.
//
// A config file is optional. Default returns a pipeline that reads the
// Ergast CSV dump from ./data; Load overlays a JSON file on top of the
// defaults and ApplyEnv overlays F1ETL_* environment variables.
//
// Example (trimmed):
//
//	{
//	  "job":     "f1_dashboard",
//	  "source":  { "kind": "dir", "dir": { "path": "archive" } },
//	  "parser":  { "kind": "csv", "options": { "encoding": "latin1" } },
//	  "clean":   { "sentinel": "\\N", "relations": ["results", "races", "drivers"] },
//	  "join":    { "strict": false, "team_suffix": "_team" },
//	  "metrics": { "backend": "none" }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Source kinds.
const (
	SourceDir      = "dir"
	SourceHTTP     = "http"
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
)

// Metrics backends.
const (
	MetricsNone        = "none"
	MetricsPushgateway = "pushgateway"
	MetricsDatadog     = "datadog"
)

// YearRange is an inclusive range of seasons.
type YearRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

var (
	// YearDomain is the span of seasons the dashboard slider offers.
	YearDomain = YearRange{From: 1950, To: 2023}
	// DefaultYearRange is the selection used when the caller gives none.
	DefaultYearRange = YearRange{From: 2000, To: 2023}
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the run for logs and metrics grouping.
	Job string `json:"job"`

	Source  Source  `json:"source"`
	Parser  Parser  `json:"parser"`
	Clean   Clean   `json:"clean"`
	Join    Join    `json:"join"`
	Metrics Metrics `json:"metrics"`
	Log     Log     `json:"log"`

	// Years is the default query range for the summary command.
	Years YearRange `json:"years"`
}

// Source identifies where the five relations are read from.
type Source struct {
	// Kind selects the source implementation: dir, http, sqlite, postgres.
	Kind string `json:"kind"`

	Dir  DirConfig  `json:"dir"`
	HTTP HTTPConfig `json:"http"`
	DB   DBConfig   `json:"db"`

	// Tables optionally overrides the file stem or table name per relation
	// (e.g. {"status": "status_codes"}).
	Tables map[string]string `json:"tables"`
}

// DirConfig holds configuration for the "dir" source kind.
type DirConfig struct {
	// Path is the directory containing results.csv, drivers.csv, ...
	Path string `json:"path"`
}

// HTTPConfig holds configuration for the "http" source kind.
type HTTPConfig struct {
	// BaseURL is the URL prefix the relation files are published under.
	BaseURL    string `json:"base_url"`
	MaxRetries int    `json:"max_retries"`
	// TimeoutSeconds is the per-request timeout.
	TimeoutSeconds int `json:"timeout_seconds"`
}

// DBConfig configures the sqlite and postgres source kinds.
type DBConfig struct {
	// DSN is a file path / sqlite URI, or a postgresql:// connection string.
	DSN string `json:"dsn"`
}

// Parser selects how raw bytes become relations.
type Parser struct {
	// Kind selects the parser implementation. Current value: "csv".
	Kind string `json:"kind"`

	// Options is interpreted by the parser. For CSV: encoding (latin1,
	// windows1252, utf8), comma, trim_space, lazy_quotes, header_map,
	// lower_headers, max_logged_skips.
	Options Options `json:"options"`
}

// Clean configures missing-value sentinel normalization.
type Clean struct {
	// Sentinel is the literal token meaning "no value".
	Sentinel string `json:"sentinel"`
	// Relations lists the relations scanned for the sentinel.
	Relations []string `json:"relations"`
}

// Join configures foreign-key resolution.
type Join struct {
	// Strict turns an unresolved foreign key into an error instead of a
	// dropped row.
	Strict bool `json:"strict"`
	// TeamSuffix disambiguates the constructors' name column.
	TeamSuffix string `json:"team_suffix"`
}

// Metrics selects and configures the metrics backend.
type Metrics struct {
	Backend        string   `json:"backend"`
	PushgatewayURL string   `json:"pushgateway_url"`
	DatadogAddr    string   `json:"datadog_addr"`
	Namespace      string   `json:"namespace"`
	Tags           []string `json:"tags"`
}

// Log configures logrus.
type Log struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Default returns the pipeline used when no config file is given: the Ergast
// CSV dump in ./data, decoded as Latin-1, with the literal \N as the sentinel.
func Default() Pipeline {
	return Pipeline{
		Job:    "f1etl",
		Source: Source{Kind: SourceDir, Dir: DirConfig{Path: "data"}},
		Parser: Parser{Kind: "csv", Options: Options{
			"encoding":   "latin1",
			"trim_space": true,
		}},
		Clean: Clean{
			Sentinel:  `\N`,
			Relations: []string{"results", "races", "drivers"},
		},
		Join:    Join{TeamSuffix: "_team"},
		Metrics: Metrics{Backend: MetricsNone},
		Log:     Log{Level: "info", Format: "text"},
		Years:   DefaultYearRange,
	}
}

// Load reads the JSON pipeline at path over the defaults. Fields absent from
// the file keep their default values.
func Load(path string) (Pipeline, error) {
	p := Default()
	f, err := os.Open(path)
	if err != nil {
		return p, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return p, fmt.Errorf("decode config %s: %w", path, err)
	}
	return p, nil
}

// ApplyEnv overlays environment variables on p. getenv is usually os.Getenv.
//
//	F1ETL_JOB, F1ETL_SOURCE_KIND, F1ETL_SOURCE_DIR, F1ETL_SOURCE_URL,
//	F1ETL_DSN, F1ETL_ENCODING, F1ETL_STRICT_JOIN, F1ETL_LOG_LEVEL,
//	METRICS_BACKEND, PUSHGATEWAY_URL, DD_AGENT_ADDR
func ApplyEnv(p *Pipeline, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&p.Job, "F1ETL_JOB")
	set(&p.Source.Kind, "F1ETL_SOURCE_KIND")
	set(&p.Source.Dir.Path, "F1ETL_SOURCE_DIR")
	set(&p.Source.HTTP.BaseURL, "F1ETL_SOURCE_URL")
	set(&p.Source.DB.DSN, "F1ETL_DSN")
	set(&p.Log.Level, "F1ETL_LOG_LEVEL")
	set(&p.Metrics.Backend, "METRICS_BACKEND")
	set(&p.Metrics.PushgatewayURL, "PUSHGATEWAY_URL")
	set(&p.Metrics.DatadogAddr, "DD_AGENT_ADDR")
	if v := strings.TrimSpace(getenv("F1ETL_ENCODING")); v != "" {
		if p.Parser.Options == nil {
			p.Parser.Options = Options{}
		}
		p.Parser.Options["encoding"] = v
	}
	if v := strings.TrimSpace(getenv("F1ETL_STRICT_JOIN")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			p.Join.Strict = b
		}
	}
}

// Options is a small helper to fetch typed values from arbitrary JSON maps
// without introducing third-party configuration libraries. It purposefully
// performs only minimal type coercion and returns provided defaults when a key
// is absent or of an unexpected type.
//
// Options is used for parser/transform-specific configuration where the shape
// varies by implementation.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers are decoded as
// float64 by encoding/json, so this method accepts float64 and casts to int.
// If the value is neither float64 nor int, def is returned.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty. This is useful for single-character parser settings such as
// a CSV delimiter.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object
// whose values are strings. Non-string values are ignored. Returns an empty map
// when the key is missing or the value is not an object.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		}
	}
	return res
}

// StringSlice returns a []string for key when the value is an array of strings
// (or an array of interface values containing strings). Returns nil when the
// key is missing or the value is not an array.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// Any returns the raw value for key (which may itself be a nested
// map[string]any, []any, or primitive). This is useful for retrieving nested
// configuration blocks that will be unmarshaled into a typed struct by the
// caller (e.g., an inline validation contract).
func (o Options) Any(key string) any {
	if v, ok := o[key]; ok {
		return v
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler so that a missing or null "options"
// object in JSON decodes to a non-nil, empty Options map. This simplifies call
// sites by removing the need to nil-check Options values.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
