// Package loader reads the five source relations into a schema.Raw.
//
// Loading is all-or-nothing: either every relation is read and carries its
// required columns, or Load returns a *SourceUnavailable naming the first
// relation that failed and no relations at all.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/debastene/f1-psda-dashboard/internal/config"
	"github.com/debastene/f1-psda-dashboard/internal/datasource"
	"github.com/debastene/f1-psda-dashboard/internal/datasource/file"
	"github.com/debastene/f1-psda-dashboard/internal/datasource/httpds"
	csvparser "github.com/debastene/f1-psda-dashboard/internal/parser/csv"
	"github.com/debastene/f1-psda-dashboard/internal/quality"
	"github.com/debastene/f1-psda-dashboard/internal/relation"
	"github.com/debastene/f1-psda-dashboard/internal/schema"
	"github.com/debastene/f1-psda-dashboard/internal/storage"
)

// Loader reads one snapshot of the source.
type Loader interface {
	// Load returns all five relations or a *SourceUnavailable.
	Load(ctx context.Context) (*schema.Raw, error)
	// Fingerprint identifies the current snapshot without parsing it.
	Fingerprint(ctx context.Context) (string, error)
	// Close releases connections held by the loader.
	Close()
}

// SourceUnavailable reports that a required relation could not be read:
// missing file, permission, decode failure, or missing required column.
type SourceUnavailable struct {
	Relation string
	Err      error
}

func (e *SourceUnavailable) Error() string {
	return fmt.Sprintf("source unavailable: relation %s: %v", e.Relation, e.Err)
}

func (e *SourceUnavailable) Unwrap() error { return e.Err }

func unavailable(name string, err error) error {
	var su *SourceUnavailable
	if errors.As(err, &su) {
		return err
	}
	return &SourceUnavailable{Relation: name, Err: err}
}

// Options carries the ambient collaborators shared by all loaders.
type Options struct {
	// Job labels metrics.
	Job string
	// Log receives progress lines. nil discards.
	Log logrus.FieldLogger
	// Quality receives skipped-row events. nil ignores them.
	Quality *quality.Recorder
}

func (o Options) logger() logrus.FieldLogger {
	if o.Log != nil {
		return o.Log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// New builds the loader selected by p.Source.Kind. Database kinds need their
// backend registered with the storage factory (see storage/all).
func New(ctx context.Context, p config.Pipeline, opt Options) (Loader, error) {
	log := opt.logger()
	opt.Log = log

	switch p.Source.Kind {
	case config.SourceDir, "":
		dir := file.NewDir(p.Source.Dir.Path, p.Source.Tables)
		srcs := make(map[string]datasource.Source, len(schema.Definitions))
		for _, d := range schema.Definitions {
			srcs[d.Name] = dir.Source(d.Name)
		}
		return NewFileLoader(srcs, newParser(p, log), opt), nil

	case config.SourceHTTP:
		c := httpds.NewClient(httpds.Config{
			Timeout:    time.Duration(p.Source.HTTP.TimeoutSeconds) * time.Second,
			MaxRetries: p.Source.HTTP.MaxRetries,
		}, log)
		srcs := make(map[string]datasource.Source, len(schema.Definitions))
		for _, d := range schema.Definitions {
			u, err := httpds.RelationURL(p.Source.HTTP.BaseURL, d.Name, p.Source.Tables)
			if err != nil {
				return nil, err
			}
			srcs[d.Name] = httpds.NewSource(c, d.Name, u)
		}
		return NewFileLoader(srcs, newParser(p, log), opt), nil

	case config.SourceSQLite, config.SourcePostgres:
		repo, err := storage.New(ctx, storage.Config{Kind: p.Source.Kind, DSN: p.Source.DB.DSN})
		if err != nil {
			return nil, fmt.Errorf("loader: open %s: %w", p.Source.Kind, err)
		}
		return NewDBLoader(repo, p.Source.Kind, p.Source.DB.DSN, p.Source.Tables, opt), nil
	}
	return nil, fmt.Errorf("loader: unsupported source.kind=%q", p.Source.Kind)
}

func newParser(p config.Pipeline, log logrus.FieldLogger) *csvparser.Parser {
	return csvparser.NewParser(csvparser.OptionsFrom(p.Parser.Options), log)
}

// conform renames columns that match a required column case-insensitively
// (Postgres folds unquoted identifiers to lower case) and then checks that
// every required column is present.
func conform(rel *relation.Relation, d schema.Definition) error {
	rel.Name = d.Name
	for _, want := range d.Required {
		if rel.Has(want) {
			continue
		}
		for _, c := range rel.Columns {
			if strings.EqualFold(c, want) {
				if err := rel.Rename(c, want); err != nil {
					return err
				}
				break
			}
		}
	}
	return rel.Require(d.Required...)
}

// assemble moves per-relation results into a Raw once every read succeeded.
func assemble(rels []*relation.Relation) (*schema.Raw, error) {
	raw := &schema.Raw{}
	for i, d := range schema.Definitions {
		if err := raw.Set(d.Name, rels[i]); err != nil {
			return nil, err
		}
	}
	return raw, nil
}
