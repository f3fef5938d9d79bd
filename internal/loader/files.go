package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/debastene/f1-psda-dashboard/internal/datasource"
	"github.com/debastene/f1-psda-dashboard/internal/metrics"
	"github.com/debastene/f1-psda-dashboard/internal/parser"
	"github.com/debastene/f1-psda-dashboard/internal/quality"
	"github.com/debastene/f1-psda-dashboard/internal/relation"
	"github.com/debastene/f1-psda-dashboard/internal/schema"
	"github.com/debastene/f1-psda-dashboard/internal/snapshot"
)

// FileLoader reads each relation from a byte source (local file or URL) and
// parses it with a delimited-text parser.
type FileLoader struct {
	sources map[string]datasource.Source
	parser  parser.Parser
	opt     Options
}

// NewFileLoader returns a FileLoader. sources must hold one entry per
// relation in schema.Definitions.
func NewFileLoader(sources map[string]datasource.Source, p parser.Parser, opt Options) *FileLoader {
	opt.Log = opt.logger()
	return &FileLoader{sources: sources, parser: p, opt: opt}
}

// Load reads the five relations concurrently. The first failure cancels the
// remaining reads.
func (l *FileLoader) Load(ctx context.Context) (*schema.Raw, error) {
	rels := make([]*relation.Relation, len(schema.Definitions))
	skipped := make([]int, len(schema.Definitions))

	g, gctx := errgroup.WithContext(ctx)
	for i, d := range schema.Definitions {
		i, d := i, d
		g.Go(func() error {
			rel, n, err := l.read(gctx, d)
			if err != nil {
				return unavailable(d.Name, err)
			}
			rels[i], skipped[i] = rel, n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, d := range schema.Definitions {
		metrics.RecordRow(l.opt.Job, "loaded", int64(rels[i].Len()))
		metrics.RecordRow(l.opt.Job, "skipped", int64(skipped[i]))
		for k := 0; k < skipped[i]; k++ {
			l.opt.Quality.Record(quality.Event{
				Kind:     quality.SkippedRow,
				Relation: d.Name,
				Row:      -1,
				Detail:   "unreadable source line skipped",
			})
		}
		l.opt.Log.WithFields(logrus.Fields{
			"relation": d.Name,
			"rows":     rels[i].Len(),
			"skipped":  skipped[i],
		}).Debug("loader: relation read")
	}
	return assemble(rels)
}

func (l *FileLoader) read(ctx context.Context, d schema.Definition) (*relation.Relation, int, error) {
	src, ok := l.sources[d.Name]
	if !ok {
		return nil, 0, fmt.Errorf("no source configured")
	}
	start := time.Now()
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer rc.Close()

	rel, skipped, err := l.parser.ReadRelation(d.Name, rc)
	if err != nil {
		return nil, 0, err
	}
	if err := conform(rel, d); err != nil {
		return nil, 0, err
	}
	l.opt.Log.WithField("relation", d.Name).Debugf("loader: parsed in %s", time.Since(start))
	return rel, skipped, nil
}

// Fingerprint hashes every relation in schema order. Sources that can stamp
// themselves (HTTP validators) contribute the stamp; all others contribute
// their full content.
func (l *FileLoader) Fingerprint(ctx context.Context) (string, error) {
	h := snapshot.New()
	for _, d := range schema.Definitions {
		src, ok := l.sources[d.Name]
		if !ok {
			return "", unavailable(d.Name, fmt.Errorf("no source configured"))
		}
		h.Section(d.Name)

		if st, ok := src.(datasource.Stamper); ok {
			stamp, err := st.Stamp(ctx)
			if err != nil {
				return "", unavailable(d.Name, err)
			}
			if stamp != "" {
				h.String(stamp)
				continue
			}
		}

		rc, err := src.Open(ctx)
		if err != nil {
			return "", unavailable(d.Name, err)
		}
		_, err = h.CopyFrom(rc)
		rc.Close()
		if err != nil {
			return "", unavailable(d.Name, err)
		}
	}
	return h.Sum(), nil
}

// Close implements Loader.
func (l *FileLoader) Close() {}
