package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/debastene/f1-psda-dashboard/internal/config"
	"github.com/debastene/f1-psda-dashboard/internal/metrics"
	"github.com/debastene/f1-psda-dashboard/internal/relation"
	"github.com/debastene/f1-psda-dashboard/internal/schema"
	"github.com/debastene/f1-psda-dashboard/internal/snapshot"
	"github.com/debastene/f1-psda-dashboard/internal/storage"
)

// DBLoader reads each relation as a whole table from a SQL database.
type DBLoader struct {
	repo   storage.Repository
	kind   string
	dsn    string
	tables map[string]string
	opt    Options
}

// NewDBLoader returns a DBLoader over repo. tables optionally overrides the
// table name per relation; kind and dsn feed the fingerprint.
func NewDBLoader(repo storage.Repository, kind, dsn string, tables map[string]string, opt Options) *DBLoader {
	opt.Log = opt.logger()
	return &DBLoader{repo: repo, kind: kind, dsn: dsn, tables: tables, opt: opt}
}

func (l *DBLoader) table(name string) string {
	if t, ok := l.tables[name]; ok && t != "" {
		return t
	}
	return name
}

// Load implements Loader.
func (l *DBLoader) Load(ctx context.Context) (*schema.Raw, error) {
	rels := make([]*relation.Relation, len(schema.Definitions))

	g, gctx := errgroup.WithContext(ctx)
	for i, d := range schema.Definitions {
		i, d := i, d
		g.Go(func() error {
			rel, err := l.repo.ReadTable(gctx, l.table(d.Name))
			if err != nil {
				return unavailable(d.Name, err)
			}
			if err := conform(rel, d); err != nil {
				return unavailable(d.Name, err)
			}
			rels[i] = rel
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, d := range schema.Definitions {
		metrics.RecordRow(l.opt.Job, "loaded", int64(rels[i].Len()))
		l.opt.Log.WithField("relation", d.Name).WithField("rows", rels[i].Len()).Debug("loader: table read")
	}
	return assemble(rels)
}

// Fingerprint hashes the backend identity plus each table's row count and
// maximum key (count only for results, which has no single key). For sqlite
// the database file's size and modification time are hashed too, so an
// in-place update is detected. On postgres an update that keeps count and
// maximum key unchanged is not.
func (l *DBLoader) Fingerprint(ctx context.Context) (string, error) {
	h := snapshot.New()
	h.Section(l.kind)
	h.String(l.dsn)
	if l.kind == config.SourceSQLite {
		for _, path := range sqliteFiles(l.dsn) {
			fi, err := os.Stat(path)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return "", unavailable(schema.Results, err)
			}
			h.Section(filepath.Base(path))
			h.String(fmt.Sprintf("%d|%d", fi.Size(), fi.ModTime().UnixNano()))
		}
	}
	for _, d := range schema.Definitions {
		stamp, err := l.repo.TableStamp(ctx, l.table(d.Name), d.Key)
		if err != nil && d.Key != "" {
			// Key column spelled differently (e.g. folded to lower case).
			stamp, err = l.repo.TableStamp(ctx, l.table(d.Name), "")
		}
		if err != nil {
			return "", unavailable(d.Name, err)
		}
		h.Section(d.Name)
		h.String(stamp)
	}
	return h.Sum(), nil
}

// sqliteFiles returns the database file named by dsn and its write-ahead
// log. In-memory databases have no files.
func sqliteFiles(dsn string) []string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		if strings.Contains(path[i:], "mode=memory") {
			return nil
		}
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	return []string{path, path + "-wal"}
}

// Close implements Loader.
func (l *DBLoader) Close() { l.repo.Close() }
