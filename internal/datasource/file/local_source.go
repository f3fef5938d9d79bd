// Package file implements a local filesystem-backed data source.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local is a filesystem data source for one relation file.
type Local struct {
	name string
	path string
}

// NewLocal returns a Local source for relation name stored at path. The
// returned value is safe for concurrent use.
func NewLocal(name, path string) *Local { return &Local{name: name, path: path} }

// Name implements datasource.Source.
func (l *Local) Name() string { return l.name }

// Path returns the file path backing the source.
func (l *Local) Path() string { return l.path }

// Open opens the configured path for reading.
//
// A context that is already done short-circuits without touching the
// filesystem. Filesystem errors are wrapped with the path and still satisfy
// errors.Is checks such as os.ErrNotExist.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}

// Dir is a directory holding one "<table>.csv" file per relation, the
// layout of the Ergast CSV dump.
type Dir struct {
	root   string
	tables map[string]string
}

// NewDir returns a Dir rooted at root. tables optionally overrides the file
// stem per relation name.
func NewDir(root string, tables map[string]string) *Dir {
	return &Dir{root: root, tables: tables}
}

// Source returns the Local source for relation name.
func (d *Dir) Source(name string) *Local {
	stem := name
	if t, ok := d.tables[name]; ok && t != "" {
		stem = t
	}
	if filepath.Ext(stem) == "" {
		stem += ".csv"
	}
	return NewLocal(name, filepath.Join(d.root, stem))
}
