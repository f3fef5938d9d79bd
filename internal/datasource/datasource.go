// Package datasource abstracts where the bytes of one source relation come
// from (local file, HTTP endpoint).
package datasource

import (
	"context"
	"io"
)

// Source opens the raw bytes of a single relation.
type Source interface {
	// Name is the relation the source carries (e.g. "results").
	Name() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Stamper is implemented by sources that can describe their current version
// without transferring the content (e.g. HTTP validators). An empty stamp
// means "unknown"; callers then fall back to hashing the content.
type Stamper interface {
	Stamp(ctx context.Context) (string, error)
}
