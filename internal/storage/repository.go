// Package storage contains the backend-agnostic contract for reading source
// relations out of a SQL database, plus a small factory registry.
//
// Backends (postgres, sqlite) register a Factory for their kind from an init
// function; callers obtain a Repository through New without importing the
// backend package directly (see storage/all).
package storage

import (
	"context"
	"database/sql/driver"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/debastene/f1-psda-dashboard/internal/relation"
)

// Config selects and configures a backend.
type Config struct {
	// Kind is the registered backend name, e.g. "postgres" or "sqlite".
	Kind string
	// DSN is passed to the backend driver unchanged.
	DSN string
}

// Repository reads whole tables as relations.
type Repository interface {
	// ReadTable returns every row of table. Cells are strings, or nil for
	// SQL NULL, so database input looks exactly like parsed CSV input.
	ReadTable(ctx context.Context, table string) (*relation.Relation, error)

	// TableStamp returns a cheap version marker for table: its row count and
	// the maximum of keyColumn. keyColumn may be empty.
	TableStamp(ctx context.Context, table, keyColumn string) (string, error)

	Close()
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository of cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// CellText converts a driver value to the relation cell representation:
// nil stays nil, everything else becomes its canonical text.
func CellText(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil {
			return fmt.Sprint(x)
		}
		return CellText(dv)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
