// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql and the pure-Go modernc.org/sqlite driver. It reads the
// Ergast SQLite port, one table per source relation.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/debastene/f1-psda-dashboard/internal/relation"
	"github.com/debastene/f1-psda-dashboard/internal/storage"
)

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository opens a SQLite connection using the provided DSN and returns
// a Repository plus a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	closeFn := func() { db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// ReadTable selects every row of table. Values are converted with
// storage.CellText; SQL NULL becomes nil.
func (r *Repository) ReadTable(ctx context.Context, table string) (*relation.Relation, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(table))
	if err != nil {
		return nil, fmt.Errorf("sqlite: select %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sqlite: columns %s: %w", table, err)
	}
	rel := relation.New(table, cols)

	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("sqlite: scan %s: %w", table, err)
		}
		cells := make([]any, len(cols))
		for i, v := range vals {
			cells[i] = storage.CellText(v)
		}
		rel.Rows = append(rel.Rows, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: read %s: %w", table, err)
	}
	return rel, nil
}

// TableStamp returns "count:max(keyColumn)" for table.
func (r *Repository) TableStamp(ctx context.Context, table, keyColumn string) (string, error) {
	q := "SELECT count(*), NULL FROM " + quoteIdent(table)
	if keyColumn != "" {
		q = fmt.Sprintf("SELECT count(*), max(%s) FROM %s", quoteIdent(keyColumn), quoteIdent(table))
	}
	var (
		n   int64
		top any
	)
	if err := r.db.QueryRowContext(ctx, q).Scan(&n, &top); err != nil {
		return "", fmt.Errorf("sqlite: stamp %s: %w", table, err)
	}
	m, _ := relation.Text(storage.CellText(top))
	return fmt.Sprintf("%d:%s", n, m), nil
}

// Exec executes an arbitrary SQL statement using the underlying database/sql
// connection.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sql); err != nil {
		return fmt.Errorf("sqlite: exec: %w", err)
	}
	return nil
}

// quoteIdent quotes a single identifier, e.g. quoteIdent(`a"b`) => `"a""b"`.
func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
