// Package postgres implements a read-only storage.Repository over pgx v5,
// for the Ergast Postgres port of the results database.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/debastene/f1-psda-dashboard/internal/relation"
	"github.com/debastene/f1-psda-dashboard/internal/storage"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN string // connection string for pgxpool
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	close := func() { pool.Close() }
	return &Repository{pool: pool, cfg: cfg}, close, nil
}

// ReadTable selects every row of table ("results" or "schema.results").
func (r *Repository) ReadTable(ctx context.Context, table string) (*relation.Relation, error) {
	rows, err := r.pool.Query(ctx, "SELECT * FROM "+splitFQN(table).Sanitize())
	if err != nil {
		return nil, fmt.Errorf("postgres: select %s: %w", table, err)
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}
	rel := relation.New(table, cols)

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("postgres: values %s: %w", table, err)
		}
		cells := make([]any, len(vals))
		for i, v := range vals {
			cells[i] = storage.CellText(v)
		}
		rel.Rows = append(rel.Rows, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: read %s: %w", table, err)
	}
	return rel, nil
}

// TableStamp returns "count:max(keyColumn)" for table.
func (r *Repository) TableStamp(ctx context.Context, table, keyColumn string) (string, error) {
	q := stampQuery(table, keyColumn)
	var (
		n   int64
		top *string
	)
	if err := r.pool.QueryRow(ctx, q).Scan(&n, &top); err != nil {
		return "", fmt.Errorf("postgres: stamp %s: %w", table, err)
	}
	return fmt.Sprintf("%d:%s", n, derefStr(top)), nil
}

// stampQuery builds the count/max query; max is cast to text so any key type
// scans into a string.
func stampQuery(table, keyColumn string) string {
	if keyColumn == "" {
		return "SELECT count(*), NULL::text FROM " + splitFQN(table).Sanitize()
	}
	return fmt.Sprintf("SELECT count(*), max(%s)::text FROM %s",
		pgx.Identifier{keyColumn}.Sanitize(), splitFQN(table).Sanitize())
}

// splitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			id = append(id, p)
		}
	}
	return id
}

func derefStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
