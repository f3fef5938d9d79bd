// Package relation holds the in-memory tabular representation shared by the
// loader, cleaner, joiner, and deriver.
//
// A Relation is an ordered list of column names plus rows of cells. Cells are
// either a string (as read from the source), a coerced Go value (int,
// float64), or nil. nil is the one and only null marker; an empty string is a
// value, not a null.
package relation

import (
	"fmt"
	"strings"
)

// Relation is a named table of rows aligned to Columns.
type Relation struct {
	Name    string
	Columns []string
	Rows    [][]any

	index map[string]int
}

// New returns an empty relation with the given columns.
func New(name string, columns []string) *Relation {
	r := &Relation{Name: name, Columns: append([]string(nil), columns...)}
	r.reindex()
	return r
}

func (r *Relation) reindex() {
	r.index = make(map[string]int, len(r.Columns))
	for i, c := range r.Columns {
		if _, dup := r.index[c]; !dup {
			r.index[c] = i
		}
	}
}

// Col returns the position of column name, or -1 when absent.
func (r *Relation) Col(name string) int {
	if r.index == nil {
		r.reindex()
	}
	if i, ok := r.index[name]; ok {
		return i
	}
	return -1
}

// Has reports whether the relation carries column name.
func (r *Relation) Has(name string) bool { return r.Col(name) >= 0 }

// Len returns the number of rows.
func (r *Relation) Len() int { return len(r.Rows) }

// Append adds a row. The row must have exactly len(Columns) cells.
func (r *Relation) Append(row []any) error {
	if len(row) != len(r.Columns) {
		return fmt.Errorf("relation %s: row has %d cells, want %d", r.Name, len(row), len(r.Columns))
	}
	r.Rows = append(r.Rows, row)
	return nil
}

// Rename changes a column name in place. It fails when from is missing or to
// already exists.
func (r *Relation) Rename(from, to string) error {
	i := r.Col(from)
	if i < 0 {
		return fmt.Errorf("relation %s: no column %q", r.Name, from)
	}
	if from == to {
		return nil
	}
	if r.Has(to) {
		return fmt.Errorf("relation %s: column %q already exists", r.Name, to)
	}
	r.Columns[i] = to
	r.reindex()
	return nil
}

// Require returns an error naming every column in cols that r lacks.
func (r *Relation) Require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if !r.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("relation %s: missing required columns: %s", r.Name, strings.Join(missing, ", "))
	}
	return nil
}

// Text returns the cell at (row, col) rendered as text. ok is false for a
// null cell.
func (r *Relation) Text(row, col int) (s string, ok bool) {
	return Text(r.Rows[row][col])
}

// Text renders a single cell as text. ok is false for nil.
func Text(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case []byte:
		return string(x), true
	default:
		return fmt.Sprint(x), true
	}
}
