// Package fact defines the denormalized fact table: one row per race result
// with its driver, race, status and constructor attributes resolved.
//
// A Table is immutable once built. Accessors return Row values, never
// pointers into the backing slice, so concurrent readers cannot observe or
// cause mutation.
package fact

import "strings"

// Row is one race result. Empty strings stand for null text attributes.
type Row struct {
	RaceID        string
	DriverID      string
	ConstructorID string
	StatusID      string

	Grid          int
	PositionOrder int
	Points        float64

	Forename    string
	Surname     string
	Nationality string
	FullName    string

	Year     int
	RaceName string

	Status   string
	TeamName string
}

// Table is an immutable list of rows in source order.
type Table struct {
	rows []Row
}

// NewTable copies rows into a new Table.
func NewTable(rows []Row) *Table {
	return &Table{rows: append([]Row(nil), rows...)}
}

// Len returns the number of rows. A nil Table is empty.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// At returns row i by value.
func (t *Table) At(i int) Row { return t.rows[i] }

// Range calls fn for each row in order until fn returns false.
func (t *Table) Range(fn func(i int, r Row) bool) {
	if t == nil {
		return
	}
	for i, r := range t.rows {
		if !fn(i, r) {
			return
		}
	}
}

// Filter returns a new Table holding the rows for which keep is true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := &Table{}
	t.Range(func(_ int, r Row) bool {
		if keep(r) {
			out.rows = append(out.rows, r)
		}
		return true
	})
	return out
}

// Rows returns a copy of all rows.
func (t *Table) Rows() []Row {
	if t == nil {
		return nil
	}
	return append([]Row(nil), t.rows...)
}

// FullName joins forename and surname with a single space. A missing part
// yields the other part alone; both missing yields "".
func FullName(forename, surname string) string {
	switch {
	case forename == "":
		return surname
	case surname == "":
		return forename
	}
	return forename + " " + surname
}

// Surname returns the last whitespace-separated token of a full name.
func Surname(fullName string) string {
	f := strings.Fields(fullName)
	if len(f) == 0 {
		return ""
	}
	return f[len(f)-1]
}

// StatusFinished is the status of a classified finisher on the lead lap.
const StatusFinished = "Finished"

// IsFinish reports whether status denotes a finish: exactly "Finished", or a
// lapped finish written with a leading '+' ("+1 Lap", "+3 Laps").
func IsFinish(status string) bool {
	return status == StatusFinished || strings.HasPrefix(status, "+")
}

// PlusAnomaly reports whether status contains '+' anywhere other than its
// first character. Such statuses are classified as non-finishes but flagged
// for review.
func PlusAnomaly(status string) bool {
	if len(status) < 2 {
		return false
	}
	return strings.Contains(status[1:], "+")
}
