package builtin

import (
	"reflect"
	"testing"

	"github.com/debastene/f1-psda-dashboard/internal/relation"
	"github.com/debastene/f1-psda-dashboard/internal/schema"
)

func rel(name string, cols []string, rows ...[]any) *relation.Relation {
	r := relation.New(name, cols)
	r.Rows = rows
	return r
}

/*
TestSentinel_ReplacesEveryColumn verifies that the literal \N becomes nil in
any column, and that look-alikes (empty string, "N", "\\N ") are untouched.
*/
func TestSentinel_ReplacesEveryColumn(t *testing.T) {
	t.Parallel()

	r := rel("results", []string{"raceId", "points", "time"},
		[]any{"18", `\N`, `\N`},
		[]any{`\N`, "", "N"},
		[]any{"19", `\N `, nil},
	)
	n := Sentinel{Token: DefaultSentinel}.Apply(r)
	if n != 3 {
		t.Fatalf("replacements=%d want 3", n)
	}
	want := [][]any{
		{"18", nil, nil},
		{nil, "", "N"},
		{"19", `\N `, nil},
	}
	if !reflect.DeepEqual(r.Rows, want) {
		t.Fatalf("rows=%#v\nwant %#v", r.Rows, want)
	}
}

/*
TestCleaner_LeavesStatusAndConstructorsAlone verifies the relation scope of
sentinel cleaning.
*/
func TestCleaner_LeavesStatusAndConstructorsAlone(t *testing.T) {
	t.Parallel()

	raw := &schema.Raw{
		Results:      rel(schema.Results, []string{"points"}, []any{`\N`}),
		Drivers:      rel(schema.Drivers, []string{"nationality"}, []any{`\N`}),
		Races:        rel(schema.Races, []string{"year"}, []any{`\N`}),
		Status:       rel(schema.Status, []string{"status"}, []any{`\N`}),
		Constructors: rel(schema.Constructors, []string{"name"}, []any{`\N`}),
	}
	c, err := NewCleaner(DefaultSentinel, []string{schema.Results, schema.Races, schema.Drivers})
	if err != nil {
		t.Fatalf("NewCleaner: %v", err)
	}
	counts := c.Clean(raw)
	for _, name := range []string{schema.Results, schema.Races, schema.Drivers} {
		if counts[name] != 1 || raw.Get(name).Rows[0][0] != nil {
			t.Fatalf("%s not cleaned: count=%d cell=%#v", name, counts[name], raw.Get(name).Rows[0][0])
		}
	}
	for _, name := range []string{schema.Status, schema.Constructors} {
		if raw.Get(name).Rows[0][0] != `\N` {
			t.Fatalf("%s was modified: %#v", name, raw.Get(name).Rows[0][0])
		}
	}
}

func TestNewCleaner_Rejects(t *testing.T) {
	t.Parallel()

	for _, names := range [][]string{{schema.Status}, {schema.Results, schema.Constructors}, {"laps"}} {
		if _, err := NewCleaner(DefaultSentinel, names); err == nil {
			t.Fatalf("NewCleaner(%v) err=nil, want error", names)
		}
	}
}

/*
TestCoerce_FallbackToZero verifies the explicit zero fallback and that every
fallback is reported, never dropped.
*/
func TestCoerce_FallbackToZero(t *testing.T) {
	t.Parallel()

	r := rel("fact", []string{"points", "grid", "positionOrder"},
		[]any{"25", "1", "1"},
		[]any{nil, "abc", "2"},
		[]any{"0.5", "-3", "3.0"},
		[]any{"NaN", "", "Inf"},
		[]any{"1e30", "1e30", "9.3e18"},
	)
	var got []Fallback
	c := Coerce{
		Types:      map[string]string{"points": TypeFloat, "grid": TypeInt, "positionOrder": TypeInt},
		OnFallback: func(f Fallback) { got = append(got, f) },
	}
	n := c.Apply(r)

	want := [][]any{
		{25.0, 1, 1},
		{0.0, 0, 2},
		{0.5, 0, 3},
		{0.0, 0, 0},
		{1e30, 0, 0},
	}
	if !reflect.DeepEqual(r.Rows, want) {
		t.Fatalf("rows=%#v\nwant %#v", r.Rows, want)
	}
	if n != 8 || len(got) != 8 {
		t.Fatalf("fallbacks=%d events=%d want 8", n, len(got))
	}
	// Columns are visited in sorted order: grid, points, positionOrder.
	if got[0].Column != "grid" || got[0].Row != 1 || got[0].Reason != "not a number" {
		t.Fatalf("first fallback=%#v", got[0])
	}
	if got[1].Column != "grid" || got[1].Reason != "negative" {
		t.Fatalf("second fallback=%#v", got[1])
	}
	if got[3].Column != "grid" || got[3].Row != 4 || got[3].Reason != "out of range" {
		t.Fatalf("grid 1e30 fallback=%#v", got[3])
	}
	if last := got[7]; last.Column != "positionOrder" || last.Row != 4 || last.Reason != "out of range" {
		t.Fatalf("positionOrder 9.3e18 fallback=%#v", last)
	}
}

func TestCoerce_MissingColumnIgnored(t *testing.T) {
	t.Parallel()

	r := rel("fact", []string{"points"}, []any{"1"})
	n := Coerce{Types: map[string]string{"grid": TypeInt}}.Apply(r)
	if n != 0 || r.Rows[0][0] != "1" {
		t.Fatalf("n=%d row=%#v", n, r.Rows[0])
	}
}
