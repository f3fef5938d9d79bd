package fact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFullName(t *testing.T) {
	tests := []struct{ fore, sur, want string }{
		{"Lewis", "Hamilton", "Lewis Hamilton"},
		{"", "Hamilton", "Hamilton"},
		{"Lewis", "", "Lewis"},
		{"", "", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FullName(tt.fore, tt.sur), "%q + %q", tt.fore, tt.sur)
	}
}

func TestSurname(t *testing.T) {
	assert.Equal(t, "Schumacher", Surname("Michael Schumacher"))
	assert.Equal(t, "Villeneuve", Surname("Jacques  Villeneuve "))
	assert.Equal(t, "Senna", Surname("Senna"))
	assert.Equal(t, "", Surname(""))
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		status  string
		finish  bool
		anomaly bool
	}{
		{"Finished", true, false},
		{"+1 Lap", true, false},
		{"+12 Laps", true, false},
		{"Engine", false, false},
		{"Gearbox", false, false},
		{"Finished+", false, true},
		{"Lap+Penalty", false, true},
		{"+1 Lap+", true, true},
		{"finished", false, false},
		{"", false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.finish, IsFinish(tt.status), "IsFinish(%q)", tt.status)
		assert.Equal(t, tt.anomaly, PlusAnomaly(tt.status), "PlusAnomaly(%q)", tt.status)
	}
}

func TestTable_IsImmutable(t *testing.T) {
	src := []Row{{RaceID: "1", Points: 10}, {RaceID: "2", Points: 8}}
	tbl := NewTable(src)
	src[0].Points = 99

	assert.Equal(t, 10.0, tbl.At(0).Points)

	r := tbl.At(1)
	r.Points = 77
	assert.Equal(t, 8.0, tbl.At(1).Points)

	rows := tbl.Rows()
	rows[0].RaceID = "x"
	assert.Equal(t, "1", tbl.At(0).RaceID)
}

func TestTable_FilterAndRange(t *testing.T) {
	tbl := NewTable([]Row{{Year: 1999}, {Year: 2000}, {Year: 2001}})
	got := tbl.Filter(func(r Row) bool { return r.Year >= 2000 })
	assert.Equal(t, 2, got.Len())
	assert.Equal(t, 3, tbl.Len())

	var seen []int
	tbl.Range(func(i int, r Row) bool {
		seen = append(seen, r.Year)
		return i < 1
	})
	assert.Equal(t, []int{1999, 2000}, seen)

	var nilTable *Table
	assert.Equal(t, 0, nilTable.Len())
}
