// Package derive turns the joined relation into the immutable fact table:
// it builds full_name and coerces the numeric columns with an explicit
// zero-fallback policy.
package derive

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/debastene/f1-psda-dashboard/internal/fact"
	"github.com/debastene/f1-psda-dashboard/internal/quality"
	"github.com/debastene/f1-psda-dashboard/internal/relation"
	"github.com/debastene/f1-psda-dashboard/internal/schema"
	"github.com/debastene/f1-psda-dashboard/internal/transformer"
	"github.com/debastene/f1-psda-dashboard/internal/transformer/builtin"
)

// Required lists the columns Derive reads from the joined relation.
var Required = []string{
	schema.ColRaceID, schema.ColDriverID, schema.ColConstructorID, schema.ColStatusID,
	schema.ColGrid, schema.ColPositionOrder, schema.ColPoints,
	schema.ColForename, schema.ColSurname, schema.ColNationality,
	schema.ColYear, schema.ColName, schema.ColStatus, schema.ColTeamName,
}

// NumericTypes is the coercion applied before rows are built. year is
// included so an unparsable year is handled by the same policy.
var NumericTypes = map[string]string{
	schema.ColPoints:        builtin.TypeFloat,
	schema.ColGrid:          builtin.TypeInt,
	schema.ColPositionOrder: builtin.TypeInt,
	schema.ColYear:          builtin.TypeInt,
}

// Deriver builds fact tables.
type Deriver struct {
	quality *quality.Recorder
	log     logrus.FieldLogger
}

// New returns a Deriver. Both arguments may be nil.
func New(rec *quality.Recorder, log logrus.FieldLogger) *Deriver {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Deriver{quality: rec, log: log}
}

// Derive coerces the numeric columns of rel in place and returns the fact
// table. Every coercion fallback is recorded as a quality event; none is an
// error. Statuses with a misplaced '+' are recorded once per distinct value.
func (d *Deriver) Derive(rel *relation.Relation) (*fact.Table, error) {
	if err := rel.Require(Required...); err != nil {
		return nil, fmt.Errorf("derive: %w", err)
	}

	steps := transformer.Chain{builtin.Coerce{
		Types: NumericTypes,
		OnFallback: func(f builtin.Fallback) {
			raw, _ := relation.Text(f.Raw)
			d.quality.Record(quality.Event{
				Kind:     quality.CoerceFallback,
				Relation: rel.Name,
				Column:   f.Column,
				Row:      f.Row,
				Value:    raw,
				Detail:   "coerced to 0: " + f.Reason,
			})
		},
	}}
	if n := steps.Apply(rel); n > 0 {
		d.log.WithField("fallbacks", n).Info("derive: numeric values replaced with 0")
	}

	col := func(name string) int { return rel.Col(name) }
	var (
		cRace, cDriver, cCons, cStatusID = col(schema.ColRaceID), col(schema.ColDriverID), col(schema.ColConstructorID), col(schema.ColStatusID)
		cGrid, cPos, cPoints             = col(schema.ColGrid), col(schema.ColPositionOrder), col(schema.ColPoints)
		cFore, cSur, cNat                = col(schema.ColForename), col(schema.ColSurname), col(schema.ColNationality)
		cYear, cName, cStatus, cTeam     = col(schema.ColYear), col(schema.ColName), col(schema.ColStatus), col(schema.ColTeamName)
	)

	anomalies := map[string]int{}
	rows := make([]fact.Row, 0, rel.Len())
	for ri, row := range rel.Rows {
		r := fact.Row{
			RaceID:        text(row[cRace]),
			DriverID:      text(row[cDriver]),
			ConstructorID: text(row[cCons]),
			StatusID:      text(row[cStatusID]),
			Grid:          row[cGrid].(int),
			PositionOrder: row[cPos].(int),
			Points:        row[cPoints].(float64),
			Forename:      text(row[cFore]),
			Surname:       text(row[cSur]),
			Nationality:   text(row[cNat]),
			Year:          row[cYear].(int),
			RaceName:      text(row[cName]),
			Status:        text(row[cStatus]),
			TeamName:      text(row[cTeam]),
		}
		r.FullName = fact.FullName(r.Forename, r.Surname)
		if fact.PlusAnomaly(r.Status) {
			if anomalies[r.Status] == 0 {
				d.quality.Record(quality.Event{
					Kind:     quality.StatusPlusAnomaly,
					Relation: schema.Status,
					Column:   schema.ColStatus,
					Row:      ri,
					Value:    r.Status,
					Detail:   "'+' outside the leading position; classified as non-finish",
				})
			}
			anomalies[r.Status]++
		}
		rows = append(rows, r)
	}

	if len(anomalies) > 0 {
		keys := make([]string, 0, len(anomalies))
		for k := range anomalies {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		d.log.WithField("statuses", keys).Warn("derive: statuses with a misplaced '+' need a manual policy")
	}
	return fact.NewTable(rows), nil
}

// text renders a cell as trimmed text; null becomes "".
func text(v any) string {
	s, _ := relation.Text(v)
	return strings.TrimSpace(s)
}
