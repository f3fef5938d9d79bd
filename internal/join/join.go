// Package join resolves the four foreign keys of the results relation and
// produces one denormalized relation, one row per matched result.
//
// The joins run in a fixed order (drivers, races, status, constructors).
// Each is an inner join on a hash index of the referenced relation, so the
// output never has more rows than results.
package join

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/debastene/f1-psda-dashboard/internal/metrics"
	"github.com/debastene/f1-psda-dashboard/internal/quality"
	"github.com/debastene/f1-psda-dashboard/internal/relation"
	"github.com/debastene/f1-psda-dashboard/internal/schema"
)

// FactRelation is the name of the joined relation.
const FactRelation = "fact"

// Step is one foreign-key join.
type Step struct {
	// Relation is the referenced relation.
	Relation string
	// Key is the column name in both results and Relation.
	Key string
	// Project lists the columns copied from Relation.
	Project []string
}

// Steps is the fixed join order.
var Steps = []Step{
	{Relation: schema.Drivers, Key: schema.ColDriverID, Project: []string{schema.ColForename, schema.ColSurname, schema.ColNationality}},
	{Relation: schema.Races, Key: schema.ColRaceID, Project: []string{schema.ColYear, schema.ColName}},
	{Relation: schema.Status, Key: schema.ColStatusID, Project: []string{schema.ColStatus}},
	{Relation: schema.Constructors, Key: schema.ColConstructorID, Project: []string{schema.ColName}},
}

// JoinIntegrityError is returned in strict mode when a result row cannot be
// matched, or a referenced relation repeats a key.
type JoinIntegrityError struct {
	Relation string
	Column   string
	Key      string
	// Row is the results row index, or the referenced relation's row index
	// for a duplicate key.
	Row    int
	Reason string
}

func (e *JoinIntegrityError) Error() string {
	return fmt.Sprintf("join integrity: %s.%s=%q (row %d): %s", e.Relation, e.Column, e.Key, e.Row, e.Reason)
}

// Reasons carried by JoinIntegrityError.
const (
	ReasonUnresolved   = "unresolved foreign key"
	ReasonDuplicateKey = "duplicate key in referenced relation"
)

// Options configures a Joiner.
type Options struct {
	// Strict turns any unmatched row or duplicate key into an error.
	Strict bool
	// Collision renames projected columns that clash with existing ones.
	// Defaults to RuleSuffixRight{Suffix: "_team"}.
	Collision CollisionRule
	Quality   *quality.Recorder
	Log       logrus.FieldLogger
	Job       string
}

// Stats summarizes one Join call.
type Stats struct {
	Input  int
	Output int
	// Dropped counts unmatched result rows per referenced relation.
	Dropped map[string]int
	// Duplicates counts ignored duplicate keys per referenced relation.
	Duplicates map[string]int
}

// Joiner performs the join.
type Joiner struct {
	opt Options
}

// New returns a Joiner.
func New(opt Options) *Joiner {
	if opt.Collision == nil {
		opt.Collision = RuleSuffixRight{Suffix: "_team"}
	}
	if opt.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opt.Log = l
	}
	return &Joiner{opt: opt}
}

type index struct {
	step Step
	// rows maps key text to the first row carrying it.
	rows map[string][]any
	// cols are the positions of step.Project in the referenced relation.
	cols []int
}

// Join builds the fact relation. raw is not modified.
func (j *Joiner) Join(raw *schema.Raw) (*relation.Relation, Stats, error) {
	st := Stats{Dropped: map[string]int{}, Duplicates: map[string]int{}}
	res := raw.Results
	if res == nil {
		return nil, st, fmt.Errorf("join: results relation is nil")
	}
	st.Input = res.Len()

	cols := append([]string(nil), res.Columns...)

	idx := make([]index, len(Steps))
	fk := make([]int, len(Steps))
	for i, s := range Steps {
		if fk[i] = res.Col(s.Key); fk[i] < 0 {
			return nil, st, fmt.Errorf("join: results has no column %q", s.Key)
		}
		ix, err := j.buildIndex(raw.Get(s.Relation), s, &st)
		if err != nil {
			return nil, st, err
		}
		idx[i] = ix

		for _, c := range s.Project {
			name := c
			if containsCol(cols, name) {
				renamed, err := j.opt.Collision.Resolve(s.Relation, c)
				if err != nil {
					return nil, st, err
				}
				if containsCol(cols, renamed) {
					return nil, st, fmt.Errorf("join: collision rule renamed %s.%s to %q, which also exists", s.Relation, c, renamed)
				}
				j.opt.Log.WithFields(logrus.Fields{"relation": s.Relation, "column": c, "as": renamed}).Debug("join: renamed colliding column")
				name = renamed
			}
			cols = append(cols, name)
		}
	}
	out := relation.New(FactRelation, cols)

	width := len(out.Columns)
	for ri, row := range res.Rows {
		cells := make([]any, 0, width)
		cells = append(cells, row...)

		matched := true
		for i, s := range Steps {
			key, ok := keyText(row[fk[i]])
			ref, found := idx[i].rows[key]
			if !ok || !found {
				if j.opt.Strict {
					return nil, st, &JoinIntegrityError{Relation: s.Relation, Column: s.Key, Key: key, Row: ri, Reason: ReasonUnresolved}
				}
				st.Dropped[s.Relation]++
				j.opt.Quality.Record(quality.Event{
					Kind:     quality.JoinDropped,
					Relation: s.Relation,
					Column:   s.Key,
					Row:      ri,
					Value:    key,
					Detail:   "result row dropped: " + ReasonUnresolved,
				})
				matched = false
				break
			}
			for _, c := range idx[i].cols {
				cells = append(cells, ref[c])
			}
		}
		if matched {
			out.Rows = append(out.Rows, cells)
		}
	}
	st.Output = out.Len()

	metrics.RecordRow(j.opt.Job, "joined", int64(st.Output))
	metrics.RecordRow(j.opt.Job, "join_dropped", int64(st.Input-st.Output))
	j.opt.Log.WithFields(logrus.Fields{"input": st.Input, "output": st.Output}).Info("join: fact relation built")
	return out, st, nil
}

func (j *Joiner) buildIndex(rel *relation.Relation, s Step, st *Stats) (index, error) {
	ix := index{step: s}
	if rel == nil {
		return ix, fmt.Errorf("join: relation %s is nil", s.Relation)
	}
	kc := rel.Col(s.Key)
	if kc < 0 {
		return ix, fmt.Errorf("join: %s has no column %q", s.Relation, s.Key)
	}
	for _, c := range s.Project {
		ci := rel.Col(c)
		if ci < 0 {
			return ix, fmt.Errorf("join: %s has no column %q", s.Relation, c)
		}
		ix.cols = append(ix.cols, ci)
	}

	ix.rows = make(map[string][]any, rel.Len())
	for ri, row := range rel.Rows {
		key, ok := keyText(row[kc])
		if !ok {
			continue
		}
		if _, dup := ix.rows[key]; dup {
			if j.opt.Strict {
				return ix, &JoinIntegrityError{Relation: s.Relation, Column: s.Key, Key: key, Row: ri, Reason: ReasonDuplicateKey}
			}
			st.Duplicates[s.Relation]++
			j.opt.Quality.Record(quality.Event{
				Kind:     quality.JoinDuplicateKey,
				Relation: s.Relation,
				Column:   s.Key,
				Row:      ri,
				Value:    key,
				Detail:   "duplicate key ignored; first row kept",
			})
			continue
		}
		ix.rows[key] = row
	}
	return ix, nil
}

// keyText normalizes a key cell. ok is false for null or blank keys.
func keyText(v any) (string, bool) {
	s, ok := relation.Text(v)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func containsCol(cols []string, name string) bool {
	for _, c := range cols {
		if c == name {
			return true
		}
	}
	return false
}
