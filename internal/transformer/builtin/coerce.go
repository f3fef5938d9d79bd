package builtin

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/debastene/f1-psda-dashboard/internal/relation"
)

// Coercion target types.
const (
	TypeInt   = "int"
	TypeFloat = "float"
)

// maxIntFloat is 2^63 on 64-bit platforms; int(f) is undefined at or above it.
const maxIntFloat = float64(math.MaxInt)

// Fallback describes a cell that could not be coerced and was set to zero.
type Fallback struct {
	Column string
	Row    int
	Raw    any
	Reason string
}

// Coerce converts text cells to non-negative numbers in place. A cell that
// is null, unparsable, non-finite, negative or (for TypeInt) beyond the int
// range becomes 0 (int or float64)
// and is reported through OnFallback; it is never dropped and never an
// error.
type Coerce struct {
	Types      map[string]string // column -> TypeInt | TypeFloat
	OnFallback func(Fallback)
}

// Apply implements transformer.Transformer. It returns the number of cells
// that fell back to zero. Columns missing from rel are skipped.
func (c Coerce) Apply(rel *relation.Relation) int {
	cols := make([]string, 0, len(c.Types))
	for col := range c.Types {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	fallbacks := 0
	for _, col := range cols {
		typ := c.Types[col]
		ci := rel.Col(col)
		if ci < 0 {
			continue
		}
		for ri, row := range rel.Rows {
			raw := row[ci]
			f, reason := parseNonNegative(raw)
			if reason == "" && typ == TypeInt && f >= maxIntFloat {
				reason = "out of range"
			}
			if reason != "" {
				f = 0
				fallbacks++
				if c.OnFallback != nil {
					c.OnFallback(Fallback{Column: col, Row: ri, Raw: raw, Reason: reason})
				}
			}
			if typ == TypeInt {
				row[ci] = int(f)
			} else {
				row[ci] = f
			}
		}
	}
	return fallbacks
}

// parseNonNegative returns the numeric value of v, or a non-empty reason why
// it cannot be used.
func parseNonNegative(v any) (float64, string) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, "null"
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case float64:
		f = x
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, "empty"
		}
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, "not a number"
		}
		f = p
	default:
		return 0, "unsupported type"
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, "not finite"
	}
	if f < 0 {
		return 0, "negative"
	}
	return f, ""
}
