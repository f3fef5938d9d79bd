// Package transformer defines in-place, column-oriented steps over a
// relation.Relation.
package transformer

import "github.com/debastene/f1-psda-dashboard/internal/relation"

// Transformer mutates rel in place and reports how many cells it changed.
type Transformer interface {
	Apply(rel *relation.Relation) int
}

// Chain is an ordered list of transformers.
type Chain []Transformer

// Apply runs every step in order and returns the total number of changed
// cells.
func (c Chain) Apply(rel *relation.Relation) int {
	n := 0
	for _, t := range c {
		n += t.Apply(rel)
	}
	return n
}
