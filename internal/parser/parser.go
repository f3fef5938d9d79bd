// Package parser defines the contract between raw byte sources and the
// relation model.
package parser

import (
	"io"

	"github.com/debastene/f1-psda-dashboard/internal/relation"
)

// Parser turns one input stream into a named relation. It returns the number
// of rows that were skipped as unreadable.
type Parser interface {
	ReadRelation(name string, r io.Reader) (*relation.Relation, int, error)
}
