package builtin

import (
	"fmt"

	"github.com/debastene/f1-psda-dashboard/internal/relation"
	"github.com/debastene/f1-psda-dashboard/internal/schema"
)

// DefaultSentinel is the two-character escape the Ergast dump uses for "no
// value".
const DefaultSentinel = `\N`

// Sentinel replaces every cell equal to Token with nil, in every column.
type Sentinel struct {
	Token string
}

// Apply implements transformer.Transformer.
func (s Sentinel) Apply(rel *relation.Relation) int {
	if s.Token == "" {
		return 0
	}
	n := 0
	for _, row := range rel.Rows {
		for i, v := range row {
			if str, ok := v.(string); ok && str == s.Token {
				row[i] = nil
				n++
			}
		}
	}
	return n
}

// Cleaner applies a Sentinel to a fixed set of source relations.
type Cleaner struct {
	sentinel  Sentinel
	relations []string
}

// NewCleaner returns a Cleaner for relations. status and constructors are
// refused: their text is never sentinel-encoded and must reach the joiner
// untouched.
func NewCleaner(token string, relations []string) (*Cleaner, error) {
	for _, name := range relations {
		if _, ok := schema.Lookup(name); !ok {
			return nil, fmt.Errorf("cleaner: unknown relation %q", name)
		}
		if name == schema.Status || name == schema.Constructors {
			return nil, fmt.Errorf("cleaner: relation %q must not be sentinel-cleaned", name)
		}
	}
	return &Cleaner{sentinel: Sentinel{Token: token}, relations: append([]string(nil), relations...)}, nil
}

// Clean rewrites sentinels to nil in place and returns the replacement count
// per relation.
func (c *Cleaner) Clean(raw *schema.Raw) map[string]int {
	out := make(map[string]int, len(c.relations))
	for _, name := range c.relations {
		rel := raw.Get(name)
		if rel == nil {
			continue
		}
		out[name] = c.sentinel.Apply(rel)
	}
	return out
}
