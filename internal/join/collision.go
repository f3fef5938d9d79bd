package join

import "fmt"

// CollisionRule names the output column for a projected column whose name is
// already taken.
type CollisionRule interface {
	Resolve(relation, column string) (string, error)
}

// RuleSuffixRight keeps the existing column and appends Suffix to the
// incoming one: constructors.name becomes name_team next to races.name.
type RuleSuffixRight struct {
	Suffix string
}

// Resolve implements CollisionRule.
func (r RuleSuffixRight) Resolve(relation, column string) (string, error) {
	if r.Suffix == "" {
		return "", fmt.Errorf("join: %s.%s collides and no suffix is configured", relation, column)
	}
	return column + r.Suffix, nil
}

// RuleReject fails on any collision.
type RuleReject struct{}

// Resolve implements CollisionRule.
func (RuleReject) Resolve(relation, column string) (string, error) {
	return "", fmt.Errorf("join: column %q from %s collides with an existing column", column, relation)
}
