// Package schema names the five source relations of the Ergast-style extract,
// their keys, and the columns each must carry.
package schema

import (
	"fmt"

	"github.com/debastene/f1-psda-dashboard/internal/relation"
)

// Relation names, also used as default file/table names.
const (
	Results      = "results"
	Drivers      = "drivers"
	Races        = "races"
	Status       = "status"
	Constructors = "constructors"
)

// Column names used across the pipeline.
const (
	ColRaceID        = "raceId"
	ColDriverID      = "driverId"
	ColConstructorID = "constructorId"
	ColStatusID      = "statusId"
	ColGrid          = "grid"
	ColPositionOrder = "positionOrder"
	ColPoints        = "points"
	ColForename      = "forename"
	ColSurname       = "surname"
	ColNationality   = "nationality"
	ColYear          = "year"
	ColName          = "name"
	ColStatus        = "status"
	ColFullName      = "full_name"
	ColTeamName      = "name_team"
)

// Definition describes one source relation.
type Definition struct {
	Name     string
	Key      string
	Required []string
}

// Definitions lists the relations in load order.
var Definitions = []Definition{
	{Name: Results, Required: []string{ColDriverID, ColConstructorID, ColRaceID, ColStatusID, ColGrid, ColPositionOrder, ColPoints}},
	{Name: Drivers, Key: ColDriverID, Required: []string{ColDriverID, ColForename, ColSurname, ColNationality}},
	{Name: Races, Key: ColRaceID, Required: []string{ColRaceID, ColYear, ColName}},
	{Name: Status, Key: ColStatusID, Required: []string{ColStatusID, ColStatus}},
	{Name: Constructors, Key: ColConstructorID, Required: []string{ColConstructorID, ColName}},
}

// Lookup returns the definition for name.
func Lookup(name string) (Definition, bool) {
	for _, d := range Definitions {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// Raw is the set of five relations as loaded, before joining.
type Raw struct {
	Results      *relation.Relation
	Drivers      *relation.Relation
	Races        *relation.Relation
	Status       *relation.Relation
	Constructors *relation.Relation
}

// Get returns the relation called name, or nil.
func (r *Raw) Get(name string) *relation.Relation {
	switch name {
	case Results:
		return r.Results
	case Drivers:
		return r.Drivers
	case Races:
		return r.Races
	case Status:
		return r.Status
	case Constructors:
		return r.Constructors
	}
	return nil
}

// Set stores rel under name.
func (r *Raw) Set(name string, rel *relation.Relation) error {
	switch name {
	case Results:
		r.Results = rel
	case Drivers:
		r.Drivers = rel
	case Races:
		r.Races = rel
	case Status:
		r.Status = rel
	case Constructors:
		r.Constructors = rel
	default:
		return fmt.Errorf("schema: unknown relation %q", name)
	}
	return nil
}

// Validate checks that all five relations are present and carry their
// required columns.
func (r *Raw) Validate() error {
	for _, d := range Definitions {
		rel := r.Get(d.Name)
		if rel == nil {
			return fmt.Errorf("schema: relation %s not loaded", d.Name)
		}
		if err := rel.Require(d.Required...); err != nil {
			return err
		}
	}
	return nil
}
