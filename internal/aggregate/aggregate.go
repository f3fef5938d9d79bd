// Package aggregate computes the summary views over a fact table.
//
// Every function is a read-only projection of its input. Rankings use a
// stable sort, so equal counts or totals keep the order in which their
// groups were first encountered in the table.
package aggregate

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/debastene/f1-psda-dashboard/internal/fact"
)

// View sizes.
const (
	TopConstructorsN  = 10
	TopNationalitiesN = 8
	TopIncidentsN     = 10
)

// ErrNoWinnerData is returned by TopWinner when no row has positionOrder 1.
var ErrNoWinnerData = errors.New("aggregate: no winner data in range")

// FilterByYear returns the rows with lo <= year <= hi. lo > hi yields an
// empty table. t is not modified.
func FilterByYear(t *fact.Table, lo, hi int) *fact.Table {
	return t.Filter(func(r fact.Row) bool { return r.Year >= lo && r.Year <= hi })
}

// Counts holds distinct-entity counts.
type Counts struct {
	Races        int `json:"race_count"`
	Drivers      int `json:"driver_count"`
	Constructors int `json:"constructor_count"`
}

// DistinctCounts counts distinct raceId, driverId and constructorId values.
func DistinctCounts(t *fact.Table) Counts {
	races, drivers, cons := map[string]struct{}{}, map[string]struct{}{}, map[string]struct{}{}
	t.Range(func(_ int, r fact.Row) bool {
		races[r.RaceID] = struct{}{}
		drivers[r.DriverID] = struct{}{}
		cons[r.ConstructorID] = struct{}{}
		return true
	})
	return Counts{Races: len(races), Drivers: len(drivers), Constructors: len(cons)}
}

// Count is one ranked group.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Winner is the most frequent race winner.
type Winner struct {
	FullName string `json:"full_name"`
	Wins     int    `json:"wins"`
}

// TopWinner returns the full_name with the most positionOrder == 1 rows.
// On a tie the name whose first win comes first in the table wins.
func TopWinner(t *fact.Table) (Winner, error) {
	c := newCounter()
	t.Range(func(_ int, r fact.Row) bool {
		if r.PositionOrder == 1 && r.FullName != "" {
			c.add(r.FullName)
		}
		return true
	})
	ranked := c.ranked()
	if len(ranked) == 0 {
		return Winner{}, ErrNoWinnerData
	}
	return Winner{FullName: ranked[0].Key, Wins: ranked[0].Count}, nil
}

// TeamPoints is a constructor's summed points.
type TeamPoints struct {
	Team   string  `json:"team"`
	Points float64 `json:"points"`
}

// TopConstructors sums points per team name and returns the n highest,
// descending. Sums are exact decimals.
func TopConstructors(t *fact.Table, n int) []TeamPoints {
	var order []string
	sums := map[string]decimal.Decimal{}
	t.Range(func(_ int, r fact.Row) bool {
		if r.TeamName == "" {
			return true
		}
		s, ok := sums[r.TeamName]
		if !ok {
			order = append(order, r.TeamName)
		}
		sums[r.TeamName] = s.Add(decimal.NewFromFloat(r.Points))
		return true
	})

	sort.SliceStable(order, func(i, j int) bool {
		return sums[order[i]].GreaterThan(sums[order[j]])
	})
	order = head(order, n)

	out := make([]TeamPoints, len(order))
	for i, team := range order {
		out[i] = TeamPoints{Team: team, Points: sums[team].InexactFloat64()}
	}
	return out
}

// TopNationalities counts drivers (each driverId once, at its first row) per
// nationality and returns the n most frequent.
func TopNationalities(t *fact.Table, n int) []Count {
	seen := map[string]struct{}{}
	c := newCounter()
	t.Range(func(_ int, r fact.Row) bool {
		if _, dup := seen[r.DriverID]; dup {
			return true
		}
		seen[r.DriverID] = struct{}{}
		if r.Nationality != "" {
			c.add(r.Nationality)
		}
		return true
	})
	return head(c.ranked(), n)
}

// YearMean is the mean points per result in one season.
type YearMean struct {
	Year       int     `json:"year"`
	MeanPoints float64 `json:"mean_points"`
	Results    int     `json:"results"`
}

// YearlyMeanPoints returns the arithmetic mean of points per year, ascending
// by year.
func YearlyMeanPoints(t *fact.Table) []YearMean {
	type acc struct {
		sum decimal.Decimal
		n   int64
	}
	groups := map[int]*acc{}
	t.Range(func(_ int, r fact.Row) bool {
		a, ok := groups[r.Year]
		if !ok {
			a = &acc{}
			groups[r.Year] = a
		}
		a.sum = a.sum.Add(decimal.NewFromFloat(r.Points))
		a.n++
		return true
	})

	years := make([]int, 0, len(groups))
	for y := range groups {
		years = append(years, y)
	}
	sort.Ints(years)

	out := make([]YearMean, len(years))
	for i, y := range years {
		a := groups[y]
		out[i] = YearMean{
			Year:       y,
			MeanPoints: a.sum.Div(decimal.NewFromInt(a.n)).InexactFloat64(),
			Results:    int(a.n),
		}
	}
	return out
}

// TopIncidents counts non-finishing statuses and returns the n most
// frequent. A status is a finish when it is "Finished" or starts with '+'.
func TopIncidents(t *fact.Table, n int) []Count {
	c := newCounter()
	t.Range(func(_ int, r fact.Row) bool {
		if r.Status != "" && !fact.IsFinish(r.Status) {
			c.add(r.Status)
		}
		return true
	})
	return head(c.ranked(), n)
}

// PlusAnomalies returns the distinct statuses containing '+' other than at
// the start, in encounter order.
func PlusAnomalies(t *fact.Table) []string {
	var out []string
	seen := map[string]struct{}{}
	t.Range(func(_ int, r fact.Row) bool {
		if _, ok := seen[r.Status]; !ok && fact.PlusAnomaly(r.Status) {
			seen[r.Status] = struct{}{}
			out = append(out, r.Status)
		}
		return true
	})
	return out
}

// counter counts keys and remembers first-encounter order.
type counter struct {
	order  []string
	counts map[string]int
}

func newCounter() *counter { return &counter{counts: map[string]int{}} }

func (c *counter) add(k string) {
	if _, ok := c.counts[k]; !ok {
		c.order = append(c.order, k)
	}
	c.counts[k]++
}

// ranked returns the groups by count descending; ties keep encounter order.
func (c *counter) ranked() []Count {
	out := make([]Count, len(c.order))
	for i, k := range c.order {
		out[i] = Count{Key: k, Count: c.counts[k]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

func head[T any](s []T, n int) []T {
	if n >= 0 && len(s) > n {
		return s[:n]
	}
	return s
}
