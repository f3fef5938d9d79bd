package aggregate

import "github.com/debastene/f1-psda-dashboard/internal/fact"

// Summary bundles every view for one filtered table.
type Summary struct {
	From int `json:"from"`
	To   int `json:"to"`

	Counts

	TopWinner        string `json:"top_winner,omitempty"`
	TopWinnerWins    int    `json:"top_winner_wins,omitempty"`
	TopWinnerSurname string `json:"top_winner_surname,omitempty"`
	// WinnerErr is ErrNoWinnerData when the range has no winner; the other
	// views are still valid.
	WinnerErr error `json:"-"`

	TopConstructors  []TeamPoints `json:"top_constructors"`
	TopNationalities []Count      `json:"top_nationalities"`
	YearlyMeanPoints []YearMean   `json:"yearly_mean_points"`
	TopIncidents     []Count      `json:"top_incidents"`

	LeadingTeam        string `json:"leading_team,omitempty"`
	LeadingNationality string `json:"leading_nationality,omitempty"`
	LeadingIncident    string `json:"leading_incident,omitempty"`

	// Anomalies lists statuses with a misplaced '+', counted as non-finishes.
	Anomalies []string `json:"status_anomalies,omitempty"`
}

// ComputeSummary computes all views over t, which the caller has already
// filtered. A missing winner is reported in WinnerErr, never as a default.
func ComputeSummary(t *fact.Table) Summary {
	s := Summary{
		Counts:           DistinctCounts(t),
		TopConstructors:  TopConstructors(t, TopConstructorsN),
		TopNationalities: TopNationalities(t, TopNationalitiesN),
		YearlyMeanPoints: YearlyMeanPoints(t),
		TopIncidents:     TopIncidents(t, TopIncidentsN),
		Anomalies:        PlusAnomalies(t),
	}
	if w, err := TopWinner(t); err != nil {
		s.WinnerErr = err
	} else {
		s.TopWinner = w.FullName
		s.TopWinnerWins = w.Wins
		s.TopWinnerSurname = fact.Surname(w.FullName)
	}
	if len(s.TopConstructors) > 0 {
		s.LeadingTeam = s.TopConstructors[0].Team
	}
	if len(s.TopNationalities) > 0 {
		s.LeadingNationality = s.TopNationalities[0].Key
	}
	if len(s.TopIncidents) > 0 {
		s.LeadingIncident = s.TopIncidents[0].Key
	}
	return s
}

// Compute filters t to [lo, hi] and summarizes the result.
func Compute(t *fact.Table, lo, hi int) Summary {
	s := ComputeSummary(FilterByYear(t, lo, hi))
	s.From, s.To = lo, hi
	return s
}
