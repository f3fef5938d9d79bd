// Package report renders a summary for terminals, scripts and documents.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/debastene/f1-psda-dashboard/internal/aggregate"
)

// Output formats.
const (
	FormatTable    = "table"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Formats lists the accepted format names.
func Formats() []string { return []string{FormatTable, FormatJSON, FormatMarkdown} }

// Render writes s to w in format. "md" is accepted for markdown.
func Render(w io.Writer, s aggregate.Summary, format string) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, s)
	case FormatMarkdown, "md":
		return renderSections(w, s, true)
	case FormatTable, "":
		return renderSections(w, s, false)
	}
	return fmt.Errorf("report: unknown format %q", format)
}

type jsonSummary struct {
	aggregate.Summary
	WinnerError string `json:"winner_error,omitempty"`
}

func renderJSON(w io.Writer, s aggregate.Summary) error {
	out := jsonSummary{Summary: s}
	if s.WinnerErr != nil {
		out.WinnerError = s.WinnerErr.Error()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

type section struct {
	title  string
	header table.Row
	rows   []table.Row
}

func sections(s aggregate.Summary) []section {
	winner := s.TopWinner
	if s.WinnerErr != nil {
		winner = "n/a (" + s.WinnerErr.Error() + ")"
	} else {
		winner = fmt.Sprintf("%s (%d wins)", winner, s.TopWinnerWins)
	}
	overview := section{
		title:  fmt.Sprintf("Seasons %d-%d", s.From, s.To),
		header: table.Row{"Metric", "Value"},
		rows: []table.Row{
			{"Races", s.Races},
			{"Drivers", s.Drivers},
			{"Constructors", s.Constructors},
			{"Top winner", winner},
			{"Leading team", orNA(s.LeadingTeam)},
			{"Leading nationality", orNA(s.LeadingNationality)},
			{"Leading incident", orNA(s.LeadingIncident)},
		},
	}
	for _, a := range s.Anomalies {
		overview.rows = append(overview.rows, table.Row{"Status anomaly", a})
	}

	teams := section{title: "Top constructors by points", header: table.Row{"#", "Team", "Points"}}
	for i, tp := range s.TopConstructors {
		teams.rows = append(teams.rows, table.Row{i + 1, tp.Team, strconv.FormatFloat(tp.Points, 'f', -1, 64)})
	}

	nats := section{title: "Top driver nationalities", header: table.Row{"#", "Nationality", "Drivers"}}
	for i, c := range s.TopNationalities {
		nats.rows = append(nats.rows, table.Row{i + 1, c.Key, c.Count})
	}

	years := section{title: "Mean points per result", header: table.Row{"Year", "Mean points", "Results"}}
	for _, y := range s.YearlyMeanPoints {
		years.rows = append(years.rows, table.Row{y.Year, fmt.Sprintf("%.2f", y.MeanPoints), y.Results})
	}

	incidents := section{title: "Top incidents", header: table.Row{"#", "Status", "Count"}}
	for i, c := range s.TopIncidents {
		incidents.rows = append(incidents.rows, table.Row{i + 1, c.Key, c.Count})
	}

	return []section{overview, teams, nats, years, incidents}
}

func renderSections(w io.Writer, s aggregate.Summary, markdown bool) error {
	for i, sec := range sections(s) {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if markdown {
			if _, err := fmt.Fprintf(w, "### %s\n\n", sec.title); err != nil {
				return err
			}
		}
		if len(sec.rows) == 0 {
			if !markdown {
				fmt.Fprintln(w, sec.title)
			}
			fmt.Fprintln(w, "(none)")
			continue
		}

		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.AppendHeader(sec.header)
		t.AppendRows(sec.rows)
		if markdown {
			t.RenderMarkdown()
			continue
		}
		t.SetStyle(table.StyleLight)
		t.SetTitle(sec.title)
		t.Render()
	}
	return nil
}

func orNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}
