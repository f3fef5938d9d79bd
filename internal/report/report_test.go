package report_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debastene/f1-psda-dashboard/internal/aggregate"
	"github.com/debastene/f1-psda-dashboard/internal/report"
)

func sample() aggregate.Summary {
	return aggregate.Summary{
		From:             2008,
		To:               2010,
		Counts:           aggregate.Counts{Races: 3, Drivers: 2, Constructors: 2},
		TopWinner:        "Lewis Hamilton",
		TopWinnerWins:    2,
		TopWinnerSurname: "Hamilton",
		TopConstructors: []aggregate.TeamPoints{
			{Team: "McLaren", Points: 20.5},
			{Team: "Sauber", Points: 8},
		},
		TopNationalities: []aggregate.Count{{Key: "British", Count: 1}, {Key: "Mexican", Count: 1}},
		YearlyMeanPoints: []aggregate.YearMean{{Year: 2008, MeanPoints: 9.25, Results: 2}},
		TopIncidents:     []aggregate.Count{{Key: "Engine", Count: 1}},
		LeadingTeam:      "McLaren",
		Anomalies:        []string{"Lap+1"},
	}
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, sample(), report.FormatTable))
	out := buf.String()
	for _, want := range []string{"Seasons 2008-2010", "Lewis Hamilton (2 wins)", "McLaren", "20.5", "9.25", "Engine", "Lap+1"} {
		assert.Contains(t, out, want)
	}
}

func TestRenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, sample(), "md"))
	out := buf.String()
	assert.Contains(t, out, "### Top constructors by points")
	assert.Contains(t, out, "| McLaren |")
	assert.NotContains(t, out, "─")
}

func TestRenderJSON(t *testing.T) {
	s := aggregate.Summary{From: 2000, To: 2000, WinnerErr: aggregate.ErrNoWinnerData}
	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, s, report.FormatJSON))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, aggregate.ErrNoWinnerData.Error(), got["winner_error"])
	assert.EqualValues(t, 0, got["race_count"])
	assert.NotContains(t, got, "top_winner")
}

func TestRenderEmptySections(t *testing.T) {
	s := aggregate.Summary{From: 2000, To: 2000, WinnerErr: aggregate.ErrNoWinnerData}
	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, s, report.FormatTable))
	out := buf.String()
	assert.Contains(t, out, "n/a (")
	assert.Equal(t, 4, strings.Count(out, "(none)"))
}

func TestRenderUnknownFormat(t *testing.T) {
	err := report.Render(&bytes.Buffer{}, sample(), "yaml")
	assert.ErrorContains(t, err, "unknown format")
}
