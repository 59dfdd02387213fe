package report_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profileopt/cutstock/internal/model"
	"github.com/profileopt/cutstock/internal/report"
)

func TestGroupPatternsCombinesIdenticalBars(t *testing.T) {
	bars := []model.Bar{
		{ProfileType: "A", Placements: []model.Placement{{Length: 400}, {Length: 300}}, UsedLength: 700, RemainingLength: 300},
		{ProfileType: "A", Placements: []model.Placement{{Length: 300}, {Length: 400}}, UsedLength: 700, RemainingLength: 300},
		{ProfileType: "B", Placements: []model.Placement{{Length: 100}}, UsedLength: 100, RemainingLength: 900},
	}
	patterns := report.GroupPatterns(bars)
	require.Len(t, patterns, 2)
	assert.Equal(t, 2, patterns[0].Count)
	assert.Equal(t, model.ProfileID("A"), patterns[0].ProfileType)
	assert.Equal(t, []int64{400, 300}, patterns[0].Cuts)
	assert.Equal(t, 1, patterns[1].Count)
}

func TestGroupPatternsOrdersByCountThenUsedLength(t *testing.T) {
	bars := []model.Bar{
		{ProfileType: "A", Placements: []model.Placement{{Length: 900}}, UsedLength: 900},
		{ProfileType: "A", Placements: []model.Placement{{Length: 500}}, UsedLength: 500},
		{ProfileType: "A", Placements: []model.Placement{{Length: 500}}, UsedLength: 500},
	}
	patterns := report.GroupPatterns(bars)
	require.Len(t, patterns, 2)
	assert.Equal(t, 2, patterns[0].Count)
	assert.Equal(t, int64(500), patterns[0].UsedLength)
}

func TestGroupPatternsEmpty(t *testing.T) {
	assert.Empty(t, report.GroupPatterns(nil))
}

func TestWriteHTMLProducesValidDocument(t *testing.T) {
	p := model.Plan{
		Algorithm: "bfd",
		Bars: []model.Bar{
			{ProfileType: "A", Placements: []model.Placement{{Length: 400}, {Length: 300}}, UsedLength: 700, RemainingLength: 300},
		},
	}
	p.ComputeTotals(model.Constraints{}, nil)

	var buf bytes.Buffer
	err := report.WriteHTML(&buf, p, 3)
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "bfd")
	assert.Contains(t, out, "Pattern 1")
}

func TestWriteHTMLNoBarsStillRenders(t *testing.T) {
	var buf bytes.Buffer
	err := report.WriteHTML(&buf, model.Plan{}, 0)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Cut Plan")
}
