package model_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profileopt/cutstock/internal/model"
)

func TestDemandsCoalesce(t *testing.T) {
	in := model.Demands{
		{ProfileType: "A", Length: 100, Quantity: 2},
		{ProfileType: "B", Length: 200, Quantity: 1},
		{ProfileType: "A", Length: 100, Quantity: 3},
	}
	got := in.Coalesce()
	require.Len(t, got, 2)
	assert.Equal(t, model.Demand{ProfileType: "A", Length: 100, Quantity: 5}, got[0])
	assert.Equal(t, model.Demand{ProfileType: "B", Length: 200, Quantity: 1}, got[1])
}

func TestDemandsExpand(t *testing.T) {
	in := model.Demands{
		{ProfileType: "A", Length: 100, Quantity: 3},
	}
	pieces := in.Expand()
	require.Len(t, pieces, 3)
	for _, p := range pieces {
		assert.Equal(t, model.ProfileID("A"), p.ProfileType)
		assert.Equal(t, int64(100), p.Length)
		assert.Equal(t, "A:100", p.DemandID)
	}
}

func TestDemandsExpandEmpty(t *testing.T) {
	assert.Empty(t, model.Demands{}.Expand())
}

func TestStockOptionHasAvailability(t *testing.T) {
	unlimited := model.StockOption{StockLength: 6000, Available: model.Unlimited}
	assert.True(t, unlimited.HasAvailability(1_000_000))

	limited := model.StockOption{StockLength: 6000, Available: 2}
	assert.True(t, limited.HasAvailability(0))
	assert.True(t, limited.HasAvailability(1))
	assert.False(t, limited.HasAvailability(2))
}

func TestConstraintsUsableWindow(t *testing.T) {
	k := model.Constraints{StartSafety: 10, EndSafety: 15}
	assert.Equal(t, int64(75), k.UsableWindow(100))
	assert.Equal(t, int64(0), k.UsableWindow(20))
}

func TestObjectivesNormalise(t *testing.T) {
	os := model.Objectives{
		{Kind: model.MinimizeWaste, Weight: 1, Priority: model.PriorityHigh},
		{Kind: model.MinimizeCost, Weight: 1, Priority: model.PriorityLow},
	}
	got := os.Normalise()
	require.Len(t, got, 2)
	var sum float64
	for _, o := range got {
		sum += o.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Greater(t, got[0].Weight, got[1].Weight)
}

func TestObjectivesNormaliseDegenerate(t *testing.T) {
	os := model.Objectives{
		{Kind: model.MinimizeWaste, Weight: 0},
		{Kind: model.MinimizeCost, Weight: 0},
	}
	got := os.Normalise()
	require.Len(t, got, 2)
	assert.InDelta(t, 0.5, got[0].Weight, 1e-9)
	assert.InDelta(t, 0.5, got[1].Weight, 1e-9)
}

func TestObjectivesNormaliseEmpty(t *testing.T) {
	assert.Nil(t, model.Objectives{}.Normalise())
}

func TestPriorityMultiplier(t *testing.T) {
	assert.Equal(t, 1.0, model.PriorityHigh.Multiplier())
	assert.Equal(t, 0.7, model.PriorityMedium.Multiplier())
	assert.Equal(t, 0.4, model.PriorityLow.Multiplier())
	assert.Equal(t, 1.0, model.Priority("bogus").Multiplier())
}

func TestBarRecompute(t *testing.T) {
	k := model.Constraints{KerfWidth: 3, StartSafety: 5, EndSafety: 5}
	b := model.Bar{
		StockLength: 1000,
		Placements: []model.Placement{
			{Length: 300}, {Length: 200}, {Length: 100},
		},
	}
	b.Recompute(k)
	// used = 300+200+100 + 2*3 + 5 + 5 = 616
	assert.Equal(t, int64(616), b.UsedLength)
	assert.Equal(t, int64(384), b.RemainingLength)
	assert.Equal(t, 3, b.CutCount)
}

func TestBarRecomputeEmpty(t *testing.T) {
	k := model.Constraints{KerfWidth: 3, StartSafety: 5, EndSafety: 5}
	b := model.Bar{StockLength: 1000}
	b.Recompute(k)
	assert.Equal(t, int64(0), b.UsedLength)
	assert.Equal(t, int64(1000), b.RemainingLength)
	assert.Equal(t, 0, b.CutCount)
}

func TestPlanComputeTotalsConservation(t *testing.T) {
	k := model.Constraints{KerfWidth: 2, MinScrapLength: 50}
	b1 := model.Bar{StockLength: 1000, Placements: []model.Placement{{Length: 400, DemandID: "a"}, {Length: 400, DemandID: "a"}}}
	b1.Recompute(k)
	b2 := model.Bar{StockLength: 500, Placements: []model.Placement{{Length: 450, DemandID: "b"}}}
	b2.Recompute(k)

	p := model.Plan{Bars: []model.Bar{b1, b2}}
	p.ComputeTotals(k, map[string]int{"a": 2, "b": 1})

	assert.Equal(t, 2, p.Totals.StockCount)
	assert.Equal(t, int64(1500), p.Totals.TotalLength)
	assert.Equal(t, p.Totals.TotalLength, p.Totals.TotalWaste+b1.UsedLength+b2.UsedLength)
	assert.InDelta(t, 100*float64(b1.UsedLength+b2.UsedLength)/1500, p.Totals.Efficiency, 1e-9)
	assert.Equal(t, 3, p.WasteDistribution.TotalPieces)
}

func TestPlanComputeTotalsNoBars(t *testing.T) {
	var p model.Plan
	p.ComputeTotals(model.Constraints{}, nil)
	assert.Equal(t, 0, p.Totals.StockCount)
	assert.Equal(t, 0.0, p.Totals.Efficiency)
}

func TestPlanComputeTotalsIgnoresBarOrderingInComparison(t *testing.T) {
	k := model.Constraints{KerfWidth: 2}
	mkPlan := func(bars []model.Bar) model.Plan {
		for i := range bars {
			bars[i].Recompute(k)
		}
		p := model.Plan{Bars: bars}
		p.ComputeTotals(k, nil)
		return p
	}

	a := mkPlan([]model.Bar{
		{StockLength: 1000, Placements: []model.Placement{{Length: 400}}},
		{StockLength: 500, Placements: []model.Placement{{Length: 200}}},
	})
	b := mkPlan([]model.Bar{
		{StockLength: 500, Placements: []model.Placement{{Length: 200}}},
		{StockLength: 1000, Placements: []model.Placement{{Length: 400}}},
	})

	// The two plans place identical bars in a different order; Totals and
	// WasteDistribution must still compare equal once bar order is ignored.
	if diff := cmp.Diff(a.Totals, b.Totals); diff != "" {
		t.Errorf("totals differ (-a +b):\n%s", diff)
	}
	if diff := cmp.Diff(a.WasteDistribution, b.WasteDistribution); diff != "" {
		t.Errorf("waste distribution differs (-a +b):\n%s", diff)
	}
	sortBars := cmpopts.SortSlices(func(x, y model.Bar) bool { return x.UsedLength < y.UsedLength })
	if diff := cmp.Diff(a.Bars, b.Bars, sortBars); diff != "" {
		t.Errorf("bars differ modulo ordering (-a +b):\n%s", diff)
	}
}

func TestPlanComputeTotalsCutsComplexityUniformPatternIsZero(t *testing.T) {
	k := model.Constraints{}
	mk := func() model.Bar {
		b := model.Bar{StockLength: 1000, Placements: []model.Placement{{Length: 400}, {Length: 300}}}
		b.Recompute(k)
		return b
	}
	p := model.Plan{Bars: []model.Bar{mk(), mk(), mk()}}
	p.ComputeTotals(k, nil)
	assert.Equal(t, 0.0, p.Totals.CutsComplexity)
}

func TestPlanComputeTotalsCutsComplexityIgnoresPlacementOrderWithinABar(t *testing.T) {
	k := model.Constraints{}
	b1 := model.Bar{StockLength: 1000, Placements: []model.Placement{{Length: 400}, {Length: 300}}}
	b1.Recompute(k)
	b2 := model.Bar{StockLength: 1000, Placements: []model.Placement{{Length: 300}, {Length: 400}}}
	b2.Recompute(k)

	p := model.Plan{Bars: []model.Bar{b1, b2}}
	p.ComputeTotals(k, nil)
	assert.Equal(t, 0.0, p.Totals.CutsComplexity, "same multiset of lengths per bar is the same pattern regardless of placement order")
}

func TestPlanComputeTotalsCutsComplexityRisesWithDistinctPatterns(t *testing.T) {
	k := model.Constraints{}
	b1 := model.Bar{StockLength: 1000, Placements: []model.Placement{{Length: 400}, {Length: 300}}}
	b1.Recompute(k)
	b2 := model.Bar{StockLength: 1000, Placements: []model.Placement{{Length: 250}, {Length: 250}}}
	b2.Recompute(k)
	b3 := model.Bar{StockLength: 1000, Placements: []model.Placement{{Length: 900}}}
	b3.Recompute(k)

	p := model.Plan{Bars: []model.Bar{b1, b2, b3}}
	p.ComputeTotals(k, nil)
	assert.InDelta(t, 1.0, p.Totals.CutsComplexity, 1e-9, "three bars, three distinct patterns: maximal entropy normalises to 1")
}

func TestPlanComputeTotalsWasteBuckets(t *testing.T) {
	k := model.Constraints{MinScrapLength: 200}
	bars := []model.Bar{
		{StockLength: 100, RemainingLength: 10},  // minimal
		{StockLength: 100, RemainingLength: 80},  // small
		{StockLength: 100, RemainingLength: 300}, // >= minScrap -> reclaimable, not a size bucket
		{StockLength: 100, RemainingLength: 250}, // >= minScrap -> reclaimable
	}
	p := model.Plan{Bars: bars}
	p.ComputeTotals(k, nil)
	assert.Equal(t, int64(10), p.WasteDistribution.Minimal)
	assert.Equal(t, int64(80), p.WasteDistribution.Small)
	assert.Equal(t, int64(0), p.WasteDistribution.Large)
	assert.Equal(t, int64(550), p.WasteDistribution.Reclaimable)
}
