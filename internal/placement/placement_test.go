package placement_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profileopt/cutstock/internal/model"
	"github.com/profileopt/cutstock/internal/placement"
)

func pieces(lengths ...int64) []model.Piece {
	out := make([]model.Piece, len(lengths))
	for i, l := range lengths {
		out[i] = model.Piece{ProfileType: "P", Length: l, DemandID: "d"}
	}
	return out
}

func TestPlaceEmpty(t *testing.T) {
	res := placement.Place(placement.FFD, nil, nil, model.Constraints{})
	assert.Empty(t, res.Bars)
	assert.False(t, res.Infeasible)
}

func TestPlaceFFDConservesAllPieces(t *testing.T) {
	menu := []model.StockOption{{StockLength: 1000, Available: model.Unlimited}}
	k := model.Constraints{KerfWidth: 2}
	ps := pieces(400, 300, 300, 200, 200, 200)

	res := placement.Place(placement.FFD, ps, menu, k)
	require.False(t, res.Infeasible)

	var total int
	for _, b := range res.Bars {
		total += len(b.Placements)
		assert.LessOrEqual(t, b.UsedLength, b.StockLength)
	}
	assert.Equal(t, len(ps), total)
}

func TestBFDNeverUsesMoreBinsThanFFD(t *testing.T) {
	menu := []model.StockOption{{StockLength: 1000, Available: model.Unlimited}}
	k := model.Constraints{KerfWidth: 1}
	ps := pieces(600, 500, 400, 400, 300, 300, 250, 250)

	ffd := placement.Place(placement.FFD, ps, menu, k)
	bfd := placement.Place(placement.BFD, ps, menu, k)

	assert.LessOrEqual(t, len(bfd.Bars), len(ffd.Bars))
}

func TestPlaceNFDOnlyChecksLastBin(t *testing.T) {
	menu := []model.StockOption{{StockLength: 500, Available: model.Unlimited}}
	k := model.Constraints{}
	// 400 opens bin 0 (remaining 100), 300 cannot fit bin 0, opens bin 1
	// (remaining 200), then 50 should fit only the last bin, not bin 0
	// even though bin 0 nominally has room if checked out of order.
	ps := pieces(400, 300, 50)
	res := placement.Place(placement.NFD, ps, menu, k)
	require.False(t, res.Infeasible)
	require.Len(t, res.Bars, 2)
	assert.Len(t, res.Bars[1].Placements, 2)
	assert.Len(t, res.Bars[0].Placements, 1)
}

func TestPlaceInfeasibleWhenNoStockFits(t *testing.T) {
	menu := []model.StockOption{{StockLength: 100, Available: model.Unlimited}}
	k := model.Constraints{}
	res := placement.Place(placement.FFD, pieces(5000), menu, k)
	require.True(t, res.Infeasible)
	require.Len(t, res.Bars, 1)
	assert.True(t, res.Bars[0].Synthetic)
	assert.Equal(t, int64(5000), res.Bars[0].StockLength)
}

func TestPlaceRespectsStockAvailability(t *testing.T) {
	menu := []model.StockOption{{StockLength: 500, Available: 1}}
	k := model.Constraints{}
	// Two pieces too big to share one 500mm bar, only one bar available:
	// the second must fall back to a synthetic bar.
	res := placement.Place(placement.FFD, pieces(400, 400), menu, k)
	require.True(t, res.Infeasible)
	require.Len(t, res.Bars, 2)
	assert.False(t, res.Bars[0].Synthetic)
	assert.True(t, res.Bars[1].Synthetic)
}

func TestPlaceMaxCutsPerStock(t *testing.T) {
	menu := []model.StockOption{{StockLength: 1000, Available: model.Unlimited}}
	k := model.Constraints{MaxCutsPerStock: 1}
	res := placement.Place(placement.FFD, pieces(100, 100, 100), menu, k)
	require.False(t, res.Infeasible)
	require.Len(t, res.Bars, 3)
	for _, b := range res.Bars {
		assert.Equal(t, 1, b.CutCount)
	}
}

func TestPlacePrioritizeSmallWastePicksTightestStock(t *testing.T) {
	menu := []model.StockOption{
		{StockLength: 1000, Available: model.Unlimited},
		{StockLength: 500, Available: model.Unlimited},
	}
	k := model.Constraints{PrioritizeSmallWaste: true}
	res := placement.Place(placement.FFD, pieces(400), menu, k)
	require.Len(t, res.Bars, 1)
	assert.Equal(t, int64(500), res.Bars[0].StockLength)
}
