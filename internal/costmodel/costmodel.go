// Package costmodel derives material/cut/setup/waste/time/energy cost
// from a plan.
package costmodel

import "github.com/profileopt/cutstock/internal/model"

// Breakdown is the itemised cost of a plan.
type Breakdown struct {
	MaterialCost float64
	CuttingCost  float64
	SetupCost    float64
	WasteCost    float64
	TimeCost     float64
	EnergyCost   float64
	TotalCost    float64
	CostPerMeter float64
}

// Compute derives total_cost and cost_per_meter from a plan, an
// estimated execution time in ms, and a cost model:
//
//	total = materialCost·Σstock + cuttingCost·Σcuts + setupCost·|bars|
//	      + wasteCost·totalWaste + timeCost·estTime + energyCost·|bars|·energyPerStock
func Compute(p model.Plan, estimatedTimeMS float64, m model.CostModel) Breakdown {
	var totalStock int64
	var totalCuts int
	var pieceSum int64
	for _, b := range p.Bars {
		totalStock += b.StockLength
		totalCuts += b.CutCount
		for _, pl := range b.Placements {
			pieceSum += pl.Length
		}
	}

	bars := float64(len(p.Bars))
	bd := Breakdown{
		MaterialCost: m.MaterialCostPerMM * float64(totalStock),
		CuttingCost:  m.CuttingCostPerCut * float64(totalCuts),
		SetupCost:    m.SetupCostPerBar * bars,
		WasteCost:    m.WasteCostPerMM * float64(p.Totals.TotalWaste),
		TimeCost:     m.TimeCostPerMS * estimatedTimeMS,
		EnergyCost:   m.EnergyCostPerBar * bars * m.EnergyPerStock,
	}
	bd.TotalCost = bd.MaterialCost + bd.CuttingCost + bd.SetupCost + bd.WasteCost + bd.TimeCost + bd.EnergyCost

	meters := float64(pieceSum) / 1000.0
	if meters > 0 {
		bd.CostPerMeter = bd.TotalCost / meters
	}
	return bd
}

// WorstCaseCeiling computes the cost of the worst-case "one piece per
// bar" plan for a demand set, used as the scorer's cost-score ceiling.
// Each bar's waste is taken as its stock length minus the piece length.
func WorstCaseCeiling(pieces []model.Piece, menu model.StockMenu, m model.CostModel, estimatedTimeMS float64) float64 {
	var totalStock, totalWaste int64
	cuts := len(pieces)
	for _, p := range pieces {
		stock := smallestFitting(p.Length, menu[p.ProfileType])
		totalStock += stock
		totalWaste += stock - p.Length
	}
	bars := float64(cuts)
	total := m.MaterialCostPerMM*float64(totalStock) +
		m.CuttingCostPerCut*float64(cuts) +
		m.SetupCostPerBar*bars +
		m.WasteCostPerMM*float64(totalWaste) +
		m.TimeCostPerMS*estimatedTimeMS +
		m.EnergyCostPerBar*bars*m.EnergyPerStock
	return total
}

func smallestFitting(length int64, opts []model.StockOption) int64 {
	best := int64(-1)
	for _, o := range opts {
		if o.StockLength >= length && (best < 0 || o.StockLength < best) {
			best = o.StockLength
		}
	}
	if best < 0 {
		return length
	}
	return best
}
