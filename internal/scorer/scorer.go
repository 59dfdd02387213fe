// Package scorer combines weighted objectives into a scalar fitness and
// a breakdown, following a composite-score-plus-breakdown pattern.
package scorer

import (
	"math"

	"github.com/profileopt/cutstock/internal/costmodel"
	"github.com/profileopt/cutstock/internal/model"
)

// Breakdown exposes each component score so the selector can reason
// about trade-offs.
type Breakdown struct {
	WasteScore      float64
	EfficiencyScore float64
	CostScore       float64
	TimeScore       float64
	Fitness         float64
}

// Inputs bundles the ceilings the scorer needs beyond the plan itself.
type Inputs struct {
	Objectives  model.Objectives
	MaxWastePct float64 // cap used for the waste score only
	CostCeiling float64
	TimeCeilingMS float64
}

// Score computes the fitness and breakdown for a candidate plan.
func Score(p model.Plan, cost costmodel.Breakdown, estimatedTimeMS float64, in Inputs) Breakdown {
	maxWaste := in.MaxWastePct
	if maxWaste <= 0 {
		maxWaste = 100
	}

	b := Breakdown{
		WasteScore:      clamp01(1 - clampMin0(p.Totals.WastePct/maxWaste)),
		EfficiencyScore: clamp01(p.Totals.Efficiency / 100),
		CostScore:       costScore(cost.TotalCost, in.CostCeiling),
		TimeScore:       timeScore(estimatedTimeMS, in.TimeCeilingMS),
	}

	norm := in.Objectives.Normalise()
	if len(norm) == 0 {
		// No explicit objectives: fall back to an equal blend of all four.
		b.Fitness = (b.WasteScore + b.EfficiencyScore + b.CostScore + b.TimeScore) / 4
		return b
	}

	var fitness float64
	for _, o := range norm {
		switch o.Kind {
		case model.MinimizeWaste:
			fitness += o.Weight * b.WasteScore
		case model.MinimizeCost:
			fitness += o.Weight * b.CostScore
		case model.MinimizeTime:
			fitness += o.Weight * b.TimeScore
		case model.MaximizeEfficiency:
			fitness += o.Weight * b.EfficiencyScore
		}
	}
	b.Fitness = fitness
	return b
}

func costScore(cost, ceiling float64) float64 {
	if ceiling <= 0 {
		return 1
	}
	return clamp01(1 - cost/ceiling)
}

func timeScore(t, ceiling float64) float64 {
	if ceiling <= 0 {
		return 1
	}
	return clamp01(1 - t/ceiling)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampMin0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
