// Package validate implements the result validator: it proves
// conservation of length, non-negativity, and efficiency/waste
// consistency on a solved plan before the engine is allowed to emit it.
package validate

import (
	"fmt"
	"math"

	"github.com/profileopt/cutstock/internal/cuterr"
	"github.com/profileopt/cutstock/internal/model"
)

const tolerance = 1e-6
const pctTolerance = 0.1

// Violation is one failed check, identified by the field it concerns.
type Violation struct {
	Field   string
	Message string
}

// Report is the outcome of validating a plan.
type Report struct {
	Valid      bool
	Violations []Violation
}

// Plan verifies every per-bar invariant and every plan-level total
// against the source bars. demandCounts maps DemandID to the expected
// occurrence count, used to check that every demand piece appears the
// correct number of times.
func Plan(correlationID string, p model.Plan, k model.Constraints, demandCounts map[string]int) (Report, error) {
	var violations []Violation

	actualCounts := make(map[string]int)
	for bi, b := range p.Bars {
		if b.StockLength <= 0 {
			violations = append(violations, Violation{
				Field:   fmt.Sprintf("bars[%d].stock_length", bi),
				Message: "stock_length must be > 0",
			})
		}
		if b.UsedLength < 0 || b.RemainingLength < 0 {
			violations = append(violations, Violation{
				Field:   fmt.Sprintf("bars[%d]", bi),
				Message: "used_length and remaining_length must be non-negative",
			})
		}
		if math.Abs(float64(b.UsedLength+b.RemainingLength-b.StockLength)) > tolerance {
			violations = append(violations, Violation{
				Field:   fmt.Sprintf("bars[%d]", bi),
				Message: "used_length + remaining_length must equal stock_length",
			})
		}
		if k.MaxCutsPerStock > 0 && b.CutCount > k.MaxCutsPerStock {
			violations = append(violations, Violation{
				Field:   fmt.Sprintf("bars[%d].cut_count", bi),
				Message: "cut_count exceeds max_cuts_per_stock",
			})
		}
		for _, pl := range b.Placements {
			actualCounts[pl.DemandID]++
		}
	}

	var sumUsed, sumStock, sumWaste int64
	for _, b := range p.Bars {
		sumUsed += b.UsedLength
		sumStock += b.StockLength
		sumWaste += b.RemainingLength
	}

	if sumStock > 0 {
		expectedEfficiency := 100 * float64(sumUsed) / float64(sumStock)
		if math.Abs(p.Totals.Efficiency-expectedEfficiency) > pctTolerance {
			violations = append(violations, Violation{
				Field:   "totals.efficiency",
				Message: fmt.Sprintf("reported efficiency %.4f deviates from computed %.4f by more than %.1f", p.Totals.Efficiency, expectedEfficiency, pctTolerance),
			})
		}
	}
	if math.Abs(float64(p.Totals.TotalWaste-sumWaste)) > pctTolerance {
		violations = append(violations, Violation{
			Field:   "totals.total_waste",
			Message: fmt.Sprintf("reported total_waste %d deviates from computed %d", p.Totals.TotalWaste, sumWaste),
		})
	}

	for demandID, want := range demandCounts {
		if actualCounts[demandID] != want {
			violations = append(violations, Violation{
				Field:   "placements[demand_id=" + demandID + "]",
				Message: fmt.Sprintf("expected %d occurrences, found %d", want, actualCounts[demandID]),
			})
		}
	}
	for demandID, got := range actualCounts {
		if _, expected := demandCounts[demandID]; !expected && got > 0 {
			violations = append(violations, Violation{
				Field:   "placements[demand_id=" + demandID + "]",
				Message: "demand id not present in original request",
			})
		}
	}

	if len(violations) > 0 {
		return Report{Valid: false, Violations: violations}, cuterr.Internal(correlationID, "result validation failed: %d violation(s)", len(violations))
	}
	return Report{Valid: true}, nil
}
