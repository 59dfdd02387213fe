// Package kerf implements the constraint & kerf arithmetic: usable
// window computation and placement admissibility.
package kerf

import (
	"github.com/profileopt/cutstock/internal/cuterr"
	"github.com/profileopt/cutstock/internal/model"
)

// UsableWindow returns stockLength - start_safety - end_safety.
func UsableWindow(stockLength int64, k model.Constraints) int64 {
	return k.UsableWindow(stockLength)
}

// ConsumedLength returns the length consumed inside the usable window
// by n pieces totalling pieceSum, including (n-1) internal kerfs —
// "the first cut's kerf is part of the first piece's face".
func ConsumedLength(pieceSum int64, n int, k model.Constraints) int64 {
	if n <= 0 {
		return 0
	}
	return pieceSum + int64(n-1)*k.KerfWidth
}

// Admissible reports whether placing the given pieces (already
// including the candidate) on a bar of stockLength is allowed under k,
// returning a ConstraintViolation describing the first failing rule.
func Admissible(correlationID string, stockLength int64, pieceLengths []int64, k model.Constraints) error {
	n := len(pieceLengths)
	if k.MaxCutsPerStock > 0 && n > k.MaxCutsPerStock {
		return cuterr.Constraint(correlationID, "placement of %d pieces exceeds max_cuts_per_stock=%d", n, k.MaxCutsPerStock)
	}

	var sum int64
	for _, l := range pieceLengths {
		sum += l
	}
	consumed := ConsumedLength(sum, n, k)
	window := UsableWindow(stockLength, k)
	if consumed > window {
		return cuterr.Constraint(correlationID, "placement consumes %d which exceeds usable window %d", consumed, window)
	}

	gap := window - consumed
	if gap > 0 && gap < k.MinScrapLength {
		// Trailing gap smaller than min_scrap_length is legal — it is
		// simply counted as waste, not reclaimable. Admissibility does
		// not reject this case, and Fits (below) does not consult
		// min_scrap_length either.
		_ = gap
	}

	return nil
}

// Fits reports whether a single additional piece of length `add` fits
// onto a bar that currently holds pieces totalling `usedSum` across
// `usedCount` placements, given stockLength and constraints k. It
// returns the remaining gap after placement when it fits.
func Fits(stockLength, usedSum int64, usedCount int, add int64, k model.Constraints) (fits bool, remaining int64) {
	if k.MaxCutsPerStock > 0 && usedCount+1 > k.MaxCutsPerStock {
		return false, 0
	}
	n := usedCount + 1
	consumed := ConsumedLength(usedSum+add, n, k)
	window := UsableWindow(stockLength, k)
	if consumed > window {
		return false, 0
	}
	return true, window - consumed
}

// ValidateConstraints checks the invariant
// kerf_width+start_safety+end_safety < min(stock_length), and that all
// lengths are non-negative.
func ValidateConstraints(correlationID string, k model.Constraints, minStockLength int64) error {
	if k.KerfWidth < 0 || k.StartSafety < 0 || k.EndSafety < 0 || k.MinScrapLength < 0 {
		return cuterr.Validation(correlationID, "constraint lengths must be non-negative")
	}
	if minStockLength > 0 && k.KerfWidth+k.StartSafety+k.EndSafety >= minStockLength {
		return cuterr.Validation(correlationID, "kerf_width+start_safety+end_safety (%d) must be less than the smallest stock length (%d)",
			k.KerfWidth+k.StartSafety+k.EndSafety, minStockLength)
	}
	if k.MaxWastePct < 0 || k.MaxWastePct > 100 {
		return cuterr.Validation(correlationID, "max_waste_pct must be within [0,100], got %v", k.MaxWastePct)
	}
	return nil
}
