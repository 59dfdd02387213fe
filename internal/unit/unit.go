// Package unit converts declared-unit integer lengths into the engine's
// base unit (millimetres) via exact integer scaling:
// "Unit conversions are exact integer scaling (mm↔cm↔m by
// 10/100/1000); a mismatched unit in input is a validation failure,
// not a silent cast."
package unit

import "github.com/profileopt/cutstock/internal/cuterr"

// Unit is a recognised declared length unit.
type Unit string

const (
	MM Unit = "mm"
	CM Unit = "cm"
	M  Unit = "m"
)

// scale returns the multiplier that converts a value in u to mm.
func scale(u Unit) (int64, bool) {
	switch u {
	case MM, "":
		return 1, true
	case CM:
		return 10, true
	case M:
		return 1000, true
	default:
		return 0, false
	}
}

// ToMM converts a length declared in unit u to millimetres. It returns a
// ValidationRejected *cuterr.Error for an unrecognised unit — a
// mismatched unit is never silently cast.
func ToMM(correlationID string, length int64, u Unit) (int64, error) {
	m, ok := scale(u)
	if !ok {
		return 0, cuterr.Validation(correlationID, "unrecognised length unit %q", u)
	}
	return length * m, nil
}

// FromMM converts a millimetre length back to the declared unit for
// presentation purposes. Precision loss (e.g. mm not exactly divisible
// when presenting in m) is accepted since this direction is read-only
// for display; ToMM is the exact direction.
func FromMM(lengthMM int64, u Unit) float64 {
	m, ok := scale(u)
	if !ok || m == 0 {
		return float64(lengthMM)
	}
	return float64(lengthMM) / float64(m)
}
