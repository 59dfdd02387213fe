// Package pool implements the profile-pooling partitioner: it splits
// demand by profile type, flags weak partitions, and concatenates the
// per-partition results with recomputed totals. Solving each partition
// is left to the caller (engine.solve).
package pool

import (
	"sort"

	"github.com/profileopt/cutstock/internal/model"
)

// Partition is one profile's demand slice and stock menu.
type Partition struct {
	ProfileType model.ProfileID
	Pieces      []model.Piece
	Menu        []model.StockOption
}

// Partitions groups expanded pieces by profile type, returning
// partitions in lexicographic profile-type order.
func Partitions(pieces []model.Piece, menu model.StockMenu) []Partition {
	byProfile := make(map[model.ProfileID][]model.Piece)
	for _, p := range pieces {
		byProfile[p.ProfileType] = append(byProfile[p.ProfileType], p)
	}

	profiles := make([]model.ProfileID, 0, len(byProfile))
	for p := range byProfile {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i] < profiles[j] })

	out := make([]Partition, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, Partition{ProfileType: p, Pieces: byProfile[p], Menu: menu[p]})
	}
	return out
}

// Warning describes a per-partition quality concern: emitted when a
// partition's efficiency drops below 85% or its remaining scrap
// exceeds 500mm.
type Warning struct {
	ProfileType model.ProfileID
	Message     string
}

// Warnings inspects a solved partition's bars and returns any warnings.
func Warnings(profile model.ProfileID, bars []model.Bar) []Warning {
	if len(bars) == 0 {
		return nil
	}
	var usedTotal, stockTotal int64
	var maxRemaining int64
	for _, b := range bars {
		usedTotal += b.UsedLength
		stockTotal += b.StockLength
		if b.RemainingLength > maxRemaining {
			maxRemaining = b.RemainingLength
		}
	}
	var warnings []Warning
	if stockTotal > 0 {
		eff := 100 * float64(usedTotal) / float64(stockTotal)
		if eff < 85 {
			warnings = append(warnings, Warning{ProfileType: profile, Message: "partition efficiency below 85%"})
		}
	}
	if maxRemaining > 500 {
		warnings = append(warnings, Warning{ProfileType: profile, Message: "partition has remaining scrap over 500mm"})
	}
	return warnings
}

// Concatenate merges per-partition bar lists into a single plan,
// recomputing totals over the merged set. Profile order is preserved
// from the Partitions call (lexicographic).
func Concatenate(k model.Constraints, partitionBars [][]model.Bar, algorithm string) model.Plan {
	var all []model.Bar
	for _, bars := range partitionBars {
		all = append(all, bars...)
	}
	p := model.Plan{Bars: all, Algorithm: algorithm}
	p.ComputeTotals(k, nil)
	return p
}
