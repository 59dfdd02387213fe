// Package placement implements the greedy placement primitives: FFD,
// BFD, NFD, WFD, plus stock-menu selection for new bars. A single
// fixed-stock-length first-fit/best-fit-decreasing search is
// generalised to a stock menu, safeties, and reclaim/prioritize flags,
// combined with a "scan open bins for the best remaining-capacity fit"
// shape for best-fit selection.
package placement

import (
	"sort"

	"github.com/profileopt/cutstock/internal/kerf"
	"github.com/profileopt/cutstock/internal/model"
)

// Kind enumerates the recognised placement heuristics.
type Kind string

const (
	FFD Kind = "ffd"
	BFD Kind = "bfd"
	NFD Kind = "nfd"
	WFD Kind = "wfd"

	// Sequential is a first-fit decode that does not sort its input: the
	// piece order given to Place is the order placed. Metaheuristics
	// that search over a piece permutation (genetic, anneal) must decode
	// with Sequential rather than FFD/BFD/NFD/WFD, since any of those
	// re-sort by length and make the permutation irrelevant.
	Sequential Kind = "sequential"
)

// Result is the outcome of a single-profile placement pass.
type Result struct {
	Bars       []model.Bar
	Infeasible bool
}

// openBin tracks a bar under construction during placement.
type openBin struct {
	stockLength int64
	profile     model.ProfileID
	placements  []model.Placement
	usedSum     int64 // sum of piece lengths only, kerf excluded
	synthetic   bool
}

// Place runs the requested heuristic over pieces (all must share one
// profile type) against menu, returning bars and an infeasible flag
// when some piece fits no stock length at all.
func Place(kind Kind, pieces []model.Piece, menu []model.StockOption, k model.Constraints) Result {
	if len(pieces) == 0 {
		return Result{}
	}

	ordered := make([]model.Piece, len(pieces))
	copy(ordered, pieces)
	if kind != Sequential {
		// Sort descending by length, stable so equal-length pieces keep
		// their original (lexicographic) order — tie-break rule (4).
		sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Length > ordered[j].Length })
	}

	var bins []*openBin
	usedCountByStock := make(map[int64]int)
	infeasible := false

	for _, p := range ordered {
		idx := selectBin(kind, bins, p.Length, k)
		if idx >= 0 {
			place(bins[idx], p, k)
			continue
		}

		// No open bin fit the piece, so a new bin is opened; this keeps
		// every piece placed exactly once. reclaim_waste_only is not
		// consulted here or anywhere else in placement: a new bin opens
		// whether or not open bins still hold reclaimable scrap.
		opt, synthetic, _ := chooseStockOption(p.Length, menu, k, usedCountByStock)
		nb := &openBin{stockLength: opt, profile: p.ProfileType, synthetic: synthetic}
		if synthetic {
			// Either the smallest stock ≥ piece length ignoring
			// safeties, or (if no stock at all reaches the piece) a
			// bar sized exactly to the piece — either way this marks
			// the plan infeasible rather than raising an exception.
			infeasible = true
		} else {
			usedCountByStock[opt]++
		}
		place(nb, p, k)
		bins = append(bins, nb)
	}

	bars := make([]model.Bar, len(bins))
	for i, b := range bins {
		bar := model.Bar{
			StockLength: b.stockLength,
			ProfileType: b.profile,
			Placements:  b.placements,
			Synthetic:   b.synthetic,
		}
		bar.Recompute(k)
		bars[i] = bar
	}
	return Result{Bars: bars, Infeasible: infeasible}
}

func place(b *openBin, p model.Piece, k model.Constraints) {
	offset := kerf.ConsumedLength(b.usedSum, len(b.placements), k)
	if len(b.placements) > 0 {
		offset += k.KerfWidth
	}
	offset += k.StartSafety
	b.placements = append(b.placements, model.Placement{
		Length:   p.Length,
		Offset:   offset,
		DemandID: p.DemandID,
	})
	b.usedSum += p.Length
}

// selectBin applies the heuristic-specific candidate scan plus the
// universal tie-break order: (1) smallest remainder, (2) earliest bar
// index.
func selectBin(kind Kind, bins []*openBin, length int64, k model.Constraints) int {
	switch kind {
	case FFD, Sequential:
		for i, b := range bins {
			if fits, _ := kerf.Fits(b.stockLength, b.usedSum, len(b.placements), length, k); fits {
				return i
			}
		}
		return -1
	case NFD:
		if len(bins) == 0 {
			return -1
		}
		last := len(bins) - 1
		if fits, _ := kerf.Fits(bins[last].stockLength, bins[last].usedSum, len(bins[last].placements), length, k); fits {
			return last
		}
		return -1
	case BFD:
		best := -1
		var bestRemaining int64
		for i, b := range bins {
			fits, rem := kerf.Fits(b.stockLength, b.usedSum, len(b.placements), length, k)
			if !fits {
				continue
			}
			if best < 0 || rem < bestRemaining {
				best = i
				bestRemaining = rem
			}
		}
		return best
	case WFD:
		best := -1
		var bestRemaining int64 = -1
		for i, b := range bins {
			fits, rem := kerf.Fits(b.stockLength, b.usedSum, len(b.placements), length, k)
			if !fits {
				continue
			}
			if rem > bestRemaining {
				best = i
				bestRemaining = rem
			}
		}
		return best
	default:
		return -1
	}
}

// chooseStockOption picks the stock length for a new bar: when
// PrioritizeSmallWaste, minimise stock_length-piece_length among
// fitting options; otherwise use the canonical (first-listed) fitting
// option. When nothing in the menu has a usable window >= length it
// falls back to the smallest stock length >= piece length ignoring
// safeties (synthetic=true); when even that does not exist it opens a
// synthetic bar sized exactly to the piece's own length and the caller
// marks the plan infeasible. chooseStockOption itself always succeeds
// (ok is kept for call-site symmetry with other selectors but is
// always true).
func chooseStockOption(length int64, menu []model.StockOption, k model.Constraints, used map[int64]int) (stock int64, synthetic bool, ok bool) {
	bestFit := int64(-1)
	canonical := int64(-1)
	for _, opt := range menu {
		if !opt.HasAvailability(used[opt.StockLength]) {
			continue
		}
		if kerf.UsableWindow(opt.StockLength, k) < length {
			continue
		}
		if canonical < 0 {
			canonical = opt.StockLength
		}
		if bestFit < 0 || opt.StockLength-length < bestFit-length {
			bestFit = opt.StockLength
		}
	}
	if k.PrioritizeSmallWaste && bestFit >= 0 {
		return bestFit, false, true
	}
	if canonical >= 0 {
		return canonical, false, true
	}

	// Nothing in the menu has a usable window ≥ length. Try the
	// smallest stock length ≥ piece length ignoring safeties.
	smallest := int64(-1)
	for _, opt := range menu {
		if opt.StockLength >= length && (smallest < 0 || opt.StockLength < smallest) {
			smallest = opt.StockLength
		}
	}
	if smallest >= 0 {
		return smallest, true, true
	}
	// No stock length at all reaches the piece: synthetic over-long bar
	// sized exactly to the piece.
	return length, true, true
}
