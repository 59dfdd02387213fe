// Package exact implements the Branch-and-Bound exact solver for
// small inputs: a single fixed-stock-length recursive search is
// generalised to a stock menu, honours context cancellation and a
// per-call time budget instead of a package-global signal handler, and
// falls back to the best incumbent on timeout rather than running
// until manually stopped.
package exact

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/profileopt/cutstock/internal/kerf"
	"github.com/profileopt/cutstock/internal/model"
)

// Config bounds the search: the largest workload size B&B is attempted
// on, and the wall-clock budget per call.
type Config struct {
	MaxWorkloadSize int
	TimeBudget      time.Duration
}

// DefaultConfig returns sensible defaults: workloads up to 40 pieces, a
// 5 second time budget.
func DefaultConfig() Config {
	return Config{MaxWorkloadSize: 40, TimeBudget: 5 * time.Second}
}

// Result is the B&B outcome.
type Result struct {
	Bars         []model.Bar
	Infeasible   bool
	TimedOut     bool
	NodesVisited int
}

// Applicable reports whether B&B should be attempted for this workload
// size.
func Applicable(pieceCount int, cfg Config) bool {
	max := cfg.MaxWorkloadSize
	if max <= 0 {
		max = DefaultConfig().MaxWorkloadSize
	}
	return pieceCount > 0 && pieceCount <= max
}

type bin struct {
	stockLength int64
	pieces      []model.Piece // longest-first input order
}

func (b bin) usedSum() int64 {
	var sum int64
	for _, p := range b.pieces {
		sum += p.Length
	}
	return sum
}

// state threads search bookkeeping through recursion, using a
// context.Context deadline instead of a global cancellation flag.
type state struct {
	ctx                context.Context
	deadline           time.Time
	pieces             []model.Piece
	menu               []model.StockOption
	k                  model.Constraints
	bestCount          int
	bestPacking        []bin
	nodes              int
	cancelledDueToTime bool
}

// Solve runs branch-and-bound for a single profile's pieces against
// menu, seeded with an initial incumbent bar count/packing (typically
// produced by BFD) so the search never does worse than the heuristic.
func Solve(ctx context.Context, pieces []model.Piece, menu []model.StockOption, k model.Constraints, cfg Config, incumbent []model.Bar) Result {
	if len(pieces) == 0 {
		return Result{}
	}
	if cfg.TimeBudget <= 0 {
		cfg = DefaultConfig()
	}

	ordered := make([]model.Piece, len(pieces))
	copy(ordered, pieces)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Length > ordered[j].Length })

	st := &state{
		ctx:      ctx,
		deadline: time.Now().Add(cfg.TimeBudget),
		pieces:   ordered,
		menu:     menu,
		k:        k,
	}
	if len(incumbent) > 0 {
		st.bestCount = len(incumbent)
		st.bestPacking = binsFromBars(incumbent)
	} else {
		st.bestCount = math.MaxInt32
	}

	st.search(0, nil)

	if st.bestPacking == nil {
		return Result{Infeasible: true, TimedOut: st.cancelledDueToTime, NodesVisited: st.nodes}
	}

	bars := make([]model.Bar, len(st.bestPacking))
	for i, b := range st.bestPacking {
		placements := make([]model.Placement, 0, len(b.pieces))
		offset := k.StartSafety
		for j, p := range b.pieces {
			if j > 0 {
				offset += k.KerfWidth
			}
			placements = append(placements, model.Placement{Length: p.Length, Offset: offset, DemandID: p.DemandID})
			offset += p.Length
		}
		bar := model.Bar{StockLength: b.stockLength, ProfileType: firstProfile(b.pieces), Placements: placements}
		bar.Recompute(k)
		bars[i] = bar
	}
	return Result{Bars: bars, TimedOut: st.cancelledDueToTime, NodesVisited: st.nodes}
}

func firstProfile(pieces []model.Piece) model.ProfileID {
	if len(pieces) == 0 {
		return ""
	}
	return pieces[0].ProfileType
}

func binsFromBars(bars []model.Bar) []bin {
	out := make([]bin, len(bars))
	for i, b := range bars {
		pieces := make([]model.Piece, len(b.Placements))
		for j, p := range b.Placements {
			pieces[j] = model.Piece{ProfileType: b.ProfileType, Length: p.Length, DemandID: p.DemandID}
		}
		out[i] = bin{stockLength: b.StockLength, pieces: pieces}
	}
	return out
}

func canonicalStock(menu []model.StockOption) int64 {
	if len(menu) == 0 {
		return 0
	}
	return menu[0].StockLength
}

func maxUsableWindow(menu []model.StockOption, k model.Constraints) int64 {
	var max int64
	for _, o := range menu {
		w := kerf.UsableWindow(o.StockLength, k)
		if w > max {
			max = w
		}
	}
	return max
}

// lowerBound computes ⌈Σremaining / maxUsableWindow⌉, a valid lower
// bound on additional bins needed since no bin can pack more than the
// largest usable window in the menu.
func (st *state) lowerBound(from int) int {
	window := maxUsableWindow(st.menu, st.k)
	if window <= 0 {
		return len(st.pieces) - from
	}
	var sum int64
	for i := from; i < len(st.pieces); i++ {
		sum += st.pieces[i].Length
	}
	return int(math.Ceil(float64(sum) / float64(window)))
}

func (st *state) search(index int, current []bin) {
	st.nodes++
	if st.ctx.Err() != nil || time.Now().After(st.deadline) {
		st.cancelledDueToTime = true
		return
	}

	if index >= len(st.pieces) {
		if len(current) < st.bestCount {
			st.bestCount = len(current)
			st.bestPacking = cloneBins(current)
		}
		return
	}

	if len(current) >= st.bestCount {
		return
	}
	if len(current)+st.lowerBound(index) >= st.bestCount {
		return
	}

	piece := st.pieces[index]

	// Try existing bins in best-fit order (smallest remainder first).
	type fitCand struct {
		idx   int
		waste int64
	}
	var cands []fitCand
	for i, b := range current {
		fits, rem := kerf.Fits(b.stockLength, b.usedSum(), len(b.pieces), piece.Length, st.k)
		if fits {
			cands = append(cands, fitCand{idx: i, waste: rem})
		}
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].waste < cands[j].waste })

	for _, c := range cands {
		current[c.idx].pieces = append(current[c.idx].pieces, piece)
		st.search(index+1, current)
		current[c.idx].pieces = current[c.idx].pieces[:len(current[c.idx].pieces)-1]
		if st.cancelledDueToTime {
			return
		}
	}

	// Try opening a new bin, choosing the stock option with the
	// smallest usable window that still fits the piece (minimises
	// waste of the newly opened bin), falling back to the canonical
	// stock length when none fits (feasibility is decided upstream).
	if len(current)+1 < st.bestCount {
		stock := bestNewStock(piece.Length, st.menu, st.k)
		current = append(current, bin{stockLength: stock, pieces: []model.Piece{piece}})
		st.search(index+1, current)
		current = current[:len(current)-1]
	}
}

func bestNewStock(length int64, menu []model.StockOption, k model.Constraints) int64 {
	best := int64(-1)
	for _, o := range menu {
		if kerf.UsableWindow(o.StockLength, k) >= length {
			if best < 0 || o.StockLength < best {
				best = o.StockLength
			}
		}
	}
	if best < 0 {
		return canonicalStock(menu)
	}
	return best
}

func cloneBins(bins []bin) []bin {
	out := make([]bin, len(bins))
	for i, b := range bins {
		p := make([]model.Piece, len(b.pieces))
		copy(p, b.pieces)
		out[i] = bin{stockLength: b.stockLength, pieces: p}
	}
	return out
}
