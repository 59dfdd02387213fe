// Package model defines the value types shared by every optimization
// component: demand, stock menus, constraints, objectives, cost model,
// bars, and plans. All lengths are integers in the base unit (mm). The
// engine does not convert other units: internal/unit offers the
// conversion but no engine path calls it, and the validation policy
// quarantines requests that declare a unit other than mm.
package model

import (
	"math"
	"sort"
	"strings"
)

// ProfileID identifies an aluminium profile type (cross-section).
type ProfileID string

// Demand is a single piece requirement: a profile, a length, and a
// quantity. Identity is (ProfileType, Length); duplicates are
// coalesced by Demands.Coalesce.
type Demand struct {
	ProfileType ProfileID `json:"profile_type"`
	Length      int64     `json:"length"` // mm
	Quantity    int       `json:"quantity"`
}

// Demands is a list of Demand records.
type Demands []Demand

// Coalesce merges duplicate (ProfileType, Length) entries by summing
// quantities, returning a new slice in stable first-seen order.
func (ds Demands) Coalesce() Demands {
	type key struct {
		p ProfileID
		l int64
	}
	index := make(map[key]int, len(ds))
	out := make(Demands, 0, len(ds))
	for _, d := range ds {
		k := key{d.ProfileType, d.Length}
		if i, ok := index[k]; ok {
			out[i].Quantity += d.Quantity
			continue
		}
		index[k] = len(out)
		out = append(out, d)
	}
	return out
}

// Expand turns a demand list into one entry per physical piece,
// tagging each with a stable DemandID so placements can be traced back
// to the originating (profile, length) requirement.
func (ds Demands) Expand() []Piece {
	pieces := make([]Piece, 0)
	for _, d := range ds {
		for i := 0; i < d.Quantity; i++ {
			pieces = append(pieces, Piece{
				ProfileType: d.ProfileType,
				Length:      d.Length,
				DemandID:    string(d.ProfileType) + ":" + itoa(d.Length),
			})
		}
	}
	return pieces
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Piece is one physical piece awaiting placement, derived from Demand.Expand.
type Piece struct {
	ProfileType ProfileID `json:"profile_type"`
	Length      int64     `json:"length"`
	DemandID    string    `json:"demand_id"`
}

// StockOption is one entry in a profile's stock menu.
type StockOption struct {
	StockLength int64 `json:"stock_length"`
	Available   int   `json:"available"` // -1 means unconstrained availability
}

const Unlimited = -1

// HasAvailability reports whether at least one more bar of this stock
// option can still be opened given usedCount already committed.
func (s StockOption) HasAvailability(usedCount int) bool {
	return s.Available == Unlimited || usedCount < s.Available
}

// StockMenu maps profile type to its ordered stock-length menu.
type StockMenu map[ProfileID][]StockOption

// Constraints bundles the cutting constraints that govern placement
// and scoring for a request.
type Constraints struct {
	KerfWidth            int64   `json:"kerf_width"`
	StartSafety          int64   `json:"start_safety"`
	EndSafety            int64   `json:"end_safety"`
	MinScrapLength       int64   `json:"min_scrap_length"`
	MaxWastePct          float64 `json:"max_waste_pct"`
	MaxCutsPerStock      int     `json:"max_cuts_per_stock"`
	AllowPartialStocks   bool    `json:"allow_partial_stocks"`
	PrioritizeSmallWaste bool    `json:"prioritize_small_waste"`
	ReclaimWasteOnly     bool    `json:"reclaim_waste_only"`
	RespectMaterialGrade bool    `json:"respect_material_grades"`
}

// UsableWindow returns the usable length of a bar with this stock length.
func (k Constraints) UsableWindow(stockLength int64) int64 {
	w := stockLength - k.StartSafety - k.EndSafety
	if w < 0 {
		return 0
	}
	return w
}

// ObjectiveKind enumerates the recognised objective kinds.
type ObjectiveKind string

const (
	MinimizeWaste      ObjectiveKind = "minimize-waste"
	MinimizeCost       ObjectiveKind = "minimize-cost"
	MinimizeTime       ObjectiveKind = "minimize-time"
	MaximizeEfficiency ObjectiveKind = "maximize-efficiency"
)

// Priority weights an objective's influence relative to its peers.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// multiplier implements the scorer's coarse weight override:
// high=1.0, medium=0.7, low=0.4.
func (p Priority) multiplier() float64 {
	switch p {
	case PriorityHigh:
		return 1.0
	case PriorityMedium:
		return 0.7
	case PriorityLow:
		return 0.4
	default:
		return 1.0
	}
}

// Multiplier exposes multiplier to other packages.
func (p Priority) Multiplier() float64 { return p.multiplier() }

// Objective is one weighted, prioritised scoring term.
type Objective struct {
	Kind     ObjectiveKind `json:"kind"`
	Weight   float64       `json:"weight"`
	Priority Priority      `json:"priority"`
}

// Objectives is the O vector. Normalise produces weights that sum to 1
// after applying each entry's priority multiplier.
type Objectives []Objective

// Normalise returns a copy with weights scaled by priority and
// renormalised to sum to 1. An empty input returns an empty slice.
func (os Objectives) Normalise() Objectives {
	if len(os) == 0 {
		return nil
	}
	out := make(Objectives, len(os))
	var total float64
	for i, o := range os {
		w := o.Weight * o.Priority.Multiplier()
		out[i] = Objective{Kind: o.Kind, Weight: w, Priority: o.Priority}
		total += w
	}
	if total <= 0 {
		// Degenerate input: fall back to equal weighting so the scorer
		// never divides by zero.
		equal := 1.0 / float64(len(out))
		for i := range out {
			out[i].Weight = equal
		}
		return out
	}
	for i := range out {
		out[i].Weight /= total
	}
	return out
}

// CostModel is the M record: per-unit prices.
type CostModel struct {
	MaterialCostPerMM float64 `json:"material_cost_per_mm"`
	CuttingCostPerCut float64 `json:"cutting_cost_per_cut"`
	SetupCostPerBar   float64 `json:"setup_cost_per_bar"`
	WasteCostPerMM    float64 `json:"waste_cost_per_mm"`
	TimeCostPerMS     float64 `json:"time_cost_per_ms"`
	EnergyCostPerBar  float64 `json:"energy_cost_per_bar"`
	EnergyPerStock    float64 `json:"energy_per_stock"`
}

// Placement is a single piece placed at an offset within a bar.
type Placement struct {
	Length   int64  `json:"length"`
	Offset   int64  `json:"offset"`
	DemandID string `json:"demand_id"`
}

// Bar is a single stock bar and the pieces cut from it.
type Bar struct {
	StockLength     int64       `json:"stock_length"`
	ProfileType     ProfileID   `json:"profile_type"`
	Placements      []Placement `json:"placements"`
	UsedLength      int64       `json:"used_length"`
	RemainingLength int64       `json:"remaining_length"`
	CutCount        int         `json:"cut_count"`
	Synthetic       bool        `json:"synthetic,omitempty"` // true for the "over-long" infeasible-piece bar
}

// Recompute derives UsedLength/RemainingLength/CutCount from
// Placements given the active constraints:
// used = Σlength + (|placements|-1)·kerf + start + end safety.
// CutCount is reported as the placement count; only the kerf
// multiplier uses n-1 internal gaps, since the first cut's kerf is
// part of the first piece's face rather than a gap between pieces.
func (b *Bar) Recompute(k Constraints) {
	var sum int64
	for _, p := range b.Placements {
		sum += p.Length
	}
	b.CutCount = len(b.Placements)
	var used int64
	if b.CutCount > 0 {
		used = sum + int64(b.CutCount-1)*k.KerfWidth + k.StartSafety + k.EndSafety
	}
	b.UsedLength = used
	b.RemainingLength = b.StockLength - used
}

// Recommendation is a human-facing improvement suggestion attached to a Plan.
type Recommendation struct {
	Severity            string  `json:"severity"`
	Message             string  `json:"message"`
	ExpectedImprovement float64 `json:"expected_improvement"`
}

// WasteDistribution buckets waste by category.
type WasteDistribution struct {
	Minimal     int64 `json:"minimal"`
	Small       int64 `json:"small"`
	Medium      int64 `json:"medium"`
	Large       int64 `json:"large"`
	Excessive   int64 `json:"excessive"`
	Reclaimable int64 `json:"reclaimable"`
	TotalPieces int   `json:"total_pieces"`
}

// Totals carries the plan-level derived metrics.
type Totals struct {
	TotalWaste          int64   `json:"total_waste"`
	Efficiency          float64 `json:"efficiency"`
	WastePct            float64 `json:"waste_pct"`
	StockCount          int     `json:"stock_count"`
	AvgCutsPerStock     float64 `json:"avg_cuts_per_stock"`
	TotalLength         int64   `json:"total_length"`
	MaterialUtilization float64 `json:"material_utilization"`
	CutsComplexity      float64 `json:"cuts_complexity"`
}

// Plan is the P record: an ordered bar list plus derived totals.
type Plan struct {
	Bars              []Bar             `json:"bars"`
	Totals            Totals            `json:"totals"`
	WasteDistribution WasteDistribution `json:"waste_distribution"`
	QualityScore      float64           `json:"quality_score"`
	OptimizationScore float64           `json:"optimization_score"`
	Algorithm         string            `json:"algorithm"`
	ExecutionTimeMS   int64             `json:"execution_time_ms"`
	Recommendations   []Recommendation  `json:"recommendations,omitempty"`
	Partial           bool              `json:"partial,omitempty"`
	Infeasible        bool              `json:"infeasible,omitempty"`
}

// ComputeTotals recomputes Totals and WasteDistribution from Bars.
func (p *Plan) ComputeTotals(k Constraints, demandCounts map[string]int) {
	var totalUsed, totalStock, totalWaste int64
	var totalCuts int
	dist := WasteDistribution{}

	for _, b := range p.Bars {
		totalUsed += b.UsedLength
		totalStock += b.StockLength
		totalWaste += b.RemainingLength
		totalCuts += b.CutCount
		dist.TotalPieces += len(b.Placements)
		classifyWaste(&dist, b.RemainingLength, k.MinScrapLength)
	}

	t := Totals{
		TotalWaste:  totalWaste,
		TotalLength: totalStock,
		StockCount:  len(p.Bars),
	}
	if totalStock > 0 {
		t.Efficiency = 100 * float64(totalUsed) / float64(totalStock)
		t.WastePct = 100 * float64(totalWaste) / float64(totalStock)
		t.MaterialUtilization = float64(totalUsed) / float64(totalStock)
	}
	if len(p.Bars) > 0 {
		t.AvgCutsPerStock = float64(totalCuts) / float64(len(p.Bars))
	}
	t.CutsComplexity = cutsComplexity(p.Bars)

	p.Totals = t
	p.WasteDistribution = dist
}

// cutsComplexity computes the normalised Shannon entropy of the bars'
// cut patterns: a plan where every bar follows the same placement
// pattern scores 0, one where every bar cuts a distinct pattern scores
// close to 1. Mirrors internal/classify's demand-side entropy metric,
// but over the solved plan's bar patterns rather than the raw piece
// lengths.
func cutsComplexity(bars []Bar) float64 {
	if len(bars) == 0 {
		return 0
	}
	counts := make(map[string]int, len(bars))
	for _, b := range bars {
		counts[barPattern(b)]++
	}
	if len(counts) <= 1 {
		return 0
	}
	n := float64(len(bars))
	var entropy float64
	for _, c := range counts {
		p := float64(c) / n
		entropy -= p * math.Log2(p)
	}
	maxEntropy := math.Log2(float64(len(counts)))
	if maxEntropy == 0 {
		return 0
	}
	return entropy / maxEntropy
}

// barPattern returns a bar's cut pattern as an order-independent
// signature: its placement lengths sorted ascending and joined.
func barPattern(b Bar) string {
	lengths := make([]int64, len(b.Placements))
	for i, p := range b.Placements {
		lengths[i] = p.Length
	}
	sort.Slice(lengths, func(i, j int) bool { return lengths[i] < lengths[j] })
	var sb strings.Builder
	for i, l := range lengths {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(itoa(l))
	}
	return sb.String()
}

func classifyWaste(d *WasteDistribution, waste, minScrap int64) {
	switch {
	case waste <= 0:
		return
	case waste >= minScrap && minScrap > 0:
		d.Reclaimable += waste
	case waste < 25:
		d.Minimal += waste
	case waste < 100:
		d.Small += waste
	case waste < 500:
		d.Medium += waste
	case waste < 1000:
		d.Large += waste
	default:
		d.Excessive += waste
	}
}
