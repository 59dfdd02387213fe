// Package engine implements the facade: the single entry point
// that orchestrates validation, classification, optimisation, scoring
// and output verification behind one state machine per request. It is
// the only component that speaks to external collaborators (result
// sink, audit sink, selection log sink).
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/profileopt/cutstock/internal/anneal"
	"github.com/profileopt/cutstock/internal/canary"
	"github.com/profileopt/cutstock/internal/classify"
	"github.com/profileopt/cutstock/internal/costmodel"
	"github.com/profileopt/cutstock/internal/cuterr"
	"github.com/profileopt/cutstock/internal/exact"
	"github.com/profileopt/cutstock/internal/genetic"
	"github.com/profileopt/cutstock/internal/kerf"
	"github.com/profileopt/cutstock/internal/model"
	"github.com/profileopt/cutstock/internal/placement"
	"github.com/profileopt/cutstock/internal/policy"
	"github.com/profileopt/cutstock/internal/pool"
	"github.com/profileopt/cutstock/internal/scorer"
	"github.com/profileopt/cutstock/internal/unit"
	"github.com/profileopt/cutstock/internal/validate"
)

// State is a request's position in the facade's state machine:
// Received -> Validated -> Classified -> Solving -> Scored -> Verified
// -> Emitted, or Failed at any step.
type State string

const (
	StateReceived   State = "received"
	StateValidated  State = "validated"
	StateClassified State = "classified"
	StateSolving    State = "solving"
	StateScored     State = "scored"
	StateVerified   State = "verified"
	StateEmitted    State = "emitted"
	StateFailed     State = "failed"
)

// Performance is the performance envelope a caller can tune for a request.
type Performance struct {
	MaxIterations        int     `json:"max_iterations"`
	ConvergenceThreshold float64 `json:"convergence_threshold"`
	Parallel             bool    `json:"parallel"`
	Workers              int     `json:"workers"`
	BudgetMS             int64   `json:"budget_ms"`
	Seed                 int64   `json:"seed"`
}

// Request is the Optimise call's value input.
type Request struct {
	CorrelationID string             `json:"correlation_id,omitempty"`
	Demands       model.Demands      `json:"items"`
	Algorithm     classify.Algorithm `json:"algorithm,omitempty"` // empty = let the selector decide
	Objectives    model.Objectives   `json:"objectives,omitempty"`
	Constraints   model.Constraints  `json:"constraints"`
	Performance   Performance        `json:"performance,omitempty"`
	CostModel     model.CostModel    `json:"cost_model,omitempty"`
	StockMenu     model.StockMenu    `json:"material_stock_lengths"`
	Unit          unit.Unit          `json:"unit,omitempty"`
	PreferQuality bool               `json:"prefer_quality,omitempty"`
	PreferSpeed   bool               `json:"prefer_speed,omitempty"`
}

// Result is the Optimise call's value output.
type Result struct {
	Plan      model.Plan
	State     State
	Selection classify.Selection
}

// ResultSink receives every emitted plan, for audit/metrics purposes.
type ResultSink interface {
	Emit(ctx context.Context, correlationID string, plan model.Plan)
}

// AuditSink receives a record of every state transition.
type AuditSink interface {
	Audit(ctx context.Context, correlationID string, from, to State, detail string)
}

// SelectionLogSink is notified whenever a selection log entry is created.
type SelectionLogSink interface {
	LogSelected(ctx context.Context, log classify.Log)
}

// Engine is the facade. It owns no persistent state between requests
// beyond the process-local selection log / canary / quarantine
// stores and an in-flight request counter for backpressure.
type Engine struct {
	selectionLog *classify.Store
	canaryStore  *canary.Store
	quarantine   *policy.QuarantineStore

	resultSink   ResultSink
	auditSink    AuditSink
	selectionLogSink SelectionLogSink

	maxConcurrent int
	inFlight      int
}

// Config configures an Engine's backpressure limit and sinks.
type Config struct {
	MaxConcurrentOptimizations int
	ResultSink                 ResultSink
	AuditSink                  AuditSink
	SelectionLogSink           SelectionLogSink
}

// New constructs an Engine with fresh process-local stores.
func New(cfg Config) *Engine {
	max := cfg.MaxConcurrentOptimizations
	if max <= 0 {
		max = 16
	}
	return &Engine{
		selectionLog:     classify.NewStore(),
		canaryStore:      canary.NewStore(),
		quarantine:       policy.NewQuarantineStore(),
		resultSink:       cfg.ResultSink,
		auditSink:        cfg.AuditSink,
		selectionLogSink: cfg.SelectionLogSink,
		maxConcurrent:    max,
	}
}

func (e *Engine) audit(ctx context.Context, correlationID string, from, to State, detail string) {
	klog.V(2).InfoS("state transition", "correlationID", correlationID, "from", from, "to", to, "detail", detail)
	if e.auditSink != nil {
		e.auditSink.Audit(ctx, correlationID, from, to, detail)
	}
}

// Optimise runs the full pipeline: validate -> classify -> optimise ->
// score -> verify -> emit.
func (e *Engine) Optimise(ctx context.Context, req Request) (Result, error) {
	if req.CorrelationID == "" {
		req.CorrelationID = uuid.NewString()
	}
	cid := req.CorrelationID

	if e.inFlight >= e.maxConcurrent {
		return Result{State: StateFailed}, cuterr.TooBusyErr(cid)
	}
	e.inFlight++
	defer func() { e.inFlight-- }()

	start := time.Now()
	state := StateReceived

	// --- Validated ---
	preq := policy.Request{Demands: req.Demands, Constraints: req.Constraints, Unit: string(req.Unit)}
	outcome, findings, fixed := policy.Evaluate(preq)
	switch outcome {
	case policy.Rejected:
		e.audit(ctx, cid, state, StateFailed, "validation rejected")
		return Result{State: StateFailed}, cuterr.Validation(cid, "input rejected by validation policy: %d finding(s)", len(findings))
	case policy.Quarantined:
		e.quarantine.Add(preq, findings)
		e.audit(ctx, cid, state, StateFailed, "quarantined")
		return Result{State: StateFailed}, cuterr.Validation(cid, "input quarantined: %d finding(s)", len(findings))
	case policy.AutoFixed:
		req.Demands = fixed.Demands
	}
	demands := req.Demands.Coalesce()

	if err := kerf.ValidateConstraints(cid, req.Constraints, minMenuStock(req.StockMenu)); err != nil {
		e.audit(ctx, cid, state, StateFailed, "constraint violation")
		return Result{State: StateFailed}, err
	}

	state = StateValidated
	e.audit(ctx, cid, StateReceived, state, "policy passed")

	pieces := demands.Expand()
	demandCounts := make(map[string]int, len(demands))
	for _, p := range pieces {
		demandCounts[p.DemandID]++
	}

	// --- Classified ---
	class := classify.Classify(len(pieces))
	complexity := classify.Complexity(pieces)
	candidates := buildCandidates(class)
	sel := classify.SelectAlgorithm(class, classify.SelectionOptions{
		Explicit:      req.Algorithm,
		PreferQuality: req.PreferQuality,
		PreferSpeed:   req.PreferSpeed,
	}, candidates)
	log := e.selectionLog.Create(cid, class, len(pieces), complexity, sel)
	if e.selectionLogSink != nil {
		e.selectionLogSink.LogSelected(ctx, log)
	}

	state = StateClassified
	e.audit(ctx, cid, StateValidated, state, fmt.Sprintf("chosen=%s reason=%s", sel.Chosen, sel.Reason))

	// --- Solving (partitioner + placement/metaheuristic/exact solvers) ---
	state = StateSolving
	e.audit(ctx, cid, StateClassified, state, "")

	plan, partial, infeasible, fellBack, warnings := e.solve(ctx, pieces, req.StockMenu, req.Constraints, sel.Chosen, req.Performance)
	plan.Algorithm = string(sel.Chosen)
	plan.Partial = partial
	plan.Infeasible = infeasible
	if fellBack {
		e.selectionLog.Update(log.ID, time.Since(start), plan.Totals.Efficiency, 0, true)
	}

	// --- Scored (cost model + scorer) ---
	state = StateScored
	elapsedMS := float64(time.Since(start).Milliseconds())
	costCeiling := costmodel.WorstCaseCeiling(pieces, req.StockMenu, req.CostModel, elapsedMS)
	costBreakdown := costmodel.Compute(plan, elapsedMS, req.CostModel)
	breakdown := scorer.Score(plan, costBreakdown, elapsedMS, scorer.Inputs{
		Objectives:    req.Objectives,
		MaxWastePct:   req.Constraints.MaxWastePct,
		CostCeiling:   costCeiling,
		TimeCeilingMS: float64(req.Performance.BudgetMS),
	})
	plan.QualityScore = breakdown.Fitness
	plan.OptimizationScore = breakdown.Fitness
	plan.ExecutionTimeMS = time.Since(start).Milliseconds()
	plan.Recommendations = append(recommendationsFromWarnings(warnings), recommendationsFromBreakdown(breakdown)...)
	e.audit(ctx, cid, StateSolving, state, fmt.Sprintf("fitness=%.4f", breakdown.Fitness))

	if !fellBack {
		e.selectionLog.Update(log.ID, time.Since(start), plan.Totals.Efficiency, 0, false)
	}

	// --- Verified ---
	report, err := validate.Plan(cid, plan, req.Constraints, demandCounts)
	if err != nil || !report.Valid {
		e.audit(ctx, cid, state, StateFailed, "validator rejected output")
		klog.ErrorS(err, "internal inconsistency detected, discarding plan", "correlationID", cid)
		return Result{State: StateFailed}, cuterr.Internal(cid, "result validator rejected the computed plan")
	}
	state = StateVerified
	e.audit(ctx, cid, StateScored, state, "")

	// --- Emitted ---
	if e.resultSink != nil {
		e.resultSink.Emit(ctx, cid, plan)
	}
	state = StateEmitted
	e.audit(ctx, cid, StateVerified, state, "")

	return Result{Plan: plan, State: state, Selection: sel}, nil
}

// solve dispatches to the profile-pooling partitioner and, within each
// partition, to the chosen placement heuristic or metaheuristic,
// falling back to BFD's failure-semantics table.
func (e *Engine) solve(ctx context.Context, pieces []model.Piece, menu model.StockMenu, k model.Constraints, algo classify.Algorithm, perf Performance) (plan model.Plan, partial, infeasible, fellBack bool, warnings []pool.Warning) {
	partitions := pool.Partitions(pieces, menu)
	partitionBars := make([][]model.Bar, 0, len(partitions))

	objectiveScore := func(p model.Plan) float64 {
		b := scorer.Score(p, costmodel.Breakdown{}, float64(p.ExecutionTimeMS), scorer.Inputs{MaxWastePct: k.MaxWastePct})
		return b.Fitness
	}

	workers := perf.Workers
	if workers <= 0 {
		workers = 1
	}
	seed := perf.Seed
	if seed == 0 {
		seed = 1
	}

	for _, part := range partitions {
		var bars []model.Bar
		var partPartial, partFellBack bool

		if kind, ok := classify.PlacementKind(algo); ok {
			res := placement.Place(kind, part.Pieces, part.Menu, k)
			bars = res.Bars
			if res.Infeasible {
				infeasible = true
			}
		} else {
			switch algo {
			case classify.AlgoGenetic:
				cfg := genetic.DefaultConfig()
				cfg.Workers = workers
				cfg.Seed = seed
				if perf.MaxIterations > 0 {
					cfg.Generations = perf.MaxIterations
				}
				res := genetic.Run(ctx, part.Pieces, part.Menu, k, cfg, objectiveScore)
				bars = res.Plan.Bars
				partPartial = res.Partial
			case classify.AlgoSA:
				cfg := anneal.DefaultConfig()
				cfg.Seed = seed
				if perf.BudgetMS > 0 {
					cfg.MaxDurationMS = perf.BudgetMS
				}
				res := anneal.Run(ctx, part.Pieces, part.Menu, k, cfg, objectiveScore)
				bars = res.Plan.Bars
				partPartial = res.Partial
			case classify.AlgoBranchAndBound:
				bfd := placement.Place(placement.BFD, part.Pieces, part.Menu, k)
				cfg := exact.DefaultConfig()
				if exact.Applicable(len(part.Pieces), cfg) {
					res := exact.Solve(ctx, part.Pieces, part.Menu, k, cfg, bfd.Bars)
					if res.TimedOut || res.Infeasible {
						bars = bfd.Bars
						partFellBack = true
					} else {
						bars = res.Bars
					}
				} else {
					bars = bfd.Bars
					partFellBack = true
				}
				if bfd.Infeasible {
					infeasible = true
				}
			default:
				res := placement.Place(placement.BFD, part.Pieces, part.Menu, k)
				bars = res.Bars
				if res.Infeasible {
					infeasible = true
				}
			}
		}

		for i := range bars {
			bars[i].ProfileType = part.ProfileType
		}
		warnings = append(warnings, pool.Warnings(part.ProfileType, bars)...)
		partitionBars = append(partitionBars, bars)
		partial = partial || partPartial
		fellBack = fellBack || partFellBack
	}

	plan = pool.Concatenate(k, partitionBars, string(algo))
	return plan, partial, infeasible, fellBack, warnings
}

// recommendationsFromWarnings turns per-partition quality warnings into
// user-facing recommendations; expected_improvement is a coarse
// estimate of the percentage-point efficiency gain from addressing the
// flagged partition, not a re-solve.
func recommendationsFromWarnings(warnings []pool.Warning) []model.Recommendation {
	if len(warnings) == 0 {
		return nil
	}
	recs := make([]model.Recommendation, 0, len(warnings))
	for _, w := range warnings {
		rec := model.Recommendation{
			Severity: "warning",
			Message:  fmt.Sprintf("profile %s: %s", w.ProfileType, w.Message),
		}
		switch {
		case strings.Contains(w.Message, "efficiency"):
			rec.ExpectedImprovement = 15 // lifting a sub-85% partition up to the floor
		case strings.Contains(w.Message, "scrap"):
			rec.ExpectedImprovement = 5 // reclaiming scrap above the 500mm floor
		}
		recs = append(recs, rec)
	}
	return recs
}

// recommendationsFromBreakdown surfaces the scorer's weakest component
// scores as informational recommendations when they fall below half of
// their objective's available credit.
func recommendationsFromBreakdown(b scorer.Breakdown) []model.Recommendation {
	var recs []model.Recommendation
	const floor = 0.5
	if b.WasteScore < floor {
		recs = append(recs, model.Recommendation{
			Severity:            "info",
			Message:             "waste score is below half its objective credit; consider relaxing max_waste_pct or a metaheuristic algorithm",
			ExpectedImprovement: (floor - b.WasteScore) * 100,
		})
	}
	if b.EfficiencyScore < floor {
		recs = append(recs, model.Recommendation{
			Severity:            "info",
			Message:             "material utilisation is below half its objective credit; consider a tighter stock menu",
			ExpectedImprovement: (floor - b.EfficiencyScore) * 100,
		})
	}
	return recs
}

func minMenuStock(menu model.StockMenu) int64 {
	var min int64 = -1
	for _, opts := range menu {
		for _, o := range opts {
			if min < 0 || o.StockLength < min {
				min = o.StockLength
			}
		}
	}
	if min < 0 {
		return 0
	}
	return min
}

// buildCandidates produces the selector's candidate set for a
// workload class; estimates are coarse heuristics, not measurements,
// used only to drive prefer_quality/prefer_speed comparisons.
func buildCandidates(class classify.WorkloadClass) []classify.Candidate {
	base := []classify.Candidate{
		{Algorithm: classify.AlgoFFD, EstDuration: time.Millisecond, EstQuality: 0.80, Confidence: 0.9},
		{Algorithm: classify.AlgoBFD, EstDuration: 2 * time.Millisecond, EstQuality: 0.85, Confidence: 0.9},
	}
	switch class {
	case classify.Tiny:
		base = append(base, classify.Candidate{Algorithm: classify.AlgoBranchAndBound, EstDuration: 200 * time.Millisecond, EstQuality: 0.99, Confidence: 0.95})
	case classify.Medium:
		base = append(base, classify.Candidate{Algorithm: classify.AlgoGenetic, EstDuration: 500 * time.Millisecond, EstQuality: 0.93, Confidence: 0.8})
	case classify.Large:
		base = append(base, classify.Candidate{Algorithm: classify.AlgoSA, EstDuration: 300 * time.Millisecond, EstQuality: 0.90, Confidence: 0.8})
	}
	sort.SliceStable(base, func(i, j int) bool { return base[i].EstQuality > base[j].EstQuality })
	return base
}

// Comparison is one algorithm's outcome within a Compare call, sorted
// by descending efficiency.
type Comparison struct {
	Algorithm  classify.Algorithm
	Plan       model.Plan
	ExecMS     int64
	Efficiency float64
	Waste      int64
	Cost       float64
	Confidence float64
}

// Compare runs the request once per requested algorithm and returns
// each outcome sorted by descending efficiency, plus the winner.
func (e *Engine) Compare(ctx context.Context, req Request, algorithms []classify.Algorithm) ([]Comparison, classify.Algorithm, error) {
	var out []Comparison
	for _, a := range algorithms {
		r := req
		r.Algorithm = a
		start := time.Now()
		res, err := e.Optimise(ctx, r)
		if err != nil {
			continue
		}
		cb := costmodel.Compute(res.Plan, float64(time.Since(start).Milliseconds()), req.CostModel)
		out = append(out, Comparison{
			Algorithm:  a,
			Plan:       res.Plan,
			ExecMS:     time.Since(start).Milliseconds(),
			Efficiency: res.Plan.Totals.Efficiency,
			Waste:      res.Plan.Totals.TotalWaste,
			Cost:       cb.TotalCost,
			Confidence: res.Selection.Confidence,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Efficiency > out[j].Efficiency })
	if len(out) == 0 {
		return nil, "", cuterr.Internal(req.CorrelationID, "no algorithm in comparison set produced a result")
	}
	return out, out[0].Algorithm, nil
}

// RecordCanary shadow-runs a candidate algorithm against a baseline,
// classifies the deviation between them, and stores the resulting
// canary record.
func (e *Engine) RecordCanary(ctx context.Context, req Request, baselineAlgo, candidateAlgo classify.Algorithm) (canary.Record, error) {
	base := req
	base.Algorithm = baselineAlgo
	baseRes, err := e.Optimise(ctx, base)
	if err != nil {
		return canary.Record{}, err
	}
	cand := req
	cand.Algorithm = candidateAlgo
	candRes, err := e.Optimise(ctx, cand)
	if err != nil {
		return canary.Record{}, err
	}
	bm := canary.Metrics{Efficiency: baseRes.Plan.Totals.Efficiency, WastePct: baseRes.Plan.Totals.WastePct, ExecutionTimeMS: baseRes.Plan.ExecutionTimeMS}
	cm := canary.Metrics{Efficiency: candRes.Plan.Totals.Efficiency, WastePct: candRes.Plan.Totals.WastePct, ExecutionTimeMS: candRes.Plan.ExecutionTimeMS}
	rec := canary.NewRecord(req.CorrelationID, string(candidateAlgo), "", bm, cm)
	e.canaryStore.Add(rec)
	return rec, nil
}
