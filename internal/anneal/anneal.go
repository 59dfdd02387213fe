// Package anneal implements the Simulated Annealing metaheuristic: an
// FFD-order-seeded permutation search, decoded with an order-
// preserving first fit and explored with geometric cooling and
// Metropolis acceptance. The cooling-schedule and acceptance-
// probability shape is adapted from energy-minimization over atomic
// coordinates to fitness-maximization over a cut-piece permutation.
// The decode step must not re-sort the permutation — only
// placement.Sequential preserves what the swap-neighbour move
// actually searches over.
package anneal

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/profileopt/cutstock/internal/model"
	"github.com/profileopt/cutstock/internal/placement"
)

// Config holds SA parameters.
type Config struct {
	Alpha           float64 // geometric cooling rate, default 0.995
	MinTemperature  float64 // stop when T < this, default 1e-4
	MaxIterations   int
	MaxDurationMS   int64
	Seed            int64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Alpha:          0.995,
		MinTemperature: 1e-4,
		MaxIterations:  10_000,
		MaxDurationMS:  10_000,
		Seed:           1,
	}
}

// FitnessFunc scores a decoded plan; higher is better.
type FitnessFunc func(model.Plan) float64

// Result is the SA's outcome.
type Result struct {
	Plan       model.Plan
	Partial    bool
	Fitness    float64
	Iterations int
}

// Run executes simulated annealing over pieces (all one profile)
// against menu, starting from the FFD-order permutation, honouring
// ctx cancellation and cfg.MaxDurationMS
func Run(ctx context.Context, pieces []model.Piece, menu []model.StockOption, k model.Constraints, cfg Config, fitness FitnessFunc) Result {
	n := len(pieces)
	if n == 0 {
		return Result{}
	}
	if cfg.Alpha <= 0 || cfg.Alpha >= 1 {
		cfg = DefaultConfig()
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	deadline := time.Now().Add(time.Duration(cfg.MaxDurationMS) * time.Millisecond)

	decode := func(perm []int) model.Plan {
		ordered := make([]model.Piece, n)
		for i, idx := range perm {
			ordered[i] = pieces[idx]
		}
		res := placement.Place(placement.Sequential, ordered, menu, k)
		p := model.Plan{Bars: res.Bars, Infeasible: res.Infeasible, Algorithm: "simulated-annealing"}
		p.ComputeTotals(k, nil)
		return p
	}

	current := ffdOrderPerm(pieces)
	currentFitness := fitness(decode(current))

	best := clonePerm(current)
	bestFitness := currentFitness

	t0 := initialTemperature(rng, pieces, menu, k, fitness, current, currentFitness)
	temperature := t0

	iter := 0
	partial := false
	for ; iter < cfg.MaxIterations; iter++ {
		if temperature < cfg.MinTemperature {
			break
		}
		if ctx.Err() != nil || time.Now().After(deadline) {
			partial = true
			break
		}

		candidate := clonePerm(current)
		swapTwo(rng, candidate)
		candidateFitness := fitness(decode(candidate))

		delta := candidateFitness - currentFitness
		if delta >= 0 || rng.Float64() < math.Exp(delta/temperature) {
			current = candidate
			currentFitness = candidateFitness
			if currentFitness > bestFitness {
				best = clonePerm(current)
				bestFitness = currentFitness
			}
		}

		temperature *= cfg.Alpha
	}

	return Result{Plan: decode(best), Partial: partial, Fitness: bestFitness, Iterations: iter}
}

// initialTemperature picks T0 so the first 100 trial moves accept
// roughly 80% uphill.
func initialTemperature(rng *rand.Rand, pieces []model.Piece, menu []model.StockOption, k model.Constraints, fitness FitnessFunc, current []int, currentFitness float64) float64 {
	const samples = 100
	const targetAcceptance = 0.8

	decode := func(perm []int) model.Plan {
		n := len(pieces)
		ordered := make([]model.Piece, n)
		for i, idx := range perm {
			ordered[i] = pieces[idx]
		}
		res := placement.Place(placement.Sequential, ordered, menu, k)
		p := model.Plan{Bars: res.Bars, Infeasible: res.Infeasible}
		p.ComputeTotals(k, nil)
		return p
	}

	var worseDeltas []float64
	base := currentFitness
	for i := 0; i < samples; i++ {
		cand := clonePerm(current)
		swapTwo(rng, cand)
		f := fitness(decode(cand))
		if f < base {
			worseDeltas = append(worseDeltas, base-f)
		}
	}
	if len(worseDeltas) == 0 {
		return 1.0
	}
	var avg float64
	for _, d := range worseDeltas {
		avg += d
	}
	avg /= float64(len(worseDeltas))
	if avg <= 0 {
		return 1.0
	}
	// exp(-avg/T) = targetAcceptance  =>  T = -avg / ln(targetAcceptance)
	return -avg / math.Log(targetAcceptance)
}

// ffdOrderPerm returns the permutation that sorts pieces descending
// by length (stable), i.e. the order an FFD decode would see. Seeding
// the search here means SA starts from at least the plain-FFD
// baseline and explores real neighbours of it via swapTwo.
func ffdOrderPerm(pieces []model.Piece) []int {
	p := make([]int, len(pieces))
	for i := range p {
		p[i] = i
	}
	sort.SliceStable(p, func(i, j int) bool { return pieces[p[i]].Length > pieces[p[j]].Length })
	return p
}

func clonePerm(p []int) []int {
	out := make([]int, len(p))
	copy(out, p)
	return out
}

func swapTwo(rng *rand.Rand, p []int) {
	if len(p) < 2 {
		return
	}
	i := rng.Intn(len(p))
	j := rng.Intn(len(p))
	p[i], p[j] = p[j], p[i]
}
