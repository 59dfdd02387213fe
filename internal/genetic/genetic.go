// Package genetic implements the Genetic Algorithm metaheuristic:
// a permutation chromosome decoded via an order-preserving first fit,
// tournament selection, ordered crossover, swap mutation, and elitism.
// Shaped after a bin-packing GA's chromosome/gene/tournament/decode
// structure, adapted from a 2D guillotine packer to a 1D sequential
// first-fit decoder and from a gene slice to a compact []uint32
// permutation. The decoder must not re-sort by length — only
// placement.Sequential preserves the chromosome's order, which is
// what crossover/mutation/tournament actually search over.
package genetic

import (
	"context"
	"math/rand"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/profileopt/cutstock/internal/model"
	"github.com/profileopt/cutstock/internal/placement"
)

// Config holds GA parameters.
type Config struct {
	PopulationSize        int
	Generations           int
	TournamentSize        int
	EliteCount            int
	ConvergenceThreshold  float64
	ConvergenceWindow     int
	MaxDurationMS         int64
	Seed                  int64
	Workers               int
}

// DefaultConfig returns sensible defaults: population 50, generations 100.
func DefaultConfig() Config {
	return Config{
		PopulationSize:       50,
		Generations:          100,
		TournamentSize:       3,
		EliteCount:           2,
		ConvergenceThreshold: 0.001,
		ConvergenceWindow:    10,
		MaxDurationMS:        10_000,
		Seed:                 1,
		Workers:              1,
	}
}

// FitnessFunc scores a decoded plan; supplied by the caller so genetic
// stays decoupled from internal/scorer's objective wiring.
type FitnessFunc func(model.Plan) float64

// chromosome is a permutation over the expanded piece sequence, stored
// as a compact index array.
type chromosome struct {
	perm    []uint32
	fitness float64
}

// Result is the GA's outcome.
type Result struct {
	Plan      model.Plan
	Partial   bool
	Fitness   float64
	Generations int
}

// Run executes the GA over pieces (all one profile) against menu,
// decoding each chromosome with a sequential (order-preserving) first
// fit, and returns the best plan found. It honours ctx cancellation
// and cfg.MaxDurationMS, returning Partial=true if it stops early.
func Run(ctx context.Context, pieces []model.Piece, menu []model.StockOption, k model.Constraints, cfg Config, fitness FitnessFunc) Result {
	n := len(pieces)
	if n == 0 {
		return Result{}
	}
	if cfg.PopulationSize <= 0 {
		cfg = DefaultConfig()
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	deadline := time.Now().Add(time.Duration(cfg.MaxDurationMS) * time.Millisecond)

	decode := func(c chromosome) model.Plan {
		ordered := make([]model.Piece, n)
		for i, idx := range c.perm {
			ordered[i] = pieces[idx]
		}
		res := placement.Place(placement.Sequential, ordered, menu, k)
		p := model.Plan{Bars: res.Bars, Infeasible: res.Infeasible, Algorithm: "genetic"}
		p.ComputeTotals(k, nil)
		return p
	}

	evaluate := func(c *chromosome) { c.fitness = fitness(decode(*c)) }

	population := initPopulation(rng, pieces, cfg.PopulationSize)
	evalPopulation(ctx, population, evaluate, cfg.Workers)

	bestFitnessHistory := make([]float64, 0, cfg.Generations)
	partial := false
	gen := 0

	for ; gen < cfg.Generations; gen++ {
		if ctx.Err() != nil || time.Now().After(deadline) {
			partial = true
			break
		}

		sort.SliceStable(population, func(i, j int) bool { return population[i].fitness > population[j].fitness })
		bestFitnessHistory = append(bestFitnessHistory, population[0].fitness)

		if converged(bestFitnessHistory, cfg.ConvergenceWindow, cfg.ConvergenceThreshold) {
			break
		}

		next := make([]chromosome, 0, cfg.PopulationSize)
		elite := cfg.EliteCount
		if elite > len(population) {
			elite = len(population)
		}
		for i := 0; i < elite; i++ {
			next = append(next, copyChromosome(population[i]))
		}

		for len(next) < cfg.PopulationSize {
			p1 := tournamentSelect(rng, population, cfg.TournamentSize)
			p2 := tournamentSelect(rng, population, cfg.TournamentSize)
			child := orderCrossover(rng, p1, p2)
			mutate(rng, &child)
			next = append(next, child)
		}

		evalPopulation(ctx, next, evaluate, cfg.Workers)
		population = next
	}

	sort.SliceStable(population, func(i, j int) bool { return population[i].fitness > population[j].fitness })
	best := population[0]
	return Result{Plan: decode(best), Partial: partial, Fitness: best.fitness, Generations: gen}
}

func evalPopulation(ctx context.Context, pop []chromosome, evaluate func(*chromosome), workers int) {
	if workers <= 1 || len(pop) <= 1 {
		for i := range pop {
			evaluate(&pop[i])
		}
		return
	}
	if procs := runtime.GOMAXPROCS(0); workers > procs {
		workers = procs
	}
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range pop {
		i := i
		g.Go(func() error {
			evaluate(&pop[i])
			return nil
		})
	}
	_ = g.Wait()
}

func initPopulation(rng *rand.Rand, pieces []model.Piece, size int) []chromosome {
	n := len(pieces)
	if size <= 0 {
		size = 1
	}
	pop := make([]chromosome, size)
	for i := range pop {
		pop[i] = chromosome{perm: randomPerm(rng, n)}
	}
	// Seed one chromosome with the length-sorted-descending order (the
	// permutation an FFD decode would see), so the GA starts from at
	// least the plain-FFD baseline and never regresses below it.
	ffdOrder := make([]uint32, n)
	for i := range ffdOrder {
		ffdOrder[i] = uint32(i)
	}
	sort.SliceStable(ffdOrder, func(i, j int) bool {
		return pieces[ffdOrder[i]].Length > pieces[ffdOrder[j]].Length
	})
	pop[0] = chromosome{perm: ffdOrder}
	return pop
}

func randomPerm(rng *rand.Rand, n int) []uint32 {
	perm := rng.Perm(n)
	out := make([]uint32, n)
	for i, v := range perm {
		out[i] = uint32(v)
	}
	return out
}

func copyChromosome(c chromosome) chromosome {
	p := make([]uint32, len(c.perm))
	copy(p, c.perm)
	return chromosome{perm: p, fitness: c.fitness}
}

func tournamentSelect(rng *rand.Rand, pop []chromosome, size int) chromosome {
	if size <= 0 || size > len(pop) {
		size = len(pop)
	}
	best := pop[rng.Intn(len(pop))]
	for i := 1; i < size; i++ {
		c := pop[rng.Intn(len(pop))]
		if c.fitness > best.fitness {
			best = c
		}
	}
	return best
}

// orderCrossover implements OX: copy a random slice from parent1,
// fill the rest from parent2 in order, preserving the permutation
// invariant.
func orderCrossover(rng *rand.Rand, p1, p2 chromosome) chromosome {
	n := len(p1.perm)
	child := make([]uint32, n)
	for i := range child {
		child[i] = ^uint32(0)
	}
	a, b := rng.Intn(n), rng.Intn(n)
	if a > b {
		a, b = b, a
	}
	used := make(map[uint32]bool, n)
	for i := a; i <= b; i++ {
		child[i] = p1.perm[i]
		used[p1.perm[i]] = true
	}
	j := 0
	for i := 0; i < n; i++ {
		if j == a {
			j = b + 1
		}
		if j >= n {
			break
		}
		v := p2.perm[i]
		if used[v] {
			continue
		}
		child[j] = v
		j++
	}
	return chromosome{perm: child}
}

// mutate swaps genes with per-gene rate 1/n.
func mutate(rng *rand.Rand, c *chromosome) {
	n := len(c.perm)
	if n == 0 {
		return
	}
	rate := 1.0 / float64(n)
	for i := 0; i < n; i++ {
		if rng.Float64() < rate {
			j := rng.Intn(n)
			c.perm[i], c.perm[j] = c.perm[j], c.perm[i]
		}
	}
}

// converged checks the termination rule: relative fitness
// improvement below threshold over `window` consecutive generations.
func converged(history []float64, window int, threshold float64) bool {
	if len(history) < window+1 {
		return false
	}
	recent := history[len(history)-window-1:]
	base := recent[0]
	if base == 0 {
		return false
	}
	improvement := (recent[len(recent)-1] - base) / absf(base)
	return improvement < threshold
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
