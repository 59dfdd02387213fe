// Package classify implements the workload classifier and algorithm
// selector: workload-size buckets, entropy-based complexity,
// selection policy with fallback chains, and an append-only selection
// log ring buffer. Logging uses k8s.io/klog/v2, the way a Kubernetes
// descheduler logs its scheduling decisions.
package classify

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/profileopt/cutstock/internal/cuterr"
	"github.com/profileopt/cutstock/internal/model"
	"github.com/profileopt/cutstock/internal/placement"
)

// WorkloadClass buckets by expanded piece count.
type WorkloadClass string

const (
	Tiny   WorkloadClass = "tiny"
	Small  WorkloadClass = "small"
	Medium WorkloadClass = "medium"
	Large  WorkloadClass = "large"
	XLarge WorkloadClass = "xlarge"
)

// Classify buckets a workload by its expanded piece count.
func Classify(pieceCount int) WorkloadClass {
	switch {
	case pieceCount <= 25:
		return Tiny
	case pieceCount <= 100:
		return Small
	case pieceCount <= 500:
		return Medium
	case pieceCount <= 2000:
		return Large
	default:
		return XLarge
	}
}

// Complexity computes the normalised Shannon entropy of the piece-
// length distribution, in [0,1].
func Complexity(pieces []model.Piece) float64 {
	if len(pieces) == 0 {
		return 0
	}
	counts := make(map[int64]int, len(pieces))
	for _, p := range pieces {
		counts[p.Length]++
	}
	if len(counts) <= 1 {
		return 0
	}
	n := float64(len(pieces))
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

// Algorithm is a recognised placement/metaheuristic algorithm tag.
type Algorithm string

const (
	AlgoFFD           Algorithm = "ffd"
	AlgoBFD           Algorithm = "bfd"
	AlgoNFD           Algorithm = "nfd"
	AlgoWFD           Algorithm = "wfd"
	AlgoGenetic       Algorithm = "genetic"
	AlgoSA            Algorithm = "simulated-annealing"
	AlgoBranchAndBound Algorithm = "branch-and-bound"
	AlgoProfilePooling Algorithm = "profile-pooling"
)

// defaultPolicy is the primary/fallback algorithm table per workload class.
var defaultPolicy = map[WorkloadClass]struct {
	Primary  Algorithm
	Fallback []Algorithm
}{
	Tiny:   {Primary: AlgoBranchAndBound, Fallback: []Algorithm{AlgoBFD, AlgoFFD}},
	Small:  {Primary: AlgoBFD, Fallback: []Algorithm{AlgoFFD}},
	Medium: {Primary: AlgoGenetic, Fallback: []Algorithm{AlgoBFD, AlgoFFD}},
	Large:  {Primary: AlgoSA, Fallback: []Algorithm{AlgoBFD, AlgoFFD}},
	XLarge: {Primary: AlgoFFD, Fallback: []Algorithm{AlgoNFD}},
}

// Candidate is one algorithm option the selector considered.
type Candidate struct {
	Algorithm   Algorithm
	EstDuration time.Duration
	EstQuality  float64
	EstMemory   int64
	Confidence  float64
}

// Selection is the outcome of SelectAlgorithm.
type Selection struct {
	Chosen     Algorithm
	Fallback   []Algorithm
	Reason     string
	Confidence float64
	Candidates []Candidate
}

// SelectionOptions lets the caller override the default policy: an
// explicit request always wins over the policy table.
type SelectionOptions struct {
	Explicit     Algorithm
	PreferQuality bool
	PreferSpeed   bool
}

// SelectAlgorithm applies the selection policy for a workload class,
// honouring explicit overrides and prefer_quality/prefer_speed swaps.
func SelectAlgorithm(class WorkloadClass, opts SelectionOptions, candidates []Candidate) Selection {
	if opts.Explicit != "" {
		return Selection{Chosen: opts.Explicit, Reason: "explicit user request", Confidence: 1.0, Candidates: candidates}
	}

	policy := defaultPolicy[class]
	chosen := policy.Primary
	reason := "default policy for workload class " + string(class)

	primary := findCandidate(candidates, chosen)
	if primary != nil {
		if opts.PreferQuality {
			if better := betterQuality(candidates, primary, 0.05); better != nil {
				chosen = better.Algorithm
				reason = "prefer_quality: candidate has ≥5% higher estimated quality"
			}
		}
		if opts.PreferSpeed {
			if faster := betterSpeed(candidates, primary, 0.20); faster != nil {
				chosen = faster.Algorithm
				reason = "prefer_speed: candidate is ≥20% faster"
			}
		}
	}

	confidence := 0.8
	if c := findCandidate(candidates, chosen); c != nil {
		confidence = c.Confidence
	}

	return Selection{Chosen: chosen, Fallback: policy.Fallback, Reason: reason, Confidence: confidence, Candidates: candidates}
}

func findCandidate(cs []Candidate, a Algorithm) *Candidate {
	for i := range cs {
		if cs[i].Algorithm == a {
			return &cs[i]
		}
	}
	return nil
}

func betterQuality(cs []Candidate, base *Candidate, margin float64) *Candidate {
	for i := range cs {
		if cs[i].Algorithm == base.Algorithm {
			continue
		}
		if base.EstQuality > 0 && cs[i].EstQuality >= base.EstQuality*(1+margin) {
			return &cs[i]
		}
	}
	return nil
}

func betterSpeed(cs []Candidate, base *Candidate, margin float64) *Candidate {
	for i := range cs {
		if cs[i].Algorithm == base.Algorithm {
			continue
		}
		if base.EstDuration > 0 && cs[i].EstDuration <= time.Duration(float64(base.EstDuration)*(1-margin)) {
			return &cs[i]
		}
	}
	return nil
}

// PlacementKind maps an Algorithm tag to the placement.Kind it decodes
// to, for the constructive heuristics only.
func PlacementKind(a Algorithm) (placement.Kind, bool) {
	switch a {
	case AlgoFFD:
		return placement.FFD, true
	case AlgoBFD:
		return placement.BFD, true
	case AlgoNFD:
		return placement.NFD, true
	case AlgoWFD:
		return placement.WFD, true
	default:
		return "", false
	}
}

// Log is the selection-log record.
type Log struct {
	ID                string
	CorrelationID     string
	WorkloadClass     WorkloadClass
	WorkloadSize      int
	WorkloadComplexity float64
	Candidates        []Candidate
	Chosen            Algorithm
	Reason            string
	Confidence        float64
	ActualDuration    time.Duration
	ActualQuality     float64
	ActualMemory      int64
	Fallback          bool
	CreatedAt         time.Time
}

// Store is an append-only ring buffer of selection logs, retained for
// 7 days or 10000 entries, whichever hits first. It is indexed by id,
// not a map that grows unbounded; eviction is O(1).
type Store struct {
	entries []Log
	index   map[string]int
	head    int
	size    int
	cap     int
	ttl     time.Duration
}

// NewStore creates a selection-log store with the default retention
// (10000 entries / 7 days).
func NewStore() *Store {
	return &Store{
		entries: make([]Log, 10_000),
		index:   make(map[string]int, 10_000),
		cap:     10_000,
		ttl:     7 * 24 * time.Hour,
	}
}

// Create appends a new selection log entry and returns it.
func (s *Store) Create(correlationID string, class WorkloadClass, size int, complexity float64, sel Selection) Log {
	log := Log{
		ID:                 uuid.NewString(),
		CorrelationID:      correlationID,
		WorkloadClass:      class,
		WorkloadSize:       size,
		WorkloadComplexity: complexity,
		Candidates:         sel.Candidates,
		Chosen:             sel.Chosen,
		Reason:             sel.Reason,
		Confidence:         sel.Confidence,
		CreatedAt:          time.Now(),
	}

	slot := s.head
	if old := s.entries[slot]; old.ID != "" {
		delete(s.index, old.ID)
	}
	s.entries[slot] = log
	s.index[log.ID] = slot
	s.head = (s.head + 1) % s.cap
	if s.size < s.cap {
		s.size++
	}

	klog.V(1).InfoS("selection made", "correlationID", correlationID, "workloadClass", class, "chosen", sel.Chosen, "reason", sel.Reason)
	return log
}

// Update records actual outcomes against a previously created log.
func (s *Store) Update(id string, duration time.Duration, quality float64, memory int64, fallback bool) bool {
	idx, ok := s.index[id]
	if !ok {
		return false
	}
	s.entries[idx].ActualDuration = duration
	s.entries[idx].ActualQuality = quality
	s.entries[idx].ActualMemory = memory
	s.entries[idx].Fallback = fallback
	return true
}

// Get fetches a single log by id.
func (s *Store) Get(id string) (Log, bool) {
	idx, ok := s.index[id]
	if !ok {
		return Log{}, false
	}
	e := s.entries[idx]
	s.evictExpired()
	if _, stillThere := s.index[id]; !stillThere {
		return Log{}, false
	}
	return e, true
}

// evictExpired drops entries older than the TTL, keeping eviction O(1)
// amortised by only inspecting the oldest (tail) slots.
func (s *Store) evictExpired() {
	cutoff := time.Now().Add(-s.ttl)
	for s.size > 0 {
		tail := (s.head - s.size + s.cap) % s.cap
		e := s.entries[tail]
		if e.ID == "" || e.CreatedAt.After(cutoff) {
			break
		}
		delete(s.index, e.ID)
		s.entries[tail] = Log{}
		s.size--
	}
}

// Distribution returns counts of chosen algorithms across all live entries.
func (s *Store) Distribution() map[Algorithm]int {
	s.evictExpired()
	out := make(map[Algorithm]int)
	for i := 0; i < s.size; i++ {
		idx := (s.head - s.size + i + s.cap) % s.cap
		e := s.entries[idx]
		if e.ID == "" {
			continue
		}
		out[e.Chosen]++
	}
	return out
}

// Trend aggregates selection-log entries within the trailing window
// (matching /\d+[hmd]/), returning per-algorithm counts.
func (s *Store) Trend(window string) (map[Algorithm]int, error) {
	d, err := parseWindow(window)
	if err != nil {
		return nil, err
	}
	s.evictExpired()
	cutoff := time.Now().Add(-d)
	out := make(map[Algorithm]int)
	for i := 0; i < s.size; i++ {
		idx := (s.head - s.size + i + s.cap) % s.cap
		e := s.entries[idx]
		if e.ID == "" || e.CreatedAt.Before(cutoff) {
			continue
		}
		out[e.Chosen]++
	}
	return out, nil
}

// parseWindow parses a trend window like "24h", "7d", "30m" into a
// duration.
func parseWindow(window string) (time.Duration, error) {
	if len(window) < 2 {
		return 0, cuterr.Validation("", fmt.Sprintf("invalid trend window %q", window))
	}
	unit := window[len(window)-1]
	numPart := window[:len(window)-1]
	n, err := strconv.Atoi(numPart)
	if err != nil || n <= 0 {
		return 0, cuterr.Validation("", fmt.Sprintf("invalid trend window %q", window))
	}
	switch unit {
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	default:
		return 0, cuterr.Validation("", fmt.Sprintf("invalid trend window unit %q", window))
	}
}
