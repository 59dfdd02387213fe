// Package canary implements shadow-run comparison between a baseline
// and a candidate algorithm: it records both sets of metrics, computes
// deviation, and classifies the outcome as success/warning/failure.
package canary

import (
	"time"

	"github.com/google/uuid"
)

// Status is the canary outcome classification.
type Status string

const (
	Success Status = "success"
	Warning Status = "warning"
	Failure Status = "failure"
)

// Metrics is the subset of plan totals a canary compares.
type Metrics struct {
	Efficiency      float64
	WastePct        float64
	ExecutionTimeMS int64
	Cost            float64
}

// Deviation captures the relative change of candidate vs baseline for
// each compared metric, positive meaning the candidate's value is
// higher: worse for waste, time and cost, better for efficiency.
type Deviation struct {
	EfficiencyPct float64
	WastePct      float64
	TimePct       float64
	CostPct       float64
}

// Record is a stored canary comparison, keyed by correlation id with
// an explicit RecordedAt instant.
type Record struct {
	ID            string
	CorrelationID string
	Algorithm     string
	WorkloadClass string
	Baseline      Metrics
	Candidate     Metrics
	Deviation     Deviation
	Status        Status
	RecordedAt    time.Time
}

// thresholds for classification.
const (
	warnEfficiencyDropPct = 2.0  // candidate efficiency below baseline by more than this => warning
	failEfficiencyDropPct = 5.0  // => failure
	warnTimeIncreasePct   = 50.0 // candidate much slower => warning
	failTimeIncreasePct   = 200.0
)

// Classify computes the deviation between baseline and candidate and
// assigns a Status.
func Classify(baseline, candidate Metrics) (Deviation, Status) {
	d := Deviation{
		EfficiencyPct: pctChange(baseline.Efficiency, candidate.Efficiency),
		WastePct:      pctChange(baseline.WastePct, candidate.WastePct),
		TimePct:       pctChange(float64(baseline.ExecutionTimeMS), float64(candidate.ExecutionTimeMS)),
		CostPct:       pctChange(baseline.Cost, candidate.Cost),
	}

	efficiencyDrop := -d.EfficiencyPct // negative change = drop
	status := Success
	switch {
	case efficiencyDrop >= failEfficiencyDropPct || d.TimePct >= failTimeIncreasePct:
		status = Failure
	case efficiencyDrop >= warnEfficiencyDropPct || d.TimePct >= warnTimeIncreasePct:
		status = Warning
	}
	return d, status
}

// pctChange returns 100*(candidate-baseline)/baseline, or 0 if
// baseline is zero (avoids a division-by-zero on degenerate plans).
func pctChange(baseline, candidate float64) float64 {
	if baseline == 0 {
		return 0
	}
	return 100 * (candidate - baseline) / baseline
}

// NewRecord builds a canary record by classifying the supplied metrics.
func NewRecord(correlationID, algorithm, workloadClass string, baseline, candidate Metrics) Record {
	dev, status := Classify(baseline, candidate)
	return Record{
		ID:            uuid.NewString(),
		CorrelationID: correlationID,
		Algorithm:     algorithm,
		WorkloadClass: workloadClass,
		Baseline:      baseline,
		Candidate:     candidate,
		Deviation:     dev,
		Status:        status,
		RecordedAt:    time.Now(),
	}
}

// Store is a FIFO-bounded canary record store, retained to 1000
// entries.
type Store struct {
	records []Record
	cap     int
}

// NewStore creates a canary store with the default retention.
func NewStore() *Store {
	return &Store{cap: 1000}
}

// Add appends a record, evicting the oldest entry once capacity is reached.
func (s *Store) Add(r Record) {
	s.records = append(s.records, r)
	if len(s.records) > s.cap {
		s.records = s.records[len(s.records)-s.cap:]
	}
}

// ByCorrelationID returns all records sharing a correlation id, in
// RecordedAt order (insertion order, since Add only appends).
func (s *Store) ByCorrelationID(id string) []Record {
	var out []Record
	for _, r := range s.records {
		if r.CorrelationID == id {
			out = append(out, r)
		}
	}
	return out
}

// Recent returns the n most recently added records, n<=0 meaning all.
func (s *Store) Recent(n int) []Record {
	if n <= 0 || n >= len(s.records) {
		out := make([]Record, len(s.records))
		copy(out, s.records)
		return out
	}
	out := make([]Record, n)
	copy(out, s.records[len(s.records)-n:])
	return out
}
