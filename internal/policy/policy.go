// Package policy implements the validation policy: rule-based
// pre-checks on input demand/constraint records, where each rule
// carries a fixed severity, confidence and action (auto-fix,
// quarantine, reject), plus a FIFO-bounded quarantine store.
package policy

import (
	"time"

	"github.com/google/uuid"

	"github.com/profileopt/cutstock/internal/model"
)

// Severity is a rule's impact level.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Action is the outcome a rule drives a record toward.
type Action string

const (
	ActionAutoFix    Action = "auto-fix"
	ActionQuarantine Action = "quarantine"
	ActionReject     Action = "reject"
)

// Outcome is the per-record disposition
type Outcome string

const (
	Passed     Outcome = "PASSED"
	AutoFixed  Outcome = "AUTO_FIXED"
	Quarantined Outcome = "QUARANTINED"
	Rejected   Outcome = "REJECTED"
)

// Finding is one rule violation found on a record.
type Finding struct {
	Rule       string
	Severity   Severity
	Action     Action
	Confidence float64
	Message    string
}

// Request is the subset of an optimisation request the policy checks.
type Request struct {
	Demands        model.Demands
	Constraints    model.Constraints
	Unit           string
	DataAgeSeconds float64
}

// DataFreshnessSeconds bounds staleness before the staleness rule
// fires.
const DataFreshnessSeconds = 3600

const recognizedUnit = "mm"

// Evaluate runs the built-in rule set against a request and returns
// every finding plus the overall outcome, applying auto-fixes to a
// copy of the request where possible.
func Evaluate(req Request) (Outcome, []Finding, Request) {
	var findings []Finding
	fixed := req

	for _, d := range req.Demands {
		if d.Quantity <= 0 {
			findings = append(findings, Finding{
				Rule: "non-positive-quantity", Severity: SeverityCritical, Action: ActionReject,
				Confidence: 1.0, Message: "demand quantity must be >= 1",
			})
		}
		if d.Length <= 0 {
			findings = append(findings, Finding{
				Rule: "non-positive-length", Severity: SeverityCritical, Action: ActionReject,
				Confidence: 1.0, Message: "demand length must be > 0",
			})
		}
	}

	if req.Constraints.MaxWastePct < 0 || req.Constraints.MaxWastePct > 100 {
		findings = append(findings, Finding{
			Rule: "waste-pct-range", Severity: SeverityCritical, Action: ActionReject,
			Confidence: 1.0, Message: "max_waste_pct must be within [0,100]",
		})
	}
	if req.Constraints.KerfWidth < 0 {
		findings = append(findings, Finding{
			Rule: "negative-kerf", Severity: SeverityCritical, Action: ActionReject,
			Confidence: 1.0, Message: "kerf_width must be >= 0",
		})
	}

	if req.Unit != "" && req.Unit != recognizedUnit {
		findings = append(findings, Finding{
			Rule: "unit-mismatch", Severity: SeverityHigh, Action: ActionQuarantine,
			Confidence: 0.9, Message: "unit does not match expected base unit",
		})
	}
	if len(req.Demands) == 0 {
		findings = append(findings, Finding{
			Rule: "required-field-missing", Severity: SeverityHigh, Action: ActionQuarantine,
			Confidence: 0.95, Message: "demand list is required and must be non-empty",
		})
	}

	if req.DataAgeSeconds > DataFreshnessSeconds {
		findings = append(findings, Finding{
			Rule: "data-staleness", Severity: SeverityMedium, Action: ActionAutoFix,
			Confidence: 0.7, Message: "input data exceeds freshness window, trimmed to recognised fields only",
		})
		fixed.DataAgeSeconds = 0
	}

	if req.Constraints.StartSafety < 0 || req.Constraints.EndSafety < 0 || req.Constraints.MinScrapLength < 0 {
		findings = append(findings, Finding{
			Rule: "impossible-dimension-triple", Severity: SeverityMedium, Action: ActionQuarantine,
			Confidence: 0.6, Message: "safety/scrap dimensions must be non-negative",
		})
	}

	return outcomeFor(findings), findings, fixed
}

// outcomeFor picks the strictest action present across all findings:
// reject > quarantine > auto-fix > passed.
func outcomeFor(findings []Finding) Outcome {
	if len(findings) == 0 {
		return Passed
	}
	has := map[Action]bool{}
	for _, f := range findings {
		has[f.Action] = true
	}
	switch {
	case has[ActionReject]:
		return Rejected
	case has[ActionQuarantine]:
		return Quarantined
	case has[ActionAutoFix]:
		return AutoFixed
	default:
		return Passed
	}
}

// QuarantineRecord holds the original request, its failing findings,
// and a status lifecycle.
type QuarantineRecord struct {
	ID        string
	Request   Request
	Findings  []Finding
	Status    string // pending -> reviewed -> resolved
	CreatedAt time.Time
}

// QuarantineStore is a FIFO-bounded quarantine store retained for 24h
// or 10000 records, whichever hits first.
type QuarantineStore struct {
	records []QuarantineRecord
	cap     int
	ttl     time.Duration
}

// NewQuarantineStore creates a store with the default retention.
func NewQuarantineStore() *QuarantineStore {
	return &QuarantineStore{cap: 10_000, ttl: 24 * time.Hour}
}

// Add inserts a new quarantine record with status "pending".
func (s *QuarantineStore) Add(req Request, findings []Finding) QuarantineRecord {
	s.evictExpired()
	rec := QuarantineRecord{ID: uuid.NewString(), Request: req, Findings: findings, Status: "pending", CreatedAt: time.Now()}
	s.records = append(s.records, rec)
	if len(s.records) > s.cap {
		s.records = s.records[len(s.records)-s.cap:]
	}
	return rec
}

func (s *QuarantineStore) evictExpired() {
	cutoff := time.Now().Add(-s.ttl)
	i := 0
	for i < len(s.records) && s.records[i].CreatedAt.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.records = s.records[i:]
	}
}

// Transition advances a quarantine record's status along the
// pending -> reviewed -> resolved lifecycle.
func (s *QuarantineStore) Transition(id, status string) bool {
	for i := range s.records {
		if s.records[i].ID == id {
			s.records[i].Status = status
			return true
		}
	}
	return false
}

// Metrics summarises quarantine/rule activity for the facade: the
// total record count, per-outcome counts and per-severity finding
// counts. It carries no rates and no processing times.
type Metrics struct {
	Total       int
	BySeverity  map[Severity]int
	ByOutcome   map[Outcome]int
}

// Summarize aggregates a batch of (outcome, findings) evaluations.
func Summarize(outcomes []Outcome, findingsPerRecord [][]Finding) Metrics {
	m := Metrics{BySeverity: map[Severity]int{}, ByOutcome: map[Outcome]int{}}
	m.Total = len(outcomes)
	for _, o := range outcomes {
		m.ByOutcome[o]++
	}
	for _, fs := range findingsPerRecord {
		for _, f := range fs {
			m.BySeverity[f.Severity]++
		}
	}
	return m
}
