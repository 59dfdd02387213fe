package policy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profileopt/cutstock/internal/model"
	"github.com/profileopt/cutstock/internal/policy"
)

func validRequest() policy.Request {
	return policy.Request{
		Demands: model.Demands{{ProfileType: "P", Length: 100, Quantity: 1}},
		Unit:    "mm",
	}
}

func TestEvaluatePassesCleanRequest(t *testing.T) {
	outcome, findings, _ := policy.Evaluate(validRequest())
	assert.Equal(t, policy.Passed, outcome)
	assert.Empty(t, findings)
}

func TestEvaluateRejectsNonPositiveQuantity(t *testing.T) {
	req := validRequest()
	req.Demands = model.Demands{{ProfileType: "P", Length: 100, Quantity: 0}}
	outcome, findings, _ := policy.Evaluate(req)
	assert.Equal(t, policy.Rejected, outcome)
	require.Len(t, findings, 1)
	assert.Equal(t, "non-positive-quantity", findings[0].Rule)
}

func TestEvaluateRejectsWastePctOutOfRange(t *testing.T) {
	req := validRequest()
	req.Constraints.MaxWastePct = 150
	outcome, _, _ := policy.Evaluate(req)
	assert.Equal(t, policy.Rejected, outcome)
}

func TestEvaluateQuarantinesUnitMismatch(t *testing.T) {
	req := validRequest()
	req.Unit = "in"
	outcome, findings, _ := policy.Evaluate(req)
	assert.Equal(t, policy.Quarantined, outcome)
	require.Len(t, findings, 1)
	assert.Equal(t, policy.ActionQuarantine, findings[0].Action)
}

func TestEvaluateQuarantinesEmptyDemands(t *testing.T) {
	req := validRequest()
	req.Demands = nil
	outcome, _, _ := policy.Evaluate(req)
	assert.Equal(t, policy.Quarantined, outcome)
}

func TestEvaluateAutoFixesStaleData(t *testing.T) {
	req := validRequest()
	req.DataAgeSeconds = policy.DataFreshnessSeconds + 1
	outcome, findings, fixed := policy.Evaluate(req)
	assert.Equal(t, policy.AutoFixed, outcome)
	require.Len(t, findings, 1)
	assert.Equal(t, 0.0, fixed.DataAgeSeconds)
}

func TestEvaluateStrictestActionWins(t *testing.T) {
	req := validRequest()
	req.DataAgeSeconds = policy.DataFreshnessSeconds + 1 // auto-fix
	req.Unit = "in"                                      // quarantine
	req.Demands = model.Demands{{ProfileType: "P", Length: 0, Quantity: 1}} // reject
	outcome, _, _ := policy.Evaluate(req)
	assert.Equal(t, policy.Rejected, outcome)
}

func TestQuarantineStoreAddAndTransition(t *testing.T) {
	s := policy.NewQuarantineStore()
	rec := s.Add(validRequest(), []policy.Finding{{Rule: "unit-mismatch"}})
	require.NotEmpty(t, rec.ID)
	assert.Equal(t, "pending", rec.Status)

	ok := s.Transition(rec.ID, "reviewed")
	assert.True(t, ok)

	ok = s.Transition("nonexistent", "reviewed")
	assert.False(t, ok)
}

func TestSummarize(t *testing.T) {
	outcomes := []policy.Outcome{policy.Passed, policy.Rejected, policy.Rejected}
	findings := [][]policy.Finding{
		{},
		{{Severity: policy.SeverityCritical}},
		{{Severity: policy.SeverityCritical}, {Severity: policy.SeverityHigh}},
	}
	m := policy.Summarize(outcomes, findings)
	assert.Equal(t, 3, m.Total)
	assert.Equal(t, 2, m.ByOutcome[policy.Rejected])
	assert.Equal(t, 2, m.BySeverity[policy.SeverityCritical])
	assert.Equal(t, 1, m.BySeverity[policy.SeverityHigh])
}
