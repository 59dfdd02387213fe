package cuterr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profileopt/cutstock/internal/cuterr"
)

func TestBuildersSetKindAndRecoverable(t *testing.T) {
	cases := []struct {
		name        string
		err         *cuterr.Error
		kind        cuterr.Kind
		recoverable bool
	}{
		{"validation", cuterr.Validation("c1", "bad input"), cuterr.ValidationRejected, false},
		{"constraint", cuterr.Constraint("c1", "too tight"), cuterr.ConstraintViolation, false},
		{"budget", cuterr.Budget("c1", "deadline exceeded"), cuterr.BudgetExceeded, true},
		{"cancelled", cuterr.CancelledErr("c1"), cuterr.Cancelled, true},
		{"internal", cuterr.Internal("c1", "inconsistent state"), cuterr.InternalInconsistency, false},
		{"config", cuterr.Config("c1", "bad config"), cuterr.ConfigError, false},
		{"too busy", cuterr.TooBusyErr("c1"), cuterr.TooBusy, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, tc.err.Kind)
			assert.Equal(t, tc.recoverable, tc.err.Recoverable)
			assert.Equal(t, "c1", tc.err.CorrelationID)
			assert.NotEmpty(t, tc.err.ID)
		})
	}
}

func TestErrorIsSentinelKind(t *testing.T) {
	err := cuterr.Constraint("c1", "kerf too wide")
	assert.True(t, errors.Is(err, cuterr.ConstraintViolation))
	assert.False(t, errors.Is(err, cuterr.Infeasible))
}

func TestErrorAsRecoversStructured(t *testing.T) {
	var wrapped error = cuterr.Validation("c1", "missing field %s", "profile_type")
	var cerr *cuterr.Error
	require.ErrorAs(t, wrapped, &cerr)
	assert.Contains(t, cerr.Message, "profile_type")
}

func TestWithDetailChains(t *testing.T) {
	err := cuterr.Internal("c1", "boom").WithDetail("bar_index", 3)
	assert.Equal(t, 3, err.Details["bar_index"])
}

func TestErrorStringIncludesKindAndMessage(t *testing.T) {
	err := cuterr.Validation("c1", "length must be positive")
	assert.Contains(t, err.Error(), "ValidationRejected")
	assert.Contains(t, err.Error(), "length must be positive")
}
