package kerf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profileopt/cutstock/internal/kerf"
	"github.com/profileopt/cutstock/internal/model"
)

func TestUsableWindow(t *testing.T) {
	k := model.Constraints{StartSafety: 10, EndSafety: 20}
	assert.Equal(t, int64(970), kerf.UsableWindow(1000, k))
}

func TestConsumedLength(t *testing.T) {
	k := model.Constraints{KerfWidth: 3}
	assert.Equal(t, int64(0), kerf.ConsumedLength(100, 0, k))
	assert.Equal(t, int64(100), kerf.ConsumedLength(100, 1, k))
	assert.Equal(t, int64(306), kerf.ConsumedLength(300, 2, k))
}

func TestAdmissible(t *testing.T) {
	k := model.Constraints{KerfWidth: 2, MaxCutsPerStock: 2}

	err := kerf.Admissible("c1", 1000, []int64{400, 400}, k)
	assert.NoError(t, err)

	err = kerf.Admissible("c1", 1000, []int64{400, 400, 400}, k)
	require.Error(t, err)

	err = kerf.Admissible("c1", 100, []int64{400, 400}, k)
	require.Error(t, err)
}

func TestFits(t *testing.T) {
	k := model.Constraints{KerfWidth: 2}

	ok, remaining := kerf.Fits(1000, 0, 0, 400, k)
	assert.True(t, ok)
	assert.Equal(t, int64(600), remaining)

	ok, _ = kerf.Fits(1000, 400, 1, 700, k)
	assert.False(t, ok)

	k.MaxCutsPerStock = 1
	ok, _ = kerf.Fits(1000, 400, 1, 10, k)
	assert.False(t, ok, "max_cuts_per_stock should reject a second placement")
}

func TestValidateConstraints(t *testing.T) {
	cases := []struct {
		name    string
		k       model.Constraints
		minStk  int64
		wantErr bool
	}{
		{"valid", model.Constraints{KerfWidth: 2, StartSafety: 5, EndSafety: 5, MaxWastePct: 10}, 1000, false},
		{"negative kerf", model.Constraints{KerfWidth: -1}, 1000, true},
		{"safeties exceed stock", model.Constraints{KerfWidth: 500, StartSafety: 500, EndSafety: 500}, 1000, true},
		{"waste pct out of range", model.Constraints{MaxWastePct: 150}, 1000, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := kerf.ValidateConstraints("c1", tc.k, tc.minStk)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
