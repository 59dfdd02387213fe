package unit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profileopt/cutstock/internal/cuterr"
	"github.com/profileopt/cutstock/internal/unit"
)

func TestToMM(t *testing.T) {
	cases := []struct {
		name   string
		length int64
		unit   unit.Unit
		want   int64
	}{
		{"mm passthrough", 500, unit.MM, 500},
		{"cm scales by 10", 50, unit.CM, 500},
		{"m scales by 1000", 2, unit.M, 2000},
		{"empty unit defaults to mm", 500, "", 500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := unit.ToMM("corr-1", tc.length, tc.unit)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestToMMUnrecognisedUnit(t *testing.T) {
	_, err := unit.ToMM("corr-1", 500, "furlongs")
	require.Error(t, err)
	var cerr *cuterr.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, cuterr.ValidationRejected, cerr.Kind)
}

func TestFromMM(t *testing.T) {
	assert.Equal(t, 500.0, unit.FromMM(500, unit.MM))
	assert.Equal(t, 50.0, unit.FromMM(500, unit.CM))
	assert.Equal(t, 2.0, unit.FromMM(2000, unit.M))
	assert.Equal(t, 0.5, unit.FromMM(500, unit.M))
}

func TestFromMMUnrecognisedUnit(t *testing.T) {
	assert.Equal(t, 500.0, unit.FromMM(500, "furlongs"))
}
