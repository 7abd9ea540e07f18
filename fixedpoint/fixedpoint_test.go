package fixedpoint

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
)

func TestMulDiv(t *testing.T) {
	tests := []struct {
		name    string
		a, b, d uint64
		want    uint64
		wantErr error
	}{
		{"simple", 1000, 250, 10000, 25, nil},
		{"truncates", 999, 1, 10000, 0, nil},
		{"wide intermediate", math.MaxUint64, 5000, 10000, math.MaxUint64 / 2, nil},
		{"overflow", math.MaxUint64, 3, 2, 0, core.ErrMathOverflow},
		{"div zero", 1, 1, 0, 0, core.ErrCalculationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MulDiv(tt.a, tt.b, tt.d)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckedAddSubMul(t *testing.T) {
	_, err := Add(math.MaxUint64, 1)
	assert.ErrorIs(t, err, core.ErrMathOverflow)
	_, err = Sub(1, 2)
	assert.ErrorIs(t, err, core.ErrCalculationError)
	_, err = Mul(math.MaxUint64, 2)
	assert.ErrorIs(t, err, core.ErrMathOverflow)

	s, err := Sum(1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), s)
	_, err = Sum(math.MaxUint64, 0, 1)
	assert.ErrorIs(t, err, core.ErrMathOverflow)
}

func TestPercentToBps(t *testing.T) {
	bps, err := PercentToBps(decimal.RequireFromString("2.5"))
	require.NoError(t, err)
	assert.Equal(t, uint64(250), bps)

	bps, err = PercentToBps(decimal.RequireFromString("100"))
	require.NoError(t, err)
	assert.Equal(t, BpsDenominator, bps)

	_, err = PercentToBps(decimal.RequireFromString("0.005"))
	assert.ErrorIs(t, err, core.ErrConfigurationOutOfBounds)
	_, err = PercentToBps(decimal.RequireFromString("-1"))
	assert.ErrorIs(t, err, core.ErrConfigurationOutOfBounds)
	_, err = PercentToBps(decimal.RequireFromString("100.01"))
	assert.ErrorIs(t, err, core.ErrConfigurationOutOfBounds)

	assert.True(t, BpsToPercent(250).Equal(decimal.RequireFromString("2.5")))
}

func TestRatio(t *testing.T) {
	assert.True(t, Ratio(3, 2, 4).Equal(decimal.RequireFromString("1.5")))
	assert.True(t, Ratio(1, 0, 4).IsZero())
	assert.True(t, Ratio(math.MaxUint64, 1, 0).Equal(decimal.RequireFromString("18446744073709551615")))
}
