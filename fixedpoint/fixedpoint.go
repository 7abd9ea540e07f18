// Package fixedpoint implements the checked integer arithmetic used by every
// ledger calculation. Amounts are uint64 base units, rates are basis points
// (1/10000) or micro basis points (1/1e10). Floats never enter the ledger;
// decimal values are only accepted at the client boundary.
package fixedpoint

import (
	"math/big"
	"math/bits"

	"github.com/shopspring/decimal"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
)

const (
	BpsDenominator  uint64 = 10_000
	UbpsDenominator uint64 = 10_000_000_000
)

// MulDiv returns a*b/d truncated, computed on 128-bit intermediates.
func MulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, core.ErrCalculationError.Withf("division by zero")
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return 0, core.ErrMathOverflow.Withf("%d*%d/%d", a, b, d)
	}
	q, _ := bits.Div64(hi, lo, d)
	return q, nil
}

// ApplyBps returns amount*bps/10000 truncated.
func ApplyBps(amount, bps uint64) (uint64, error) {
	return MulDiv(amount, bps, BpsDenominator)
}

// Add returns a+b or MathOverflow.
func Add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, core.ErrMathOverflow.Withf("%d+%d", a, b)
	}
	return sum, nil
}

// Sub returns a-b or CalculationError when b > a.
func Sub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, core.ErrCalculationError.Withf("%d-%d underflows", a, b)
	}
	return diff, nil
}

// Mul returns a*b or MathOverflow.
func Mul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, core.ErrMathOverflow.Withf("%d*%d", a, b)
	}
	return lo, nil
}

// Sum adds all values with overflow checking.
func Sum(values ...uint64) (uint64, error) {
	var total uint64
	var err error
	for _, v := range values {
		if total, err = Add(total, v); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// CheckBps rejects a basis-point value above 100%.
func CheckBps(name string, bps uint64) error {
	if bps > BpsDenominator {
		return core.ErrConfigurationOutOfBounds.Withf("%s=%d bps", name, bps)
	}
	return nil
}

var hundred = decimal.NewFromInt(100)

// PercentToBps converts a human percentage (e.g. "2.5") to basis points.
// Precision beyond 0.01% is rejected rather than rounded.
func PercentToBps(pct decimal.Decimal) (uint64, error) {
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return 0, core.ErrConfigurationOutOfBounds.Withf("%s%% outside [0, 100]", pct)
	}
	bps := pct.Mul(hundred)
	if !bps.Equal(bps.Truncate(0)) {
		return 0, core.ErrConfigurationOutOfBounds.Withf("%s%% is finer than 1 bps", pct)
	}
	return uint64(bps.IntPart()), nil
}

// BpsToPercent renders basis points as a percentage.
func BpsToPercent(bps uint64) decimal.Decimal {
	return decimal.NewFromInt(int64(bps)).Div(hundred)
}

// Ratio returns num/den as a decimal with the given precision, or zero when
// den is zero. Used for display values such as LP share price.
func Ratio(num, den uint64, places int32) decimal.Decimal {
	if den == 0 {
		return decimal.Zero
	}
	n := decimal.NewFromBigInt(new(big.Int).SetUint64(num), 0)
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(den), 0)
	return n.DivRound(d, places)
}
