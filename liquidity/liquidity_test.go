package liquidity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
)

func TestSharesForDeposit(t *testing.T) {
	tests := []struct {
		name            string
		amount, reserve uint64
		supply          uint64
		want            uint64
		wantErr         error
	}{
		{"first deposit mints 1:1", 1000, 0, 0, 1000, nil},
		{"first deposit ignores stray reserve", 1000, 50, 0, 1000, nil},
		{"constant ratio", 500, 1000, 1000, 500, nil},
		{"pool in profit mints fewer", 500, 2000, 1000, 250, nil},
		{"truncates toward pool", 1, 3, 2, 0, nil},
		{"zero amount", 0, 10, 10, 0, core.ErrZeroAmount},
		{"empty reserve with supply", 10, 0, 10, 0, core.ErrCalculationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SharesForDeposit(tt.amount, tt.reserve, tt.supply)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestDepositWithdrawRoundTrip verifies that an LP never withdraws more than
// it deposited while the pool is flat, that truncation costs it less than one
// share's worth plus one unit, and that other holders' share price never
// drops. At a share price of one or below the loss is at most one unit.
func TestDepositWithdrawRoundTrip(t *testing.T) {
	pools := []struct{ reserve, supply uint64 }{
		{10_007, 9_001},
		{9_001, 10_007},
		{5_000, 5_000},
	}
	for _, p := range pools {
		for _, amount := range []uint64{1, 7, 999, 12_345, 1 << 40} {
			minted, err := SharesForDeposit(amount, p.reserve, p.supply)
			require.NoError(t, err)

			r2, s2 := p.reserve+amount, p.supply+minted
			back, err := UnderlyingForShares(minted, r2, s2)
			require.NoError(t, err)
			assert.LessOrEqual(t, back, amount)
			assert.LessOrEqual(t, amount-back, p.reserve/p.supply+1)
			if p.reserve <= p.supply {
				assert.LessOrEqual(t, amount-back, uint64(1), "reserve %d supply %d amount %d", p.reserve, p.supply, amount)
			}

			// price(after) >= price(before): r3/s3 >= reserve/supply
			r3, s3 := r2-back, s2-minted
			assert.GreaterOrEqual(t, r3*p.supply, p.reserve*s3)
		}
	}
}

func TestWithdraw(t *testing.T) {
	w, err := Withdraw(500, 2000, 1000, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, Withdrawal{Gross: 1000, Fee: 10, Net: 990}, w)

	_, err = Withdraw(1001, 2000, 1000, 0, 0)
	assert.ErrorIs(t, err, core.ErrInsufficientBalance)

	_, err = Withdraw(500, 2000, 1000, 1500, 0)
	assert.ErrorIs(t, err, core.ErrWithdrawalLimitExceeded)

	w, err = Withdraw(1000, 2000, 1000, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), w.Net, "last LP takes the whole reserve")
}

func TestMaxPayout(t *testing.T) {
	m, err := MaxPayout(10_000, 2_000, 500)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), m)

	m, err = MaxPayout(10, 20, 10000)
	require.NoError(t, err)
	assert.Zero(t, m)
}
