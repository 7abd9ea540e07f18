package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
)

// TestResolveCoinFlip is the two-outcome scenario: wager 1000 on [0, 20000]
// landing on index 1 pays 2000 for a profit of 1000.
func TestResolveCoinFlip(t *testing.T) {
	bet := []uint32{0, 20000}
	r, err := Resolve(1000, uint64(bet[1]), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), r.Payout)
	assert.Equal(t, int64(1000), r.Profit)
	assert.Equal(t, uint64(2000), r.PayoutFromNormalPool)

	r, err = Resolve(1000, uint64(bet[0]), 0)
	require.NoError(t, err)
	assert.Zero(t, r.Payout)
	assert.Equal(t, int64(-1000), r.Profit)
}

func TestResolveBonusAttribution(t *testing.T) {
	r, err := Resolve(1000, 15000, 400)
	require.NoError(t, err)
	assert.Equal(t, uint64(1500), r.Payout)
	assert.Equal(t, uint64(600), r.PayoutFromBonusPool)
	assert.Equal(t, uint64(900), r.PayoutFromNormalPool)

	_, err = Resolve(100, 10000, 101)
	assert.ErrorIs(t, err, core.ErrCalculationError)
}

// TestFeesNeverExceedWager checks creator+whisky+pool+jackpot <= wager for
// every schedule whose legs sum to at most 10000 bps.
func TestFeesNeverExceedWager(t *testing.T) {
	legs := []uint64{0, 1, 33, 250, 2500, 3333, 10000}
	wagers := []uint64{0, 1, 7, 999, 1_000_003, 1 << 62}
	for _, c := range legs {
		for _, w := range legs {
			for _, p := range legs {
				for _, j := range legs {
					s := FeeSchedule{c, w, p, j}
					if c+w+p+j > 10000 {
						_, err := ComputeFees(1000, s)
						assert.ErrorIs(t, err, core.ErrInvalidFeeConfiguration)
						continue
					}
					for _, wager := range wagers {
						f, err := ComputeFees(wager, s)
						require.NoError(t, err)
						assert.LessOrEqual(t, f.Total(), wager)
					}
				}
			}
		}
	}
}

func TestComputeFeesOrderAndTruncation(t *testing.T) {
	f, err := ComputeFees(999, FeeSchedule{CreatorFeeBps: 100, WhiskyFeeBps: 250, PoolFeeBps: 100, JackpotFeeBps: 50})
	require.NoError(t, err)
	assert.Equal(t, Fees{Creator: 9, Whisky: 24, Pool: 9, Jackpot: 4}, f)
}

func TestDistributeStake(t *testing.T) {
	fees := Fees{Creator: 10, Whisky: 20, Pool: 30, Jackpot: 5}
	d, err := DistributeStake(1000, fees, 200, 500)
	require.NoError(t, err)
	assert.Equal(t, StakeDistribution{ToCreator: 10, ToWhisky: 20, ToJackpot: 15, ToReserve: 955}, d)
	assert.Equal(t, uint64(1000), d.ToCreator+d.ToWhisky+d.ToJackpot+d.ToReserve)

	// 9900 bps of fees is a valid schedule, but the bonus conversion on top
	// of it no longer fits in the wager.
	heavy := Fees{Whisky: 10, Pool: 10, Jackpot: 970}
	_, err = DistributeStake(1000, heavy, 1000, 1000)
	assert.ErrorIs(t, err, core.ErrInvalidFeeConfiguration)
	d, err = DistributeStake(1000, heavy, 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), d.ToReserve)
}

// TestJackpotConfiguration covers the {5000,1000,3000,1000} split and a
// split that does not cover the whole jackpot.
func TestJackpotConfiguration(t *testing.T) {
	ok := JackpotShares{UserBps: 5000, CreatorBps: 1000, PoolBps: 3000, WhiskyBps: 1000}
	require.NoError(t, ok.Validate())

	bad := ok
	bad.PoolBps = 2999
	assert.ErrorIs(t, bad.Validate(), core.ErrInvalidJackpotConfiguration)
	bad.PoolBps = 3001
	assert.ErrorIs(t, bad.Validate(), core.ErrInvalidJackpotConfiguration)

	_, err := SplitJackpot(100, bad)
	assert.ErrorIs(t, err, core.ErrInvalidJackpotConfiguration)
}

func TestSplitJackpotSumsToBalance(t *testing.T) {
	s := JackpotShares{UserBps: 5000, CreatorBps: 1000, PoolBps: 3000, WhiskyBps: 1000}
	for _, bal := range []uint64{0, 1, 9, 10_001, 123_456_789} {
		j, err := SplitJackpot(bal, s)
		require.NoError(t, err)
		assert.Equal(t, bal, j.Total())
	}
	j, err := SplitJackpot(10_009, s)
	require.NoError(t, err)
	assert.Equal(t, JackpotSplit{User: 5004, Creator: 1000, Whisky: 1000, Pool: 3005}, j)
}

func TestJackpotProbability(t *testing.T) {
	p, err := JackpotProbability(5, 0)
	require.NoError(t, err)
	assert.Zero(t, p)

	p, err = JackpotProbability(1, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000_000), p)

	p, err = JackpotProbability(2000, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000_000_000), p)
}
