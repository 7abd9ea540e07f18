// Package settlement holds the pure accounting of a game: the fee split of a
// wager, the payout of a resolved outcome, bonus attribution and the jackpot.
// It moves no funds; the player and oracle handlers apply its results.
package settlement

import (
	"math"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
	"github.com/whiskylabs/whisky-protocol-core-sub001/fixedpoint"
)

// FeeSchedule is the bps of each fee leg charged on a wager.
type FeeSchedule struct {
	CreatorFeeBps uint64
	WhiskyFeeBps  uint64
	PoolFeeBps    uint64
	JackpotFeeBps uint64
}

// Validate rejects schedules whose legs exceed the whole wager.
func (s FeeSchedule) Validate() error {
	total, err := fixedpoint.Sum(s.CreatorFeeBps, s.WhiskyFeeBps, s.PoolFeeBps, s.JackpotFeeBps)
	if err != nil || total > fixedpoint.BpsDenominator {
		return core.ErrInvalidFeeConfiguration.Withf("creator %d + whisky %d + pool %d + jackpot %d bps",
			s.CreatorFeeBps, s.WhiskyFeeBps, s.PoolFeeBps, s.JackpotFeeBps)
	}
	return nil
}

// Fees are the amounts taken out of a wager.
type Fees struct {
	Creator uint64
	Whisky  uint64
	Pool    uint64
	Jackpot uint64
}

// Total is the sum of all legs; never more than the wager they came from.
func (f Fees) Total() uint64 {
	return f.Creator + f.Whisky + f.Pool + f.Jackpot
}

// ComputeFees splits wager in the order creator, whisky, pool, jackpot.
// Each leg truncates independently.
func ComputeFees(wager uint64, s FeeSchedule) (Fees, error) {
	if err := s.Validate(); err != nil {
		return Fees{}, err
	}
	var f Fees
	var err error
	if f.Creator, err = fixedpoint.ApplyBps(wager, s.CreatorFeeBps); err != nil {
		return Fees{}, err
	}
	if f.Whisky, err = fixedpoint.ApplyBps(wager, s.WhiskyFeeBps); err != nil {
		return Fees{}, err
	}
	if f.Pool, err = fixedpoint.ApplyBps(wager, s.PoolFeeBps); err != nil {
		return Fees{}, err
	}
	if f.Jackpot, err = fixedpoint.ApplyBps(wager, s.JackpotFeeBps); err != nil {
		return Fees{}, err
	}
	return f, nil
}

// StakeDistribution routes the escrowed wager at settlement.
type StakeDistribution struct {
	ToCreator uint64
	ToWhisky  uint64
	ToJackpot uint64 // jackpot fee plus the bonus conversion
	ToReserve uint64 // pool fee, the net stake and truncation residue
}

// DistributeStake splits wager across recipients. bonusUsed of the stake is
// converted into jackpot funding at bonusToJackpotRatioBps. The creator,
// whisky and jackpot legs together may not exceed the wager.
func DistributeStake(wager uint64, fees Fees, bonusUsed, bonusToJackpotRatioBps uint64) (StakeDistribution, error) {
	bonusToJackpot, err := fixedpoint.ApplyBps(bonusUsed, bonusToJackpotRatioBps)
	if err != nil {
		return StakeDistribution{}, err
	}
	toJackpot, err := fixedpoint.Add(fees.Jackpot, bonusToJackpot)
	if err != nil {
		return StakeDistribution{}, err
	}
	out, err := fixedpoint.Sum(fees.Creator, fees.Whisky, toJackpot)
	if err != nil {
		return StakeDistribution{}, err
	}
	if out > wager {
		return StakeDistribution{}, core.ErrInvalidFeeConfiguration.Withf(
			"creator %d + whisky %d + jackpot %d exceed wager %d", fees.Creator, fees.Whisky, toJackpot, wager)
	}
	return StakeDistribution{
		ToCreator: fees.Creator,
		ToWhisky:  fees.Whisky,
		ToJackpot: toJackpot,
		ToReserve: wager - out,
	}, nil
}

// Resolution is the outcome of a settled wager.
type Resolution struct {
	Multiplier           uint64
	Payout               uint64
	Profit               int64
	PayoutFromBonusPool  uint64
	PayoutFromNormalPool uint64
}

// Resolve computes payout = wager*multiplier/10000 and attributes it to the
// bonus and normal pools in proportion to how the stake was funded.
func Resolve(wager, multiplierBps, bonusUsed uint64) (Resolution, error) {
	payout, err := fixedpoint.ApplyBps(wager, multiplierBps)
	if err != nil {
		return Resolution{}, err
	}
	if payout > math.MaxInt64 || wager > math.MaxInt64 {
		return Resolution{}, core.ErrMathOverflow.Withf("profit of %d on %d", payout, wager)
	}
	r := Resolution{
		Multiplier: multiplierBps,
		Payout:     payout,
		Profit:     int64(payout) - int64(wager),
	}
	if bonusUsed > wager {
		return Resolution{}, core.ErrCalculationError.Withf("bonus %d exceeds wager %d", bonusUsed, wager)
	}
	if wager > 0 && bonusUsed > 0 {
		if r.PayoutFromBonusPool, err = fixedpoint.MulDiv(payout, bonusUsed, wager); err != nil {
			return Resolution{}, err
		}
	}
	r.PayoutFromNormalPool = payout - r.PayoutFromBonusPool
	return r, nil
}

// JackpotProbability returns the chance, in micro bps, that a game paying
// jackpotFee into a jackpot of jackpotBalance wins it. The chance equals the
// fee's share of the jackpot, capped at certainty.
func JackpotProbability(jackpotFee, jackpotBalance uint64) (uint64, error) {
	if jackpotFee == 0 || jackpotBalance == 0 {
		return 0, nil
	}
	if jackpotFee >= jackpotBalance {
		return fixedpoint.UbpsDenominator, nil
	}
	return fixedpoint.MulDiv(jackpotFee, fixedpoint.UbpsDenominator, jackpotBalance)
}

// JackpotShares is the payout split of a jackpot, in bps.
type JackpotShares struct {
	UserBps    uint64
	CreatorBps uint64
	PoolBps    uint64
	WhiskyBps  uint64
}

// Validate requires the shares to cover exactly the whole jackpot.
func (s JackpotShares) Validate() error {
	total, err := fixedpoint.Sum(s.UserBps, s.CreatorBps, s.PoolBps, s.WhiskyBps)
	if err != nil || total != fixedpoint.BpsDenominator {
		return core.ErrInvalidJackpotConfiguration.Withf("user %d + creator %d + pool %d + whisky %d bps",
			s.UserBps, s.CreatorBps, s.PoolBps, s.WhiskyBps)
	}
	return nil
}

// JackpotSplit is a jackpot payout broken down by recipient.
type JackpotSplit struct {
	User    uint64
	Creator uint64
	Whisky  uint64
	Pool    uint64
}

// Total is the amount leaving the jackpot.
func (j JackpotSplit) Total() uint64 {
	return j.User + j.Creator + j.Whisky + j.Pool
}

// SplitJackpot divides balance. User, creator and whisky shares truncate;
// the pool takes the remainder so the split always sums to balance.
func SplitJackpot(balance uint64, s JackpotShares) (JackpotSplit, error) {
	if err := s.Validate(); err != nil {
		return JackpotSplit{}, err
	}
	var j JackpotSplit
	var err error
	if j.User, err = fixedpoint.ApplyBps(balance, s.UserBps); err != nil {
		return JackpotSplit{}, err
	}
	if j.Creator, err = fixedpoint.ApplyBps(balance, s.CreatorBps); err != nil {
		return JackpotSplit{}, err
	}
	if j.Whisky, err = fixedpoint.ApplyBps(balance, s.WhiskyBps); err != nil {
		return JackpotSplit{}, err
	}
	j.Pool = balance - j.User - j.Creator - j.Whisky
	return j, nil
}
