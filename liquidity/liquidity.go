// Package liquidity implements LP share accounting for a pool reserve.
// Shares are minted at the constant ratio supply/reserve so every holder's
// claim on the reserve is unchanged by deposits and withdrawals.
package liquidity

import (
	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
	"github.com/whiskylabs/whisky-protocol-core-sub001/fixedpoint"
)

// SharesForDeposit returns the LP shares minted for depositing amount into a
// reserve of reserveBefore backing supply shares.
func SharesForDeposit(amount, reserveBefore, supply uint64) (uint64, error) {
	if amount == 0 {
		return 0, core.ErrZeroAmount
	}
	if supply == 0 {
		return amount, nil
	}
	if reserveBefore == 0 {
		// Outstanding shares with nothing behind them; any ratio is wrong.
		return 0, core.ErrCalculationError.Withf("supply %d backed by empty reserve", supply)
	}
	return fixedpoint.MulDiv(amount, supply, reserveBefore)
}

// UnderlyingForShares returns the reserve amount redeemed by burning shares.
func UnderlyingForShares(shares, reserve, supply uint64) (uint64, error) {
	if shares == 0 {
		return 0, core.ErrZeroAmount
	}
	if shares > supply {
		return 0, core.ErrInsufficientBalance.Withf("burn %d of %d shares", shares, supply)
	}
	return fixedpoint.MulDiv(shares, reserve, supply)
}

// Withdrawal is the split of a redemption.
type Withdrawal struct {
	Gross uint64 // underlying released from the reserve
	Fee   uint64 // kept by the protocol vault
	Net   uint64 // paid to the LP
}

// Withdraw computes the redemption of shares, charging feeBps on the gross
// amount. freeLiquidity is the part of the reserve not reserved for pending
// games.
func Withdraw(shares, reserve, supply, pendingExposure, feeBps uint64) (Withdrawal, error) {
	gross, err := UnderlyingForShares(shares, reserve, supply)
	if err != nil {
		return Withdrawal{}, err
	}
	if gross > reserve {
		return Withdrawal{}, core.ErrInsufficientLiquidity.Withf("withdraw %d from %d", gross, reserve)
	}
	if reserve-gross < pendingExposure {
		return Withdrawal{}, core.ErrWithdrawalLimitExceeded.Withf("reserve %d - %d < pending %d", reserve, gross, pendingExposure)
	}
	fee, err := fixedpoint.ApplyBps(gross, feeBps)
	if err != nil {
		return Withdrawal{}, err
	}
	return Withdrawal{Gross: gross, Fee: fee, Net: gross - fee}, nil
}

// FreeLiquidity returns the reserve not reserved for pending games.
func FreeLiquidity(reserve, pendingExposure uint64) uint64 {
	if pendingExposure >= reserve {
		return 0
	}
	return reserve - pendingExposure
}

// MaxPayout is the largest payout a single game may reserve.
func MaxPayout(reserve, pendingExposure, maxPayoutBps uint64) (uint64, error) {
	return fixedpoint.ApplyBps(FreeLiquidity(reserve, pendingExposure), maxPayoutBps)
}
