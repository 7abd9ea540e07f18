// Package outcome validates bet vectors. A bet is a list of payout
// multipliers in basis points, one per equally likely outcome: [0, 20000]
// is a coin flip that pays 2x on the second side.
package outcome

import (
	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
	"github.com/whiskylabs/whisky-protocol-core-sub001/fixedpoint"
)

const (
	MinOutcomes = 2
	MaxOutcomes = 100
)

// Bet is a validated multiplier vector.
type Bet []uint32

// Sum returns the total of all multipliers.
func (b Bet) Sum() uint64 {
	var s uint64
	for _, m := range b {
		s += uint64(m)
	}
	return s
}

// MaxMultiplier returns the largest multiplier in bps.
func (b Bet) MaxMultiplier() uint64 {
	var m uint32
	for _, v := range b {
		if v > m {
			m = v
		}
	}
	return uint64(m)
}

// Multiplier returns the multiplier of outcome i.
func (b Bet) Multiplier(i int) uint64 {
	return uint64(b[i])
}

// Weights returns the selection weights of the outcomes.
func (b Bet) Weights() []uint64 {
	w := make([]uint64, len(b))
	for i := range w {
		w[i] = 1
	}
	return w
}

// HouseEdgeBps returns the expected loss per unit wagered, in bps, rounded
// down. Only meaningful once the bet has passed Validate.
func (b Bet) HouseEdgeBps() uint64 {
	n := uint64(len(b))
	return (n*fixedpoint.BpsDenominator - b.Sum()) / n
}

// Validate checks length and house edge. A bet whose expected return
// exceeds the wager is rejected outright.
func (b Bet) Validate(maxHouseEdgeBps uint64) error {
	switch {
	case len(b) < MinOutcomes:
		return core.ErrTooFewOutcomes.Withf("%d outcomes", len(b))
	case len(b) > MaxOutcomes:
		return core.ErrTooManyOutcomes.Withf("%d outcomes", len(b))
	}
	n := uint64(len(b))
	fair := n * fixedpoint.BpsDenominator
	sum := b.Sum()
	if sum > fair {
		return core.ErrInvalidHouseEdge.Withf("expected return %d/%d bps", sum, fair)
	}
	// (fair - sum)/n > maxEdge without losing the remainder.
	if fair-sum > maxHouseEdgeBps*n {
		return core.ErrHouseEdgeTooHigh.Withf("edge %d bps > %d", b.HouseEdgeBps(), maxHouseEdgeBps)
	}
	return nil
}

// PotentialPayout returns the payout of the best outcome for wager.
func (b Bet) PotentialPayout(wager uint64) (uint64, error) {
	return fixedpoint.ApplyBps(wager, b.MaxMultiplier())
}
