// Package oracle implements the RNG provider instructions. rngSettle reveals
// the seed of a pending game and moves every balance the result implies;
// rngProvideHashedSeed stores the commitment for a player's next game.
package oracle

import (
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
	"github.com/whiskylabs/whisky-protocol-core-sub001/events"
	"github.com/whiskylabs/whisky-protocol-core-sub001/fixedpoint"
	"github.com/whiskylabs/whisky-protocol-core-sub001/outcome"
	"github.com/whiskylabs/whisky-protocol-core-sub001/pda"
	"github.com/whiskylabs/whisky-protocol-core-sub001/rng"
	"github.com/whiskylabs/whisky-protocol-core-sub001/settlement"
	"github.com/whiskylabs/whisky-protocol-core-sub001/vm"
)

func init() {
	vm.Register(core.TxRngSettle, handleSettle)
	vm.Register(core.TxRngProvideHashedSeed, handleProvideHashedSeed)
}

func handleSettle(ctx *vm.Context, payload json.RawMessage) error {
	var p core.RngSettlePayload
	if err := vm.Decode(payload, &p); err != nil {
		return fmt.Errorf("decode rngSettle payload: %w", err)
	}
	cfg, err := ctx.Config()
	if err != nil {
		return err
	}
	if err := vm.RequireRngAuthority(cfg, ctx.Signer()); err != nil {
		return err
	}
	_, game, err := vm.LoadPlayer(ctx, p.User)
	if err != nil {
		return err
	}
	switch game.Status {
	case core.GameStatusNone:
		return core.ErrResultNotRequested
	case core.GameStatusReady:
		return core.ErrDuplicateSettlement.Withf("game %d of %s", game.Nonce, p.User)
	}
	if err := rng.ValidateCommitment(p.NextRngSeedHashed); err != nil {
		return err
	}
	if err := rng.VerifyReveal(p.RngSeed, game.NextRngSeedHashed); err != nil {
		return err
	}
	pool, err := vm.LoadPool(ctx.State, game.Pool)
	if err != nil {
		return err
	}

	bet := outcome.Bet(game.Bet)
	digest := rng.ResultDigest(p.RngSeed, game.ClientSeed, game.Nonce)
	value, err := rng.ResultValue(digest)
	if err != nil {
		return err
	}
	index, err := rng.SelectOutcome(value, bet.Weights())
	if err != nil {
		return err
	}
	res, err := settlement.Resolve(game.Wager, bet.Multiplier(index), game.BonusUsed)
	if err != nil {
		return err
	}

	fees := settlement.Fees{
		Creator: game.CreatorFee,
		Whisky:  game.WhiskyFee,
		Pool:    game.PoolFee,
		Jackpot: game.JackpotFee,
	}
	stake, err := settlement.DistributeStake(game.Wager, fees, game.BonusUsed, cfg.BonusToJackpotRatioBps)
	if err != nil {
		return err
	}
	addrs := poolAccounts(ctx.Addr, pool.Address)
	mint := game.TokenMint
	escrow := ctx.Addr.Player(p.User)
	vault := ctx.Addr.WhiskyState()

	moves := []struct {
		to     solana.PublicKey
		amount uint64
	}{
		{game.Creator, stake.ToCreator},
		{vault, stake.ToWhisky},
		{addrs.Jackpot, stake.ToJackpot},
		{addrs.Reserve, stake.ToReserve},
	}
	for _, m := range moves {
		if err := vm.Transfer(ctx.State, mint, escrow, m.to, m.amount); err != nil {
			return err
		}
	}

	reserve, err := vm.Balance(ctx.State, mint, addrs.Reserve)
	if err != nil {
		return err
	}
	if reserve < res.Payout {
		return core.ErrInsufficientLiquidity.Withf("payout %d from reserve %d", res.Payout, reserve)
	}
	if err := vm.Transfer(ctx.State, mint, addrs.Reserve, escrow, res.Payout); err != nil {
		return err
	}
	if pool.PendingExposure, err = fixedpoint.Sub(pool.PendingExposure, game.MaxPayout); err != nil {
		return core.ErrCalculationError.Withf("release exposure %d of %d", game.MaxPayout, pool.PendingExposure)
	}

	roll, err := rng.JackpotRoll(digest)
	if err != nil {
		return err
	}
	var jackpotResult uint8
	var jackpotToUser uint64
	if rng.JackpotTriggered(roll, game.JackpotProbabilityUbps) {
		jackpotResult = 1
		if jackpotToUser, err = payJackpot(ctx, cfg, game, addrs, escrow); err != nil {
			return err
		}
	}

	game.Status = core.GameStatusReady
	game.RngSeed = p.RngSeed
	game.Result = uint32(index)
	game.Payout = res.Payout
	game.JackpotResult = jackpotResult
	game.JackpotPayout = jackpotToUser
	game.NextRngSeedHashed = p.NextRngSeedHashed
	if err := ctx.State.SetPool(pool); err != nil {
		return err
	}
	if err := ctx.State.SetGame(game); err != nil {
		return err
	}

	ctx.Emit(events.EventGameSettled, events.GameSettled{
		User:                   p.User,
		Pool:                   pool.Address,
		TokenMint:              mint,
		Creator:                game.Creator,
		CreatorFee:             game.CreatorFee,
		WhiskyFee:              game.WhiskyFee,
		PoolFee:                game.PoolFee,
		JackpotFee:             game.JackpotFee,
		UnderlyingUsed:         game.UnderlyingUsed,
		BonusUsed:              game.BonusUsed,
		Wager:                  game.Wager,
		Payout:                 res.Payout,
		Multiplier:             res.Multiplier,
		Result:                 game.Result,
		Profit:                 res.Profit,
		JackpotPayout:          jackpotToUser,
		JackpotProbabilityUbps: game.JackpotProbabilityUbps,
		JackpotResult:          jackpotResult,
		PayoutFromBonusPool:    res.PayoutFromBonusPool,
		PayoutFromNormalPool:   res.PayoutFromNormalPool,
		Nonce:                  game.Nonce,
		ClientSeed:             game.ClientSeed,
		RngSeed:                p.RngSeed,
		NextRngSeedHashed:      p.NextRngSeedHashed,
		Metadata:               game.CreatorMeta,
		PointsAuthority:        game.PointsAuthority,
	})
	return nil
}

func poolAccounts(d *pda.Deriver, pool solana.PublicKey) pda.PoolAddresses {
	return pda.PoolAddresses{
		Pool:    pool,
		Reserve: d.PoolReserve(pool),
		Jackpot: d.PoolJackpot(pool),
	}
}

// payJackpot empties the pool jackpot across its recipients and returns the
// user's share, which lands in escrow.
func payJackpot(ctx *vm.Context, cfg *core.ProtocolConfig, game *core.Game, addrs pda.PoolAddresses, escrow solana.PublicKey) (uint64, error) {
	balance, err := vm.Balance(ctx.State, game.TokenMint, addrs.Jackpot)
	if err != nil {
		return 0, err
	}
	split, err := settlement.SplitJackpot(balance, settlement.JackpotShares{
		UserBps:    cfg.JackpotPayoutToUserBps,
		CreatorBps: cfg.JackpotPayoutToCreatorBps,
		PoolBps:    cfg.JackpotPayoutToPoolBps,
		WhiskyBps:  cfg.JackpotPayoutToWhiskyBps,
	})
	if err != nil {
		return 0, err
	}
	creator := game.Creator
	if creator.IsZero() {
		// No creator on the game: the creator share stays with the pool.
		creator = addrs.Reserve
	}
	moves := []struct {
		to     solana.PublicKey
		amount uint64
	}{
		{escrow, split.User},
		{creator, split.Creator},
		{ctx.Addr.WhiskyState(), split.Whisky},
		{addrs.Reserve, split.Pool},
	}
	for _, m := range moves {
		if err := vm.Transfer(ctx.State, game.TokenMint, addrs.Jackpot, m.to, m.amount); err != nil {
			return 0, err
		}
	}
	return split.User, nil
}

func handleProvideHashedSeed(ctx *vm.Context, payload json.RawMessage) error {
	var p core.RngProvideHashedSeedPayload
	if err := vm.Decode(payload, &p); err != nil {
		return fmt.Errorf("decode rngProvideHashedSeed payload: %w", err)
	}
	cfg, err := ctx.Config()
	if err != nil {
		return err
	}
	if err := vm.RequireRngAuthority(cfg, ctx.Signer()); err != nil {
		return err
	}
	player, game, err := vm.LoadPlayer(ctx, p.User)
	if err != nil {
		return err
	}
	if game.Status == core.GameStatusResultRequested {
		return core.ErrGameInProgress
	}
	if err := rng.ValidateCommitment(p.NextRngSeedHashed); err != nil {
		return err
	}
	game.NextRngSeedHashed = p.NextRngSeedHashed
	if err := ctx.State.SetGame(game); err != nil {
		return err
	}
	ctx.Emit(events.EventSeedCommitted, events.SeedCommitted{
		User:       p.User,
		Nonce:      player.Nonce,
		Commitment: p.NextRngSeedHashed,
	})
	return nil
}
