// Package player implements the player lifecycle: opening the player and
// game accounts, placing a wager, claiming escrowed winnings and closing.
package player

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/gagliardetto/solana-go"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
	"github.com/whiskylabs/whisky-protocol-core-sub001/events"
	"github.com/whiskylabs/whisky-protocol-core-sub001/liquidity"
	"github.com/whiskylabs/whisky-protocol-core-sub001/outcome"
	"github.com/whiskylabs/whisky-protocol-core-sub001/rng"
	"github.com/whiskylabs/whisky-protocol-core-sub001/settlement"
	"github.com/whiskylabs/whisky-protocol-core-sub001/vm"
)

// MaxMetadataLen bounds the creator metadata stored with a game.
const MaxMetadataLen = 200

func init() {
	vm.Register(core.TxPlayerInitialize, handleInitialize)
	vm.Register(core.TxPlayGame, handlePlayGame)
	vm.Register(core.TxPlayerClaim, handleClaim)
	vm.Register(core.TxPlayerClose, handleClose)
}

func handleInitialize(ctx *vm.Context, payload json.RawMessage) error {
	var p core.PlayerInitializePayload
	if err := vm.Decode(payload, &p); err != nil {
		return fmt.Errorf("decode playerInitialize payload: %w", err)
	}
	user := ctx.Signer()
	addr := ctx.Addr.Player(user)
	if _, err := ctx.State.GetPlayer(addr); err == nil {
		return core.ErrPlayerAlreadyInitialized.Withf("%s", user)
	} else if !errors.Is(err, core.ErrNotFound) {
		return err
	}
	if err := ctx.State.SetPlayer(&core.Player{
		Address:   addr,
		User:      user,
		CreatedAt: ctx.Now(),
	}); err != nil {
		return err
	}
	if err := ctx.State.SetGame(&core.Game{
		Address: ctx.Addr.Game(user),
		User:    user,
		Status:  core.GameStatusNone,
	}); err != nil {
		return err
	}
	ctx.Emit(events.EventPlayerInitialized, events.PlayerInitialized{User: user, Player: addr})
	return nil
}

// ValidateMetadata bounds creator metadata to MaxMetadataLen bytes of UTF-8.
func ValidateMetadata(meta string) error {
	if len(meta) > MaxMetadataLen {
		return core.ErrInvalidMetadata.Withf("%d bytes", len(meta))
	}
	if !utf8.ValidString(meta) {
		return core.ErrInvalidMetadata.Withf("not utf-8")
	}
	return nil
}

func handlePlayGame(ctx *vm.Context, payload json.RawMessage) error {
	var p core.PlayGamePayload
	if err := vm.Decode(payload, &p); err != nil {
		return fmt.Errorf("decode playGame payload: %w", err)
	}
	cfg, err := ctx.Config()
	if err != nil {
		return err
	}
	if err := vm.RequireFeature(cfg, cfg.PlayingAllowed, core.ErrPlayingNotAllowed); err != nil {
		return err
	}
	user := ctx.Signer()
	player, game, err := vm.LoadPlayer(ctx, user)
	if err != nil {
		return err
	}
	if game.Status == core.GameStatusResultRequested {
		return core.ErrGameInProgress
	}
	if game.NextRngSeedHashed.IsZero() {
		return core.ErrHashedSeedNotProvided
	}
	pool, err := vm.LoadPool(ctx.State, p.Pool)
	if err != nil {
		return err
	}
	if pool.Paused {
		return core.ErrPoolPaused
	}
	mint := pool.UnderlyingTokenMint
	escrow := ctx.Addr.Player(user)

	// The escrow is tracked per mint; unclaimed winnings in another mint
	// would be stranded by the new game.
	if game.Status == core.GameStatusReady && !game.TokenMint.Equals(mint) {
		left, err := vm.Balance(ctx.State, game.TokenMint, escrow)
		if err != nil {
			return err
		}
		if left > 0 {
			return core.ErrUnclaimedBalance.Withf("%d of %s", left, game.TokenMint)
		}
	}

	if err := ValidateMetadata(p.Metadata); err != nil {
		return err
	}
	if err := rng.ValidateClientSeed(p.ClientSeed); err != nil {
		return err
	}
	bet := outcome.Bet(p.Bet)
	if err := bet.Validate(cfg.MaxHouseEdgeBps); err != nil {
		return err
	}
	if p.Wager == 0 || p.Wager < pool.MinWager {
		return core.ErrWagerTooLow.Withf("%d < %d", p.Wager, pool.MinWager)
	}
	if p.CreatorFeeBps > pool.MaxCreatorFeeBps(cfg) {
		return core.ErrCreatorFeeTooHigh.Withf("%d > %d bps", p.CreatorFeeBps, pool.MaxCreatorFeeBps(cfg))
	}
	if p.CreatorFeeBps > 0 && p.Creator.IsZero() {
		return core.ErrCreatorFeeTooHigh.Withf("creator fee without a creator")
	}
	fees, err := settlement.ComputeFees(p.Wager, settlement.FeeSchedule{
		CreatorFeeBps: p.CreatorFeeBps,
		WhiskyFeeBps:  pool.WhiskyFeeBps(cfg),
		PoolFeeBps:    pool.PoolFeeBps(cfg),
		JackpotFeeBps: p.JackpotFeeBps,
	})
	if err != nil {
		return err
	}

	reserve, err := vm.Balance(ctx.State, mint, ctx.Addr.PoolReserve(pool.Address))
	if err != nil {
		return err
	}
	maxPayout, err := liquidity.MaxPayout(reserve, pool.PendingExposure, pool.MaxPayoutBps(cfg))
	if err != nil {
		return err
	}
	if p.Wager > maxPayout {
		return core.ErrWagerTooHigh.Withf("%d > %d", p.Wager, maxPayout)
	}
	potential, err := bet.PotentialPayout(p.Wager)
	if err != nil {
		return err
	}
	if potential > maxPayout {
		return core.ErrMaxPayoutExceeded.Withf("%d > %d", potential, maxPayout)
	}

	if !pool.AntiSpamFeeExempt {
		if err := vm.Transfer(ctx.State, core.NativeMint, user, ctx.Addr.WhiskyState(), cfg.AntiSpamFee); err != nil {
			return err
		}
	}

	bonusUsed, err := spendBonus(ctx, pool, user, escrow, p.Wager)
	if err != nil {
		return err
	}
	// Reject stakes that could never be distributed at settlement.
	if _, err := settlement.DistributeStake(p.Wager, fees, bonusUsed, cfg.BonusToJackpotRatioBps); err != nil {
		return err
	}
	underlyingUsed := p.Wager - bonusUsed
	if err := vm.Transfer(ctx.State, mint, user, escrow, underlyingUsed); err != nil {
		return err
	}

	jackpotBalance, err := vm.Balance(ctx.State, mint, ctx.Addr.PoolJackpot(pool.Address))
	if err != nil {
		return err
	}
	probability, err := settlement.JackpotProbability(fees.Jackpot, jackpotBalance)
	if err != nil {
		return err
	}

	if player.Nonce == math.MaxUint64 {
		return core.ErrMathOverflow.Withf("player nonce")
	}
	if pool.PendingExposure > math.MaxUint64-potential {
		return core.ErrMathOverflow.Withf("pending exposure")
	}
	pool.PendingExposure += potential
	pool.Plays++

	*game = core.Game{
		Address:                game.Address,
		Nonce:                  player.Nonce,
		User:                   user,
		TokenMint:              mint,
		Pool:                   pool.Address,
		Status:                 core.GameStatusResultRequested,
		NextRngSeedHashed:      game.NextRngSeedHashed,
		Timestamp:              ctx.Now(),
		Creator:                p.Creator,
		CreatorMeta:            p.Metadata,
		Wager:                  p.Wager,
		UnderlyingUsed:         underlyingUsed,
		BonusUsed:              bonusUsed,
		CreatorFee:             fees.Creator,
		WhiskyFee:              fees.Whisky,
		PoolFee:                fees.Pool,
		JackpotFee:             fees.Jackpot,
		JackpotProbabilityUbps: probability,
		ClientSeed:             p.ClientSeed,
		Bet:                    append([]uint32(nil), p.Bet...),
		MaxPayout:              potential,
		PointsAuthority:        p.PointsAuthority,
	}
	player.Nonce++

	if err := ctx.State.SetPool(pool); err != nil {
		return err
	}
	if err := ctx.State.SetPlayer(player); err != nil {
		return err
	}
	if err := ctx.State.SetGame(game); err != nil {
		return err
	}
	ctx.Emit(events.EventGameStarted, events.GameStarted{
		User:       user,
		Pool:       pool.Address,
		TokenMint:  mint,
		Nonce:      game.Nonce,
		Wager:      game.Wager,
		Bet:        game.Bet,
		ClientSeed: game.ClientSeed,
		Commitment: game.NextRngSeedHashed,
	})
	return nil
}

// spendBonus consumes up to wager of the user's bonus tokens and moves the
// matching underlying from the pool's bonus backing into escrow. Only backed
// bonus is spent: custom bonus tokens are redeemable up to whatever underlying
// has been transferred to the backing account, the rest stays with the user.
func spendBonus(ctx *vm.Context, pool *core.Pool, user, escrow solana.PublicKey, wager uint64) (uint64, error) {
	bonusMint := ctx.Addr.PoolBonusMint(pool.Address)
	if pool.CustomBonusToken {
		bonusMint = pool.CustomBonusTokenMint
	}
	held, err := vm.Balance(ctx.State, bonusMint, user)
	if err != nil {
		return 0, err
	}
	if held == 0 {
		return 0, nil
	}
	backing := ctx.Addr.PoolBonusUnderlying(pool.Address)
	available, err := vm.Balance(ctx.State, pool.UnderlyingTokenMint, backing)
	if err != nil {
		return 0, err
	}
	used := min(held, wager, available)
	if used == 0 {
		return 0, nil
	}
	if pool.CustomBonusToken {
		// Custom bonus tokens are issued off-ledger; spent ones go to the pool.
		err = vm.Transfer(ctx.State, bonusMint, user, pool.Address, used)
	} else {
		err = vm.Burn(ctx.State, bonusMint, user, used)
	}
	if err != nil {
		return 0, err
	}
	if err := vm.Transfer(ctx.State, pool.UnderlyingTokenMint, backing, escrow, used); err != nil {
		return 0, err
	}
	return used, nil
}

func handleClaim(ctx *vm.Context, payload json.RawMessage) error {
	var p core.PlayerClaimPayload
	if err := vm.Decode(payload, &p); err != nil {
		return fmt.Errorf("decode playerClaim payload: %w", err)
	}
	user := ctx.Signer()
	_, game, err := vm.LoadPlayer(ctx, user)
	if err != nil {
		return err
	}
	switch game.Status {
	case core.GameStatusResultRequested:
		return core.ErrGameNotSettled
	case core.GameStatusNone:
		return core.ErrCannotClaim
	}
	escrow := ctx.Addr.Player(user)
	amount, err := vm.Balance(ctx.State, game.TokenMint, escrow)
	if err != nil {
		return err
	}
	if err := vm.Transfer(ctx.State, game.TokenMint, escrow, user, amount); err != nil {
		return err
	}
	game.Status = core.GameStatusNone
	if err := ctx.State.SetGame(game); err != nil {
		return err
	}
	ctx.Emit(events.EventPlayerClaimed, events.PlayerClaimed{User: user, TokenMint: game.TokenMint, Amount: amount})
	return nil
}

func handleClose(ctx *vm.Context, payload json.RawMessage) error {
	var p core.PlayerClosePayload
	if err := vm.Decode(payload, &p); err != nil {
		return fmt.Errorf("decode playerClose payload: %w", err)
	}
	user := ctx.Signer()
	player, game, err := vm.LoadPlayer(ctx, user)
	if err != nil {
		return err
	}
	if game.Status == core.GameStatusResultRequested {
		return core.ErrGameInProgress
	}
	if !game.TokenMint.IsZero() {
		left, err := vm.Balance(ctx.State, game.TokenMint, player.Address)
		if err != nil {
			return err
		}
		if left > 0 {
			return core.ErrUnclaimedBalance.Withf("%d of %s", left, game.TokenMint)
		}
	}
	if err := ctx.State.DeleteGame(game.Address); err != nil {
		return err
	}
	if err := ctx.State.DeletePlayer(player.Address); err != nil {
		return err
	}
	ctx.Emit(events.EventPlayerClosed, events.PlayerClosed{User: user})
	return nil
}
