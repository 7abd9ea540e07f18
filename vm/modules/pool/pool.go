// Package pool implements liquidity pool instructions: creation, LP deposits
// and withdrawals, bonus token minting and the two configuration paths.
package pool

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
	"github.com/whiskylabs/whisky-protocol-core-sub001/events"
	"github.com/whiskylabs/whisky-protocol-core-sub001/fixedpoint"
	"github.com/whiskylabs/whisky-protocol-core-sub001/liquidity"
	"github.com/whiskylabs/whisky-protocol-core-sub001/vm"
)

func init() {
	vm.Register(core.TxPoolInitialize, handleInitialize)
	vm.Register(core.TxPoolDeposit, handleDeposit)
	vm.Register(core.TxPoolWithdraw, handleWithdraw)
	vm.Register(core.TxPoolMintBonusTokens, handleMintBonusTokens)
	vm.Register(core.TxPoolAuthorityConfig, handleAuthorityConfig)
	vm.Register(core.TxPoolWhiskyConfig, handleWhiskyConfig)
}

func handleInitialize(ctx *vm.Context, payload json.RawMessage) error {
	var p core.PoolInitializePayload
	if err := vm.Decode(payload, &p); err != nil {
		return fmt.Errorf("decode poolInitialize payload: %w", err)
	}
	cfg, err := ctx.Config()
	if err != nil {
		return err
	}
	if err := vm.RequireFeature(cfg, cfg.PoolCreationAllowed, core.ErrPoolCreationNotAllowed); err != nil {
		return err
	}
	if p.UnderlyingTokenMint.IsZero() {
		return core.ErrMissingAccount.Withf("underlying_token_mint")
	}
	// A private pool is created by its own authority.
	if !p.PoolAuthority.IsZero() && !p.PoolAuthority.Equals(ctx.Signer()) {
		return core.ErrInvalidAuthority.Withf("private pool must be created by %s", p.PoolAuthority)
	}

	addrs := ctx.Addr.PoolSet(p.UnderlyingTokenMint, p.PoolAuthority)
	if _, err := ctx.State.GetPool(addrs.Pool); err == nil {
		return core.ErrPoolAlreadyExists.Withf("%s", addrs.Pool)
	} else if !errors.Is(err, core.ErrNotFound) {
		return err
	}

	if err := vm.Transfer(ctx.State, core.NativeMint, ctx.Signer(), ctx.Addr.WhiskyState(), cfg.PoolCreationFee); err != nil {
		return err
	}
	if err := vm.CreateMint(ctx.State, addrs.LPMint, addrs.Pool); err != nil {
		return err
	}
	if err := vm.CreateMint(ctx.State, addrs.BonusMint, addrs.Pool); err != nil {
		return err
	}
	pool := &core.Pool{
		Address:             addrs.Pool,
		PoolAuthority:       p.PoolAuthority,
		UnderlyingTokenMint: p.UnderlyingTokenMint,
		LookupAddress:       p.LookupAddress,
	}
	if err := ctx.State.SetPool(pool); err != nil {
		return err
	}
	ctx.Emit(events.EventPoolInitialized, events.PoolInitialized{
		Pool:          pool.Address,
		TokenMint:     pool.UnderlyingTokenMint,
		PoolAuthority: pool.PoolAuthority,
		Creator:       ctx.Signer(),
	})
	return nil
}

func handleDeposit(ctx *vm.Context, payload json.RawMessage) error {
	var p core.PoolDepositPayload
	if err := vm.Decode(payload, &p); err != nil {
		return fmt.Errorf("decode poolDeposit payload: %w", err)
	}
	cfg, err := ctx.Config()
	if err != nil {
		return err
	}
	if err := vm.RequireFeature(cfg, cfg.PoolDepositAllowed, core.ErrPoolDepositNotAllowed); err != nil {
		return err
	}
	pool, err := vm.LoadPool(ctx.State, p.Pool)
	if err != nil {
		return err
	}
	if pool.Paused {
		return core.ErrPoolPaused
	}
	if p.Amount == 0 {
		return core.ErrZeroAmount
	}
	if pool.DepositWhitelistRequired && !ctx.Signer().Equals(pool.DepositWhitelistAddress) {
		return core.ErrWhitelistCheckFailed.Withf("%s", ctx.Signer())
	}

	mint := pool.UnderlyingTokenMint
	reserveAddr := ctx.Addr.PoolReserve(pool.Address)
	lpMint := ctx.Addr.PoolLPMint(pool.Address)
	reserve, err := vm.Balance(ctx.State, mint, reserveAddr)
	if err != nil {
		return err
	}
	post, err := fixedpoint.Add(reserve, p.Amount)
	if err != nil {
		return err
	}
	if pool.DepositLimit && post > pool.DepositLimitAmount {
		return core.ErrDepositLimitExceeded.Withf("%d > %d", post, pool.DepositLimitAmount)
	}
	supply, err := vm.Supply(ctx.State, lpMint)
	if err != nil {
		return err
	}
	shares, err := liquidity.SharesForDeposit(p.Amount, reserve, supply)
	if err != nil {
		return err
	}
	if shares == 0 {
		return core.ErrZeroAmount.Withf("deposit of %d mints no shares", p.Amount)
	}

	if err := vm.Transfer(ctx.State, mint, ctx.Signer(), reserveAddr, p.Amount); err != nil {
		return err
	}
	if err := vm.MintTo(ctx.State, lpMint, ctx.Signer(), shares); err != nil {
		return err
	}
	pool.LiquidityCheckpoint = post
	if err := ctx.State.SetPool(pool); err != nil {
		return err
	}
	ctx.Emit(events.EventPoolChange, events.PoolChange{
		User:          ctx.Signer(),
		Pool:          pool.Address,
		TokenMint:     mint,
		Action:        events.PoolDeposit,
		Amount:        p.Amount,
		PostLiquidity: post,
		LpSupply:      supply + shares,
	})
	return nil
}

func handleWithdraw(ctx *vm.Context, payload json.RawMessage) error {
	var p core.PoolWithdrawPayload
	if err := vm.Decode(payload, &p); err != nil {
		return fmt.Errorf("decode poolWithdraw payload: %w", err)
	}
	cfg, err := ctx.Config()
	if err != nil {
		return err
	}
	if err := vm.RequireFeature(cfg, cfg.PoolWithdrawAllowed, core.ErrPoolWithdrawNotAllowed); err != nil {
		return err
	}
	pool, err := vm.LoadPool(ctx.State, p.Pool)
	if err != nil {
		return err
	}

	mint := pool.UnderlyingTokenMint
	reserveAddr := ctx.Addr.PoolReserve(pool.Address)
	lpMint := ctx.Addr.PoolLPMint(pool.Address)
	reserve, err := vm.Balance(ctx.State, mint, reserveAddr)
	if err != nil {
		return err
	}
	supply, err := vm.Supply(ctx.State, lpMint)
	if err != nil {
		return err
	}
	w, err := liquidity.Withdraw(p.Amount, reserve, supply, pool.PendingExposure, cfg.PoolWithdrawFeeBps)
	if err != nil {
		return err
	}

	if err := vm.Burn(ctx.State, lpMint, ctx.Signer(), p.Amount); err != nil {
		return err
	}
	if err := vm.Transfer(ctx.State, mint, reserveAddr, ctx.Signer(), w.Net); err != nil {
		return err
	}
	if err := vm.Transfer(ctx.State, mint, reserveAddr, ctx.Addr.WhiskyState(), w.Fee); err != nil {
		return err
	}
	post := reserve - w.Gross
	pool.LiquidityCheckpoint = post
	if err := ctx.State.SetPool(pool); err != nil {
		return err
	}
	ctx.Emit(events.EventPoolChange, events.PoolChange{
		User:          ctx.Signer(),
		Pool:          pool.Address,
		TokenMint:     mint,
		Action:        events.PoolWithdraw,
		Amount:        w.Net,
		PostLiquidity: post,
		LpSupply:      supply - p.Amount,
	})
	return nil
}

func handleMintBonusTokens(ctx *vm.Context, payload json.RawMessage) error {
	var p core.PoolMintBonusTokensPayload
	if err := vm.Decode(payload, &p); err != nil {
		return fmt.Errorf("decode poolMintBonusTokens payload: %w", err)
	}
	if _, err := ctx.Config(); err != nil {
		return err
	}
	pool, err := vm.LoadPool(ctx.State, p.Pool)
	if err != nil {
		return err
	}
	if pool.CustomBonusToken {
		return core.ErrFeatureDisabled.Withf("pool %s uses a custom bonus token", pool.Address)
	}
	if pool.Paused {
		return core.ErrPoolPaused
	}
	if p.Amount == 0 {
		return core.ErrZeroAmount
	}
	if err := vm.Transfer(ctx.State, pool.UnderlyingTokenMint, ctx.Signer(), ctx.Addr.PoolBonusUnderlying(pool.Address), p.Amount); err != nil {
		return err
	}
	if err := vm.MintTo(ctx.State, ctx.Addr.PoolBonusMint(pool.Address), ctx.Signer(), p.Amount); err != nil {
		return err
	}
	ctx.Emit(events.EventBonusMinted, events.BonusMinted{User: ctx.Signer(), Pool: pool.Address, Amount: p.Amount})
	return nil
}

// poolAuthority is the key allowed to change a pool's limits. Public pools
// defer to the protocol authority.
func poolAuthority(cfg *core.ProtocolConfig, pool *core.Pool) solana.PublicKey {
	if pool.PoolAuthority.IsZero() {
		return cfg.Authority
	}
	return pool.PoolAuthority
}

func handleAuthorityConfig(ctx *vm.Context, payload json.RawMessage) error {
	var p core.PoolAuthorityConfigPayload
	if err := vm.Decode(payload, &p); err != nil {
		return fmt.Errorf("decode poolAuthorityConfig payload: %w", err)
	}
	cfg, err := ctx.Config()
	if err != nil {
		return err
	}
	pool, err := vm.LoadPool(ctx.State, p.Pool)
	if err != nil {
		return err
	}
	if auth := poolAuthority(cfg, pool); !ctx.Signer().Equals(auth) {
		return core.ErrInvalidAuthority.Withf("pool %s is administered by %s", pool.Address, auth)
	}
	if p.DepositWhitelistRequired && p.DepositWhitelistAddress.IsZero() {
		return core.ErrConfigurationOutOfBounds.Withf("whitelist required without an address")
	}
	pool.MinWager = p.MinWager
	pool.DepositLimit = p.DepositLimit
	pool.DepositLimitAmount = p.DepositLimitAmount
	pool.DepositWhitelistRequired = p.DepositWhitelistRequired
	pool.DepositWhitelistAddress = p.DepositWhitelistAddress
	if err := ctx.State.SetPool(pool); err != nil {
		return err
	}
	ctx.Emit(events.EventPoolConfigured, events.PoolConfigured{Pool: pool})
	return nil
}

func handleWhiskyConfig(ctx *vm.Context, payload json.RawMessage) error {
	var p core.PoolWhiskyConfigPayload
	if err := vm.Decode(payload, &p); err != nil {
		return fmt.Errorf("decode poolWhiskyConfig payload: %w", err)
	}
	cfg, err := ctx.Config()
	if err != nil {
		return err
	}
	if err := vm.RequireAuthority(cfg, ctx.Signer()); err != nil {
		return err
	}
	pool, err := vm.LoadPool(ctx.State, p.Pool)
	if err != nil {
		return err
	}
	overrides := []struct {
		name string
		v    uint64
	}{
		{"custom_pool_fee_bps", p.CustomPoolFeeBps},
		{"custom_whisky_fee_bps", p.CustomWhiskyFeeBps},
		{"custom_max_payout_bps", p.CustomMaxPayoutBps},
		{"custom_max_creator_fee_bps", p.CustomMaxCreatorFeeBps},
	}
	for _, o := range overrides {
		if err := fixedpoint.CheckBps(o.name, o.v); err != nil {
			return err
		}
	}
	if p.CustomBonusToken && p.CustomBonusTokenMint.IsZero() {
		return core.ErrConfigurationOutOfBounds.Withf("custom bonus token without a mint")
	}

	pool.AntiSpamFeeExempt = p.AntiSpamFeeExempt
	pool.CustomPoolFee = p.CustomPoolFee
	pool.CustomPoolFeeBps = p.CustomPoolFeeBps
	pool.CustomWhiskyFee = p.CustomWhiskyFee
	pool.CustomWhiskyFeeBps = p.CustomWhiskyFeeBps
	pool.CustomMaxPayout = p.CustomMaxPayout
	pool.CustomMaxPayoutBps = p.CustomMaxPayoutBps
	pool.CustomMaxCreatorFee = p.CustomMaxCreatorFee
	pool.CustomMaxCreatorFeeBps = p.CustomMaxCreatorFeeBps
	pool.CustomBonusToken = p.CustomBonusToken
	pool.CustomBonusTokenMint = p.CustomBonusTokenMint
	pool.Paused = p.Paused
	if err := ctx.State.SetPool(pool); err != nil {
		return err
	}
	ctx.Emit(events.EventPoolConfigured, events.PoolConfigured{Pool: pool})
	return nil
}
