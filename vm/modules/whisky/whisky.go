// Package whisky implements the protocol-level instructions: creating the
// singleton configuration, handing over authority, updating parameters and
// sweeping accrued protocol fees.
package whisky

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
	"github.com/whiskylabs/whisky-protocol-core-sub001/events"
	"github.com/whiskylabs/whisky-protocol-core-sub001/fixedpoint"
	"github.com/whiskylabs/whisky-protocol-core-sub001/settlement"
	"github.com/whiskylabs/whisky-protocol-core-sub001/vm"
)

func init() {
	vm.Register(core.TxWhiskyInitialize, handleInitialize)
	vm.Register(core.TxWhiskySetAuthority, handleSetAuthority)
	vm.Register(core.TxWhiskySetConfig, handleSetConfig)
	vm.Register(core.TxDistributeFees, handleDistributeFees)
}

// InitialConfig is the configuration written by whiskyInitialize. Every
// feature starts disabled until the authority configures the protocol.
func InitialConfig(authority solana.PublicKey) *core.ProtocolConfig {
	return &core.ProtocolConfig{
		Authority:              authority,
		JackpotPayoutToUserBps: fixedpoint.BpsDenominator,
	}
}

func handleInitialize(ctx *vm.Context, payload json.RawMessage) error {
	var p core.WhiskyInitializePayload
	if err := vm.Decode(payload, &p); err != nil {
		return fmt.Errorf("decode whiskyInitialize payload: %w", err)
	}
	_, err := ctx.State.GetConfig()
	if err == nil {
		return core.ErrAlreadyInitialized
	}
	if !errors.Is(err, core.ErrNotFound) {
		return err
	}
	cfg := InitialConfig(ctx.Signer())
	if err := ctx.State.SetConfig(cfg); err != nil {
		return err
	}
	ctx.Emit(events.EventInitialized, events.ConfigSet{Config: cfg})
	return nil
}

func handleSetAuthority(ctx *vm.Context, payload json.RawMessage) error {
	var p core.WhiskySetAuthorityPayload
	if err := vm.Decode(payload, &p); err != nil {
		return fmt.Errorf("decode whiskySetAuthority payload: %w", err)
	}
	cfg, err := ctx.Config()
	if err != nil {
		return err
	}
	if err := vm.RequireAuthority(cfg, ctx.Signer()); err != nil {
		return err
	}
	if p.Authority.IsZero() {
		return core.ErrInvalidAuthority.Withf("new authority must be set")
	}
	prev := cfg.Authority
	cfg.Authority = p.Authority
	if err := ctx.State.SetConfig(cfg); err != nil {
		return err
	}
	ctx.Emit(events.EventAuthority, events.AuthoritySet{Previous: prev, Current: p.Authority})
	return nil
}

// ValidateConfig checks every bound a protocol configuration must satisfy.
func ValidateConfig(p *core.WhiskySetConfigPayload) error {
	bps := []struct {
		name string
		v    uint64
	}{
		{"whisky_fee_bps", p.WhiskyFeeBps},
		{"max_creator_fee_bps", p.MaxCreatorFeeBps},
		{"max_house_edge_bps", p.MaxHouseEdgeBps},
		{"default_pool_fee_bps", p.DefaultPoolFeeBps},
		{"max_payout_bps", p.MaxPayoutBps},
		{"pool_withdraw_fee_bps", p.PoolWithdrawFeeBps},
		{"bonus_to_jackpot_ratio_bps", p.BonusToJackpotRatioBps},
		{"jackpot_payout_to_user_bps", p.JackpotPayoutToUserBps},
		{"jackpot_payout_to_creator_bps", p.JackpotPayoutToCreatorBps},
		{"jackpot_payout_to_pool_bps", p.JackpotPayoutToPoolBps},
		{"jackpot_payout_to_whisky_bps", p.JackpotPayoutToWhiskyBps},
	}
	for _, b := range bps {
		if err := fixedpoint.CheckBps(b.name, b.v); err != nil {
			return err
		}
	}
	// The fee legs every play pays before any jackpot fee.
	if err := (settlement.FeeSchedule{
		CreatorFeeBps: p.MaxCreatorFeeBps,
		WhiskyFeeBps:  p.WhiskyFeeBps,
		PoolFeeBps:    p.DefaultPoolFeeBps,
	}).Validate(); err != nil {
		return err
	}
	return settlement.JackpotShares{
		UserBps:    p.JackpotPayoutToUserBps,
		CreatorBps: p.JackpotPayoutToCreatorBps,
		PoolBps:    p.JackpotPayoutToPoolBps,
		WhiskyBps:  p.JackpotPayoutToWhiskyBps,
	}.Validate()
}

func handleSetConfig(ctx *vm.Context, payload json.RawMessage) error {
	var p core.WhiskySetConfigPayload
	if err := vm.Decode(payload, &p); err != nil {
		return fmt.Errorf("decode whiskySetConfig payload: %w", err)
	}
	cfg, err := ctx.Config()
	if err != nil {
		return err
	}
	if err := vm.RequireAuthority(cfg, ctx.Signer()); err != nil {
		return err
	}
	if err := ValidateConfig(&p); err != nil {
		return err
	}

	cfg.RngAddress = p.RngAddress
	cfg.RngAddress2 = p.RngAddress2
	cfg.WhiskyFeeBps = p.WhiskyFeeBps
	cfg.MaxCreatorFeeBps = p.MaxCreatorFeeBps
	cfg.PoolCreationFee = p.PoolCreationFee
	cfg.AntiSpamFee = p.AntiSpamFee
	cfg.MaxHouseEdgeBps = p.MaxHouseEdgeBps
	cfg.DefaultPoolFeeBps = p.DefaultPoolFeeBps
	cfg.JackpotPayoutToUserBps = p.JackpotPayoutToUserBps
	cfg.JackpotPayoutToCreatorBps = p.JackpotPayoutToCreatorBps
	cfg.JackpotPayoutToPoolBps = p.JackpotPayoutToPoolBps
	cfg.JackpotPayoutToWhiskyBps = p.JackpotPayoutToWhiskyBps
	cfg.BonusToJackpotRatioBps = p.BonusToJackpotRatioBps
	cfg.MaxPayoutBps = p.MaxPayoutBps
	cfg.PoolWithdrawFeeBps = p.PoolWithdrawFeeBps
	cfg.PoolCreationAllowed = p.PoolCreationAllowed
	cfg.PoolDepositAllowed = p.PoolDepositAllowed
	cfg.PoolWithdrawAllowed = p.PoolWithdrawAllowed
	cfg.PlayingAllowed = p.PlayingAllowed
	cfg.DistributionRecipient = p.DistributionRecipient

	if err := ctx.State.SetConfig(cfg); err != nil {
		return err
	}
	ctx.Emit(events.EventConfigSet, events.ConfigSet{Config: cfg})
	return nil
}

func handleDistributeFees(ctx *vm.Context, payload json.RawMessage) error {
	var p core.DistributeFeesPayload
	if err := vm.Decode(payload, &p); err != nil {
		return fmt.Errorf("decode distributeFees payload: %w", err)
	}
	cfg, err := ctx.Config()
	if err != nil {
		return err
	}
	if err := vm.RequireAuthority(cfg, ctx.Signer()); err != nil {
		return err
	}
	if cfg.DistributionRecipient.IsZero() {
		return core.ErrNoDistributionRecipient
	}
	mint := p.Mint
	if p.NativeSol {
		mint = core.NativeMint
	}
	if mint.IsZero() {
		return core.ErrMissingAccount.Withf("mint required unless native_sol is set")
	}

	vault := ctx.Addr.WhiskyState()
	amount, err := vm.Balance(ctx.State, mint, vault)
	if err != nil {
		return err
	}
	if err := vm.Transfer(ctx.State, mint, vault, cfg.DistributionRecipient, amount); err != nil {
		return err
	}
	ctx.Emit(events.EventFees, events.FeesDistributed{
		Mint:      mint,
		Recipient: cfg.DistributionRecipient,
		Amount:    amount,
	})
	return nil
}
