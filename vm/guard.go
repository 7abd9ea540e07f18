package vm

import (
	"errors"

	"github.com/gagliardetto/solana-go"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
)

// RequireAuthority fails unless signer is the protocol authority.
func RequireAuthority(cfg *core.ProtocolConfig, signer solana.PublicKey) error {
	if !signer.Equals(cfg.Authority) {
		return core.ErrInvalidAuthority.Withf("%s is not the protocol authority", signer)
	}
	return nil
}

// RequireRngAuthority fails unless signer is one of the RNG providers.
func RequireRngAuthority(cfg *core.ProtocolConfig, signer solana.PublicKey) error {
	if !cfg.IsRngAuthority(signer) {
		return core.ErrInvalidRngAuthority.Withf("%s", signer)
	}
	return nil
}

// RequireFeature gates an instruction on a protocol flag. With every flag
// off the protocol is paused as a whole.
func RequireFeature(cfg *core.ProtocolConfig, allowed bool, denied *core.ProgramError) error {
	if cfg.Paused() {
		return core.ErrProtocolPaused
	}
	if !allowed {
		return denied
	}
	return nil
}

// LoadPool loads a pool, mapping a missing account to PoolNotFound.
func LoadPool(st core.State, address solana.PublicKey) (*core.Pool, error) {
	pool, err := st.GetPool(address)
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.ErrPoolNotFound.Withf("%s", address)
	}
	return pool, err
}

// LoadPlayer loads the player and game accounts of user.
func LoadPlayer(ctx *Context, user solana.PublicKey) (*core.Player, *core.Game, error) {
	player, err := ctx.State.GetPlayer(ctx.Addr.Player(user))
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil, core.ErrPlayerNotInitialized.Withf("%s", user)
	}
	if err != nil {
		return nil, nil, err
	}
	game, err := ctx.State.GetGame(ctx.Addr.Game(user))
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil, core.ErrPlayerNotInitialized.Withf("%s has no game account", user)
	}
	if err != nil {
		return nil, nil, err
	}
	return player, game, nil
}
