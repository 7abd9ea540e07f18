package vm

import (
	"errors"

	"github.com/gagliardetto/solana-go"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
	"github.com/whiskylabs/whisky-protocol-core-sub001/fixedpoint"
)

// Token primitives of the host ledger. Every balance lives in a
// core.TokenAccount keyed by (mint, owner); ledger-issued mints also track
// their supply.

// Balance returns owner's balance of mint.
func Balance(st core.State, mint, owner solana.PublicKey) (uint64, error) {
	ta, err := st.GetTokenAccount(mint, owner)
	if err != nil {
		return 0, err
	}
	return ta.Amount, nil
}

// Transfer moves amount of mint from one holder to another. A zero amount
// is a no-op.
func Transfer(st core.State, mint, from, to solana.PublicKey, amount uint64) error {
	if amount == 0 || from.Equals(to) {
		return nil
	}
	src, err := st.GetTokenAccount(mint, from)
	if err != nil {
		return err
	}
	if src.Amount < amount {
		return core.ErrInsufficientBalance.Withf("%s holds %d of %s, needs %d", from, src.Amount, mint, amount)
	}
	dst, err := st.GetTokenAccount(mint, to)
	if err != nil {
		return err
	}
	if dst.Amount, err = fixedpoint.Add(dst.Amount, amount); err != nil {
		return err
	}
	src.Amount -= amount
	if err := st.SetTokenAccount(src); err != nil {
		return err
	}
	return st.SetTokenAccount(dst)
}

// Credit adds amount to owner without touching any supply. Only genesis
// allocation uses it.
func Credit(st core.State, mint, owner solana.PublicKey, amount uint64) error {
	ta, err := st.GetTokenAccount(mint, owner)
	if err != nil {
		return err
	}
	if ta.Amount, err = fixedpoint.Add(ta.Amount, amount); err != nil {
		return err
	}
	return st.SetTokenAccount(ta)
}

// CreateMint registers a ledger-issued mint controlled by authority.
func CreateMint(st core.State, mint, authority solana.PublicKey) error {
	return st.SetMint(&core.Mint{Address: mint, Authority: authority})
}

// Supply returns the outstanding supply of a ledger-issued mint.
func Supply(st core.State, mint solana.PublicKey) (uint64, error) {
	m, err := st.GetMint(mint)
	if errors.Is(err, core.ErrNotFound) {
		return 0, core.ErrCalculationError.Withf("mint %s not created", mint)
	}
	if err != nil {
		return 0, err
	}
	return m.Supply, nil
}

// MintTo issues amount of a ledger mint to owner.
func MintTo(st core.State, mint, owner solana.PublicKey, amount uint64) error {
	m, err := st.GetMint(mint)
	if errors.Is(err, core.ErrNotFound) {
		return core.ErrCalculationError.Withf("mint %s not created", mint)
	}
	if err != nil {
		return err
	}
	if m.Supply, err = fixedpoint.Add(m.Supply, amount); err != nil {
		return err
	}
	if err := Credit(st, mint, owner, amount); err != nil {
		return err
	}
	return st.SetMint(m)
}

// Burn destroys amount of a ledger mint held by owner.
func Burn(st core.State, mint, owner solana.PublicKey, amount uint64) error {
	if amount == 0 {
		return nil
	}
	m, err := st.GetMint(mint)
	if errors.Is(err, core.ErrNotFound) {
		return core.ErrCalculationError.Withf("mint %s not created", mint)
	}
	if err != nil {
		return err
	}
	ta, err := st.GetTokenAccount(mint, owner)
	if err != nil {
		return err
	}
	if ta.Amount < amount {
		return core.ErrInsufficientBalance.Withf("%s holds %d of %s, burns %d", owner, ta.Amount, mint, amount)
	}
	if m.Supply < amount {
		return core.ErrCalculationError.Withf("burn %d exceeds supply %d", amount, m.Supply)
	}
	ta.Amount -= amount
	m.Supply -= amount
	if err := st.SetTokenAccount(ta); err != nil {
		return err
	}
	return st.SetMint(m)
}
