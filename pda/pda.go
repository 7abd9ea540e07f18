// Package pda derives the deterministic addresses of every ledger-owned
// account from the program id and a fixed seed table.
package pda

import (
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// Seed prefixes. Together with the program id they fully determine the
// address of each account.
const (
	SeedWhiskyState           = "WHISKY_STATE"
	SeedPool                  = "POOL"
	SeedPoolATA               = "POOL_ATA"
	SeedPoolJackpot           = "POOL_JACKPOT"
	SeedPoolBonusUnderlyingTA = "POOL_BONUS_UNDERLYING_TA"
	SeedPoolBonusMint         = "POOL_BONUS_MINT"
	SeedPoolLPMint            = "POOL_LP_MINT"
	SeedPlayer                = "PLAYER"
	SeedGame                  = "GAME"
)

// DefaultProgramID is the program id used when none is configured.
var DefaultProgramID = solana.MustPublicKeyFromBase58("GvpAaXMu32CACf5tYcojghgSLwQCFZjqiikxUAXHSNKP")

// Deriver computes program-derived addresses. Results are cached because the
// bump search hashes up to 256 candidates per derivation.
type Deriver struct {
	programID solana.PublicKey

	mu    sync.RWMutex
	cache map[string]solana.PublicKey
}

// NewDeriver returns a Deriver for programID.
func NewDeriver(programID solana.PublicKey) *Deriver {
	return &Deriver{programID: programID, cache: make(map[string]solana.PublicKey)}
}

// ProgramID returns the program id addresses are derived under.
func (d *Deriver) ProgramID() solana.PublicKey {
	return d.programID
}

func (d *Deriver) find(seeds ...[]byte) solana.PublicKey {
	var key []byte
	for _, s := range seeds {
		key = append(key, byte(len(s)))
		key = append(key, s...)
	}
	d.mu.RLock()
	addr, ok := d.cache[string(key)]
	d.mu.RUnlock()
	if ok {
		return addr
	}
	addr, _, err := solana.FindProgramAddress(seeds, d.programID)
	if err != nil {
		// Only reachable with seeds longer than 32 bytes, which the table
		// never produces.
		panic(fmt.Sprintf("pda: derive %q: %v", seeds[0], err))
	}
	d.mu.Lock()
	d.cache[string(key)] = addr
	d.mu.Unlock()
	return addr
}

// WhiskyState is the protocol singleton and its fee vault.
func (d *Deriver) WhiskyState() solana.PublicKey {
	return d.find([]byte(SeedWhiskyState))
}

// Pool is keyed by underlying mint and pool authority.
func (d *Deriver) Pool(mint, poolAuthority solana.PublicKey) solana.PublicKey {
	return d.find([]byte(SeedPool), mint.Bytes(), poolAuthority.Bytes())
}

// PoolReserve holds the pool's underlying liquidity.
func (d *Deriver) PoolReserve(pool solana.PublicKey) solana.PublicKey {
	return d.find([]byte(SeedPoolATA), pool.Bytes())
}

func (d *Deriver) PoolJackpot(pool solana.PublicKey) solana.PublicKey {
	return d.find([]byte(SeedPoolJackpot), pool.Bytes())
}

// PoolBonusUnderlying backs outstanding bonus tokens 1:1.
func (d *Deriver) PoolBonusUnderlying(pool solana.PublicKey) solana.PublicKey {
	return d.find([]byte(SeedPoolBonusUnderlyingTA), pool.Bytes())
}

func (d *Deriver) PoolBonusMint(pool solana.PublicKey) solana.PublicKey {
	return d.find([]byte(SeedPoolBonusMint), pool.Bytes())
}

func (d *Deriver) PoolLPMint(pool solana.PublicKey) solana.PublicKey {
	return d.find([]byte(SeedPoolLPMint), pool.Bytes())
}

// Player is the player account and the escrow for its winnings.
func (d *Deriver) Player(user solana.PublicKey) solana.PublicKey {
	return d.find([]byte(SeedPlayer), user.Bytes())
}

func (d *Deriver) Game(user solana.PublicKey) solana.PublicKey {
	return d.find([]byte(SeedGame), user.Bytes())
}

// PoolAddresses groups every account owned by one pool.
type PoolAddresses struct {
	Pool            solana.PublicKey `json:"pool"`
	Reserve         solana.PublicKey `json:"reserve"`
	Jackpot         solana.PublicKey `json:"jackpot"`
	BonusUnderlying solana.PublicKey `json:"bonus_underlying"`
	BonusMint       solana.PublicKey `json:"bonus_mint"`
	LPMint          solana.PublicKey `json:"lp_mint"`
}

// PoolSet derives all addresses of the pool for (mint, poolAuthority).
func (d *Deriver) PoolSet(mint, poolAuthority solana.PublicKey) PoolAddresses {
	pool := d.Pool(mint, poolAuthority)
	return PoolAddresses{
		Pool:            pool,
		Reserve:         d.PoolReserve(pool),
		Jackpot:         d.PoolJackpot(pool),
		BonusUnderlying: d.PoolBonusUnderlying(pool),
		BonusMint:       d.PoolBonusMint(pool),
		LPMint:          d.PoolLPMint(pool),
	}
}
