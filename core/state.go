package core

import "github.com/gagliardetto/solana-go"

// State is the full ledger state interface. Implementations must be
// snapshot-able so the executor can roll back failed instructions.
type State interface {
	// Signer accounts (replay protection). Missing accounts read as zero.
	GetAccount(address solana.PublicKey) (*Account, error)
	SetAccount(account *Account) error

	// Protocol singleton. Returns ErrNotFound before whiskyInitialize.
	GetConfig() (*ProtocolConfig, error)
	SetConfig(cfg *ProtocolConfig) error

	// Pools
	GetPool(address solana.PublicKey) (*Pool, error)
	SetPool(pool *Pool) error

	// Players and their game slots
	GetPlayer(address solana.PublicKey) (*Player, error)
	SetPlayer(player *Player) error
	DeletePlayer(address solana.PublicKey) error
	GetGame(address solana.PublicKey) (*Game, error)
	SetGame(game *Game) error
	DeleteGame(address solana.PublicKey) error

	// Token balances. Missing accounts read as zero.
	GetTokenAccount(mint, owner solana.PublicKey) (*TokenAccount, error)
	SetTokenAccount(ta *TokenAccount) error

	// Ledger-issued mints
	GetMint(address solana.PublicKey) (*Mint, error)
	SetMint(m *Mint) error

	// Snapshot / rollback / commit
	Snapshot() (int, error)
	RevertToSnapshot(id int) error
	// ComputeRoot returns the deterministic state root from the current write
	// buffer without flushing.
	ComputeRoot() string
	// Commit flushes the write buffer to the underlying DB and clears it.
	Commit() error
}
