package wallet

import (
	"github.com/gagliardetto/solana-go"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
	"github.com/whiskylabs/whisky-protocol-core-sub001/crypto"
)

// Wallet holds a key pair and builds signed instructions for it.
type Wallet struct {
	priv solana.PrivateKey
	pub  solana.PublicKey
}

// New creates a Wallet from an existing private key.
func New(priv solana.PrivateKey) *Wallet {
	return &Wallet{priv: priv, pub: priv.PublicKey()}
}

// Generate creates a Wallet with a freshly generated key pair.
func Generate() (*Wallet, error) {
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return New(priv), nil
}

// PrivKey returns the raw private key (handle with care).
func (w *Wallet) PrivKey() solana.PrivateKey {
	return w.priv
}

// PubKey returns the signer key used as the transaction "from".
func (w *Wallet) PubKey() solana.PublicKey {
	return w.pub
}

// NewTx creates a signed transaction. nonce must match the signer account's
// current nonce.
func (w *Wallet) NewTx(typ core.TxType, nonce uint64, payload any) (*core.Transaction, error) {
	tx, err := core.NewTransaction(typ, w.pub, nonce, payload)
	if err != nil {
		return nil, err
	}
	if err := tx.Sign(w.priv); err != nil {
		return nil, err
	}
	return tx, nil
}

// Transfer creates a signed token transfer.
func (w *Wallet) Transfer(to, mint solana.PublicKey, amount, nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxTransfer, nonce, core.TransferPayload{To: to, Mint: mint, Amount: amount})
}

// Deposit creates a signed LP deposit into pool.
func (w *Wallet) Deposit(pool solana.PublicKey, amount, nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxPoolDeposit, nonce, core.PoolDepositPayload{Pool: pool, Amount: amount})
}

// Withdraw creates a signed LP withdrawal burning shares.
func (w *Wallet) Withdraw(pool solana.PublicKey, shares, nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxPoolWithdraw, nonce, core.PoolWithdrawPayload{Pool: pool, Amount: shares})
}

// InitPlayer creates a signed playerInitialize.
func (w *Wallet) InitPlayer(nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxPlayerInitialize, nonce, core.PlayerInitializePayload{})
}

// Play creates a signed playGame.
func (w *Wallet) Play(p core.PlayGamePayload, nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxPlayGame, nonce, p)
}

// Claim creates a signed playerClaim.
func (w *Wallet) Claim(nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxPlayerClaim, nonce, core.PlayerClaimPayload{})
}

// ClosePlayer creates a signed playerClose.
func (w *Wallet) ClosePlayer(nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxPlayerClose, nonce, core.PlayerClosePayload{})
}

// Settle creates a signed rngSettle revealing seed for user's game and
// committing next.
func (w *Wallet) Settle(user solana.PublicKey, seed string, next core.Hash, nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxRngSettle, nonce, core.RngSettlePayload{
		User:              user,
		RngSeed:           seed,
		NextRngSeedHashed: next,
	})
}

// CommitSeed creates a signed rngProvideHashedSeed.
func (w *Wallet) CommitSeed(user solana.PublicKey, commitment core.Hash, nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxRngProvideHashedSeed, nonce, core.RngProvideHashedSeedPayload{
		User:              user,
		NextRngSeedHashed: commitment,
	})
}
