// Package rngprovider is the off-chain RNG authority. It keeps the secret
// seeds behind every published commitment, commits a seed when a player
// account opens and reveals it once the player's game is requested.
package rngprovider

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
	"github.com/whiskylabs/whisky-protocol-core-sub001/events"
	"github.com/whiskylabs/whisky-protocol-core-sub001/internal/logger"
	"github.com/whiskylabs/whisky-protocol-core-sub001/rng"
	"github.com/whiskylabs/whisky-protocol-core-sub001/storage"
	"github.com/whiskylabs/whisky-protocol-core-sub001/wallet"
)

const prefixSeed = "rng:seed:"

// Submitter queues a signed instruction. *core.Mempool satisfies it.
type Submitter interface {
	Add(tx *core.Transaction) error
}

// Provider answers PlayerInitialized with a commitment and GameStarted with
// the matching reveal. Instructions go through the mempool, so they land in
// the slot after the triggering event.
type Provider struct {
	key    *wallet.Wallet
	seeds  storage.DB
	submit Submitter

	mu      sync.Mutex
	nonce   uint64
	newSeed func() (string, error)
}

// New creates a provider signing with key whose next account nonce is nonce,
// and subscribes it to emitter.
func New(key *wallet.Wallet, seeds storage.DB, submit Submitter, emitter *events.Emitter, nonce uint64) *Provider {
	p := &Provider{key: key, seeds: seeds, submit: submit, nonce: nonce, newSeed: rng.NewSeed}
	emitter.Subscribe(events.EventPlayerInitialized, p.onPlayerInitialized)
	emitter.Subscribe(events.EventGameStarted, p.onGameStarted)
	emitter.Subscribe(events.EventGameSettled, p.onGameSettled)
	return p
}

// Address is the key the protocol config must list as an rng address.
func (p *Provider) Address() solana.PublicKey {
	return p.key.PubKey()
}

// Commit generates and stores a fresh seed, returning its commitment.
func (p *Provider) Commit() (core.Hash, error) {
	seed, err := p.newSeed()
	if err != nil {
		return core.Hash{}, fmt.Errorf("generate seed: %w", err)
	}
	commitment := rng.Commit(seed)
	if err := p.seeds.Set(seedKey(commitment), []byte(seed)); err != nil {
		return core.Hash{}, fmt.Errorf("store seed: %w", err)
	}
	return commitment, nil
}

// Reveal returns the seed behind commitment.
func (p *Provider) Reveal(commitment core.Hash) (string, error) {
	seed, err := p.seeds.Get(seedKey(commitment))
	if err != nil {
		return "", fmt.Errorf("seed for %s: %w", commitment, err)
	}
	return string(seed), nil
}

func (p *Provider) onPlayerInitialized(ev events.Event) {
	d, ok := ev.Data.(events.PlayerInitialized)
	if !ok {
		return
	}
	commitment, err := p.Commit()
	if err != nil {
		logger.Error("rng: commit seed", "user", d.User, "err", err)
		return
	}
	p.send(d.User, func(nonce uint64) (*core.Transaction, error) {
		return p.key.CommitSeed(d.User, commitment, nonce)
	})
}

func (p *Provider) onGameStarted(ev events.Event) {
	d, ok := ev.Data.(events.GameStarted)
	if !ok {
		return
	}
	seed, err := p.Reveal(d.Commitment)
	if errors.Is(err, core.ErrNotFound) {
		logger.Warn("rng: game started on a commitment we do not hold", "user", d.User, "commitment", d.Commitment)
		return
	}
	if err != nil {
		logger.Error("rng: load seed", "user", d.User, "err", err)
		return
	}
	next, err := p.Commit()
	if err != nil {
		logger.Error("rng: commit next seed", "user", d.User, "err", err)
		return
	}
	p.send(d.User, func(nonce uint64) (*core.Transaction, error) {
		return p.key.Settle(d.User, seed, next, nonce)
	})
}

// onGameSettled forgets a seed once it has been revealed on the ledger.
func (p *Provider) onGameSettled(ev events.Event) {
	d, ok := ev.Data.(events.GameSettled)
	if !ok || d.RngSeed == "" {
		return
	}
	if err := p.seeds.Delete(seedKey(rng.Commit(d.RngSeed))); err != nil && !errors.Is(err, core.ErrNotFound) {
		logger.Warn("rng: drop revealed seed", "user", d.User, "err", err)
	}
}

// send signs with the next nonce and queues the instruction. The nonce is
// only consumed when the mempool accepts the transaction.
func (p *Provider) send(user solana.PublicKey, build func(nonce uint64) (*core.Transaction, error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tx, err := build(p.nonce)
	if err != nil {
		logger.Error("rng: build tx", "user", user, "err", err)
		return
	}
	if err := p.submit.Add(tx); err != nil {
		logger.Error("rng: submit tx", "user", user, "type", tx.Type, "err", err)
		return
	}
	p.nonce++
	logger.Debug("rng: submitted", "user", user, "type", tx.Type, "tx", tx.ID)
}

func seedKey(commitment core.Hash) []byte {
	return []byte(prefixSeed + commitment.String())
}
