package config

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
	"github.com/whiskylabs/whisky-protocol-core-sub001/crypto"
	"github.com/whiskylabs/whisky-protocol-core-sub001/vm"
)

// GenesisHash is the canonical all-zeros previous hash of slot 0.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// CreateGenesisSlot applies the genesis allocations to state, commits it
// and returns signed slot 0.
func CreateGenesisSlot(cfg *Config, state core.State, leader solana.PrivateKey) (*core.Slot, error) {
	for i, a := range cfg.Genesis.Alloc {
		owner, err := crypto.PubKeyFromBase58(a.Owner)
		if err != nil {
			return nil, fmt.Errorf("genesis alloc %d owner: %w", i, err)
		}
		mint := core.NativeMint
		if a.Mint != "" && a.Mint != "native" {
			if mint, err = crypto.PubKeyFromBase58(a.Mint); err != nil {
				return nil, fmt.Errorf("genesis alloc %d mint: %w", i, err)
			}
		}
		if err := vm.Credit(state, mint, owner, a.Amount); err != nil {
			return nil, fmt.Errorf("genesis alloc %d: %w", i, err)
		}
	}

	stateRoot := state.ComputeRoot()
	if err := state.Commit(); err != nil {
		return nil, err
	}

	slot := core.NewSlot(0, GenesisHash, leader.PublicKey(), nil)
	slot.Header.StateRoot = stateRoot
	// The chain id is pinned in the tx root of the empty genesis slot.
	slot.Header.TxRoot = crypto.Hash([]byte(cfg.Genesis.ChainID))
	if err := slot.Sign(leader); err != nil {
		return nil, err
	}
	return slot, nil
}

// IsGenesisHash reports whether h is the canonical genesis prev-hash.
func IsGenesisHash(h string) bool {
	return len(h) == 64 && strings.Count(h, "0") == 64
}
