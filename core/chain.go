package core

import (
	"fmt"
	"sync"
)

// SlotStore is the persistence interface used by Chain.
// Implementations live in the storage package.
type SlotStore interface {
	GetSlot(hash string) (*Slot, error)
	GetSlotByHeight(height int64) (*Slot, error)
	// GetTip returns the current tip hash, or ("", nil) for a fresh ledger.
	GetTip() (string, error)
	// CommitSlot atomically writes the slot, its receipts, the height index
	// entry and the tip pointer.
	CommitSlot(slot *Slot, receipts []*Receipt) error
	GetReceipt(txID string) (*Receipt, error)
}

// Chain tracks the sequence of committed slots.
type Chain struct {
	mu     sync.RWMutex
	store  SlotStore
	tip    *Slot
	height int64
}

// NewChain returns a Chain backed by store.
// Call Init() to load an existing tip from storage.
func NewChain(store SlotStore) *Chain {
	return &Chain{store: store}
}

// Init loads the persisted tip from the slot store.
func (c *Chain) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tipHash, err := c.store.GetTip()
	if err != nil {
		return fmt.Errorf("get tip: %w", err)
	}
	if tipHash == "" {
		return nil
	}
	tip, err := c.store.GetSlot(tipHash)
	if err != nil {
		return fmt.Errorf("load tip slot: %w", err)
	}
	c.tip = tip
	c.height = tip.Header.Height
	return nil
}

// AddSlot validates height continuity and PrevHash linkage, then persists the
// slot with its receipts and advances the tip.
func (c *Chain) AddSlot(slot *Slot, receipts []*Receipt) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tip != nil {
		if slot.Header.Height != c.height+1 {
			return fmt.Errorf("slot height %d does not follow tip %d", slot.Header.Height, c.height)
		}
		if slot.Header.PrevHash != c.tip.Hash {
			return fmt.Errorf("prev_hash mismatch: got %s want %s", slot.Header.PrevHash, c.tip.Hash)
		}
	}

	if err := c.store.CommitSlot(slot, receipts); err != nil {
		return fmt.Errorf("commit slot: %w", err)
	}
	c.tip = slot
	c.height = slot.Header.Height
	return nil
}

// GetSlot returns a slot by its hash.
func (c *Chain) GetSlot(hash string) (*Slot, error) {
	return c.store.GetSlot(hash)
}

// GetSlotByHeight returns the slot at the given height.
func (c *Chain) GetSlotByHeight(height int64) (*Slot, error) {
	return c.store.GetSlotByHeight(height)
}

// GetReceipt returns the execution receipt of a committed transaction.
func (c *Chain) GetReceipt(txID string) (*Receipt, error) {
	return c.store.GetReceipt(txID)
}

// Tip returns the current tip, or nil for a fresh ledger.
func (c *Chain) Tip() *Slot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tip
}

// Height returns the height of the current tip (0 for a fresh ledger).
func (c *Chain) Height() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.height
}
