// Package sequencer produces slots. A single leader drains the mempool at a
// fixed interval, executes the batch serially, persists the slot with its
// receipts and commits the state.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/whiskylabs/whisky-protocol-core-sub001/config"
	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
	"github.com/whiskylabs/whisky-protocol-core-sub001/events"
	"github.com/whiskylabs/whisky-protocol-core-sub001/internal/logger"
	"github.com/whiskylabs/whisky-protocol-core-sub001/vm"
)

const defaultMaxSlotTxs = 500

// ErrEmptySlot is returned by ProduceSlot when the mempool is empty.
var ErrEmptySlot = errors.New("sequencer: no pending transactions")

// Sequencer is the slot producer. It owns the state between slots; readers
// go through View so they never observe a half-executed slot.
type Sequencer struct {
	mu      sync.RWMutex
	chain   *core.Chain
	state   core.State
	mempool *core.Mempool
	exec    *vm.Executor
	emitter *events.Emitter
	priv    solana.PrivateKey
	maxTxs  int
}

// New creates a sequencer signing slots with priv.
func New(
	chain *core.Chain,
	state core.State,
	mempool *core.Mempool,
	exec *vm.Executor,
	emitter *events.Emitter,
	priv solana.PrivateKey,
	maxTxs int,
) *Sequencer {
	if maxTxs <= 0 {
		maxTxs = defaultMaxSlotTxs
	}
	return &Sequencer{
		chain:   chain,
		state:   state,
		mempool: mempool,
		exec:    exec,
		emitter: emitter,
		priv:    priv,
		maxTxs:  maxTxs,
	}
}

// Leader returns the key that signs produced slots.
func (s *Sequencer) Leader() solana.PublicKey {
	return s.priv.PublicKey()
}

// View runs fn with the committed state under a read lock.
func (s *Sequencer) View(fn func(core.State) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.state)
}

// ProduceSlot executes up to maxTxs pending transactions in a new slot and
// commits it. Failed transactions are recorded in receipts; they never
// reject the slot.
func (s *Sequencer) ProduceSlot() (*core.Slot, []*core.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs := s.mempool.Pending(s.maxTxs)
	if len(txs) == 0 {
		return nil, nil, ErrEmptySlot
	}

	prevHash := config.GenesisHash
	height := int64(1)
	if tip := s.chain.Tip(); tip != nil {
		prevHash = tip.Hash
		height = tip.Header.Height + 1
	}

	snapID, err := s.state.Snapshot()
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: %w", err)
	}
	slot := core.NewSlot(height, prevHash, s.Leader(), txs)
	receipts, pending := s.exec.ExecuteSlot(slot)

	// Root from the write buffer before flushing, so a failed AddSlot leaves
	// nothing persisted.
	slot.Header.StateRoot = s.state.ComputeRoot()
	if err := slot.Sign(s.priv); err != nil {
		s.discard(snapID, height)
		return nil, nil, err
	}
	if err := s.chain.AddSlot(slot, receipts); err != nil {
		s.discard(snapID, height)
		return nil, nil, fmt.Errorf("add slot: %w", err)
	}
	if err := s.state.Commit(); err != nil {
		logger.Fatal("slot stored but state commit failed", "height", height, "err", err)
	}

	s.exec.Deliver(pending)
	if s.emitter != nil {
		s.emitter.Emit(events.Event{
			Type:   events.EventSlotCommit,
			Height: height,
			Data:   events.SlotCommit{Hash: slot.Hash, StateRoot: slot.Header.StateRoot, TxCount: len(txs)},
		})
	}

	ids := make([]string, len(txs))
	for i, tx := range txs {
		ids[i] = tx.ID
	}
	s.mempool.Remove(ids)
	return slot, receipts, nil
}

// discard drops the writes of a slot that was not stored. Its transactions
// stay in the mempool for the next slot.
func (s *Sequencer) discard(snapID int, height int64) {
	if err := s.state.RevertToSnapshot(snapID); err != nil {
		logger.Fatal("revert unstored slot", "height", height, "err", err)
	}
}

// ValidateSlot checks a slot produced elsewhere: leader, signature and
// linkage to the local tip.
func (s *Sequencer) ValidateSlot(slot *core.Slot) error {
	if !slot.Header.Leader.Equals(s.Leader()) {
		return fmt.Errorf("wrong leader: got %s want %s", slot.Header.Leader, s.Leader())
	}
	if slot.Hash != slot.ComputeHash() {
		return errors.New("slot hash does not match header")
	}
	if err := slot.Verify(); err != nil {
		return fmt.Errorf("slot signature invalid: %w", err)
	}
	tip := s.chain.Tip()
	if tip == nil {
		if !config.IsGenesisHash(slot.Header.PrevHash) {
			return errors.New("first slot must reference genesis prev-hash")
		}
		return nil
	}
	if slot.Header.PrevHash != tip.Hash {
		return fmt.Errorf("prev_hash mismatch: got %s want %s", slot.Header.PrevHash, tip.Hash)
	}
	if slot.Header.Height != tip.Header.Height+1 {
		return fmt.Errorf("height mismatch: got %d want %d", slot.Header.Height, tip.Header.Height+1)
	}
	return nil
}

// Run produces a slot every interval until ctx is cancelled.
func (s *Sequencer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			slot, receipts, err := s.ProduceSlot()
			switch {
			case errors.Is(err, ErrEmptySlot):
			case err != nil:
				logger.Error("produce slot", "err", err)
			default:
				failed := 0
				for _, r := range receipts {
					if !r.Success {
						failed++
					}
				}
				logger.Debug("slot committed", "height", slot.Header.Height, "txs", len(receipts), "failed", failed)
			}
		}
	}
}
