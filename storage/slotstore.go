package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
)

const (
	prefixSlot    = "slot:"
	prefixHeight  = "height:"
	prefixReceipt = "receipt:"
	keyTip        = "chain:tip"
)

// SlotStore implements core.SlotStore on any DB.
type SlotStore struct {
	db DB
}

// NewSlotStore wraps db as a slot store.
func NewSlotStore(db DB) *SlotStore {
	return &SlotStore{db: db}
}

func (s *SlotStore) GetSlot(hash string) (*core.Slot, error) {
	data, err := s.db.Get([]byte(prefixSlot + hash))
	if err != nil {
		return nil, err
	}
	var slot core.Slot
	if err := json.Unmarshal(data, &slot); err != nil {
		return nil, fmt.Errorf("decode slot %s: %w", hash, err)
	}
	return &slot, nil
}

func (s *SlotStore) GetSlotByHeight(height int64) (*core.Slot, error) {
	hash, err := s.db.Get([]byte(fmt.Sprintf("%s%d", prefixHeight, height)))
	if err != nil {
		return nil, err
	}
	return s.GetSlot(string(hash))
}

func (s *SlotStore) GetTip() (string, error) {
	val, err := s.db.Get([]byte(keyTip))
	if errors.Is(err, core.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(val), nil
}

func (s *SlotStore) GetReceipt(txID string) (*core.Receipt, error) {
	data, err := s.db.Get([]byte(prefixReceipt + txID))
	if err != nil {
		return nil, err
	}
	var r core.Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode receipt %s: %w", txID, err)
	}
	return &r, nil
}

// CommitSlot writes the slot, its receipts, the height index and the tip in
// one batch.
func (s *SlotStore) CommitSlot(slot *core.Slot, receipts []*core.Receipt) error {
	data, err := json.Marshal(slot)
	if err != nil {
		return fmt.Errorf("encode slot: %w", err)
	}
	batch := s.db.NewBatch()
	batch.Set([]byte(prefixSlot+slot.Hash), data)
	batch.Set([]byte(fmt.Sprintf("%s%d", prefixHeight, slot.Header.Height)), []byte(slot.Hash))
	for _, r := range receipts {
		rd, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode receipt %s: %w", r.TxID, err)
		}
		batch.Set([]byte(prefixReceipt+r.TxID), rd)
	}
	batch.Set([]byte(keyTip), []byte(slot.Hash))
	return batch.Write()
}

var _ core.SlotStore = (*SlotStore)(nil)
