package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/whiskylabs/whisky-protocol-core-sub001/crypto"
)

// SlotHeader contains the slot metadata that is hashed and signed.
type SlotHeader struct {
	Height    int64            `json:"height"`
	PrevHash  string           `json:"prev_hash"`
	StateRoot string           `json:"state_root"` // hash of state after executing this slot
	TxRoot    string           `json:"tx_root"`
	Timestamp int64            `json:"timestamp"`
	Leader    solana.PublicKey `json:"leader"`
}

// Slot is an ordered batch of instructions executed serially by the leader.
type Slot struct {
	Header       SlotHeader       `json:"header"`
	Transactions []*Transaction   `json:"transactions"`
	Hash         string           `json:"hash"`
	Signature    solana.Signature `json:"signature"`
}

// Receipt records the outcome of one transaction inside a slot.
type Receipt struct {
	TxID      string `json:"tx_id"`
	Type      TxType `json:"type"`
	Height    int64  `json:"height"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	ErrorCode uint32 `json:"error_code,omitempty"`
}

// NewReceipt builds the receipt for tx given its execution error.
func NewReceipt(tx *Transaction, height int64, err error) *Receipt {
	r := &Receipt{TxID: tx.ID, Type: tx.Type, Height: height, Success: err == nil}
	if err != nil {
		r.Error = err.Error()
		if pe, ok := AsProgramError(err); ok {
			r.ErrorCode = pe.Code
		}
	}
	return r
}

// ComputeHash returns the SHA-256 hash of the serialised header.
func (s *Slot) ComputeHash() string {
	data, err := json.Marshal(s.Header)
	if err != nil {
		return ""
	}
	return crypto.Hash(data)
}

// Sign sets Hash and signs the slot with the leader's private key.
func (s *Slot) Sign(priv solana.PrivateKey) error {
	s.Hash = s.ComputeHash()
	sig, err := crypto.Sign(priv, []byte(s.Hash))
	if err != nil {
		return fmt.Errorf("sign slot %d: %w", s.Header.Height, err)
	}
	s.Signature = sig
	return nil
}

// Verify checks the slot signature against its leader.
func (s *Slot) Verify() error {
	return crypto.Verify(s.Header.Leader, []byte(s.Hash), s.Signature)
}

// ComputeTxRoot builds a deterministic root hash from all transaction IDs.
func ComputeTxRoot(txs []*Transaction) string {
	if len(txs) == 0 {
		return crypto.Hash([]byte("empty"))
	}
	var ids []byte
	for _, tx := range txs {
		ids = append(ids, []byte(tx.ID)...)
	}
	return crypto.Hash(ids)
}

// NewSlot creates an unsigned slot.
func NewSlot(height int64, prevHash string, leader solana.PublicKey, txs []*Transaction) *Slot {
	return &Slot{
		Header: SlotHeader{
			Height:    height,
			PrevHash:  prevHash,
			TxRoot:    ComputeTxRoot(txs),
			Timestamp: time.Now().UnixNano(),
			Leader:    leader,
		},
		Transactions: txs,
	}
}
