package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/gagliardetto/solana-go"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
	"github.com/whiskylabs/whisky-protocol-core-sub001/crypto"
)

// registerPrefix records a state-key prefix into statePrefixes so that
// ComputeRoot() always covers it.
func registerPrefix(p string) string {
	statePrefixes = append(statePrefixes, p)
	return p
}

var statePrefixes []string

var (
	prefixAccount = registerPrefix("acct:")
	prefixConfig  = registerPrefix("cfg:")
	prefixPool    = registerPrefix("pool:")
	prefixPlayer  = registerPrefix("player:")
	prefixGame    = registerPrefix("game:")
	prefixToken   = registerPrefix("ta:")
	prefixMint    = registerPrefix("mint:")
)

const configKey = "whisky"

type stateSnapshot struct {
	dirty   map[string][]byte
	deleted map[string]bool
}

// StateDB implements core.State on top of a DB with in-memory write buffer,
// snapshot/rollback, and deterministic state-root computation. Accounts are
// stored in the versioned layout of core.EncodeAccount.
type StateDB struct {
	db        DB
	dirty     map[string][]byte
	deleted   map[string]bool
	snapshots []stateSnapshot
}

// NewStateDB creates a StateDB backed by db.
func NewStateDB(db DB) *StateDB {
	return &StateDB{
		db:      db,
		dirty:   make(map[string][]byte),
		deleted: make(map[string]bool),
	}
}

// ---- internal helpers ----

func (s *StateDB) get(key string) ([]byte, error) {
	if s.deleted[key] {
		return nil, core.ErrNotFound
	}
	if v, ok := s.dirty[key]; ok {
		return v, nil
	}
	return s.db.Get([]byte(key))
}

func (s *StateDB) set(key string, val []byte) {
	delete(s.deleted, key)
	s.dirty[key] = val
}

func (s *StateDB) del(key string) {
	delete(s.dirty, key)
	s.deleted[key] = true
}

func (s *StateDB) put(key string, disc core.Discriminator, v any) error {
	data, err := core.EncodeAccount(disc, v)
	if err != nil {
		return err
	}
	s.set(key, data)
	return nil
}

func load[T any](s *StateDB, key string, disc core.Discriminator) (*T, error) {
	data, err := s.get(key)
	if err != nil {
		return nil, err
	}
	v := new(T)
	if err := core.DecodeAccount(disc, data, v); err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

// ---- Account ----

func (s *StateDB) GetAccount(address solana.PublicKey) (*core.Account, error) {
	acc, err := load[core.Account](s, prefixAccount+address.String(), core.DiscAccount)
	if errors.Is(err, core.ErrNotFound) {
		return &core.Account{Address: address}, nil
	}
	return acc, err
}

func (s *StateDB) SetAccount(acc *core.Account) error {
	return s.put(prefixAccount+acc.Address.String(), core.DiscAccount, acc)
}

// ---- Protocol config ----

func (s *StateDB) GetConfig() (*core.ProtocolConfig, error) {
	return load[core.ProtocolConfig](s, prefixConfig+configKey, core.DiscProtocolConfig)
}

func (s *StateDB) SetConfig(cfg *core.ProtocolConfig) error {
	return s.put(prefixConfig+configKey, core.DiscProtocolConfig, cfg)
}

// ---- Pool ----

func (s *StateDB) GetPool(address solana.PublicKey) (*core.Pool, error) {
	return load[core.Pool](s, prefixPool+address.String(), core.DiscPool)
}

func (s *StateDB) SetPool(pool *core.Pool) error {
	return s.put(prefixPool+pool.Address.String(), core.DiscPool, pool)
}

// ---- Player / Game ----

func (s *StateDB) GetPlayer(address solana.PublicKey) (*core.Player, error) {
	return load[core.Player](s, prefixPlayer+address.String(), core.DiscPlayer)
}

func (s *StateDB) SetPlayer(p *core.Player) error {
	return s.put(prefixPlayer+p.Address.String(), core.DiscPlayer, p)
}

func (s *StateDB) DeletePlayer(address solana.PublicKey) error {
	s.del(prefixPlayer + address.String())
	return nil
}

func (s *StateDB) GetGame(address solana.PublicKey) (*core.Game, error) {
	return load[core.Game](s, prefixGame+address.String(), core.DiscGame)
}

func (s *StateDB) SetGame(g *core.Game) error {
	return s.put(prefixGame+g.Address.String(), core.DiscGame, g)
}

func (s *StateDB) DeleteGame(address solana.PublicKey) error {
	s.del(prefixGame + address.String())
	return nil
}

// ---- Tokens ----

func tokenKey(mint, owner solana.PublicKey) string {
	return prefixToken + mint.String() + ":" + owner.String()
}

func (s *StateDB) GetTokenAccount(mint, owner solana.PublicKey) (*core.TokenAccount, error) {
	ta, err := load[core.TokenAccount](s, tokenKey(mint, owner), core.DiscTokenAccount)
	if errors.Is(err, core.ErrNotFound) {
		return &core.TokenAccount{Mint: mint, Owner: owner}, nil
	}
	return ta, err
}

// SetTokenAccount stores ta; an empty balance removes the entry so closed
// accounts do not linger in the state root.
func (s *StateDB) SetTokenAccount(ta *core.TokenAccount) error {
	key := tokenKey(ta.Mint, ta.Owner)
	if ta.Amount == 0 {
		s.del(key)
		return nil
	}
	return s.put(key, core.DiscTokenAccount, ta)
}

func (s *StateDB) GetMint(address solana.PublicKey) (*core.Mint, error) {
	return load[core.Mint](s, prefixMint+address.String(), core.DiscMint)
}

func (s *StateDB) SetMint(m *core.Mint) error {
	return s.put(prefixMint+m.Address.String(), core.DiscMint, m)
}

// ---- Snapshot / Rollback / Commit ----

// Snapshot saves the current write buffer and returns a snapshot ID.
func (s *StateDB) Snapshot() (int, error) {
	snap := stateSnapshot{
		dirty:   make(map[string][]byte, len(s.dirty)),
		deleted: make(map[string]bool, len(s.deleted)),
	}
	for k, v := range s.dirty {
		snap.dirty[k] = bytes.Clone(v)
	}
	for k, v := range s.deleted {
		snap.deleted[k] = v
	}
	s.snapshots = append(s.snapshots, snap)
	return len(s.snapshots) - 1, nil
}

// RevertToSnapshot restores the write buffer to a previously saved snapshot
// and discards every snapshot taken after it.
func (s *StateDB) RevertToSnapshot(id int) error {
	if id < 0 || id >= len(s.snapshots) {
		return fmt.Errorf("invalid snapshot id %d", id)
	}
	snap := s.snapshots[id]

	dirty := make(map[string][]byte, len(snap.dirty))
	for k, v := range snap.dirty {
		dirty[k] = bytes.Clone(v)
	}
	deleted := make(map[string]bool, len(snap.deleted))
	for k, v := range snap.deleted {
		deleted[k] = v
	}

	s.dirty = dirty
	s.deleted = deleted
	s.snapshots = s.snapshots[:id]
	return nil
}

// ComputeRoot returns the deterministic hash of the complete ledger state:
// persisted entries under the registered prefixes merged with the write
// buffer, sorted by key and hashed with length-prefix encoding. It does not
// flush.
func (s *StateDB) ComputeRoot() string {
	merged := make(map[string][]byte)
	for _, prefix := range statePrefixes {
		it := s.db.NewIterator([]byte(prefix))
		for it.Next() {
			merged[string(it.Key())] = bytes.Clone(it.Value())
		}
		it.Release()
	}
	for k, v := range s.dirty {
		merged[k] = v
	}
	for k := range s.deleted {
		delete(merged, k)
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	var lenBuf [4]byte
	for _, k := range keys {
		v := merged[k]
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(k)))
		buf.Write(lenBuf[:])
		buf.WriteString(k)
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(v)))
		buf.Write(lenBuf[:])
		buf.Write(v)
	}
	return crypto.Hash(buf.Bytes())
}

// Commit atomically flushes the write buffer to the underlying DB and then
// clears it along with all snapshots.
func (s *StateDB) Commit() error {
	batch := s.db.NewBatch()
	for k, v := range s.dirty {
		batch.Set([]byte(k), v)
	}
	for k := range s.deleted {
		batch.Delete([]byte(k))
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	s.dirty = make(map[string][]byte)
	s.deleted = make(map[string]bool)
	s.snapshots = nil
	return nil
}

var _ core.State = (*StateDB)(nil)
