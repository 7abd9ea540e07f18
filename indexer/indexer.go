// Package indexer maintains secondary indexes over ledger events so clients
// can chart LP share prices and list a player's games without scanning state.
package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
	"github.com/whiskylabs/whisky-protocol-core-sub001/events"
	"github.com/whiskylabs/whisky-protocol-core-sub001/fixedpoint"
	"github.com/whiskylabs/whisky-protocol-core-sub001/internal/logger"
	"github.com/whiskylabs/whisky-protocol-core-sub001/storage"
)

const (
	prefixPoolHistory = "idx:lp:"
	prefixPlayerGames = "idx:game:"
	prefixSignerTxs   = "idx:signer:"

	pricePlaces = 12
)

// PricePoint is the LP share price of a pool right after a deposit or
// withdrawal.
type PricePoint struct {
	Height        int64             `json:"height"`
	TxID          string            `json:"tx_id"`
	User          solana.PublicKey  `json:"user"`
	Action        events.PoolAction `json:"action"`
	Amount        uint64            `json:"amount"`
	PostLiquidity uint64            `json:"post_liquidity"`
	LpSupply      uint64            `json:"lp_supply"`
	Price         decimal.Decimal   `json:"price"` // underlying per LP share
}

// GameRecord summarises one settled game.
type GameRecord struct {
	Height        int64            `json:"height"`
	TxID          string           `json:"tx_id"`
	Pool          solana.PublicKey `json:"pool"`
	TokenMint     solana.PublicKey `json:"token_mint"`
	Nonce         uint64           `json:"nonce"`
	Wager         uint64           `json:"wager"`
	Payout        uint64           `json:"payout"`
	Profit        int64            `json:"profit"`
	Multiplier    decimal.Decimal  `json:"multiplier"`
	Result        uint32           `json:"result"`
	JackpotPayout uint64           `json:"jackpot_payout"`
	RngSeed       string           `json:"rng_seed"`
	ClientSeed    string           `json:"client_seed"`
}

// Indexer subscribes to ledger events and updates secondary lookup tables.
type Indexer struct {
	db storage.DB

	mu  sync.Mutex
	seq uint64
}

// New creates an Indexer backed by db and subscribes to relevant events.
func New(db storage.DB, emitter *events.Emitter) *Indexer {
	idx := &Indexer{db: db}
	emitter.Subscribe(events.EventPoolChange, idx.onPoolChange)
	emitter.Subscribe(events.EventGameSettled, idx.onGameSettled)
	emitter.Subscribe(events.EventTxExecuted, idx.onTxExecuted)
	emitter.Subscribe(events.EventTxFailed, idx.onTxFailed)
	return idx
}

// PoolHistory returns the LP price history of pool, oldest first.
func (idx *Indexer) PoolHistory(pool solana.PublicKey) ([]PricePoint, error) {
	return scan[PricePoint](idx.db, prefixPoolHistory+pool.String()+":")
}

// GamesByPlayer returns user's settled games, oldest first.
func (idx *Indexer) GamesByPlayer(user solana.PublicKey) ([]GameRecord, error) {
	return scan[GameRecord](idx.db, prefixPlayerGames+user.String()+":")
}

// TxsBySigner returns the IDs of transactions signed by key, executed or
// failed, in execution order.
func (idx *Indexer) TxsBySigner(key solana.PublicKey) ([]string, error) {
	return idx.getList(prefixSignerTxs + key.String())
}

// ---- event handlers ----

func (idx *Indexer) onPoolChange(ev events.Event) {
	pc, ok := ev.Data.(events.PoolChange)
	if !ok {
		return
	}
	point := PricePoint{
		Height:        ev.Height,
		TxID:          ev.TxID,
		User:          pc.User,
		Action:        pc.Action,
		Amount:        pc.Amount,
		PostLiquidity: pc.PostLiquidity,
		LpSupply:      pc.LpSupply,
		Price:         fixedpoint.Ratio(pc.PostLiquidity, pc.LpSupply, pricePlaces),
	}
	idx.put(prefixPoolHistory+pc.Pool.String()+":"+idx.orderKey(ev.Height), point)
}

func (idx *Indexer) onGameSettled(ev events.Event) {
	gs, ok := ev.Data.(events.GameSettled)
	if !ok {
		return
	}
	rec := GameRecord{
		Height:        ev.Height,
		TxID:          ev.TxID,
		Pool:          gs.Pool,
		TokenMint:     gs.TokenMint,
		Nonce:         gs.Nonce,
		Wager:         gs.Wager,
		Payout:        gs.Payout,
		Profit:        gs.Profit,
		Multiplier:    fixedpoint.Ratio(gs.Multiplier, fixedpoint.BpsDenominator, 4),
		Result:        gs.Result,
		JackpotPayout: gs.JackpotPayout,
		RngSeed:       gs.RngSeed,
		ClientSeed:    gs.ClientSeed,
	}
	// Player nonces are unique per user, so they order the games directly.
	idx.put(fmt.Sprintf("%s%s:%020d", prefixPlayerGames, gs.User, gs.Nonce), rec)
}

func (idx *Indexer) onTxExecuted(ev events.Event) {
	if d, ok := ev.Data.(events.TxExecuted); ok {
		idx.appendSigner(d.From, ev.TxID)
	}
}

func (idx *Indexer) onTxFailed(ev events.Event) {
	if d, ok := ev.Data.(events.TxFailed); ok {
		idx.appendSigner(d.From, ev.TxID)
	}
}

func (idx *Indexer) appendSigner(from solana.PublicKey, txID string) {
	if txID == "" {
		return
	}
	if err := idx.addToList(prefixSignerTxs+from.String(), txID); err != nil {
		logger.Warn("indexer: signer index", "signer", from, "err", err)
	}
}

// ---- storage helpers ----

// orderKey sorts entries by height, then by arrival within the process.
func (idx *Indexer) orderKey(height int64) string {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.seq++
	return fmt.Sprintf("%020d:%010d", height, idx.seq)
}

func (idx *Indexer) put(key string, v any) {
	data, err := json.Marshal(v)
	if err == nil {
		err = idx.db.Set([]byte(key), data)
	}
	if err != nil {
		logger.Warn("indexer: write", "key", key, "err", err)
	}
}

func scan[T any](db storage.DB, prefix string) ([]T, error) {
	it := db.NewIterator([]byte(prefix))
	defer it.Release()
	var out []T
	for it.Next() {
		var v T
		if err := json.Unmarshal(it.Value(), &v); err != nil {
			return nil, fmt.Errorf("indexer unmarshal %s: %w", it.Key(), err)
		}
		out = append(out, v)
	}
	return out, it.Error()
}

func (idx *Indexer) getList(key string) ([]string, error) {
	data, err := idx.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil // empty list
		}
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("indexer unmarshal: %w", err)
	}
	return ids, nil
}

func (idx *Indexer) addToList(key, value string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	ids, err := idx.getList(key)
	if err != nil {
		return err
	}
	data, err := json.Marshal(append(ids, value))
	if err != nil {
		return err
	}
	return idx.db.Set([]byte(key), data)
}
