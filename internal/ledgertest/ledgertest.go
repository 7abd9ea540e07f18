// Package ledgertest builds a configured in-memory ledger for instruction
// tests. Every instruction module is linked in.
package ledgertest

import (
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
	"github.com/whiskylabs/whisky-protocol-core-sub001/events"
	"github.com/whiskylabs/whisky-protocol-core-sub001/internal/testutil"
	"github.com/whiskylabs/whisky-protocol-core-sub001/pda"
	"github.com/whiskylabs/whisky-protocol-core-sub001/rng"
	"github.com/whiskylabs/whisky-protocol-core-sub001/storage"
	"github.com/whiskylabs/whisky-protocol-core-sub001/vm"
	"github.com/whiskylabs/whisky-protocol-core-sub001/wallet"

	_ "github.com/whiskylabs/whisky-protocol-core-sub001/vm/modules/economy"
	_ "github.com/whiskylabs/whisky-protocol-core-sub001/vm/modules/oracle"
	_ "github.com/whiskylabs/whisky-protocol-core-sub001/vm/modules/player"
	_ "github.com/whiskylabs/whisky-protocol-core-sub001/vm/modules/pool"
	_ "github.com/whiskylabs/whisky-protocol-core-sub001/vm/modules/whisky"
)

// Balances handed to wallets created by NewUser.
const (
	UserNative     = 1_000
	UserUnderlying = 10_000
	LPDeposit      = 1_000_000
)

// Config is the protocol configuration New applies.
func Config() core.WhiskySetConfigPayload {
	return core.WhiskySetConfigPayload{
		WhiskyFeeBps:              100,
		MaxCreatorFeeBps:          500,
		PoolCreationFee:           1_000,
		AntiSpamFee:               5,
		MaxHouseEdgeBps:           500,
		DefaultPoolFeeBps:         100,
		JackpotPayoutToUserBps:    8_000,
		JackpotPayoutToCreatorBps: 500,
		JackpotPayoutToPoolBps:    1_000,
		JackpotPayoutToWhiskyBps:  500,
		BonusToJackpotRatioBps:    1_000,
		MaxPayoutBps:              1_000,
		PoolCreationAllowed:       true,
		PoolDepositAllowed:        true,
		PoolWithdrawAllowed:       true,
		PlayingAllowed:            true,
	}
}

// Ledger drives an executor over an in-memory state. Signer nonces and the
// RNG provider's secret seeds are tracked so tests only state intent.
type Ledger struct {
	t testing.TB

	State    *storage.StateDB
	Emitter  *events.Emitter
	Executor *vm.Executor
	Addr     *pda.Deriver

	Authority *wallet.Wallet
	Rng       *wallet.Wallet
	Mint      solana.PublicKey
	Events    []events.Event

	height int64
	nonces map[solana.PublicKey]uint64
	seeds  map[solana.PublicKey]string
	seq    int
}

// New returns a ledger with the protocol initialized and configured with
// Config, the fixture RNG provider registered and a fresh underlying mint.
func New(t testing.TB) *Ledger {
	t.Helper()
	l := Bare(t)
	l.MustDo(l.Authority, core.TxWhiskyInitialize, core.WhiskyInitializePayload{})
	l.SetConfig(nil)
	l.Fund(l.Authority.PubKey(), core.NativeMint, 100_000)
	return l
}

// Bare returns a ledger whose protocol has not been initialized.
func Bare(t testing.TB) *Ledger {
	t.Helper()
	st := testutil.NewStateDB()
	em := events.NewEmitter()
	addr := pda.NewDeriver(pda.DefaultProgramID)
	l := &Ledger{
		t:         t,
		State:     st,
		Emitter:   em,
		Executor:  vm.NewExecutor(st, em, addr),
		Addr:      addr,
		Authority: newWallet(t),
		Rng:       newWallet(t),
		Mint:      newWallet(t).PubKey(),
		nonces:    make(map[solana.PublicKey]uint64),
		seeds:     make(map[solana.PublicKey]string),
	}
	em.SubscribeAll(func(ev events.Event) { l.Events = append(l.Events, ev) })
	return l
}

func newWallet(t testing.TB) *wallet.Wallet {
	w, err := wallet.Generate()
	require.NoError(t, err)
	return w
}

// SetConfig applies Config, optionally adjusted by mutate, with the fixture
// RNG provider as rng_address.
func (l *Ledger) SetConfig(mutate func(*core.WhiskySetConfigPayload)) {
	l.t.Helper()
	cfg := Config()
	cfg.RngAddress = l.Rng.PubKey()
	if mutate != nil {
		mutate(&cfg)
	}
	l.MustDo(l.Authority, core.TxWhiskySetConfig, cfg)
}

// Do signs payload as w with its next nonce and executes it in a new slot.
func (l *Ledger) Do(w *wallet.Wallet, typ core.TxType, payload any) error {
	l.t.Helper()
	nonce := l.nonces[w.PubKey()]
	tx, err := w.NewTx(typ, nonce, payload)
	require.NoError(l.t, err)
	l.nonces[w.PubKey()] = nonce + 1
	return l.Execute(tx)
}

// Execute runs an already signed transaction in a new slot.
func (l *Ledger) Execute(tx *core.Transaction) error {
	l.height++
	slot := core.NewSlot(l.height, "", l.Authority.PubKey(), []*core.Transaction{tx})
	return l.Executor.ExecuteTx(slot, tx)
}

// MustDo is Do failing the test on error.
func (l *Ledger) MustDo(w *wallet.Wallet, typ core.TxType, payload any) {
	l.t.Helper()
	require.NoError(l.t, l.Do(w, typ, payload), "%s", typ)
}

// Fund credits owner out of thin air.
func (l *Ledger) Fund(owner, mint solana.PublicKey, amount uint64) {
	l.t.Helper()
	require.NoError(l.t, vm.Credit(l.State, mint, owner, amount))
}

// Balance returns owner's balance of mint.
func (l *Ledger) Balance(mint, owner solana.PublicKey) uint64 {
	l.t.Helper()
	b, err := vm.Balance(l.State, mint, owner)
	require.NoError(l.t, err)
	return b
}

// NewUser returns a wallet holding UserNative and UserUnderlying.
func (l *Ledger) NewUser() *wallet.Wallet {
	l.t.Helper()
	w := newWallet(l.t)
	l.Fund(w.PubKey(), core.NativeMint, UserNative)
	l.Fund(w.PubKey(), l.Mint, UserUnderlying)
	return w
}

// CreatePool opens the public pool of l.Mint and seeds it with LPDeposit
// from a dedicated LP wallet, which is returned.
func (l *Ledger) CreatePool() (solana.PublicKey, *wallet.Wallet) {
	l.t.Helper()
	l.MustDo(l.Authority, core.TxPoolInitialize, core.PoolInitializePayload{UnderlyingTokenMint: l.Mint})
	pool := l.Addr.Pool(l.Mint, solana.PublicKey{})
	lp := newWallet(l.t)
	l.Fund(lp.PubKey(), l.Mint, LPDeposit)
	l.MustDo(lp, core.TxPoolDeposit, core.PoolDepositPayload{Pool: pool, Amount: LPDeposit})
	return pool, lp
}

// InitPlayer opens w's player account and has the RNG provider commit the
// first seed.
func (l *Ledger) InitPlayer(w *wallet.Wallet) {
	l.t.Helper()
	l.MustDo(w, core.TxPlayerInitialize, core.PlayerInitializePayload{})
	l.CommitSeed(w.PubKey(), l.nextSeed())
}

// CommitSeed has the RNG provider commit seed for user's next game.
func (l *Ledger) CommitSeed(user solana.PublicKey, seed string) {
	l.t.Helper()
	l.MustDo(l.Rng, core.TxRngProvideHashedSeed, core.RngProvideHashedSeedPayload{
		User:              user,
		NextRngSeedHashed: rng.Commit(seed),
	})
	l.seeds[user] = seed
}

// ForceOutcome commits a seed under which user's next game, played with
// clientSeed over the given number of outcomes, lands on index want.
func (l *Ledger) ForceOutcome(user solana.PublicKey, clientSeed string, outcomes, want int) {
	l.t.Helper()
	nonce := l.Player(user).Nonce
	for i := 0; i < 10_000; i++ {
		seed := fmt.Sprintf("forced-%d-%d", want, i)
		idx, err := rng.ResultIndex(seed, clientSeed, nonce, outcomes)
		require.NoError(l.t, err)
		if idx == want {
			l.CommitSeed(user, seed)
			return
		}
	}
	l.t.Fatalf("no seed lands on outcome %d", want)
}

// Seed returns the secret seed committed for user's game.
func (l *Ledger) Seed(user solana.PublicKey) string {
	return l.seeds[user]
}

// Settle reveals user's committed seed and commits a fresh one.
func (l *Ledger) Settle(user solana.PublicKey) error {
	l.t.Helper()
	next := l.nextSeed()
	err := l.Do(l.Rng, core.TxRngSettle, core.RngSettlePayload{
		User:              user,
		RngSeed:           l.seeds[user],
		NextRngSeedHashed: rng.Commit(next),
	})
	if err == nil {
		l.seeds[user] = next
	}
	return err
}

func (l *Ledger) nextSeed() string {
	l.seq++
	return fmt.Sprintf("fixture-seed-%d", l.seq)
}

// Config loads the protocol configuration.
func (l *Ledger) Config() *core.ProtocolConfig {
	l.t.Helper()
	cfg, err := l.State.GetConfig()
	require.NoError(l.t, err)
	return cfg
}

// Pool loads a pool account.
func (l *Ledger) Pool(addr solana.PublicKey) *core.Pool {
	l.t.Helper()
	p, err := l.State.GetPool(addr)
	require.NoError(l.t, err)
	return p
}

// Player loads user's player account.
func (l *Ledger) Player(user solana.PublicKey) *core.Player {
	l.t.Helper()
	p, err := l.State.GetPlayer(l.Addr.Player(user))
	require.NoError(l.t, err)
	return p
}

// Game loads user's game account.
func (l *Ledger) Game(user solana.PublicKey) *core.Game {
	l.t.Helper()
	g, err := l.State.GetGame(l.Addr.Game(user))
	require.NoError(l.t, err)
	return g
}

// EventsOf returns the recorded events of typ.
func (l *Ledger) EventsOf(typ events.EventType) []events.Event {
	var out []events.Event
	for _, ev := range l.Events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}
