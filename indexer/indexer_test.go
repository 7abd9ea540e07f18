package indexer_test

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
	"github.com/whiskylabs/whisky-protocol-core-sub001/indexer"
	"github.com/whiskylabs/whisky-protocol-core-sub001/internal/ledgertest"
	"github.com/whiskylabs/whisky-protocol-core-sub001/internal/testutil"
)

func attach(t *testing.T) (*ledgertest.Ledger, *indexer.Indexer) {
	t.Helper()
	l := ledgertest.New(t)
	return l, indexer.New(testutil.NewMemDB(), l.Emitter)
}

// TestPoolHistory verifies the LP price is recorded after each mutation.
func TestPoolHistory(t *testing.T) {
	l, idx := attach(t)
	pool, lp := l.CreatePool()

	// Pool profit doubles the share price.
	l.Fund(l.Addr.PoolReserve(pool), l.Mint, ledgertest.LPDeposit)
	l.MustDo(lp, core.TxPoolWithdraw, core.PoolWithdrawPayload{Pool: pool, Amount: 500_000})

	hist, err := idx.PoolHistory(pool)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.True(t, decimal.NewFromInt(1).Equal(hist[0].Price))
	assert.Equal(t, uint64(1_000_000), hist[1].Amount)
	assert.Equal(t, uint64(1_000_000), hist[1].PostLiquidity)
	assert.Equal(t, uint64(500_000), hist[1].LpSupply)
	assert.True(t, decimal.NewFromInt(2).Equal(hist[1].Price))

	empty, err := idx.PoolHistory(solana.PublicKey{})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// TestGamesByPlayer verifies settled games are listed by nonce.
func TestGamesByPlayer(t *testing.T) {
	l, idx := attach(t)
	pool, _ := l.CreatePool()
	user := l.NewUser()
	l.InitPlayer(user)

	for i, want := range []int{1, 0} {
		l.ForceOutcome(user.PubKey(), "c", 2, want)
		l.MustDo(user, core.TxPlayGame, core.PlayGamePayload{Pool: pool, Wager: 100, Bet: []uint32{0, 20000}, ClientSeed: "c"})
		require.NoError(t, l.Settle(user.PubKey()), "game %d", i)
	}

	games, err := idx.GamesByPlayer(user.PubKey())
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, uint64(0), games[0].Nonce)
	assert.Equal(t, int64(100), games[0].Profit)
	assert.True(t, decimal.NewFromInt(2).Equal(games[0].Multiplier))
	assert.Equal(t, uint64(1), games[1].Nonce)
	assert.Equal(t, int64(-100), games[1].Profit)

	txs, err := idx.TxsBySigner(user.PubKey())
	require.NoError(t, err)
	assert.Len(t, txs, 3, "initialize and two plays")
}
