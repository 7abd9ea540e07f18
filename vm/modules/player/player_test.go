package player_test

import (
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
	"github.com/whiskylabs/whisky-protocol-core-sub001/events"
	"github.com/whiskylabs/whisky-protocol-core-sub001/internal/ledgertest"
	"github.com/whiskylabs/whisky-protocol-core-sub001/vm/modules/player"
	"github.com/whiskylabs/whisky-protocol-core-sub001/wallet"
)

var coinFlip = []uint32{0, 20000}

func setup(t *testing.T) (*ledgertest.Ledger, solana.PublicKey, *wallet.Wallet) {
	t.Helper()
	l := ledgertest.New(t)
	pool, _ := l.CreatePool()
	user := l.NewUser()
	l.InitPlayer(user)
	return l, pool, user
}

func flip(pool, creator solana.PublicKey) core.PlayGamePayload {
	return core.PlayGamePayload{
		Pool:          pool,
		Wager:         1_000,
		Bet:           coinFlip,
		ClientSeed:    "client",
		Creator:       creator,
		CreatorFeeBps: 200,
		JackpotFeeBps: 100,
		Metadata:      "flip",
	}
}

// TestPlayerInitialize verifies the player and game accounts are created once.
func TestPlayerInitialize(t *testing.T) {
	l := ledgertest.New(t)
	user := l.NewUser()
	l.MustDo(user, core.TxPlayerInitialize, core.PlayerInitializePayload{})

	assert.Equal(t, user.PubKey(), l.Player(user.PubKey()).User)
	assert.Equal(t, core.GameStatusNone, l.Game(user.PubKey()).Status)

	err := l.Do(user, core.TxPlayerInitialize, core.PlayerInitializePayload{})
	assert.ErrorIs(t, err, core.ErrPlayerAlreadyInitialized)
}

// TestPlayEscrowsWager verifies the state right after playGame.
func TestPlayEscrowsWager(t *testing.T) {
	l, pool, user := setup(t)
	creator := l.NewUser().PubKey()
	commitment := l.Game(user.PubKey()).NextRngSeedHashed

	l.MustDo(user, core.TxPlayGame, flip(pool, creator))

	g := l.Game(user.PubKey())
	assert.Equal(t, core.GameStatusResultRequested, g.Status)
	assert.Equal(t, uint64(0), g.Nonce)
	assert.Equal(t, uint64(1_000), g.Wager)
	assert.Equal(t, uint64(20), g.CreatorFee)
	assert.Equal(t, uint64(10), g.WhiskyFee)
	assert.Equal(t, uint64(10), g.PoolFee)
	assert.Equal(t, uint64(10), g.JackpotFee)
	assert.Equal(t, uint64(2_000), g.MaxPayout)
	assert.Zero(t, g.JackpotProbabilityUbps, "empty jackpot")
	assert.Equal(t, commitment, g.NextRngSeedHashed)

	assert.Equal(t, uint64(1), l.Player(user.PubKey()).Nonce)
	assert.Equal(t, uint64(1_000), l.Balance(l.Mint, l.Addr.Player(user.PubKey())))
	assert.Equal(t, uint64(ledgertest.UserUnderlying-1_000), l.Balance(l.Mint, user.PubKey()))
	assert.Equal(t, uint64(ledgertest.UserNative-5), l.Balance(core.NativeMint, user.PubKey()), "anti-spam fee")

	p := l.Pool(pool)
	assert.Equal(t, uint64(2_000), p.PendingExposure)
	assert.Equal(t, uint64(1), p.Plays)

	started := l.EventsOf(events.EventGameStarted)
	require.Len(t, started, 1)
	assert.Equal(t, commitment, started[0].Data.(events.GameStarted).Commitment)
}

// TestGameInProgress verifies a second play is rejected without touching
// the player nonce or delivering events.
func TestGameInProgress(t *testing.T) {
	l, pool, user := setup(t)
	l.MustDo(user, core.TxPlayGame, flip(pool, solana.PublicKey{}))
	before := len(l.EventsOf(events.EventGameStarted))

	err := l.Do(user, core.TxPlayGame, flip(pool, solana.PublicKey{}))
	assert.ErrorIs(t, err, core.ErrGameInProgress)
	assert.Equal(t, uint64(1), l.Player(user.PubKey()).Nonce)
	assert.Len(t, l.EventsOf(events.EventGameStarted), before)

	failed := l.EventsOf(events.EventTxFailed)
	require.NotEmpty(t, failed)
	assert.Equal(t, core.ErrGameInProgress.Code, failed[len(failed)-1].Data.(events.TxFailed).Code)

	// The signer nonce was consumed, so the next instruction still lines up.
	acc, err := l.State.GetAccount(user.PubKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), acc.Nonce)
}

// TestPlayValidation covers the rejections of playGame.
func TestPlayValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*core.PlayGamePayload)
		want   error
	}{
		{"zero wager", func(p *core.PlayGamePayload) { p.Wager = 0 }, core.ErrWagerTooLow},
		{"wager above max payout", func(p *core.PlayGamePayload) { p.Wager = 150_000 }, core.ErrWagerTooHigh},
		{"payout above max payout", func(p *core.PlayGamePayload) { p.Wager = 60_000 }, core.ErrMaxPayoutExceeded},
		{"creator fee", func(p *core.PlayGamePayload) { p.CreatorFeeBps = 501 }, core.ErrCreatorFeeTooHigh},
		{"creator fee without creator", func(p *core.PlayGamePayload) { p.Creator = solana.PublicKey{} }, core.ErrCreatorFeeTooHigh},
		{"metadata too long", func(p *core.PlayGamePayload) { p.Metadata = strings.Repeat("x", 201) }, core.ErrInvalidMetadata},
		{"metadata not utf-8", func(p *core.PlayGamePayload) { p.Metadata = "\xff" }, core.ErrInvalidMetadata},
		{"client seed", func(p *core.PlayGamePayload) { p.ClientSeed = "" }, core.ErrInvalidClientSeed},
		{"one outcome", func(p *core.PlayGamePayload) { p.Bet = []uint32{10000} }, core.ErrTooFewOutcomes},
		{"player edge", func(p *core.PlayGamePayload) { p.Bet = []uint32{10000, 10001} }, core.ErrInvalidHouseEdge},
		{"house edge", func(p *core.PlayGamePayload) { p.Bet = []uint32{0, 18000} }, core.ErrHouseEdgeTooHigh},
		{"fee legs", func(p *core.PlayGamePayload) { p.JackpotFeeBps = 9_700 }, core.ErrInvalidFeeConfiguration},
		{"unknown pool", func(p *core.PlayGamePayload) { p.Pool = p.Creator }, core.ErrPoolNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l, pool, user := setup(t)
			p := flip(pool, l.NewUser().PubKey())
			tc.mutate(&p)
			err := l.Do(user, core.TxPlayGame, p)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, core.GameStatusNone, l.Game(user.PubKey()).Status)
			assert.Zero(t, l.Pool(pool).PendingExposure)
		})
	}
}

// TestPlayPreconditions covers rejections that depend on account state.
func TestPlayPreconditions(t *testing.T) {
	l := ledgertest.New(t)
	pool, _ := l.CreatePool()
	user := l.NewUser()

	err := l.Do(user, core.TxPlayGame, flip(pool, solana.PublicKey{}))
	assert.ErrorIs(t, err, core.ErrPlayerNotInitialized)

	l.MustDo(user, core.TxPlayerInitialize, core.PlayerInitializePayload{})
	err = l.Do(user, core.TxPlayGame, flip(pool, solana.PublicKey{}))
	assert.ErrorIs(t, err, core.ErrHashedSeedNotProvided)

	l.CommitSeed(user.PubKey(), "seed")
	l.MustDo(l.Authority, core.TxPoolAuthorityConfig, core.PoolAuthorityConfigPayload{Pool: pool, MinWager: 5_000})
	err = l.Do(user, core.TxPlayGame, flip(pool, solana.PublicKey{}))
	assert.ErrorIs(t, err, core.ErrWagerTooLow)

	l.MustDo(l.Authority, core.TxPoolWhiskyConfig, core.PoolWhiskyConfigPayload{Pool: pool, Paused: true})
	err = l.Do(user, core.TxPlayGame, flip(pool, solana.PublicKey{}))
	assert.ErrorIs(t, err, core.ErrPoolPaused)
}

// TestAntiSpamFeeExempt verifies exempt pools charge no native fee.
func TestAntiSpamFeeExempt(t *testing.T) {
	l, pool, user := setup(t)
	l.MustDo(l.Authority, core.TxPoolWhiskyConfig, core.PoolWhiskyConfigPayload{Pool: pool, AntiSpamFeeExempt: true})
	p := flip(pool, solana.PublicKey{})
	p.CreatorFeeBps = 0
	l.MustDo(user, core.TxPlayGame, p)
	assert.Equal(t, uint64(ledgertest.UserNative), l.Balance(core.NativeMint, user.PubKey()))
}

// TestClaimAndClose walks a won game through claim and close.
func TestClaimAndClose(t *testing.T) {
	l, pool, user := setup(t)
	me := user.PubKey()

	err := l.Do(user, core.TxPlayerClaim, core.PlayerClaimPayload{})
	assert.ErrorIs(t, err, core.ErrCannotClaim)

	l.ForceOutcome(me, "client", len(coinFlip), 1)
	l.MustDo(user, core.TxPlayGame, flip(pool, l.NewUser().PubKey()))

	err = l.Do(user, core.TxPlayerClaim, core.PlayerClaimPayload{})
	assert.ErrorIs(t, err, core.ErrGameNotSettled)
	err = l.Do(user, core.TxPlayerClose, core.PlayerClosePayload{})
	assert.ErrorIs(t, err, core.ErrGameInProgress)

	require.NoError(t, l.Settle(me))
	err = l.Do(user, core.TxPlayerClose, core.PlayerClosePayload{})
	assert.ErrorIs(t, err, core.ErrUnclaimedBalance)

	l.MustDo(user, core.TxPlayerClaim, core.PlayerClaimPayload{})
	assert.Equal(t, core.GameStatusNone, l.Game(me).Status)
	assert.Zero(t, l.Balance(l.Mint, l.Addr.Player(me)))
	assert.Equal(t, uint64(ledgertest.UserUnderlying+1_000), l.Balance(l.Mint, me))

	claimed := l.EventsOf(events.EventPlayerClaimed)
	require.Len(t, claimed, 1)
	assert.Equal(t, uint64(2_000), claimed[0].Data.(events.PlayerClaimed).Amount)

	l.MustDo(user, core.TxPlayerClose, core.PlayerClosePayload{})
	_, err = l.State.GetPlayer(l.Addr.Player(me))
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = l.State.GetGame(l.Addr.Game(me))
	assert.ErrorIs(t, err, core.ErrNotFound)
}

// TestPlayWithBonus verifies bonus tokens fund part of the wager.
func TestPlayWithBonus(t *testing.T) {
	l, pool, user := setup(t)
	me := user.PubKey()
	l.MustDo(user, core.TxPoolMintBonusTokens, core.PoolMintBonusTokensPayload{Pool: pool, Amount: 300})

	l.ForceOutcome(me, "client", len(coinFlip), 1)
	l.MustDo(user, core.TxPlayGame, flip(pool, l.NewUser().PubKey()))

	g := l.Game(me)
	assert.Equal(t, uint64(300), g.BonusUsed)
	assert.Equal(t, uint64(700), g.UnderlyingUsed)
	assert.Zero(t, l.Balance(l.Addr.PoolBonusMint(pool), me), "bonus burnt")
	assert.Zero(t, l.Balance(l.Mint, l.Addr.PoolBonusUnderlying(pool)))
	assert.Equal(t, uint64(ledgertest.UserUnderlying-1_000), l.Balance(l.Mint, me))

	require.NoError(t, l.Settle(me))
	settled := l.EventsOf(events.EventGameSettled)
	require.Len(t, settled, 1)
	ev := settled[0].Data.(events.GameSettled)
	assert.Equal(t, uint64(600), ev.PayoutFromBonusPool)
	assert.Equal(t, uint64(1_400), ev.PayoutFromNormalPool)
	// Jackpot fee plus 10% of the bonus stake.
	assert.Equal(t, uint64(40), l.Balance(l.Mint, l.Addr.PoolJackpot(pool)))
}

// TestPlayRejectsUndistributableStake verifies a bonus-funded wager whose
// fee legs leave no room for the bonus conversion is refused at play time
// instead of failing every settlement.
func TestPlayRejectsUndistributableStake(t *testing.T) {
	l, pool, user := setup(t)
	me := user.PubKey()
	l.MustDo(user, core.TxPoolMintBonusTokens, core.PoolMintBonusTokensPayload{Pool: pool, Amount: 1_000})

	play := core.PlayGamePayload{Pool: pool, Wager: 1_000, Bet: coinFlip, ClientSeed: "client", JackpotFeeBps: 9_700}
	err := l.Do(user, core.TxPlayGame, play)
	assert.ErrorIs(t, err, core.ErrInvalidFeeConfiguration)
	assert.NotEqual(t, core.GameStatusResultRequested, l.Game(me).Status)
	assert.Equal(t, uint64(1_000), l.Balance(l.Addr.PoolBonusMint(pool), me), "bonus kept")
	assert.Zero(t, l.Pool(pool).PendingExposure)

	play.JackpotFeeBps = 8_000
	l.MustDo(user, core.TxPlayGame, play)
	require.NoError(t, l.Settle(me))
	assert.Equal(t, core.GameStatusReady, l.Game(me).Status)
	assert.Zero(t, l.Pool(pool).PendingExposure)
}

// TestPlayWithCustomBonusToken verifies custom bonus tokens are spent only up
// to the underlying held in the pool's bonus backing.
func TestPlayWithCustomBonusToken(t *testing.T) {
	l, pool, user := setup(t)
	me := user.PubKey()
	custom := l.NewUser().PubKey()
	l.MustDo(l.Authority, core.TxPoolWhiskyConfig, core.PoolWhiskyConfigPayload{
		Pool:                 pool,
		CustomBonusToken:     true,
		CustomBonusTokenMint: custom,
	})
	l.Fund(me, custom, 500)

	// Unbacked custom tokens do not block play.
	l.MustDo(user, core.TxPlayGame, flip(pool, l.NewUser().PubKey()))
	g := l.Game(me)
	assert.Zero(t, g.BonusUsed)
	assert.Equal(t, uint64(1_000), g.UnderlyingUsed)
	assert.Equal(t, uint64(500), l.Balance(custom, me))
	require.NoError(t, l.Settle(me))

	sponsor := l.NewUser()
	l.MustDo(sponsor, core.TxTransfer, core.TransferPayload{
		To:     l.Addr.PoolBonusUnderlying(pool),
		Mint:   l.Mint,
		Amount: 200,
	})
	l.MustDo(user, core.TxPlayGame, flip(pool, l.NewUser().PubKey()))
	g = l.Game(me)
	assert.Equal(t, uint64(200), g.BonusUsed)
	assert.Equal(t, uint64(800), g.UnderlyingUsed)
	assert.Equal(t, uint64(300), l.Balance(custom, me))
	assert.Equal(t, uint64(200), l.Balance(custom, pool))
	assert.Zero(t, l.Balance(l.Mint, l.Addr.PoolBonusUnderlying(pool)))
	require.NoError(t, l.Settle(me))
}

// TestValidateMetadata checks the metadata bound directly.
func TestValidateMetadata(t *testing.T) {
	assert.NoError(t, player.ValidateMetadata(strings.Repeat("é", 100)))
	assert.ErrorIs(t, player.ValidateMetadata(strings.Repeat("é", 101)), core.ErrInvalidMetadata)
}
