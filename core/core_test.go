package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) solana.PrivateKey {
	t.Helper()
	priv, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return priv
}

// TestProgramErrorIs verifies that errors match by code through wrapping and
// detail.
func TestProgramErrorIs(t *testing.T) {
	err := fmt.Errorf("play: %w", ErrWagerTooLow.Withf("wager %d < %d", 1, 10))
	assert.True(t, errors.Is(err, ErrWagerTooLow))
	assert.False(t, errors.Is(err, ErrWagerTooHigh))

	pe, ok := AsProgramError(err)
	require.True(t, ok)
	assert.Equal(t, uint32(6405), pe.Code)
	assert.Equal(t, KindGame, pe.Kind)
	assert.Contains(t, pe.Error(), "wager 1 < 10")
	assert.Empty(t, ErrWagerTooLow.Detail, "Withf must not mutate the sentinel")
}

// TestLookupError verifies that every code resolves to exactly one definition.
func TestLookupError(t *testing.T) {
	e, ok := LookupError(6014)
	require.True(t, ok)
	assert.Equal(t, "SeedHashMismatch", e.Name)

	_, ok = LookupError(1)
	assert.False(t, ok)

	names := make(map[string]uint32)
	for code, e := range errorsByCode {
		if prev, dup := names[e.Name]; dup {
			t.Fatalf("name %s used by %d and %d", e.Name, prev, code)
		}
		names[e.Name] = code
	}
}

// TestLayoutRoundTrip verifies the discriminated account codec.
func TestLayoutRoundTrip(t *testing.T) {
	g := &Game{
		User:                   newKey(t).PublicKey(),
		Nonce:                  7,
		Status:                 GameStatusReady,
		Bet:                    []uint32{0, 20000},
		ClientSeed:             "seed",
		NextRngSeedHashed:      Hash{1, 2, 3},
		Wager:                  1000,
		JackpotProbabilityUbps: 42,
	}
	data, err := EncodeAccount(DiscGame, g)
	require.NoError(t, err)
	assert.Equal(t, byte(DiscGame), data[0])
	assert.Equal(t, byte(1), data[1])

	var got Game
	require.NoError(t, DecodeAccount(DiscGame, data, &got))
	assert.Equal(t, *g, got)
}

// TestLayoutRejectsUnknownVersion verifies that a stored account with a
// layout version this build does not know is refused.
func TestLayoutRejectsUnknownVersion(t *testing.T) {
	data, err := EncodeAccount(DiscPlayer, &Player{Nonce: 1})
	require.NoError(t, err)

	data[1] = 99
	var p Player
	assert.ErrorContains(t, DecodeAccount(DiscPlayer, data, &p), "unsupported layout version")

	data[1] = 1
	assert.ErrorContains(t, DecodeAccount(DiscGame, data, &p), "discriminator mismatch")
	assert.Error(t, DecodeAccount(DiscPlayer, data[:1], &p))

	_, err = EncodeAccount(Discriminator(200), &p)
	assert.Error(t, err)
}

// TestTransactionSignVerify ensures transaction signing and verification work.
func TestTransactionSignVerify(t *testing.T) {
	priv := newKey(t)
	tx, err := NewTransaction(TxPoolDeposit, priv.PublicKey(), 0, PoolDepositPayload{Amount: 5})
	require.NoError(t, err)
	require.NoError(t, tx.Sign(priv))
	assert.NotEmpty(t, tx.ID)
	require.NoError(t, tx.Verify())

	tx.Payload = []byte(`{"amount":6}`)
	assert.Error(t, tx.Verify(), "tampered payload must fail verification")

	other, err := NewTransaction(TxPoolDeposit, priv.PublicKey(), 0, PoolDepositPayload{Amount: 5})
	require.NoError(t, err)
	other.From = newKey(t).PublicKey()
	require.NoError(t, other.Sign(priv))
	assert.Error(t, other.Verify(), "signature by a key other than From must fail")
}

// TestMempoolOrdering verifies insertion-ordered draining and duplicate rejection.
func TestMempoolOrdering(t *testing.T) {
	priv := newKey(t)
	mp := NewMempool()
	var ids []string
	for i := uint64(0); i < 3; i++ {
		tx, err := NewTransaction(TxPlayerClaim, priv.PublicKey(), i, PlayerClaimPayload{})
		require.NoError(t, err)
		require.NoError(t, tx.Sign(priv))
		require.NoError(t, mp.Add(tx))
		ids = append(ids, tx.ID)
	}
	dup, _ := mp.Get(ids[0])
	assert.ErrorIs(t, mp.Add(dup), ErrDuplicateTx)

	pending := mp.Pending(10)
	require.Len(t, pending, 3)
	for i, tx := range pending {
		assert.Equal(t, ids[i], tx.ID)
	}

	mp.Remove(ids[:1])
	assert.Equal(t, 2, mp.Size())
	assert.Equal(t, ids[1], mp.Pending(1)[0].ID)
}

// TestSlotSignVerify verifies slot hashing and leader signatures.
func TestSlotSignVerify(t *testing.T) {
	leader := newKey(t)
	slot := NewSlot(1, "", leader.PublicKey(), nil)
	slot.Header.StateRoot = "root"
	require.NoError(t, slot.Sign(leader))
	require.NoError(t, slot.Verify())

	slot.Header.StateRoot = "other"
	slot.Hash = slot.ComputeHash()
	assert.Error(t, slot.Verify())
}

// TestReceiptCarriesErrorCode verifies failed receipts keep the program code.
func TestReceiptCarriesErrorCode(t *testing.T) {
	tx := &Transaction{ID: "abc", Type: TxRngSettle}
	r := NewReceipt(tx, 3, fmt.Errorf("settle: %w", ErrDuplicateSettlement))
	assert.False(t, r.Success)
	assert.Equal(t, uint32(6015), r.ErrorCode)

	ok := NewReceipt(tx, 3, nil)
	assert.True(t, ok.Success)
	assert.Zero(t, ok.ErrorCode)
}

func TestProtocolConfigPaused(t *testing.T) {
	cfg := &ProtocolConfig{}
	assert.True(t, cfg.Paused())
	cfg.PlayingAllowed = true
	assert.False(t, cfg.Paused())

	rng := newKey(t).PublicKey()
	cfg.RngAddress2 = rng
	assert.True(t, cfg.IsRngAuthority(rng))
	assert.False(t, cfg.IsRngAuthority(solana.PublicKey{}))
}
