package wallet

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
)

// TestKeystoreRoundTrip verifies a saved key decrypts to the same key.
func TestKeystoreRoundTrip(t *testing.T) {
	w, err := Generate()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "key.json")

	require.NoError(t, SaveKey(path, "hunter2", w.PrivKey()))
	priv, err := LoadKey(path, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, w.PubKey(), priv.PublicKey())

	_, err = LoadKey(path, "wrong")
	assert.Error(t, err)
}

// TestBuildersSign verifies every builder returns a verifiable transaction.
func TestBuildersSign(t *testing.T) {
	w, err := Generate()
	require.NoError(t, err)
	other, err := Generate()
	require.NoError(t, err)

	tx, err := w.Play(core.PlayGamePayload{Pool: other.PubKey(), Wager: 10, Bet: []uint32{0, 20000}, ClientSeed: "c"}, 3)
	require.NoError(t, err)
	assert.Equal(t, core.TxPlayGame, tx.Type)
	assert.Equal(t, uint64(3), tx.Nonce)
	assert.NoError(t, tx.Verify())

	tx, err = w.Settle(other.PubKey(), "seed", core.Hash{1}, 4)
	require.NoError(t, err)
	assert.NoError(t, tx.Verify())

	// Tampering with the payload invalidates the signature.
	tx.Payload = []byte(`{"user":"` + w.PubKey().String() + `"}`)
	assert.Error(t, tx.Verify())
}
