package pda

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMint = solana.MustPublicKeyFromBase58("Gc5ZqCdVr8iDcRVxCCZP29RfKwHcD6jukCEY2xWZ9n8p")

// TestDerivationDeterministic verifies that the same inputs always produce
// the same address and that distinct seeds never collide.
func TestDerivationDeterministic(t *testing.T) {
	d1 := NewDeriver(DefaultProgramID)
	d2 := NewDeriver(DefaultProgramID)

	auth := solana.PublicKey{}
	assert.Equal(t, d1.Pool(testMint, auth), d2.Pool(testMint, auth))
	assert.Equal(t, d1.WhiskyState(), d2.WhiskyState())

	set := d1.PoolSet(testMint, auth)
	seen := map[solana.PublicKey]bool{}
	for _, a := range []solana.PublicKey{set.Pool, set.Reserve, set.Jackpot, set.BonusUnderlying, set.BonusMint, set.LPMint, d1.WhiskyState()} {
		require.False(t, seen[a], "address collision %s", a)
		seen[a] = true
	}

	user := solana.MustPublicKeyFromBase58("8XFuHVrvEKCjquEuMM31m3htwRoAwsvHBMRhwyeVrvQo")
	assert.NotEqual(t, d1.Player(user), d1.Game(user))
}

// TestDerivationMatchesFindProgramAddress checks the cache returns the
// canonical bump address.
func TestDerivationMatchesFindProgramAddress(t *testing.T) {
	d := NewDeriver(DefaultProgramID)
	want, _, err := solana.FindProgramAddress([][]byte{[]byte(SeedWhiskyState)}, DefaultProgramID)
	require.NoError(t, err)
	assert.Equal(t, want, d.WhiskyState())
	assert.Equal(t, want, d.WhiskyState())
}

// TestPoolAuthorityScopesPool verifies that a private pool and the public pool
// of the same mint are distinct accounts.
func TestPoolAuthorityScopesPool(t *testing.T) {
	d := NewDeriver(DefaultProgramID)
	private := solana.MustPublicKeyFromBase58("8XFuHVrvEKCjquEuMM31m3htwRoAwsvHBMRhwyeVrvQo")
	assert.NotEqual(t, d.Pool(testMint, solana.PublicKey{}), d.Pool(testMint, private))

	other := NewDeriver(solana.MustPublicKeyFromBase58("8XFuHVrvEKCjquEuMM31m3htwRoAwsvHBMRhwyeVrvQo"))
	assert.NotEqual(t, d.WhiskyState(), other.WhiskyState())
}
