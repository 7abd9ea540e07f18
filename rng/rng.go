// Package rng implements the commit-reveal randomness of a game. The RNG
// provider commits sha256(seed) before the player bets and reveals seed at
// settlement; the result is bound to the seed, the player's client seed and
// the game nonce.
package rng

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/bits"
	"strconv"
	"unicode/utf8"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
	"github.com/whiskylabs/whisky-protocol-core-sub001/crypto"
)

const (
	MaxSeedLen       = 128
	MaxClientSeedLen = 64

	// resultHexChars is the slice of the digest that selects the outcome.
	resultHexChars = 5
	resultBits     = 4 * resultHexChars

	jackpotHexStart = 5
	jackpotHexEnd   = 15
	jackpotModulus  = 10_000_000_000
)

// Commit returns the commitment published for seed.
func Commit(seed string) core.Hash {
	return core.Hash(crypto.Commitment(seed))
}

// NewSeed returns a fresh 32-byte secret seed, hex encoded.
func NewSeed() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

// ValidateSeed checks the shape of a revealed seed.
func ValidateSeed(seed string) error {
	if seed == "" || len(seed) > MaxSeedLen {
		return core.ErrInvalidRngSeed.Withf("seed length %d", len(seed))
	}
	return nil
}

// ValidateCommitment rejects the zero hash.
func ValidateCommitment(h core.Hash) error {
	if h.IsZero() {
		return core.ErrInvalidRngSeed.Withf("zero commitment")
	}
	return nil
}

// ValidateClientSeed bounds the player-supplied seed.
func ValidateClientSeed(seed string) error {
	if seed == "" || len(seed) > MaxClientSeedLen || !utf8.ValidString(seed) {
		return core.ErrInvalidClientSeed.Withf("client seed length %d", len(seed))
	}
	return nil
}

// VerifyReveal checks that seed opens commitment.
func VerifyReveal(seed string, commitment core.Hash) error {
	if err := ValidateSeed(seed); err != nil {
		return err
	}
	got := Commit(seed)
	if !hmac.Equal(got[:], commitment[:]) {
		return core.ErrSeedHashMismatch.Withf("sha256(seed)=%s commitment=%s", got, commitment)
	}
	return nil
}

// ResultDigest is hex(HMAC-SHA256(key=rngSeed, msg=clientSeed+"-"+nonce)).
func ResultDigest(rngSeed, clientSeed string, nonce uint64) string {
	h := hmac.New(sha256.New, []byte(rngSeed))
	h.Write([]byte(clientSeed + "-" + strconv.FormatUint(nonce, 10)))
	return hex.EncodeToString(h.Sum(nil))
}

// ResultValue reads the first 20 bits of the digest.
func ResultValue(digest string) (uint64, error) {
	if len(digest) < resultHexChars {
		return 0, core.ErrCalculationError.Withf("digest too short")
	}
	v, err := strconv.ParseUint(digest[:resultHexChars], 16, 64)
	if err != nil {
		return 0, core.ErrCalculationError.Withf("digest: %v", err)
	}
	return v, nil
}

// SelectOutcome maps a 20-bit value onto the cumulative weight table and
// returns the index whose range [sum(w[0..i)), sum(w[0..i+1))) contains
// value*total/2^20.
func SelectOutcome(value uint64, weights []uint64) (int, error) {
	if value >= 1<<resultBits {
		return 0, core.ErrCalculationError.Withf("result value %d exceeds %d bits", value, resultBits)
	}
	var total uint64
	for _, w := range weights {
		var carry uint64
		total, carry = bits.Add64(total, w, 0)
		if carry != 0 {
			return 0, core.ErrMathOverflow.Withf("outcome weights")
		}
	}
	if total == 0 {
		return 0, core.ErrCalculationError.Withf("zero total weight")
	}
	hi, lo := bits.Mul64(value, total)
	scaled := hi<<(64-resultBits) | lo>>resultBits

	var cum uint64
	for i, w := range weights {
		cum += w
		if scaled < cum {
			return i, nil
		}
	}
	return 0, core.ErrCalculationError.Withf("scaled value %d outside weight table", scaled)
}

// ResultIndex derives the outcome index of a game with equally weighted
// outcomes.
func ResultIndex(rngSeed, clientSeed string, nonce uint64, outcomes int) (int, error) {
	weights := make([]uint64, outcomes)
	for i := range weights {
		weights[i] = 1
	}
	v, err := ResultValue(ResultDigest(rngSeed, clientSeed, nonce))
	if err != nil {
		return 0, err
	}
	return SelectOutcome(v, weights)
}

// JackpotRoll draws from the digest slice after the result bits, reduced to
// [0, 1e10) so it compares directly with a micro-bps probability.
func JackpotRoll(digest string) (uint64, error) {
	if len(digest) < jackpotHexEnd {
		return 0, core.ErrCalculationError.Withf("digest too short")
	}
	v, err := strconv.ParseUint(digest[jackpotHexStart:jackpotHexEnd], 16, 64)
	if err != nil {
		return 0, core.ErrCalculationError.Withf("digest: %v", err)
	}
	return v % jackpotModulus, nil
}

// JackpotTriggered reports whether roll falls under probabilityUbps.
func JackpotTriggered(roll, probabilityUbps uint64) bool {
	return roll < probabilityUbps
}
