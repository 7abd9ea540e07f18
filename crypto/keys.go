package crypto

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// GenerateKeyPair generates a new ed25519 key pair in solana encoding.
func GenerateKeyPair() (solana.PrivateKey, solana.PublicKey, error) {
	priv, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("generate key: %w", err)
	}
	return priv, priv.PublicKey(), nil
}

// PubKeyFromBase58 decodes a base58 public key.
func PubKeyFromBase58(s string) (solana.PublicKey, error) {
	pub, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid pubkey: %w", err)
	}
	return pub, nil
}

// PrivKeyFromBase58 decodes a base58 private key (64 bytes, seed || pub).
func PrivKeyFromBase58(s string) (solana.PrivateKey, error) {
	priv, err := solana.PrivateKeyFromBase58(s)
	if err != nil {
		return nil, fmt.Errorf("invalid privkey: %w", err)
	}
	if len(priv) != 64 {
		return nil, fmt.Errorf("privkey must be 64 bytes, got %d", len(priv))
	}
	return priv, nil
}
