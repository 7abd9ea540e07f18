package crypto

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Sign signs data with the private key.
func Sign(priv solana.PrivateKey, data []byte) (solana.Signature, error) {
	sig, err := priv.Sign(data)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("ed25519 sign: %w", err)
	}
	return sig, nil
}

// Verify checks sig against data using the public key.
func Verify(pub solana.PublicKey, data []byte, sig solana.Signature) error {
	if sig.IsZero() {
		return errors.New("missing signature")
	}
	if !sig.Verify(pub, data) {
		return errors.New("signature verification failed")
	}
	return nil
}
