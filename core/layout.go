package core

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
)

// Discriminator is the first byte of every stored account and names its kind.
type Discriminator uint8

const (
	DiscAccount Discriminator = iota + 1
	DiscProtocolConfig
	DiscPool
	DiscPlayer
	DiscGame
	DiscTokenAccount
	DiscMint
)

// layoutVersions holds the current layout version of each account kind.
// Bump the version when a field is added and keep a decoder for the old one.
var layoutVersions = map[Discriminator]uint8{
	DiscAccount:        1,
	DiscProtocolConfig: 1,
	DiscPool:           1,
	DiscPlayer:         1,
	DiscGame:           1,
	DiscTokenAccount:   1,
	DiscMint:           1,
}

const headerSize = 2

// EncodeAccount serialises v as [discriminator, version, borsh body].
func EncodeAccount(disc Discriminator, v any) ([]byte, error) {
	version, ok := layoutVersions[disc]
	if !ok {
		return nil, fmt.Errorf("unknown account discriminator %d", disc)
	}
	var buf bytes.Buffer
	buf.WriteByte(byte(disc))
	buf.WriteByte(version)
	if err := bin.NewBorshEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("encode account %d: %w", disc, err)
	}
	return buf.Bytes(), nil
}

// DecodeAccount parses data written by EncodeAccount into v, rejecting a
// mismatched kind or an unsupported layout version.
func DecodeAccount(disc Discriminator, data []byte, v any) error {
	if len(data) < headerSize {
		return fmt.Errorf("account data too short: %d bytes", len(data))
	}
	if got := Discriminator(data[0]); got != disc {
		return fmt.Errorf("account discriminator mismatch: got %d want %d", got, disc)
	}
	if got, want := data[1], layoutVersions[disc]; got != want {
		return fmt.Errorf("unsupported layout version %d for account %d (want %d)", got, disc, want)
	}
	if err := bin.NewBorshDecoder(data[headerSize:]).Decode(v); err != nil {
		return fmt.Errorf("decode account %d: %w", disc, err)
	}
	return nil
}
