// Package wallet holds the locally cached Aptos wallet for each identity.
package wallet

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
)

// singleKeyScheme is the Aptos authentication scheme byte for a single
// ed25519 public key.
const singleKeyScheme = 0x00

var (
	// ErrNotFound is returned when no wallet is stored for a key.
	ErrNotFound = errors.New("wallet not found")

	// ErrCorrupt marks a stored wallet that fails decryption or validation.
	ErrCorrupt = errors.New("wallet corrupted")
)

// Record is a stored wallet. PrivateKey is the hex-encoded ed25519 seed.
type Record struct {
	Address    string    `json:"address"`
	PublicKey  string    `json:"public_key"`
	PrivateKey string    `json:"private_key"`
	CreatedAt  time.Time `json:"created_at"`
}

// FromSeed builds a record from an existing 32-byte ed25519 seed.
func FromSeed(seed []byte) (Record, error) {
	if len(seed) != ed25519.SeedSize {
		return Record{}, fmt.Errorf("seed: got %d bytes, want %d", len(seed), ed25519.SeedSize)
	}

	pub := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)

	return Record{
		Address:    Address(pub),
		PublicKey:  "0x" + hex.EncodeToString(pub),
		PrivateKey: "0x" + hex.EncodeToString(seed),
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Address derives the account address for a single ed25519 public key.
func Address(pub ed25519.PublicKey) string {
	sum := sha3.Sum256(append(append([]byte{}, pub...), singleKeyScheme))
	return "0x" + hex.EncodeToString(sum[:])
}

// Validate checks the record's shape and that its address and public key
// are derived from its private key. Failures wrap ErrCorrupt.
func (r Record) Validate() error {
	seed, err := decodeHex(r.PrivateKey, ed25519.SeedSize)
	if err != nil {
		return fmt.Errorf("%w: private key: %v", ErrCorrupt, err)
	}

	pub, err := decodeHex(r.PublicKey, ed25519.PublicKeySize)
	if err != nil {
		return fmt.Errorf("%w: public key: %v", ErrCorrupt, err)
	}

	if _, err := decodeHex(r.Address, 32); err != nil {
		return fmt.Errorf("%w: address: %v", ErrCorrupt, err)
	}

	derived := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
	if !bytes.Equal(derived, pub) {
		return fmt.Errorf("%w: public key does not match private key", ErrCorrupt)
	}

	if !strings.EqualFold(Address(derived), r.Address) {
		return fmt.Errorf("%w: address does not match public key", ErrCorrupt)
	}

	return nil
}

func decodeHex(s string, size int) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, err
	}
	if len(b) != size {
		return nil, fmt.Errorf("got %d bytes, want %d", len(b), size)
	}
	return b, nil
}
