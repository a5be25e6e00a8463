// Package signer abstracts the signature algorithm implementation from
// the transaction builder. Two implementations are provided: P256K1Signer
// over this module's own curve code, and BtcecSigner over btcec.
package signer

import (
	"errors"
	"fmt"

	"btctx.mleku.dev/p256k1"
)

var (
	// ErrNoSecret is returned when signing before a key is loaded.
	ErrNoSecret = errors.New("signer: no secret key available")

	// ErrUnknownKey is returned by a KeyProvider that holds no key for a
	// derivation path.
	ErrUnknownKey = errors.New("signer: no key for derivation path")
)

// I holds one secret key and signs 32-byte digests with it.
type I interface {
	// InitSec loads a 32-byte secret key. The signer keeps its own copy.
	InitSec(sec []byte) error

	// Generate loads a fresh random key.
	Generate() error

	// Pub returns the 33-byte compressed public key.
	Pub() []byte

	// XOnlyPub returns the 32-byte x coordinate of the public key.
	XOnlyPub() []byte

	// TweakTaproot replaces the key with its BIP-341 output key secret
	// for the given merkle root (nil for key-path-only outputs).
	TweakTaproot(merkleRoot []byte) error

	// SignECDSA returns a low-S DER signature with an RFC 6979 nonce.
	SignECDSA(hash []byte) ([]byte, error)

	// VerifyECDSA checks a DER signature, optionally followed by a
	// sighash type byte, against Pub.
	VerifyECDSA(hash, der []byte) (bool, error)

	// SignSchnorr returns a 64-byte BIP-340 signature. A nil aux uses
	// the all-zero auxiliary input.
	SignSchnorr(hash, aux []byte) ([]byte, error)

	// VerifySchnorr checks a 64-byte signature against XOnlyPub.
	VerifySchnorr(hash, sig []byte) (bool, error)

	// Zero wipes the secret key.
	Zero()
}

// Factory returns a new signer with no key loaded.
type Factory func() I

// KeyProvider supplies the secret key for a derivation path. The returned
// slice belongs to the caller, which zeroes it after use.
type KeyProvider interface {
	PrivateKey(derivationPath string) ([]byte, error)
}

// KeyMap is a KeyProvider backed by a fixed set of keys.
type KeyMap map[string][]byte

// PrivateKey returns a copy of the key stored under derivationPath.
func (m KeyMap) PrivateKey(derivationPath string) ([]byte, error) {
	key, ok := m[derivationPath]
	if !ok {
		log.Debugf("No key for derivation path %q", derivationPath)
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, derivationPath)
	}
	return append([]byte(nil), key...), nil
}

// WithKey fetches the key for derivationPath, loads it into a signer made
// by newSigner and runs fn. The key buffer and the signer are wiped when
// WithKey returns, whatever fn does.
func WithKey(keys KeyProvider, derivationPath string, newSigner Factory,
	fn func(I) error) error {

	sec, err := keys.PrivateKey(derivationPath)
	if err != nil {
		return err
	}
	defer p256k1.ZeroBytes(sec)

	s := newSigner()
	defer s.Zero()
	if err := s.InitSec(sec); err != nil {
		return err
	}
	return fn(s)
}

func checkHash(hash []byte) error {
	if len(hash) != 32 {
		return fmt.Errorf("%w: %d bytes", p256k1.ErrInvalidHash, len(hash))
	}
	return nil
}
