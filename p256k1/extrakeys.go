package p256k1

import (
	"errors"
	"unsafe"
)

// XOnlyPubkey represents an x-only public key (32 bytes, just X coordinate).
// The implied point is the one with even Y.
type XOnlyPubkey struct {
	data [32]byte
}

// KeyPair represents a keypair consisting of a secret key and public key
// Used for Schnorr signatures
type KeyPair struct {
	seckey [32]byte
	pubkey PublicKey
}

// ErrInvalidXOnlyKey is returned when 32 bytes are not the x coordinate of
// a curve point.
var ErrInvalidXOnlyKey = errors.New("p256k1: invalid x-only public key")

// liftX returns the curve point with the given x coordinate and even y, as
// defined by BIP-340. It fails when x >= p or x^3 + 7 is not a square.
func liftX(r *GroupElementAffine, x32 []byte) bool {
	var x FieldElement
	if x.setB32(x32) != nil {
		return false
	}
	return r.setXOVar(&x, false)
}

// XOnlyPubkeyParse parses a 32-byte sequence into an x-only public key
func XOnlyPubkeyParse(input32 []byte) (*XOnlyPubkey, error) {
	if len(input32) != 32 {
		return nil, errors.New("input must be 32 bytes")
	}
	var p GroupElementAffine
	if !liftX(&p, input32) {
		return nil, ErrInvalidXOnlyKey
	}
	var xonly XOnlyPubkey
	copy(xonly.data[:], input32)
	return &xonly, nil
}

// Serialize serializes an x-only public key to 32 bytes
func (xonly *XOnlyPubkey) Serialize() [32]byte {
	return xonly.data
}

// XOnlyPubkeyFromPubkey converts a PublicKey to an XOnlyPubkey
// Returns the x-only pubkey and parity (1 if Y was odd, 0 if even)
func XOnlyPubkeyFromPubkey(pubkey *PublicKey) (*XOnlyPubkey, int, error) {
	if pubkey == nil {
		return nil, 0, errors.New("pubkey cannot be nil")
	}
	var pt GroupElementAffine
	pubkey.point(&pt)
	if pt.isInfinity() {
		return nil, 0, ErrInvalidPublicKey
	}
	parity := 0
	if pt.y.isOdd() {
		parity = 1
	}
	var xonly XOnlyPubkey
	pt.x.getB32(xonly.data[:])
	return &xonly, parity, nil
}

// KeyPairCreate creates a keypair from a secret key
func KeyPairCreate(seckey []byte) (*KeyPair, error) {
	if len(seckey) != 32 {
		return nil, ErrInvalidPrivateKey
	}
	kp := &KeyPair{}
	if err := ECPubkeyCreate(&kp.pubkey, seckey); err != nil {
		return nil, err
	}
	copy(kp.seckey[:], seckey)
	return kp, nil
}

// KeyPairGenerate generates a new random keypair
func KeyPairGenerate() (*KeyPair, error) {
	seckey, err := ECSeckeyGenerate()
	if err != nil {
		return nil, err
	}
	defer ZeroBytes(seckey)
	return KeyPairCreate(seckey)
}

// Seckey returns the secret key
func (kp *KeyPair) Seckey() []byte {
	return kp.seckey[:]
}

// Pubkey returns the public key
func (kp *KeyPair) Pubkey() *PublicKey {
	return &kp.pubkey
}

// XOnlyPubkey returns the x-only public key
func (kp *KeyPair) XOnlyPubkey() (*XOnlyPubkey, error) {
	xonly, _, err := XOnlyPubkeyFromPubkey(&kp.pubkey)
	return xonly, err
}

// Clear clears the keypair to prevent leaking sensitive information
func (kp *KeyPair) Clear() {
	memclear(unsafe.Pointer(&kp.seckey[0]), 32)
	kp.pubkey.data = [64]byte{}
}
