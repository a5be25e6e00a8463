package p256k1

import (
	"errors"
	"unsafe"
)

var (
	bip340AuxTag       = []byte("BIP0340/aux")
	bip340NonceTag     = []byte("BIP0340/nonce")
	bip340ChallengeTag = []byte("BIP0340/challenge")
)

// ErrInvalidNonce is returned when the BIP-340 nonce hash reduces to zero.
var ErrInvalidNonce = errors.New("p256k1: nonce is zero")

// zeroMask is TaggedHash("BIP0340/aux", 0x00 * 32), the mask applied when
// no auxiliary randomness is supplied.
var zeroMask = [32]byte{
	84, 241, 105, 207, 201, 226, 229, 114,
	116, 128, 68, 31, 144, 186, 37, 196,
	136, 244, 97, 199, 11, 94, 165, 220,
	170, 247, 175, 105, 39, 10, 165, 20,
}

// nonceBIP340 computes TaggedHash("BIP0340/nonce", (d XOR mask) || P.x || m)
// where mask is TaggedHash("BIP0340/aux", auxRand32).
func nonceBIP340(nonce32 *[32]byte, msg32, key32, xonlyPk32, auxRand32 []byte) {
	mask := zeroMask
	if len(auxRand32) == 32 {
		mask = TaggedHash(bip340AuxTag, auxRand32)
	}
	var masked [32]byte
	for i := range masked {
		masked[i] = key32[i] ^ mask[i]
	}
	*nonce32 = TaggedHash(bip340NonceTag, masked[:], xonlyPk32, msg32)
	memclear(unsafe.Pointer(&masked), unsafe.Sizeof(masked))
	memclear(unsafe.Pointer(&mask), unsafe.Sizeof(mask))
}

// SchnorrSign creates a BIP-340 signature R.x || s. A nil auxRand32 uses
// the all-zero auxiliary input.
func SchnorrSign(sig64 []byte, msg32 []byte, keypair *KeyPair, auxRand32 []byte) error {
	if len(sig64) != 64 {
		return errors.New("signature must be 64 bytes")
	}
	if len(msg32) != 32 {
		return ErrInvalidHash
	}
	if keypair == nil {
		return errors.New("keypair cannot be nil")
	}
	if auxRand32 != nil && len(auxRand32) != 32 {
		return errors.New("aux randomness must be 32 bytes")
	}

	var sk, k, e, s Scalar
	var skBytes, nonce32 [32]byte
	defer func() {
		sk.clear()
		k.clear()
		memclear(unsafe.Pointer(&skBytes), unsafe.Sizeof(skBytes))
		memclear(unsafe.Pointer(&nonce32), unsafe.Sizeof(nonce32))
	}()

	if !sk.setB32Seckey(keypair.seckey[:]) {
		return ErrInvalidPrivateKey
	}
	var pk GroupElementAffine
	keypair.pubkey.point(&pk)
	if pk.isInfinity() {
		return ErrInvalidPublicKey
	}

	// The committed key always has even Y.
	if pk.y.isOdd() {
		sk.negate(&sk)
	}
	sk.getB32(skBytes[:])

	var pkX [32]byte
	pk.x.getB32(pkX[:])

	nonceBIP340(&nonce32, msg32, skBytes[:], pkX[:], auxRand32)
	k.setB32(nonce32[:])
	if k.isZero() {
		return ErrInvalidNonce
	}

	var r GroupElementAffine
	EcmultGen(&r, &k)
	if r.y.isOdd() {
		k.negate(&k)
	}
	var r32 [32]byte
	r.x.getB32(r32[:])

	challenge := TaggedHash(bip340ChallengeTag, r32[:], pkX[:], msg32)
	e.setB32(challenge[:])

	// s = k + e*d
	s.mul(&e, &sk)
	s.add(&s, &k)

	copy(sig64[:32], r32[:])
	s.getB32(sig64[32:])
	return nil
}

// SchnorrVerify verifies a BIP-340 signature against an x-only public key.
func SchnorrVerify(sig64 []byte, msg32 []byte, xonlyPubkey *XOnlyPubkey) bool {
	if len(sig64) != 64 || len(msg32) != 32 || xonlyPubkey == nil {
		return false
	}

	var rx FieldElement
	if rx.setB32(sig64[:32]) != nil {
		return false
	}
	var s Scalar
	if s.setB32(sig64[32:]) {
		return false
	}

	var pk GroupElementAffine
	if !liftX(&pk, xonlyPubkey.data[:]) {
		return false
	}

	challenge := TaggedHash(bip340ChallengeTag, sig64[:32], xonlyPubkey.data[:], msg32)
	var e Scalar
	e.setB32(challenge[:])
	e.negate(&e)

	// R' = s*G - e*P
	var r GroupElementAffine
	ecmultDouble(&r, &e, &pk, &s)
	if r.isInfinity() || r.y.isOdd() {
		return false
	}
	return r.x.equal(&rx)
}
