package p256k1

import (
	"errors"
	"unsafe"
)

var (
	// ErrInvalidHash is returned when a message hash is not 32 bytes.
	ErrInvalidHash = errors.New("p256k1: message hash must be 32 bytes")

	// ErrSigningFailed is returned when no valid signature could be
	// produced.
	ErrSigningFailed = errors.New("p256k1: signing failed")
)

// maxNonceAttempts bounds the RFC 6979 candidate search. Each candidate is
// rejected with probability about 2^-128, so hitting the bound means the
// generator is broken.
const maxNonceAttempts = 64

// ECDSASignature represents an ECDSA signature
type ECDSASignature struct {
	r, s Scalar
}

// R returns r as 32 big-endian bytes.
func (sig *ECDSASignature) R() [32]byte {
	var b [32]byte
	sig.r.getB32(b[:])
	return b
}

// S returns s as 32 big-endian bytes.
func (sig *ECDSASignature) S() [32]byte {
	var b [32]byte
	sig.s.getB32(b[:])
	return b
}

// IsLowS reports whether s <= n/2.
func (sig *ECDSASignature) IsLowS() bool {
	return !sig.s.isHigh()
}

// ECDSASign creates a deterministic (RFC 6979) low-S ECDSA signature for a
// 32-byte message hash.
func ECDSASign(sig *ECDSASignature, msghash32 []byte, seckey []byte) error {
	if len(msghash32) != 32 {
		return ErrInvalidHash
	}
	if len(seckey) != 32 {
		return ErrInvalidPrivateKey
	}

	var sec, msg, nonce, nonceInv, t Scalar
	defer func() {
		sec.clear()
		nonce.clear()
		nonceInv.clear()
		t.clear()
	}()
	if !sec.setB32Seckey(seckey) {
		return ErrInvalidPrivateKey
	}
	msg.setB32(msghash32)

	// The DRBG is keyed with the secret key followed by the message reduced
	// mod n, so the nonces agree with libsecp256k1 and btcec.
	var keyMaterial [64]byte
	copy(keyMaterial[:32], seckey)
	msg.getB32(keyMaterial[32:])
	rng := NewRFC6979HMACSHA256(keyMaterial[:])
	memclear(unsafe.Pointer(&keyMaterial), unsafe.Sizeof(keyMaterial))
	defer rng.Clear()

	var nonceBytes [32]byte
	defer memclear(unsafe.Pointer(&nonceBytes), unsafe.Sizeof(nonceBytes))

	for attempt := 0; attempt < maxNonceAttempts; attempt++ {
		rng.Generate(nonceBytes[:])
		if !nonce.setB32Seckey(nonceBytes[:]) {
			continue
		}

		var rp GroupElementAffine
		EcmultGen(&rp, &nonce)
		if rp.isInfinity() {
			continue
		}
		var rBytes [32]byte
		rp.x.getB32(rBytes[:])
		sig.r.setB32(rBytes[:])
		if sig.r.isZero() {
			continue
		}

		// s = k^-1 * (z + r*d)
		t.mul(&sig.r, &sec)
		t.add(&t, &msg)
		nonceInv.inverse(&nonce)
		sig.s.mul(&nonceInv, &t)
		if sig.s.isZero() {
			continue
		}
		if sig.s.isHigh() {
			sig.s.negate(&sig.s)
		}
		return nil
	}

	return ErrSigningFailed
}

// ECDSAVerify verifies an ECDSA signature against a message hash and public key
func ECDSAVerify(sig *ECDSASignature, msghash32 []byte, pubkey *PublicKey) bool {
	if len(msghash32) != 32 || sig == nil || pubkey == nil {
		return false
	}
	if sig.r.isZero() || sig.s.isZero() {
		return false
	}

	var q GroupElementAffine
	pubkey.point(&q)
	if !q.isValid() {
		return false
	}

	var z, w, u1, u2 Scalar
	z.setB32(msghash32)
	w.inverse(&sig.s)
	u1.mul(&z, &w)
	u2.mul(&sig.r, &w)

	var pt GroupElementAffine
	ecmultDouble(&pt, &u2, &q, &u1)
	if pt.isInfinity() {
		return false
	}

	var xBytes [32]byte
	var x Scalar
	pt.x.getB32(xBytes[:])
	x.setB32(xBytes[:])
	return x.equal(&sig.r)
}

// ECDSAVerifyDER parses a DER signature, with or without a trailing sighash
// type byte, and verifies it.
func ECDSAVerifyDER(der []byte, msghash32 []byte, pubkey *PublicKey) bool {
	sig, err := ParseDERSignature(der)
	if err != nil {
		return false
	}
	return ECDSAVerify(sig, msghash32, pubkey)
}
