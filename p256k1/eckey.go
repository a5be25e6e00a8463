package p256k1

import (
	"crypto/rand"
	"errors"
)

// Public key serialization flags
const (
	ECCompressed   = 0x0102
	ECUncompressed = 0x0002
)

// PublicKey is a parsed secp256k1 public key, stored as x || y.
type PublicKey struct {
	data [64]byte
}

var (
	// ErrInvalidPrivateKey is returned for secret keys outside [1, n-1].
	ErrInvalidPrivateKey = errors.New("p256k1: invalid private key")

	// ErrInvalidPublicKey is returned when a public key does not decode to
	// a point on the curve.
	ErrInvalidPublicKey = errors.New("p256k1: invalid public key")
)

func (pk *PublicKey) point(p *GroupElementAffine) {
	p.fromBytes(pk.data[:])
}

func (pk *PublicKey) setPoint(p *GroupElementAffine) {
	p.toBytes(pk.data[:])
}

// SerializeCompressed returns the 33-byte SEC1 compressed form.
func (pk *PublicKey) SerializeCompressed() [33]byte {
	var out [33]byte
	ECPubkeySerialize(out[:], pk, ECCompressed)
	return out
}

// ECSeckeyVerify verifies that a 32-byte array is a valid secret key
func ECSeckeyVerify(seckey []byte) bool {
	if len(seckey) != 32 {
		return false
	}
	var s Scalar
	ok := s.setB32Seckey(seckey)
	s.clear()
	return ok
}

// ECSeckeyNegate negates a secret key in place
func ECSeckeyNegate(seckey []byte) bool {
	if len(seckey) != 32 {
		return false
	}
	var s Scalar
	if !s.setB32Seckey(seckey) {
		return false
	}
	s.negate(&s)
	s.getB32(seckey)
	s.clear()
	return true
}

// ECSeckeyGenerate generates a new random secret key
func ECSeckeyGenerate() ([]byte, error) {
	seckey := make([]byte, 32)
	for {
		if _, err := rand.Read(seckey); err != nil {
			return nil, err
		}
		if ECSeckeyVerify(seckey) {
			return seckey, nil
		}
	}
}

// ECSeckeyTweakAdd sets seckey = seckey + tweak mod n. The tweak must be
// below n and the result must not be zero.
func ECSeckeyTweakAdd(seckey []byte, tweak []byte) error {
	if len(seckey) != 32 || len(tweak) != 32 {
		return errors.New("secret key and tweak must be 32 bytes")
	}
	var s, t Scalar
	defer s.clear()
	if !s.setB32Seckey(seckey) {
		return ErrInvalidPrivateKey
	}
	if t.setB32(tweak) {
		return errors.New("tweak overflow")
	}
	s.add(&s, &t)
	if s.isZero() {
		return errors.New("tweaked secret key is zero")
	}
	s.getB32(seckey)
	return nil
}

// ECPubkeyCreate computes the public key seckey * G.
func ECPubkeyCreate(pubkey *PublicKey, seckey []byte) error {
	if len(seckey) != 32 {
		return ErrInvalidPrivateKey
	}
	var s Scalar
	defer s.clear()
	if !s.setB32Seckey(seckey) {
		return ErrInvalidPrivateKey
	}
	var p GroupElementAffine
	EcmultGen(&p, &s)
	pubkey.setPoint(&p)
	return nil
}

// ECPubkeyParse parses a 33-byte compressed or 65-byte uncompressed SEC1
// public key.
func ECPubkeyParse(pubkey *PublicKey, input []byte) error {
	var p GroupElementAffine
	var x, y FieldElement
	switch {
	case len(input) == 33 && (input[0] == 0x02 || input[0] == 0x03):
		if x.setB32(input[1:]) != nil {
			return ErrInvalidPublicKey
		}
		if !p.setXOVar(&x, input[0] == 0x03) {
			return ErrInvalidPublicKey
		}
	case len(input) == 65 && input[0] == 0x04:
		if x.setB32(input[1:33]) != nil || y.setB32(input[33:]) != nil {
			return ErrInvalidPublicKey
		}
		p.setXY(&x, &y)
		if !p.isValid() {
			return ErrInvalidPublicKey
		}
	default:
		return ErrInvalidPublicKey
	}
	pubkey.setPoint(&p)
	return nil
}

// ECPubkeySerialize writes the public key into output and returns the
// number of bytes written, or 0 if output is too small.
func ECPubkeySerialize(output []byte, pubkey *PublicKey, flags uint) int {
	var p GroupElementAffine
	pubkey.point(&p)
	if p.isInfinity() {
		return 0
	}
	if flags == ECCompressed {
		if len(output) < 33 {
			return 0
		}
		output[0] = 0x02
		if p.y.isOdd() {
			output[0] = 0x03
		}
		p.x.getB32(output[1:33])
		return 33
	}
	if len(output) < 65 {
		return 0
	}
	output[0] = 0x04
	p.x.getB32(output[1:33])
	p.y.getB32(output[33:65])
	return 65
}

// ECPubkeyTweakAdd sets pubkey = pubkey + tweak*G.
func ECPubkeyTweakAdd(pubkey *PublicKey, tweak []byte) error {
	if len(tweak) != 32 {
		return errors.New("tweak must be 32 bytes")
	}
	var t Scalar
	if t.setB32(tweak) {
		return errors.New("tweak overflow")
	}
	var p, tg GroupElementAffine
	pubkey.point(&p)
	if p.isInfinity() {
		return ErrInvalidPublicKey
	}
	EcmultGen(&tg, &t)
	p.add(&p, &tg)
	if p.isInfinity() {
		return errors.New("tweaked public key is infinity")
	}
	pubkey.setPoint(&p)
	return nil
}
