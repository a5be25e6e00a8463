package p256k1

import (
	"errors"
	"fmt"
)

var tapTweakTag = []byte("TapTweak")

// ErrInvalidTweak is returned when a taproot tweak is not below n or
// produces the point at infinity.
var ErrInvalidTweak = errors.New("p256k1: invalid taproot tweak")

// tapTweakHash returns TapTweak(internalX || merkleRoot), which must be a
// valid scalar.
func tapTweakHash(internalX []byte, merkleRoot []byte) ([32]byte, error) {
	h := TaggedHash(tapTweakTag, internalX, merkleRoot)
	var t Scalar
	if t.setB32(h[:]) {
		return h, ErrInvalidTweak
	}
	return h, nil
}

// TaprootOutputKey returns the BIP-341 output key Q = P + TapTweak(P.x ||
// merkleRoot)*G for the internal key P, together with the parity of Q.y.
// An empty merkleRoot gives the BIP-86 key-path-only commitment.
func TaprootOutputKey(internal *XOnlyPubkey, merkleRoot []byte) (*XOnlyPubkey, int, error) {
	if internal == nil {
		return nil, 0, ErrInvalidXOnlyKey
	}
	var p GroupElementAffine
	if !liftX(&p, internal.data[:]) {
		return nil, 0, ErrInvalidXOnlyKey
	}
	tweak, err := tapTweakHash(internal.data[:], merkleRoot)
	if err != nil {
		return nil, 0, err
	}

	var q PublicKey
	q.setPoint(&p)
	if err := ECPubkeyTweakAdd(&q, tweak[:]); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidTweak, err)
	}
	return XOnlyPubkeyFromPubkey(&q)
}

// TaprootTweakSeckey writes into out32 the secret key for the output key
// produced by TaprootOutputKey from seckey's x-only public key. The secret
// is first negated if its public key has odd Y. On error out32 is zeroed.
func TaprootTweakSeckey(out32 []byte, seckey []byte, merkleRoot []byte) error {
	if len(out32) != 32 {
		return errors.New("output buffer must be 32 bytes")
	}
	if len(seckey) != 32 {
		return ErrInvalidPrivateKey
	}
	copy(out32, seckey)

	var pk PublicKey
	if err := ECPubkeyCreate(&pk, out32); err != nil {
		ZeroBytes(out32)
		return err
	}
	xonly, parity, err := XOnlyPubkeyFromPubkey(&pk)
	if err != nil {
		ZeroBytes(out32)
		return err
	}
	if parity == 1 {
		ECSeckeyNegate(out32)
	}

	tweak, err := tapTweakHash(xonly.data[:], merkleRoot)
	if err != nil {
		ZeroBytes(out32)
		return err
	}
	if err := ECSeckeyTweakAdd(out32, tweak[:]); err != nil {
		ZeroBytes(out32)
		return fmt.Errorf("%w: %v", ErrInvalidTweak, err)
	}
	return nil
}
