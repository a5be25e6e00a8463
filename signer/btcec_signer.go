package signer

import (
	"errors"

	"btctx.mleku.dev/p256k1"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
)

// BtcecSigner implements I using btcec.
type BtcecSigner struct {
	privKey *btcec.PrivateKey
	pubKey  *btcec.PublicKey
}

// NewBtcecSigner creates a new BtcecSigner instance.
func NewBtcecSigner() I {
	return &BtcecSigner{}
}

func (s *BtcecSigner) set(privKey *btcec.PrivateKey) {
	s.Zero()
	s.privKey = privKey
	s.pubKey = privKey.PubKey()
}

// InitSec initialises the secret key from raw bytes. Unlike
// btcec.PrivKeyFromBytes it rejects zero and values not below the group
// order instead of reducing them.
func (s *BtcecSigner) InitSec(sec []byte) error {
	if len(sec) != 32 {
		return p256k1.ErrInvalidPrivateKey
	}
	var k btcec.ModNScalar
	if overflow := k.SetByteSlice(sec); overflow || k.IsZero() {
		return p256k1.ErrInvalidPrivateKey
	}
	s.set(btcec.PrivKeyFromScalar(&k))
	k.Zero()
	return nil
}

// Generate creates a fresh key pair from system entropy.
func (s *BtcecSigner) Generate() error {
	privKey, err := btcec.NewPrivateKey()
	if err != nil {
		return err
	}
	s.set(privKey)
	return nil
}

// Pub returns the compressed public key, or nil without a key.
func (s *BtcecSigner) Pub() []byte {
	if s.pubKey == nil {
		return nil
	}
	return s.pubKey.SerializeCompressed()
}

// XOnlyPub returns the x-only public key, or nil without a key.
func (s *BtcecSigner) XOnlyPub() []byte {
	if s.pubKey == nil {
		return nil
	}
	return schnorr.SerializePubKey(s.pubKey)
}

// TweakTaproot switches to the secret key of the Taproot output key.
func (s *BtcecSigner) TweakTaproot(merkleRoot []byte) error {
	if s.privKey == nil {
		return ErrNoSecret
	}
	s.set(txscript.TweakTaprootPrivKey(*s.privKey, merkleRoot))
	return nil
}

// SignECDSA signs hash with btcec's RFC 6979 nonce; btcec always
// produces low S.
func (s *BtcecSigner) SignECDSA(hash []byte) ([]byte, error) {
	if s.privKey == nil {
		return nil, ErrNoSecret
	}
	if err := checkHash(hash); err != nil {
		return nil, err
	}
	return ecdsa.Sign(s.privKey, hash).Serialize(), nil
}

// VerifyECDSA checks a DER signature against the public key. A trailing
// sighash type byte is ignored.
func (s *BtcecSigner) VerifyECDSA(hash, der []byte) (bool, error) {
	if s.pubKey == nil {
		return false, ErrNoSecret
	}
	if err := checkHash(hash); err != nil {
		return false, err
	}
	if len(der) > 2 && len(der) == int(der[1])+3 {
		der = der[:len(der)-1]
	}
	sig, err := ecdsa.ParseDERSignature(der)
	if err != nil {
		return false, nil
	}
	return sig.Verify(hash, s.pubKey), nil
}

// SignSchnorr creates a BIP-340 signature. btcec's default nonce is not
// the BIP-340 one, so the aux input is always passed explicitly.
func (s *BtcecSigner) SignSchnorr(hash, aux []byte) ([]byte, error) {
	if s.privKey == nil {
		return nil, ErrNoSecret
	}
	if err := checkHash(hash); err != nil {
		return nil, err
	}
	var aux32 [32]byte
	switch len(aux) {
	case 0:
	case 32:
		copy(aux32[:], aux)
	default:
		return nil, errors.New("signer: aux randomness must be 32 bytes")
	}
	sig, err := schnorr.Sign(s.privKey, hash, schnorr.CustomNonce(aux32))
	if err != nil {
		return nil, err
	}
	return sig.Serialize(), nil
}

// VerifySchnorr checks a BIP-340 signature against the x-only key.
func (s *BtcecSigner) VerifySchnorr(hash, sig []byte) (bool, error) {
	if s.pubKey == nil {
		return false, ErrNoSecret
	}
	if err := checkHash(hash); err != nil {
		return false, err
	}
	if len(sig) != 64 {
		return false, errors.New("signer: signature must be 64 bytes")
	}
	parsed, err := schnorr.ParseSignature(sig)
	if err != nil {
		return false, nil
	}
	return parsed.Verify(hash, s.pubKey), nil
}

// Zero wipes the secret key.
func (s *BtcecSigner) Zero() {
	if s.privKey != nil {
		s.privKey.Zero()
		s.privKey = nil
	}
	s.pubKey = nil
}
