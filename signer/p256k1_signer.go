package signer

import (
	"errors"

	"btctx.mleku.dev/p256k1"
)

// P256K1Signer implements I using the p256k1 package.
type P256K1Signer struct {
	keypair *p256k1.KeyPair
}

// NewP256K1Signer creates a new P256K1Signer instance.
func NewP256K1Signer() I {
	return &P256K1Signer{}
}

// InitSec initialises the secret key from raw bytes and derives the
// public key.
func (s *P256K1Signer) InitSec(sec []byte) error {
	if len(sec) != 32 {
		return p256k1.ErrInvalidPrivateKey
	}
	kp, err := p256k1.KeyPairCreate(sec)
	if err != nil {
		return err
	}
	s.Zero()
	s.keypair = kp
	return nil
}

// Generate creates a fresh key pair from system entropy.
func (s *P256K1Signer) Generate() error {
	kp, err := p256k1.KeyPairGenerate()
	if err != nil {
		return err
	}
	s.Zero()
	s.keypair = kp
	return nil
}

// Pub returns the compressed public key, or nil without a key.
func (s *P256K1Signer) Pub() []byte {
	if s.keypair == nil {
		return nil
	}
	pub := s.keypair.Pubkey().SerializeCompressed()
	return pub[:]
}

// XOnlyPub returns the x-only public key, or nil without a key.
func (s *P256K1Signer) XOnlyPub() []byte {
	if s.keypair == nil {
		return nil
	}
	xonly, err := s.keypair.XOnlyPubkey()
	if err != nil {
		return nil
	}
	ser := xonly.Serialize()
	return ser[:]
}

// TweakTaproot switches to the secret key of the Taproot output key.
func (s *P256K1Signer) TweakTaproot(merkleRoot []byte) error {
	if s.keypair == nil {
		return ErrNoSecret
	}
	var tweaked [32]byte
	defer p256k1.ZeroBytes(tweaked[:])
	if err := p256k1.TaprootTweakSeckey(tweaked[:], s.keypair.Seckey(), merkleRoot); err != nil {
		return err
	}
	kp, err := p256k1.KeyPairCreate(tweaked[:])
	if err != nil {
		return err
	}
	s.keypair.Clear()
	s.keypair = kp
	return nil
}

// SignECDSA signs hash with a deterministic nonce and low S.
func (s *P256K1Signer) SignECDSA(hash []byte) ([]byte, error) {
	if s.keypair == nil {
		return nil, ErrNoSecret
	}
	if err := checkHash(hash); err != nil {
		return nil, err
	}
	var sig p256k1.ECDSASignature
	if err := p256k1.ECDSASign(&sig, hash, s.keypair.Seckey()); err != nil {
		return nil, err
	}
	return sig.SerializeDER(), nil
}

// VerifyECDSA checks a DER signature against the public key.
func (s *P256K1Signer) VerifyECDSA(hash, der []byte) (bool, error) {
	if s.keypair == nil {
		return false, ErrNoSecret
	}
	if err := checkHash(hash); err != nil {
		return false, err
	}
	return p256k1.ECDSAVerifyDER(der, hash, s.keypair.Pubkey()), nil
}

// SignSchnorr creates a BIP-340 signature.
func (s *P256K1Signer) SignSchnorr(hash, aux []byte) ([]byte, error) {
	if s.keypair == nil {
		return nil, ErrNoSecret
	}
	if err := checkHash(hash); err != nil {
		return nil, err
	}
	if aux != nil && len(aux) != 32 {
		return nil, errors.New("signer: aux randomness must be 32 bytes")
	}
	sig := make([]byte, 64)
	if err := p256k1.SchnorrSign(sig, hash, s.keypair, aux); err != nil {
		return nil, err
	}
	return sig, nil
}

// VerifySchnorr checks a BIP-340 signature against the x-only key.
func (s *P256K1Signer) VerifySchnorr(hash, sig []byte) (bool, error) {
	if s.keypair == nil {
		return false, ErrNoSecret
	}
	if err := checkHash(hash); err != nil {
		return false, err
	}
	if len(sig) != 64 {
		return false, errors.New("signer: signature must be 64 bytes")
	}
	xonly, err := s.keypair.XOnlyPubkey()
	if err != nil {
		return false, err
	}
	return p256k1.SchnorrVerify(sig, hash, xonly), nil
}

// Zero wipes the secret key.
func (s *P256K1Signer) Zero() {
	if s.keypair != nil {
		s.keypair.Clear()
		s.keypair = nil
	}
}
