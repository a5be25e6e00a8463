package signer

import (
	"bytes"
	"errors"
	"testing"

	"btctx.mleku.dev/p256k1"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"
)

var factories = map[string]Factory{
	"p256k1": NewP256K1Signer,
	"btcec":  NewBtcecSigner,
}

func testKey() []byte {
	seckey := make([]byte, 32)
	for i := range seckey {
		seckey[i] = byte(i + 1)
	}
	return seckey
}

func TestSigner_Generate(t *testing.T) {
	for name, newSigner := range factories {
		t.Run(name, func(t *testing.T) {
			s := newSigner()
			if err := s.Generate(); err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			if pub := s.Pub(); len(pub) != 33 {
				t.Fatalf("public key should be 33 bytes, got %d", len(pub))
			}
			if xonly := s.XOnlyPub(); len(xonly) != 32 {
				t.Fatalf("x-only key should be 32 bytes, got %d", len(xonly))
			}

			msg := make([]byte, 32)
			sig, err := s.SignSchnorr(msg, nil)
			if err != nil {
				t.Fatalf("SignSchnorr failed: %v", err)
			}
			valid, err := s.VerifySchnorr(msg, sig)
			if err != nil {
				t.Fatalf("VerifySchnorr failed: %v", err)
			}
			if !valid {
				t.Error("signature should be valid")
			}

			wrongMsg := make([]byte, 32)
			wrongMsg[0] = 1
			valid, err = s.VerifySchnorr(wrongMsg, sig)
			if err != nil {
				t.Fatalf("VerifySchnorr failed: %v", err)
			}
			if valid {
				t.Error("signature should be invalid for wrong message")
			}

			s.Zero()
			if s.Pub() != nil {
				t.Error("Zero should drop the key")
			}
			if _, err := s.SignECDSA(msg); !errors.Is(err, ErrNoSecret) {
				t.Errorf("expected ErrNoSecret after Zero, got %v", err)
			}
		})
	}
}

func TestSigner_InitSecRejectsInvalidKeys(t *testing.T) {
	n := btcec.S256().N.Bytes()

	for name, newSigner := range factories {
		t.Run(name, func(t *testing.T) {
			for _, sec := range [][]byte{
				make([]byte, 32),
				n,
				bytes.Repeat([]byte{0xff}, 32),
				make([]byte, 31),
			} {
				if err := newSigner().InitSec(sec); !errors.Is(err, p256k1.ErrInvalidPrivateKey) {
					t.Errorf("InitSec(%x): expected ErrInvalidPrivateKey, got %v", sec, err)
				}
			}
		})
	}
}

// TestSigner_Agree checks that both implementations produce the same bytes
// for the same key and digest.
func TestSigner_Agree(t *testing.T) {
	msg := p256k1.SHA256Sum([]byte("btctx"))
	aux := p256k1.SHA256Sum([]byte("aux"))

	a, b := NewP256K1Signer(), NewBtcecSigner()
	for _, s := range []I{a, b} {
		if err := s.InitSec(testKey()); err != nil {
			t.Fatalf("InitSec failed: %v", err)
		}
	}

	if !bytes.Equal(a.Pub(), b.Pub()) {
		t.Fatalf("public keys differ: %x vs %x", a.Pub(), b.Pub())
	}
	if !bytes.Equal(a.XOnlyPub(), b.XOnlyPub()) {
		t.Fatalf("x-only keys differ")
	}

	derA, err := a.SignECDSA(msg[:])
	if err != nil {
		t.Fatal(err)
	}
	derB, err := b.SignECDSA(msg[:])
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(derA, derB) {
		t.Fatalf("ECDSA signatures differ:\n%x\n%x", derA, derB)
	}

	// Each verifies the other's signature, with and without a sighash
	// type byte.
	for _, s := range []I{a, b} {
		for _, der := range [][]byte{derA, append(append([]byte{}, derA...), 0x01)} {
			ok, err := s.VerifyECDSA(msg[:], der)
			if err != nil || !ok {
				t.Fatalf("VerifyECDSA(%x) = %v, %v", der, ok, err)
			}
		}
	}

	for _, auxRand := range [][]byte{nil, aux[:]} {
		sigA, err := a.SignSchnorr(msg[:], auxRand)
		if err != nil {
			t.Fatal(err)
		}
		sigB, err := b.SignSchnorr(msg[:], auxRand)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(sigA, sigB) {
			t.Fatalf("Schnorr signatures differ (aux %x):\n%x\n%x", auxRand, sigA, sigB)
		}
	}
}

func TestSigner_TweakTaproot(t *testing.T) {
	_, pub := btcec.PrivKeyFromBytes(testKey())
	want := txscript.ComputeTaprootKeyNoScript(pub).SerializeCompressed()[1:]

	msg := p256k1.SHA256Sum([]byte("tap"))
	for name, newSigner := range factories {
		t.Run(name, func(t *testing.T) {
			s := newSigner()
			if err := s.InitSec(testKey()); err != nil {
				t.Fatal(err)
			}
			if err := s.TweakTaproot(nil); err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(s.XOnlyPub(), want) {
				t.Fatalf("tweaked key %x, want %x", s.XOnlyPub(), want)
			}
			sig, err := s.SignSchnorr(msg[:], nil)
			if err != nil {
				t.Fatal(err)
			}
			xonly, err := p256k1.XOnlyPubkeyParse(want)
			if err != nil {
				t.Fatal(err)
			}
			if !p256k1.SchnorrVerify(sig, msg[:], xonly) {
				t.Fatal("signature does not verify under the output key")
			}
		})
	}
}

func TestSigner_InvalidHash(t *testing.T) {
	for name, newSigner := range factories {
		t.Run(name, func(t *testing.T) {
			s := newSigner()
			if err := s.InitSec(testKey()); err != nil {
				t.Fatal(err)
			}
			if _, err := s.SignECDSA(make([]byte, 31)); !errors.Is(err, p256k1.ErrInvalidHash) {
				t.Errorf("SignECDSA: expected ErrInvalidHash, got %v", err)
			}
			if _, err := s.SignSchnorr(make([]byte, 33), nil); !errors.Is(err, p256k1.ErrInvalidHash) {
				t.Errorf("SignSchnorr: expected ErrInvalidHash, got %v", err)
			}
			if _, err := s.SignSchnorr(make([]byte, 32), make([]byte, 5)); err == nil {
				t.Error("SignSchnorr accepted short aux")
			}
		})
	}
}

// countingSigner records Zero calls on top of a real signer.
type countingSigner struct {
	I
	zeroed *int
}

func (c countingSigner) Zero() {
	*c.zeroed++
	c.I.Zero()
}

func TestWithKey(t *testing.T) {
	keys := KeyMap{"m/84'/0'/0'/0/0": testKey()}
	zeroed := 0
	newSigner := func() I {
		return countingSigner{I: NewP256K1Signer(), zeroed: &zeroed}
	}

	var pub []byte
	err := WithKey(keys, "m/84'/0'/0'/0/0", newSigner, func(s I) error {
		pub = s.Pub()
		return nil
	})
	if err != nil {
		t.Fatalf("WithKey failed: %v", err)
	}
	if len(pub) != 33 {
		t.Fatal("signer had no key inside WithKey")
	}
	if zeroed != 1 {
		t.Fatalf("signer zeroed %d times, want 1", zeroed)
	}

	boom := errors.New("boom")
	err = WithKey(keys, "m/84'/0'/0'/0/0", newSigner, func(I) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if zeroed != 2 {
		t.Fatal("signer not zeroed on error path")
	}

	err = WithKey(keys, "m/86'/0'/0'/0/0", newSigner, func(I) error { return nil })
	if !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("expected ErrUnknownKey, got %v", err)
	}

	// The map's own copy is untouched by the zeroing.
	if !bytes.Equal(keys["m/84'/0'/0'/0/0"], testKey()) {
		t.Fatal("KeyMap entry was modified")
	}
}
