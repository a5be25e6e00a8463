package p256k1

import (
	"testing"
)

var (
	benchSeckey = []byte{
		0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01,
		0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01,
		0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01,
		0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01,
	}
	benchMsghash = SHA256Sum([]byte("benchmark"))
)

func BenchmarkECDSASign(b *testing.B) {
	for b.Loop() {
		var sig ECDSASignature
		if err := ECDSASign(&sig, benchMsghash[:], benchSeckey); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkECDSAVerify(b *testing.B) {
	var pub PublicKey
	if err := ECPubkeyCreate(&pub, benchSeckey); err != nil {
		b.Fatal(err)
	}
	var sig ECDSASignature
	if err := ECDSASign(&sig, benchMsghash[:], benchSeckey); err != nil {
		b.Fatal(err)
	}
	for b.Loop() {
		if !ECDSAVerify(&sig, benchMsghash[:], &pub) {
			b.Fatal("verification failed")
		}
	}
}

func BenchmarkSerializeDER(b *testing.B) {
	var sig ECDSASignature
	if err := ECDSASign(&sig, benchMsghash[:], benchSeckey); err != nil {
		b.Fatal(err)
	}
	for b.Loop() {
		der := sig.SerializeDER()
		if _, err := ParseDERSignature(der); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSchnorrSign(b *testing.B) {
	kp, err := KeyPairCreate(benchSeckey)
	if err != nil {
		b.Fatal(err)
	}
	sig := make([]byte, 64)
	for b.Loop() {
		if err := SchnorrSign(sig, benchMsghash[:], kp, nil); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSchnorrVerify(b *testing.B) {
	kp, err := KeyPairCreate(benchSeckey)
	if err != nil {
		b.Fatal(err)
	}
	xonly, err := kp.XOnlyPubkey()
	if err != nil {
		b.Fatal(err)
	}
	sig := make([]byte, 64)
	if err := SchnorrSign(sig, benchMsghash[:], kp, nil); err != nil {
		b.Fatal(err)
	}
	for b.Loop() {
		if !SchnorrVerify(sig, benchMsghash[:], xonly) {
			b.Fatal("verification failed")
		}
	}
}

func BenchmarkTaggedHash(b *testing.B) {
	tag := []byte("TapSighash")
	for b.Loop() {
		_ = TaggedHash(tag, benchMsghash[:])
	}
}
