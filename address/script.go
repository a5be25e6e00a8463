package address

import (
	"btctx.mleku.dev/p256k1"
	"btctx.mleku.dev/ripemd160"
)

// Script opcodes used by the standard templates.
const (
	OP_0           = 0x00
	OP_DATA_20     = 0x14
	OP_DATA_32     = 0x20
	OP_1           = 0x51
	OP_16          = 0x60
	OP_DUP         = 0x76
	OP_EQUAL       = 0x87
	OP_EQUALVERIFY = 0x88
	OP_HASH160     = 0xa9
	OP_CHECKSIG    = 0xac
)

// Hash160 returns RIPEMD160(SHA256(b)).
func Hash160(b []byte) [20]byte {
	sha := p256k1.SHA256Sum(b)
	return ripemd160.Sum(sha[:])
}

// PayToPubKeyHashScript returns OP_DUP OP_HASH160 <hash> OP_EQUALVERIFY
// OP_CHECKSIG.
func PayToPubKeyHashScript(hash []byte) []byte {
	s := make([]byte, 0, 25)
	s = append(s, OP_DUP, OP_HASH160, OP_DATA_20)
	s = append(s, hash...)
	return append(s, OP_EQUALVERIFY, OP_CHECKSIG)
}

// PayToScriptHashScript returns OP_HASH160 <hash> OP_EQUAL.
func PayToScriptHashScript(hash []byte) []byte {
	s := make([]byte, 0, 23)
	s = append(s, OP_HASH160, OP_DATA_20)
	s = append(s, hash...)
	return append(s, OP_EQUAL)
}

// PayToWitnessScript returns OP_n <program>.
func PayToWitnessScript(version byte, program []byte) []byte {
	op := byte(OP_0)
	if version > 0 {
		op = OP_1 + version - 1
	}
	s := make([]byte, 0, 2+len(program))
	s = append(s, op, byte(len(program)))
	return append(s, program...)
}

// PayToWitnessPubKeyHashScript returns OP_0 <20-byte hash>.
func PayToWitnessPubKeyHashScript(hash []byte) []byte {
	return PayToWitnessScript(0, hash)
}

// PayToTaprootScript returns OP_1 <32-byte output key>.
func PayToTaprootScript(outputKey []byte) []byte {
	return PayToWitnessScript(1, outputKey)
}

// ClassifyScript matches script against the known templates.
func ClassifyScript(script []byte) ScriptType {
	switch {
	case len(script) == 25 && script[0] == OP_DUP && script[1] == OP_HASH160 &&
		script[2] == OP_DATA_20 && script[23] == OP_EQUALVERIFY && script[24] == OP_CHECKSIG:
		return P2PKH
	case len(script) == 23 && script[0] == OP_HASH160 && script[1] == OP_DATA_20 &&
		script[22] == OP_EQUAL:
		return P2SH
	case len(script) == 22 && script[0] == OP_0 && script[1] == OP_DATA_20:
		return P2WPKH
	case len(script) == 34 && script[0] == OP_1 && script[1] == OP_DATA_32:
		return P2TR
	default:
		return Unknown
	}
}

// ScriptHash returns the 20- or 32-byte hash or key embedded in a script of
// a known template, or nil.
func ScriptHash(script []byte) []byte {
	switch ClassifyScript(script) {
	case P2PKH:
		return script[3:23]
	case P2SH:
		return script[2:22]
	case P2WPKH, P2TR:
		return script[2:]
	default:
		return nil
	}
}

// P2WPKHScriptCode returns the BIP-143 scriptCode for a P2WPKH output,
// the P2PKH script over the same key hash.
func P2WPKHScriptCode(pkScript []byte) ([]byte, error) {
	if ClassifyScript(pkScript) != P2WPKH {
		return nil, ErrUnsupportedScript
	}
	return PayToPubKeyHashScript(pkScript[2:22]), nil
}
