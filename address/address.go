// Package address encodes and decodes Bitcoin addresses (Base58Check,
// Bech32, Bech32m) and builds the scriptPubKeys they stand for.
package address

import (
	"fmt"
	"strings"

	"btctx.mleku.dev/p256k1"
	"github.com/btcsuite/btcd/chaincfg"
)

// Address is a decoded address: its script template and the hash or key
// the template commits to.
type Address struct {
	Type ScriptType

	// Program is the 20-byte hash for P2PKH, P2SH and P2WPKH, and the
	// 32-byte output key for P2TR.
	Program []byte

	encoded string
}

// String returns the encoded address.
func (a *Address) String() string {
	return a.encoded
}

// ScriptPubKey returns the output script paying to the address.
func (a *Address) ScriptPubKey() []byte {
	switch a.Type {
	case P2PKH:
		return PayToPubKeyHashScript(a.Program)
	case P2SH:
		return PayToScriptHashScript(a.Program)
	case P2WPKH:
		return PayToWitnessPubKeyHashScript(a.Program)
	case P2TR:
		return PayToTaprootScript(a.Program)
	default:
		return nil
	}
}

// Decode parses addr for the given network. Only the four standard
// single-key templates are accepted; other witness programs decode
// correctly but are reported as ErrUnsupportedScript.
func Decode(addr string, params *chaincfg.Params) (*Address, error) {
	hrp := params.Bech32HRPSegwit
	if len(addr) > len(hrp) && strings.EqualFold(addr[:len(hrp)+1], hrp+"1") {
		version, program, err := DecodeSegWit(hrp, addr)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
		}
		enc := strings.ToLower(addr)
		switch {
		case version == 0 && len(program) == 20:
			return &Address{Type: P2WPKH, Program: program, encoded: enc}, nil
		case version == 1 && len(program) == 32:
			return &Address{Type: P2TR, Program: program, encoded: enc}, nil
		default:
			return nil, fmt.Errorf("%w: witness v%d program of %d bytes",
				ErrUnsupportedScript, version, len(program))
		}
	}

	version, payload, err := Base58CheckDecode(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	if len(payload) != 20 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAddress, ErrInvalidLength)
	}
	switch version {
	case params.PubKeyHashAddrID:
		return &Address{Type: P2PKH, Program: payload, encoded: addr}, nil
	case params.ScriptHashAddrID:
		return &Address{Type: P2SH, Program: payload, encoded: addr}, nil
	default:
		return nil, fmt.Errorf("%w: version byte 0x%02x", ErrWrongNetwork, version)
	}
}

// FromProgram encodes an address of the given type from its hash or key.
func FromProgram(t ScriptType, program []byte, params *chaincfg.Params) (*Address, error) {
	var (
		enc string
		err error
	)
	switch t {
	case P2PKH, P2SH:
		if len(program) != 20 {
			return nil, ErrInvalidLength
		}
		id := params.PubKeyHashAddrID
		if t == P2SH {
			id = params.ScriptHashAddrID
		}
		enc = Base58CheckEncode(id, program)
	case P2WPKH:
		if len(program) != 20 {
			return nil, ErrInvalidProgramLength
		}
		enc, err = EncodeSegWit(params.Bech32HRPSegwit, 0, program)
	case P2TR:
		if len(program) != 32 {
			return nil, ErrInvalidProgramLength
		}
		enc, err = EncodeSegWit(params.Bech32HRPSegwit, 1, program)
	default:
		return nil, ErrUnsupportedScript
	}
	if err != nil {
		return nil, err
	}
	p := make([]byte, len(program))
	copy(p, program)
	return &Address{Type: t, Program: p, encoded: enc}, nil
}

// FromScriptPubKey returns the address a standard output script pays to.
func FromScriptPubKey(script []byte, params *chaincfg.Params) (*Address, error) {
	t := ClassifyScript(script)
	if t == Unknown {
		return nil, ErrUnsupportedScript
	}
	return FromProgram(t, ScriptHash(script), params)
}

// FromPublicKey derives the address of type t for a compressed public key.
// P2SH yields the nested P2SH-P2WPKH form and P2TR the BIP-86 key-path-only
// output key.
func FromPublicKey(pubkey []byte, t ScriptType, params *chaincfg.Params) (*Address, error) {
	var pk p256k1.PublicKey
	if err := p256k1.ECPubkeyParse(&pk, pubkey); err != nil {
		return nil, err
	}
	compressed := pk.SerializeCompressed()

	switch t {
	case P2PKH, P2WPKH:
		h := Hash160(compressed[:])
		return FromProgram(t, h[:], params)
	case P2SH:
		keyHash := Hash160(compressed[:])
		redeem := PayToWitnessPubKeyHashScript(keyHash[:])
		h := Hash160(redeem)
		return FromProgram(P2SH, h[:], params)
	case P2TR:
		internal, _, err := p256k1.XOnlyPubkeyFromPubkey(&pk)
		if err != nil {
			return nil, err
		}
		output, _, err := p256k1.TaprootOutputKey(internal, nil)
		if err != nil {
			return nil, err
		}
		key := output.Serialize()
		return FromProgram(P2TR, key[:], params)
	default:
		return nil, ErrUnsupportedScript
	}
}
