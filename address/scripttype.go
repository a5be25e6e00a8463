package address

import (
	"github.com/btcsuite/btcd/btcutil"
)

// ScriptType is the closed set of output script templates the engine knows
// how to pay to and size. Every switch over it handles each value.
type ScriptType uint8

const (
	// Unknown is any script that does not match a known template.
	Unknown ScriptType = iota

	// P2PKH is OP_DUP OP_HASH160 <20> OP_EQUALVERIFY OP_CHECKSIG.
	P2PKH

	// P2SH is OP_HASH160 <20> OP_EQUAL. For sizing it is assumed to wrap
	// a P2WPKH redeem script.
	P2SH

	// P2WPKH is OP_0 <20>.
	P2WPKH

	// P2TR is OP_1 <32>.
	P2TR
)

// String returns the conventional lower-case name of the type.
func (t ScriptType) String() string {
	switch t {
	case P2PKH:
		return "p2pkh"
	case P2SH:
		return "p2sh"
	case P2WPKH:
		return "p2wpkh"
	case P2TR:
		return "p2tr"
	default:
		return "unknown"
	}
}

// ParseScriptType is the inverse of String.
func ParseScriptType(s string) (ScriptType, error) {
	switch s {
	case "p2pkh":
		return P2PKH, nil
	case "p2sh", "p2sh-p2wpkh":
		return P2SH, nil
	case "p2wpkh":
		return P2WPKH, nil
	case "p2tr":
		return P2TR, nil
	default:
		return Unknown, ErrUnsupportedScript
	}
}

// DustLimit is the smallest output value relayed by default for the type.
func (t ScriptType) DustLimit() btcutil.Amount {
	switch t {
	case P2PKH:
		return 546
	case P2SH:
		return 540
	case P2WPKH:
		return 294
	case P2TR:
		return 330
	default:
		return 546
	}
}

// HasWitness reports whether spending the type puts data in the witness.
func (t ScriptType) HasWitness() bool {
	switch t {
	case P2SH, P2WPKH, P2TR:
		return true
	default:
		return false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t ScriptType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ScriptType) UnmarshalText(b []byte) error {
	v, err := ParseScriptType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
