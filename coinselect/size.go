package coinselect

import (
	"fmt"

	"btctx.mleku.dev/address"
	"btctx.mleku.dev/tx"
	"github.com/btcsuite/btcd/btcutil"
)

const (
	// inputBaseSize is outpoint(36) + sequence(4).
	inputBaseSize = 32 + 4 + 4

	// P2PKHInputWeight: base 40 + scriptSig varint 1 + scriptSig 107
	// (push 72-byte sig, push 33-byte key), no witness.
	P2PKHInputWeight = (inputBaseSize + 1 + 107) * tx.WitnessScaleFactor

	// p2wpkhWitnessSize: item count 1 + sig 1+72 + key 1+33.
	p2wpkhWitnessSize = 1 + 1 + 72 + 1 + 33

	// NestedP2WPKHInputWeight: base 40 + scriptSig 1+23 (push of the
	// P2WPKH redeem script) plus the P2WPKH witness.
	NestedP2WPKHInputWeight = (inputBaseSize+1+23)*tx.WitnessScaleFactor +
		p2wpkhWitnessSize

	// P2WPKHInputWeight: base 40 + empty scriptSig plus the witness.
	P2WPKHInputWeight = (inputBaseSize+1)*tx.WitnessScaleFactor +
		p2wpkhWitnessSize

	// P2TRInputWeight: base 40 + empty scriptSig plus a witness of one
	// 64-byte Schnorr signature.
	P2TRInputWeight = (inputBaseSize+1)*tx.WitnessScaleFactor + 1 + 1 + 64

	// Output sizes: value 8 + script length 1 + script.
	P2PKHOutputSize  = 8 + 1 + 25
	P2SHOutputSize   = 8 + 1 + 23
	P2WPKHOutputSize = 8 + 1 + 22
	P2TROutputSize   = 8 + 1 + 34

	// witnessHeaderWeight is the marker and flag bytes.
	witnessHeaderWeight = 2
)

// InputWeight returns the estimated weight of spending an output of type t.
func InputWeight(t address.ScriptType) (int64, error) {
	switch t {
	case address.P2PKH:
		return P2PKHInputWeight, nil
	case address.P2SH:
		return NestedP2WPKHInputWeight, nil
	case address.P2WPKH:
		return P2WPKHInputWeight, nil
	case address.P2TR:
		return P2TRInputWeight, nil
	default:
		return 0, fmt.Errorf("%w: input %v", ErrUnsupportedScript, t)
	}
}

// OutputSize returns the serialized size of an output of type t.
func OutputSize(t address.ScriptType) (int64, error) {
	switch t {
	case address.P2PKH:
		return P2PKHOutputSize, nil
	case address.P2SH:
		return P2SHOutputSize, nil
	case address.P2WPKH:
		return P2WPKHOutputSize, nil
	case address.P2TR:
		return P2TROutputSize, nil
	default:
		return 0, fmt.Errorf("%w: output %v", ErrUnsupportedScript, t)
	}
}

// FeeRate is a fee rate in satoshis per virtual byte.
type FeeRate int64

// String returns a human-readable string of the fee rate.
func (r FeeRate) String() string {
	return fmt.Sprintf("%d sat/vB", int64(r))
}

// FeeForVSize returns the fee for a transaction of vsize virtual bytes.
func (r FeeRate) FeeForVSize(vsize int64) btcutil.Amount {
	return btcutil.Amount(vsize * int64(r))
}

// FeeForWeight returns the fee for a transaction of the given weight,
// rounding the weight up to whole virtual bytes.
func (r FeeRate) FeeForWeight(weight int64) btcutil.Amount {
	return r.FeeForVSize(weightToVSize(weight))
}

func weightToVSize(weight int64) int64 {
	return (weight + tx.WitnessScaleFactor - 1) / tx.WitnessScaleFactor
}

// Estimator accumulates the weight of a transaction from its input and
// output types.
type Estimator struct {
	inputCount  int
	outputCount int
	inputWeight int64
	outputSize  int64
	hasWitness  bool
}

// AddInput adds an input spending an output of type t.
func (e *Estimator) AddInput(t address.ScriptType) error {
	w, err := InputWeight(t)
	if err != nil {
		return err
	}
	e.inputCount++
	e.inputWeight += w
	e.hasWitness = e.hasWitness || t.HasWitness()
	return nil
}

// AddOutput adds an output of type t.
func (e *Estimator) AddOutput(t address.ScriptType) error {
	n, err := OutputSize(t)
	if err != nil {
		return err
	}
	e.outputCount++
	e.outputSize += n
	return nil
}

// Weight returns the estimated weight.
func (e *Estimator) Weight() int64 {
	base := int64(4+4) +
		int64(tx.VarIntSize(uint64(e.inputCount))) +
		int64(tx.VarIntSize(uint64(e.outputCount))) +
		e.outputSize
	w := base*tx.WitnessScaleFactor + e.inputWeight
	if e.hasWitness {
		w += witnessHeaderWeight
	}
	return w
}

// VSize returns the estimated virtual size.
func (e *Estimator) VSize() int64 {
	return weightToVSize(e.Weight())
}
