// Package sighash computes the digests signed by SegWit v0 (BIP-143) and
// Taproot key-path (BIP-341) inputs.
//
// The per-transaction components are computed once by NewHashes and shared
// by every input, so signing n inputs costs O(n) hashing rather than O(n²).
package sighash

import (
	"encoding/binary"
	"errors"
	"fmt"

	"btctx.mleku.dev/address"
	"btctx.mleku.dev/p256k1"
	"btctx.mleku.dev/tx"
	"github.com/btcsuite/btcd/btcutil"
	sha256 "github.com/minio/sha256-simd"
)

// HashType selects which parts of the transaction a signature commits to.
type HashType uint32

const (
	// Default is the implicit Taproot hash type. It commits to the same
	// data as All but is encoded without a trailing type byte.
	Default HashType = 0x00

	All          HashType = 0x01
	None         HashType = 0x02
	Single       HashType = 0x03
	AnyoneCanPay HashType = 0x80

	baseMask HashType = 0x1f
)

var (
	// ErrInputIndex is returned when the input index is out of range.
	ErrInputIndex = errors.New("sighash: input index out of range")

	// ErrMissingPrevOut is returned when a digest needs the spent output
	// of an input that carries no UTXO.
	ErrMissingPrevOut = errors.New("sighash: spent output unknown")

	// ErrUnsupportedHashType is returned for Taproot hash types other
	// than Default and All.
	ErrUnsupportedHashType = errors.New("sighash: unsupported hash type")
)

var zeroHash [32]byte

// Hashes holds the shared digest components of one transaction. The
// BIP-143 fields are the double SHA-256 of their preimages, the BIP-341
// fields the single SHA-256.
type Hashes struct {
	HashPrevouts [32]byte
	HashSequence [32]byte
	HashOutputs  [32]byte

	ShaPrevouts      [32]byte
	ShaAmounts       [32]byte
	ShaScriptPubKeys [32]byte
	ShaSequences     [32]byte
	ShaOutputs       [32]byte

	// taproot is set when every input has a known spent output, which
	// ShaAmounts and ShaScriptPubKeys require.
	taproot bool
}

// NewHashes precomputes the shared components for t.
func NewHashes(t *tx.Transaction) *Hashes {
	h := &Hashes{taproot: true}

	prevouts := sha256.New()
	sequences := sha256.New()
	amounts := sha256.New()
	scripts := sha256.New()
	var b8 [8]byte
	for _, in := range t.Inputs {
		prevouts.Write(in.PreviousTxid[:])
		binary.LittleEndian.PutUint32(b8[:4], in.PreviousIndex)
		prevouts.Write(b8[:4])

		binary.LittleEndian.PutUint32(b8[:4], in.Sequence)
		sequences.Write(b8[:4])

		if in.UTXO == nil {
			h.taproot = false
			continue
		}
		binary.LittleEndian.PutUint64(b8[:], uint64(in.UTXO.Amount))
		amounts.Write(b8[:])
		scripts.Write(tx.AppendVarBytes(nil, in.UTXO.ScriptPubKey))
	}

	outputs := sha256.New()
	for _, out := range t.Outputs {
		outputs.Write(serializeOutput(out))
	}

	copy(h.ShaPrevouts[:], prevouts.Sum(nil))
	copy(h.ShaSequences[:], sequences.Sum(nil))
	copy(h.ShaOutputs[:], outputs.Sum(nil))
	if h.taproot {
		copy(h.ShaAmounts[:], amounts.Sum(nil))
		copy(h.ShaScriptPubKeys[:], scripts.Sum(nil))
	}

	// A double SHA-256 is one more SHA-256 over the single digest.
	h.HashPrevouts = p256k1.SHA256Sum(h.ShaPrevouts[:])
	h.HashSequence = p256k1.SHA256Sum(h.ShaSequences[:])
	h.HashOutputs = p256k1.SHA256Sum(h.ShaOutputs[:])
	return h
}

func serializeOutput(out *tx.Output) []byte {
	b := binary.LittleEndian.AppendUint64(nil, uint64(out.Amount))
	return tx.AppendVarBytes(b, out.ScriptPubKey)
}

// WitnessV0 returns the BIP-143 digest for input idx spending amount
// under scriptCode.
func WitnessV0(t *tx.Transaction, h *Hashes, idx int, scriptCode []byte,
	amount btcutil.Amount, hashType HashType) ([32]byte, error) {

	if idx < 0 || idx >= len(t.Inputs) {
		return zeroHash, fmt.Errorf("%w: %d of %d", ErrInputIndex, idx, len(t.Inputs))
	}
	in := t.Inputs[idx]
	base := hashType & baseMask
	anyoneCanPay := hashType&AnyoneCanPay != 0

	hashPrevouts := h.HashPrevouts
	if anyoneCanPay {
		hashPrevouts = zeroHash
	}
	hashSequence := h.HashSequence
	if anyoneCanPay || base == Single || base == None {
		hashSequence = zeroHash
	}
	var hashOutputs [32]byte
	switch {
	case base != Single && base != None:
		hashOutputs = h.HashOutputs
	case base == Single && idx < len(t.Outputs):
		hashOutputs = p256k1.DoubleSHA256(serializeOutput(t.Outputs[idx]))
	}

	buf := make([]byte, 0, 156+len(scriptCode))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(t.Version))
	buf = append(buf, hashPrevouts[:]...)
	buf = append(buf, hashSequence[:]...)
	buf = append(buf, in.PreviousTxid[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, in.PreviousIndex)
	buf = tx.AppendVarBytes(buf, scriptCode)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(amount))
	buf = binary.LittleEndian.AppendUint32(buf, in.Sequence)
	buf = append(buf, hashOutputs[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, t.LockTime)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(hashType))
	return p256k1.DoubleSHA256(buf), nil
}

// P2WPKH returns the BIP-143 digest for a P2WPKH input, taking the
// scriptCode and amount from the input's UTXO.
func P2WPKH(t *tx.Transaction, h *Hashes, idx int, hashType HashType) ([32]byte, error) {
	if idx < 0 || idx >= len(t.Inputs) {
		return zeroHash, fmt.Errorf("%w: %d of %d", ErrInputIndex, idx, len(t.Inputs))
	}
	u := t.Inputs[idx].UTXO
	if u == nil {
		return zeroHash, fmt.Errorf("%w: input %d", ErrMissingPrevOut, idx)
	}
	scriptCode, err := address.P2WPKHScriptCode(u.ScriptPubKey)
	if err != nil {
		return zeroHash, err
	}
	return WitnessV0(t, h, idx, scriptCode, u.Amount, hashType)
}

// Taproot returns the BIP-341 key-path digest for input idx. Only the
// Default and All hash types are supported.
func Taproot(t *tx.Transaction, h *Hashes, idx int, hashType HashType) ([32]byte, error) {
	if hashType != Default && hashType != All {
		return zeroHash, fmt.Errorf("%w: 0x%02x", ErrUnsupportedHashType, uint32(hashType))
	}
	if idx < 0 || idx >= len(t.Inputs) {
		return zeroHash, fmt.Errorf("%w: %d of %d", ErrInputIndex, idx, len(t.Inputs))
	}
	if !h.taproot {
		return zeroHash, ErrMissingPrevOut
	}

	msg := make([]byte, 0, 1+1+4+4+5*32+1+4)
	msg = append(msg, 0x00, byte(hashType))
	msg = binary.LittleEndian.AppendUint32(msg, uint32(t.Version))
	msg = binary.LittleEndian.AppendUint32(msg, t.LockTime)
	msg = append(msg, h.ShaPrevouts[:]...)
	msg = append(msg, h.ShaAmounts[:]...)
	msg = append(msg, h.ShaScriptPubKeys[:]...)
	msg = append(msg, h.ShaSequences[:]...)
	msg = append(msg, h.ShaOutputs[:]...)
	// Key path, no annex.
	msg = append(msg, 0x00)
	msg = binary.LittleEndian.AppendUint32(msg, uint32(idx))
	return p256k1.TaggedHash([]byte("TapSighash"), msg), nil
}
