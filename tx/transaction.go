// Package tx holds the transaction data model and its consensus
// serialization, with and without BIP-144 witness data.
package tx

import (
	"encoding/hex"

	"btctx.mleku.dev/address"
	"btctx.mleku.dev/p256k1"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

const (
	// DefaultVersion is the version new transactions are built with.
	DefaultVersion int32 = 2

	// DefaultSequence disables replace-by-fee signalling while keeping
	// the lock time enforced.
	DefaultSequence uint32 = 0xFFFFFFFE

	// WitnessScaleFactor is the weight of one non-witness byte.
	WitnessScaleFactor = 4

	// NoChange marks a transaction without a change output.
	NoChange = -1
)

// UTXO is a spendable output owned by the wallet.
type UTXO struct {
	Txid          chainhash.Hash     `json:"txid"`
	Vout          uint32             `json:"vout"`
	Amount        btcutil.Amount     `json:"amount"`
	ScriptPubKey  []byte             `json:"-"`
	ScriptType    address.ScriptType `json:"script_type"`
	Address       string             `json:"address,omitempty"`
	Confirmations int64              `json:"confirmations"`

	// DerivationPath names the key that controls the output. It is only
	// carried through to the key provider.
	DerivationPath string `json:"derivation_path,omitempty"`
}

// Input spends a previous output.
type Input struct {
	PreviousTxid  chainhash.Hash
	PreviousIndex uint32
	Sequence      uint32

	// UTXO is the output being spent; nil for deserialized transactions.
	UTXO *UTXO

	ScriptSig []byte
	Witness   [][]byte
}

// Output pays Amount to ScriptPubKey.
type Output struct {
	Address      string
	Amount       btcutil.Amount
	ScriptPubKey []byte
}

// Transaction is an unsigned or signed transaction together with the
// bookkeeping collected while building it.
type Transaction struct {
	Version  int32
	Inputs   []*Input
	Outputs  []*Output
	LockTime uint32

	TotalInputAmount  btcutil.Amount
	TotalOutputAmount btcutil.Amount
	Fee               btcutil.Amount

	// ChangeOutputIndex is the index of the change output or NoChange.
	ChangeOutputIndex int
}

// SignedTransaction is the final, broadcastable form of a transaction.
type SignedTransaction struct {
	Txid        string         `json:"txid"`
	RawHex      string         `json:"hex"`
	VirtualSize int64          `json:"vsize"`
	Weight      int64          `json:"weight"`
	Fee         btcutil.Amount `json:"fee"`
}

// NewInput returns an input spending u with the default sequence.
func NewInput(u *UTXO) *Input {
	return &Input{
		PreviousTxid:  u.Txid,
		PreviousIndex: u.Vout,
		Sequence:      DefaultSequence,
		UTXO:          u,
	}
}

// HasWitness reports whether any input carries witness data.
func (t *Transaction) HasWitness() bool {
	for _, in := range t.Inputs {
		if len(in.Witness) > 0 {
			return true
		}
	}
	return false
}

// Serialize returns the consensus encoding. With witness set and at least
// one non-empty witness the BIP-144 extended form is produced, otherwise
// the legacy form.
func (t *Transaction) Serialize(witness bool) []byte {
	witness = witness && t.HasWitness()

	buf := make([]byte, 0, t.serializeSize(witness))
	buf = appendUint32(buf, uint32(t.Version))
	if witness {
		buf = append(buf, 0x00, 0x01)
	}
	buf = AppendVarInt(buf, uint64(len(t.Inputs)))
	for _, in := range t.Inputs {
		buf = append(buf, in.PreviousTxid[:]...)
		buf = appendUint32(buf, in.PreviousIndex)
		buf = AppendVarBytes(buf, in.ScriptSig)
		buf = appendUint32(buf, in.Sequence)
	}
	buf = AppendVarInt(buf, uint64(len(t.Outputs)))
	for _, out := range t.Outputs {
		buf = appendUint64(buf, uint64(out.Amount))
		buf = AppendVarBytes(buf, out.ScriptPubKey)
	}
	if witness {
		for _, in := range t.Inputs {
			buf = AppendVarInt(buf, uint64(len(in.Witness)))
			for _, item := range in.Witness {
				buf = AppendVarBytes(buf, item)
			}
		}
	}
	return appendUint32(buf, t.LockTime)
}

func (t *Transaction) serializeSize(witness bool) int {
	n := 8 + VarIntSize(uint64(len(t.Inputs))) + VarIntSize(uint64(len(t.Outputs)))
	for _, in := range t.Inputs {
		n += 32 + 4 + 4 + VarIntSize(uint64(len(in.ScriptSig))) + len(in.ScriptSig)
	}
	for _, out := range t.Outputs {
		n += 8 + VarIntSize(uint64(len(out.ScriptPubKey))) + len(out.ScriptPubKey)
	}
	if witness {
		n += 2
		for _, in := range t.Inputs {
			n += VarIntSize(uint64(len(in.Witness)))
			for _, item := range in.Witness {
				n += VarIntSize(uint64(len(item))) + len(item)
			}
		}
	}
	return n
}

// BaseSize is the size of the legacy serialization.
func (t *Transaction) BaseSize() int {
	return t.serializeSize(false)
}

// TotalSize is the size of the full serialization including witnesses.
func (t *Transaction) TotalSize() int {
	return t.serializeSize(t.HasWitness())
}

// Weight returns base*3 + total.
func (t *Transaction) Weight() int64 {
	return int64(t.BaseSize())*(WitnessScaleFactor-1) + int64(t.TotalSize())
}

// VirtualSize returns the weight divided by four, rounded up.
func (t *Transaction) VirtualSize() int64 {
	return (t.Weight() + WitnessScaleFactor - 1) / WitnessScaleFactor
}

// TxHash returns the double SHA-256 of the legacy serialization in
// internal byte order.
func (t *Transaction) TxHash() chainhash.Hash {
	return chainhash.Hash(p256k1.DoubleSHA256(t.Serialize(false)))
}

// WitnessHash returns the double SHA-256 of the full serialization. It
// equals TxHash when no input has a witness.
func (t *Transaction) WitnessHash() chainhash.Hash {
	return chainhash.Hash(p256k1.DoubleSHA256(t.Serialize(true)))
}

// Txid returns the transaction id as displayed, byte-reversed hex.
func (t *Transaction) Txid() string {
	h := t.TxHash()
	return h.String()
}

// Wtxid returns the witness transaction id as displayed.
func (t *Transaction) Wtxid() string {
	h := t.WitnessHash()
	return h.String()
}

// Signed packages the transaction for broadcast.
func (t *Transaction) Signed() *SignedTransaction {
	return &SignedTransaction{
		Txid:        t.Txid(),
		RawHex:      hex.EncodeToString(t.Serialize(true)),
		VirtualSize: t.VirtualSize(),
		Weight:      t.Weight(),
		Fee:         t.Fee,
	}
}
