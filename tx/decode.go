package tx

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
)

func appendUint32(dst []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(dst, v)
}

func appendUint64(dst []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(dst, v)
}

// reader walks a serialized transaction.
type reader struct {
	b   []byte
	off int
}

func (r *reader) remaining() int { return len(r.b) - r.off }

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, ErrTruncated
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out, nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) uint64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) varInt() (uint64, error) {
	v, n, err := ReadVarInt(r.b[r.off:])
	if err != nil {
		return 0, err
	}
	r.off += n
	return v, nil
}

// count reads a CompactSize element count, each element taking at least
// minSize bytes.
func (r *reader) count(minSize int) (int, error) {
	v, err := r.varInt()
	if err != nil {
		return 0, err
	}
	if v > uint64(r.remaining()/minSize) {
		return 0, fmt.Errorf("%w: %d", ErrTooLarge, v)
	}
	return int(v), nil
}

func (r *reader) varBytes() ([]byte, error) {
	n, err := r.count(1)
	if err != nil {
		return nil, err
	}
	b, err := r.bytes(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// Deserialize parses a legacy or BIP-144 serialized transaction. The
// result carries no UTXO information; TotalOutputAmount is filled in and
// ChangeOutputIndex is NoChange.
func Deserialize(raw []byte) (*Transaction, error) {
	r := &reader{b: raw}
	t := &Transaction{ChangeOutputIndex: NoChange}

	version, err := r.uint32()
	if err != nil {
		return nil, err
	}
	t.Version = int32(version)

	witness := false
	if r.remaining() >= 2 && r.b[r.off] == 0x00 {
		if r.b[r.off+1] != 0x01 {
			return nil, fmt.Errorf("%w: 0x%02x", ErrInvalidFlag, r.b[r.off+1])
		}
		witness = true
		r.off += 2
	}

	nIn, err := r.count(41)
	if err != nil {
		return nil, err
	}
	t.Inputs = make([]*Input, nIn)
	for i := range t.Inputs {
		in := &Input{}
		prev, err := r.bytes(32)
		if err != nil {
			return nil, err
		}
		copy(in.PreviousTxid[:], prev)
		if in.PreviousIndex, err = r.uint32(); err != nil {
			return nil, err
		}
		if in.ScriptSig, err = r.varBytes(); err != nil {
			return nil, err
		}
		if in.Sequence, err = r.uint32(); err != nil {
			return nil, err
		}
		t.Inputs[i] = in
	}

	nOut, err := r.count(9)
	if err != nil {
		return nil, err
	}
	t.Outputs = make([]*Output, nOut)
	for i := range t.Outputs {
		amount, err := r.uint64()
		if err != nil {
			return nil, err
		}
		script, err := r.varBytes()
		if err != nil {
			return nil, err
		}
		t.Outputs[i] = &Output{Amount: btcutil.Amount(amount), ScriptPubKey: script}
		t.TotalOutputAmount += btcutil.Amount(amount)
	}

	if witness {
		for _, in := range t.Inputs {
			items, err := r.count(1)
			if err != nil {
				return nil, err
			}
			if items == 0 {
				continue
			}
			in.Witness = make([][]byte, items)
			for j := range in.Witness {
				if in.Witness[j], err = r.varBytes(); err != nil {
					return nil, err
				}
			}
		}
	}

	if t.LockTime, err = r.uint32(); err != nil {
		return nil, err
	}
	if r.remaining() != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTrailingData, r.remaining())
	}
	return t, nil
}
