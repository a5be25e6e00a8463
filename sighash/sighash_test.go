package sighash

import (
	"bytes"
	"encoding/hex"
	"testing"

	"btctx.mleku.dev/address"
	"btctx.mleku.dev/tx"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func mustHex(t require.TestingT, s string) []byte {
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// toWire re-parses t with btcd and builds a prevout fetcher from its UTXOs.
func toWire(t require.TestingT, tr *tx.Transaction) (*wire.MsgTx, txscript.PrevOutputFetcher) {
	var msg wire.MsgTx
	require.NoError(t, msg.Deserialize(bytes.NewReader(tr.Serialize(true))))

	prevOuts := make(map[wire.OutPoint]*wire.TxOut)
	for i, in := range tr.Inputs {
		if in.UTXO == nil {
			continue
		}
		prevOuts[msg.TxIn[i].PreviousOutPoint] = wire.NewTxOut(
			int64(in.UTXO.Amount), in.UTXO.ScriptPubKey,
		)
	}
	return &msg, txscript.NewMultiPrevOutFetcher(prevOuts)
}

// TestBIP143NativeP2WPKH is the native P2WPKH example from BIP-143.
func TestBIP143NativeP2WPKH(t *testing.T) {
	raw := mustHex(t, "0100000002fff7f7881a8099afa6940d42d1e7f6362bec38171ea3edf433541db4e4ad969f"+
		"0000000000eeffffffef51e1b804cc89d182d279655c3aa89e815b1b309fe287d9b2b55d57b90ec68a"+
		"0100000000ffffffff02202cb206000000001976a9148280b37df378db99f66f85c95a783a76ac7a6d59"+
		"88ac9093510d000000001976a9143bde42dbee7e4dbe6a21b2d50ce2f0167faa815988ac11000000")
	tr, err := tx.Deserialize(raw)
	require.NoError(t, err)

	tr.Inputs[1].UTXO = &tx.UTXO{
		Amount:       600000000,
		ScriptPubKey: mustHex(t, "00141d0f172a0ecb48aee1be1f2687d2963ae33f71a1"),
		ScriptType:   address.P2WPKH,
	}
	h := NewHashes(tr)
	require.Equal(t, "96b827c8483d4e9b96712b6713a7b68d6e8003a781feba36c31143470b4efd37",
		hex.EncodeToString(h.HashPrevouts[:]))
	require.Equal(t, "52b0a642eea2fb7ae638c36f6252b6750293dbe574a806984b8e4d8548339a3b",
		hex.EncodeToString(h.HashSequence[:]))
	require.Equal(t, "863ef3e1a92afbfdb97f31ad0fc7683ee943e9abcf2501590ff8f6551f47e5e5",
		hex.EncodeToString(h.HashOutputs[:]))

	digest, err := P2WPKH(tr, h, 1, All)
	require.NoError(t, err)
	require.Equal(t, "c37af31116d1b27caf68aae9e3ac82f1477929014d5b917657d0eb49478cb670",
		hex.EncodeToString(digest[:]))

	// The first input has no known prevout.
	_, err = P2WPKH(tr, h, 0, All)
	require.ErrorIs(t, err, ErrMissingPrevOut)
	_, err = Taproot(tr, h, 1, Default)
	require.ErrorIs(t, err, ErrMissingPrevOut)
	_, err = P2WPKH(tr, h, 2, All)
	require.ErrorIs(t, err, ErrInputIndex)
}

func drawTx(t *rapid.T, typ address.ScriptType) *tx.Transaction {
	tr := &tx.Transaction{
		Version:           rapid.Int32Range(1, 3).Draw(t, "version"),
		LockTime:          rapid.Uint32().Draw(t, "locktime"),
		ChangeOutputIndex: tx.NoChange,
	}
	nIn := rapid.IntRange(1, 4).Draw(t, "inputs")
	for i := range nIn {
		// Distinct vouts keep outpoints unique even when txids collide.
		u := &tx.UTXO{
			Vout:       uint32(i),
			Amount:     btcutil.Amount(rapid.Int64Range(1, 1e10).Draw(t, "amount")),
			ScriptType: typ,
		}
		copy(u.Txid[:], rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "txid"))
		switch typ {
		case address.P2WPKH:
			u.ScriptPubKey = address.PayToWitnessPubKeyHashScript(
				rapid.SliceOfN(rapid.Byte(), 20, 20).Draw(t, "keyhash"))
		case address.P2TR:
			u.ScriptPubKey = address.PayToTaprootScript(
				rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "outkey"))
		}
		in := tx.NewInput(u)
		in.Sequence = rapid.SampledFrom([]uint32{tx.DefaultSequence, 0xFFFFFFFF, 0}).Draw(t, "seq")
		tr.Inputs = append(tr.Inputs, in)
	}
	nOut := rapid.IntRange(1, 4).Draw(t, "outputs")
	for range nOut {
		tr.Outputs = append(tr.Outputs, &tx.Output{
			Amount:       btcutil.Amount(rapid.Int64Range(0, 1e10).Draw(t, "value")),
			ScriptPubKey: rapid.SliceOfN(rapid.Byte(), 1, 40).Draw(t, "script"),
		})
	}
	return tr
}

func TestWitnessV0MatchesTxscript(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tr := drawTx(t, address.P2WPKH)
		idx := rapid.IntRange(0, len(tr.Inputs)-1).Draw(t, "idx")
		hashType := rapid.SampledFrom([]HashType{
			All, None, Single,
			All | AnyoneCanPay, None | AnyoneCanPay, Single | AnyoneCanPay,
		}).Draw(t, "hashType")

		got, err := P2WPKH(tr, NewHashes(tr), idx, hashType)
		require.NoError(t, err)

		if hashType&baseMask == Single && idx >= len(tr.Outputs) {
			return
		}
		msg, fetcher := toWire(t, tr)
		want, err := txscript.CalcWitnessSigHash(
			tr.Inputs[idx].UTXO.ScriptPubKey, txscript.NewTxSigHashes(msg, fetcher),
			txscript.SigHashType(hashType), msg, idx, int64(tr.Inputs[idx].UTXO.Amount),
		)
		require.NoError(t, err)
		require.Equal(t, want, got[:])
	})
}

func TestTaprootMatchesTxscript(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tr := drawTx(t, address.P2TR)
		idx := rapid.IntRange(0, len(tr.Inputs)-1).Draw(t, "idx")
		hashType := rapid.SampledFrom([]HashType{Default, All}).Draw(t, "hashType")

		got, err := Taproot(tr, NewHashes(tr), idx, hashType)
		require.NoError(t, err)

		msg, fetcher := toWire(t, tr)
		want, err := txscript.CalcTaprootSignatureHash(
			txscript.NewTxSigHashes(msg, fetcher), txscript.SigHashType(hashType),
			msg, idx, fetcher,
		)
		require.NoError(t, err)
		require.Equal(t, want, got[:])
	})
}

func TestTaprootRejectsOtherHashTypes(t *testing.T) {
	tr := &tx.Transaction{Inputs: []*tx.Input{tx.NewInput(&tx.UTXO{})}}
	for _, ht := range []HashType{None, Single, All | AnyoneCanPay} {
		_, err := Taproot(tr, NewHashes(tr), 0, ht)
		require.ErrorIs(t, err, ErrUnsupportedHashType)
	}
}

func TestSingleWithoutMatchingOutput(t *testing.T) {
	u := &tx.UTXO{
		Amount:       1000,
		ScriptPubKey: address.PayToWitnessPubKeyHashScript(make([]byte, 20)),
	}
	tr := &tx.Transaction{
		Version: 2,
		Inputs:  []*tx.Input{tx.NewInput(u), tx.NewInput(u)},
		Outputs: []*tx.Output{{Amount: 500, ScriptPubKey: []byte{0x51}}},
	}
	h := NewHashes(tr)

	// With no output at the input's index SINGLE commits to a zero
	// hashOutputs, same as NONE apart from the type byte.
	single, err := P2WPKH(tr, h, 1, Single)
	require.NoError(t, err)
	none, err := P2WPKH(tr, h, 1, None)
	require.NoError(t, err)
	require.NotEqual(t, single, none)

	tr.Outputs[0].Amount = 600
	single2, err := P2WPKH(tr, NewHashes(tr), 1, Single)
	require.NoError(t, err)
	require.Equal(t, single, single2)
}
