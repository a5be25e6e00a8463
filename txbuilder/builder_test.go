package txbuilder

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"btctx.mleku.dev/address"
	"btctx.mleku.dev/coinselect"
	"btctx.mleku.dev/p256k1"
	"btctx.mleku.dev/signer"
	"btctx.mleku.dev/tx"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var params = &chaincfg.RegressionNetParams

// zeroReader yields zero bytes, making Schnorr signatures deterministic.
type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

// failingReader always fails.
type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("no entropy")
}

func seckey(b byte) []byte {
	k := make([]byte, 32)
	k[31] = b
	k[0] = 0x42
	return k
}

func pubkey(t require.TestingT, sec []byte) []byte {
	var pk p256k1.PublicKey
	require.NoError(t, p256k1.ECPubkeyCreate(&pk, sec))
	ser := pk.SerializeCompressed()
	return ser[:]
}

func addr(t require.TestingT, sec []byte, typ address.ScriptType) *address.Address {
	a, err := address.FromPublicKey(pubkey(t, sec), typ, params)
	require.NoError(t, err)
	return a
}

// fundingUTXO returns an output of typ owned by the key at path.
func fundingUTXO(t require.TestingT, keys signer.KeyMap, path string,
	vout uint32, amount btcutil.Amount, typ address.ScriptType) *tx.UTXO {

	a := addr(t, keys[path], typ)
	return &tx.UTXO{
		Txid:           chainhash.Hash{0x11, byte(vout)},
		Vout:           vout,
		Amount:         amount,
		ScriptPubKey:   a.ScriptPubKey(),
		ScriptType:     typ,
		Address:        a.String(),
		Confirmations:  6,
		DerivationPath: path,
	}
}

func testKeys() signer.KeyMap {
	return signer.KeyMap{
		"m/84'/1'/0'/0/0": seckey(1),
		"m/84'/1'/0'/0/1": seckey(2),
		"m/86'/1'/0'/0/0": seckey(3),
		"m/86'/1'/0'/0/1": seckey(4),
	}
}

func newBuilder(t require.TestingT, keys signer.KeyProvider, mod func(*Config)) *Builder {
	cfg := Config{
		Params:        params,
		Keys:          keys,
		ChangeAddress: addr(t, seckey(9), address.P2WPKH).String(),
		Strategy:      coinselect.LargestFirst,
		AuxRand:       zeroReader{},
	}
	if mod != nil {
		mod(&cfg)
	}
	b, err := New(cfg)
	require.NoError(t, err)
	return b
}

// verifyScripts runs every input of the signed transaction through the
// btcd script engine.
func verifyScripts(t require.TestingT, signed *tx.SignedTransaction, utxos []*tx.UTXO) {
	raw, err := hex.DecodeString(signed.RawHex)
	require.NoError(t, err)
	var msg wire.MsgTx
	require.NoError(t, msg.Deserialize(bytes.NewReader(raw)))
	require.Equal(t, signed.Txid, msg.TxHash().String())

	byOutPoint := make(map[wire.OutPoint]*tx.UTXO)
	prevOuts := make(map[wire.OutPoint]*wire.TxOut)
	for _, u := range utxos {
		op := wire.OutPoint{Hash: u.Txid, Index: u.Vout}
		byOutPoint[op] = u
		prevOuts[op] = wire.NewTxOut(int64(u.Amount), u.ScriptPubKey)
	}
	fetcher := txscript.NewMultiPrevOutFetcher(prevOuts)
	sigHashes := txscript.NewTxSigHashes(&msg, fetcher)

	for i, in := range msg.TxIn {
		u := byOutPoint[in.PreviousOutPoint]
		require.NotNil(t, u)
		vm, err := txscript.NewEngine(
			u.ScriptPubKey, &msg, i, txscript.StandardVerifyFlags, nil,
			sigHashes, int64(u.Amount), fetcher,
		)
		require.NoError(t, err)
		require.NoError(t, vm.Execute(), "input %d", i)
	}

	weight := int64(msg.SerializeSizeStripped()*3 + msg.SerializeSize())
	require.Equal(t, weight, signed.Weight)
	require.Equal(t, (weight+3)/4, signed.VirtualSize)
}

// TestSendSingleP2WPKH pays 50,000 of a single 100,000 sat P2WPKH output
// at 10 sat/vB.
func TestSendSingleP2WPKH(t *testing.T) {
	keys := testKeys()
	utxos := []*tx.UTXO{
		fundingUTXO(t, keys, "m/84'/1'/0'/0/0", 0, 100_000, address.P2WPKH),
	}
	b := newBuilder(t, keys, nil)
	dest := addr(t, seckey(7), address.P2WPKH).String()

	unsigned, err := b.Build(utxos, dest, 50_000, 10)
	require.NoError(t, err)
	require.Len(t, unsigned.Inputs, 1)
	require.Equal(t, btcutil.Amount(100_000), unsigned.TotalInputAmount)
	require.Equal(t, btcutil.Amount(100_000), unsigned.TotalOutputAmount+unsigned.Fee)
	require.Equal(t, 1, unsigned.ChangeOutputIndex)
	require.Equal(t, tx.DefaultSequence, unsigned.Inputs[0].Sequence)
	require.Equal(t, tx.DefaultVersion, unsigned.Version)
	require.Empty(t, unsigned.Inputs[0].Witness)

	// The fee matches the estimated size of the final transaction.
	var e coinselect.Estimator
	require.NoError(t, e.AddInput(address.P2WPKH))
	require.NoError(t, e.AddOutput(address.P2WPKH))
	require.NoError(t, e.AddOutput(address.P2WPKH))
	require.Equal(t, coinselect.FeeRate(10).FeeForVSize(e.VSize()), unsigned.Fee)

	require.NoError(t, b.Sign(unsigned))
	signed, err := b.Finalize(unsigned)
	require.NoError(t, err)
	require.Equal(t, unsigned.Fee, signed.Fee)
	require.LessOrEqual(t, signed.VirtualSize, e.VSize())
	verifyScripts(t, signed, utxos)

	witness := unsigned.Inputs[0].Witness
	require.Len(t, witness, 2)
	require.Equal(t, byte(0x01), witness[0][len(witness[0])-1])
	require.Equal(t, pubkey(t, seckey(1)), witness[1])
}

func TestSendMixedInputs(t *testing.T) {
	keys := testKeys()
	utxos := []*tx.UTXO{
		fundingUTXO(t, keys, "m/84'/1'/0'/0/0", 0, 30_000, address.P2WPKH),
		fundingUTXO(t, keys, "m/84'/1'/0'/0/1", 1, 40_000, address.P2WPKH),
		fundingUTXO(t, keys, "m/86'/1'/0'/0/0", 2, 50_000, address.P2TR),
		fundingUTXO(t, keys, "m/86'/1'/0'/0/1", 3, 20_000, address.P2TR),
	}
	dest := addr(t, seckey(7), address.P2TR).String()

	var results []*tx.SignedTransaction
	for _, parallel := range []bool{false, true} {
		b := newBuilder(t, keys, func(c *Config) {
			c.Parallel = parallel
			c.Strategy = coinselect.SmallestFirst
		})
		signed, err := b.Send(utxos, dest, 100_000, 5)
		require.NoError(t, err)
		verifyScripts(t, signed, utxos)
		results = append(results, signed)
	}

	// Signing is deterministic with fixed aux randomness, so both paths
	// produce the same transaction.
	require.Equal(t, results[0].RawHex, results[1].RawHex)
}

// TestSignUntweakedTaproot spends a P2TR output whose program is the raw
// x-only key rather than its BIP-86 tweak.
func TestSignUntweakedTaproot(t *testing.T) {
	// Only a key with even Y commits to its own x coordinate.
	var sec, pub []byte
	for b := byte(1); ; b++ {
		sec = seckey(b)
		if pub = pubkey(t, sec); pub[0] == 0x02 {
			break
		}
	}
	keys := signer.KeyMap{"m/86'/1'/0'/0/7": sec}
	u := &tx.UTXO{
		Txid:           chainhash.Hash{0x22},
		Amount:         80_000,
		ScriptPubKey:   address.PayToTaprootScript(pub[1:]),
		ScriptType:     address.P2TR,
		DerivationPath: "m/86'/1'/0'/0/7",
	}

	b := newBuilder(t, keys, nil)
	signed, err := b.Send([]*tx.UTXO{u}, addr(t, seckey(7), address.P2WPKH).String(), 40_000, 2)
	require.NoError(t, err)
	verifyScripts(t, signed, []*tx.UTXO{u})
}

func TestSignWithBtcecSigner(t *testing.T) {
	keys := testKeys()
	utxos := []*tx.UTXO{
		fundingUTXO(t, keys, "m/84'/1'/0'/0/0", 0, 60_000, address.P2WPKH),
		fundingUTXO(t, keys, "m/86'/1'/0'/0/0", 1, 60_000, address.P2TR),
	}
	dest := addr(t, seckey(7), address.P2WPKH).String()

	var raws []string
	for _, newSigner := range []signer.Factory{signer.NewP256K1Signer, signer.NewBtcecSigner} {
		b := newBuilder(t, keys, func(c *Config) { c.Signer = newSigner })
		signed, err := b.Send(utxos, dest, 100_000, 3)
		require.NoError(t, err)
		verifyScripts(t, signed, utxos)
		raws = append(raws, signed.RawHex)
	}
	require.Equal(t, raws[0], raws[1])
}

func TestSendAll(t *testing.T) {
	keys := testKeys()
	utxos := []*tx.UTXO{
		fundingUTXO(t, keys, "m/84'/1'/0'/0/0", 0, 25_000, address.P2WPKH),
		fundingUTXO(t, keys, "m/86'/1'/0'/0/1", 1, 35_000, address.P2TR),
	}
	b := newBuilder(t, keys, func(c *Config) { c.ChangeAddress = "" })
	unsigned, err := b.BuildSendAll(utxos, addr(t, seckey(7), address.P2PKH).String(), 4)
	require.NoError(t, err)
	require.Len(t, unsigned.Outputs, 1)
	require.Equal(t, tx.NoChange, unsigned.ChangeOutputIndex)
	require.Equal(t, btcutil.Amount(60_000), unsigned.TotalOutputAmount+unsigned.Fee)

	require.NoError(t, b.Sign(unsigned))
	signed, err := b.Finalize(unsigned)
	require.NoError(t, err)
	verifyScripts(t, signed, utxos)
}

func TestAuxRandFailureFallsBack(t *testing.T) {
	keys := testKeys()
	utxos := []*tx.UTXO{
		fundingUTXO(t, keys, "m/86'/1'/0'/0/0", 0, 60_000, address.P2TR),
	}
	dest := addr(t, seckey(7), address.P2WPKH).String()

	failing := newBuilder(t, keys, func(c *Config) { c.AuxRand = failingReader{} })
	a, err := failing.Send(utxos, dest, 30_000, 1)
	require.NoError(t, err)
	verifyScripts(t, a, utxos)

	zero := newBuilder(t, keys, nil)
	b, err := zero.Send(utxos, dest, 30_000, 1)
	require.NoError(t, err)
	require.Equal(t, a.RawHex, b.RawHex)
}

func TestBuildErrors(t *testing.T) {
	keys := testKeys()
	utxos := []*tx.UTXO{
		fundingUTXO(t, keys, "m/84'/1'/0'/0/0", 0, 100_000, address.P2WPKH),
	}
	dest := addr(t, seckey(7), address.P2WPKH).String()
	b := newBuilder(t, keys, nil)

	_, err := b.Build(utxos, dest, 0, 1)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = b.Build(utxos, dest, 200, 1)
	var dust *DustOutputError
	require.ErrorAs(t, err, &dust)
	require.Equal(t, btcutil.Amount(294), dust.Limit)
	require.ErrorIs(t, err, ErrDustOutput)

	_, err = b.Build(utxos, "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", 10_000, 1)
	require.Error(t, err)

	_, err = b.Build(utxos, dest, 99_990, 1)
	require.ErrorIs(t, err, coinselect.ErrInsufficientFunds)

	_, err = b.Build(nil, dest, 10_000, 1)
	require.ErrorIs(t, err, coinselect.ErrNoUTXOs)

	capped := newBuilder(t, keys, func(c *Config) { c.MaxFee = 500 })
	_, err = capped.Build(utxos, dest, 10_000, 10)
	var tooHigh *FeeTooHighError
	require.ErrorAs(t, err, &tooHigh)
	require.Equal(t, btcutil.Amount(500), tooHigh.Limit)

	// The default limit is max(amount/2, 10,000 sats).
	_, err = b.Build(utxos, dest, 1_000, 100)
	require.ErrorIs(t, err, ErrFeeTooHigh)

	noChange := newBuilder(t, keys, func(c *Config) { c.ChangeAddress = "" })
	_, err = noChange.Build(utxos, dest, 10_000, 1)
	require.ErrorIs(t, err, ErrNoChangeAddress)

	mismatched := *utxos[0]
	mismatched.ScriptType = address.P2TR
	_, err = b.Build([]*tx.UTXO{&mismatched}, dest, 10_000, 1)
	require.ErrorIs(t, err, ErrUTXOMismatch)

	_, err = New(Config{Params: params, ChangeAddress: "not an address"})
	require.Error(t, err)

	for _, amount := range []btcutil.Amount{0, -1, btcutil.MaxSatoshi + 1} {
		bad := *utxos[0]
		bad.Amount = amount
		_, err = b.Build([]*tx.UTXO{&bad}, dest, 10_000, 1)
		require.ErrorIs(t, err, ErrInvalidAmount, "amount %d", int64(amount))
		_, err = b.BuildSendAll([]*tx.UTXO{&bad}, dest, 1)
		require.ErrorIs(t, err, ErrInvalidAmount, "amount %d", int64(amount))
	}

	// Two UTXOs that are each possible but together exceed the supply.
	big1, big2 := *utxos[0], *utxos[0]
	big1.Amount, big2.Amount = btcutil.MaxSatoshi, 1
	big2.Vout = 1
	_, err = b.Build([]*tx.UTXO{&big1, &big2}, dest, 10_000, 1)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestSendAllDust(t *testing.T) {
	keys := testKeys()
	b := newBuilder(t, keys, nil)
	dest := addr(t, seckey(7), address.P2WPKH).String()

	// One P2WPKH input to one P2WPKH output is 110 vB.
	u := fundingUTXO(t, keys, "m/84'/1'/0'/0/0", 0, 300, address.P2WPKH)
	_, err := b.BuildSendAll([]*tx.UTXO{u}, dest, 1)
	var dust *DustOutputError
	require.ErrorAs(t, err, &dust)
	require.Equal(t, btcutil.Amount(190), dust.Amount)
	require.Equal(t, btcutil.Amount(294), dust.Limit)
	require.ErrorIs(t, err, ErrDustOutput)

	// Not even the fee is covered.
	u.Amount = 100
	_, err = b.BuildSendAll([]*tx.UTXO{u}, dest, 1)
	require.ErrorIs(t, err, coinselect.ErrInsufficientFunds)
	require.NotErrorIs(t, err, ErrDustOutput)
}

func TestSignErrors(t *testing.T) {
	keys := testKeys()
	dest := addr(t, seckey(7), address.P2WPKH).String()

	t.Run("wrong key", func(t *testing.T) {
		u := fundingUTXO(t, keys, "m/84'/1'/0'/0/0", 0, 100_000, address.P2WPKH)
		u.DerivationPath = "m/84'/1'/0'/0/1"
		b := newBuilder(t, keys, nil)
		unsigned, err := b.Build([]*tx.UTXO{u}, dest, 10_000, 1)
		require.NoError(t, err)
		err = b.Sign(unsigned)
		require.ErrorIs(t, err, ErrWrongKey)
		require.ErrorIs(t, err, p256k1.ErrSigningFailed)
		require.Empty(t, unsigned.Inputs[0].Witness)

		_, err = b.Finalize(unsigned)
		require.ErrorIs(t, err, ErrUnsigned)
	})

	t.Run("wrong taproot key", func(t *testing.T) {
		u := fundingUTXO(t, keys, "m/86'/1'/0'/0/0", 0, 100_000, address.P2TR)
		u.DerivationPath = "m/86'/1'/0'/0/1"
		b := newBuilder(t, keys, nil)
		_, err := b.Send([]*tx.UTXO{u}, dest, 10_000, 1)
		require.ErrorIs(t, err, ErrWrongKey)
	})

	t.Run("unknown path", func(t *testing.T) {
		u := fundingUTXO(t, keys, "m/84'/1'/0'/0/0", 0, 100_000, address.P2WPKH)
		u.DerivationPath = "m/0"
		b := newBuilder(t, keys, func(c *Config) { c.Parallel = true })
		_, err := b.Send([]*tx.UTXO{u}, dest, 10_000, 1)
		require.ErrorIs(t, err, signer.ErrUnknownKey)
	})

	t.Run("p2pkh input", func(t *testing.T) {
		u := fundingUTXO(t, keys, "m/84'/1'/0'/0/0", 0, 100_000, address.P2PKH)
		b := newBuilder(t, keys, nil)
		_, err := b.Send([]*tx.UTXO{u}, dest, 10_000, 1)
		require.ErrorIs(t, err, ErrUnsupportedInput)
		require.ErrorIs(t, err, p256k1.ErrSigningFailed)
	})

	t.Run("no keys", func(t *testing.T) {
		u := fundingUTXO(t, keys, "m/84'/1'/0'/0/0", 0, 100_000, address.P2WPKH)
		b := newBuilder(t, nil, nil)
		_, err := b.Send([]*tx.UTXO{u}, dest, 10_000, 1)
		require.ErrorIs(t, err, ErrNoKeys)
	})

	t.Run("first error by index", func(t *testing.T) {
		good := fundingUTXO(t, keys, "m/84'/1'/0'/0/0", 0, 10_000, address.P2WPKH)
		bad1 := fundingUTXO(t, keys, "m/84'/1'/0'/0/1", 1, 10_000, address.P2WPKH)
		bad1.DerivationPath = "m/1"
		bad2 := fundingUTXO(t, keys, "m/84'/1'/0'/0/1", 2, 10_000, address.P2WPKH)
		bad2.DerivationPath = "m/2"
		b := newBuilder(t, keys, func(c *Config) {
			c.Parallel = true
			c.Strategy = coinselect.SmallestFirst
		})
		unsigned, err := b.Build([]*tx.UTXO{good, bad1, bad2}, dest, 25_000, 1)
		require.NoError(t, err)
		require.Len(t, unsigned.Inputs, 3)
		err = b.Sign(unsigned)
		require.ErrorContains(t, err, "input 1:")
	})
}

func TestWeightIdentity(t *testing.T) {
	keys := testKeys()
	paths := []string{"m/84'/1'/0'/0/0", "m/84'/1'/0'/0/1", "m/86'/1'/0'/0/0", "m/86'/1'/0'/0/1"}
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 4).Draw(rt, "n")
		var utxos []*tx.UTXO
		for i := range n {
			path := rapid.SampledFrom(paths).Draw(rt, "path")
			typ := address.P2WPKH
			if strings.HasPrefix(path, "m/86'") {
				typ = address.P2TR
			}
			amount := btcutil.Amount(rapid.Int64Range(5_000, 500_000).Draw(rt, "amount"))
			utxos = append(utxos, fundingUTXO(rt, keys, path, uint32(i), amount, typ))
		}
		b := newBuilder(rt, keys, func(c *Config) {
			c.Strategy = rapid.SampledFrom([]coinselect.Strategy{
				coinselect.BranchAndBound, coinselect.LargestFirst, coinselect.SmallestFirst,
			}).Draw(rt, "strategy")
		})
		rate := coinselect.FeeRate(rapid.Int64Range(1, 20).Draw(rt, "rate"))

		signed, err := b.Send(utxos, addr(rt, seckey(7), address.P2TR).String(), 2_000, rate)
		if errors.Is(err, coinselect.ErrInsufficientFunds) {
			return
		}
		require.NoError(rt, err)

		parsed := mustDeserialize(rt, signed.RawHex)
		weight := int64(parsed.BaseSize())*3 + int64(parsed.TotalSize())
		require.Equal(rt, weight, signed.Weight)
		require.Equal(rt, (weight+3)/4, signed.VirtualSize)
		require.GreaterOrEqual(rt, signed.Fee, rate.FeeForVSize(signed.VirtualSize))
	})
}

func mustDeserialize(t require.TestingT, rawHex string) *tx.Transaction {
	raw, err := hex.DecodeString(rawHex)
	require.NoError(t, err)
	parsed, err := tx.Deserialize(raw)
	require.NoError(t, err)
	return parsed
}
