package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"btctx.mleku.dev/coinselect"
	"btctx.mleku.dev/p256k1"
	"btctx.mleku.dev/signer"
	"btctx.mleku.dev/tx"
	"btctx.mleku.dev/txbuilder"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/jessevdk/go-flags"
)

const (
	signerP256K1 = "p256k1"
	signerBtcec  = "btcec"
)

type buildCommand struct {
	Request  string `long:"request" short:"r" description:"The JSON build request; '-' or empty reads stdin"`
	Signer   string `long:"signer" description:"The signing backend" choice:"p256k1" choice:"btcec"`
	Strategy string `long:"strategy" description:"The coin selection strategy" choice:"bnb" choice:"largest" choice:"smallest"`
	Parallel bool   `long:"parallel" description:"Sign inputs concurrently"`
	Unsigned bool   `long:"unsigned" description:"Stop after coin selection and print the unsigned transaction"`
}

func newBuildCommand() *buildCommand {
	return &buildCommand{
		Signer:   signerP256K1,
		Strategy: "bnb",
	}
}

func (x *buildCommand) Register(parser *flags.Parser) error {
	_, err := parser.AddCommand(
		"build",
		"Build and sign a transaction",
		"Select inputs from the UTXOs in the JSON request, pay the "+
			"destination, return change and sign every input with "+
			"the keys in the request; prints the signed transaction "+
			"as JSON",
		x,
	)
	return err
}

func (x *buildCommand) Execute(_ []string) error {
	params, err := getNetworkParams(opts.Network)
	if err != nil {
		return err
	}
	req, err := readRequest(x.Request)
	if err != nil {
		return err
	}
	utxos, err := req.utxos(params)
	if err != nil {
		return err
	}
	rate, err := req.feeRate()
	if err != nil {
		return err
	}
	strategy, err := coinselect.ParseStrategy(x.Strategy)
	if err != nil {
		return err
	}

	keys, err := req.keyMap()
	if err != nil {
		return err
	}
	defer func() {
		for _, k := range keys {
			p256k1.ZeroBytes(k)
		}
	}()

	newSigner := signer.NewP256K1Signer
	if x.Signer == signerBtcec {
		newSigner = signer.NewBtcecSigner
	}

	b, err := txbuilder.New(txbuilder.Config{
		Params:        params,
		Signer:        newSigner,
		Keys:          keys,
		LockTime:      req.LockTime,
		Strategy:      strategy,
		ChangeAddress: req.ChangeAddress,
		MaxFee:        btcutil.Amount(req.MaxFee),
		Parallel:      x.Parallel,
	})
	if err != nil {
		return err
	}

	var t *tx.Transaction
	if req.SendAll {
		t, err = b.BuildSendAll(utxos, req.Destination, rate)
	} else {
		t, err = b.Build(utxos, req.Destination,
			btcutil.Amount(req.Amount), rate)
	}
	if err != nil {
		return err
	}
	mainLog.Infof("Selected %d of %d UTXOs, fee %v at %v", len(t.Inputs),
		len(utxos), t.Fee, rate)

	if x.Unsigned {
		return printUnsigned(os.Stdout, t)
	}

	if err := b.Sign(t); err != nil {
		return err
	}
	signed, err := b.Finalize(t)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, signed)
}

// unsignedTx is the summary printed by build --unsigned.
type unsignedTx struct {
	Hex         string         `json:"hex"`
	Inputs      []string       `json:"inputs"`
	Fee         btcutil.Amount `json:"fee"`
	Change      int            `json:"change_index"`
	TotalInput  btcutil.Amount `json:"total_input"`
	TotalOutput btcutil.Amount `json:"total_output"`
}

func printUnsigned(w io.Writer, t *tx.Transaction) error {
	out := unsignedTx{
		Hex:         fmt.Sprintf("%x", t.Serialize(false)),
		Fee:         t.Fee,
		Change:      t.ChangeOutputIndex,
		TotalInput:  t.TotalInputAmount,
		TotalOutput: t.TotalOutputAmount,
	}
	for _, in := range t.Inputs {
		out.Inputs = append(out.Inputs,
			fmt.Sprintf("%v:%d", in.PreviousTxid, in.PreviousIndex))
	}
	return printJSON(w, out)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(v)
}
