package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"btctx.mleku.dev/address"
	"btctx.mleku.dev/tx"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/jessevdk/go-flags"
)

type decodeCommand struct{}

func newDecodeCommand() *decodeCommand {
	return &decodeCommand{}
}

func (x *decodeCommand) Register(parser *flags.Parser) error {
	_, err := parser.AddCommand(
		"decode",
		"Decode a raw transaction",
		"Parse the hex encoded transaction given as the only argument "+
			"and print its ids, sizes, inputs and outputs as JSON",
		x,
	)
	return err
}

type decodedInput struct {
	Txid      string   `json:"txid"`
	Vout      uint32   `json:"vout"`
	ScriptSig string   `json:"script_sig,omitempty"`
	Witness   []string `json:"witness,omitempty"`
	Sequence  uint32   `json:"sequence"`
}

type decodedOutput struct {
	Amount       btcutil.Amount `json:"amount"`
	ScriptPubKey string         `json:"script_pubkey"`
	Type         string         `json:"type"`
	Address      string         `json:"address,omitempty"`
}

type decodedTx struct {
	Txid     string          `json:"txid"`
	Wtxid    string          `json:"wtxid"`
	Version  int32           `json:"version"`
	Size     int             `json:"size"`
	VSize    int64           `json:"vsize"`
	Weight   int64           `json:"weight"`
	LockTime uint32          `json:"locktime"`
	Inputs   []decodedInput  `json:"inputs"`
	Outputs  []decodedOutput `json:"outputs"`
}

func (x *decodeCommand) Execute(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected one hex transaction argument")
	}
	params, err := getNetworkParams(opts.Network)
	if err != nil {
		return err
	}
	raw, err := hex.DecodeString(strings.TrimSpace(args[0]))
	if err != nil {
		return fmt.Errorf("invalid hex: %w", err)
	}
	t, err := tx.Deserialize(raw)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, describe(t, params))
}

func describe(t *tx.Transaction, params *chaincfg.Params) *decodedTx {
	d := &decodedTx{
		Txid:     t.Txid(),
		Wtxid:    t.Wtxid(),
		Version:  t.Version,
		Size:     t.TotalSize(),
		VSize:    t.VirtualSize(),
		Weight:   t.Weight(),
		LockTime: t.LockTime,
	}
	for _, in := range t.Inputs {
		di := decodedInput{
			Txid:      in.PreviousTxid.String(),
			Vout:      in.PreviousIndex,
			ScriptSig: hex.EncodeToString(in.ScriptSig),
			Sequence:  in.Sequence,
		}
		for _, item := range in.Witness {
			di.Witness = append(di.Witness, hex.EncodeToString(item))
		}
		d.Inputs = append(d.Inputs, di)
	}
	for _, out := range t.Outputs {
		do := decodedOutput{
			Amount:       out.Amount,
			ScriptPubKey: hex.EncodeToString(out.ScriptPubKey),
			Type:         address.ClassifyScript(out.ScriptPubKey).String(),
		}
		if a, err := address.FromScriptPubKey(out.ScriptPubKey, params); err == nil {
			do.Address = a.String()
		}
		d.Outputs = append(d.Outputs, do)
	}
	return d
}
