package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"btctx.mleku.dev/address"
	"btctx.mleku.dev/coinselect"
	"btctx.mleku.dev/signer"
	"btctx.mleku.dev/tx"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// utxoEntry is a UTXO as it appears in a build request.
type utxoEntry struct {
	Txid           string `json:"txid"`
	Vout           uint32 `json:"vout"`
	Amount         int64  `json:"amount"`
	ScriptPubKey   string `json:"script_pubkey"`
	Confirmations  int64  `json:"confirmations"`
	DerivationPath string `json:"derivation_path"`
}

// buildRequest describes a payment. Amounts are in satoshis and the fee
// rate in sat/vB. Keys maps derivation paths to hex secret keys.
type buildRequest struct {
	UTXOs         []utxoEntry       `json:"utxos"`
	Keys          map[string]string `json:"keys"`
	Destination   string            `json:"destination"`
	Amount        int64             `json:"amount"`
	FeeRate       int64             `json:"fee_rate"`
	ChangeAddress string            `json:"change_address"`
	SendAll       bool              `json:"send_all"`
	MaxFee        int64             `json:"max_fee"`
	LockTime      uint32            `json:"locktime"`
}

func readRequest(path string) (*buildRequest, error) {
	var (
		raw []byte
		err error
	)
	if path == "" || path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read request: %w", err)
	}

	var req buildRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("unable to parse request: %w", err)
	}
	return &req, nil
}

// utxos converts the request's UTXO entries, classifying each script.
func (r *buildRequest) utxos(params *chaincfg.Params) ([]*tx.UTXO, error) {
	utxos := make([]*tx.UTXO, 0, len(r.UTXOs))
	for i, e := range r.UTXOs {
		txid, err := chainhash.NewHashFromStr(e.Txid)
		if err != nil {
			return nil, fmt.Errorf("utxo %d: invalid txid: %w", i, err)
		}
		script, err := hex.DecodeString(e.ScriptPubKey)
		if err != nil {
			return nil, fmt.Errorf("utxo %d: invalid script: %w", i, err)
		}
		u := &tx.UTXO{
			Txid:           *txid,
			Vout:           e.Vout,
			Amount:         btcutil.Amount(e.Amount),
			ScriptPubKey:   script,
			ScriptType:     address.ClassifyScript(script),
			Confirmations:  e.Confirmations,
			DerivationPath: e.DerivationPath,
		}
		if a, err := address.FromScriptPubKey(script, params); err == nil {
			u.Address = a.String()
		}
		utxos = append(utxos, u)
	}
	return utxos, nil
}

// keyMap decodes the request's keys. The caller zeroes the result.
func (r *buildRequest) keyMap() (signer.KeyMap, error) {
	keys := make(signer.KeyMap, len(r.Keys))
	for path, h := range r.Keys {
		sec, err := hex.DecodeString(h)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", path, err)
		}
		keys[path] = sec
	}
	return keys, nil
}

func (r *buildRequest) feeRate() (coinselect.FeeRate, error) {
	if r.FeeRate <= 0 {
		return 0, fmt.Errorf("%w: %d", coinselect.ErrInvalidFeeRate, r.FeeRate)
	}
	return coinselect.FeeRate(r.FeeRate), nil
}

func getNetworkParams(network string) (*chaincfg.Params, error) {
	switch strings.ToLower(network) {
	case "mainnet":
		return &chaincfg.MainNetParams, nil

	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params, nil

	case "regtest":
		return &chaincfg.RegressionNetParams, nil

	case "signet":
		return &chaincfg.SigNetParams, nil

	default:
		return nil, fmt.Errorf("unknown network: %v", network)
	}
}
