// Package txbuilder turns a UTXO set and a payment request into a signed,
// serialized transaction: coin selection, output construction, per-input
// signing and finalization.
package txbuilder

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"btctx.mleku.dev/address"
	"btctx.mleku.dev/coinselect"
	"btctx.mleku.dev/signer"
	"btctx.mleku.dev/tx"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// minFeeLimit is the floor of the default fee limit.
const minFeeLimit btcutil.Amount = 10_000

// Config configures a Builder. Zero values select the documented
// defaults.
type Config struct {
	// Params selects the network. Defaults to mainnet.
	Params *chaincfg.Params

	// Signer makes the per-input signers. Defaults to
	// signer.NewP256K1Signer.
	Signer signer.Factory

	// Keys supplies secret keys by UTXO derivation path.
	Keys signer.KeyProvider

	// Version defaults to 2.
	Version int32

	LockTime uint32

	// Sequence is set on every input. Defaults to 0xFFFFFFFE.
	Sequence uint32

	Strategy coinselect.Strategy

	// ChangeAddress receives change. Required by Build.
	ChangeAddress string

	// MaxFee caps the fee. Zero means half the amount sent, but at
	// least 10,000 sats.
	MaxFee btcutil.Amount

	// Parallel signs inputs concurrently.
	Parallel bool

	// AuxRand is the source of BIP-340 auxiliary randomness. Defaults to
	// crypto/rand.
	AuxRand io.Reader
}

// Builder builds and signs transactions.
type Builder struct {
	cfg    Config
	change *address.Address
}

// New validates cfg and fills in defaults.
func New(cfg Config) (*Builder, error) {
	if cfg.Params == nil {
		cfg.Params = &chaincfg.MainNetParams
	}
	if cfg.Signer == nil {
		cfg.Signer = signer.NewP256K1Signer
	}
	if cfg.Version == 0 {
		cfg.Version = tx.DefaultVersion
	}
	if cfg.Sequence == 0 {
		cfg.Sequence = tx.DefaultSequence
	}
	if cfg.AuxRand == nil {
		cfg.AuxRand = rand.Reader
	}

	b := &Builder{cfg: cfg}
	if cfg.ChangeAddress != "" {
		change, err := address.Decode(cfg.ChangeAddress, cfg.Params)
		if err != nil {
			return nil, fmt.Errorf("change address: %w", err)
		}
		b.change = change
	}
	return b, nil
}

// Build selects inputs paying amount to destination at feeRate and
// returns the unsigned transaction. Output 0 is the payment; output 1, if
// present, is change.
func (b *Builder) Build(utxos []*tx.UTXO, destination string,
	amount btcutil.Amount, feeRate coinselect.FeeRate) (*tx.Transaction, error) {

	if amount <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	dest, err := b.decodeDestination(destination, amount)
	if err != nil {
		return nil, err
	}
	if b.change == nil {
		return nil, ErrNoChangeAddress
	}
	if err := validateUTXOs(utxos); err != nil {
		return nil, err
	}

	sel, err := coinselect.Select(utxos, coinselect.Params{
		Target:          amount,
		FeeRate:         feeRate,
		ChangeType:      b.change.Type,
		DestinationType: dest.Type,
		Strategy:        b.cfg.Strategy,
	})
	if err != nil {
		return nil, err
	}
	if err := b.checkFee(sel.Fee, amount, sel.TotalInput); err != nil {
		return nil, err
	}

	t := b.newTransaction(sel)
	t.Outputs = append(t.Outputs, &tx.Output{
		Address:      dest.String(),
		Amount:       amount,
		ScriptPubKey: dest.ScriptPubKey(),
	})
	if sel.HasChange {
		t.ChangeOutputIndex = len(t.Outputs)
		t.Outputs = append(t.Outputs, &tx.Output{
			Address:      b.change.String(),
			Amount:       sel.Change,
			ScriptPubKey: b.change.ScriptPubKey(),
		})
	}
	t.TotalOutputAmount = amount + sel.Change

	log.Debugf("Built tx paying %v to %v: %d inputs, fee=%v, change=%v",
		amount, dest, len(t.Inputs), t.Fee, sel.Change)
	return t, nil
}

// BuildSendAll spends every UTXO to destination, less the fee.
func (b *Builder) BuildSendAll(utxos []*tx.UTXO, destination string,
	feeRate coinselect.FeeRate) (*tx.Transaction, error) {

	dest, err := address.Decode(destination, b.cfg.Params)
	if err != nil {
		return nil, err
	}
	if err := validateUTXOs(utxos); err != nil {
		return nil, err
	}
	sel, err := coinselect.SelectAll(utxos, feeRate, dest.Type)
	if err != nil {
		return nil, sweepError(err, dest.Type.DustLimit())
	}
	amount := sel.TotalInput - sel.Fee
	if err := b.checkFee(sel.Fee, amount, sel.TotalInput); err != nil {
		return nil, err
	}

	t := b.newTransaction(sel)
	t.Outputs = []*tx.Output{{
		Address:      dest.String(),
		Amount:       amount,
		ScriptPubKey: dest.ScriptPubKey(),
	}}
	t.TotalOutputAmount = amount

	log.Debugf("Built sweep of %d inputs to %v: amount=%v fee=%v",
		len(t.Inputs), dest, amount, t.Fee)
	return t, nil
}

// sweepError reports a sweep that covers the fee but leaves less than
// limit for the output as a dust output rather than a shortfall.
func sweepError(err error, limit btcutil.Amount) error {
	var short *coinselect.InsufficientFundsError
	if !errors.As(err, &short) {
		return err
	}
	fee := short.Required - limit
	if short.Available <= fee {
		return err
	}
	return &DustOutputError{Amount: short.Available - fee, Limit: limit}
}

// Send builds, signs and finalizes a payment.
func (b *Builder) Send(utxos []*tx.UTXO, destination string,
	amount btcutil.Amount, feeRate coinselect.FeeRate) (*tx.SignedTransaction, error) {

	t, err := b.Build(utxos, destination, amount, feeRate)
	if err != nil {
		return nil, err
	}
	if err := b.Sign(t); err != nil {
		return nil, err
	}
	return b.Finalize(t)
}

func (b *Builder) decodeDestination(destination string, amount btcutil.Amount) (*address.Address, error) {
	dest, err := address.Decode(destination, b.cfg.Params)
	if err != nil {
		return nil, err
	}
	if limit := dest.Type.DustLimit(); amount < limit {
		return nil, &DustOutputError{Amount: amount, Limit: limit}
	}
	return dest, nil
}

func (b *Builder) newTransaction(sel *coinselect.Result) *tx.Transaction {
	t := &tx.Transaction{
		Version:           b.cfg.Version,
		LockTime:          b.cfg.LockTime,
		TotalInputAmount:  sel.TotalInput,
		Fee:               sel.Fee,
		ChangeOutputIndex: tx.NoChange,
	}
	for _, u := range sel.Selected {
		in := tx.NewInput(u)
		in.Sequence = b.cfg.Sequence
		t.Inputs = append(t.Inputs, in)
	}
	return t
}

// checkFee guards against a fee that is mistaken for the amount.
func (b *Builder) checkFee(fee, amount, totalInput btcutil.Amount) error {
	limit := b.cfg.MaxFee
	if limit == 0 {
		limit = max(amount/2, minFeeLimit)
	}
	limit = min(limit, totalInput)
	if fee > limit {
		return &FeeTooHighError{Fee: fee, Limit: limit}
	}
	return nil
}

// validateUTXOs checks that each UTXO carries a possible amount and that
// its declared type matches its script.
func validateUTXOs(utxos []*tx.UTXO) error {
	var total btcutil.Amount
	for _, u := range utxos {
		if u.Amount <= 0 || u.Amount > btcutil.MaxSatoshi {
			return fmt.Errorf("%w: %v:%d holds %d sats", ErrInvalidAmount,
				u.Txid, u.Vout, int64(u.Amount))
		}
		total += u.Amount
		if total > btcutil.MaxSatoshi {
			return fmt.Errorf("%w: UTXO total exceeds the coin supply",
				ErrInvalidAmount)
		}
		if got := address.ClassifyScript(u.ScriptPubKey); got != u.ScriptType {
			return fmt.Errorf("%w: %v:%d is %v, script is %v",
				ErrUTXOMismatch, u.Txid, u.Vout, u.ScriptType, got)
		}
	}
	return nil
}

// Finalize checks that every input is signed and the amounts balance, and
// returns the broadcastable form.
func (b *Builder) Finalize(t *tx.Transaction) (*tx.SignedTransaction, error) {
	for i, in := range t.Inputs {
		if len(in.Witness) == 0 && len(in.ScriptSig) == 0 {
			return nil, fmt.Errorf("%w: %d", ErrUnsigned, i)
		}
	}
	var out btcutil.Amount
	for _, o := range t.Outputs {
		out += o.Amount
	}
	if out != t.TotalOutputAmount || t.TotalInputAmount != out+t.Fee {
		return nil, fmt.Errorf("%w: in=%v out=%v fee=%v", ErrUnbalanced,
			t.TotalInputAmount, out, t.Fee)
	}

	signed := t.Signed()
	log.Infof("Finalized tx %v: vsize=%d weight=%d fee=%v", signed.Txid,
		signed.VirtualSize, signed.Weight, signed.Fee)
	return signed, nil
}
