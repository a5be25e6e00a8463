package txbuilder

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
)

var (
	// ErrInvalidAmount is returned for a non-positive payment amount.
	ErrInvalidAmount = errors.New("txbuilder: amount must be positive")

	// ErrDustOutput is the sentinel wrapped by DustOutputError.
	ErrDustOutput = errors.New("txbuilder: output below dust limit")

	// ErrFeeTooHigh is the sentinel wrapped by FeeTooHighError.
	ErrFeeTooHigh = errors.New("txbuilder: fee too high")

	// ErrNoChangeAddress is returned when Build needs a change output
	// and none is configured.
	ErrNoChangeAddress = errors.New("txbuilder: no change address configured")

	// ErrNoKeys is returned when signing without a key provider.
	ErrNoKeys = errors.New("txbuilder: no key provider configured")

	// ErrMissingUTXO is returned when an input has no spent output
	// attached.
	ErrMissingUTXO = errors.New("txbuilder: input has no UTXO")

	// ErrUTXOMismatch is returned when a UTXO's script type disagrees
	// with its scriptPubKey.
	ErrUTXOMismatch = errors.New("txbuilder: UTXO script type does not match its script")

	// ErrUnsupportedInput is returned when signing an input type this
	// engine cannot sign.
	ErrUnsupportedInput = errors.New("txbuilder: unsupported input type")

	// ErrWrongKey is returned when the supplied key does not control the
	// output being spent.
	ErrWrongKey = errors.New("txbuilder: key does not match UTXO")

	// ErrUnsigned is returned by Finalize when an input has no witness.
	ErrUnsigned = errors.New("txbuilder: input not signed")

	// ErrUnbalanced is returned by Finalize when inputs, outputs and fee
	// do not add up.
	ErrUnbalanced = errors.New("txbuilder: input total does not equal outputs plus fee")
)

// DustOutputError reports an output amount below its dust limit.
type DustOutputError struct {
	Amount btcutil.Amount
	Limit  btcutil.Amount
}

// Error returns a human-readable string describing the error.
func (e *DustOutputError) Error() string {
	return fmt.Sprintf("txbuilder: output of %v is below the dust limit "+
		"of %v", e.Amount, e.Limit)
}

// Unwrap lets errors.Is match ErrDustOutput.
func (e *DustOutputError) Unwrap() error {
	return ErrDustOutput
}

// FeeTooHighError reports a fee above the allowed limit.
type FeeTooHighError struct {
	Fee   btcutil.Amount
	Limit btcutil.Amount
}

// Error returns a human-readable string describing the error.
func (e *FeeTooHighError) Error() string {
	return fmt.Sprintf("txbuilder: fee %v exceeds limit of %v", e.Fee, e.Limit)
}

// Unwrap lets errors.Is match ErrFeeTooHigh.
func (e *FeeTooHighError) Unwrap() error {
	return ErrFeeTooHigh
}
