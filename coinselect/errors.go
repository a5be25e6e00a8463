package coinselect

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
)

var (
	// ErrNoUTXOs is returned when selection is asked to pick from an
	// empty set.
	ErrNoUTXOs = errors.New("coinselect: no UTXOs available")

	// ErrInvalidAmount is returned for a non-positive target.
	ErrInvalidAmount = errors.New("coinselect: target amount must be positive")

	// ErrInvalidFeeRate is returned for a negative fee rate.
	ErrInvalidFeeRate = errors.New("coinselect: fee rate must not be negative")

	// ErrInsufficientFunds is the sentinel wrapped by
	// InsufficientFundsError.
	ErrInsufficientFunds = errors.New("coinselect: insufficient funds")

	// ErrUnsupportedScript is returned when a UTXO or output type has no
	// size model.
	ErrUnsupportedScript = errors.New("coinselect: unsupported script type")
)

// InsufficientFundsError reports how much was needed and how much the
// whole UTXO set could provide.
type InsufficientFundsError struct {
	Required  btcutil.Amount
	Available btcutil.Amount
}

// Error returns a human-readable string describing the error.
func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("coinselect: insufficient funds, need %v only "+
		"have %v available", e.Required, e.Available)
}

// Unwrap lets errors.Is match ErrInsufficientFunds.
func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}
