// Package coinselect picks the UTXOs that fund a transaction and decides
// whether it gets a change output.
package coinselect

import (
	"cmp"
	"fmt"
	"slices"

	"btctx.mleku.dev/address"
	"btctx.mleku.dev/tx"
	"github.com/btcsuite/btcd/btcutil"
)

// Strategy is a coin selection algorithm.
type Strategy uint8

const (
	// BranchAndBound searches for a subset that needs no change output
	// and falls back to LargestFirst when none is found.
	BranchAndBound Strategy = iota

	// LargestFirst accumulates UTXOs in descending value order.
	LargestFirst

	// SmallestFirst accumulates UTXOs in ascending value order.
	SmallestFirst
)

// String returns the flag name of the strategy.
func (s Strategy) String() string {
	switch s {
	case BranchAndBound:
		return "bnb"
	case LargestFirst:
		return "largest"
	case SmallestFirst:
		return "smallest"
	default:
		return fmt.Sprintf("strategy(%d)", uint8(s))
	}
}

// ParseStrategy is the inverse of String.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "bnb", "":
		return BranchAndBound, nil
	case "largest":
		return LargestFirst, nil
	case "smallest":
		return SmallestFirst, nil
	default:
		return 0, fmt.Errorf("coinselect: unknown strategy %q", s)
	}
}

// Params describes what a selection has to pay for.
type Params struct {
	// Target is the amount paid to the destination.
	Target btcutil.Amount

	FeeRate FeeRate

	// ChangeType is the script type of the change output, if one is made.
	ChangeType address.ScriptType

	// DestinationType is the script type of the payment output. Unknown
	// is sized as P2WPKH.
	DestinationType address.ScriptType

	Strategy Strategy
}

// Result is the outcome of a selection. TotalInput always equals
// Target + Fee + Change.
type Result struct {
	Selected   []*tx.UTXO
	TotalInput btcutil.Amount
	Fee        btcutil.Amount
	Change     btcutil.Amount
	HasChange  bool
}

// feeModel prices a candidate selection with and without change.
type feeModel struct {
	rate       FeeRate
	outputs    Estimator
	changeSize int64
}

func newFeeModel(p *Params) (*feeModel, error) {
	dest := p.DestinationType
	if dest == address.Unknown {
		dest = address.P2WPKH
	}
	m := &feeModel{rate: p.FeeRate}
	if err := m.outputs.AddOutput(dest); err != nil {
		return nil, err
	}
	changeSize, err := OutputSize(p.ChangeType)
	if err != nil {
		return nil, err
	}
	m.changeSize = changeSize
	return m, nil
}

// fees returns the fee without and with a change output for the given
// inputs.
func (m *feeModel) fees(utxos []*tx.UTXO) (btcutil.Amount, btcutil.Amount, error) {
	e := m.outputs
	for _, u := range utxos {
		if err := e.AddInput(u.ScriptType); err != nil {
			return 0, 0, err
		}
	}
	noChange := m.rate.FeeForWeight(e.Weight())
	e.outputCount++
	e.outputSize += m.changeSize
	return noChange, m.rate.FeeForWeight(e.Weight()), nil
}

func validate(utxos []*tx.UTXO, p *Params) error {
	if len(utxos) == 0 {
		return ErrNoUTXOs
	}
	if p.Target <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, p.Target)
	}
	if p.FeeRate < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidFeeRate, p.FeeRate)
	}
	for _, u := range utxos {
		if _, err := InputWeight(u.ScriptType); err != nil {
			return fmt.Errorf("%w (%v:%d)", err, u.Txid, u.Vout)
		}
	}
	return nil
}

// Select funds p.Target from utxos using p.Strategy.
func Select(utxos []*tx.UTXO, p Params) (*Result, error) {
	if err := validate(utxos, &p); err != nil {
		return nil, err
	}
	m, err := newFeeModel(&p)
	if err != nil {
		return nil, err
	}

	var res *Result
	switch p.Strategy {
	case BranchAndBound:
		res, err = branchAndBound(utxos, &p, m)
		if err != nil {
			return nil, err
		}
		if res == nil {
			log.Debugf("No changeless selection found for %v, "+
				"falling back to %v", p.Target, LargestFirst)
			res, err = greedy(utxos, &p, m, LargestFirst)
		}
	case LargestFirst, SmallestFirst:
		res, err = greedy(utxos, &p, m, p.Strategy)
	default:
		return nil, fmt.Errorf("coinselect: unknown strategy %d", p.Strategy)
	}
	if err != nil {
		return nil, err
	}

	log.Debugf("Selected %d of %d UTXOs (%v): input=%v fee=%v change=%v",
		len(res.Selected), len(utxos), p.Strategy, res.TotalInput,
		res.Fee, res.Change)
	return res, nil
}

// sortUTXOs returns a copy of utxos ordered by value, descending unless
// ascending is set. Ties keep their input order.
func sortUTXOs(utxos []*tx.UTXO, ascending bool) []*tx.UTXO {
	sorted := slices.Clone(utxos)
	slices.SortStableFunc(sorted, func(a, b *tx.UTXO) int {
		if ascending {
			return cmp.Compare(a.Amount, b.Amount)
		}
		return cmp.Compare(b.Amount, a.Amount)
	})
	return sorted
}

// greedy accumulates UTXOs in strategy order until the target and the
// no-change fee are covered. A change output is added when what is left
// after the with-change fee reaches the change type's dust limit;
// otherwise the excess goes to the fee.
func greedy(utxos []*tx.UTXO, p *Params, m *feeModel, s Strategy) (*Result, error) {
	sorted := sortUTXOs(utxos, s == SmallestFirst)

	var (
		total    btcutil.Amount
		required btcutil.Amount
	)
	for i, u := range sorted {
		total += u.Amount
		selected := sorted[:i+1]

		feeNoChange, feeWithChange, err := m.fees(selected)
		if err != nil {
			return nil, err
		}
		required = p.Target + feeNoChange
		if total < required {
			continue
		}

		res := &Result{
			Selected:   slices.Clone(selected),
			TotalInput: total,
		}
		change := total - p.Target - feeWithChange
		if change >= p.ChangeType.DustLimit() {
			res.Fee = feeWithChange
			res.Change = change
			res.HasChange = true
		} else {
			res.Fee = total - p.Target
		}
		return res, nil
	}

	return nil, &InsufficientFundsError{Required: required, Available: total}
}

// SelectAll spends every UTXO to a single output with no change and
// returns the fee. The amount sent is TotalInput - Fee, which must reach
// the destination's dust limit.
func SelectAll(utxos []*tx.UTXO, rate FeeRate, dest address.ScriptType) (*Result, error) {
	if len(utxos) == 0 {
		return nil, ErrNoUTXOs
	}
	if rate < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFeeRate, rate)
	}

	var e Estimator
	if err := e.AddOutput(dest); err != nil {
		return nil, err
	}
	var total btcutil.Amount
	for _, u := range utxos {
		if err := e.AddInput(u.ScriptType); err != nil {
			return nil, fmt.Errorf("%w (%v:%d)", err, u.Txid, u.Vout)
		}
		total += u.Amount
	}
	fee := rate.FeeForWeight(e.Weight())
	if required := fee + dest.DustLimit(); total < required {
		return nil, &InsufficientFundsError{Required: required, Available: total}
	}

	log.Debugf("Sweeping %d UTXOs: input=%v fee=%v", len(utxos), total, fee)
	return &Result{
		Selected:   slices.Clone(utxos),
		TotalInput: total,
		Fee:        fee,
	}, nil
}
