package coinselect

import (
	"btctx.mleku.dev/tx"
	"github.com/btcsuite/btcd/btcutil"
)

// maxBnBTries bounds the number of nodes the search visits.
const maxBnBTries = 100_000

// bnbCandidate is a UTXO with its input weight.
type bnbCandidate struct {
	utxo   *tx.UTXO
	weight int64
}

// bnbSearch is the fixed part of a branch-and-bound run. The moving parts
// are passed through search's arguments and results.
type bnbSearch struct {
	cands     []bnbCandidate
	target    btcutil.Amount
	model     *feeModel
	tolerance btcutil.Amount
}

// bnbBest is the best selection seen so far.
type bnbBest struct {
	indices []int
	waste   btcutil.Amount
	found   bool
}

// fee returns the no-change fee for n inputs of combined weight
// inputWeight.
func (s *bnbSearch) fee(n int, inputWeight int64, witness bool) btcutil.Amount {
	e := s.model.outputs
	e.inputCount = n
	e.inputWeight = inputWeight
	e.hasWitness = witness
	return s.model.rate.FeeForWeight(e.Weight())
}

// search visits candidate depth with the current selection sel. It
// returns the updated best selection and the remaining node budget.
func (s *bnbSearch) search(depth int, sel []int, total btcutil.Amount,
	inputWeight int64, witness bool, remaining btcutil.Amount,
	best bnbBest, budget int) (bnbBest, int) {

	if budget <= 0 || (best.found && best.waste == 0) {
		return best, budget
	}
	budget--

	need := s.target + s.fee(len(sel), inputWeight, witness)
	switch {
	case total >= need:
		// Adding more inputs only adds waste, so backtrack either way.
		waste := total - need
		if waste <= s.tolerance && (!best.found || waste < best.waste) {
			best = bnbBest{
				indices: append([]int(nil), sel...),
				waste:   waste,
				found:   true,
			}
		}
		return best, budget

	case total+remaining < need, depth == len(s.cands):
		return best, budget
	}

	c := s.cands[depth]
	remaining -= c.utxo.Amount

	best, budget = s.search(
		depth+1, append(sel, depth), total+c.utxo.Amount,
		inputWeight+c.weight, witness || c.utxo.ScriptType.HasWitness(),
		remaining, best, budget,
	)
	return s.search(
		depth+1, sel, total, inputWeight, witness, remaining, best, budget,
	)
}

// branchAndBound looks for a subset whose value covers the target and
// the no-change fee with at most dust plus the cost of a change output
// left over. It returns nil when none is found within the budget.
func branchAndBound(utxos []*tx.UTXO, p *Params, m *feeModel) (*Result, error) {
	s := &bnbSearch{
		target: p.Target,
		model:  m,
		tolerance: p.ChangeType.DustLimit() +
			p.FeeRate.FeeForVSize(m.changeSize),
	}

	var remaining btcutil.Amount
	for _, u := range sortUTXOs(utxos, false) {
		w, err := InputWeight(u.ScriptType)
		if err != nil {
			return nil, err
		}
		// Inputs that cost more to spend than they carry never help.
		if u.Amount <= p.FeeRate.FeeForWeight(w) {
			continue
		}
		s.cands = append(s.cands, bnbCandidate{utxo: u, weight: w})
		remaining += u.Amount
	}

	best, budget := s.search(0, nil, 0, 0, false, remaining, bnbBest{}, maxBnBTries)
	log.Tracef("Branch and bound visited %d nodes", maxBnBTries-budget)
	if !best.found {
		return nil, nil
	}

	res := &Result{}
	for _, i := range best.indices {
		res.Selected = append(res.Selected, s.cands[i].utxo)
		res.TotalInput += s.cands[i].utxo.Amount
	}
	res.Fee = res.TotalInput - p.Target
	return res, nil
}
