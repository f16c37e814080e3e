package planner

import (
	"errors"
	"fmt"
	"math/big"

	"stakingScope/internal/model"
)

var (
	ErrNothingToClaim = errors.New("nothing to claim")
	ErrInvalidPlan    = errors.New("invalid claim plan")
)

// Request holds the inputs of a single plan.
type Request struct {
	Account    string
	Ranges     []model.UnclaimedRange
	CurrentEra model.EraIndex
	// TotalUnclaimed is the indexer's unclaimed reward total; nil when unknown.
	TotalUnclaimed *big.Int
	Restake        bool
	// Reserve is kept out of the restaked amount. Nil means zero.
	Reserve *big.Int
}

// Build turns unclaimed ranges into an ordered batch: all claim ops in range
// order, then one restake op per core when restaking.
func Build(req Request) (model.ClaimBatchPlan, error) {
	ranges := dedupe(req.Ranges)
	plan := model.ClaimBatchPlan{Account: req.Account, Era: req.CurrentEra}

	if req.Restake && len(ranges) == 0 {
		return plan, fmt.Errorf("%w: restake requested without unclaimed eras", ErrNothingToClaim)
	}
	if req.TotalUnclaimed == nil || req.TotalUnclaimed.Sign() <= 0 {
		return plan, fmt.Errorf("%w: no unclaimed rewards", ErrNothingToClaim)
	}

	claimable := make([]model.UnclaimedRange, 0, len(ranges))
	for _, r := range ranges {
		if req.CurrentEra <= r.EarliestUnclaimedEra {
			continue
		}
		claimable = append(claimable, r)
		for n := req.CurrentEra - r.EarliestUnclaimedEra; n > 0; n-- {
			plan.Ops = append(plan.Ops, model.ClaimOp(r.CoreID))
		}
	}
	if len(plan.Ops) == 0 {
		return plan, fmt.Errorf("%w: no unclaimed eras", ErrNothingToClaim)
	}

	// Only cores that were claimed on receive a share of the restake.
	if req.Restake {
		amount := restakeAmount(req.TotalUnclaimed, req.Reserve, len(claimable))
		if amount.Sign() > 0 {
			for _, r := range claimable {
				plan.Ops = append(plan.Ops, model.RestakeOp(r.CoreID, amount))
			}
		}
	}
	return plan, nil
}

// dedupe keeps one range per core: the last value, at the position of the
// core's first appearance.
func dedupe(ranges []model.UnclaimedRange) []model.UnclaimedRange {
	index := make(map[uint32]int, len(ranges))
	out := make([]model.UnclaimedRange, 0, len(ranges))
	for _, r := range ranges {
		if i, ok := index[r.CoreID]; ok {
			out[i] = r
			continue
		}
		index[r.CoreID] = len(out)
		out = append(out, r)
	}
	return out
}

func restakeAmount(total, reserve *big.Int, cores int) *big.Int {
	amount := new(big.Int).Set(total)
	if reserve != nil {
		amount.Sub(amount, reserve)
	}
	if amount.Sign() <= 0 || cores == 0 {
		return new(big.Int)
	}
	return amount.Quo(amount, big.NewInt(int64(cores)))
}

// Validate checks a plan against the ranges it was built from.
func Validate(plan model.ClaimBatchPlan, ranges []model.UnclaimedRange) error {
	want := make(map[uint32]int)
	for _, r := range dedupe(ranges) {
		if plan.Era > r.EarliestUnclaimedEra {
			want[r.CoreID] = int(plan.Era - r.EarliestUnclaimedEra)
		}
	}
	got := plan.ClaimCount()
	if len(got) != len(want) {
		return fmt.Errorf("%w: claims for %d cores, want %d", ErrInvalidPlan, len(got), len(want))
	}
	for core, n := range want {
		if got[core] != n {
			return fmt.Errorf("%w: core %d has %d claims, want %d", ErrInvalidPlan, core, got[core], n)
		}
	}

	seen := make(map[uint32]struct{})
	for _, op := range plan.Restakes() {
		if _, ok := seen[op.CoreID]; ok {
			return fmt.Errorf("%w: duplicate restake for core %d", ErrInvalidPlan, op.CoreID)
		}
		if op.Amount == nil || op.Amount.Sign() <= 0 {
			return fmt.Errorf("%w: restake for core %d has no amount", ErrInvalidPlan, op.CoreID)
		}
		seen[op.CoreID] = struct{}{}
	}
	return nil
}
