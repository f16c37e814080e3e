package model

import (
	"math/big"
	"time"
)

// OpKind distinguishes the operations of a claim batch.
type OpKind string

const (
	OpClaim   OpKind = "claim"
	OpRestake OpKind = "restake"
)

// Op is one call of a claim batch. Amount is only set for restake ops.
type Op struct {
	Kind   OpKind
	CoreID uint32
	Amount *big.Int
}

// ClaimOp settles exactly one era of rewards on a core.
func ClaimOp(coreID uint32) Op {
	return Op{Kind: OpClaim, CoreID: coreID}
}

// RestakeOp stakes amount on a core.
func RestakeOp(coreID uint32, amount *big.Int) Op {
	return Op{Kind: OpRestake, CoreID: coreID, Amount: CloneAmount(amount)}
}

// ClaimBatchPlan is an ordered batch of claim and restake ops.
type ClaimBatchPlan struct {
	Account string
	Era     EraIndex
	Ops     []Op
}

// ClaimCount returns the number of claim ops per core.
func (p ClaimBatchPlan) ClaimCount() map[uint32]int {
	out := make(map[uint32]int)
	for _, op := range p.Ops {
		if op.Kind == OpClaim {
			out[op.CoreID]++
		}
	}
	return out
}

// Restakes returns the restake ops in plan order.
func (p ClaimBatchPlan) Restakes() []Op {
	var out []Op
	for _, op := range p.Ops {
		if op.Kind == OpRestake {
			out = append(out, op)
		}
	}
	return out
}

// PlanRecord is the JSON representation of a plan used for storage.
type PlanRecord struct {
	Account   string     `json:"account"`
	Era       uint32     `json:"era"`
	CreatedAt string     `json:"created_at"`
	Ops       []OpRecord `json:"ops"`
}

// OpRecord is one op of a PlanRecord. Amounts are decimal strings.
type OpRecord struct {
	Kind   string `json:"kind"`
	CoreID uint32 `json:"core_id"`
	Amount string `json:"amount,omitempty"`
}

// NewPlanRecord converts a plan to its storage representation.
func NewPlanRecord(plan ClaimBatchPlan, createdAt time.Time) PlanRecord {
	ops := make([]OpRecord, 0, len(plan.Ops))
	for _, op := range plan.Ops {
		ops = append(ops, OpRecord{
			Kind:   string(op.Kind),
			CoreID: op.CoreID,
			Amount: FormatAmount(op.Amount),
		})
	}
	return PlanRecord{
		Account:   plan.Account,
		Era:       uint32(plan.Era),
		CreatedAt: createdAt.UTC().Format(time.RFC3339Nano),
		Ops:       ops,
	}
}
