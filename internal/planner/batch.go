package planner

import (
	"fmt"

	"stakingScope/internal/model"
)

// Batches splits a plan into chunks of at most maxOps claim ops for chains
// with a per-batch weight limit. Restake ops travel with the final chunk so
// funds are only restaked once every claim has settled. A zero maxOps keeps
// the plan as one chunk.
func Batches(plan model.ClaimBatchPlan, maxOps int) ([]model.ClaimBatchPlan, error) {
	if maxOps < 0 {
		return nil, fmt.Errorf("max ops must not be negative")
	}
	if maxOps == 0 {
		plan.Ops = append([]model.Op(nil), plan.Ops...)
		return []model.ClaimBatchPlan{plan}, nil
	}

	claims := make([]model.Op, 0, len(plan.Ops))
	for _, op := range plan.Ops {
		if op.Kind == model.OpClaim {
			claims = append(claims, op)
		}
	}
	restakes := plan.Restakes()

	chunks := make([]model.ClaimBatchPlan, 0, len(claims)/maxOps+1)
	for start := 0; start < len(claims); start += maxOps {
		end := min(start+maxOps, len(claims))
		chunks = append(chunks, model.ClaimBatchPlan{
			Account: plan.Account,
			Era:     plan.Era,
			Ops:     append([]model.Op(nil), claims[start:end]...),
		})
	}
	if len(restakes) == 0 {
		return chunks, nil
	}
	if len(chunks) == 0 {
		chunks = append(chunks, model.ClaimBatchPlan{Account: plan.Account, Era: plan.Era})
	}
	last := &chunks[len(chunks)-1]
	last.Ops = append(last.Ops, restakes...)
	return chunks, nil
}
