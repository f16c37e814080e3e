package storage

import (
	"context"
	"time"

	"stakingScope/internal/model"
)

// Storage defines a sink for plan records.
type Storage interface {
	PutPlans(plans []model.PlanRecord) error
}

// Recorder adapts a Storage into a plan recorder.
type Recorder struct {
	Sink Storage
	Now  func() time.Time
}

func (r *Recorder) RecordPlan(ctx context.Context, plan model.ClaimBatchPlan) error {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return r.Sink.PutPlans([]model.PlanRecord{model.NewPlanRecord(plan, now())})
}
