package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"stakingScope/internal/aggregate"
	"stakingScope/internal/metrics"
	"stakingScope/internal/model"
	"stakingScope/internal/planner"
	"stakingScope/internal/submit"
)

// recompute derives a fresh snapshot and publishes it when it differs from
// the previous one. Safe to call from any goroutine.
func (e *Engine) recompute() {
	e.recomputeMu.Lock()
	defer e.recomputeMu.Unlock()

	current, eraKnown := e.clock.CurrentEra()
	block, blockKnown := e.clock.CurrentBlock()
	countdown, countdownKnown := e.clock.BlocksUntilNextEra()

	e.mu.Lock()
	state := e.state
	props := e.properties
	e.mu.Unlock()

	view := e.ledger.View()
	snap := &Snapshot{
		State:      state,
		Account:    view.Account,
		Properties: props,
		Aggregate: aggregate.Compute(aggregate.Input{
			View:       view,
			Cores:      e.registry.Cores(),
			CurrentEra: current,
			EraKnown:   eraKnown,
		}),
		Era:                current,
		EraKnown:           eraKnown,
		Block:              block,
		BlockKnown:         blockKnown,
		BlocksUntilNextEra: countdown,
		CountdownKnown:     countdownKnown,
	}
	if snap.Equal(e.snapshot.Load()) {
		return
	}
	e.snapshot.Store(snap)

	metrics.UnclaimedEras.Set(float64(snap.Aggregate.UnclaimedEras))
	if snap.Aggregate.Complete {
		metrics.AggregateComplete.Set(1)
	} else {
		metrics.AggregateComplete.Set(0)
	}
	for _, fn := range e.listeners {
		fn(snap)
	}
}

// Plan builds a claim plan from the latest snapshot.
func (e *Engine) Plan(restake bool) (model.ClaimBatchPlan, error) {
	snap := e.Snapshot()
	if snap == nil || snap.Account == "" {
		return model.ClaimBatchPlan{}, ErrNoAccount
	}
	if !snap.EraKnown {
		metrics.PlansBuilt.WithLabelValues("nothing").Inc()
		return model.ClaimBatchPlan{}, fmt.Errorf("%w: current era unknown", planner.ErrNothingToClaim)
	}

	agg := snap.Aggregate
	plan, err := planner.Build(planner.Request{
		Account:        snap.Account,
		Ranges:         agg.Ranges,
		CurrentEra:     agg.Era,
		TotalUnclaimed: agg.TotalUnclaimed,
		Restake:        restake,
		Reserve:        e.cfg.Reserve,
	})
	if err == nil {
		err = planner.Validate(plan, agg.Ranges)
	}
	switch {
	case err == nil:
		metrics.PlansBuilt.WithLabelValues("built").Inc()
	case errors.Is(err, planner.ErrNothingToClaim):
		metrics.PlansBuilt.WithLabelValues("nothing").Inc()
	default:
		metrics.PlansBuilt.WithLabelValues("invalid").Inc()
	}
	return plan, err
}

// Claim plans, submits and tracks one claim batch. Only one claim may be in
// flight at a time. A finalized claim triggers a refresh of the ledger.
func (e *Engine) Claim(ctx context.Context, submitter submit.Submitter, restake bool, onProgress func(submit.Status)) (submit.Status, error) {
	return e.ClaimBatches(ctx, submitter, restake, 0, onProgress)
}

// ClaimBatches plans one claim and submits it in chunks of at most maxOps
// claim ops, in order, each tracked to its terminal status before the next
// is sent. It stops at the first chunk that is not finalized and returns
// that status. The ledger is refreshed once if any chunk finalized. A zero
// maxOps submits the whole plan as one batch.
func (e *Engine) ClaimBatches(ctx context.Context, submitter submit.Submitter, restake bool, maxOps int, onProgress func(submit.Status)) (submit.Status, error) {
	if !e.claiming.CompareAndSwap(false, true) {
		return "", ErrClaimInFlight
	}
	defer e.claiming.Store(false)

	plan, err := e.Plan(restake)
	if err != nil {
		return "", err
	}
	batches, err := planner.Batches(plan, maxOps)
	if err != nil {
		return "", fmt.Errorf("split claim: %w", err)
	}

	var (
		final     submit.Status
		finalized int
	)
	defer func() {
		if finalized == 0 {
			return
		}
		if err := e.Refresh(ctx); err != nil && !errors.Is(err, ErrNoAccount) {
			e.logger.Warn("refresh after claim", zap.Error(err))
		}
	}()

	for i, batch := range batches {
		if e.cfg.Recorder != nil {
			if err := e.cfg.Recorder.RecordPlan(ctx, batch); err != nil {
				e.logger.Warn("record plan", zap.Error(err))
			}
		}

		statuses, err := submitter.Submit(ctx, batch, batch.Account)
		if err != nil {
			return "", fmt.Errorf("submit claim batch %d/%d: %w", i+1, len(batches), err)
		}
		final, err = submit.Track(ctx, statuses, onProgress)
		if err != nil {
			return "", fmt.Errorf("track claim batch %d/%d: %w", i+1, len(batches), err)
		}

		e.logger.Info("claim batch finished",
			zap.String("account", batch.Account),
			zap.Int("batch", i+1),
			zap.Int("batches", len(batches)),
			zap.Int("ops", len(batch.Ops)),
			zap.String("status", string(final)),
		)
		if final != submit.StatusFinalized {
			return final, nil
		}
		finalized++
	}
	return final, nil
}

// Balance returns the selected account's balance breakdown.
func (e *Engine) Balance(ctx context.Context) (model.AccountBalance, error) {
	account := e.ledger.Account()
	if account == "" {
		return model.AccountBalance{}, ErrNoAccount
	}
	return e.chain.AccountBalance(ctx, account)
}
