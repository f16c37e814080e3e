package engine

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"stakingScope/internal/metrics"
	"stakingScope/internal/model"
	"stakingScope/internal/multiplex"
)

// SelectAccount switches the engine to account. Everything belonging to the
// previous account is torn down and cleared before the new account loads.
// An empty account leaves the engine without an account.
func (e *Engine) SelectAccount(ctx context.Context, account string) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.setState(StateResetting)
	e.mu.Lock()
	old := e.scope
	e.scope = nil
	base := e.base
	e.mu.Unlock()
	if old != nil {
		old.close()
	}
	gen := e.ledger.Reset(account)

	if account == "" {
		e.setState(StateNoAccount)
		e.recompute()
		return nil
	}

	e.setState(StateLoading)
	e.recompute()
	if err := e.load(ctx, base, account, gen); err != nil {
		e.ledger.Reset("")
		e.setState(StateNoAccount)
		e.recompute()
		return err
	}
	e.setState(StateReady)
	e.recompute()
	e.logger.Info("account loaded", zap.String("account", account), zap.Uint64("generation", gen))
	return nil
}

func (e *Engine) load(ctx, base context.Context, account string, gen uint64) error {
	cores, err := e.registry.Load(ctx)
	if err != nil {
		return fmt.Errorf("load cores: %w", err)
	}

	sc := &scope{
		group:      newGroup(base),
		account:    account,
		generation: gen,
		feed:       make(chan multiplex.Update),
	}
	sc.mux = multiplex.New(e.ledger, e.logger, func(multiplex.Update) { e.recompute() })
	sc.mux.Attach(sc.ctx, sc.feed)

	e.mu.Lock()
	e.scope = sc
	e.mu.Unlock()

	e.openAccountSubscriptions(sc, cores)
	if e.cfg.Poller != nil {
		sc.goTracked(func() {
			_ = e.cfg.Poller.Run(sc.ctx, gen, account, sc.feed)
		})
	}

	updates, err := e.queryAll(ctx, sc)
	if err != nil {
		e.mu.Lock()
		e.scope = nil
		e.mu.Unlock()
		sc.close()
		return err
	}
	for _, u := range updates {
		sc.mux.Apply(u)
	}
	return nil
}

func (e *Engine) openAccountSubscriptions(sc *scope, cores []model.StakingCore) {
	for _, core := range cores {
		coreID := core.ID

		positions := make(chan model.StakePosition)
		if sub, err := e.chain.SubscribeStakerInfo(sc.ctx, coreID, sc.account, positions); err != nil {
			e.logger.Warn("subscribe staker info", zap.Uint32("core", coreID), zap.Error(err))
		} else {
			watch(sc.group, e.logger, "generalStakerInfo", sub, positions, func(p model.StakePosition) {
				sc.send(multiplex.PositionUpdate{Generation: sc.generation, Position: p})
			})
		}

		snapshots := make(chan model.EraSnapshot)
		if sub, err := e.chain.SubscribeCoreEraStake(sc.ctx, coreID, snapshots); err != nil {
			e.logger.Warn("subscribe core era stake", zap.Uint32("core", coreID), zap.Error(err))
		} else {
			watch(sc.group, e.logger, "coreEraStake", sub, snapshots, func(s model.EraSnapshot) {
				sc.send(multiplex.SnapshotUpdate{Generation: sc.generation, Snapshot: s})
			})
		}
	}
}

// Refresh re-runs the full queries for the selected account. On failure the
// ledger keeps its current contents.
func (e *Engine) Refresh(ctx context.Context) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	sc := e.currentScope()
	if sc == nil {
		return ErrNoAccount
	}
	if e.State() != StateReady {
		return ErrNotReady
	}

	e.setState(StateRefreshing)
	defer func() {
		e.setState(StateReady)
		e.recompute()
	}()

	updates, err := e.queryAll(ctx, sc)
	if err != nil {
		return err
	}
	for _, u := range updates {
		sc.mux.Apply(u)
	}
	return nil
}

// queryAll fetches positions, snapshots and network totals concurrently.
// Results are only returned when every query succeeded.
func (e *Engine) queryAll(ctx context.Context, sc *scope) ([]multiplex.Update, error) {
	current, eraKnown := e.clock.CurrentEra()
	cores := e.registry.Cores()

	var (
		mu      sync.Mutex
		updates []multiplex.Update
	)
	collect := func(u multiplex.Update) {
		mu.Lock()
		updates = append(updates, u)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.QueryConcurrency)
	for _, core := range cores {
		coreID := core.ID
		g.Go(func() error {
			pos, ok, err := e.chain.StakerInfo(gctx, coreID, sc.account)
			if err != nil {
				return fmt.Errorf("staker info core %d: %w", coreID, err)
			}
			if !ok {
				pos = model.RemovedPosition(coreID, sc.account)
			}
			collect(multiplex.PositionUpdate{Generation: sc.generation, Position: pos})
			return nil
		})
	}
	if eraKnown {
		g.Go(func() error {
			eraUpdates, err := e.queryEra(gctx, sc.generation, current)
			for _, u := range eraUpdates {
				collect(u)
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		metrics.QueryFailures.WithLabelValues("chain").Inc()
		return nil, err
	}
	return updates, nil
}

// queryEra fetches every core's snapshot and the network totals for era. It
// returns whatever succeeded together with the first error.
func (e *Engine) queryEra(ctx context.Context, gen uint64, current model.EraIndex) ([]multiplex.Update, error) {
	cores := e.registry.Cores()

	var (
		mu      sync.Mutex
		updates []multiplex.Update
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.QueryConcurrency)
	for _, core := range cores {
		coreID := core.ID
		g.Go(func() error {
			snap, ok, err := e.chain.CoreEraStake(gctx, coreID, current)
			if err != nil {
				return fmt.Errorf("core era stake core %d: %w", coreID, err)
			}
			if ok {
				mu.Lock()
				updates = append(updates, multiplex.SnapshotUpdate{Generation: gen, Snapshot: snap})
				mu.Unlock()
			}
			return nil
		})
	}
	g.Go(func() error {
		totals, err := e.chain.NetworkTotals(gctx, current)
		if err != nil {
			return fmt.Errorf("network totals: %w", err)
		}
		mu.Lock()
		updates = append(updates, multiplex.NetworkUpdate{Generation: gen, Totals: totals})
		mu.Unlock()
		return nil
	})

	err := g.Wait()
	return updates, err
}
