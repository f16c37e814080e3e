package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"

	"stakingScope/internal/era"
	"stakingScope/internal/indexer"
	"stakingScope/internal/ledger"
	"stakingScope/internal/metrics"
	"stakingScope/internal/model"
	"stakingScope/internal/registry"
)

var (
	ErrNoAccount     = errors.New("no account selected")
	ErrClaimInFlight = errors.New("a claim is already in flight")
	ErrNotReady      = errors.New("engine is not ready")
)

// ChainSource is the chain surface the engine reads from.
type ChainSource interface {
	registry.Source

	ChainProperties(ctx context.Context) (model.ChainProperties, error)
	CurrentEra(ctx context.Context) (model.EraIndex, error)
	NextEraStartingBlock(ctx context.Context) (uint64, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	CoreEraStake(ctx context.Context, coreID uint32, era model.EraIndex) (model.EraSnapshot, bool, error)
	StakerInfo(ctx context.Context, coreID uint32, account string) (model.StakePosition, bool, error)
	NetworkTotals(ctx context.Context, era model.EraIndex) (model.NetworkTotals, error)
	AccountBalance(ctx context.Context, address string) (model.AccountBalance, error)

	SubscribeNewHeads(ctx context.Context, sink chan<- uint64) (event.Subscription, error)
	SubscribeCurrentEra(ctx context.Context, sink chan<- model.EraIndex) (event.Subscription, error)
	SubscribeNextEraStartingBlock(ctx context.Context, sink chan<- uint64) (event.Subscription, error)
	SubscribeCoreEraStake(ctx context.Context, coreID uint32, sink chan<- model.EraSnapshot) (event.Subscription, error)
	SubscribeStakerInfo(ctx context.Context, coreID uint32, account string, sink chan<- model.StakePosition) (event.Subscription, error)
}

// PlanRecorder keeps a history of built plans.
type PlanRecorder interface {
	RecordPlan(ctx context.Context, plan model.ClaimBatchPlan) error
}

// Config holds the engine's optional collaborators.
type Config struct {
	// Poller feeds indexer totals; nil disables the indexer.
	Poller *indexer.Poller
	// Reserve is kept back from restaking.
	Reserve *big.Int
	// Recorder receives every plan handed to a submitter.
	Recorder PlanRecorder
	// QueryConcurrency bounds concurrent chain queries per load.
	QueryConcurrency int
}

// Engine reconciles chain queries, push subscriptions and indexer polls
// into one ledger and derives claim plans from it.
type Engine struct {
	cfg    Config
	chain  ChainSource
	logger *zap.Logger

	ledger   *ledger.Ledger
	clock    *era.Clock
	registry *registry.Registry

	// opMu serializes Start, SelectAccount, Refresh and Close.
	opMu sync.Mutex

	mu         sync.Mutex
	state      State
	scope      *scope
	global     *group
	base       context.Context
	properties model.ChainProperties

	recomputeMu sync.Mutex
	snapshot    atomic.Pointer[Snapshot]
	listeners   []func(*Snapshot)

	claiming atomic.Bool
}

func New(cfg Config, chain ChainSource, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.QueryConcurrency <= 0 {
		cfg.QueryConcurrency = 8
	}
	e := &Engine{
		cfg:      cfg,
		chain:    chain,
		logger:   logger,
		ledger:   ledger.New(),
		clock:    era.NewClock(0),
		registry: registry.New(chain, logger),
		base:     context.Background(),
	}
	e.clock.OnEraAdvance(e.onEraAdvance)
	return e
}

// OnSnapshot registers fn to receive every published snapshot. It must be
// called before Start and fn must not block.
func (e *Engine) OnSnapshot(fn func(*Snapshot)) {
	e.recomputeMu.Lock()
	e.listeners = append(e.listeners, fn)
	e.recomputeMu.Unlock()
}

// Snapshot returns the latest published snapshot, or nil before the first.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	prev := e.state
	e.state = s
	e.mu.Unlock()
	if prev != s {
		e.logger.Debug("engine state", zap.Stringer("from", prev), zap.Stringer("to", s))
	}
}

func (e *Engine) currentScope() *scope {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scope
}

// Start loads chain constants and the current era and opens the
// account-independent subscriptions. ctx bounds the engine's lifetime.
func (e *Engine) Start(ctx context.Context) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	props, err := e.chain.ChainProperties(ctx)
	if err != nil {
		return fmt.Errorf("load chain properties: %w", err)
	}
	e.clock.SetBlocksPerEra(props.BlocksPerEra)

	current, err := e.chain.CurrentEra(ctx)
	if err != nil {
		return fmt.Errorf("load current era: %w", err)
	}
	e.clock.Observe(current)
	metrics.CurrentEra.Set(float64(current))

	if next, err := e.chain.NextEraStartingBlock(ctx); err != nil {
		e.logger.Warn("next era starting block unavailable", zap.Error(err))
	} else {
		e.clock.SetNextEraStartingBlock(next)
	}
	if block, err := e.chain.LatestBlockNumber(ctx); err != nil {
		e.logger.Warn("latest block unavailable", zap.Error(err))
	} else {
		e.clock.SetBlock(block)
	}

	g := newGroup(ctx)
	e.mu.Lock()
	e.base = ctx
	e.properties = props
	old := e.global
	e.global = g
	e.mu.Unlock()
	if old != nil {
		old.close()
	}
	e.openGlobalSubscriptions(g)

	e.logger.Info("engine started",
		zap.Uint32("era", uint32(current)),
		zap.Uint64("blocks_per_era", props.BlocksPerEra),
	)
	e.recompute()
	return nil
}

func (e *Engine) openGlobalSubscriptions(g *group) {
	heads := make(chan uint64)
	if sub, err := e.chain.SubscribeNewHeads(g.ctx, heads); err != nil {
		e.logger.Warn("subscribe new heads", zap.Error(err))
	} else {
		watch(g, e.logger, "newHeads", sub, heads, func(block uint64) {
			e.clock.SetBlock(block)
			e.recompute()
		})
	}

	eras := make(chan model.EraIndex)
	if sub, err := e.chain.SubscribeCurrentEra(g.ctx, eras); err != nil {
		e.logger.Warn("subscribe current era", zap.Error(err))
	} else {
		watch(g, e.logger, "currentEra", sub, eras, func(era model.EraIndex) {
			e.clock.Observe(era)
		})
	}

	next := make(chan uint64)
	if sub, err := e.chain.SubscribeNextEraStartingBlock(g.ctx, next); err != nil {
		e.logger.Warn("subscribe next era starting block", zap.Error(err))
	} else {
		watch(g, e.logger, "nextEraStartingBlock", sub, next, func(block uint64) {
			e.clock.SetNextEraStartingBlock(block)
			e.recompute()
		})
	}
}

// onEraAdvance runs on every era transition. The new era's snapshots and
// network totals are re-queried in the background.
func (e *Engine) onEraAdvance(current model.EraIndex) {
	metrics.CurrentEra.Set(float64(current))
	e.logger.Info("era advanced", zap.Uint32("era", uint32(current)))

	if sc := e.currentScope(); sc != nil {
		sc.goTracked(func() {
			updates, err := e.queryEra(sc.ctx, sc.generation, current)
			if err != nil {
				metrics.QueryFailures.WithLabelValues("chain").Inc()
				e.logger.Warn("era requery failed", zap.Uint32("era", uint32(current)), zap.Error(err))
			}
			for _, u := range updates {
				sc.mux.Apply(u)
			}
			e.recompute()
		})
	}
	e.recompute()
}

// Close tears down every subscription.
func (e *Engine) Close() {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	sc, g := e.scope, e.global
	e.scope, e.global = nil, nil
	e.mu.Unlock()

	if sc != nil {
		sc.close()
	}
	if g != nil {
		g.close()
	}
}
