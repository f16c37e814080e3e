package engine

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/event"

	"stakingScope/internal/model"
	"stakingScope/internal/submit"
)

type stakerKey struct {
	core    uint32
	account string
}

type fakeChain struct {
	mu        sync.Mutex
	era       model.EraIndex
	cores     []model.StakingCore
	positions map[stakerKey][]model.StakeEntry
	totals    map[uint32]*big.Int
	failStake error
	eraCalls  []model.EraIndex

	heads     event.Feed
	eras      event.Feed
	nextEra   event.Feed
	stakerMu  sync.Mutex
	stakers   map[stakerKey]*event.Feed
	snapshots map[uint32]*event.Feed
}

func newFakeChain(era model.EraIndex, coreIDs ...uint32) *fakeChain {
	f := &fakeChain{
		era:       era,
		positions: make(map[stakerKey][]model.StakeEntry),
		totals:    make(map[uint32]*big.Int),
		stakers:   make(map[stakerKey]*event.Feed),
		snapshots: make(map[uint32]*event.Feed),
	}
	for _, id := range coreIDs {
		f.cores = append(f.cores, model.StakingCore{ID: id, Metadata: model.CoreMetadata{Name: "core"}})
		f.totals[id] = big.NewInt(1000)
	}
	return f
}

func (f *fakeChain) setStakes(core uint32, account string, stakes ...model.StakeEntry) {
	f.mu.Lock()
	f.positions[stakerKey{core, account}] = stakes
	f.mu.Unlock()
}

func (f *fakeChain) setFailure(err error) {
	f.mu.Lock()
	f.failStake = err
	f.mu.Unlock()
}

func (f *fakeChain) erasQueried() []model.EraIndex {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.EraIndex(nil), f.eraCalls...)
}

func (f *fakeChain) RegisteredCores(ctx context.Context) ([]model.StakingCore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.StakingCore(nil), f.cores...), nil
}

func (f *fakeChain) ChainProperties(ctx context.Context) (model.ChainProperties, error) {
	return model.ChainProperties{BlocksPerEra: 100}, nil
}

func (f *fakeChain) CurrentEra(ctx context.Context) (model.EraIndex, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.era, nil
}

func (f *fakeChain) NextEraStartingBlock(ctx context.Context) (uint64, error) {
	return 0, errors.New("not tracked")
}

func (f *fakeChain) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return 1050, nil
}

func (f *fakeChain) CoreEraStake(ctx context.Context, coreID uint32, era model.EraIndex) (model.EraSnapshot, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eraCalls = append(f.eraCalls, era)
	total, ok := f.totals[coreID]
	if !ok {
		return model.EraSnapshot{}, false, nil
	}
	return model.EraSnapshot{CoreID: coreID, Era: era, TotalStaked: new(big.Int).Set(total), Active: true}, true, nil
}

func (f *fakeChain) StakerInfo(ctx context.Context, coreID uint32, account string) (model.StakePosition, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failStake != nil {
		return model.StakePosition{}, false, f.failStake
	}
	pos, ok := model.PositionFromStakes(coreID, account, f.positions[stakerKey{coreID, account}])
	return pos, ok, nil
}

func (f *fakeChain) NetworkTotals(ctx context.Context, era model.EraIndex) (model.NetworkTotals, error) {
	return model.NetworkTotals{Era: era, TotalIssuance: big.NewInt(1e6), ActiveIssuance: big.NewInt(9e5), EraStaked: big.NewInt(2000)}, nil
}

func (f *fakeChain) AccountBalance(ctx context.Context, address string) (model.AccountBalance, error) {
	return model.AccountBalance{Free: big.NewInt(500), Reserved: big.NewInt(0), Frozen: big.NewInt(100), Locked: big.NewInt(200)}, nil
}

func (f *fakeChain) SubscribeNewHeads(ctx context.Context, sink chan<- uint64) (event.Subscription, error) {
	return f.heads.Subscribe(sink), nil
}

func (f *fakeChain) SubscribeCurrentEra(ctx context.Context, sink chan<- model.EraIndex) (event.Subscription, error) {
	return f.eras.Subscribe(sink), nil
}

func (f *fakeChain) SubscribeNextEraStartingBlock(ctx context.Context, sink chan<- uint64) (event.Subscription, error) {
	return f.nextEra.Subscribe(sink), nil
}

func (f *fakeChain) snapshotFeed(core uint32) *event.Feed {
	f.stakerMu.Lock()
	defer f.stakerMu.Unlock()
	feed, ok := f.snapshots[core]
	if !ok {
		feed = new(event.Feed)
		f.snapshots[core] = feed
	}
	return feed
}

func (f *fakeChain) stakerFeed(core uint32, account string) *event.Feed {
	f.stakerMu.Lock()
	defer f.stakerMu.Unlock()
	key := stakerKey{core, account}
	feed, ok := f.stakers[key]
	if !ok {
		feed = new(event.Feed)
		f.stakers[key] = feed
	}
	return feed
}

func (f *fakeChain) SubscribeCoreEraStake(ctx context.Context, coreID uint32, sink chan<- model.EraSnapshot) (event.Subscription, error) {
	return f.snapshotFeed(coreID).Subscribe(sink), nil
}

func (f *fakeChain) SubscribeStakerInfo(ctx context.Context, coreID uint32, account string, sink chan<- model.StakePosition) (event.Subscription, error) {
	return f.stakerFeed(coreID, account).Subscribe(sink), nil
}

type fakeIndexer struct {
	mu        sync.Mutex
	unclaimed map[string]*big.Int
}

func (f *fakeIndexer) StakerTotals(ctx context.Context, account string) (model.StakerTotals, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.unclaimed[account]
	if !ok {
		return model.StakerTotals{}, false, nil
	}
	return model.StakerTotals{
		Account:               account,
		LatestClaimBlock:      1,
		TotalRewardsClaimed:   big.NewInt(0),
		TotalRewardsUnclaimed: new(big.Int).Set(v),
	}, true, nil
}

func (f *fakeIndexer) AllCoreTotals(ctx context.Context) ([]model.CoreTotals, error) {
	return nil, nil
}

type blockingSubmitter struct {
	started  chan model.ClaimBatchPlan
	statuses chan submit.Status
}

func (s *blockingSubmitter) Submit(ctx context.Context, plan model.ClaimBatchPlan, account string) (<-chan submit.Status, error) {
	s.started <- plan
	return s.statuses, nil
}

type memoryRecorder struct {
	mu    sync.Mutex
	plans []model.ClaimBatchPlan
}

func (r *memoryRecorder) RecordPlan(ctx context.Context, plan model.ClaimBatchPlan) error {
	r.mu.Lock()
	r.plans = append(r.plans, plan)
	r.mu.Unlock()
	return nil
}

// scriptedSubmitter answers the n-th submission with the n-th status,
// finalizing once the script runs out.
type scriptedSubmitter struct {
	mu     sync.Mutex
	script []submit.Status
	plans  []model.ClaimBatchPlan
}

func (s *scriptedSubmitter) Submit(ctx context.Context, plan model.ClaimBatchPlan, account string) (<-chan submit.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := submit.StatusFinalized
	if n := len(s.plans); n < len(s.script) {
		status = s.script[n]
	}
	s.plans = append(s.plans, plan)

	ch := make(chan submit.Status, 2)
	if status == submit.StatusFinalized {
		ch <- submit.StatusExecuted
	}
	ch <- status
	return ch, nil
}

func (s *scriptedSubmitter) submitted() []model.ClaimBatchPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ClaimBatchPlan(nil), s.plans...)
}
