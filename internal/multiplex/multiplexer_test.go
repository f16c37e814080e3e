package multiplex

import (
	"context"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"stakingScope/internal/ledger"
	"stakingScope/internal/model"
)

func positionUpdate(gen uint64, core uint32, era model.EraIndex, staked int64) PositionUpdate {
	return PositionUpdate{Generation: gen, Position: model.StakePosition{
		CoreID: core, Account: "alice", Era: era, EarliestEra: era, StakedAmount: big.NewInt(staked),
	}}
}

func TestApplyReportsOutcome(t *testing.T) {
	l := ledger.New()
	gen := l.Reset("alice")
	var applied int32
	m := New(l, zap.NewNop(), func(Update) { atomic.AddInt32(&applied, 1) })

	require.True(t, m.Apply(positionUpdate(gen, 1, 6, 60)))
	require.False(t, m.Apply(positionUpdate(gen, 1, 4, 40)), "stale update must be dropped")
	require.False(t, m.Apply(positionUpdate(gen, 1, 6, 60)), "duplicate delivery is a no-op")
	require.True(t, m.Apply(positionUpdate(gen, 1, 6, 70)), "equal era overwrites")
	require.Equal(t, int32(2), atomic.LoadInt32(&applied))

	p, ok := l.PositionFor(1)
	require.True(t, ok)
	require.Equal(t, model.EraIndex(6), p.Era)
	require.Equal(t, "70", p.StakedAmount.String())
}

func TestApplyDropsPreviousGeneration(t *testing.T) {
	l := ledger.New()
	old := l.Reset("alice")
	m := New(l, nil, nil)
	l.Reset("alice")

	require.False(t, m.Apply(positionUpdate(old, 1, 5, 1)))
	require.False(t, m.Apply(SnapshotUpdate{Generation: old, Snapshot: model.EraSnapshot{CoreID: 1, Era: 5}}))
	_, ok := l.PositionFor(1)
	require.False(t, ok)
}

func TestAttachDrainsConcurrentFeeds(t *testing.T) {
	l := ledger.New()
	gen := l.Reset("alice")
	m := New(l, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	push := make(chan Update)
	poll := make(chan Update)
	pushDone := m.Attach(ctx, push)
	pollDone := m.Attach(ctx, poll)

	go func() {
		for era := model.EraIndex(1); era <= 20; era++ {
			push <- positionUpdate(gen, 1, era, int64(era))
		}
		close(push)
	}()
	go func() {
		for era := model.EraIndex(20); era >= 1; era-- {
			poll <- positionUpdate(gen, 1, era, int64(era))
		}
		close(poll)
	}()

	for _, done := range []<-chan struct{}{pushDone, pollDone} {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("feed was not drained")
		}
	}

	p, ok := l.PositionFor(1)
	require.True(t, ok)
	require.Equal(t, model.EraIndex(20), p.Era)
}

func TestAttachStopsOnCancel(t *testing.T) {
	m := New(ledger.New(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := m.Attach(ctx, make(chan Update))
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("attach did not stop on cancel")
	}
}
