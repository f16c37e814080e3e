package aggregate

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stakingScope/internal/ledger"
	"stakingScope/internal/model"
)

func cores(ids ...uint32) []model.StakingCore {
	out := make([]model.StakingCore, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.StakingCore{ID: id, Metadata: model.CoreMetadata{Name: "core"}})
	}
	return out
}

func position(core uint32, earliest model.EraIndex, staked int64) model.StakePosition {
	return model.StakePosition{CoreID: core, Account: "alice", Era: earliest, EarliestEra: earliest, StakedAmount: big.NewInt(staked)}
}

func snapshot(core uint32, era model.EraIndex, total int64) model.EraSnapshot {
	return model.EraSnapshot{CoreID: core, Era: era, TotalStaked: big.NewInt(total), Active: true}
}

func TestComputeUnclaimedRanges(t *testing.T) {
	view := ledger.View{
		Account: "alice",
		Positions: map[uint32]model.StakePosition{
			2: position(2, 7, 50),
			1: position(1, 3, 100),
		},
		Snapshots: map[uint32]model.EraSnapshot{},
	}
	agg := Compute(Input{View: view, Cores: cores(2, 1), CurrentEra: 10, EraKnown: true})

	require.Equal(t, []model.UnclaimedRange{
		{CoreID: 1, EarliestUnclaimedEra: 3},
		{CoreID: 2, EarliestUnclaimedEra: 7},
	}, agg.Ranges)
	require.Equal(t, uint64(10), agg.UnclaimedEras)
	require.Equal(t, "150", agg.TotalUserStaked.String())
	require.Len(t, agg.Cores, 2)
	assert.Equal(t, uint32(7), agg.Cores[0].UnclaimedEras)
	assert.Equal(t, uint32(3), agg.Cores[1].UnclaimedEras)
}

func TestComputeUnclaimedCount(t *testing.T) {
	tests := []struct {
		name     string
		current  model.EraIndex
		earliest model.EraIndex
		want     int
	}{
		{name: "behind", current: 10, earliest: 3, want: 7},
		{name: "current era", current: 10, earliest: 10, want: 0},
		{name: "ahead", current: 10, earliest: 12, want: 0},
		{name: "era zero", current: 4, earliest: 0, want: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := ledger.View{Positions: map[uint32]model.StakePosition{1: position(1, tt.earliest, 1)}}
			agg := Compute(Input{View: view, CurrentEra: tt.current, EraKnown: true})
			require.Equal(t, uint64(tt.want), agg.UnclaimedEras)
			require.Len(t, agg.Ranges, min(tt.want, 1))
		})
	}
}

func TestComputeWithoutEra(t *testing.T) {
	view := ledger.View{Positions: map[uint32]model.StakePosition{1: position(1, 3, 10)}}
	agg := Compute(Input{View: view})
	require.Empty(t, agg.Ranges)
	require.Equal(t, "10", agg.TotalUserStaked.String())
}

func TestComputeCompleteness(t *testing.T) {
	view := ledger.View{
		Snapshots: map[uint32]model.EraSnapshot{1: snapshot(1, 10, 1000)},
		Positions: map[uint32]model.StakePosition{1: position(1, 9, 250)},
		StakerTotals: &model.StakerTotals{
			Account:               "alice",
			TotalRewardsClaimed:   big.NewInt(5),
			TotalRewardsUnclaimed: big.NewInt(7),
		},
	}

	agg := Compute(Input{View: view, Cores: cores(1, 2), CurrentEra: 10, EraKnown: true})
	require.False(t, agg.Complete)
	require.Equal(t, []uint32{2}, agg.Missing)
	_, err := agg.Totals()
	require.True(t, errors.Is(err, ErrIncompleteAggregate))

	view.Snapshots[2] = snapshot(2, 10, 0)
	agg = Compute(Input{View: view, Cores: cores(1, 2), CurrentEra: 10, EraKnown: true})
	require.True(t, agg.Complete)
	totals, err := agg.Totals()
	require.NoError(t, err)
	assert.Equal(t, "250", totals.UserStaked.String())
	assert.Equal(t, "5", totals.Claimed.String())
	assert.Equal(t, "7", totals.Unclaimed.String())
	assert.Equal(t, uint64(1), totals.UnclaimedEras)
	assert.Equal(t, "0.250000000000000000", agg.Cores[0].Share)
	assert.Empty(t, agg.Cores[1].Share)
}

func TestComputeNoCoresIsIncomplete(t *testing.T) {
	agg := Compute(Input{CurrentEra: 1, EraKnown: true})
	require.False(t, agg.Complete)
}

func TestAggregateEqual(t *testing.T) {
	view := ledger.View{
		Snapshots: map[uint32]model.EraSnapshot{1: snapshot(1, 10, 1000)},
		Positions: map[uint32]model.StakePosition{1: position(1, 4, 250)},
	}
	in := Input{View: view, Cores: cores(1), CurrentEra: 10, EraKnown: true}
	a := Compute(in)
	b := Compute(in)
	require.True(t, a.Equal(b))

	in.CurrentEra = 11
	require.False(t, a.Equal(Compute(in)))
}
