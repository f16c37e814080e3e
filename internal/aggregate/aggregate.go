package aggregate

import (
	"errors"
	"math/big"
	"slices"
	"sort"

	"stakingScope/internal/ledger"
	"stakingScope/internal/model"
)

var ErrIncompleteAggregate = errors.New("aggregate incomplete: not every core has a snapshot")

// Input is everything Compute needs. It is read-only.
type Input struct {
	View       ledger.View
	Cores      []model.StakingCore
	CurrentEra model.EraIndex
	EraKnown   bool
}

// CoreView joins one registered core with everything known about it.
type CoreView struct {
	Core          model.StakingCore
	Snapshot      *model.EraSnapshot
	Totals        *model.CoreTotals
	Position      *model.StakePosition
	UnclaimedEras uint32
	// Share is the account's fraction of the core's stake.
	Share string
}

func (c CoreView) Equal(o CoreView) bool {
	return c.Core == o.Core &&
		equalPtr(c.Snapshot, o.Snapshot) &&
		equalPtr(c.Totals, o.Totals) &&
		equalPtr(c.Position, o.Position) &&
		c.UnclaimedEras == o.UnclaimedEras &&
		c.Share == o.Share
}

// Aggregate is the derived, account-level view of the ledger.
type Aggregate struct {
	Account    string
	Generation uint64
	Era        model.EraIndex
	EraKnown   bool

	Ranges          []model.UnclaimedRange
	UnclaimedEras   uint64
	TotalUserStaked *big.Int
	// TotalClaimed and TotalUnclaimed come from the indexer; nil when unknown.
	TotalClaimed   *big.Int
	TotalUnclaimed *big.Int

	Complete bool
	Missing  []uint32
	Cores    []CoreView
	Network  *model.NetworkTotals
}

// Totals are the headline figures, only defined for a complete aggregate.
type Totals struct {
	UserStaked    *big.Int
	Claimed       *big.Int
	Unclaimed     *big.Int
	UnclaimedEras uint64
}

// Compute derives the aggregate from a ledger view. It has no side effects.
func Compute(in Input) Aggregate {
	agg := Aggregate{
		Account:         in.View.Account,
		Generation:      in.View.Generation,
		Era:             in.CurrentEra,
		EraKnown:        in.EraKnown,
		TotalUserStaked: big.NewInt(0),
		Network:         in.View.Network,
	}

	coreIDs := make([]uint32, 0, len(in.View.Positions))
	for id := range in.View.Positions {
		coreIDs = append(coreIDs, id)
	}
	slices.Sort(coreIDs)

	for _, id := range coreIDs {
		pos := in.View.Positions[id]
		addAmount(agg.TotalUserStaked, pos.StakedAmount)
		if !in.EraKnown {
			continue
		}
		if n := unclaimedCount(in.CurrentEra, pos.EarliestEra); n > 0 {
			agg.Ranges = append(agg.Ranges, model.UnclaimedRange{CoreID: id, EarliestUnclaimedEra: pos.EarliestEra})
			agg.UnclaimedEras += uint64(n)
		}
	}

	if st := in.View.StakerTotals; st != nil {
		agg.TotalClaimed = model.CloneAmount(st.TotalRewardsClaimed)
		agg.TotalUnclaimed = model.CloneAmount(st.TotalRewardsUnclaimed)
	}

	cores := slices.Clone(in.Cores)
	sort.Slice(cores, func(i, j int) bool { return cores[i].ID < cores[j].ID })
	agg.Cores = make([]CoreView, 0, len(cores))
	for _, core := range cores {
		row := CoreView{Core: core}
		if snap, ok := in.View.Snapshots[core.ID]; ok {
			row.Snapshot = &snap
		} else {
			agg.Missing = append(agg.Missing, core.ID)
		}
		if totals, ok := in.View.CoreTotals[core.ID]; ok {
			row.Totals = &totals
		}
		if pos, ok := in.View.Positions[core.ID]; ok {
			row.Position = &pos
			if in.EraKnown {
				row.UnclaimedEras = unclaimedCount(in.CurrentEra, pos.EarliestEra)
			}
			if row.Snapshot != nil {
				row.Share = computeShare(pos.StakedAmount, row.Snapshot.TotalStaked)
			}
		}
		agg.Cores = append(agg.Cores, row)
	}
	agg.Complete = len(cores) > 0 && len(agg.Missing) == 0
	return agg
}

// Totals returns the headline figures or ErrIncompleteAggregate.
func (a Aggregate) Totals() (Totals, error) {
	if !a.Complete {
		return Totals{}, ErrIncompleteAggregate
	}
	return Totals{
		UserStaked:    model.CloneAmount(a.TotalUserStaked),
		Claimed:       model.CloneAmount(a.TotalClaimed),
		Unclaimed:     model.CloneAmount(a.TotalUnclaimed),
		UnclaimedEras: a.UnclaimedEras,
	}, nil
}

// Equal reports whether two aggregates would render identically.
func (a Aggregate) Equal(o Aggregate) bool {
	return a.Account == o.Account &&
		a.Generation == o.Generation &&
		a.Era == o.Era &&
		a.EraKnown == o.EraKnown &&
		slices.Equal(a.Ranges, o.Ranges) &&
		a.UnclaimedEras == o.UnclaimedEras &&
		model.EqualAmount(a.TotalUserStaked, o.TotalUserStaked) &&
		model.EqualAmount(a.TotalClaimed, o.TotalClaimed) &&
		model.EqualAmount(a.TotalUnclaimed, o.TotalUnclaimed) &&
		a.Complete == o.Complete &&
		slices.Equal(a.Missing, o.Missing) &&
		slices.EqualFunc(a.Cores, o.Cores, CoreView.Equal) &&
		equalPtr(a.Network, o.Network)
}
