package model

import "math/big"

// EraSnapshot is the aggregate stake of one core in one era.
type EraSnapshot struct {
	CoreID          uint32
	Era             EraIndex
	TotalStaked     *big.Int
	NumberOfStakers uint32
	RewardClaimed   bool
	Active          bool
}

// Equal reports whether both snapshots carry the same payload.
func (s EraSnapshot) Equal(o EraSnapshot) bool {
	return s.CoreID == o.CoreID &&
		s.Era == o.Era &&
		EqualAmount(s.TotalStaked, o.TotalStaked) &&
		s.NumberOfStakers == o.NumberOfStakers &&
		s.RewardClaimed == o.RewardClaimed &&
		s.Active == o.Active
}

// StakeEntry is one element of an account's staker record on a core.
type StakeEntry struct {
	Era    EraIndex
	Staked *big.Int
}

// StakePosition is the latest stake of an account on a core. EarliestEra is
// the first era still present in the staker record, i.e. the first era whose
// reward has not been claimed yet. Removed marks a record the chain no longer
// holds; such a position replaces whatever was stored and reads as absent.
type StakePosition struct {
	CoreID       uint32
	Account      string
	Era          EraIndex
	StakedAmount *big.Int
	EarliestEra  EraIndex
	Removed      bool
}

// RemovedPosition is the marker for an empty staker record.
func RemovedPosition(coreID uint32, account string) StakePosition {
	return StakePosition{CoreID: coreID, Account: account, Removed: true}
}

// Equal reports whether both positions carry the same payload.
func (p StakePosition) Equal(o StakePosition) bool {
	return p.CoreID == o.CoreID &&
		p.Account == o.Account &&
		p.Era == o.Era &&
		p.EarliestEra == o.EarliestEra &&
		p.Removed == o.Removed &&
		EqualAmount(p.StakedAmount, o.StakedAmount)
}

// PositionFromStakes builds a position out of a staker record. The last entry
// is the current stake, the lowest era is the unclaimed boundary. It returns
// false for an empty record.
func PositionFromStakes(coreID uint32, account string, stakes []StakeEntry) (StakePosition, bool) {
	if len(stakes) == 0 {
		return StakePosition{}, false
	}
	latest := stakes[len(stakes)-1]
	earliest := stakes[0].Era
	for _, s := range stakes[1:] {
		if s.Era < earliest {
			earliest = s.Era
		}
	}
	return StakePosition{
		CoreID:       coreID,
		Account:      account,
		Era:          latest.Era,
		StakedAmount: CloneAmount(latest.Staked),
		EarliestEra:  earliest,
	}, true
}

// UnclaimedRange marks the first era of a core whose reward is unclaimed.
type UnclaimedRange struct {
	CoreID               uint32   `json:"core_id"`
	EarliestUnclaimedEra EraIndex `json:"earliest_unclaimed_era"`
}

// StakerTotals are the indexer's pre-aggregated reward figures for an account.
type StakerTotals struct {
	Account               string
	LatestClaimBlock      uint64
	TotalRewardsClaimed   *big.Int
	TotalRewardsUnclaimed *big.Int
}

// Equal reports whether both rows carry the same payload.
func (t StakerTotals) Equal(o StakerTotals) bool {
	return t.Account == o.Account &&
		t.LatestClaimBlock == o.LatestClaimBlock &&
		EqualAmount(t.TotalRewardsClaimed, o.TotalRewardsClaimed) &&
		EqualAmount(t.TotalRewardsUnclaimed, o.TotalRewardsUnclaimed)
}

// CoreTotals are the indexer's pre-aggregated figures for a core.
type CoreTotals struct {
	CoreID                uint32
	LatestClaimBlock      uint64
	TotalRewardsClaimed   *big.Int
	TotalRewardsUnclaimed *big.Int
	TotalStaked           *big.Int
	NumberOfStakers       uint32
}

// Equal reports whether both rows carry the same payload.
func (t CoreTotals) Equal(o CoreTotals) bool {
	return t.CoreID == o.CoreID &&
		t.LatestClaimBlock == o.LatestClaimBlock &&
		EqualAmount(t.TotalRewardsClaimed, o.TotalRewardsClaimed) &&
		EqualAmount(t.TotalRewardsUnclaimed, o.TotalRewardsUnclaimed) &&
		EqualAmount(t.TotalStaked, o.TotalStaked) &&
		t.NumberOfStakers == o.NumberOfStakers
}

// NetworkTotals are chain-wide dashboard figures for an era.
type NetworkTotals struct {
	Era            EraIndex
	TotalIssuance  *big.Int
	ActiveIssuance *big.Int
	EraStaked      *big.Int
}

// Equal reports whether both values carry the same payload.
func (n NetworkTotals) Equal(o NetworkTotals) bool {
	return n.Era == o.Era &&
		EqualAmount(n.TotalIssuance, o.TotalIssuance) &&
		EqualAmount(n.ActiveIssuance, o.ActiveIssuance) &&
		EqualAmount(n.EraStaked, o.EraStaked)
}
