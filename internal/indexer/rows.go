package indexer

import (
	"encoding/json"
	"fmt"
	"strconv"

	"stakingScope/internal/model"
)

type stakersResponse struct {
	Stakers []stakerRow `json:"stakers"`
}

type stakerRow struct {
	LatestClaimBlock json.Number `json:"latestClaimBlock"`
	TotalRewards     string      `json:"totalRewards"`
	TotalUnclaimed   string      `json:"totalUnclaimed"`
}

func (r stakerRow) toModel(account string) (model.StakerTotals, error) {
	block, err := parseBlock(r.LatestClaimBlock)
	if err != nil {
		return model.StakerTotals{}, err
	}
	claimed, err := model.ParseAmount(r.TotalRewards)
	if err != nil {
		return model.StakerTotals{}, fmt.Errorf("staker totalRewards: %w", err)
	}
	unclaimed, err := model.ParseAmount(r.TotalUnclaimed)
	if err != nil {
		return model.StakerTotals{}, fmt.Errorf("staker totalUnclaimed: %w", err)
	}
	return model.StakerTotals{
		Account:               account,
		LatestClaimBlock:      block,
		TotalRewardsClaimed:   claimed,
		TotalRewardsUnclaimed: unclaimed,
	}, nil
}

type coresResponse struct {
	Cores []coreRow `json:"cores"`
}

type coreRow struct {
	CoreID           uint32      `json:"coreId"`
	LatestClaimBlock json.Number `json:"latestClaimBlock"`
	TotalRewards     string      `json:"totalRewards"`
	TotalUnclaimed   string      `json:"totalUnclaimed"`
	TotalStaked      string      `json:"totalStaked"`
	NumberOfStakers  uint32      `json:"numberOfStakers"`
}

func (r coreRow) toModel() (model.CoreTotals, error) {
	block, err := parseBlock(r.LatestClaimBlock)
	if err != nil {
		return model.CoreTotals{}, err
	}
	claimed, err := model.ParseAmount(r.TotalRewards)
	if err != nil {
		return model.CoreTotals{}, fmt.Errorf("core %d totalRewards: %w", r.CoreID, err)
	}
	unclaimed, err := model.ParseAmount(r.TotalUnclaimed)
	if err != nil {
		return model.CoreTotals{}, fmt.Errorf("core %d totalUnclaimed: %w", r.CoreID, err)
	}
	staked, err := model.ParseAmount(r.TotalStaked)
	if err != nil {
		return model.CoreTotals{}, fmt.Errorf("core %d totalStaked: %w", r.CoreID, err)
	}
	return model.CoreTotals{
		CoreID:                r.CoreID,
		LatestClaimBlock:      block,
		TotalRewardsClaimed:   claimed,
		TotalRewardsUnclaimed: unclaimed,
		TotalStaked:           staked,
		NumberOfStakers:       r.NumberOfStakers,
	}, nil
}

func parseBlock(n json.Number) (uint64, error) {
	if n == "" {
		return 0, nil
	}
	block, err := strconv.ParseUint(n.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("latestClaimBlock %q: %w", n, err)
	}
	return block, nil
}
