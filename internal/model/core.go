package model

// EraIndex is the staking era number. It never decreases on a given network.
type EraIndex uint32

// StakingCore is a registered core accounts can stake towards.
type StakingCore struct {
	ID       uint32       `json:"key"`
	Owner    string       `json:"account"`
	Metadata CoreMetadata `json:"metadata"`
}

// CoreMetadata is the static, display-only description of a core.
type CoreMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image"`
}

// ChainProperties holds staking constants read once from the chain.
type ChainProperties struct {
	BlocksPerEra         uint64 `json:"blocks_per_era"`
	MaxStakersPerCore    uint32 `json:"max_stakers_per_core"`
	InflationErasPerYear uint32 `json:"inflation_eras_per_year"`
}
