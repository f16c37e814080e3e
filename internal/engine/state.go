package engine

import (
	"stakingScope/internal/aggregate"
	"stakingScope/internal/model"
)

// State is the engine's per-account lifecycle state.
type State int

const (
	StateNoAccount State = iota
	StateLoading
	StateReady
	StateRefreshing
	StateResetting
)

func (s State) String() string {
	switch s {
	case StateNoAccount:
		return "no_account"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateRefreshing:
		return "refreshing"
	case StateResetting:
		return "resetting"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable picture of everything the engine derived. A new
// value is published only when something visible changed.
type Snapshot struct {
	State      State
	Account    string
	Properties model.ChainProperties
	Aggregate  aggregate.Aggregate

	Era      model.EraIndex
	EraKnown bool

	Block      uint64
	BlockKnown bool

	BlocksUntilNextEra uint64
	CountdownKnown     bool
}

// Equal reports whether two snapshots would render identically.
func (s *Snapshot) Equal(o *Snapshot) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.State == o.State &&
		s.Account == o.Account &&
		s.Properties == o.Properties &&
		s.Era == o.Era &&
		s.EraKnown == o.EraKnown &&
		s.Block == o.Block &&
		s.BlockKnown == o.BlockKnown &&
		s.BlocksUntilNextEra == o.BlocksUntilNextEra &&
		s.CountdownKnown == o.CountdownKnown &&
		s.Aggregate.Equal(o.Aggregate)
}
