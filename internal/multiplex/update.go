package multiplex

import (
	"go.uber.org/zap"

	"stakingScope/internal/ledger"
	"stakingScope/internal/model"
)

// Update is one value delivered by a chain query, a push subscription or the
// indexer, tagged with the ledger generation it was produced for.
type Update interface {
	Kind() string
	apply(l *ledger.Ledger) ledger.Outcome
	fields() []zap.Field
}

type SnapshotUpdate struct {
	Generation uint64
	Snapshot   model.EraSnapshot
}

func (SnapshotUpdate) Kind() string { return "snapshot" }

func (u SnapshotUpdate) apply(l *ledger.Ledger) ledger.Outcome {
	return l.ApplySnapshot(u.Generation, u.Snapshot)
}

func (u SnapshotUpdate) fields() []zap.Field {
	return []zap.Field{zap.Uint32("core", u.Snapshot.CoreID), zap.Uint32("era", uint32(u.Snapshot.Era))}
}

type PositionUpdate struct {
	Generation uint64
	Position   model.StakePosition
}

func (PositionUpdate) Kind() string { return "position" }

func (u PositionUpdate) apply(l *ledger.Ledger) ledger.Outcome {
	return l.ApplyPosition(u.Generation, u.Position)
}

func (u PositionUpdate) fields() []zap.Field {
	return []zap.Field{
		zap.Uint32("core", u.Position.CoreID),
		zap.String("account", u.Position.Account),
		zap.Uint32("era", uint32(u.Position.Era)),
	}
}

type CoreTotalsUpdate struct {
	Generation uint64
	Totals     model.CoreTotals
}

func (CoreTotalsUpdate) Kind() string { return "core_totals" }

func (u CoreTotalsUpdate) apply(l *ledger.Ledger) ledger.Outcome {
	return l.ApplyCoreTotals(u.Generation, u.Totals)
}

func (u CoreTotalsUpdate) fields() []zap.Field {
	return []zap.Field{zap.Uint32("core", u.Totals.CoreID), zap.Uint64("claim_block", u.Totals.LatestClaimBlock)}
}

type StakerTotalsUpdate struct {
	Generation uint64
	Totals     model.StakerTotals
}

func (StakerTotalsUpdate) Kind() string { return "staker_totals" }

func (u StakerTotalsUpdate) apply(l *ledger.Ledger) ledger.Outcome {
	return l.ApplyStakerTotals(u.Generation, u.Totals)
}

func (u StakerTotalsUpdate) fields() []zap.Field {
	return []zap.Field{zap.String("account", u.Totals.Account), zap.Uint64("claim_block", u.Totals.LatestClaimBlock)}
}

type NetworkUpdate struct {
	Generation uint64
	Totals     model.NetworkTotals
}

func (NetworkUpdate) Kind() string { return "network" }

func (u NetworkUpdate) apply(l *ledger.Ledger) ledger.Outcome {
	return l.ApplyNetwork(u.Generation, u.Totals)
}

func (u NetworkUpdate) fields() []zap.Field {
	return []zap.Field{zap.Uint32("era", uint32(u.Totals.Era))}
}
