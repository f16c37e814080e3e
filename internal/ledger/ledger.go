package ledger

import (
	"errors"
	"sync"

	"stakingScope/internal/model"
)

var (
	// ErrStaleUpdate marks an update older than the stored value for its key.
	// It is never surfaced to callers of the multiplexer.
	ErrStaleUpdate = errors.New("stale update")
	// ErrForeignUpdate marks an update produced for a previous account selection.
	ErrForeignUpdate = errors.New("update from previous account selection")
)

// Outcome is the result of merging one update into the ledger.
type Outcome int

const (
	Applied Outcome = iota
	Duplicate
	Stale
	// Foreign updates were produced for a previous account selection.
	Foreign
)

// Err maps rejected outcomes to their sentinel error; nil otherwise.
func (o Outcome) Err() error {
	switch o {
	case Stale:
		return ErrStaleUpdate
	case Foreign:
		return ErrForeignUpdate
	default:
		return nil
	}
}

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Duplicate:
		return "duplicate"
	case Stale:
		return "stale"
	case Foreign:
		return "foreign"
	default:
		return "unknown"
	}
}

type positionKey struct {
	coreID  uint32
	account string
}

// state is everything cleared by Reset.
type state struct {
	generation uint64
	account    string

	snapshots    sync.Map // uint32 -> *slot[model.EraSnapshot]
	positions    sync.Map // positionKey -> *slot[model.StakePosition]
	coreTotals   sync.Map // uint32 -> *slot[model.CoreTotals]
	stakerTotals sync.Map // string -> *slot[model.StakerTotals]
	network      slot[model.NetworkTotals]
}

// Ledger is the materialized view of snapshots and positions for the selected
// account. Writes for the same key are serialized by the key's slot; writes
// for different keys proceed independently. Reads never block on I/O.
//
// Stored values are copies taken at write time and must be treated as
// read-only by callers.
type Ledger struct {
	// Applies hold the read side for their duration; Reset takes the write
	// side so it waits for every in-flight apply before swapping state.
	mu sync.RWMutex
	st *state
}

func New() *Ledger {
	return &Ledger{st: &state{}}
}

// Reset clears all state and selects account. It returns the new generation;
// updates tagged with any other generation are rejected as Foreign. When
// Reset returns no apply of the previous generation can still land.
func (l *Ledger) Reset(account string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.st = &state{generation: l.st.generation + 1, account: account}
	return l.st.generation
}

// Generation returns the current generation.
func (l *Ledger) Generation() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.st.generation
}

// Account returns the selected account; empty when none is selected.
func (l *Ledger) Account() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.st.account
}

func (l *Ledger) ApplySnapshot(gen uint64, s model.EraSnapshot) Outcome {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if gen != l.st.generation {
		return Foreign
	}
	s.TotalStaked = model.CloneAmount(s.TotalStaked)
	return slotFor[model.EraSnapshot](&l.st.snapshots, s.CoreID).merge(uint64(s.Era), s, model.EraSnapshot.Equal)
}

func (l *Ledger) ApplyPosition(gen uint64, p model.StakePosition) Outcome {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if gen != l.st.generation || p.Account != l.st.account {
		return Foreign
	}
	p.StakedAmount = model.CloneAmount(p.StakedAmount)
	key := positionKey{coreID: p.CoreID, account: p.Account}
	s := slotFor[model.StakePosition](&l.st.positions, key)
	if p.Removed {
		return s.mergeFloor(uint64(p.Era), p, model.StakePosition.Equal)
	}
	return s.merge(uint64(p.Era), p, model.StakePosition.Equal)
}

func (l *Ledger) ApplyCoreTotals(gen uint64, t model.CoreTotals) Outcome {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if gen != l.st.generation {
		return Foreign
	}
	t.TotalRewardsClaimed = model.CloneAmount(t.TotalRewardsClaimed)
	t.TotalRewardsUnclaimed = model.CloneAmount(t.TotalRewardsUnclaimed)
	t.TotalStaked = model.CloneAmount(t.TotalStaked)
	return slotFor[model.CoreTotals](&l.st.coreTotals, t.CoreID).merge(t.LatestClaimBlock, t, model.CoreTotals.Equal)
}

func (l *Ledger) ApplyStakerTotals(gen uint64, t model.StakerTotals) Outcome {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if gen != l.st.generation || t.Account != l.st.account {
		return Foreign
	}
	t.TotalRewardsClaimed = model.CloneAmount(t.TotalRewardsClaimed)
	t.TotalRewardsUnclaimed = model.CloneAmount(t.TotalRewardsUnclaimed)
	return slotFor[model.StakerTotals](&l.st.stakerTotals, t.Account).merge(t.LatestClaimBlock, t, model.StakerTotals.Equal)
}

func (l *Ledger) ApplyNetwork(gen uint64, n model.NetworkTotals) Outcome {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if gen != l.st.generation {
		return Foreign
	}
	n.TotalIssuance = model.CloneAmount(n.TotalIssuance)
	n.ActiveIssuance = model.CloneAmount(n.ActiveIssuance)
	n.EraStaked = model.CloneAmount(n.EraStaked)
	return l.st.network.merge(uint64(n.Era), n, model.NetworkTotals.Equal)
}

// SnapshotFor returns the latest snapshot of a core.
func (l *Ledger) SnapshotFor(coreID uint32) (model.EraSnapshot, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, _, ok := lookup[model.EraSnapshot](&l.st.snapshots, coreID)
	return s, ok
}

// PositionFor returns the selected account's position on a core.
func (l *Ledger) PositionFor(coreID uint32) (model.StakePosition, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, _, ok := lookup[model.StakePosition](&l.st.positions, positionKey{coreID: coreID, account: l.st.account})
	if !ok || p.Removed {
		return model.StakePosition{}, false
	}
	return p, true
}

// StakerTotals returns the indexer totals of the selected account.
func (l *Ledger) StakerTotals() (model.StakerTotals, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, _, ok := lookup[model.StakerTotals](&l.st.stakerTotals, l.st.account)
	return t, ok
}

// CoreTotalsFor returns the indexer totals of a core.
func (l *Ledger) CoreTotalsFor(coreID uint32) (model.CoreTotals, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, _, ok := lookup[model.CoreTotals](&l.st.coreTotals, coreID)
	return t, ok
}

// Network returns the latest network totals.
func (l *Ledger) Network() (model.NetworkTotals, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n, _, ok := l.st.network.load()
	return n, ok
}

// View is a point-in-time copy of the ledger used for aggregation.
type View struct {
	Generation   uint64
	Account      string
	Snapshots    map[uint32]model.EraSnapshot
	Positions    map[uint32]model.StakePosition
	CoreTotals   map[uint32]model.CoreTotals
	StakerTotals *model.StakerTotals
	Network      *model.NetworkTotals
}

// View copies the current state. Each key is read atomically; keys written
// concurrently with the copy may show either their old or new value.
func (l *Ledger) View() View {
	l.mu.RLock()
	defer l.mu.RUnlock()
	st := l.st
	v := View{
		Generation: st.generation,
		Account:    st.account,
		Snapshots:  make(map[uint32]model.EraSnapshot),
		Positions:  make(map[uint32]model.StakePosition),
		CoreTotals: make(map[uint32]model.CoreTotals),
	}
	st.snapshots.Range(func(k, s any) bool {
		if val, _, ok := s.(*slot[model.EraSnapshot]).load(); ok {
			v.Snapshots[k.(uint32)] = val
		}
		return true
	})
	st.positions.Range(func(k, s any) bool {
		key := k.(positionKey)
		if key.account != st.account {
			return true
		}
		if val, _, ok := s.(*slot[model.StakePosition]).load(); ok && !val.Removed {
			v.Positions[key.coreID] = val
		}
		return true
	})
	st.coreTotals.Range(func(k, s any) bool {
		if val, _, ok := s.(*slot[model.CoreTotals]).load(); ok {
			v.CoreTotals[k.(uint32)] = val
		}
		return true
	})
	if t, _, ok := lookup[model.StakerTotals](&st.stakerTotals, st.account); ok {
		v.StakerTotals = &t
	}
	if n, _, ok := st.network.load(); ok {
		v.Network = &n
	}
	return v
}

// Positions returns the selected account's positions keyed by core.
func (l *Ledger) Positions() map[uint32]model.StakePosition {
	return l.View().Positions
}

// Snapshots returns the latest era snapshot of every core seen so far.
func (l *Ledger) Snapshots() map[uint32]model.EraSnapshot {
	return l.View().Snapshots
}
