package ledger

import (
	"sync"
	"sync/atomic"
)

// entry is an immutable versioned value stored in a slot. The version is the
// era (or claim block for indexer rows) the value was produced for.
type entry[T any] struct {
	version uint64
	value   T
}

type slot[T any] struct {
	p atomic.Pointer[entry[T]]
}

// merge installs value unless a higher version is already stored. Equal
// versions overwrite; an identical payload at the same version is reported
// as a duplicate and left in place. The compare-and-swap loop makes the
// check and the write atomic for the key without holding a lock.
func (s *slot[T]) merge(version uint64, value T, equal func(a, b T) bool) Outcome {
	next := &entry[T]{version: version, value: value}
	for {
		cur := s.p.Load()
		if cur != nil {
			if version < cur.version {
				return Stale
			}
			if version == cur.version && equal(cur.value, value) {
				return Duplicate
			}
		}
		if s.p.CompareAndSwap(cur, next) {
			return Applied
		}
	}
}

// mergeFloor installs value at the stored version or version, whichever is
// higher, so it replaces the stored value under the era rule.
func (s *slot[T]) mergeFloor(version uint64, value T, equal func(a, b T) bool) Outcome {
	for {
		cur := s.p.Load()
		v := version
		if cur != nil {
			if equal(cur.value, value) {
				return Duplicate
			}
			if cur.version > v {
				v = cur.version
			}
		}
		if s.p.CompareAndSwap(cur, &entry[T]{version: v, value: value}) {
			return Applied
		}
	}
}

func (s *slot[T]) load() (T, uint64, bool) {
	cur := s.p.Load()
	if cur == nil {
		var zero T
		return zero, 0, false
	}
	return cur.value, cur.version, true
}

func slotFor[T any](m *sync.Map, key any) *slot[T] {
	if v, ok := m.Load(key); ok {
		return v.(*slot[T])
	}
	v, _ := m.LoadOrStore(key, new(slot[T]))
	return v.(*slot[T])
}

func lookup[T any](m *sync.Map, key any) (T, uint64, bool) {
	v, ok := m.Load(key)
	if !ok {
		var zero T
		return zero, 0, false
	}
	return v.(*slot[T]).load()
}
