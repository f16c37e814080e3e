package era

import (
	"sync"

	"stakingScope/internal/model"
)

// Clock tracks the current era and the block countdown to the next one.
// A clock that stops receiving values keeps reporting the last known ones;
// before the first value arrives every reading is reported as unknown.
type Clock struct {
	blocksPerEra uint64

	mu           sync.RWMutex
	era          model.EraIndex
	eraKnown     bool
	block        uint64
	blockKnown   bool
	nextEraBlock uint64
	nextKnown    bool

	// notifyMu serializes observer calls so eras are delivered in increasing order.
	notifyMu     sync.Mutex
	lastNotified model.EraIndex
	notified     bool
	observers    []func(model.EraIndex)
}

// NewClock returns a clock for a chain with the given era length in blocks.
func NewClock(blocksPerEra uint64) *Clock {
	return &Clock{blocksPerEra: blocksPerEra}
}

// SetBlocksPerEra replaces the era length once it is known from the chain.
func (c *Clock) SetBlocksPerEra(blocks uint64) {
	c.mu.Lock()
	c.blocksPerEra = blocks
	c.mu.Unlock()
}

// BlocksPerEra returns the configured era length.
func (c *Clock) BlocksPerEra() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocksPerEra
}

// OnEraAdvance registers fn to be called after the era moves forward. Observers
// run outside the clock's state lock and may read the clock.
func (c *Clock) OnEraAdvance(fn func(model.EraIndex)) {
	c.notifyMu.Lock()
	c.observers = append(c.observers, fn)
	c.notifyMu.Unlock()
}

// Observe records an era reported by the chain. Lower or equal eras are
// ignored. It returns true when the stored era advanced.
func (c *Clock) Observe(era model.EraIndex) bool {
	c.mu.Lock()
	if c.eraKnown && era <= c.era {
		c.mu.Unlock()
		return false
	}
	first := !c.eraKnown
	c.era = era
	c.eraKnown = true
	c.mu.Unlock()

	c.notify(era, first)
	return true
}

func (c *Clock) notify(era model.EraIndex, first bool) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if c.notified && era <= c.lastNotified {
		return
	}
	c.lastNotified = era
	c.notified = true
	// The first observed era is the starting point, not a transition.
	if first {
		return
	}
	for _, fn := range c.observers {
		fn(era)
	}
}

// CurrentEra returns the latest observed era.
func (c *Clock) CurrentEra() (model.EraIndex, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.era, c.eraKnown
}

// SetBlock records the latest block number. Older blocks are ignored.
func (c *Clock) SetBlock(block uint64) {
	c.mu.Lock()
	if !c.blockKnown || block > c.block {
		c.block = block
		c.blockKnown = true
	}
	c.mu.Unlock()
}

// CurrentBlock returns the latest observed block number.
func (c *Clock) CurrentBlock() (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.block, c.blockKnown
}

// SetNextEraStartingBlock records the block at which the next era begins.
func (c *Clock) SetNextEraStartingBlock(block uint64) {
	c.mu.Lock()
	c.nextEraBlock = block
	c.nextKnown = true
	c.mu.Unlock()
}

// BlocksUntilNextEra returns how many blocks remain in the current era. The
// chain's next-era starting block is used when known and still ahead;
// otherwise the countdown is derived from the block number and era length.
func (c *Clock) BlocksUntilNextEra() (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.blockKnown {
		return 0, false
	}
	if c.nextKnown && c.nextEraBlock >= c.block {
		return c.nextEraBlock - c.block, true
	}
	if c.blocksPerEra == 0 {
		return 0, false
	}
	return c.blocksPerEra - c.block%c.blocksPerEra, true
}
