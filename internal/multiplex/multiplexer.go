package multiplex

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"stakingScope/internal/ledger"
	"stakingScope/internal/metrics"
)

// Multiplexer is the single write path into the ledger. Updates from any
// number of concurrent feeds are merged under the era-monotonic rule, so the
// resulting state does not depend on delivery order.
type Multiplexer struct {
	ledger    *ledger.Ledger
	logger    *zap.Logger
	onApplied func(Update)
	wg        sync.WaitGroup
}

// New builds a multiplexer writing into l. onApplied, if set, runs after
// every accepted update.
func New(l *ledger.Ledger, logger *zap.Logger, onApplied func(Update)) *Multiplexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Multiplexer{ledger: l, logger: logger, onApplied: onApplied}
}

// Apply merges u into the ledger. It returns false when the update was
// stale, a duplicate, or belongs to a previous account selection.
func (m *Multiplexer) Apply(u Update) bool {
	out := u.apply(m.ledger)
	metrics.UpdatesTotal.WithLabelValues(u.Kind(), out.String()).Inc()
	if out != ledger.Applied {
		if ce := m.logger.Check(zap.DebugLevel, "update dropped"); ce != nil {
			fields := append(u.fields(), zap.String("kind", u.Kind()), zap.String("outcome", out.String()))
			ce.Write(fields...)
		}
		return false
	}
	if m.onApplied != nil {
		m.onApplied(u)
	}
	return true
}

// Attach drains feed into Apply until the feed is closed or ctx is done. The
// returned channel is closed once the draining goroutine has exited.
func (m *Multiplexer) Attach(ctx context.Context, feed <-chan Update) <-chan struct{} {
	done := make(chan struct{})
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-feed:
				if !ok {
					return
				}
				// a feed may race with cancellation; drop what arrives after it
				if ctx.Err() != nil {
					return
				}
				m.Apply(u)
			}
		}
	}()
	return done
}

// Wait blocks until every attached feed has been drained.
func (m *Multiplexer) Wait() {
	m.wg.Wait()
}
