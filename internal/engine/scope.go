package engine

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"

	"stakingScope/internal/multiplex"
)

// group owns a set of subscriptions and the goroutines serving them. Closing
// it unsubscribes everything and waits for the goroutines to exit.
type group struct {
	ctx    context.Context
	cancel context.CancelFunc
	subs   event.SubscriptionScope

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func newGroup(parent context.Context) *group {
	ctx, cancel := context.WithCancel(parent)
	return &group{ctx: ctx, cancel: cancel}
}

// goTracked runs fn unless the group is already closed.
func (g *group) goTracked(fn func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		fn()
	}()
	return true
}

func (g *group) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	g.cancel()
	g.subs.Close()
	g.wg.Wait()
}

// watch pumps values from a subscription into handle until the
// subscription ends or the group closes.
func watch[T any](g *group, logger *zap.Logger, name string, sub event.Subscription, in <-chan T, handle func(T)) {
	if g.subs.Track(sub) == nil {
		sub.Unsubscribe()
		return
	}
	g.goTracked(func() {
		for {
			select {
			case v := <-in:
				handle(v)
			case err, ok := <-sub.Err():
				if ok && err != nil {
					logger.Warn("subscription ended", zap.String("topic", name), zap.Error(err))
				}
				return
			case <-g.ctx.Done():
				return
			}
		}
	})
}

// scope is everything opened for one selected account.
type scope struct {
	*group
	account    string
	generation uint64
	mux        *multiplex.Multiplexer
	feed       chan multiplex.Update
}

// send hands an update to the scope's multiplexer feed.
func (s *scope) send(u multiplex.Update) {
	select {
	case s.feed <- u:
	case <-s.ctx.Done():
	}
}

func (s *scope) close() {
	s.group.close()
	s.mux.Wait()
}
