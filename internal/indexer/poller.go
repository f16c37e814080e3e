package indexer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"stakingScope/internal/metrics"
	"stakingScope/internal/model"
	"stakingScope/internal/multiplex"
)

// Source is the subset of the indexer the poller needs.
type Source interface {
	StakerTotals(ctx context.Context, account string) (model.StakerTotals, bool, error)
	AllCoreTotals(ctx context.Context) ([]model.CoreTotals, error)
}

// PollConfig holds the poller's timing.
type PollConfig struct {
	Interval     time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// Poller re-queries the indexer on an interval and feeds the results into
// the multiplexer as updates for one ledger generation.
type Poller struct {
	cfg    PollConfig
	source Source
	logger *zap.Logger
}

func NewPoller(cfg PollConfig, source Source, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &Poller{cfg: cfg, source: source, logger: logger}
}

// Run polls until ctx is done. Failed polls are logged and retried on the
// next tick; the ledger keeps whatever it last accepted.
func (p *Poller) Run(ctx context.Context, generation uint64, account string, feed chan<- multiplex.Update) error {
	if p.source == nil {
		return fmt.Errorf("indexer source is nil")
	}

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := p.Poll(ctx, generation, account, feed); err != nil && ctx.Err() == nil {
			metrics.QueryFailures.WithLabelValues("indexer").Inc()
			p.logger.Warn("indexer poll failed", zap.String("account", account), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll runs one round of queries and emits every row found.
func (p *Poller) Poll(ctx context.Context, generation uint64, account string, feed chan<- multiplex.Update) error {
	var (
		staker      model.StakerTotals
		stakerFound bool
		cores       []model.CoreTotals
	)

	retry := newRetryPolicy(p.cfg.MaxRetries, p.cfg.RetryBackoff)
	err := retry.do(ctx, func(ctx context.Context) error {
		var err error
		staker, stakerFound, err = p.source.StakerTotals(ctx, account)
		if err != nil {
			p.logger.Debug("staker totals query failed", zap.Error(err))
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("staker totals: %w", err)
	}

	err = retry.do(ctx, func(ctx context.Context) error {
		var err error
		cores, err = p.source.AllCoreTotals(ctx)
		if err != nil {
			p.logger.Debug("core totals query failed", zap.Error(err))
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("core totals: %w", err)
	}

	if stakerFound {
		if err := emit(ctx, feed, multiplex.StakerTotalsUpdate{Generation: generation, Totals: staker}); err != nil {
			return err
		}
	}
	for _, totals := range cores {
		if err := emit(ctx, feed, multiplex.CoreTotalsUpdate{Generation: generation, Totals: totals}); err != nil {
			return err
		}
	}
	p.logger.Debug("indexer poll complete", zap.Bool("staker_found", stakerFound), zap.Int("cores", len(cores)))
	return nil
}

func emit(ctx context.Context, feed chan<- multiplex.Update, u multiplex.Update) error {
	select {
	case feed <- u:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
