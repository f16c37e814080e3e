package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stakingScope/internal/chain"
	"stakingScope/internal/config"
	"stakingScope/internal/engine"
	"stakingScope/internal/indexer"
	"stakingScope/internal/metrics"
	"stakingScope/internal/model"
	"stakingScope/internal/storage/postgres"
)

func runWatch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadWatch(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	reserve, err := model.ParseAmount(cfg.Reserve)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.Dial(ctx, cfg.RPCURL, logger)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	db, err := openStore(ctx, cfg.Common)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	p := loadPrefs(ctx, prefsStore(cfg.Common, db), logger)

	engineCfg := engine.Config{Reserve: reserve}
	if cfg.IndexerURL != "" {
		engineCfg.Poller = indexer.NewPoller(indexer.PollConfig{
			Interval:     cfg.PollInterval,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
		}, indexer.NewClient(cfg.IndexerURL, cfg.SS58Prefix, logger), logger)
	}
	if db != nil {
		engineCfg.Recorder = db
	}
	eng := engine.New(engineCfg, chainClient, logger)

	// Listeners must not block; persistence drains this channel.
	changes := make(chan *engine.Snapshot, 16)
	eng.OnSnapshot(func(s *engine.Snapshot) {
		logSnapshot(logger, s, p.AutoRestake)
		select {
		case changes <- s:
		default:
			logger.Debug("snapshot persistence lagging, dropping snapshot")
		}
	})

	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	logger.Info("watch start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("indexer", cfg.IndexerURL),
		zap.String("account", cfg.Account),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.String("metrics_addr", cfg.MetricsAddr),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Bool("auto_restake", p.AutoRestake),
	)

	if err := eng.Start(ctx); err != nil {
		return err
	}
	defer eng.Close()

	if cfg.Account != "" {
		if err := eng.SelectAccount(ctx, cfg.Account); err != nil {
			return err
		}
		logBalance(ctx, eng, logger)
	}

	persistSnapshots(ctx, db, changes, logger)
	return nil
}

// persistSnapshots stores newly seen era snapshots until ctx is done.
func persistSnapshots(ctx context.Context, db *postgres.Store, changes <-chan *engine.Snapshot, logger *zap.Logger) {
	seen := make(map[uint32]model.EraSnapshot)
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-changes:
			if db == nil {
				continue
			}
			var fresh []model.EraSnapshot
			for _, cv := range s.Aggregate.Cores {
				if cv.Snapshot == nil {
					continue
				}
				if prev, ok := seen[cv.Core.ID]; ok && prev.Equal(*cv.Snapshot) {
					continue
				}
				fresh = append(fresh, *cv.Snapshot)
			}
			if len(fresh) == 0 {
				continue
			}
			if err := db.InsertSnapshots(ctx, fresh); err != nil {
				logger.Warn("store snapshots", zap.Error(err))
				continue
			}
			for _, snap := range fresh {
				seen[snap.CoreID] = snap
			}
		}
	}
}

func logBalance(ctx context.Context, eng *engine.Engine, logger *zap.Logger) {
	b, err := eng.Balance(ctx)
	if err != nil {
		logger.Warn("account balance unavailable", zap.Error(err))
		return
	}
	logger.Info("account balance",
		zap.String("free", model.FormatAmount(b.Free)),
		zap.String("locked", model.FormatAmount(b.Locked)),
		zap.String("transferable", b.Transferable().String()),
		zap.String("available", b.Available().String()),
	)
}

func logSnapshot(logger *zap.Logger, s *engine.Snapshot, autoRestake bool) {
	agg := s.Aggregate
	logger.Info("snapshot",
		zap.Stringer("state", s.State),
		zap.String("account", s.Account),
		zap.Uint32("era", uint32(s.Era)),
		zap.Bool("era_known", s.EraKnown),
		zap.Uint64("blocks_until_next_era", s.BlocksUntilNextEra),
		zap.Bool("countdown_known", s.CountdownKnown),
		zap.Bool("complete", agg.Complete),
		zap.Int("missing", len(agg.Missing)),
		zap.Int("ranges", len(agg.Ranges)),
		zap.Uint64("unclaimed_eras", agg.UnclaimedEras),
		zap.String("total_staked", model.FormatAmount(agg.TotalUserStaked)),
		zap.String("total_claimed", model.FormatAmount(agg.TotalClaimed)),
		zap.String("total_unclaimed", model.FormatAmount(agg.TotalUnclaimed)),
		zap.Bool("auto_restake", autoRestake),
	)
}
