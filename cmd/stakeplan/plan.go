package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stakingScope/internal/chain"
	"stakingScope/internal/config"
	"stakingScope/internal/engine"
	"stakingScope/internal/indexer"
	"stakingScope/internal/model"
	"stakingScope/internal/planner"
	"stakingScope/internal/storage"
	"stakingScope/internal/submit"
)

func runPlan(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPlan(cfgFile, cmd.Flags())
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
	if cfg.IndexerURL == "" {
		return fmt.Errorf("indexer url is required")
	}
	if len(cfg.Accounts) == 0 {
		return fmt.Errorf("account list is required")
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

	restake := cfg.Restake
	if !cfg.RestakeSet {
		restake = loadPrefs(ctx, prefsStore(cfg.Common, db), logger).AutoRestake
	}

	var recorder engine.PlanRecorder
	switch {
	case db != nil:
		recorder = db
	case cfg.Out != "":
		recorder = &storage.Recorder{Sink: storage.NewJsonlStorage(cfg.Out)}
	}

	eng := engine.New(engine.Config{
		Poller: indexer.NewPoller(indexer.PollConfig{
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
		}, indexer.NewClient(cfg.IndexerURL, cfg.SS58Prefix, logger), logger),
		Reserve:  reserve,
		Recorder: recorder,
	}, chainClient, logger)

	logger.Info("plan start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("indexer", cfg.IndexerURL),
		zap.Int("accounts", len(cfg.Accounts)),
		zap.Bool("restake", restake),
		zap.String("reserve", reserve.String()),
		zap.Int("max_ops", cfg.MaxOps),
		zap.Bool("submit", cfg.Submit),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
	)

	if err := eng.Start(ctx); err != nil {
		return err
	}
	defer eng.Close()

	var submitter submit.Submitter
	if cfg.Submit {
		rpcClient := chainClient.RPC()
		if cfg.SignerURL != "" {
			signer, err := rpc.DialContext(ctx, cfg.SignerURL)
			if err != nil {
				return fmt.Errorf("connect signer: %w", err)
			}
			defer signer.Close()
			rpcClient = signer
		}
		submitter = submit.NewRPCSubmitter(rpcClient, logger)
	}

	enc := json.NewEncoder(os.Stdout)
	for _, account := range cfg.Accounts {
		if err := eng.SelectAccount(ctx, account); err != nil {
			return err
		}
		if !waitForTotals(ctx, eng, account, cfg.Wait) {
			logger.Warn("indexer totals not available", zap.String("account", account), zap.Duration("wait", cfg.Wait))
		}

		plan, err := eng.Plan(restake)
		if errors.Is(err, planner.ErrNothingToClaim) {
			logger.Info("nothing to claim", zap.String("account", account))
			continue
		}
		if err != nil {
			return err
		}

		batches, err := planner.Batches(plan, cfg.MaxOps)
		if err != nil {
			return err
		}
		now := time.Now()
		for _, batch := range batches {
			if err := enc.Encode(model.NewPlanRecord(batch, now)); err != nil {
				return err
			}
		}

		if submitter == nil {
			if recorder == nil {
				continue
			}
			for _, batch := range batches {
				if err := recorder.RecordPlan(ctx, batch); err != nil {
					return fmt.Errorf("record plan: %w", err)
				}
			}
			continue
		}

		final, err := eng.ClaimBatches(ctx, submitter, restake, cfg.MaxOps, func(st submit.Status) {
			logger.Info("claim progress", zap.String("account", account), zap.String("status", string(st)))
		})
		if err != nil {
			return err
		}
		if final != submit.StatusFinalized {
			return fmt.Errorf("claim for %s ended %s", account, final)
		}
	}
	return nil
}

// waitForTotals blocks until the engine has indexer totals for account.
func waitForTotals(ctx context.Context, eng *engine.Engine, account string, wait time.Duration) bool {
	ready := func() bool {
		s := eng.Snapshot()
		return s != nil && s.Account == account && s.Aggregate.TotalUnclaimed != nil
	}
	if ready() {
		return true
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	timeout := time.NewTimer(wait)
	defer timeout.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-timeout.C:
			return ready()
		case <-ticker.C:
			if ready() {
				return true
			}
		}
	}
}
