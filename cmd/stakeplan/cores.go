package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stakingScope/internal/chain"
	"stakingScope/internal/config"
	"stakingScope/internal/indexer"
	"stakingScope/internal/model"
	"stakingScope/internal/registry"
)

type coreOutput struct {
	model.StakingCore
	TotalStaked           string `json:"total_staked,omitempty"`
	NumberOfStakers       uint32 `json:"number_of_stakers,omitempty"`
	TotalRewardsClaimed   string `json:"total_rewards_claimed,omitempty"`
	TotalRewardsUnclaimed string `json:"total_rewards_unclaimed,omitempty"`
}

func runCores(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadCores(cfgFile, cmd.Flags())
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
	if cfg.WithTotals && cfg.IndexerURL == "" {
		return fmt.Errorf("indexer url is required for --with-totals")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.Dial(ctx, cfg.RPCURL, logger)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	reg := registry.New(chainClient, logger)
	cores, err := reg.Load(ctx)
	if err != nil {
		return err
	}

	totals := make(map[uint32]model.CoreTotals)
	if cfg.WithTotals {
		idx := indexer.NewClient(cfg.IndexerURL, cfg.SS58Prefix, logger)
		rows, err := idx.AllCoreTotals(ctx)
		if err != nil {
			return err
		}
		for _, row := range rows {
			totals[row.CoreID] = row
		}
	}

	db, err := openStore(ctx, cfg.Common)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		if err := db.UpsertCores(ctx, cores); err != nil {
			return err
		}
		logger.Info("cores stored", zap.Int("cores", len(cores)), zap.String("pg_dsn", redactDSN(cfg.PGDSN)))
	}

	enc := json.NewEncoder(os.Stdout)
	for _, core := range cores {
		out := coreOutput{StakingCore: core}
		if t, ok := totals[core.ID]; ok {
			out.TotalStaked = model.FormatAmount(t.TotalStaked)
			out.NumberOfStakers = t.NumberOfStakers
			out.TotalRewardsClaimed = model.FormatAmount(t.TotalRewardsClaimed)
			out.TotalRewardsUnclaimed = model.FormatAmount(t.TotalRewardsUnclaimed)
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	return nil
}
