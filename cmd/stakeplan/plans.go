package main

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stakingScope/internal/config"
	"stakingScope/internal/storage"
)

func runPlans(cmd *cobra.Command, _ []string) error {
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

	if cfg.Out == "" {
		return fmt.Errorf("plan history path is required")
	}

	records, err := storage.NewJsonlStorage(cfg.Out).ReadPlans()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	shown := 0
	for _, record := range records {
		if len(cfg.Accounts) > 0 && !slices.Contains(cfg.Accounts, record.Account) {
			continue
		}
		if err := enc.Encode(record); err != nil {
			return err
		}
		shown++
	}
	logger.Debug("plan history", zap.String("path", cfg.Out), zap.Int("records", len(records)), zap.Int("shown", shown))
	return nil
}
