package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"stakingScope/internal/config"
	"stakingScope/internal/prefs"
	"stakingScope/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "stakeplan",
		Short:        "Staking reward reconciliation and claim planning",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow an account and log every snapshot change",
		RunE:  runWatch,
	}

	addCommonFlags(watchCmd.Flags())
	watchCmd.Flags().String("account", "", "account address to follow")
	watchCmd.Flags().Duration("poll-interval", 30*time.Second, "indexer poll interval")
	watchCmd.Flags().String("metrics-addr", "", "address to serve Prometheus metrics on, empty disables")
	watchCmd.Flags().String("reserve", "", "amount kept back from restaking (smallest unit)")

	root.AddCommand(watchCmd)

	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Build claim batches for one or more accounts",
		RunE:  runPlan,
	}

	addCommonFlags(planCmd.Flags())
	planCmd.Flags().StringSlice("account", nil, "account addresses (comma-separated)")
	planCmd.Flags().Bool("restake", false, "restake claimed rewards (defaults to the stored preference)")
	planCmd.Flags().String("reserve", "", "amount kept back from restaking (smallest unit)")
	planCmd.Flags().Int("max-ops", 0, "maximum ops per batch, 0 means one batch")
	planCmd.Flags().String("out", "", "append plans to this JSONL file")
	planCmd.Flags().Bool("submit", false, "submit the plan and wait for a terminal status")
	planCmd.Flags().String("signer", "", "signing gateway URL, defaults to --rpc")
	planCmd.Flags().Duration("wait", 10*time.Second, "how long to wait for indexer totals")

	root.AddCommand(planCmd)

	coresCmd := &cobra.Command{
		Use:   "cores",
		Short: "List registered cores",
		RunE:  runCores,
	}

	addCommonFlags(coresCmd.Flags())
	coresCmd.Flags().Bool("with-totals", false, "include indexer totals per core")

	root.AddCommand(coresCmd)

	plansCmd := &cobra.Command{
		Use:   "plans",
		Short: "Print recorded plan history",
		RunE:  runPlans,
	}

	plansCmd.Flags().StringSlice("account", nil, "only show plans for these accounts (comma-separated)")
	plansCmd.Flags().String("out", "./data/plans.jsonl", "plan history JSONL path")
	plansCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(plansCmd)

	prefsCmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change stored preferences",
		RunE:  runPrefs,
	}

	addCommonFlags(prefsCmd.Flags())
	prefsCmd.Flags().Bool("auto-restake", false, "store the auto-restake preference")

	root.AddCommand(prefsCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCommonFlags(flags *pflag.FlagSet) {
	flags.String("rpc", "", "chain gateway URL (ws:// for subscriptions)")
	flags.String("indexer", "", "indexer GraphQL endpoint")
	flags.Uint("ss58-prefix", 117, "SS58 prefix used by the indexer")
	flags.String("pg-dsn", "", "Postgres DSN")
	flags.String("prefs-file", "", "preferences file path")
	flags.Int("max-retries", 0, "retry attempts for transient indexer failures")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}

// openStore connects to Postgres when a DSN is configured; nil otherwise.
func openStore(ctx context.Context, common config.Common) (*postgres.Store, error) {
	if common.PGDSN == "" {
		return nil, nil
	}
	store, err := postgres.NewStore(ctx, common.PGDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return store, nil
}

// prefsStore prefers the database when both backends are configured.
func prefsStore(common config.Common, store *postgres.Store) prefs.Store {
	if store != nil {
		return &prefs.DBStore{Store: store, Name: "default"}
	}
	if common.PrefsFile != "" {
		return &prefs.FileStore{Path: common.PrefsFile}
	}
	return nil
}

func loadPrefs(ctx context.Context, store prefs.Store, logger *zap.Logger) prefs.Preferences {
	if store == nil {
		return prefs.Preferences{}
	}
	p, ok, err := store.Load(ctx)
	if err != nil {
		logger.Warn("load preferences", zap.Error(err))
		return prefs.Preferences{}
	}
	if !ok {
		logger.Debug("no stored preferences")
	}
	return p
}
