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

	"stakingScope/internal/config"
)

func runPrefs(cmd *cobra.Command, _ []string) error {
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, cfg.Common)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	store := prefsStore(cfg.Common, db)
	if store == nil {
		return fmt.Errorf("pg-dsn or prefs-file is required")
	}

	p := loadPrefs(ctx, store, logger)
	if cmd.Flags().Changed("auto-restake") {
		p.AutoRestake, _ = cmd.Flags().GetBool("auto-restake")
		if err := store.Save(ctx, p); err != nil {
			return fmt.Errorf("save preferences: %w", err)
		}
		logger.Info("preferences saved",
			zap.Bool("auto_restake", p.AutoRestake),
			zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
			zap.String("prefs_file", cfg.PrefsFile),
		)
	}

	return json.NewEncoder(os.Stdout).Encode(p)
}
