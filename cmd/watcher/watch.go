package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tracepaper/core/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the configured folders until interrupted",
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := watcher.New(cfg, logger)
	logger.Info("watcher starting",
		zap.String("backend", cfg.Watcher.BackendURL),
		zap.Strings("directories", cfg.WatchedDirectories()),
	)
	if err := svc.Watch(ctx); err != nil {
		return err
	}
	logger.Info("watcher stopped")
	return nil
}
