package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tracepaper/core/internal/watcher"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Sweep the configured folders once and exit",
	RunE:  runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := watcher.New(cfg, logger)
	stats, err := svc.ScanOnce(ctx)
	logger.Info("scan finished",
		zap.Int("scanned", stats.Scanned),
		zap.Int("ingested", stats.Ingested),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
	)
	if err != nil {
		return err
	}
	if stats.Failed > 0 {
		return fmt.Errorf("%d files failed to upload", stats.Failed)
	}
	return nil
}
