package app

import (
	"context"
	"fmt"
	"time"

	pkgcron "github.com/tracepaper/core/internal/pkg/cron"
	"go.uber.org/zap"
)

const embedBacklogBatch = 50

// registerCronJobs registers all scheduled background jobs.
func (a *App) registerCronJobs() {
	cronLogger := a.logger.Named("CronService")

	a.sched.Register(pkgcron.Job{
		Name:        "embedding_backfill",
		Description: "Embed content items whose first embedding attempt failed",
		Interval:    5 * time.Minute,
		Fn: func(ctx context.Context) error {
			n, err := a.ingestSvc.EmbedBacklog(ctx, embedBacklogBatch)
			if err != nil {
				cronLogger.Warn("embedding backfill failed", zap.Error(err))
				return err
			}
			if n > 0 {
				cronLogger.Info(fmt.Sprintf("embedding backfill indexed %d items", n))
			}
			return nil
		},
	})

	a.sched.Register(pkgcron.Job{
		Name:        "index_snapshot",
		Description: "Persist the vector index to disk",
		Interval:    10 * time.Minute,
		Fn: func(ctx context.Context) error {
			if err := a.index.Save(); err != nil {
				cronLogger.Warn("vector index snapshot failed", zap.Error(err))
				return err
			}
			return nil
		},
	})

	a.sched.Register(pkgcron.Job{
		Name:        "summary_backfill",
		Description: "Queue summaries for items that have none yet",
		Interval:    time.Hour,
		Fn: func(ctx context.Context) error {
			n, err := a.aiSvc.BackfillSummaries(ctx)
			if err != nil {
				cronLogger.Warn("summary backfill failed", zap.Error(err))
				return err
			}
			if n > 0 {
				cronLogger.Info(fmt.Sprintf("summary backfill queued %d items", n))
			}
			return nil
		},
	})

	backupInterval := time.Duration(a.cfg.Backup.IntervalHours) * time.Hour
	if backupInterval <= 0 {
		backupInterval = 24 * time.Hour
	}
	a.sched.Register(pkgcron.Job{
		Name:        "auto_backup",
		Description: "Archive the database and vector index",
		Interval:    backupInterval,
		Fn: func(ctx context.Context) error {
			if !a.cfg.Backup.Enable {
				return nil
			}
			item, err := a.backupSvc.Create(ctx)
			if err != nil {
				cronLogger.Warn("auto backup failed", zap.Error(err))
				return err
			}
			cronLogger.Info(fmt.Sprintf("auto backup wrote %s (%s)", item.Filename, item.Size))
			return nil
		},
	})
}
