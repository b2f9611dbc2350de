package services

import (
	"context"
	"time"

	"crusade/internal/datastore"
	"crusade/internal/game"
	"crusade/internal/pkg/caching"

	"github.com/samber/do"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

type PurgeReport struct {
	Deleted       int64 `json:"deleted"`
	Reset         int   `json:"reset"`
	StreaksBroken int64 `json:"streaks_broken"`
}

// ServicePurge is the daily housekeeping of completed tasks.
type ServicePurge struct {
	postgresDB bun.IDB
	cache      caching.Cache
	logger     *zap.Logger

	now func() time.Time
}

func NewServicePurge(container *do.Injector) (*ServicePurge, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	logger, err := do.Invoke[*zap.Logger](container)
	if err != nil {
		return nil, err
	}

	return &ServicePurge{postgresDB, cache, logger.Named("purge"), time.Now}, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Run deletes one-off tasks completed before today, reopens recurring ones
// with their next due date and breaks streaks not kept up since yesterday.
func (service *ServicePurge) Run(ctx context.Context) (*PurgeReport, error) {
	now := service.now()
	today := startOfDay(now)
	report := &PurgeReport{}

	touched := map[string]struct{}{}
	touch := func(owners []string) {
		for _, userID := range owners {
			if userID != "" {
				touched[userID] = struct{}{}
			}
		}
	}

	deleted, err := datastore.DeleteCompletedTasks(ctx, service.postgresDB, today)
	if err != nil {
		return nil, err
	}
	report.Deleted = int64(len(deleted))
	touch(deleted)

	recurring, err := datastore.ListCompletedRecurringTasks(ctx, service.postgresDB, today)
	if err != nil {
		return nil, err
	}

	for i := range recurring {
		task := &recurring[i]
		task.DueDate = game.NextDueDate(task.DueDate, now)
		if err := datastore.ResetRecurringTask(ctx, service.postgresDB, task); err != nil {
			service.logger.Error("reset recurring task", zap.String("task_id", task.ID), zap.Error(err))
			continue
		}
		report.Reset++
		if task.UserID != nil {
			touched[*task.UserID] = struct{}{}
		}
	}

	broken, err := datastore.ResetStaleStreaks(ctx, service.postgresDB, today.AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}
	report.StreaksBroken = int64(len(broken))
	touch(broken)

	keys := make([]string, 0, len(touched))
	for userID := range touched {
		keys = append(keys, DBKeyTasks(userID))
	}
	if len(keys) > 0 {
		if err := service.cache.Delete(ctx, keys...); err != nil {
			service.logger.Warn("invalidate task caches", zap.Error(err))
		}
	}

	service.logger.Info("purge done",
		zap.Int64("deleted", report.Deleted),
		zap.Int("reset", report.Reset),
		zap.Int64("streaks_broken", report.StreaksBroken),
	)
	return report, nil
}
