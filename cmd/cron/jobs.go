package main

import (
	"context"
	"time"

	"crusade/internal/services"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type CorruptionJob struct {
	config     *services.ServiceConfig
	corruption *services.ServiceCorruption
	logger     *zap.Logger
}

func NewCorruptionJob(config *services.ServiceConfig, corruption *services.ServiceCorruption, logger *zap.Logger) *CorruptionJob {
	return &CorruptionJob{config: config, corruption: corruption, logger: logger}
}

func (j *CorruptionJob) Start(cronRunner *cron.Cron) error {
	timeline, err := j.config.GetStringConfig(context.Background(), services.CONFIG_CRONJOB_TIME_CORRUPTION, services.DEFAULT_CRONJOB_TIME_CORRUPTION)
	if err != nil {
		return err
	}

	_, err = cronRunner.AddFunc(timeline, j.runScheduledTask)
	if err != nil {
		return err
	}
	j.logger.Info("scheduled", zap.String("cron", timeline))
	return nil
}

func (j *CorruptionJob) runScheduledTask() {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Second)
	defer cancel()

	report, err := j.corruption.Tick(ctx)
	if err != nil {
		j.logger.Error("tick", zap.Error(err))
		return
	}
	if report == nil {
		j.logger.Debug("tick skipped, another instance holds the lock")
		return
	}
	j.logger.Info("tick",
		zap.Int("users", report.Users),
		zap.Int("entered_penitent", report.Entered),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration),
	)
}

type PurgeJob struct {
	config *services.ServiceConfig
	purge  *services.ServicePurge
	logger *zap.Logger
}

func NewPurgeJob(config *services.ServiceConfig, purge *services.ServicePurge, logger *zap.Logger) *PurgeJob {
	return &PurgeJob{config: config, purge: purge, logger: logger}
}

func (j *PurgeJob) Start(cronRunner *cron.Cron) error {
	timeline, err := j.config.GetStringConfig(context.Background(), services.CONFIG_CRONJOB_TIME_PURGE, services.DEFAULT_CRONJOB_TIME_PURGE)
	if err != nil {
		return err
	}

	_, err = cronRunner.AddFunc(timeline, j.runScheduledTask)
	if err != nil {
		return err
	}
	j.logger.Info("scheduled", zap.String("cron", timeline))
	return nil
}

func (j *PurgeJob) runScheduledTask() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	report, err := j.purge.Run(ctx)
	if err != nil {
		j.logger.Error("purge", zap.Error(err))
		return
	}
	j.logger.Info("purge",
		zap.Int64("deleted", report.Deleted),
		zap.Int("reset", report.Reset),
		zap.Int64("streaks_broken", report.StreaksBroken),
	)
}
