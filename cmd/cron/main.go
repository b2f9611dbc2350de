package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"crusade/internal/container"
	"crusade/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/samber/do"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func init() {
	// for development
	//nolint:errcheck
	godotenv.Load("../../.env")

	// for production
	//nolint:errcheck
	godotenv.Load("./.env")
}

type CronJob interface {
	Start(cronRunner *cron.Cron) error
}

func main() {
	vs, err := env.EnvsRequired(
		"JWT_SECRET",
		"DB_DSN",
	)
	if err != nil {
		log.Fatal(err)
	}
	for _, key := range container.OptionalEnvs {
		vs[key] = os.Getenv(key)
	}

	app := &cli.App{
		Name: "cronjob",
		Commands: []*cli.Command{
			commandCronjob(container.NewContainer(vs)),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandCronjob(injector *do.Injector) *cli.Command {
	return &cli.Command{
		Name:  "cron",
		Usage: "run the corruption ticker and the daily purge",
		Action: func(c *cli.Context) error {
			logger := do.MustInvoke[*zap.Logger](injector).Named("cron")
			defer logger.Sync() //nolint:errcheck

			jobs, err := newJobs(injector, logger)
			if err != nil {
				return err
			}

			cronRunner := cron.New(cron.WithChain(
				cron.Recover(cronLogger{logger.Sugar()}),
				cron.SkipIfStillRunning(cronLogger{logger.Sugar()}),
			))
			for _, job := range jobs {
				if err := job.Start(cronRunner); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errWg, errCtx := errgroup.WithContext(ctx)
			errWg.Go(func() error {
				logger.Info("start cronjob", zap.Int("jobs", len(jobs)))
				cronRunner.Start()
				<-errCtx.Done()

				// wait for running jobs
				<-cronRunner.Stop().Done()
				return nil
			})

			err = errWg.Wait()
			if notifications, err := do.Invoke[*services.ServiceNotification](injector); err == nil {
				notifications.Flush()
			}
			return err
		},
	}
}

func newJobs(injector *do.Injector, logger *zap.Logger) ([]CronJob, error) {
	serviceConfig, err := do.Invoke[*services.ServiceConfig](injector)
	if err != nil {
		return nil, err
	}
	serviceCorruption, err := do.Invoke[*services.ServiceCorruption](injector)
	if err != nil {
		return nil, err
	}
	servicePurge, err := do.Invoke[*services.ServicePurge](injector)
	if err != nil {
		return nil, err
	}

	return []CronJob{
		NewCorruptionJob(serviceConfig, serviceCorruption, logger.Named("corruption")),
		NewPurgeJob(serviceConfig, servicePurge, logger.Named("purge")),
	}, nil
}

// cronLogger routes robfig/cron messages to zap.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
