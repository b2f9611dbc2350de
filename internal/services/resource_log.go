package services

import (
	"context"
	"sync"

	"crusade/internal/datastore"
	"crusade/internal/interfaces"
	"crusade/internal/models"

	"github.com/go-redis/redis_rate/v10"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

type ServiceResourceLog struct {
	postgresDB         bun.IDB
	readonlyPostgresDB bun.IDB
	limiter            interfaces.Limiter
	logger             *zap.Logger

	wg sync.WaitGroup
}

func NewServiceResourceLog(container *do.Injector) (*ServiceResourceLog, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	limiter, err := do.Invoke[interfaces.Limiter](container)
	if err != nil {
		return nil, err
	}

	logger, err := do.Invoke[*zap.Logger](container)
	if err != nil {
		return nil, err
	}

	return newServiceResourceLog(postgresDB, readonlyPostgresDB, limiter, logger), nil
}

func newServiceResourceLog(db, readonlyDB bun.IDB, limiter interfaces.Limiter, logger *zap.Logger) *ServiceResourceLog {
	return &ServiceResourceLog{
		postgresDB:         db,
		readonlyPostgresDB: readonlyDB,
		limiter:            limiter,
		logger:             logger.Named("resource_log"),
	}
}

// Record writes a ledger row in the background. A zero amount is skipped.
func (service *ServiceResourceLog) Record(ctx context.Context, userID, category string, amount int, reason string) {
	if amount == 0 {
		return
	}

	entry := models.NewResourceLog(userID, category, amount, reason)
	ctx = context.WithoutCancel(ctx)

	service.wg.Add(1)
	go func() {
		defer service.wg.Done()

		if err := datastore.InsertResourceLog(ctx, service.postgresDB, entry); err != nil {
			service.logger.Error("insert resource log",
				zap.String("user_id", userID),
				zap.String("category", category),
				zap.Int("amount", amount),
				zap.Error(err),
			)
		}
	}()
}

// RecordReward logs one row per non-zero currency.
func (service *ServiceResourceLog) RecordReward(ctx context.Context, userID string, rp, glory int, reason string) {
	service.Record(ctx, userID, models.ResourceRP, rp, reason)
	service.Record(ctx, userID, models.ResourceGlory, glory, reason)
}

// Flush blocks until every pending Record has finished.
func (service *ServiceResourceLog) Flush() {
	service.wg.Wait()
}

func (service *ServiceResourceLog) List(ctx context.Context, userID, category string, limit int) ([]models.ResourceLog, error) {
	if limit <= 0 {
		limit = DEFAULT_LOG_LIST_LIMIT
	}
	if limit > MAX_LOG_LIST_LIMIT {
		limit = MAX_LOG_LIST_LIMIT
	}

	logs, err := datastore.ListResourceLogs(ctx, service.readonlyPostgresDB, userID, category, limit)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []models.ResourceLog{}
	}
	return logs, nil
}

// Append stores a client-submitted entry synchronously.
func (service *ServiceResourceLog) Append(ctx context.Context, userID string, input *models.ResourceLogInput) (*models.ResourceLog, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	err := service.limiter.Allow(ctx, RateKeyLogAppend(userID), redis_rate.PerMinute(LOG_APPEND_RATE_LIMIT_PER_MINUTE))
	if err != nil {
		return nil, err
	}

	entry := models.NewResourceLog(userID, input.Category, input.Amount, input.Reason)
	if err := datastore.InsertResourceLog(ctx, service.postgresDB, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
