package services

import (
	"context"
	"time"

	"crusade/internal/datastore"
	"crusade/internal/datastore/redis_store"
	"crusade/internal/game"
	"crusade/internal/interfaces"

	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ServiceCorruption raises corruption for users with overdue tasks.
type ServiceCorruption struct {
	postgresDB bun.IDB
	redisDB    redis.Cmdable
	locker     interfaces.Locker
	gameState  *ServiceGameState
	logger     *zap.Logger

	now func() time.Time
}

func NewServiceCorruption(container *do.Injector) (*ServiceCorruption, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	redisDB, err := do.InvokeNamed[redis.UniversalClient](container, "redis-db")
	if err != nil {
		return nil, err
	}

	locker, err := do.Invoke[interfaces.Locker](container)
	if err != nil {
		return nil, err
	}

	serviceGameState, err := do.Invoke[*ServiceGameState](container)
	if err != nil {
		return nil, err
	}

	logger, err := do.Invoke[*zap.Logger](container)
	if err != nil {
		return nil, err
	}

	return &ServiceCorruption{postgresDB, redisDB, locker, serviceGameState, logger.Named("corruption"), time.Now}, nil
}

// Tick runs one corruption pass. A pass already running elsewhere makes this
// one a no-op that returns a nil report.
func (service *ServiceCorruption) Tick(ctx context.Context) (*redis_store.TickReport, error) {
	unlock, err := service.locker.TryObtain(ctx, LockKeyCorruptionTick())
	if err != nil {
		service.logger.Debug("corruption tick skipped", zap.Error(err))
		return nil, nil
	}
	defer unlock()

	started := service.now()
	counts, err := datastore.CountOverdueByUser(ctx, service.postgresDB, started)
	if err != nil {
		return nil, err
	}

	report := &redis_store.TickReport{StartedAt: started}
	for _, c := range counts {
		if c.Overdue <= 0 {
			continue
		}
		report.Users++

		change, err := service.gameState.AdjustCorruption(ctx, c.UserID, game.TickDelta(c.Overdue, c.WorldTraits))
		if err != nil {
			report.Failed++
			service.logger.Error("adjust corruption", zap.String("user_id", c.UserID), zap.Int("overdue", c.Overdue), zap.Error(err))
			continue
		}
		if change.Transition() == game.TransitionEnteredPenitent {
			report.Entered++
		}
	}
	report.Duration = service.now().Sub(started)

	if service.redisDB != nil {
		if err := redis_store.SaveTickReport(ctx, service.redisDB, report); err != nil {
			service.logger.Warn("save tick report", zap.Error(err))
		}
	}
	return report, nil
}

func (service *ServiceCorruption) LastTick(ctx context.Context) (*redis_store.TickReport, error) {
	if service.redisDB == nil {
		return nil, nil
	}
	return redis_store.GetTickReport(ctx, service.redisDB)
}
