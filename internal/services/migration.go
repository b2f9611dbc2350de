package services

import (
	"context"
	"fmt"

	"crusade/internal/datastore"
	"crusade/internal/interfaces"
	"crusade/internal/models"
	"crusade/internal/pkg/caching"

	"github.com/samber/do"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ServiceMigration hands ownerless rows from single-user deployments to the
// first user who claims them.
type ServiceMigration struct {
	postgresDB bun.IDB
	cache      caching.Cache
	locker     interfaces.Locker
	logger     *zap.Logger
}

func NewServiceMigration(container *do.Injector) (*ServiceMigration, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	locker, err := do.Invoke[interfaces.Locker](container)
	if err != nil {
		return nil, err
	}

	logger, err := do.Invoke[*zap.Logger](container)
	if err != nil {
		return nil, err
	}

	return &ServiceMigration{postgresDB, cache, locker, logger.Named("migration")}, nil
}

func (service *ServiceMigration) Claim(ctx context.Context, userID string) (*models.ClaimResult, error) {
	unlock, err := service.locker.Obtain(ctx, LockKeyLegacyClaim())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClaimLock, err)
	}
	defer unlock()

	result, err := datastore.ClaimLegacyData(ctx, service.postgresDB, userID)
	if err != nil {
		return nil, err
	}

	if err := service.cache.Delete(ctx, DBKeyTasks(userID)); err != nil {
		service.logger.Warn("invalidate task cache", zap.String("user_id", userID), zap.Error(err))
	}
	service.logger.Info("legacy data claimed",
		zap.String("user_id", userID),
		zap.Int("tasks", result.Tasks),
		zap.Int("projects", result.Projects),
		zap.Int("expenses", result.Expenses),
	)
	return result, nil
}
