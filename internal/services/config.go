package services

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"crusade/internal/datastore"
	"crusade/internal/models"
	"crusade/internal/pkg/caching"

	"github.com/samber/do"
	"github.com/uptrace/bun"
)

type ServiceConfig struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
}

func NewServiceConfig(container *do.Injector) (*ServiceConfig, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	return &ServiceConfig{container, postgresDB, readonlyPostgresDB, cache}, nil
}

// DefaultConfigs are the tunables written by `migrate seed-config`.
func DefaultConfigs() []models.Config {
	return []models.Config{
		{Key: CONFIG_CRONJOB_TIME_CORRUPTION, Value: DEFAULT_CRONJOB_TIME_CORRUPTION},
		{Key: CONFIG_CRONJOB_TIME_PURGE, Value: DEFAULT_CRONJOB_TIME_PURGE},
		{Key: CONFIG_CLEANSING_COST_GLORY, Value: strconv.Itoa(DEFAULT_CLEANSING_COST_GLORY)},
		{Key: CONFIG_REQUISITION_COST_GLORY, Value: strconv.Itoa(DEFAULT_REQUISITION_COST_GLORY)},
		{Key: CONFIG_PENITENT_NOTIFY_COOLDOWN_HOURS, Value: strconv.Itoa(DEFAULT_PENITENT_NOTIFY_COOLDOWN_HOURS)},
		{Key: CONFIG_PENITENT_NOTIFY_TEXT, Value: DEFAULT_PENITENT_NOTIFY_TEXT},
	}
}

// GetStringConfig falls back to defaultValue when the key is not set.
func (service *ServiceConfig) GetStringConfig(ctx context.Context, key string, defaultValue string) (string, error) {
	callback := func() (string, error) {
		config, err := datastore.GetConfigByKey(ctx, service.readonlyPostgresDB, key)
		if errors.Is(err, sql.ErrNoRows) {
			return defaultValue, nil
		}
		if err != nil {
			return defaultValue, err
		}
		return config.Value, nil
	}

	value, err := caching.UseCache(ctx, service.cache, DBKeyConfig(key), CACHE_TTL_5_MINS, callback)
	if err != nil {
		return defaultValue, err
	}

	return value, nil
}

func (service *ServiceConfig) GetIntConfig(ctx context.Context, key string, defaultValue int) (int, error) {
	value, err := service.GetStringConfig(ctx, key, strconv.Itoa(defaultValue))
	if err != nil {
		return defaultValue, err
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, err
	}

	return intValue, nil
}

func (service *ServiceConfig) SetConfig(ctx context.Context, key, value string) error {
	err := datastore.UpsertConfig(ctx, service.postgresDB, &models.Config{Key: key, Value: value})
	if err != nil {
		return err
	}

	return service.cache.Delete(ctx, DBKeyConfig(key))
}

func (service *ServiceConfig) SeedDefaults(ctx context.Context) (int64, error) {
	return datastore.SeedConfig(ctx, service.postgresDB, DefaultConfigs())
}
