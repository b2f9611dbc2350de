package container

import (
	"database/sql"

	"crusade/internal/interfaces"
	"crusade/internal/pkg/caching"
	"crusade/internal/pkg/limiter"
	"crusade/internal/pkg/locker"
	"crusade/internal/pkg/logger"
	"crusade/internal/services"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/hiendaovinh/toolkit/pkg/db"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"
)

// Optional keys read by NewContainer in addition to the required ones.
var OptionalEnvs = []string{
	"DB_PASSWORD",
	"DB_DSN_READONLY",
	"DB_PASSWORD_READONLY",
	"REDIS_URL",
	"REDIS_DB",
	"REDIS_CACHE",
	"REDIS_MUTEX",
	"REDIS_LIMITER",
	"CLUSTER_REDIS_DB",
	"CLUSTER_REDIS_CACHE",
	"CLUSTER_REDIS_MUTEX",
	"CLUSTER_REDIS_LIMITER",
	"API_MODE",
	"API_ORIGINS",
	"LOG_LEVEL",
	"LOG_PATH",
	"GOOGLE_CLIENT_ID",
	"LINE_CHANNEL_ID",
	"TELEGRAM_BOT_TOKEN",
	"NOTIFY_RELAY_URL",
}

func openPostgres(dsn, password string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithPassword(password),
	))
	return bun.NewDB(sqldb, pgdialect.New())
}

// provideRedis registers a named client. A cluster url wins over a single
// node url; the role url falls back to REDIS_URL.
func provideRedis(injector *do.Injector, vs map[string]string, name, role string) {
	do.ProvideNamed(injector, name, func(i *do.Injector) (redis.UniversalClient, error) {
		if clusterURL := vs["CLUSTER_REDIS_"+role]; clusterURL != "" {
			clusterOpts, err := redis.ParseClusterURL(clusterURL)
			if err != nil {
				return nil, err
			}
			return redis.NewClusterClient(clusterOpts), nil
		}

		url := vs["REDIS_"+role]
		if url == "" {
			url = vs["REDIS_URL"]
		}
		return db.InitRedis(&db.RedisConfig{
			URL: url,
		})
	})
}

func NewContainer(vs map[string]string) *do.Injector {
	injector := do.New()

	if vs["API_MODE"] == "" {
		vs["API_MODE"] = "production"
	}
	if vs["API_ORIGINS"] == "" {
		vs["API_ORIGINS"] = "*"
	}
	if vs["DB_DSN_READONLY"] == "" {
		vs["DB_DSN_READONLY"] = vs["DB_DSN"]
		vs["DB_PASSWORD_READONLY"] = vs["DB_PASSWORD"]
	}

	do.ProvideNamedValue(injector, "envs", vs)
	do.ProvideNamedValue(injector, "google-client-id", vs["GOOGLE_CLIENT_ID"])
	do.ProvideNamedValue(injector, "line-channel-id", vs["LINE_CHANNEL_ID"])
	do.ProvideNamedValue(injector, "notify-relay-url", vs["NOTIFY_RELAY_URL"])

	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		return logger.New(logger.Config{
			Level: vs["LOG_LEVEL"],
			Path:  vs["LOG_PATH"],
		})
	})

	do.Provide(injector, func(i *do.Injector) (*bun.DB, error) {
		return openPostgres(vs["DB_DSN"], vs["DB_PASSWORD"]), nil
	})

	do.ProvideNamed(injector, "db-readonly", func(i *do.Injector) (*bun.DB, error) {
		return openPostgres(vs["DB_DSN_READONLY"], vs["DB_PASSWORD_READONLY"]), nil
	})

	provideRedis(injector, vs, "redis-db", "DB")
	provideRedis(injector, vs, "redis-cache", "CACHE")
	provideRedis(injector, vs, "redis-mutex", "MUTEX")
	provideRedis(injector, vs, "redis-limiter", "LIMITER")

	do.Provide(injector, func(i *do.Injector) (caching.Cache, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-cache")
		if err != nil {
			return nil, err
		}

		return caching.NewCacheRedis(dbRedis, false)
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.Limiter, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-limiter")
		if err != nil {
			return nil, err
		}

		return limiter.NewLimiter(dbRedis)
	})

	do.Provide(injector, func(i *do.Injector) (*redsync.Redsync, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-mutex")
		if err != nil {
			return nil, err
		}

		pool := goredis.NewPool(dbRedis)
		return redsync.New(pool), nil
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.Locker, error) {
		rs, err := do.Invoke[*redsync.Redsync](i)
		if err != nil {
			return nil, err
		}

		return locker.NewRedsyncLocker(rs), nil
	})

	do.Provide(injector, func(i *do.Injector) (*services.Authentication, error) {
		return services.NewAuthentication(vs["JWT_SECRET"])
	})

	if vs["TELEGRAM_BOT_TOKEN"] != "" {
		do.Provide(injector, func(i *do.Injector) (*services.Bot, error) {
			return services.NewBot(vs["TELEGRAM_BOT_TOKEN"], "")
		})
	}

	do.Provide(injector, func(i *do.Injector) (*services.ServiceConfig, error) {
		return services.NewServiceConfig(i)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceResourceLog, error) {
		return services.NewServiceResourceLog(i)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceNotification, error) {
		return services.NewServiceNotification(i)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceGameState, error) {
		return services.NewServiceGameState(i)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceTask, error) {
		return services.NewServiceTask(i)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceProject, error) {
		return services.NewServiceProject(i)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceExpense, error) {
		return services.NewServiceExpense(i)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceIdentity, error) {
		return services.NewServiceIdentity(i)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceMigration, error) {
		return services.NewServiceMigration(i)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceCorruption, error) {
		return services.NewServiceCorruption(i)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServicePurge, error) {
		return services.NewServicePurge(i)
	})

	return injector
}
