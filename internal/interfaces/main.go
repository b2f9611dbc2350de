package interfaces

import (
	"context"

	"github.com/go-redis/redis_rate/v10"
)

type Limiter interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) error
}

// Locker serializes work on a shared key across processes.
type Locker interface {
	Obtain(ctx context.Context, key string) (unlock func(), err error)
	// TryObtain fails immediately when the key is held.
	TryObtain(ctx context.Context, key string) (unlock func(), err error)
}

// NopLimiter allows everything. Used when no limiter redis is configured.
type NopLimiter struct{}

func (NopLimiter) Allow(context.Context, string, redis_rate.Limit) error { return nil }
