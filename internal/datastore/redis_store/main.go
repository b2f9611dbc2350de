package redis_store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

type PenitentNotice struct {
	UserID     string    `msgpack:"user_id" json:"user_id"`
	Corruption float64   `msgpack:"corruption" json:"corruption"`
	NotifiedAt time.Time `msgpack:"notified_at" json:"notified_at"`
}

type TickReport struct {
	StartedAt time.Time     `msgpack:"started_at" json:"started_at"`
	Duration  time.Duration `msgpack:"duration" json:"duration"`
	Users     int           `msgpack:"users" json:"users"`
	Entered   int           `msgpack:"entered" json:"entered"`
	Failed    int           `msgpack:"failed" json:"failed"`
}

func dbKeyPenitentNotice(userID string) string {
	return fmt.Sprintf("user:%s:penitent_notice", userID)
}

func dbKeyLastTick() string {
	return "corruption:last_tick"
}

// MarkPenitentNotice records a notice unless one is still cooling down.
// It reports whether the caller should deliver the notification.
func MarkPenitentNotice(ctx context.Context, cmd redis.Cmdable, v *PenitentNotice, cooldown time.Duration) (bool, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return false, err
	}

	return cmd.SetNX(ctx, dbKeyPenitentNotice(v.UserID), b, cooldown).Result()
}

// GetPenitentNotice returns nil when no notice is cooling down.
func GetPenitentNotice(ctx context.Context, cmd redis.Cmdable, userID string) (*PenitentNotice, error) {
	b, err := cmd.Get(ctx, dbKeyPenitentNotice(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var v PenitentNotice
	if err := msgpack.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func SaveTickReport(ctx context.Context, cmd redis.Cmdable, v *TickReport) error {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}
	return cmd.Set(ctx, dbKeyLastTick(), b, 0).Err()
}

func GetTickReport(ctx context.Context, cmd redis.Cmdable) (*TickReport, error) {
	b, err := cmd.Get(ctx, dbKeyLastTick()).Bytes()
	if err != nil {
		return nil, err
	}

	var v TickReport
	if err := msgpack.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
