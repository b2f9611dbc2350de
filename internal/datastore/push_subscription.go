package datastore

import (
	"context"

	"crusade/internal/models"

	"github.com/uptrace/bun"
)

func CreateTablePushSubscription(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.PushSubscription)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewRaw(`
		alter table push_subscription
			add if not exists kind varchar default 'webpush';
		alter table push_subscription
			add if not exists chat_id bigint default 0;`).Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

// UpsertPushSubscription keeps one row per (user, endpoint), refreshing its keys.
func UpsertPushSubscription(ctx context.Context, db bun.IDB, sub *models.PushSubscription) error {
	_, err := db.NewInsert().Model(sub).
		On("CONFLICT (user_id, endpoint) DO UPDATE").
		Set("kind = EXCLUDED.kind").
		Set("p256dh = EXCLUDED.p256dh").
		Set("auth = EXCLUDED.auth").
		Set("chat_id = EXCLUDED.chat_id").
		Returning("*").
		Exec(ctx)
	return err
}

func ListPushSubscriptions(ctx context.Context, db bun.IDB, userID string) ([]models.PushSubscription, error) {
	subs := []models.PushSubscription{}
	err := db.NewSelect().Model(&subs).Where("user_id = ?", userID).Order("created_at").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func DeletePushSubscription(ctx context.Context, db bun.IDB, userID, id string) error {
	res, err := db.NewDelete().Model((*models.PushSubscription)(nil)).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectAffected(res)
}
