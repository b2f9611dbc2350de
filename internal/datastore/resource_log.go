package datastore

import (
	"context"

	"crusade/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableResourceLog(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.ResourceLog)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.ResourceLog)(nil)).Index("index_resource_log_user_id_created_at").IfNotExists().Column("user_id", "created_at").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewRaw(`
		alter table resource_log
			drop constraint if exists resource_log_amount_non_negative;
		alter table resource_log
			add constraint resource_log_amount_non_negative check (amount >= 0);`).Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertResourceLog(ctx context.Context, db bun.IDB, log *models.ResourceLog) error {
	_, err := db.NewInsert().Model(log).Exec(ctx)
	return err
}

func ListResourceLogs(ctx context.Context, db bun.IDB, userID, category string, limit int) ([]models.ResourceLog, error) {
	logs := []models.ResourceLog{}
	q := db.NewSelect().Model(&logs).Where("user_id = ?", userID)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	err := q.OrderExpr("created_at DESC, id DESC").Limit(limit).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return logs, nil
}
