package datastore

import (
	"context"

	"crusade/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableConfig(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Config)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewRaw(`
		alter table config
			add if not exists updated_at timestamp default current_timestamp;`).Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

// SeedConfig inserts the given values, leaving keys that already exist untouched.
func SeedConfig(ctx context.Context, db bun.IDB, configs []models.Config) (int64, error) {
	if len(configs) == 0 {
		return 0, nil
	}

	res, err := db.NewInsert().Model(&configs).On("CONFLICT (key) DO NOTHING").Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func GetConfigByKey(ctx context.Context, db bun.IDB, key string) (*models.Config, error) {
	var config models.Config
	err := db.NewSelect().Model(&config).Where("key = ?", key).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &config, nil
}

func ListConfigs(ctx context.Context, db bun.IDB) ([]models.Config, error) {
	var configs []models.Config
	err := db.NewSelect().Model(&configs).Order("key").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return configs, nil
}

func UpsertConfig(ctx context.Context, db bun.IDB, config *models.Config) error {
	_, err := db.NewInsert().Model(config).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = current_timestamp").
		Exec(ctx)
	return err
}
