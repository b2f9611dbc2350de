package datastore

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
)

// expectAffected maps an update or delete that matched nothing to sql.ErrNoRows.
func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateTables creates every table and applies additive column changes.
func CreateTables(ctx context.Context, db *bun.DB) error {
	for _, create := range []func(context.Context, *bun.DB) error{
		CreateTableConfig,
		CreateTableTask,
		CreateTableProject,
		CreateTableGameState,
		CreateTableResourceLog,
		CreateTableExpense,
		CreateTablePushSubscription,
	} {
		if err := create(ctx, db); err != nil {
			return err
		}
	}
	return nil
}
