package datastore

import (
	"context"
	"time"

	"crusade/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableExpense(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Expense)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Expense)(nil)).Index("index_expense_user_id_date").IfNotExists().Column("user_id", "date").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewRaw(`
		alter table expense
			add if not exists payment_method varchar default '';
		alter table expense
			add if not exists archived boolean default false;`).Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func ListExpenses(ctx context.Context, db bun.IDB, userID string, archived bool) ([]models.Expense, error) {
	expenses := []models.Expense{}
	err := db.NewSelect().Model(&expenses).
		Where("user_id = ?", userID).
		Where("archived = ?", archived).
		OrderExpr("date DESC, created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return expenses, nil
}

func FindExpense(ctx context.Context, db bun.IDB, userID, expenseID string) (*models.Expense, error) {
	var expense models.Expense
	err := db.NewSelect().Model(&expense).Where("id = ?", expenseID).Where("user_id = ?", userID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &expense, nil
}

func InsertExpense(ctx context.Context, db bun.IDB, expense *models.Expense) error {
	_, err := db.NewInsert().Model(expense).Returning("*").Exec(ctx)
	return err
}

func UpdateExpenseColumns(ctx context.Context, db bun.IDB, expense *models.Expense, columns []string) error {
	expense.UpdatedAt = time.Now()
	columns = append(columns, "updated_at")

	res, err := db.NewUpdate().Model(expense).Column(columns...).
		WherePK().
		Where("user_id = ?", expense.UserID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func DeleteExpense(ctx context.Context, db bun.IDB, userID, expenseID string) error {
	res, err := db.NewDelete().Model((*models.Expense)(nil)).
		Where("id = ?", expenseID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// SumExpensesByCategory totals the non-archived entries of a user.
func SumExpensesByCategory(ctx context.Context, db bun.IDB, userID string) ([]models.CategoryTotal, error) {
	totals := []models.CategoryTotal{}
	err := db.NewSelect().Model((*models.Expense)(nil)).
		ColumnExpr("category").
		ColumnExpr("sum(amount) AS total").
		ColumnExpr("count(*) AS count").
		Where("user_id = ?", userID).
		Where("archived = false").
		GroupExpr("category").
		OrderExpr("total DESC").
		Scan(ctx, &totals)
	if err != nil {
		return nil, err
	}
	return totals, nil
}

func ArchiveExpenses(ctx context.Context, db bun.IDB, userID string) (int64, error) {
	res, err := db.NewUpdate().Model((*models.Expense)(nil)).
		Set("archived = true").
		Set("updated_at = current_timestamp").
		Where("user_id = ?", userID).
		Where("archived = false").
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
