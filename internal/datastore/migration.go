package datastore

import (
	"context"
	"errors"

	"crusade/internal/models"

	"github.com/uptrace/bun"
)

var ErrAlreadyClaimed = errors.New("user already owns data")

// ClaimLegacyData assigns every ownerless task, project and expense to userID
// in one transaction. Users that already own a task or project are refused
// and nothing changes.
func ClaimLegacyData(ctx context.Context, db bun.IDB, userID string) (*models.ClaimResult, error) {
	result := &models.ClaimResult{}

	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		owns, err := tx.NewSelect().Model((*models.Task)(nil)).Where("user_id = ?", userID).Exists(ctx)
		if err != nil {
			return err
		}
		if !owns {
			owns, err = tx.NewSelect().Model((*models.Project)(nil)).Where("user_id = ?", userID).Exists(ctx)
			if err != nil {
				return err
			}
		}
		if owns {
			return ErrAlreadyClaimed
		}

		result.Tasks, err = claim(ctx, tx, (*models.Task)(nil), userID)
		if err != nil {
			return err
		}
		result.Projects, err = claim(ctx, tx, (*models.Project)(nil), userID)
		if err != nil {
			return err
		}
		result.Expenses, err = claim(ctx, tx, (*models.Expense)(nil), userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func claim(ctx context.Context, tx bun.Tx, model any, userID string) (int, error) {
	res, err := tx.NewUpdate().Model(model).
		Set("user_id = ?", userID).
		Set("updated_at = current_timestamp").
		Where("user_id IS NULL").
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	return int(n), err
}
