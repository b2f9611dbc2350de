package datastore

import (
	"context"
	"time"

	"crusade/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableTask(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Task)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Task)(nil)).Index("index_task_user_id").IfNotExists().Column("user_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Task)(nil)).Index("index_task_overdue").IfNotExists().Column("completed", "due_date").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewRaw(`
		alter table task
			add if not exists faction varchar default '';
		alter table task
			add if not exists notes text default '';
		alter table task
			add if not exists last_completed_at timestamp;
		alter table task
			add if not exists streak int default 0;`).Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func ListTasks(ctx context.Context, db bun.IDB, userID string) ([]models.Task, error) {
	tasks := []models.Task{}
	err := db.NewSelect().Model(&tasks).
		Where("user_id = ?", userID).
		OrderExpr("due_date ASC NULLS LAST").
		Order("created_at").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func FindTask(ctx context.Context, db bun.IDB, userID, taskID string) (*models.Task, error) {
	var task models.Task
	err := db.NewSelect().Model(&task).Where("id = ?", taskID).Where("user_id = ?", userID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func InsertTask(ctx context.Context, db bun.IDB, task *models.Task) error {
	_, err := db.NewInsert().Model(task).Returning("*").Exec(ctx)
	return err
}

// UpdateTaskColumns writes only the given columns of task, scoped to its owner.
func UpdateTaskColumns(ctx context.Context, db bun.IDB, task *models.Task, columns []string) error {
	task.UpdatedAt = time.Now()
	columns = append(columns, "updated_at")

	res, err := db.NewUpdate().Model(task).Column(columns...).
		WherePK().
		Where("user_id = ?", task.UserID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func DeleteTask(ctx context.Context, db bun.IDB, userID, taskID string) error {
	res, err := db.NewDelete().Model((*models.Task)(nil)).
		Where("id = ?", taskID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// CompleteTask flips an active task to completed. It reports false when the
// task was already completed by a concurrent request.
func CompleteTask(ctx context.Context, db bun.IDB, task *models.Task) (bool, error) {
	task.UpdatedAt = time.Now()
	res, err := db.NewUpdate().Model(task).
		Column("completed", "completed_at", "last_completed_at", "streak", "updated_at").
		WherePK().
		Where("user_id = ?", task.UserID).
		Where("completed = false").
		Exec(ctx)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

type OverdueCount struct {
	UserID      string   `bun:"user_id"`
	Overdue     int      `bun:"overdue"`
	WorldTraits []string `bun:"world_traits,type:jsonb"`
}

// CountOverdueByUser counts active tasks past their due date per owner,
// together with the owner's world traits.
func CountOverdueByUser(ctx context.Context, db bun.IDB, now time.Time) ([]OverdueCount, error) {
	var counts []OverdueCount
	err := db.NewRaw(`
		SELECT t.user_id, count(*) AS overdue, COALESCE(gs.world_traits, '[]'::jsonb) AS world_traits
		FROM task AS t
		LEFT JOIN game_state AS gs ON gs.user_id = t.user_id
		WHERE t.user_id IS NOT NULL
			AND t.completed = false
			AND t.due_date < ?
		GROUP BY t.user_id, gs.world_traits`, now).Scan(ctx, &counts)
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// DeleteCompletedTasks returns the owner of every deleted row, "" when ownerless.
func DeleteCompletedTasks(ctx context.Context, db bun.IDB, before time.Time) ([]string, error) {
	owners := []string{}
	_, err := db.NewDelete().Model((*models.Task)(nil)).
		Where("completed = true").
		Where("is_recurring = false").
		Where("completed_at < ?", before).
		Returning("COALESCE(user_id, '')").
		Exec(ctx, &owners)
	if err != nil {
		return nil, err
	}
	return owners, nil
}

func ListCompletedRecurringTasks(ctx context.Context, db bun.IDB, before time.Time) ([]models.Task, error) {
	tasks := []models.Task{}
	err := db.NewSelect().Model(&tasks).
		Where("completed = true").
		Where("is_recurring = true").
		Where("completed_at < ?", before).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// ResetRecurringTask reopens a recurring task with its next due date.
func ResetRecurringTask(ctx context.Context, db bun.IDB, task *models.Task) error {
	task.Completed = false
	task.CompletedAt = nil
	task.UpdatedAt = time.Now()
	_, err := db.NewUpdate().Model(task).
		Column("completed", "completed_at", "due_date", "updated_at").
		WherePK().
		Exec(ctx)
	return err
}

// ResetStaleStreaks returns the owner of every reset row, "" when ownerless.
func ResetStaleStreaks(ctx context.Context, db bun.IDB, before time.Time) ([]string, error) {
	owners := []string{}
	_, err := db.NewUpdate().Model((*models.Task)(nil)).
		Set("streak = 0").
		Set("updated_at = current_timestamp").
		Where("is_recurring = true").
		Where("streak > 0").
		Where("(last_completed_at IS NULL OR last_completed_at < ?)", before).
		Returning("COALESCE(user_id, '')").
		Exec(ctx, &owners)
	if err != nil {
		return nil, err
	}
	return owners, nil
}
