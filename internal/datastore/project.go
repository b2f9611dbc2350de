package datastore

import (
	"context"
	"time"

	"crusade/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableProject(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Project)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Project)(nil)).Index("index_project_user_id_month").IfNotExists().Column("user_id", "month").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewRaw(`
		alter table project
			add if not exists reward_claimed boolean default false;
		alter table project
			alter column sub_tasks set default '[]'::jsonb;`).Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func ListProjects(ctx context.Context, db bun.IDB, userID string, month string) ([]models.Project, error) {
	projects := []models.Project{}
	q := db.NewSelect().Model(&projects).Where("user_id = ?", userID)
	if month != "" {
		q = q.Where("month = ?", month)
	}
	err := q.OrderExpr("month DESC").Order("created_at").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func FindProject(ctx context.Context, db bun.IDB, userID, projectID string) (*models.Project, error) {
	var project models.Project
	err := db.NewSelect().Model(&project).Where("id = ?", projectID).Where("user_id = ?", userID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func InsertProject(ctx context.Context, db bun.IDB, project *models.Project) error {
	_, err := db.NewInsert().Model(project).Returning("*").Exec(ctx)
	return err
}

func UpdateProjectColumns(ctx context.Context, db bun.IDB, project *models.Project, columns []string) error {
	project.UpdatedAt = time.Now()
	columns = append(columns, "updated_at")

	res, err := db.NewUpdate().Model(project).Column(columns...).
		WherePK().
		Where("user_id = ?", project.UserID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func DeleteProject(ctx context.Context, db bun.IDB, userID, projectID string) error {
	res, err := db.NewDelete().Model((*models.Project)(nil)).
		Where("id = ?", projectID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// ClaimProjectReward marks the reward as granted. It reports false when the
// reward was granted before.
func ClaimProjectReward(ctx context.Context, db bun.IDB, userID, projectID string) (bool, error) {
	res, err := db.NewUpdate().Model((*models.Project)(nil)).
		Set("reward_claimed = true").
		Set("updated_at = current_timestamp").
		Where("id = ?", projectID).
		Where("user_id = ?", userID).
		Where("reward_claimed = false").
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
