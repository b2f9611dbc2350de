package services

import (
	"context"
	"testing"
	"time"

	"crusade/internal/datastore"
	"crusade/internal/game"
	"crusade/internal/models"
	"crusade/internal/pkg/caching"
	"crusade/internal/pkg/locker"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var projectColumns = []string{
	"id", "user_id", "title", "difficulty", "month", "sub_tasks", "completed", "reward_claimed", "created_at", "updated_at",
}

func TestProjectToggleGrantsRewardOnce(t *testing.T) {
	db, mock := newMockDB(t)
	mock.MatchExpectationsInOrder(false)

	gameState := newTestGameState(t, db, nil)
	service := &ServiceProject{db, gameState, zap.NewNop()}
	now := time.Now()

	mock.ExpectQuery(`SELECT .* FROM "project"`).WillReturnRows(sqlmock.NewRows(projectColumns).AddRow(
		"p1", "google:1", "Siege of Vraks", int64(2), "2024-05",
		[]byte(`[{"id":"s1","title":"Scout","completed":true},{"id":"s2","title":"Assault","completed":false}]`),
		false, false, now, now,
	))
	mock.ExpectExec(`UPDATE "project" .*"sub_tasks" = `).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "project" .*reward_claimed = false`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .* FROM "game_state"`).
		WillReturnRows(gameStateRow("google:1", `{"rp":0,"glory":0}`, 40, false))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "game_state" .*"resources" = '\{"rp":200,"glory":40\}'`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(`INSERT INTO "resource_log" .*'rp', 'increase', 200`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), now))
	mock.ExpectQuery(`INSERT INTO "resource_log" .*'glory', 'increase', 40`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(2), now))

	result, err := service.ToggleSubTask(context.Background(), "google:1", "p1", "s2")
	require.NoError(t, err)
	gameState.logs.Flush()

	assert.True(t, result.Project.Completed)
	assert.True(t, result.Project.RewardClaimed)
	require.NotNil(t, result.Reward)
	assert.Equal(t, game.Reward{RP: 200, Glory: 40}, *result.Reward)
	assert.Equal(t, 200, result.State.Resources.RP)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectToggleAfterClaimGrantsNothing(t *testing.T) {
	db, mock := newMockDB(t)
	service := &ServiceProject{db, newTestGameState(t, db, nil), zap.NewNop()}
	now := time.Now()

	mock.ExpectQuery(`SELECT .* FROM "project"`).WillReturnRows(sqlmock.NewRows(projectColumns).AddRow(
		"p1", "google:1", "Siege of Vraks", int64(2), "2024-05",
		[]byte(`[{"id":"s1","title":"Scout","completed":false}]`),
		false, true, now, now,
	))
	mock.ExpectExec(`UPDATE "project" .*"sub_tasks" = `).WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := service.ToggleSubTask(context.Background(), "google:1", "p1", "s1")
	require.NoError(t, err)
	assert.True(t, result.Project.Completed)
	assert.Nil(t, result.Reward)
	assert.Nil(t, result.State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectToggleUnknownSubTask(t *testing.T) {
	db, mock := newMockDB(t)
	service := &ServiceProject{db, nil, zap.NewNop()}
	now := time.Now()

	mock.ExpectQuery(`SELECT .* FROM "project"`).WillReturnRows(sqlmock.NewRows(projectColumns).AddRow(
		"p1", "google:1", "Siege of Vraks", int64(1), "2024-05", []byte(`[]`), false, false, now, now,
	))

	_, err := service.ToggleSubTask(context.Background(), "google:1", "p1", "missing")
	assert.ErrorIs(t, err, ErrSubTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrationClaim(t *testing.T) {
	db, mock := newMockDB(t)
	service := &ServiceMigration{db, caching.NopCache{}, locker.NewLocalLocker(), zap.NewNop()}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS .*"task"`).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`SELECT EXISTS .*"project"`).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`UPDATE "task" .*user_id IS NULL`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`UPDATE "project" .*user_id IS NULL`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE "expense" .*user_id IS NULL`).WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectCommit()

	result, err := service.Claim(context.Background(), "google:1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Tasks)
	assert.Equal(t, 5, result.Expenses)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err = service.Claim(context.Background(), "google:1")
	assert.ErrorIs(t, err, datastore.ErrAlreadyClaimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectCreateCompleteGrantsReward(t *testing.T) {
	db, mock := newMockDB(t)
	mock.MatchExpectationsInOrder(false)

	gameState := newTestGameState(t, db, nil)
	service := &ServiceProject{db, gameState, zap.NewNop()}
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO "project" .*RETURNING`).WillReturnRows(sqlmock.NewRows(projectColumns).AddRow(
		"p2", "google:1", "Purge Tallarn", int64(1), "2024-05",
		[]byte(`[{"id":"s1","title":"Cleanse","completed":true}]`), true, false, now, now,
	))
	mock.ExpectExec(`UPDATE "project" .*reward_claimed = false`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .* FROM "game_state"`).
		WillReturnRows(gameStateRow("google:1", `{"rp":0,"glory":0}`, 0, false))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "game_state" .*"resources" = '\{"rp":100,"glory":20\}'`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(`INSERT INTO "resource_log" .*'rp', 'increase', 100`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), now))
	mock.ExpectQuery(`INSERT INTO "resource_log" .*'glory', 'increase', 20`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(2), now))

	result, err := service.Create(context.Background(), "google:1", &models.ProjectInput{
		ID:         "p2",
		Title:      "Purge Tallarn",
		Difficulty: 1,
		Month:      "2024-05",
		SubTasks:   []models.SubTask{{ID: "s1", Title: "Cleanse", Completed: true}},
	})
	require.NoError(t, err)
	gameState.logs.Flush()

	assert.True(t, result.Project.RewardClaimed)
	require.NotNil(t, result.Reward)
	assert.Equal(t, game.Reward{RP: 100, Glory: 20}, *result.Reward)
	assert.NoError(t, mock.ExpectationsWereMet())
}
