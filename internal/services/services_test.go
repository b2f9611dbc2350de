package services

import (
	"bytes"
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"crusade/internal/game"
	"crusade/internal/interfaces"
	"crusade/internal/models"
	"crusade/internal/pkg/caching"
	"crusade/internal/pkg/limiter"
	"crusade/internal/pkg/locker"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redis_rate/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"go.uber.org/zap"
)

func newMockDB(t *testing.T) (*bun.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)

	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

type staticConfig map[string]int

func (c staticConfig) GetIntConfig(_ context.Context, key string, defaultValue int) (int, error) {
	if v, ok := c[key]; ok {
		return v, nil
	}
	return defaultValue, nil
}

func (c staticConfig) GetStringConfig(_ context.Context, _ string, defaultValue string) (string, error) {
	return defaultValue, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	users []string
}

func (n *recordingNotifier) NotifyPenitent(_ context.Context, userID string, _ float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.users = append(n.users, userID)
}

type recordingCache struct {
	caching.NopCache
	deleted []string
}

func (c *recordingCache) Delete(_ context.Context, keys ...string) error {
	c.deleted = append(c.deleted, keys...)
	return nil
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string, redis_rate.Limit) error {
	return limiter.ErrRateLimited
}

var gameStateColumns = []string{
	"user_id", "version", "resources", "corruption", "penitent", "army_strength",
	"sector_history", "astartes", "world_traits", "created_at", "updated_at",
}

func gameStateRow(userID, resources string, corruption float64, penitent bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(gameStateColumns).AddRow(
		userID, int64(game.CurrentStateVersion), []byte(resources), corruption, penitent,
		[]byte(`{"units":{},"power":0}`), []byte(`[]`),
		[]byte(`{"resources":{"geneseed":0,"relics":0,"faith":0},"unlocked_upgrades":[],"completed_stages":[],"activities":[]}`),
		[]byte(`[]`), now, now,
	)
}

func newTestGameState(t *testing.T, db bun.IDB, notifier PenitentNotifier) *ServiceGameState {
	t.Helper()
	logs := newServiceResourceLog(db, db, interfaces.NopLimiter{}, zap.NewNop())
	service, err := newServiceGameState(db, caching.NopCache{}, locker.NewLocalLocker(), staticConfig{}, logs, notifier, zap.NewNop())
	require.NoError(t, err)
	return service
}

func TestResourceLogRecordNormalizesSign(t *testing.T) {
	db, mock := newMockDB(t)
	service := newServiceResourceLog(db, db, interfaces.NopLimiter{}, zap.NewNop())

	mock.ExpectQuery(`INSERT INTO "resource_log" .*'glory', 'decrease', 50, 'cleanse'`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))

	service.Record(context.Background(), "google:1", models.ResourceGlory, -50, "cleanse")
	service.Record(context.Background(), "google:1", models.ResourceRP, 0, "nothing")
	service.Flush()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceLogListClampsLimit(t *testing.T) {
	db, mock := newMockDB(t)
	service := newServiceResourceLog(db, db, interfaces.NopLimiter{}, zap.NewNop())

	mock.ExpectQuery(`SELECT .* FROM "resource_log" .* LIMIT 500`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "category"}))

	logs, err := service.List(context.Background(), "google:1", "", 10000)
	require.NoError(t, err)
	assert.Empty(t, logs)
	assert.NotNil(t, logs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceLogAppend(t *testing.T) {
	db, mock := newMockDB(t)
	service := newServiceResourceLog(db, db, interfaces.NopLimiter{}, zap.NewNop())

	_, err := service.Append(context.Background(), "google:1", &models.ResourceLogInput{Amount: 3})
	assert.ErrorIs(t, err, models.ErrCategoryRequired)
	_, err = service.Append(context.Background(), "google:1", &models.ResourceLogInput{Category: "rp", Amount: math.MinInt})
	assert.ErrorIs(t, err, models.ErrAmountOutOfRange)

	mock.ExpectQuery(`INSERT INTO "resource_log" .*'rp', 'decrease', 7, 'manual'`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(9), time.Now()))

	entry, err := service.Append(context.Background(), "google:1", &models.ResourceLogInput{Category: "rp", Amount: -7, Reason: "manual"})
	require.NoError(t, err)
	assert.Equal(t, int64(9), entry.ID)
	assert.Equal(t, models.ChangeDecrease, entry.ChangeType)
	assert.Equal(t, 7, entry.Amount)
	assert.NoError(t, mock.ExpectationsWereMet())

	service.limiter = denyLimiter{}
	_, err = service.Append(context.Background(), "google:1", &models.ResourceLogInput{Category: "rp", Amount: 1})
	assert.ErrorIs(t, err, limiter.ErrRateLimited)
}

func TestGameStateCleanse(t *testing.T) {
	db, mock := newMockDB(t)
	notifier := &recordingNotifier{}
	service := newTestGameState(t, db, notifier)

	mock.ExpectQuery(`SELECT .* FROM "game_state"`).
		WillReturnRows(gameStateRow("google:1", `{"rp":10,"glory":80}`, 100, true))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "game_state" .*"resources" = '\{"rp":10,"glory":30\}'`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`UPDATE game_state AS gs .*gs\.corruption \+ -30`).
		WillReturnRows(sqlmock.NewRows([]string{"corruption", "penitent", "was_penitent"}).AddRow(float64(70), false, true))
	mock.ExpectCommit()
	mock.ExpectQuery(`INSERT INTO "resource_log" .*'glory', 'decrease', 50, 'cleanse'`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))

	state, err := service.Cleanse(context.Background(), "google:1")
	require.NoError(t, err)
	service.logs.Flush()

	assert.Equal(t, 30, state.Resources.Glory)
	assert.Equal(t, float64(70), state.Corruption)
	assert.Equal(t, models.ModeNormal, state.Mode)
	assert.Empty(t, notifier.users)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGameStateCleanseNeedsGlory(t *testing.T) {
	db, mock := newMockDB(t)
	service := newTestGameState(t, db, nil)

	mock.ExpectQuery(`SELECT .* FROM "game_state"`).
		WillReturnRows(gameStateRow("google:1", `{"rp":10,"glory":49}`, 100, true))

	_, err := service.Cleanse(context.Background(), "google:1")
	assert.ErrorIs(t, err, ErrInsufficientResources)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGameStateRecruitValidates(t *testing.T) {
	db, _ := newMockDB(t)
	service := newTestGameState(t, db, nil)

	_, err := service.Recruit(context.Background(), "google:1", "guardsman", 0)
	assert.ErrorIs(t, err, ErrInvalidCount)

	_, err = service.Recruit(context.Background(), "google:1", "ork", 1)
	assert.ErrorIs(t, err, game.ErrUnknownUnit)
}

func TestGameStateAdjustCorruptionNotifiesOnEntry(t *testing.T) {
	db, mock := newMockDB(t)
	notifier := &recordingNotifier{}
	service := newTestGameState(t, db, notifier)

	mock.ExpectQuery(`UPDATE game_state AS gs`).
		WillReturnRows(sqlmock.NewRows([]string{"corruption", "penitent", "was_penitent"}).AddRow(float64(100), true, false))
	mock.ExpectQuery(`UPDATE game_state AS gs`).
		WillReturnRows(sqlmock.NewRows([]string{"corruption", "penitent", "was_penitent"}).AddRow(float64(99), true, true))

	change, err := service.AdjustCorruption(context.Background(), "google:1", 1)
	require.NoError(t, err)
	assert.Equal(t, game.TransitionEnteredPenitent, change.Transition())

	change, err = service.AdjustCorruption(context.Background(), "google:1", -1)
	require.NoError(t, err)
	assert.Equal(t, game.TransitionNone, change.Transition())

	assert.Equal(t, []string{"google:1"}, notifier.users)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGameStateSyncIgnoresCorruption(t *testing.T) {
	db, mock := newMockDB(t)
	service := newTestGameState(t, db, nil)

	mock.ExpectQuery(`SELECT .* FROM "game_state"`).
		WillReturnRows(gameStateRow("google:1", `{"rp":1,"glory":1}`, 42, false))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "game_state" .*SET "world_traits" = '\["shrine"\]', "updated_at" = `).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	traits := []string{"shrine"}
	state, err := service.Sync(context.Background(), "google:1", &models.GameStatePatch{WorldTraits: &traits})
	require.NoError(t, err)
	assert.Equal(t, float64(42), state.Corruption)
	assert.Equal(t, traits, state.WorldTraits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var taskColumns = []string{
	"id", "user_id", "title", "faction", "difficulty", "due_date", "is_recurring", "completed",
	"completed_at", "last_completed_at", "streak", "notes", "created_at", "updated_at",
}

func TestTaskCompleteGrantsRewardOnce(t *testing.T) {
	db, mock := newMockDB(t)
	mock.MatchExpectationsInOrder(false)

	gameState := newTestGameState(t, db, nil)
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	service := &ServiceTask{db, caching.NopCache{}, gameState, zap.NewNop(), func() time.Time { return now }}

	mock.ExpectQuery(`SELECT .* FROM "task"`).WillReturnRows(sqlmock.NewRows(taskColumns).AddRow(
		"t1", "google:1", "Purge the heretic", "", int64(3), nil, false, false, nil, nil, int64(0), "", now, now,
	))
	mock.ExpectExec(`UPDATE "task" .*completed = false`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .* FROM "game_state"`).
		WillReturnRows(gameStateRow("google:1", `{"rp":0,"glory":0}`, 10, false))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "game_state" .*"resources" = '\{"rp":30,"glory":3\}'`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`UPDATE game_state AS gs .*gs\.corruption \+ -2`).
		WillReturnRows(sqlmock.NewRows([]string{"corruption", "penitent", "was_penitent"}).AddRow(float64(8), false, false))
	mock.ExpectCommit()
	mock.ExpectQuery(`INSERT INTO "resource_log" .*'rp', 'increase', 30`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), now))
	mock.ExpectQuery(`INSERT INTO "resource_log" .*'glory', 'increase', 3`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(2), now))

	result, err := service.Complete(context.Background(), "google:1", "t1")
	require.NoError(t, err)
	gameState.logs.Flush()

	assert.Equal(t, game.Reward{RP: 30, Glory: 3}, result.Reward)
	assert.True(t, result.Task.Completed)
	assert.Equal(t, float64(8), result.State.Corruption)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskCompleteRejectsCompleted(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()
	service := &ServiceTask{db, caching.NopCache{}, newTestGameState(t, db, nil), zap.NewNop(), time.Now}

	mock.ExpectQuery(`SELECT .* FROM "task"`).WillReturnRows(sqlmock.NewRows(taskColumns).AddRow(
		"t1", "google:1", "Done", "", int64(1), nil, false, true, now, now, int64(0), "", now, now,
	))
	_, err := service.Complete(context.Background(), "google:1", "t1")
	assert.ErrorIs(t, err, ErrTaskAlreadyCompleted)

	mock.ExpectQuery(`SELECT .* FROM "task"`).WillReturnRows(sqlmock.NewRows(taskColumns).AddRow(
		"t1", "google:1", "Racing", "", int64(1), nil, false, false, nil, nil, int64(0), "", now, now,
	))
	mock.ExpectExec(`UPDATE "task"`).WillReturnResult(sqlmock.NewResult(0, 0))
	_, err = service.Complete(context.Background(), "google:1", "t1")
	assert.ErrorIs(t, err, ErrTaskAlreadyCompleted)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskUpdateRejectsCompletion(t *testing.T) {
	db, _ := newMockDB(t)
	service := &ServiceTask{db, caching.NopCache{}, nil, zap.NewNop(), time.Now}

	done := true
	_, err := service.Update(context.Background(), "google:1", "t1", &models.TaskPatch{Completed: &done})
	assert.ErrorIs(t, err, models.ErrCompleteViaAction)
}

func TestCorruptionTick(t *testing.T) {
	db, mock := newMockDB(t)
	notifier := &recordingNotifier{}
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	service := &ServiceCorruption{
		postgresDB: db,
		locker:     locker.NewLocalLocker(),
		gameState:  newTestGameState(t, db, notifier),
		logger:     zap.NewNop(),
		now:        func() time.Time { return now },
	}

	mock.ExpectQuery(`SELECT t.user_id, count\(\*\) AS overdue`).WillReturnRows(
		sqlmock.NewRows([]string{"user_id", "overdue", "world_traits"}).
			AddRow("google:1", int64(2), []byte(`[]`)).
			AddRow("google:2", int64(3), []byte(`["shrine"]`)),
	)
	mock.ExpectQuery(`UPDATE game_state AS gs .*gs\.corruption \+ 2\b`).
		WillReturnRows(sqlmock.NewRows([]string{"corruption", "penitent", "was_penitent"}).AddRow(float64(100), true, false))
	mock.ExpectQuery(`UPDATE game_state AS gs .*gs\.corruption \+ 1\.5`).
		WillReturnError(errors.New("connection reset"))

	report, err := service.Tick(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, 2, report.Users)
	assert.Equal(t, 1, report.Entered)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []string{"google:1"}, notifier.users)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCorruptionTickSkipsWhenRunning(t *testing.T) {
	db, mock := newMockDB(t)
	l := locker.NewLocalLocker()
	service := &ServiceCorruption{postgresDB: db, locker: l, logger: zap.NewNop(), now: time.Now}

	unlock, err := l.TryObtain(context.Background(), LockKeyCorruptionTick())
	require.NoError(t, err)
	defer unlock()

	report, err := service.Tick(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, report)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeRun(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2024, 5, 10, 4, 0, 0, 0, time.UTC)
	cache := &recordingCache{}
	service := &ServicePurge{db, cache, zap.NewNop(), func() time.Time { return now }}

	due := time.Date(2024, 5, 9, 18, 0, 0, 0, time.UTC)
	done := time.Date(2024, 5, 9, 19, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`DELETE FROM "task" .*is_recurring = false.* RETURNING`).WillReturnRows(
		sqlmock.NewRows([]string{"user_id"}).AddRow("google:2").AddRow("google:2").AddRow("").AddRow("line:U3"),
	)
	mock.ExpectQuery(`SELECT .* FROM "task" .*is_recurring = true`).WillReturnRows(sqlmock.NewRows(taskColumns).AddRow(
		"t9", "google:1", "Morning prayer", "", int64(1), due, true, true, done, done, int64(5), "", done, done,
	))
	mock.ExpectExec(`UPDATE "task" .*"due_date" = '2024-05-10 18:00:00`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`UPDATE "task" .*streak = 0.* RETURNING`).WillReturnRows(
		sqlmock.NewRows([]string{"user_id"}).AddRow("google:4").AddRow("google:1"),
	)

	report, err := service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &PurgeReport{Deleted: 4, Reset: 1, StreaksBroken: 2}, report)
	assert.ElementsMatch(t, []string{
		DBKeyTasks("google:1"), DBKeyTasks("google:2"), DBKeyTasks("line:U3"), DBKeyTasks("google:4"),
	}, cache.deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteExpensesCSV(t *testing.T) {
	var buf bytes.Buffer
	err := writeExpensesCSV(&buf, []models.Expense{
		{Date: models.NewDate(2024, time.March, 2), Category: "food", Item: "ration, grade B", Amount: 12.5, PaymentMethod: "cash"},
		{Date: models.NewDate(2024, time.March, 3), Category: "gear", Item: "lasgun", Amount: 300, Archived: true},
	})
	require.NoError(t, err)

	assert.Equal(t,
		"date,category,item,amount,payment_method,archived\n"+
			"2024-03-02,food,\"ration, grade B\",12.50,cash,false\n"+
			"2024-03-03,gear,lasgun,300.00,,true\n",
		buf.String())
}
