package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ascensionRow(userID, astartes string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(gameStateColumns).AddRow(
		userID, int64(2), []byte(`{"rp":0,"glory":0}`), float64(0), false,
		[]byte(`{"units":{},"power":0}`), []byte(`[]`), []byte(astartes), []byte(`[]`), now, now,
	)
}

func TestGameStatePerformRitualRecordsLedger(t *testing.T) {
	db, mock := newMockDB(t)
	service := newTestGameState(t, db, nil)

	mock.ExpectQuery(`SELECT .* FROM "game_state"`).WillReturnRows(ascensionRow("google:1",
		`{"resources":{"geneseed":0,"relics":0,"faith":0},"unlocked_upgrades":[],"completed_stages":[],`+
			`"activities":[{"id":"a1","name":"Litany of hate","resource":"faith","amount":5}]}`,
	))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "game_state" .*"astartes" = `).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(`INSERT INTO "resource_log" .*'faith', 'increase', 5, 'ritual:a1'`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))

	state, err := service.PerformRitual(context.Background(), "google:1", "a1")
	require.NoError(t, err)
	service.logs.Flush()

	assert.Equal(t, 5, state.Astartes.Resources["faith"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGameStateUnlockUpgradeRecordsCost(t *testing.T) {
	db, mock := newMockDB(t)
	service := newTestGameState(t, db, nil)

	mock.ExpectQuery(`SELECT .* FROM "game_state"`).WillReturnRows(ascensionRow("google:1",
		`{"resources":{"geneseed":7,"relics":0,"faith":0},"unlocked_upgrades":[],"completed_stages":[],"activities":[]}`,
	))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "game_state" .*"astartes" = `).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(`INSERT INTO "resource_log" .*'geneseed', 'decrease', 5, 'upgrade:black_carapace'`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))

	result, err := service.UnlockUpgrade(context.Background(), "google:1", "black_carapace")
	require.NoError(t, err)
	service.logs.Flush()

	assert.Empty(t, result.CompletedStage)
	assert.Equal(t, 2, result.State.Astartes.Resources["geneseed"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
