package datastore

import (
	"context"
	"time"

	"crusade/internal/game"
	"crusade/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableGameState(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.GameState)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewRaw(`
		alter table game_state
			add if not exists version int default 0;
		alter table game_state
			add if not exists penitent boolean default false;
		alter table game_state
			add if not exists world_traits jsonb default '[]'::jsonb;
		alter table game_state
			add if not exists astartes jsonb default '{}'::jsonb;`).Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func FindGameState(ctx context.Context, db bun.IDB, userID string) (*models.GameState, error) {
	var state models.GameState
	err := db.NewSelect().Model(&state).Where("user_id = ?", userID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// InsertGameState creates the row unless one exists already.
func InsertGameState(ctx context.Context, db bun.IDB, state *models.GameState) error {
	_, err := db.NewInsert().Model(state).On("CONFLICT (user_id) DO NOTHING").Exec(ctx)
	return err
}

// UpdateGameStateColumns writes blob columns. Corruption and penitent are
// refused here; they only change through AdjustCorruption.
func UpdateGameStateColumns(ctx context.Context, db bun.IDB, state *models.GameState, columns []string) error {
	allowed := make([]string, 0, len(columns)+1)
	for _, c := range columns {
		if c == "corruption" || c == "penitent" {
			continue
		}
		allowed = append(allowed, c)
	}
	state.UpdatedAt = time.Now()
	allowed = append(allowed, "updated_at")

	res, err := db.NewUpdate().Model(state).Column(allowed...).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

type CorruptionChange struct {
	Corruption  float64 `bun:"corruption"`
	Penitent    bool    `bun:"penitent"`
	WasPenitent bool    `bun:"was_penitent"`
}

func (c *CorruptionChange) Transition() game.Transition {
	return game.TransitionBetween(c.WasPenitent, c.Penitent)
}

// AdjustCorruption applies delta in a single statement: the value is clamped
// to [0,100], penitent is entered at 100 and left below 80.
func AdjustCorruption(ctx context.Context, db bun.IDB, userID string, delta float64) (*CorruptionChange, error) {
	var change CorruptionChange
	err := db.NewRaw(`
		UPDATE game_state AS gs
		SET corruption = LEAST(?0, GREATEST(?1, gs.corruption + ?2)),
			penitent = CASE
				WHEN LEAST(?0, GREATEST(?1, gs.corruption + ?2)) >= ?3 THEN TRUE
				WHEN LEAST(?0, GREATEST(?1, gs.corruption + ?2)) < ?4 THEN FALSE
				ELSE gs.penitent
			END,
			updated_at = current_timestamp
		FROM (SELECT user_id, penitent FROM game_state WHERE user_id = ?5 FOR UPDATE) AS prev
		WHERE gs.user_id = prev.user_id
		RETURNING gs.corruption, gs.penitent, prev.penitent AS was_penitent`,
		game.CorruptionMax, game.CorruptionMin, delta, game.PenitentEnter, game.PenitentExit, userID,
	).Scan(ctx, &change)
	if err != nil {
		return nil, err
	}
	return &change, nil
}
