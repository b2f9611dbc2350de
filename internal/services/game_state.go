package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crusade/internal/datastore"
	"crusade/internal/game"
	"crusade/internal/interfaces"
	"crusade/internal/models"
	"crusade/internal/pkg/caching"

	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

type intConfig interface {
	GetIntConfig(ctx context.Context, key string, defaultValue int) (int, error)
}

// PenitentNotifier is told when a user enters Penitent mode.
type PenitentNotifier interface {
	NotifyPenitent(ctx context.Context, userID string, corruption float64)
}

// stateChange is what a game-state mutation wants persisted.
type stateChange struct {
	columns    []string
	corruption float64
}

type ServiceGameState struct {
	postgresDB    bun.IDB
	cache         caching.Cache
	locker        interfaces.Locker
	config        intConfig
	logs          *ServiceResourceLog
	notifier      PenitentNotifier
	requisitioner *game.Requisitioner
	logger        *zap.Logger

	now func() time.Time
}

func NewServiceGameState(container *do.Injector) (*ServiceGameState, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	locker, err := do.Invoke[interfaces.Locker](container)
	if err != nil {
		return nil, err
	}

	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	serviceResourceLog, err := do.Invoke[*ServiceResourceLog](container)
	if err != nil {
		return nil, err
	}

	serviceNotification, err := do.Invoke[*ServiceNotification](container)
	if err != nil {
		return nil, err
	}

	logger, err := do.Invoke[*zap.Logger](container)
	if err != nil {
		return nil, err
	}

	return newServiceGameState(postgresDB, cache, locker, serviceConfig, serviceResourceLog, serviceNotification, logger)
}

func newServiceGameState(
	db bun.IDB,
	cache caching.Cache,
	locker interfaces.Locker,
	config intConfig,
	logs *ServiceResourceLog,
	notifier PenitentNotifier,
	logger *zap.Logger,
) (*ServiceGameState, error) {
	requisitioner, err := game.NewRequisitioner()
	if err != nil {
		return nil, err
	}

	return &ServiceGameState{
		postgresDB:    db,
		cache:         cache,
		locker:        locker,
		config:        config,
		logs:          logs,
		notifier:      notifier,
		requisitioner: requisitioner,
		logger:        logger.Named("game_state"),
		now:           time.Now,
	}, nil
}

// Get returns the user's state, creating it on first access.
func (service *ServiceGameState) Get(ctx context.Context, userID string) (*models.GameState, error) {
	callback := func() (*models.GameState, error) {
		return service.load(ctx, userID)
	}

	state, err := caching.UseCache(ctx, service.cache, DBKeyGameState(userID), CACHE_TTL_1_MIN, callback)
	if err != nil {
		return nil, err
	}
	state.Mode = game.ModeOf(state.Penitent)
	return state, nil
}

func (service *ServiceGameState) Summary(ctx context.Context, userID string) (*models.GameSummary, error) {
	state, err := service.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := game.Summarize(state)
	return &summary, nil
}

// load reads the row from the primary, inserting a fresh one when missing and
// persisting any version migration.
func (service *ServiceGameState) load(ctx context.Context, userID string) (*models.GameState, error) {
	state, err := datastore.FindGameState(ctx, service.postgresDB, userID)
	if errors.Is(err, sql.ErrNoRows) {
		if err := datastore.InsertGameState(ctx, service.postgresDB, game.NewGameState(userID)); err != nil {
			return nil, err
		}
		state, err = datastore.FindGameState(ctx, service.postgresDB, userID)
	}
	if err != nil {
		return nil, err
	}

	if game.MigrateState(state) {
		columns := []string{"version", "resources", "army_strength", "sector_history", "astartes", "world_traits"}
		if err := datastore.UpdateGameStateColumns(ctx, service.postgresDB, state, columns); err != nil {
			return nil, err
		}
	}

	return state, nil
}

// EnsureExists makes sure a row exists so corruption can be adjusted.
func (service *ServiceGameState) EnsureExists(ctx context.Context, userID string) error {
	return datastore.InsertGameState(ctx, service.postgresDB, game.NewGameState(userID))
}

func (service *ServiceGameState) invalidate(ctx context.Context, userID string) {
	if err := service.cache.Delete(ctx, DBKeyGameState(userID)); err != nil {
		service.logger.Warn("invalidate game state cache", zap.String("user_id", userID), zap.Error(err))
	}
}

// mutate runs fn on a freshly loaded state under the user's lock and writes
// the touched columns and corruption delta in one transaction.
func (service *ServiceGameState) mutate(ctx context.Context, userID string, fn func(state *models.GameState) (stateChange, error)) (*models.GameState, error) {
	unlock, err := service.locker.Obtain(ctx, LockKeyGameState(userID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGameStateLock, err)
	}
	defer unlock()

	state, err := service.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	change, err := fn(state)
	if err != nil {
		return nil, err
	}

	var corruption *datastore.CorruptionChange
	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if len(change.columns) > 0 {
			if err := datastore.UpdateGameStateColumns(ctx, tx, state, change.columns); err != nil {
				return err
			}
		}
		if change.corruption != 0 {
			adjusted, err := datastore.AdjustCorruption(ctx, tx, userID, change.corruption)
			if err != nil {
				return err
			}
			corruption = adjusted
		}
		return nil
	})
	service.invalidate(ctx, userID)
	if err != nil {
		return nil, err
	}

	if corruption != nil {
		state.Corruption = corruption.Corruption
		state.Penitent = corruption.Penitent
		service.afterCorruption(ctx, userID, corruption)
	}
	state.Mode = game.ModeOf(state.Penitent)

	return state, nil
}

// AdjustCorruption changes only the corruption meter. It needs no lock: the
// update is a single atomic statement.
func (service *ServiceGameState) AdjustCorruption(ctx context.Context, userID string, delta float64) (*datastore.CorruptionChange, error) {
	change, err := datastore.AdjustCorruption(ctx, service.postgresDB, userID, delta)
	if errors.Is(err, sql.ErrNoRows) {
		if err := service.EnsureExists(ctx, userID); err != nil {
			return nil, err
		}
		change, err = datastore.AdjustCorruption(ctx, service.postgresDB, userID, delta)
	}
	if err != nil {
		return nil, err
	}

	service.invalidate(ctx, userID)
	service.afterCorruption(ctx, userID, change)
	return change, nil
}

func (service *ServiceGameState) afterCorruption(ctx context.Context, userID string, change *datastore.CorruptionChange) {
	transition := change.Transition()
	if transition == game.TransitionNone {
		return
	}

	service.logger.Info("mode changed",
		zap.String("user_id", userID),
		zap.Stringer("transition", transition),
		zap.Float64("corruption", change.Corruption),
	)
	if transition == game.TransitionEnteredPenitent && service.notifier != nil {
		service.notifier.NotifyPenitent(ctx, userID, change.Corruption)
	}
}

// Sync applies a client patch. Corruption and mode are never taken from the client.
func (service *ServiceGameState) Sync(ctx context.Context, userID string, patch *models.GameStatePatch) (*models.GameState, error) {
	return service.mutate(ctx, userID, func(state *models.GameState) (stateChange, error) {
		columns := patch.Apply(state)
		if patch.ArmyStrength != nil {
			state.ArmyStrength.Power = game.ArmyPower(state.ArmyStrength.Units)
		}
		return stateChange{columns: columns}, nil
	})
}

// Grant adds (or with negative values removes) RP and Glory. Balances never go below zero.
func (service *ServiceGameState) Grant(ctx context.Context, userID string, reward game.Reward, corruption float64, reason string) (*models.GameState, error) {
	state, err := service.mutate(ctx, userID, func(state *models.GameState) (stateChange, error) {
		if state.Resources.RP+reward.RP < 0 || state.Resources.Glory+reward.Glory < 0 {
			return stateChange{}, ErrInsufficientResources
		}
		state.Resources.RP += reward.RP
		state.Resources.Glory += reward.Glory
		return stateChange{columns: []string{"resources"}, corruption: corruption}, nil
	})
	if err != nil {
		return nil, err
	}

	service.logs.RecordReward(ctx, userID, reward.RP, reward.Glory, reason)
	return state, nil
}

// Cleanse spends Glory to purge corruption.
func (service *ServiceGameState) Cleanse(ctx context.Context, userID string) (*models.GameState, error) {
	cost, err := service.config.GetIntConfig(ctx, CONFIG_CLEANSING_COST_GLORY, DEFAULT_CLEANSING_COST_GLORY)
	if err != nil {
		service.logger.Warn("cleansing cost config", zap.Error(err))
	}

	return service.Grant(ctx, userID, game.Reward{Glory: -cost}, game.CleansingCorruption, "cleanse")
}

func (service *ServiceGameState) Recruit(ctx context.Context, userID, unitName string, count int) (*models.GameState, error) {
	if count < 1 || count > MAX_RECRUIT_COUNT {
		return nil, ErrInvalidCount
	}
	unit, err := game.LookupUnit(unitName)
	if err != nil {
		return nil, err
	}

	cost := game.Reward{RP: unit.Cost.RP * count, Glory: unit.Cost.Glory * count}
	state, err := service.mutate(ctx, userID, func(state *models.GameState) (stateChange, error) {
		if state.Resources.RP < cost.RP || state.Resources.Glory < cost.Glory {
			return stateChange{}, ErrInsufficientResources
		}
		state.Resources.RP -= cost.RP
		state.Resources.Glory -= cost.Glory
		game.Recruit(&state.ArmyStrength, unit.Name, count)
		return stateChange{columns: []string{"resources", "army_strength"}}, nil
	})
	if err != nil {
		return nil, err
	}

	service.logs.RecordReward(ctx, userID, -cost.RP, -cost.Glory, "recruit:"+unit.Name)
	return state, nil
}

type RequisitionResult struct {
	Unit  string            `json:"unit"`
	State *models.GameState `json:"state"`
}

// Requisition spends Glory on one randomly drawn unit.
func (service *ServiceGameState) Requisition(ctx context.Context, userID string) (*RequisitionResult, error) {
	cost, err := service.config.GetIntConfig(ctx, CONFIG_REQUISITION_COST_GLORY, DEFAULT_REQUISITION_COST_GLORY)
	if err != nil {
		service.logger.Warn("requisition cost config", zap.Error(err))
	}

	unit := service.requisitioner.Pick()
	state, err := service.mutate(ctx, userID, func(state *models.GameState) (stateChange, error) {
		if state.Resources.Glory < cost {
			return stateChange{}, ErrInsufficientResources
		}
		state.Resources.Glory -= cost
		game.Recruit(&state.ArmyStrength, unit, 1)
		return stateChange{columns: []string{"resources", "army_strength"}}, nil
	})
	if err != nil {
		return nil, err
	}

	service.logs.Record(ctx, userID, models.ResourceGlory, -cost, "requisition:"+unit)
	return &RequisitionResult{unit, state}, nil
}

type EngagementResult struct {
	Engagement game.Engagement   `json:"engagement"`
	State      *models.GameState `json:"state"`
}

func (service *ServiceGameState) EngageSector(ctx context.Context, userID, sector string) (*EngagementResult, error) {
	if sector == "" {
		sector = fmt.Sprintf("sector-%s", uuid.NewString()[:8])
	}

	var engagement game.Engagement
	state, err := service.mutate(ctx, userID, func(state *models.GameState) (stateChange, error) {
		engagement = game.Engage(sector, state.ArmyStrength.Power, state.SectorHistory, state.Corruption, service.now())
		state.SectorHistory = append(state.SectorHistory, engagement.Record)
		state.Resources.Glory += engagement.GloryGained
		return stateChange{
			columns:    []string{"resources", "sector_history"},
			corruption: engagement.CorruptionDelta,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	service.logs.Record(ctx, userID, models.ResourceGlory, engagement.GloryGained, "sector:"+sector)
	return &EngagementResult{engagement, state}, nil
}

func (service *ServiceGameState) SaveActivity(ctx context.Context, userID string, activity models.RitualActivity) (*models.GameState, error) {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	return service.mutate(ctx, userID, func(state *models.GameState) (stateChange, error) {
		if err := game.SaveActivity(&state.Astartes, activity); err != nil {
			return stateChange{}, err
		}
		return stateChange{columns: []string{"astartes"}}, nil
	})
}

func (service *ServiceGameState) DeleteActivity(ctx context.Context, userID, activityID string) (*models.GameState, error) {
	return service.mutate(ctx, userID, func(state *models.GameState) (stateChange, error) {
		if err := game.DeleteActivity(&state.Astartes, activityID); err != nil {
			return stateChange{}, err
		}
		return stateChange{columns: []string{"astartes"}}, nil
	})
}

func (service *ServiceGameState) PerformRitual(ctx context.Context, userID, activityID string) (*models.GameState, error) {
	var performed models.RitualActivity
	state, err := service.mutate(ctx, userID, func(state *models.GameState) (stateChange, error) {
		activity, err := game.PerformRitual(&state.Astartes, activityID)
		if err != nil {
			return stateChange{}, err
		}
		performed = *activity
		return stateChange{columns: []string{"astartes"}}, nil
	})
	if err != nil {
		return nil, err
	}

	service.logs.Record(ctx, userID, performed.Resource, performed.Amount, "ritual:"+activityID)
	return state, nil
}

type UnlockResult struct {
	CompletedStage string            `json:"completed_stage,omitempty"`
	State          *models.GameState `json:"state"`
}

func (service *ServiceGameState) UnlockUpgrade(ctx context.Context, userID, upgradeID string) (*UnlockResult, error) {
	var stage string
	state, err := service.mutate(ctx, userID, func(state *models.GameState) (stateChange, error) {
		var err error
		stage, err = game.UnlockUpgrade(&state.Astartes, upgradeID)
		if err != nil {
			return stateChange{}, err
		}
		return stateChange{columns: []string{"astartes"}}, nil
	})
	if err != nil {
		return nil, err
	}

	cost := game.UpgradeCost(upgradeID)
	for _, res := range game.AscensionResources {
		if amount := cost[res]; amount > 0 {
			service.logs.Record(ctx, userID, res, -amount, "upgrade:"+upgradeID)
		}
	}
	if stage != "" {
		service.logger.Info("stage completed", zap.String("user_id", userID), zap.String("stage", stage))
	}
	return &UnlockResult{stage, state}, nil
}
