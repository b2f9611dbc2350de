package services

import (
	"context"
	"time"

	"crusade/internal/datastore"
	"crusade/internal/game"
	"crusade/internal/models"
	"crusade/internal/pkg/caching"

	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

type ServiceTask struct {
	postgresDB bun.IDB
	cache      caching.Cache
	gameState  *ServiceGameState
	logger     *zap.Logger

	now func() time.Time
}

func NewServiceTask(container *do.Injector) (*ServiceTask, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	serviceGameState, err := do.Invoke[*ServiceGameState](container)
	if err != nil {
		return nil, err
	}

	logger, err := do.Invoke[*zap.Logger](container)
	if err != nil {
		return nil, err
	}

	return &ServiceTask{postgresDB, cache, serviceGameState, logger.Named("task"), time.Now}, nil
}

func (service *ServiceTask) List(ctx context.Context, userID string) ([]models.Task, error) {
	callback := func() ([]models.Task, error) {
		return datastore.ListTasks(ctx, service.postgresDB, userID)
	}

	return caching.UseCache(ctx, service.cache, DBKeyTasks(userID), CACHE_TTL_1_MIN, callback)
}

func (service *ServiceTask) invalidate(ctx context.Context, userID string) {
	if err := service.cache.Delete(ctx, DBKeyTasks(userID)); err != nil {
		service.logger.Warn("invalidate task cache", zap.String("user_id", userID), zap.Error(err))
	}
}

func (service *ServiceTask) Create(ctx context.Context, userID string, input *models.TaskInput) (*models.Task, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	id := input.ID
	if id == "" {
		id = uuid.NewString()
	}

	task := &models.Task{
		ID:          id,
		UserID:      &userID,
		Title:       input.Title,
		Faction:     input.Faction,
		Difficulty:  input.Difficulty,
		DueDate:     input.DueDate,
		IsRecurring: input.IsRecurring,
		Notes:       input.Notes,
	}
	if err := datastore.InsertTask(ctx, service.postgresDB, task); err != nil {
		return nil, err
	}

	service.invalidate(ctx, userID)
	return task, nil
}

// Update changes only the fields present in patch.
func (service *ServiceTask) Update(ctx context.Context, userID, taskID string, patch *models.TaskPatch) (*models.Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	task, err := datastore.FindTask(ctx, service.postgresDB, userID, taskID)
	if err != nil {
		return nil, err
	}

	columns := patch.Apply(task)
	if len(columns) == 0 {
		return task, nil
	}
	if err := datastore.UpdateTaskColumns(ctx, service.postgresDB, task, columns); err != nil {
		return nil, err
	}

	service.invalidate(ctx, userID)
	return task, nil
}

func (service *ServiceTask) Delete(ctx context.Context, userID, taskID string) error {
	if err := datastore.DeleteTask(ctx, service.postgresDB, userID, taskID); err != nil {
		return err
	}

	service.invalidate(ctx, userID)
	return nil
}

type CompletionResult struct {
	Task   *models.Task      `json:"task"`
	Reward game.Reward       `json:"reward"`
	State  *models.GameState `json:"state"`
}

// Complete marks the task done once, advances the streak of recurring tasks
// and credits the reward, lowering corruption.
func (service *ServiceTask) Complete(ctx context.Context, userID, taskID string) (*CompletionResult, error) {
	task, err := datastore.FindTask(ctx, service.postgresDB, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Completed {
		return nil, ErrTaskAlreadyCompleted
	}

	now := service.now()
	if task.IsRecurring {
		task.Streak = game.NextStreak(task.Streak, task.LastCompletedAt, now)
	}
	task.Completed = true
	task.CompletedAt = &now
	task.LastCompletedAt = &now

	ok, err := datastore.CompleteTask(ctx, service.postgresDB, task)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTaskAlreadyCompleted
	}
	service.invalidate(ctx, userID)

	reward := game.TaskReward(task.Difficulty, task.Streak)
	state, err := service.gameState.Grant(ctx, userID, reward, game.TaskCompletionCorruption, "task:"+task.ID)
	if err != nil {
		service.logger.Error("grant task reward", zap.String("user_id", userID), zap.String("task_id", task.ID), zap.Error(err))
		return nil, err
	}

	return &CompletionResult{task, reward, state}, nil
}
