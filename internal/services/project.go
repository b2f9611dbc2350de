package services

import (
	"context"

	"crusade/internal/datastore"
	"crusade/internal/game"
	"crusade/internal/models"

	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

type ServiceProject struct {
	postgresDB bun.IDB
	gameState  *ServiceGameState
	logger     *zap.Logger
}

func NewServiceProject(container *do.Injector) (*ServiceProject, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
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

	return &ServiceProject{postgresDB, serviceGameState, logger.Named("project")}, nil
}

func (service *ServiceProject) List(ctx context.Context, userID, month string) ([]models.Project, error) {
	return datastore.ListProjects(ctx, service.postgresDB, userID, month)
}

func (service *ServiceProject) Create(ctx context.Context, userID string, input *models.ProjectInput) (*ProjectResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	id := input.ID
	if id == "" {
		id = uuid.NewString()
	}

	project := &models.Project{
		ID:         id,
		UserID:     &userID,
		Title:      input.Title,
		Difficulty: input.Difficulty,
		Month:      input.Month,
		SubTasks:   withSubTaskIDs(input.SubTasks),
	}
	project.Completed = project.AllSubTasksDone()

	if err := datastore.InsertProject(ctx, service.postgresDB, project); err != nil {
		return nil, err
	}
	return service.claimReward(ctx, userID, project)
}

type ProjectResult struct {
	Project *models.Project   `json:"project"`
	Reward  *game.Reward      `json:"reward,omitempty"`
	State   *models.GameState `json:"state,omitempty"`
}

func (service *ServiceProject) Update(ctx context.Context, userID, projectID string, patch *models.ProjectPatch) (*ProjectResult, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	project, err := datastore.FindProject(ctx, service.postgresDB, userID, projectID)
	if err != nil {
		return nil, err
	}

	columns := patch.Apply(project)
	if len(columns) == 0 {
		return &ProjectResult{Project: project}, nil
	}
	if patch.SubTasks != nil {
		project.SubTasks = withSubTaskIDs(project.SubTasks)
		project.Completed = project.AllSubTasksDone()
		columns = append(columns, "completed")
	}

	return service.save(ctx, userID, project, columns)
}

func (service *ServiceProject) ToggleSubTask(ctx context.Context, userID, projectID, subTaskID string) (*ProjectResult, error) {
	project, err := datastore.FindProject(ctx, service.postgresDB, userID, projectID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range project.SubTasks {
		if project.SubTasks[i].ID == subTaskID {
			project.SubTasks[i].Completed = !project.SubTasks[i].Completed
			found = true
			break
		}
	}
	if !found {
		return nil, ErrSubTaskNotFound
	}
	project.Completed = project.AllSubTasksDone()

	return service.save(ctx, userID, project, []string{"sub_tasks", "completed"})
}

func (service *ServiceProject) save(ctx context.Context, userID string, project *models.Project, columns []string) (*ProjectResult, error) {
	if err := datastore.UpdateProjectColumns(ctx, service.postgresDB, project, columns); err != nil {
		return nil, err
	}
	return service.claimReward(ctx, userID, project)
}

// claimReward grants the project reward the first time the stored project is complete.
func (service *ServiceProject) claimReward(ctx context.Context, userID string, project *models.Project) (*ProjectResult, error) {
	result := &ProjectResult{Project: project}
	if !project.Completed || project.RewardClaimed {
		return result, nil
	}

	claimed, err := datastore.ClaimProjectReward(ctx, service.postgresDB, userID, project.ID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return result, nil
	}
	project.RewardClaimed = true

	reward := game.ProjectReward(project.Difficulty)
	state, err := service.gameState.Grant(ctx, userID, reward, 0, "project:"+project.ID)
	if err != nil {
		service.logger.Error("grant project reward", zap.String("user_id", userID), zap.String("project_id", project.ID), zap.Error(err))
		return nil, err
	}

	result.Reward = &reward
	result.State = state
	return result, nil
}

func (service *ServiceProject) Delete(ctx context.Context, userID, projectID string) error {
	return datastore.DeleteProject(ctx, service.postgresDB, userID, projectID)
}

func withSubTaskIDs(subTasks []models.SubTask) []models.SubTask {
	if subTasks == nil {
		return []models.SubTask{}
	}
	for i := range subTasks {
		if subTasks[i].ID == "" {
			subTasks[i].ID = uuid.NewString()
		}
	}
	return subTasks
}
