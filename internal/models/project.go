package models

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

var (
	ErrInvalidMonth = errors.New("month must be formatted as YYYY-MM")
	ErrSubTaskTitle = errors.New("sub-task title is required")
	monthPattern    = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)
)

type SubTask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

type Project struct {
	bun.BaseModel `bun:"table:project"`
	ID            string    `bun:"id,pk" json:"id"`
	UserID        *string   `bun:"user_id" json:"-"`
	Title         string    `bun:"title" json:"title"`
	Difficulty    int       `bun:"difficulty" json:"difficulty"`
	Month         string    `bun:"month" json:"month"`
	SubTasks      []SubTask `bun:"sub_tasks,type:jsonb" json:"sub_tasks"`
	Completed     bool      `bun:"completed" json:"completed"`
	RewardClaimed bool      `bun:"reward_claimed" json:"reward_claimed"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,default:current_timestamp" json:"updated_at"`
}

// AllSubTasksDone is false for a project without sub-tasks.
func (p *Project) AllSubTasksDone() bool {
	if len(p.SubTasks) == 0 {
		return false
	}
	for _, st := range p.SubTasks {
		if !st.Completed {
			return false
		}
	}
	return true
}

type ProjectInput struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Difficulty int       `json:"difficulty"`
	Month      string    `json:"month"`
	SubTasks   []SubTask `json:"sub_tasks"`
}

func (in *ProjectInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return ErrTitleRequired
	}
	if err := ValidateDifficulty(in.Difficulty); err != nil {
		return err
	}
	if in.Month != "" && !monthPattern.MatchString(in.Month) {
		return ErrInvalidMonth
	}
	return validateSubTasks(in.SubTasks)
}

type ProjectPatch struct {
	Title      *string    `json:"title"`
	Difficulty *int       `json:"difficulty"`
	Month      *string    `json:"month"`
	SubTasks   *[]SubTask `json:"sub_tasks"`
}

func (p *ProjectPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ErrTitleRequired
	}
	if p.Difficulty != nil {
		if err := ValidateDifficulty(*p.Difficulty); err != nil {
			return err
		}
	}
	if p.Month != nil && *p.Month != "" && !monthPattern.MatchString(*p.Month) {
		return ErrInvalidMonth
	}
	if p.SubTasks != nil {
		return validateSubTasks(*p.SubTasks)
	}
	return nil
}

// Apply copies present fields onto project and returns the touched column names.
func (p *ProjectPatch) Apply(project *Project) []string {
	var columns []string

	if p.Title != nil {
		project.Title = *p.Title
		columns = append(columns, "title")
	}
	if p.Difficulty != nil {
		project.Difficulty = *p.Difficulty
		columns = append(columns, "difficulty")
	}
	if p.Month != nil {
		project.Month = *p.Month
		columns = append(columns, "month")
	}
	if p.SubTasks != nil {
		project.SubTasks = *p.SubTasks
		columns = append(columns, "sub_tasks")
	}

	return columns
}

func validateSubTasks(subTasks []SubTask) error {
	for _, st := range subTasks {
		if strings.TrimSpace(st.Title) == "" {
			return ErrSubTaskTitle
		}
	}
	return nil
}
