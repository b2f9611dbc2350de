package models

import (
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

var (
	ErrTitleRequired     = errors.New("title is required")
	ErrInvalidDifficulty = errors.New("difficulty must be between 1 and 5")
	ErrCompleteViaAction = errors.New("tasks are completed through the complete action")
)

type Task struct {
	bun.BaseModel   `bun:"table:task"`
	ID              string     `bun:"id,pk" json:"id"`
	UserID          *string    `bun:"user_id" json:"-"`
	Title           string     `bun:"title" json:"title"`
	Faction         string     `bun:"faction" json:"faction"`
	Difficulty      int        `bun:"difficulty" json:"difficulty"`
	DueDate         *time.Time `bun:"due_date" json:"due_date"`
	IsRecurring     bool       `bun:"is_recurring" json:"is_recurring"`
	Completed       bool       `bun:"completed" json:"completed"`
	CompletedAt     *time.Time `bun:"completed_at" json:"completed_at"`
	LastCompletedAt *time.Time `bun:"last_completed_at" json:"last_completed_at"`
	Streak          int        `bun:"streak" json:"streak"`
	Notes           string     `bun:"notes" json:"notes"`
	CreatedAt       time.Time  `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time  `bun:"updated_at,default:current_timestamp" json:"updated_at"`
}

// IsOverdue reports whether an active task is past its due date.
func (t *Task) IsOverdue(now time.Time) bool {
	return !t.Completed && t.DueDate != nil && t.DueDate.Before(now)
}

type TaskInput struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Faction     string     `json:"faction"`
	Difficulty  int        `json:"difficulty"`
	DueDate     *time.Time `json:"due_date"`
	IsRecurring bool       `json:"is_recurring"`
	Notes       string     `json:"notes"`
}

func (in *TaskInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return ErrTitleRequired
	}
	return ValidateDifficulty(in.Difficulty)
}

func ValidateDifficulty(d int) error {
	if d < MinDifficulty || d > MaxDifficulty {
		return ErrInvalidDifficulty
	}
	return nil
}

// TaskPatch carries a partial update; nil fields are left untouched.
type TaskPatch struct {
	Title       *string      `json:"title"`
	Faction     *string      `json:"faction"`
	Difficulty  *int         `json:"difficulty"`
	DueDate     NullableTime `json:"due_date"`
	IsRecurring *bool        `json:"is_recurring"`
	Completed   *bool        `json:"completed"`
	Notes       *string      `json:"notes"`
}

func (p *TaskPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ErrTitleRequired
	}
	if p.Completed != nil && *p.Completed {
		return ErrCompleteViaAction
	}
	if p.Difficulty != nil {
		return ValidateDifficulty(*p.Difficulty)
	}
	return nil
}

// Apply copies present fields onto t and returns the touched column names.
func (p *TaskPatch) Apply(t *Task) []string {
	var columns []string

	if p.Title != nil {
		t.Title = *p.Title
		columns = append(columns, "title")
	}
	if p.Faction != nil {
		t.Faction = *p.Faction
		columns = append(columns, "faction")
	}
	if p.Difficulty != nil {
		t.Difficulty = *p.Difficulty
		columns = append(columns, "difficulty")
	}
	if p.DueDate.Set {
		t.DueDate = p.DueDate.Time
		columns = append(columns, "due_date")
	}
	if p.IsRecurring != nil {
		t.IsRecurring = *p.IsRecurring
		columns = append(columns, "is_recurring")
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
		columns = append(columns, "completed")
		if !t.Completed {
			t.CompletedAt = nil
			columns = append(columns, "completed_at")
		}
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
		columns = append(columns, "notes")
	}

	return columns
}
