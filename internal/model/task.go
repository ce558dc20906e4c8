package model

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"pulseflow/internal/apperr"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Subtask has no lifecycle of its own; it lives in its task's subtask list.
type Subtask struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	IsCompleted bool      `json:"is_completed"`
}

type Task struct {
	ID          uuid.UUID                     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BoardID     uuid.UUID                     `gorm:"type:uuid;not null;index" json:"board_id"`
	Title       string                        `gorm:"not null" json:"title"`
	Description string                        `json:"description"`
	Status      string                        `gorm:"not null" json:"status"`
	Priority    Priority                      `gorm:"not null;default:medium" json:"priority"`
	DueDate     *time.Time                    `json:"due_date"`
	Assignee    *string                       `json:"assignee"`
	Subtasks    datatypes.JSONType[[]Subtask] `gorm:"type:jsonb;not null" json:"subtasks"`
	CreatedBy   uuid.UUID                     `gorm:"type:uuid;not null;index" json:"created_by"`
	CreatedAt   time.Time                     `json:"created_at"`
	UpdatedAt   time.Time                     `json:"updated_at"`
}

func (t Task) SubtaskList() []Subtask {
	return t.Subtasks.Data()
}

// DueTask is a task in the due-soon window together with its board's name.
type DueTask struct {
	Task      `gorm:"embedded"`
	BoardName string `json:"board_name"`
}

// TaskInput is the data needed to create a task.
type TaskInput struct {
	BoardID     uuid.UUID  `validate:"required"`
	Title       string     `validate:"required,max=200"`
	Description string     `validate:"max=5000"`
	Status      string     `validate:"required"`
	Priority    Priority   `validate:"omitempty,oneof=low medium high"`
	DueDate     *time.Time
	Assignee    string
	Subtasks    []Subtask
}

// TaskPatch lists the fields an update may change. Nil means unchanged.
type TaskPatch struct {
	Title        *string   `validate:"omitempty,max=200"`
	Description  *string   `validate:"omitempty,max=5000"`
	Status       *string
	Priority     *Priority `validate:"omitempty,oneof=low medium high"`
	DueDate      *time.Time
	ClearDueDate bool
	Assignee     *string
	Subtasks     []Subtask
}

var validate = validator.New()

// Normalize trims text fields, drops blank subtasks and validates the input.
func (in TaskInput) Normalize() (TaskInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Assignee = strings.TrimSpace(in.Assignee)
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	in.Subtasks = CleanSubtasks(in.Subtasks)
	if err := validate.Struct(in); err != nil {
		return in, validationError(err)
	}
	return in, nil
}

// Task builds the row to insert for creator.
func (in TaskInput) Task(creator uuid.UUID) *Task {
	t := &Task{
		BoardID:     in.BoardID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		Subtasks:    datatypes.NewJSONType(in.Subtasks),
		CreatedBy:   creator,
	}
	if in.Assignee != "" {
		a := in.Assignee
		t.Assignee = &a
	}
	return t
}

func (p TaskPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return apperr.Validationf("title is required")
	}
	if p.Status != nil && *p.Status == "" {
		return apperr.Validationf("status is required")
	}
	if err := validate.Struct(p); err != nil {
		return validationError(err)
	}
	return nil
}

// Updates converts the patch into a column map for gorm. A map is used so
// that false and empty values are written too.
func (p TaskPatch) Updates() map[string]any {
	u := map[string]any{}
	if p.Title != nil {
		u["title"] = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		u["description"] = strings.TrimSpace(*p.Description)
	}
	if p.Status != nil {
		u["status"] = *p.Status
	}
	if p.Priority != nil {
		u["priority"] = *p.Priority
	}
	if p.ClearDueDate {
		u["due_date"] = nil
	} else if p.DueDate != nil {
		u["due_date"] = *p.DueDate
	}
	if p.Assignee != nil {
		if a := strings.TrimSpace(*p.Assignee); a != "" {
			u["assignee"] = a
		} else {
			u["assignee"] = nil
		}
	}
	if p.Subtasks != nil {
		u["subtasks"] = datatypes.NewJSONType(CleanSubtasks(p.Subtasks))
	}
	return u
}

// CleanSubtasks trims titles, drops blank entries and fills missing ids.
func CleanSubtasks(in []Subtask) []Subtask {
	out := make([]Subtask, 0, len(in))
	for _, s := range in {
		s.Title = strings.TrimSpace(s.Title)
		if s.Title == "" {
			continue
		}
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		out = append(out, s)
	}
	return out
}

func validationError(err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.ToLower(fe.Field())
		if fe.Tag() == "required" {
			return apperr.Validationf("%s is required", field)
		}
		return apperr.Validationf("%s is invalid (%s)", field, fe.Tag())
	}
	return apperr.Validationf("invalid input: %v", err)
}
