package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pulseflow/internal/model"
	"pulseflow/internal/realtime"
)

const tasksTable = "tasks"

type TaskRepository struct {
	db      *gorm.DB
	changes realtime.Publisher
}

func NewTaskRepository(db *gorm.DB, changes realtime.Publisher) *TaskRepository {
	if changes == nil {
		changes = realtime.Discard
	}
	return &TaskRepository{db: db, changes: changes}
}

// Create adds a new task to the database
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return err
	}
	r.changes.Publish(ctx, tasksTable, realtime.Insert, task)
	return nil
}

// GetByID retrieves a task by its ID
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	result := r.db.WithContext(ctx).First(&task, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, result.Error
	}
	return &task, nil
}

// ListByBoard retrieves the tasks of a board, oldest first
func (r *TaskRepository) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]model.Task, error) {
	var tasks []model.Task
	result := r.db.WithContext(ctx).Where("board_id = ?", boardID).Order("created_at ASC").Find(&tasks)
	if result.Error != nil {
		return nil, result.Error
	}
	return tasks, nil
}

// ListDueSoon retrieves the tasks created by userID whose due date falls in
// [from, to], soonest first, with the name of their board
func (r *TaskRepository) ListDueSoon(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]model.DueTask, error) {
	var tasks []model.DueTask
	result := r.db.WithContext(ctx).
		Table("tasks").
		Select("tasks.*, boards.name AS board_name").
		Joins("JOIN boards ON boards.id = tasks.board_id").
		Where("tasks.created_by = ? AND tasks.due_date >= ? AND tasks.due_date <= ?", userID, from, to).
		Order("tasks.due_date ASC").
		Find(&tasks)
	if result.Error != nil {
		return nil, result.Error
	}
	return tasks, nil
}

// Update applies a patch and returns the stored row
func (r *TaskRepository) Update(ctx context.Context, id uuid.UUID, patch model.TaskPatch) (*model.Task, error) {
	return r.updateColumns(ctx, id, patch.Updates())
}

// UpdateSubtasks replaces the whole subtask list of a task
func (r *TaskRepository) UpdateSubtasks(ctx context.Context, id uuid.UUID, subtasks []model.Subtask) (*model.Task, error) {
	return r.updateColumns(ctx, id, map[string]any{"subtasks": datatypes.NewJSONType(subtasks)})
}

func (r *TaskRepository) updateColumns(ctx context.Context, id uuid.UUID, updates map[string]any) (*model.Task, error) {
	if len(updates) == 0 {
		return r.GetByID(ctx, id)
	}
	var task model.Task
	result := r.db.WithContext(ctx).Model(&task).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrTaskNotFound
	}
	r.changes.Publish(ctx, tasksTable, realtime.Update, &task)
	return &task, nil
}

// Delete removes a task by its ID
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var task model.Task
	result := r.db.WithContext(ctx).Clauses(clause.Returning{}).Where("id = ?", id).Delete(&task)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	r.changes.Publish(ctx, tasksTable, realtime.Delete, &task)
	return nil
}
