package workspace_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"pulseflow/internal/apperr"
	"pulseflow/internal/model"
)

// memoryRepo is an in-memory remote store for boards and tasks.
type memoryRepo struct {
	mu     sync.Mutex
	boards []model.Board
	tasks  []model.Task

	listErr     error
	taskListErr map[uuid.UUID]error
	subtaskErr  error
	writes      int
	subtaskPuts [][]model.Subtask
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{taskListErr: map[uuid.UUID]error{}}
}

func (r *memoryRepo) addBoard(owner uuid.UUID, name string, columns ...string) model.Board {
	r.mu.Lock()
	defer r.mu.Unlock()
	cols := make([]model.Column, 0, len(columns))
	for _, c := range columns {
		cols = append(cols, model.Column{ID: uuid.New(), Name: c})
	}
	b := model.Board{ID: uuid.New(), Name: name, OwnerID: owner, Columns: datatypes.NewJSONType(cols)}
	r.boards = append(r.boards, b)
	return b
}

func (r *memoryRepo) addTask(boardID uuid.UUID, title, status string, subtasks ...model.Subtask) model.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := model.Task{ID: uuid.New(), BoardID: boardID, Title: title, Status: status,
		Priority: model.PriorityMedium, Subtasks: datatypes.NewJSONType(subtasks)}
	r.tasks = append(r.tasks, t)
	return t
}

// boards

func (r *memoryRepo) Create(_ context.Context, board *model.Board) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	board.ID = uuid.New()
	r.boards = append(r.boards, *board)
	return nil
}

func (r *memoryRepo) ListForUser(_ context.Context, _ uuid.UUID) ([]model.Board, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	return append([]model.Board(nil), r.boards...), nil
}

func (r *memoryRepo) Update(_ context.Context, id uuid.UUID, patch model.BoardPatch) (*model.Board, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	for i := range r.boards {
		if r.boards[i].ID == id {
			if patch.Name != nil {
				r.boards[i].Name = *patch.Name
			}
			if patch.Columns != nil {
				r.boards[i].Columns = datatypes.NewJSONType(patch.Columns)
			}
			b := r.boards[i]
			return &b, nil
		}
	}
	return nil, apperr.NotFoundf("board not found")
}

func (r *memoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	for i := range r.boards {
		if r.boards[i].ID == id {
			r.boards = append(r.boards[:i], r.boards[i+1:]...)
			return nil
		}
	}
	return apperr.NotFoundf("board not found")
}

// tasks, behind a separate type because the method names overlap

type memoryTasks struct{ *memoryRepo }

func (r memoryTasks) Create(_ context.Context, task *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	task.ID = uuid.New()
	r.tasks = append(r.tasks, *task)
	return nil
}

func (r memoryTasks) ListByBoard(_ context.Context, boardID uuid.UUID) ([]model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.taskListErr[boardID]; err != nil {
		return nil, err
	}
	var out []model.Task
	for _, t := range r.tasks {
		if t.BoardID == boardID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r memoryTasks) Update(_ context.Context, id uuid.UUID, patch model.TaskPatch) (*model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	for i := range r.tasks {
		if r.tasks[i].ID == id {
			if patch.Status != nil {
				r.tasks[i].Status = *patch.Status
			}
			if patch.Title != nil {
				r.tasks[i].Title = *patch.Title
			}
			t := r.tasks[i]
			return &t, nil
		}
	}
	return nil, apperr.NotFoundf("task not found")
}

func (r memoryTasks) UpdateSubtasks(_ context.Context, id uuid.UUID, subtasks []model.Subtask) (*model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subtaskPuts = append(r.subtaskPuts, append([]model.Subtask(nil), subtasks...))
	if r.subtaskErr != nil {
		return nil, r.subtaskErr
	}
	for i := range r.tasks {
		if r.tasks[i].ID == id {
			r.tasks[i].Subtasks = datatypes.NewJSONType(subtasks)
			t := r.tasks[i]
			return &t, nil
		}
	}
	return nil, apperr.NotFoundf("task not found")
}

func (r memoryTasks) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	for i := range r.tasks {
		if r.tasks[i].ID == id {
			r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
			return nil
		}
	}
	return apperr.NotFoundf("task not found")
}

// emptyNotes serves an empty notification feed.
type emptyNotes struct{}

func (emptyNotes) ListRecent(context.Context, uuid.UUID, int) ([]model.Notification, error) {
	return nil, nil
}

func (emptyNotes) MarkRead(context.Context, uuid.UUID) error { return nil }

func (emptyNotes) MarkAllRead(context.Context, uuid.UUID) error { return nil }

func (emptyNotes) Delete(context.Context, uuid.UUID) error { return nil }

func (emptyNotes) ListDueSoon(context.Context, uuid.UUID, time.Time, time.Time) ([]model.DueTask, error) {
	return nil, nil
}
