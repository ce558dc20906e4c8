// Package dragdrop turns a drag gesture on a board into a status change.
package dragdrop

import (
	"context"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"pulseflow/internal/apperr"
	"pulseflow/internal/model"
)

type Phase int

const (
	Idle Phase = iota
	Dragging
	DroppedSameColumn
	DroppedCrossColumn
	Cancelled
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case DroppedSameColumn:
		return "dropped_same_column"
	case DroppedCrossColumn:
		return "dropped_cross_column"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Position is a slot on a board: column index, then index inside the column.
type Position struct {
	Column int `json:"column"`
	Index  int `json:"index"`
}

// Store is the part of the board store a drag needs. Positions are resolved
// against whatever the store holds at the time of the call.
type Store interface {
	ColumnAt(boardID uuid.UUID, column int) (model.Column, bool)
	TaskAt(boardID uuid.UUID, column, index int) (model.Task, bool)
	UpdateTask(ctx context.Context, id uuid.UUID, patch model.TaskPatch) (*model.Task, error)
	LoadBoards(ctx context.Context)
}

// Result reports how a gesture ended. Phase is the terminal phase the
// engine passed through before returning to Idle.
type Result struct {
	Phase  Phase     `json:"-"`
	State  string    `json:"phase"`
	TaskID uuid.UUID `json:"task_id"`
	Status string    `json:"status,omitempty"`
}

func result(p Phase, taskID uuid.UUID, status string) Result {
	return Result{Phase: p, State: p.String(), TaskID: taskID, Status: status}
}

// Engine is the drag state machine of one user. It remembers only where the
// drag began and which task sat there.
type Engine struct {
	store Store

	mu      sync.Mutex
	phase   Phase
	boardID uuid.UUID
	source  Position
	taskID  uuid.UUID
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Start begins dragging the task at source.
func (e *Engine) Start(boardID uuid.UUID, source Position) (uuid.UUID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != Idle {
		return uuid.Nil, apperr.Validationf("a drag is already in progress")
	}
	task, ok := e.store.TaskAt(boardID, source.Column, source.Index)
	if !ok {
		return uuid.Nil, apperr.NotFoundf("no task at column %d index %d", source.Column, source.Index)
	}

	e.phase = Dragging
	e.boardID = boardID
	e.source = source
	e.taskID = task.ID
	return task.ID, nil
}

// Drop ends the drag. A nil destination means the task was released
// outside every column. Only a move to another column is persisted; the
// task moved is whichever one occupies the source slot now, which can
// differ from the one picked up if the board reloaded in between.
//
// When the write fails nothing in the store changes and the error is
// returned together with the DroppedCrossColumn result.
func (e *Engine) Drop(ctx context.Context, dest *Position) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != Dragging {
		return Result{}, apperr.Validationf("no drag in progress")
	}
	defer e.reset()

	if dest == nil {
		e.phase = Cancelled
		return result(Cancelled, e.taskID, ""), nil
	}
	column, ok := e.store.ColumnAt(e.boardID, dest.Column)
	if !ok {
		e.phase = Cancelled
		return result(Cancelled, e.taskID, ""), nil
	}
	if dest.Column == e.source.Column {
		e.phase = DroppedSameColumn
		return result(DroppedSameColumn, e.taskID, ""), nil
	}

	task, ok := e.store.TaskAt(e.boardID, e.source.Column, e.source.Index)
	if !ok {
		e.phase = Cancelled
		return result(Cancelled, e.taskID, ""), apperr.NotFoundf("the dragged task is gone")
	}
	if task.ID != e.taskID {
		log.WithFields(log.Fields{
			"picked":  e.taskID,
			"dropped": task.ID,
		}).Warn("source slot changed during drag, moving its current task")
	}

	e.phase = DroppedCrossColumn
	status := column.Name
	if _, err := e.store.UpdateTask(ctx, task.ID, model.TaskPatch{Status: &status}); err != nil {
		log.WithError(err).WithField("task_id", task.ID).Warn("drop failed, keeping pre-drop layout")
		return result(DroppedCrossColumn, task.ID, task.Status), err
	}
	e.store.LoadBoards(ctx)
	return result(DroppedCrossColumn, task.ID, status), nil
}

// Cancel abandons the current drag.
func (e *Engine) Cancel() (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != Dragging {
		return Result{}, apperr.Validationf("no drag in progress")
	}
	defer e.reset()
	e.phase = Cancelled
	return result(Cancelled, e.taskID, ""), nil
}

func (e *Engine) reset() {
	e.phase = Idle
	e.boardID = uuid.Nil
	e.source = Position{}
	e.taskID = uuid.Nil
}
