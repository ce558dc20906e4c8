package workspace

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"pulseflow/internal/model"
)

// State is the in-memory mirror of one user's boards. Entities live in maps
// keyed by id; column membership is derived from task status on read, so a
// task can never sit in two columns at once.
//
// State values are never modified in place. Apply returns a new State.
type State struct {
	order   []uuid.UUID
	boards  map[uuid.UUID]model.Board
	tasks   map[uuid.UUID]model.Task
	byBoard map[uuid.UUID][]uuid.UUID
	active  uuid.UUID
}

// Command is one transition of the mirror.
type Command interface {
	apply(State) State
}

// Apply returns the state that results from running cmd on s.
func Apply(s State, cmd Command) State {
	return cmd.apply(s)
}

// Loaded replaces the mirror with a fresh fetch. Tasks maps a board id to
// its tasks in creation order.
type Loaded struct {
	Boards []model.Board
	Tasks  map[uuid.UUID][]model.Task
}

func (c Loaded) apply(prev State) State {
	next := State{
		order:   make([]uuid.UUID, 0, len(c.Boards)),
		boards:  make(map[uuid.UUID]model.Board, len(c.Boards)),
		tasks:   map[uuid.UUID]model.Task{},
		byBoard: make(map[uuid.UUID][]uuid.UUID, len(c.Boards)),
	}
	for _, b := range c.Boards {
		if _, dup := next.boards[b.ID]; dup {
			continue
		}
		next.order = append(next.order, b.ID)
		next.boards[b.ID] = b
		ids := make([]uuid.UUID, 0, len(c.Tasks[b.ID]))
		for _, t := range c.Tasks[b.ID] {
			next.tasks[t.ID] = t
			ids = append(ids, t.ID)
		}
		next.byBoard[b.ID] = ids
	}
	// keep the active board across reloads, else fall back to the first one
	if _, ok := next.boards[prev.active]; ok {
		next.active = prev.active
	} else if len(next.order) > 0 {
		next.active = next.order[0]
	}
	return next
}

// Activated makes a loaded board the active one. Unknown ids are ignored.
type Activated struct {
	BoardID uuid.UUID
}

func (c Activated) apply(s State) State {
	if _, ok := s.boards[c.BoardID]; !ok {
		return s
	}
	s.active = c.BoardID
	return s
}

// SubtaskSet sets the completion flag of the subtask at Index. Nothing
// changes if that slot no longer holds SubtaskID.
type SubtaskSet struct {
	TaskID    uuid.UUID
	Index     int
	SubtaskID uuid.UUID
	Completed bool
}

func (c SubtaskSet) apply(s State) State {
	t, ok := s.tasks[c.TaskID]
	if !ok {
		return s
	}
	subtasks := append([]model.Subtask(nil), t.SubtaskList()...)
	if c.Index < 0 || c.Index >= len(subtasks) || subtasks[c.Index].ID != c.SubtaskID {
		return s
	}
	if subtasks[c.Index].IsCompleted == c.Completed {
		return s
	}
	subtasks[c.Index].IsCompleted = c.Completed
	t.Subtasks = datatypes.NewJSONType(subtasks)

	tasks := make(map[uuid.UUID]model.Task, len(s.tasks))
	for id, v := range s.tasks {
		tasks[id] = v
	}
	tasks[t.ID] = t
	s.tasks = tasks
	return s
}

// Cleared empties the mirror.
type Cleared struct{}

func (Cleared) apply(State) State {
	return State{}
}

func (s State) Active() uuid.UUID {
	return s.active
}

func (s State) BoardIDs() []uuid.UUID {
	return append([]uuid.UUID(nil), s.order...)
}

func (s State) Board(id uuid.UUID) (model.Board, bool) {
	b, ok := s.boards[id]
	return b, ok
}

func (s State) Task(id uuid.UUID) (model.Task, bool) {
	t, ok := s.tasks[id]
	return t, ok
}

// ColumnTasks lists the tasks of a board whose status is column, in
// creation order.
func (s State) ColumnTasks(boardID uuid.UUID, column string) []model.Task {
	var out []model.Task
	for _, id := range s.byBoard[boardID] {
		if t := s.tasks[id]; t.Status == column {
			out = append(out, t)
		}
	}
	return out
}

// ColumnAt resolves a column by its position on the board.
func (s State) ColumnAt(boardID uuid.UUID, column int) (model.Column, bool) {
	b, ok := s.boards[boardID]
	if !ok {
		return model.Column{}, false
	}
	cols := b.ColumnList()
	if column < 0 || column >= len(cols) {
		return model.Column{}, false
	}
	return cols[column], true
}

// TaskAt resolves a task by column position and index inside the column.
func (s State) TaskAt(boardID uuid.UUID, column, index int) (model.Task, bool) {
	col, ok := s.ColumnAt(boardID, column)
	if !ok {
		return model.Task{}, false
	}
	tasks := s.ColumnTasks(boardID, col.Name)
	if index < 0 || index >= len(tasks) {
		return model.Task{}, false
	}
	return tasks[index], true
}
