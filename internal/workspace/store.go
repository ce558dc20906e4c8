// Package workspace holds the per-user board/task mirror and the state that
// sits next to it (active board, open overlay).
package workspace

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"pulseflow/internal/apperr"
	"pulseflow/internal/model"
	"pulseflow/internal/realtime"
	"pulseflow/internal/session"
)

type BoardRepository interface {
	Create(ctx context.Context, board *model.Board) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Board, error)
	Update(ctx context.Context, id uuid.UUID, patch model.BoardPatch) (*model.Board, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	ListByBoard(ctx context.Context, boardID uuid.UUID) ([]model.Task, error)
	Update(ctx context.Context, id uuid.UUID, patch model.TaskPatch) (*model.Task, error)
	UpdateSubtasks(ctx context.Context, id uuid.UUID, subtasks []model.Subtask) (*model.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

const maxConcurrentFetches = 8

// Store mirrors the boards a user owns or has been granted. Writes go to the
// remote store and are not patched into the mirror; callers reload with
// LoadBoards afterwards. The one exception is SetSubtaskCompletion, which
// toggles optimistically.
type Store struct {
	sess   session.Session
	boards BoardRepository
	tasks  TaskRepository

	mu    sync.Mutex
	state State

	// generation is bumped by every load; only the newest load may commit.
	generation atomic.Int64
	closed     atomic.Bool
	done       chan struct{}
	closeOnce  sync.Once
	retry      time.Duration
}

func NewStore(sess session.Session, boards BoardRepository, tasks TaskRepository) *Store {
	return &Store{
		sess:   sess,
		boards: boards,
		tasks:  tasks,
		done:   make(chan struct{}),
		retry:  realtime.DefaultRetryDelay,
	}
}

// SetRetryDelay sets the pause Watch takes before resubscribing.
func (s *Store) SetRetryDelay(d time.Duration) {
	s.retry = d
}

// LoadBoards refetches every board visible to the user and the tasks of
// each. It never returns an error: a failed board fetch is logged and leaves
// the mirror empty, a failed task fetch leaves that board without tasks.
func (s *Store) LoadBoards(ctx context.Context) {
	gen := s.generation.Inc()
	logger := log.WithField("user_id", s.sess.UserID)

	if err := s.sess.Require(); err != nil {
		logger.WithError(err).Warn("loading boards without a user")
		s.commit(gen, Cleared{})
		return
	}

	boards, err := s.boards.ListForUser(ctx, s.sess.UserID)
	if err != nil {
		logger.WithError(err).Error("failed to load boards")
		s.commit(gen, Cleared{})
		return
	}

	tasks, err := s.fetchTasks(ctx, boards)
	if err != nil {
		logger.WithError(err).Warn("some boards were loaded without their tasks")
	}
	if s.commit(gen, Loaded{Boards: boards, Tasks: tasks}) {
		logger.WithField("boards", len(boards)).Debug("boards loaded")
	}
}

func (s *Store) fetchTasks(ctx context.Context, boards []model.Board) (map[uuid.UUID][]model.Task, error) {
	results := make([][]model.Task, len(boards))
	errs := make([]error, len(boards))

	var g errgroup.Group
	g.SetLimit(maxConcurrentFetches)
	for i, b := range boards {
		i, b := i, b
		g.Go(func() error {
			tasks, err := s.tasks.ListByBoard(ctx, b.ID)
			if err != nil {
				errs[i] = fmt.Errorf("board %s: %w", b.ID, err)
				return nil
			}
			results[i] = tasks
			return nil
		})
	}
	_ = g.Wait()

	var merr *multierror.Error
	out := make(map[uuid.UUID][]model.Task, len(boards))
	for i, b := range boards {
		if errs[i] != nil {
			merr = multierror.Append(merr, errs[i])
			continue
		}
		out[b.ID] = results[i]
	}
	return out, merr.ErrorOrNil()
}

// commit applies cmd unless the store was closed or a newer load started.
func (s *Store) commit(gen int64, cmd Command) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() || gen != s.generation.Load() {
		log.WithField("user_id", s.sess.UserID).Debug("discarding stale board load")
		return false
	}
	s.state = Apply(s.state, cmd)
	return true
}

func (s *Store) snapshotState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CreateBoard writes a new board owned by the current user.
func (s *Store) CreateBoard(ctx context.Context, name, description string, columns []model.Column) (*model.Board, error) {
	if err := s.sess.Require(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validationf("board name is required")
	}
	cols, err := model.NormalizeColumns(columns)
	if err != nil {
		return nil, err
	}

	board := &model.Board{
		Name:        name,
		Description: strings.TrimSpace(description),
		OwnerID:     s.sess.UserID,
		Columns:     datatypes.NewJSONType(cols),
	}
	if err := s.boards.Create(ctx, board); err != nil {
		return nil, apperr.Remote("failed to create board", err)
	}
	return board, nil
}

// UpdateBoard changes a board the current user owns.
func (s *Store) UpdateBoard(ctx context.Context, id uuid.UUID, patch model.BoardPatch) (*model.Board, error) {
	if err := s.ownedBoard(id); err != nil {
		return nil, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperr.Validationf("board name is required")
		}
		patch.Name = &name
	}
	if patch.Description != nil {
		desc := strings.TrimSpace(*patch.Description)
		patch.Description = &desc
	}
	if patch.Columns != nil {
		cols, err := model.NormalizeColumns(patch.Columns)
		if err != nil {
			return nil, err
		}
		patch.Columns = cols
	}

	board, err := s.boards.Update(ctx, id, patch)
	if err != nil {
		return nil, apperr.Remote("failed to update board", err)
	}
	return board, nil
}

// DeleteBoard removes a board the current user owns, with its tasks and shares.
func (s *Store) DeleteBoard(ctx context.Context, id uuid.UUID) error {
	if err := s.ownedBoard(id); err != nil {
		return err
	}
	if err := s.boards.Delete(ctx, id); err != nil {
		return apperr.Remote("failed to delete board", err)
	}
	return nil
}

func (s *Store) ownedBoard(id uuid.UUID) error {
	if err := s.sess.Require(); err != nil {
		return err
	}
	board, ok := s.snapshotState().Board(id)
	if !ok {
		return apperr.NotFoundf("board not found")
	}
	if !board.IsOwnedBy(s.sess.UserID) {
		return apperr.Forbiddenf("only the board owner can change this board")
	}
	return nil
}

// CreateTask adds a task to a loaded board. Its status must name one of the
// board's columns.
func (s *Store) CreateTask(ctx context.Context, in model.TaskInput) (*model.Task, error) {
	if err := s.sess.Require(); err != nil {
		return nil, err
	}
	in, err := in.Normalize()
	if err != nil {
		return nil, err
	}
	board, ok := s.snapshotState().Board(in.BoardID)
	if !ok {
		return nil, apperr.NotFoundf("board not found")
	}
	if !board.HasColumn(in.Status) {
		return nil, apperr.Validationf("status %q is not a column of board %q", in.Status, board.Name)
	}

	task := in.Task(s.sess.UserID)
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, apperr.Remote("failed to create task", err)
	}
	return task, nil
}

// UpdateTask is the only path by which a task changes status.
func (s *Store) UpdateTask(ctx context.Context, id uuid.UUID, patch model.TaskPatch) (*model.Task, error) {
	if err := s.sess.Require(); err != nil {
		return nil, err
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	state := s.snapshotState()
	task, ok := state.Task(id)
	if !ok {
		return nil, apperr.NotFoundf("task not found")
	}
	if patch.Status != nil {
		board, _ := state.Board(task.BoardID)
		if !board.HasColumn(*patch.Status) {
			return nil, apperr.Validationf("status %q is not a column of board %q", *patch.Status, board.Name)
		}
	}

	updated, err := s.tasks.Update(ctx, id, patch)
	if err != nil {
		return nil, apperr.Remote("failed to update task", err)
	}
	return updated, nil
}

func (s *Store) DeleteTask(ctx context.Context, id uuid.UUID) error {
	if err := s.sess.Require(); err != nil {
		return err
	}
	if _, ok := s.snapshotState().Task(id); !ok {
		return apperr.NotFoundf("task not found")
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return apperr.Remote("failed to delete task", err)
	}
	return nil
}

// SetSubtaskCompletion flips the subtask at index in the mirror first, then
// persists the whole subtask list. A failed write flips it back.
func (s *Store) SetSubtaskCompletion(ctx context.Context, taskID uuid.UUID, index int) error {
	if err := s.sess.Require(); err != nil {
		return err
	}

	s.mu.Lock()
	task, ok := s.state.Task(taskID)
	if !ok {
		s.mu.Unlock()
		return apperr.NotFoundf("task not found")
	}
	subtasks := task.SubtaskList()
	if index < 0 || index >= len(subtasks) {
		s.mu.Unlock()
		return apperr.Validationf("subtask %d does not exist", index)
	}
	target := subtasks[index]
	s.state = Apply(s.state, SubtaskSet{TaskID: taskID, Index: index, SubtaskID: target.ID, Completed: !target.IsCompleted})
	toggled, _ := s.state.Task(taskID)
	s.mu.Unlock()

	if _, err := s.tasks.UpdateSubtasks(ctx, taskID, toggled.SubtaskList()); err != nil {
		s.mu.Lock()
		s.state = Apply(s.state, SubtaskSet{TaskID: taskID, Index: index, SubtaskID: target.ID, Completed: target.IsCompleted})
		s.mu.Unlock()
		log.WithError(err).WithField("task_id", taskID).Warn("subtask update failed, reverted")
		return apperr.Remote("failed to update subtask", err)
	}
	return nil
}

// SetActive selects the board shown first.
func (s *Store) SetActive(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.Board(id); !ok {
		return apperr.NotFoundf("board not found")
	}
	s.state = Apply(s.state, Activated{BoardID: id})
	return nil
}

// ColumnAt and TaskAt resolve drag positions against the current mirror.
func (s *Store) ColumnAt(boardID uuid.UUID, column int) (model.Column, bool) {
	return s.snapshotState().ColumnAt(boardID, column)
}

func (s *Store) TaskAt(boardID uuid.UUID, column, index int) (model.Task, bool) {
	return s.snapshotState().TaskAt(boardID, column, index)
}

func (s *Store) Task(id uuid.UUID) (model.Task, bool) {
	return s.snapshotState().Task(id)
}

// BoardIDs lists the visible boards in display order.
func (s *Store) BoardIDs() []uuid.UUID {
	return s.snapshotState().BoardIDs()
}

// View is the read model handed to callers.
type View struct {
	ActiveBoardID *uuid.UUID `json:"active_board_id"`
	Boards        []BoardView `json:"boards"`
}

type BoardView struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	OwnerID     uuid.UUID    `json:"owner_id"`
	IsOwned     bool         `json:"is_owned"`
	Active      bool         `json:"active"`
	Columns     []ColumnView `json:"columns"`
}

type ColumnView struct {
	ID    uuid.UUID    `json:"id"`
	Name  string       `json:"name"`
	Tasks []model.Task `json:"tasks"`
}

// Snapshot renders the mirror with derived column task lists.
func (s *Store) Snapshot() View {
	state := s.snapshotState()
	view := View{Boards: make([]BoardView, 0, len(state.order))}
	if state.active != uuid.Nil {
		active := state.active
		view.ActiveBoardID = &active
	}
	for _, id := range state.order {
		b := state.boards[id]
		bv := BoardView{
			ID:          b.ID,
			Name:        b.Name,
			Description: b.Description,
			OwnerID:     b.OwnerID,
			IsOwned:     b.IsOwnedBy(s.sess.UserID),
			Active:      b.ID == state.active,
		}
		for _, c := range b.ColumnList() {
			tasks := state.ColumnTasks(b.ID, c.Name)
			if tasks == nil {
				tasks = []model.Task{}
			}
			bv.Columns = append(bv.Columns, ColumnView{ID: c.ID, Name: c.Name, Tasks: tasks})
		}
		view.Boards = append(view.Boards, bv)
	}
	return view
}

// Watch reloads the mirror whenever a change event arrives for a visible
// board or for the user's grants. It resubscribes when the set of boards
// changes, the feed drops or Subscribe fails, and returns when ctx ends or
// the store closes.
func (s *Store) Watch(ctx context.Context, sub realtime.Subscriber) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	var boards []uuid.UUID
	realtime.Follow(ctx, sub, s.retry, log.WithField("user_id", s.sess.UserID),
		func() []realtime.Topic {
			boards = s.snapshotState().BoardIDs()
			return s.topics(boards)
		},
		func(ctx context.Context, subscription *realtime.Subscription) error {
			return s.follow(ctx, subscription, boards)
		})
	return nil
}

func (s *Store) topics(boards []uuid.UUID) []realtime.Topic {
	user := s.sess.UserID.String()
	topics := []realtime.Topic{
		{Table: "boards", Column: "owner_id", Value: user},
		{Table: "board_shares", Column: "user_id", Value: user},
	}
	for _, id := range boards {
		topics = append(topics,
			realtime.Topic{Table: "boards", Column: "id", Value: id.String()},
			realtime.Topic{Table: "tasks", Column: "board_id", Value: id.String()},
		)
	}
	return topics
}

// follow returns nil when the board set changed and realtime.ErrFeedClosed
// when the feed ended.
func (s *Store) follow(ctx context.Context, subscription *realtime.Subscription, boards []uuid.UUID) error {
	events := subscription.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-events:
			if !ok {
				return realtime.ErrFeedClosed
			}
		}
		// one reload covers everything already queued
	drain:
		for {
			select {
			case _, ok := <-events:
				if !ok {
					break drain
				}
			default:
				break drain
			}
		}

		s.LoadBoards(ctx)
		if !sameIDs(boards, s.snapshotState().BoardIDs()) {
			return nil
		}
	}
}

func sameIDs(a, b []uuid.UUID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Close stops Watch and drops the mirror. Loads still in flight are
// discarded when they return.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
		s.mu.Lock()
		s.state = Apply(s.state, Cleared{})
		s.mu.Unlock()
	})
}
