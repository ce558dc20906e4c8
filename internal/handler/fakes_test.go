package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"pulseflow/internal/apperr"
	"pulseflow/internal/middleware"
	"pulseflow/internal/model"
	"pulseflow/internal/session"
	"pulseflow/internal/workspace"
)

// remote is an in-memory stand-in for the Postgres tables behind a workspace.
type remote struct {
	mu     sync.Mutex
	boards []model.Board
	tasks  []model.Task
	notes  []model.Notification
	due    []model.DueTask

	answers []bool
}

func (r *remote) addBoard(owner uuid.UUID, name string, columns ...string) model.Board {
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

func (r *remote) addTask(boardID uuid.UUID, title, status string, subtasks ...model.Subtask) model.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := model.Task{ID: uuid.New(), BoardID: boardID, Title: title, Status: status,
		Priority: model.PriorityMedium, Subtasks: datatypes.NewJSONType(subtasks)}
	r.tasks = append(r.tasks, t)
	return t
}

type remoteBoards struct{ *remote }

func (r remoteBoards) Create(_ context.Context, board *model.Board) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	board.ID = uuid.New()
	r.boards = append(r.boards, *board)
	return nil
}

func (r remoteBoards) ListForUser(context.Context, uuid.UUID) ([]model.Board, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Board(nil), r.boards...), nil
}

func (r remoteBoards) Update(_ context.Context, id uuid.UUID, patch model.BoardPatch) (*model.Board, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
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

func (r remoteBoards) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.boards {
		if r.boards[i].ID == id {
			r.boards = append(r.boards[:i], r.boards[i+1:]...)
			return nil
		}
	}
	return apperr.NotFoundf("board not found")
}

type remoteTasks struct{ *remote }

func (r remoteTasks) Create(_ context.Context, task *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task.ID = uuid.New()
	r.tasks = append(r.tasks, *task)
	return nil
}

func (r remoteTasks) ListByBoard(_ context.Context, boardID uuid.UUID) ([]model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Task
	for _, t := range r.tasks {
		if t.BoardID == boardID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r remoteTasks) Update(_ context.Context, id uuid.UUID, patch model.TaskPatch) (*model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
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

func (r remoteTasks) UpdateSubtasks(_ context.Context, id uuid.UUID, subtasks []model.Subtask) (*model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tasks {
		if r.tasks[i].ID == id {
			r.tasks[i].Subtasks = datatypes.NewJSONType(subtasks)
			t := r.tasks[i]
			return &t, nil
		}
	}
	return nil, apperr.NotFoundf("task not found")
}

func (r remoteTasks) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tasks {
		if r.tasks[i].ID == id {
			r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
			return nil
		}
	}
	return apperr.NotFoundf("task not found")
}

type remoteNotes struct{ *remote }

func (r remoteNotes) ListRecent(_ context.Context, userID uuid.UUID, limit int) ([]model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Notification
	for _, n := range r.notes {
		if n.UserID == userID && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r remoteNotes) MarkRead(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notes {
		if r.notes[i].ID == id {
			r.notes[i].Read = true
		}
	}
	return nil
}

func (r remoteNotes) MarkAllRead(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notes {
		if r.notes[i].UserID == userID {
			r.notes[i].Read = true
		}
	}
	return nil
}

func (r remoteNotes) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notes {
		if r.notes[i].ID == id {
			r.notes = append(r.notes[:i], r.notes[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r remoteNotes) ListDueSoon(context.Context, uuid.UUID, time.Time, time.Time) ([]model.DueTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.DueTask(nil), r.due...), nil
}

// remoteInvites records invite answers.
type remoteInvites struct{ *remote }

func (r remoteInvites) AcceptTeamInvite(_ context.Context, _ session.Session, memberID uuid.UUID) (*model.TeamMember, error) {
	return r.answer(memberID, true)
}

func (r remoteInvites) DeclineTeamInvite(_ context.Context, _ session.Session, memberID uuid.UUID) (*model.TeamMember, error) {
	return r.answer(memberID, false)
}

func (r remoteInvites) answer(memberID uuid.UUID, accept bool) (*model.TeamMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers = append(r.answers, accept)
	status := model.MemberDeclined
	if accept {
		status = model.MemberAccepted
	}
	return &model.TeamMember{ID: memberID, Status: status}, nil
}

func newRegistry(r *remote) *workspace.Registry {
	return workspace.NewRegistry(workspace.Deps{
		Boards:   remoteBoards{r},
		Tasks:    remoteTasks{r},
		Notes:    remoteNotes{r},
		DueTasks: remoteNotes{r},
		Invites:  remoteInvites{r},
	})
}

// withUser stands in for the JWT middleware.
func withUser(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Request = c.Request.WithContext(session.WithContext(c.Request.Context(), session.New(userID, "me@pulseflow.com")))
		c.Next()
	}
}

func do(router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	if body != nil {
		return sendJSON(router, method, path, body)
	}
	req, _ := http.NewRequest(method, path, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}
