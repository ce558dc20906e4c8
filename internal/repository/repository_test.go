package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulseflow/internal/apperr"
	"pulseflow/internal/model"
	"pulseflow/internal/realtime"
	"pulseflow/internal/repository"
)

type published struct {
	table string
	typ   realtime.EventType
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(_ context.Context, table string, typ realtime.EventType, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{table: table, typ: typ})
}

var boardColumns = []string{"id", "name", "description", "owner_id", "columns", "created_at", "updated_at"}

func TestBoardRepository_ListForUser(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	repo := repository.NewBoardRepository(gormDB, nil)

	userID := uuid.New()
	boardID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT \* FROM "boards" WHERE owner_id = \$1 OR id IN \(SELECT board_id FROM "board_shares" WHERE user_id = \$2\)`).
		WithArgs(userID, userID).
		WillReturnRows(sqlmock.NewRows(boardColumns).
			AddRow(boardID.String(), "Launch", "", uuid.New().String(),
				`[{"id":"`+uuid.New().String()+`","name":"To Do"},{"id":"`+uuid.New().String()+`","name":"Done"}]`, now, now))

	// Act
	boards, err := repo.ListForUser(context.Background(), userID)

	// Assert
	require.NoError(t, err)
	require.Len(t, boards, 1)
	assert.Equal(t, "Launch", boards[0].Name)
	assert.Len(t, boards[0].ColumnList(), 2)
	assert.Equal(t, "Done", boards[0].ColumnList()[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBoardRepository_GetByID_NotFound(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	repo := repository.NewBoardRepository(gormDB, nil)

	mock.ExpectQuery(`SELECT \* FROM "boards" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(boardColumns))

	// Act
	board, err := repo.GetByID(context.Background(), uuid.New())

	// Assert
	assert.Nil(t, board)
	assert.ErrorIs(t, err, repository.ErrBoardNotFound)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBoardRepository_Delete_Publishes(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	pub := &recordingPublisher{}
	repo := repository.NewBoardRepository(gormDB, pub)
	boardID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`DELETE FROM "boards" WHERE id = \$1 RETURNING \*`).
		WithArgs(boardID).
		WillReturnRows(sqlmock.NewRows(boardColumns).
			AddRow(boardID.String(), "Launch", "", uuid.New().String(), `[]`, now, now))
	mock.ExpectCommit()

	// Act
	err := repo.Delete(context.Background(), boardID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []published{{table: "boards", typ: realtime.Delete}}, pub.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// boardRow is one board with the columns "To Do" (todo) and "Done" (done).
func boardRow(boardID, todo, done uuid.UUID) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(boardColumns).
		AddRow(boardID.String(), "Launch", "", uuid.New().String(),
			`[{"id":"`+todo.String()+`","name":"To Do"},{"id":"`+done.String()+`","name":"Done"}]`, now, now)
}

func expectStatusRename(mock sqlmock.Sqlmock, boardID uuid.UUID, from, to string, moved int64) {
	mock.ExpectExec(`UPDATE "tasks" SET "status"=\$1,"updated_at"=\$2 WHERE board_id = \$3 AND status = \$4`).
		WithArgs(to, sqlmock.AnyArg(), boardID, from).
		WillReturnResult(sqlmock.NewResult(0, moved))
}

func TestBoardRepository_Update_DropColumnInUse(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	pub := &recordingPublisher{}
	repo := repository.NewBoardRepository(gormDB, pub)
	boardID, todo, done := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "boards" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(boardRow(boardID, todo, done))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "tasks" WHERE board_id = \$1 AND status = \$2`).
		WithArgs(boardID, "Done").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	// Act: колонка "Done" удаляется, но в ней две задачи
	board, err := repo.Update(context.Background(), boardID, model.BoardPatch{
		Columns: []model.Column{{ID: todo, Name: "To Do"}},
	})

	// Assert
	assert.Nil(t, board)
	assert.ErrorIs(t, err, repository.ErrColumnInUse)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
	assert.Empty(t, pub.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBoardRepository_Update_RenameMovesTasks(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	pub := &recordingPublisher{}
	repo := repository.NewBoardRepository(gormDB, pub)
	boardID, todo, done := uuid.New(), uuid.New(), uuid.New()
	tmp := "~renaming~" + todo.String()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "boards" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(boardRow(boardID, todo, done))
	expectStatusRename(mock, boardID, "To Do", tmp, 3)
	expectStatusRename(mock, boardID, tmp, "Backlog", 3)
	mock.ExpectExec(`UPDATE "boards" SET .* WHERE "id" = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// Act
	board, err := repo.Update(context.Background(), boardID, model.BoardPatch{
		Columns: []model.Column{{ID: todo, Name: "Backlog"}, {ID: done, Name: "Done"}},
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Backlog", board.ColumnList()[0].Name)
	assert.Equal(t, todo, board.ColumnList()[0].ID)
	assert.Equal(t, []published{{table: "boards", typ: realtime.Update}}, pub.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBoardRepository_Update_SwapDoesNotMergeColumns(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	pub := &recordingPublisher{}
	repo := repository.NewBoardRepository(gormDB, pub)
	boardID, todo, done := uuid.New(), uuid.New(), uuid.New()
	tmpTodo := "~renaming~" + todo.String()
	tmpDone := "~renaming~" + done.String()

	// обе колонки сначала уходят во временные имена, потом в новые
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "boards" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(boardRow(boardID, todo, done))
	expectStatusRename(mock, boardID, "To Do", tmpTodo, 2)
	expectStatusRename(mock, boardID, "Done", tmpDone, 1)
	expectStatusRename(mock, boardID, tmpTodo, "Done", 2)
	expectStatusRename(mock, boardID, tmpDone, "To Do", 1)
	mock.ExpectExec(`UPDATE "boards" SET .* WHERE "id" = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// Act
	board, err := repo.Update(context.Background(), boardID, model.BoardPatch{
		Columns: []model.Column{{ID: todo, Name: "Done"}, {ID: done, Name: "To Do"}},
	})

	// Assert
	require.NoError(t, err)
	require.Len(t, board.ColumnList(), 2)
	assert.Equal(t, "Done", board.ColumnList()[0].Name)
	assert.Equal(t, "To Do", board.ColumnList()[1].Name)
	assert.Equal(t, []published{{table: "boards", typ: realtime.Update}}, pub.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var taskColumns = []string{"id", "board_id", "title", "description", "status", "priority",
	"due_date", "assignee", "subtasks", "created_by", "created_at", "updated_at"}

func TestTaskRepository_ListByBoard(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	repo := repository.NewTaskRepository(gormDB, nil)
	boardID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT \* FROM "tasks" WHERE board_id = \$1 ORDER BY created_at ASC`).
		WithArgs(boardID).
		WillReturnRows(sqlmock.NewRows(taskColumns).
			AddRow(uuid.New().String(), boardID.String(), "Write release notes", "", "Doing", "high",
				nil, nil, `[{"id":"`+uuid.New().String()+`","title":"outline","is_completed":true}]`,
				uuid.New().String(), now, now))

	// Act
	tasks, err := repo.ListByBoard(context.Background(), boardID)

	// Assert
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Doing", tasks[0].Status)
	assert.Equal(t, model.PriorityHigh, tasks[0].Priority)
	require.Len(t, tasks[0].SubtaskList(), 1)
	assert.True(t, tasks[0].SubtaskList()[0].IsCompleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_ListDueSoon(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	repo := repository.NewTaskRepository(gormDB, nil)
	userID := uuid.New()
	from := time.Now()
	to := from.Add(24 * time.Hour)
	due := from.Add(2 * time.Hour)

	mock.ExpectQuery(`SELECT tasks\.\*, boards\.name AS board_name FROM "tasks" JOIN boards ON boards\.id = tasks\.board_id WHERE .*ORDER BY tasks\.due_date ASC`).
		WithArgs(userID, from, to).
		WillReturnRows(sqlmock.NewRows(append(append([]string{}, taskColumns...), "board_name")).
			AddRow(uuid.New().String(), uuid.New().String(), "Release notes", "", "To Do", "medium",
				due, nil, `[]`, userID.String(), from, from, "Launch"))

	// Act
	tasks, err := repo.ListDueSoon(context.Background(), userID, from, to)

	// Assert
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Release notes", tasks[0].Title)
	assert.Equal(t, "Launch", tasks[0].BoardName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_Update_NotFound(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	pub := &recordingPublisher{}
	repo := repository.NewTaskRepository(gormDB, pub)
	status := "Done"

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE "tasks" SET .*"status"=.* RETURNING \*`).
		WillReturnRows(sqlmock.NewRows(taskColumns))
	mock.ExpectCommit()

	// Act
	task, err := repo.Update(context.Background(), uuid.New(), model.TaskPatch{Status: &status})

	// Assert
	assert.Nil(t, task)
	assert.ErrorIs(t, err, repository.ErrTaskNotFound)
	assert.Empty(t, pub.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var memberColumns = []string{"id", "team_id", "user_id", "role", "status", "invited_by", "created_at"}

func TestTeamMemberRepository_Transition_Accepts(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	pub := &recordingPublisher{}
	repo := repository.NewTeamMemberRepository(gormDB, pub)
	memberID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE "team_members" SET "status"=\$1 WHERE id = \$2 AND status = \$3 RETURNING \*`).
		WithArgs(model.MemberAccepted, memberID, model.MemberPending).
		WillReturnRows(sqlmock.NewRows(memberColumns).
			AddRow(memberID.String(), uuid.New().String(), uuid.New().String(), "member", "accepted", uuid.New().String(), time.Now()))
	mock.ExpectCommit()

	// Act
	member, err := repo.Transition(context.Background(), memberID, model.MemberAccepted)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, model.MemberAccepted, member.Status)
	assert.Equal(t, []published{{table: "team_members", typ: realtime.Update}}, pub.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamMemberRepository_Transition_AlreadyTerminal(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	repo := repository.NewTeamMemberRepository(gormDB, nil)
	memberID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE "team_members" SET "status"=\$1 WHERE id = \$2 AND status = \$3 RETURNING \*`).
		WithArgs(model.MemberDeclined, memberID, model.MemberPending).
		WillReturnRows(sqlmock.NewRows(memberColumns))
	mock.ExpectCommit()
	mock.ExpectQuery(`SELECT \* FROM "team_members" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(memberColumns).
			AddRow(memberID.String(), uuid.New().String(), uuid.New().String(), "member", "accepted", uuid.New().String(), time.Now()))

	// Act
	member, err := repo.Transition(context.Background(), memberID, model.MemberDeclined)

	// Assert
	assert.Nil(t, member)
	assert.ErrorIs(t, err, repository.ErrInviteNotPending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamMemberRepository_Transition_RejectsPending(t *testing.T) {
	gormDB, _ := setupMockDB(t)
	repo := repository.NewTeamMemberRepository(gormDB, nil)

	_, err := repo.Transition(context.Background(), uuid.New(), model.MemberPending)

	assert.Error(t, err)
}

func TestBoardShareRepository_ShareBoard_CreatesShareAndNotification(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	pub := &recordingPublisher{}
	repo := repository.NewBoardShareRepository(gormDB, pub)
	boardID := uuid.New()
	userID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "boards" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(boardColumns).
			AddRow(boardID.String(), "Launch", "", uuid.New().String(), `[]`, now, now))
	mock.ExpectQuery(`SELECT \* FROM "board_shares" WHERE board_id = \$1 AND user_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "board_id", "user_id", "permission", "created_at"}))
	mock.ExpectQuery(`INSERT INTO "board_shares"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectQuery(`INSERT INTO "notifications"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectCommit()

	// Act
	share, err := repo.ShareBoard(context.Background(), boardID, userID, model.PermissionEditor, "ana@pulseflow.com")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, userID, share.UserID)
	assert.Equal(t, []published{
		{table: "board_shares", typ: realtime.Insert},
		{table: "notifications", typ: realtime.Insert},
	}, pub.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamMemberRepository_Invite_CreatesPendingAndNotification(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	pub := &recordingPublisher{}
	repo := repository.NewTeamMemberRepository(gormDB, pub)
	memberID := uuid.New()
	member := &model.TeamMember{
		TeamID:    uuid.New(),
		UserID:    uuid.New(),
		Role:      model.TeamRoleMember,
		InvitedBy: uuid.New(),
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "team_members"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(memberID.String()))
	mock.ExpectQuery(`INSERT INTO "notifications"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectCommit()

	// Act
	err := repo.Invite(context.Background(), member, "Core", "me@pulseflow.com")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, memberID, member.ID)
	assert.Equal(t, model.MemberPending, member.Status)
	assert.Equal(t, []published{
		{table: "team_members", typ: realtime.Insert},
		{table: "notifications", typ: realtime.Insert},
	}, pub.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamMemberRepository_Invite_RollsBack(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	pub := &recordingPublisher{}
	repo := repository.NewTeamMemberRepository(gormDB, pub)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "team_members"`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.Invite(context.Background(), &model.TeamMember{TeamID: uuid.New(), UserID: uuid.New()}, "Core", "me@pulseflow.com")

	assert.Error(t, err)
	assert.Empty(t, pub.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepository_ListRecent(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	repo := repository.NewNotificationRepository(gormDB, nil)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "notifications" WHERE user_id = \$1 ORDER BY created_at DESC LIMIT`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "type", "title", "message", "read", "data", "created_at"}).
			AddRow(uuid.New().String(), userID.String(), "board_shared", "Board shared with you", "", false, `{}`, time.Now()))

	// Act
	notes, err := repo.ListRecent(context.Background(), userID, 50)

	// Assert
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, model.NotificationBoardShared, notes[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepository_Delete_NotFound(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	repo := repository.NewNotificationRepository(gormDB, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`DELETE FROM "notifications" WHERE id = \$1 RETURNING \*`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	// Act
	err := repo.Delete(context.Background(), uuid.New())

	// Assert
	assert.ErrorIs(t, err, repository.ErrNotificationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
