package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"pulseflow/internal/handler"
	"pulseflow/internal/model"
	"pulseflow/internal/notification"
)

func setupNotificationTest(userID uuid.UUID, store *remote) *gin.Engine {
	gin.SetMode(gin.TestMode)
	notificationHandler := handler.NewNotificationHandler(newRegistry(store))

	r := gin.New()
	authorized := r.Group("/")
	authorized.Use(withUser(userID))
	{
		authorized.GET("/notifications", notificationHandler.List)
		authorized.POST("/notifications/read-all", notificationHandler.MarkAllRead)
		authorized.POST("/notifications/:id/read", notificationHandler.MarkRead)
		authorized.DELETE("/notifications/:id", notificationHandler.Delete)
		authorized.POST("/notifications/:id/invite", notificationHandler.AnswerInvite)
	}
	return r
}

func readFeed(t *testing.T, resp *httptest.ResponseRecorder) notification.Feed {
	t.Helper()
	var feed notification.Feed
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &feed))
	return feed
}

func TestNotifications_UnreadCountIncludesDueSoon(t *testing.T) {
	// Arrange: одно непрочитанное, одно прочитанное и одна задача со сроком
	userID := uuid.New()
	unread := model.Notification{ID: uuid.New(), UserID: userID, Type: model.NotificationBoardShared, Title: "Board shared"}
	read := model.Notification{ID: uuid.New(), UserID: userID, Type: model.NotificationBoardShared, Title: "Old", Read: true}
	due := time.Now().Add(3 * time.Hour)
	store := &remote{
		notes: []model.Notification{unread, read},
		due:   []model.DueTask{{Task: model.Task{ID: uuid.New(), Title: "Ship", DueDate: &due}, BoardName: "Launch"}},
	}
	router := setupNotificationTest(userID, store)

	// Act
	resp := do(router, "GET", "/notifications", nil)

	// Assert
	require.Equal(t, http.StatusOK, resp.Code)
	feed := readFeed(t, resp)
	assert.Len(t, feed.Notifications, 2)
	assert.Len(t, feed.DueSoon, 1)
	assert.Equal(t, 2, feed.UnreadCount)

	// Прочитанное уведомление уменьшает счетчик, задача со сроком остается
	resp = do(router, "POST", "/notifications/"+unread.ID.String()+"/read", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, readFeed(t, resp).UnreadCount)
	assert.True(t, store.notes[0].Read)
}

func TestNotifications_MarkAllAndDelete(t *testing.T) {
	userID := uuid.New()
	first := model.Notification{ID: uuid.New(), UserID: userID, Type: model.NotificationBoardShared, Title: "a"}
	second := model.Notification{ID: uuid.New(), UserID: userID, Type: model.NotificationBoardShared, Title: "b"}
	store := &remote{notes: []model.Notification{first, second}}
	router := setupNotificationTest(userID, store)

	resp := do(router, "POST", "/notifications/read-all", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 0, readFeed(t, resp).UnreadCount)

	resp = do(router, "DELETE", "/notifications/"+first.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.Code)
	feed := readFeed(t, resp)
	require.Len(t, feed.Notifications, 1)
	assert.Equal(t, second.ID, feed.Notifications[0].ID)

	resp = do(router, "DELETE", "/notifications/"+uuid.New().String(), nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestNotifications_AnswerInviteRemovesNotification(t *testing.T) {
	// Arrange
	userID := uuid.New()
	memberID := uuid.New()
	invite := model.Notification{
		ID:     uuid.New(),
		UserID: userID,
		Type:   model.NotificationTeamInvite,
		Title:  "Team invitation",
		Data:   datatypes.JSON(`{"member_id":"` + memberID.String() + `"}`),
	}
	store := &remote{notes: []model.Notification{invite}}
	router := setupNotificationTest(userID, store)

	// Act: отклоняем приглашение
	accept := false
	resp := do(router, "POST", "/notifications/"+invite.ID.String()+"/invite", handler.InviteAnswerRequest{Accept: &accept})

	// Assert
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []bool{false}, store.answers)
	assert.Empty(t, store.notes)
	assert.Contains(t, resp.Body.String(), `"status":"declined"`)
}

func TestNotifications_AnswerInviteNeedsDecision(t *testing.T) {
	userID := uuid.New()
	router := setupNotificationTest(userID, &remote{})

	resp := do(router, "POST", "/notifications/"+uuid.New().String()+"/invite", map[string]any{})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "Invalid request", errorOf(t, resp))
}
