package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pulseflow/internal/workspace"
)

type NotificationHandler struct {
	registry *workspace.Registry
}

func NewNotificationHandler(registry *workspace.Registry) *NotificationHandler {
	return &NotificationHandler{registry: registry}
}

// InviteAnswerRequest: accept=false отклоняет приглашение
type InviteAnswerRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}

// List отдает ленту: 50 последних уведомлений, задачи со сроком в ближайшие сутки
// и счетчик непрочитанного
func (h *NotificationHandler) List(c *gin.Context) {
	ws, ok := openWorkspace(c, h.registry)
	if !ok {
		return
	}
	if c.Query("refresh") == "true" {
		if err := ws.Feed.Refresh(c.Request.Context()); err != nil {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, ws.Feed.Feed())
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := parseID(c, "id", "notification")
	if !ok {
		return
	}
	ws, ok := openWorkspace(c, h.registry)
	if !ok {
		return
	}
	if err := ws.Feed.MarkAsRead(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ws.Feed.Feed())
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	ws, ok := openWorkspace(c, h.registry)
	if !ok {
		return
	}
	if err := ws.Feed.MarkAllAsRead(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ws.Feed.Feed())
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id", "notification")
	if !ok {
		return
	}
	ws, ok := openWorkspace(c, h.registry)
	if !ok {
		return
	}
	if err := ws.Feed.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ws.Feed.Feed())
}

// AnswerInvite принимает или отклоняет приглашение из уведомления,
// после чего уведомление удаляется
func (h *NotificationHandler) AnswerInvite(c *gin.Context) {
	id, ok := parseID(c, "id", "notification")
	if !ok {
		return
	}
	var req InviteAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	ws, ok := openWorkspace(c, h.registry)
	if !ok {
		return
	}
	member, err := ws.Feed.RespondToInvite(c.Request.Context(), id, *req.Accept)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"member": member,
		"feed":   ws.Feed.Feed(),
	})
}
