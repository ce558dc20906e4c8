package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pulseflow/internal/workspace"
)

type WorkspaceHandler struct {
	registry *workspace.Registry
}

func NewWorkspaceHandler(registry *workspace.Registry) *WorkspaceHandler {
	return &WorkspaceHandler{registry: registry}
}

// WorkspaceResponse is everything the board screen renders.
type WorkspaceResponse struct {
	workspace.View
	Overlay     workspace.Overlay `json:"overlay"`
	DragPhase   string            `json:"drag_phase"`
	UnreadCount int               `json:"unread_count"`
}

type ActiveBoardRequest struct {
	BoardID uuid.UUID `json:"board_id" binding:"required"`
}

type OverlayRequest struct {
	Kind    string    `json:"kind" binding:"required"`
	BoardID uuid.UUID `json:"board_id"`
	TaskID  uuid.UUID `json:"task_id"`
}

func (h *WorkspaceHandler) Get(c *gin.Context) {
	ws, ok := openWorkspace(c, h.registry)
	if !ok {
		return
	}
	// ?reload=true принудительно перечитывает доски
	if c.Query("reload") == "true" {
		ws.Store.LoadBoards(c.Request.Context())
	}
	c.JSON(http.StatusOK, WorkspaceResponse{
		View:        ws.Store.Snapshot(),
		Overlay:     ws.Overlay(),
		DragPhase:   ws.Drag.Phase().String(),
		UnreadCount: ws.Feed.UnreadCount(),
	})
}

func (h *WorkspaceHandler) SetActive(c *gin.Context) {
	var req ActiveBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	ws, ok := openWorkspace(c, h.registry)
	if !ok {
		return
	}
	if err := ws.Store.SetActive(req.BoardID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ws.Store.Snapshot())
}

func (h *WorkspaceHandler) GetOverlay(c *gin.Context) {
	ws, ok := openWorkspace(c, h.registry)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ws.Overlay())
}

// OpenOverlay заменяет текущее окно: одновременно открыто не больше одного
func (h *WorkspaceHandler) OpenOverlay(c *gin.Context) {
	var req OverlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	kind, err := workspace.ParseOverlayKind(req.Kind)
	if err != nil {
		respondError(c, err)
		return
	}
	ws, ok := openWorkspace(c, h.registry)
	if !ok {
		return
	}
	overlay, err := ws.OpenOverlay(kind, workspace.Target{BoardID: req.BoardID, TaskID: req.TaskID})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overlay)
}

func (h *WorkspaceHandler) CloseOverlay(c *gin.Context) {
	ws, ok := openWorkspace(c, h.registry)
	if !ok {
		return
	}
	ws.CloseOverlay()
	c.JSON(http.StatusOK, ws.Overlay())
}
