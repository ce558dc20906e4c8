package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pulseflow/internal/dragdrop"
	"pulseflow/internal/workspace"
)

type DragHandler struct {
	registry *workspace.Registry
}

func NewDragHandler(registry *workspace.Registry) *DragHandler {
	return &DragHandler{registry: registry}
}

type DragStartRequest struct {
	BoardID uuid.UUID `json:"board_id" binding:"required"`
	Column  int       `json:"column" binding:"min=0"`
	Index   int       `json:"index" binding:"min=0"`
}

// DragDropRequest: без column задача брошена вне колонок
type DragDropRequest struct {
	Column *int `json:"column"`
	Index  *int `json:"index"`
}

type DragStartResponse struct {
	TaskID uuid.UUID `json:"task_id"`
	Phase  string    `json:"phase"`
}

func (h *DragHandler) Start(c *gin.Context) {
	var req DragStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	ws, ok := openWorkspace(c, h.registry)
	if !ok {
		return
	}

	taskID, err := ws.Drag.Start(req.BoardID, dragdrop.Position{Column: req.Column, Index: req.Index})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, DragStartResponse{TaskID: taskID, Phase: ws.Drag.Phase().String()})
}

func (h *DragHandler) Drop(c *gin.Context) {
	var req DragDropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	ws, ok := openWorkspace(c, h.registry)
	if !ok {
		return
	}

	var dest *dragdrop.Position
	if req.Column != nil {
		dest = &dragdrop.Position{Column: *req.Column}
		if req.Index != nil {
			dest.Index = *req.Index
		}
	}
	result, err := ws.Drag.Drop(c.Request.Context(), dest)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *DragHandler) Cancel(c *gin.Context) {
	ws, ok := openWorkspace(c, h.registry)
	if !ok {
		return
	}
	result, err := ws.Drag.Cancel()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
