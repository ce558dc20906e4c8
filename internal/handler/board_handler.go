package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pulseflow/internal/model"
	"pulseflow/internal/workspace"
)

// BoardHandler writes boards through the caller's workspace and reloads it
// after every successful write.
type BoardHandler struct {
	registry *workspace.Registry
}

func NewBoardHandler(registry *workspace.Registry) *BoardHandler {
	return &BoardHandler{registry: registry}
}

type ColumnRequest struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// BoardRequest представляет запрос на создание доски
type BoardRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Columns     []ColumnRequest `json:"columns"`
}

// BoardUpdateRequest: отсутствующие поля не меняются
type BoardUpdateRequest struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Columns     []ColumnRequest `json:"columns"`
}

func toColumns(in []ColumnRequest) []model.Column {
	if in == nil {
		return nil
	}
	out := make([]model.Column, len(in))
	for i, c := range in {
		out[i] = model.Column{ID: c.ID, Name: c.Name}
	}
	return out
}

func (h *BoardHandler) Create(c *gin.Context) {
	var req BoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	ws, ok := openWorkspace(c, h.registry)
	if !ok {
		return
	}

	columns := toColumns(req.Columns)
	if len(columns) == 0 {
		columns = model.DefaultColumns()
	}
	board, err := ws.Store.CreateBoard(c.Request.Context(), req.Name, req.Description, columns)
	if err != nil {
		respondError(c, err)
		return
	}
	ws.Store.LoadBoards(c.Request.Context())

	c.JSON(http.StatusCreated, board)
}

func (h *BoardHandler) Update(c *gin.Context) {
	boardID, ok := parseID(c, "id", "board")
	if !ok {
		return
	}
	var req BoardUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	ws, ok := openWorkspace(c, h.registry)
	if !ok {
		return
	}

	board, err := ws.Store.UpdateBoard(c.Request.Context(), boardID, model.BoardPatch{
		Name:        req.Name,
		Description: req.Description,
		Columns:     toColumns(req.Columns),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	ws.Store.LoadBoards(c.Request.Context())

	c.JSON(http.StatusOK, board)
}

func (h *BoardHandler) Delete(c *gin.Context) {
	boardID, ok := parseID(c, "id", "board")
	if !ok {
		return
	}
	ws, ok := openWorkspace(c, h.registry)
	if !ok {
		return
	}

	if err := ws.Store.DeleteBoard(c.Request.Context(), boardID); err != nil {
		respondError(c, err)
		return
	}
	ws.Store.LoadBoards(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{"message": "Board deleted successfully"})
}
