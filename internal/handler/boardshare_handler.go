package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pulseflow/internal/collab"
)

type BoardShareHandler struct {
	collab *collab.Service
}

func NewBoardShareHandler(service *collab.Service) *BoardShareHandler {
	return &BoardShareHandler{collab: service}
}

// ShareBoardRequest представляет запрос на предоставление доступа к доске.
// Email проверяется на домен организации в сервисе, а не здесь
type ShareBoardRequest struct {
	Email      string `json:"email" binding:"required"`
	Permission string `json:"permission" binding:"omitempty,oneof=viewer editor"`
}

// ShareBoard предоставляет доступ к доске по email пользователя
func (h *BoardShareHandler) ShareBoard(c *gin.Context) {
	boardID, ok := parseID(c, "id", "board")
	if !ok {
		return
	}
	var req ShareBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	share, err := h.collab.ShareBoard(c.Request.Context(), currentSession(c), boardID, req.Email, req.Permission)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Board shared successfully",
		"share":   share,
	})
}

// GetBoardShares возвращает список пользователей с доступом к доске
func (h *BoardShareHandler) GetBoardShares(c *gin.Context) {
	boardID, ok := parseID(c, "id", "board")
	if !ok {
		return
	}

	shares, err := h.collab.ListBoardShares(c.Request.Context(), currentSession(c), boardID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shares)
}

// RemoveShare отзывает доступ пользователя к доске
func (h *BoardShareHandler) RemoveShare(c *gin.Context) {
	boardID, ok := parseID(c, "id", "board")
	if !ok {
		return
	}
	userID, ok := parseID(c, "user_id", "user")
	if !ok {
		return
	}

	if err := h.collab.RemoveShare(c.Request.Context(), currentSession(c), boardID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Access removed successfully"})
}
