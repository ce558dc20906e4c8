package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"pulseflow/internal/model"
	"pulseflow/internal/repository"
)

const (
	defaultFeedbackLimit = 50
	maxFeedbackLimit     = 200
)

type FeedbackHandler struct {
	repo  repository.FeedbackRepositoryInterface
	users repository.UserRepositoryInterface
}

func NewFeedbackHandler(repo repository.FeedbackRepositoryInterface, users repository.UserRepositoryInterface) *FeedbackHandler {
	return &FeedbackHandler{repo: repo, users: users}
}

type FeedbackRequest struct {
	Message string `json:"message" binding:"required,max=2000"`
}

// Create сохраняет отзыв от имени текущего пользователя
func (h *FeedbackHandler) Create(c *gin.Context) {
	sess := currentSession(c)
	if err := sess.Require(); err != nil {
		respondError(c, err)
		return
	}
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	// Имя берем из профиля; без профиля остается email из токена
	name := sess.Email
	user, err := h.users.GetByID(c.Request.Context(), sess.UserID)
	if err != nil {
		log.WithError(err).Warn("failed to load profile for feedback")
	}
	if user != nil {
		name = user.DisplayName()
	}

	feedback := &model.Feedback{
		ID:       uuid.New(),
		UserID:   sess.UserID,
		UserName: name,
		Message:  strings.TrimSpace(req.Message),
	}
	if err := h.repo.Create(c.Request.Context(), feedback); err != nil {
		log.WithError(err).Error("failed to create feedback")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send feedback"})
		return
	}
	c.JSON(http.StatusCreated, feedback)
}

// List возвращает последние отзывы, новые первыми
func (h *FeedbackHandler) List(c *gin.Context) {
	limit := defaultFeedbackLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = min(n, maxFeedbackLimit)
	}

	rows, err := h.repo.ListRecent(c.Request.Context(), limit)
	if err != nil {
		log.WithError(err).Error("failed to list feedback")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch feedback"})
		return
	}
	if rows == nil {
		rows = []model.Feedback{}
	}
	c.JSON(http.StatusOK, rows)
}
