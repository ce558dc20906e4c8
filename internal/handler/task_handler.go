package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pulseflow/internal/model"
	"pulseflow/internal/workspace"
)

type TaskHandler struct {
	registry *workspace.Registry
}

func NewTaskHandler(registry *workspace.Registry) *TaskHandler {
	return &TaskHandler{registry: registry}
}

type SubtaskRequest struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	IsCompleted bool      `json:"is_completed"`
}

// TaskRequest представляет запрос на создание задачи. Status - имя колонки
type TaskRequest struct {
	BoardID     uuid.UUID        `json:"board_id" binding:"required"`
	Title       string           `json:"title" binding:"required"`
	Description string           `json:"description"`
	Status      string           `json:"status" binding:"required"`
	Priority    model.Priority   `json:"priority"`
	DueDate     *time.Time       `json:"due_date"`
	Assignee    string           `json:"assignee"`
	Subtasks    []SubtaskRequest `json:"subtasks"`
}

// TaskUpdateRequest: отсутствующие поля не меняются
type TaskUpdateRequest struct {
	Title        *string          `json:"title"`
	Description  *string          `json:"description"`
	Status       *string          `json:"status"`
	Priority     *model.Priority  `json:"priority"`
	DueDate      *time.Time       `json:"due_date"`
	ClearDueDate bool             `json:"clear_due_date"`
	Assignee     *string          `json:"assignee"`
	Subtasks     []SubtaskRequest `json:"subtasks"`
}

func toSubtasks(in []SubtaskRequest) []model.Subtask {
	if in == nil {
		return nil
	}
	out := make([]model.Subtask, len(in))
	for i, s := range in {
		out[i] = model.Subtask{ID: s.ID, Title: s.Title, IsCompleted: s.IsCompleted}
	}
	return out
}

func (h *TaskHandler) Create(c *gin.Context) {
	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	ws, ok := openWorkspace(c, h.registry)
	if !ok {
		return
	}

	task, err := ws.Store.CreateTask(c.Request.Context(), model.TaskInput{
		BoardID:     req.BoardID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		Assignee:    req.Assignee,
		Subtasks:    toSubtasks(req.Subtasks),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	ws.Store.LoadBoards(c.Request.Context())

	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) Update(c *gin.Context) {
	taskID, ok := parseID(c, "id", "task")
	if !ok {
		return
	}
	var req TaskUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	ws, ok := openWorkspace(c, h.registry)
	if !ok {
		return
	}

	task, err := ws.Store.UpdateTask(c.Request.Context(), taskID, model.TaskPatch{
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		Priority:     req.Priority,
		DueDate:      req.DueDate,
		ClearDueDate: req.ClearDueDate,
		Assignee:     req.Assignee,
		Subtasks:     toSubtasks(req.Subtasks),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	ws.Store.LoadBoards(c.Request.Context())

	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) Delete(c *gin.Context) {
	taskID, ok := parseID(c, "id", "task")
	if !ok {
		return
	}
	ws, ok := openWorkspace(c, h.registry)
	if !ok {
		return
	}

	if err := ws.Store.DeleteTask(c.Request.Context(), taskID); err != nil {
		respondError(c, err)
		return
	}
	ws.Store.LoadBoards(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// ToggleSubtask отмечает подзадачу сразу, без перезагрузки досок
func (h *TaskHandler) ToggleSubtask(c *gin.Context) {
	taskID, ok := parseID(c, "id", "task")
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subtask index"})
		return
	}
	ws, ok := openWorkspace(c, h.registry)
	if !ok {
		return
	}

	if err := ws.Store.SetSubtaskCompletion(c.Request.Context(), taskID, index); err != nil {
		respondError(c, err)
		return
	}
	task, _ := ws.Store.Task(taskID)
	c.JSON(http.StatusOK, task)
}
