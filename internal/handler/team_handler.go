package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pulseflow/internal/collab"
	"pulseflow/internal/model"
)

type TeamHandler struct {
	collab *collab.Service
}

func NewTeamHandler(service *collab.Service) *TeamHandler {
	return &TeamHandler{collab: service}
}

type TeamRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type InviteRequest struct {
	Email string         `json:"email" binding:"required"`
	Role  model.TeamRole `json:"role"`
}

type RoleRequest struct {
	Role model.TeamRole `json:"role" binding:"required"`
}

func (h *TeamHandler) Create(c *gin.Context) {
	var req TeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	team, err := h.collab.CreateTeam(c.Request.Context(), currentSession(c), req.Name, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, team)
}

func (h *TeamHandler) List(c *gin.Context) {
	teams, err := h.collab.ListTeams(c.Request.Context(), currentSession(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, teams)
}

func (h *TeamHandler) Members(c *gin.Context) {
	teamID, ok := parseID(c, "id", "team")
	if !ok {
		return
	}
	members, err := h.collab.ListTeamMembers(c.Request.Context(), currentSession(c), teamID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

// Invite создает приглашение со статусом pending и уведомление для приглашенного
func (h *TeamHandler) Invite(c *gin.Context) {
	teamID, ok := parseID(c, "id", "team")
	if !ok {
		return
	}
	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	member, err := h.collab.InviteTeamMember(c.Request.Context(), currentSession(c), teamID, req.Email, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

func (h *TeamHandler) UpdateRole(c *gin.Context) {
	memberID, ok := parseID(c, "id", "member")
	if !ok {
		return
	}
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	member, err := h.collab.UpdateTeamMemberRole(c.Request.Context(), currentSession(c), memberID, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

func (h *TeamHandler) Accept(c *gin.Context) {
	h.respond(c, true)
}

func (h *TeamHandler) Decline(c *gin.Context) {
	h.respond(c, false)
}

func (h *TeamHandler) respond(c *gin.Context, accept bool) {
	memberID, ok := parseID(c, "id", "member")
	if !ok {
		return
	}
	sess := currentSession(c)
	var (
		member *model.TeamMember
		err    error
	)
	if accept {
		member, err = h.collab.AcceptTeamInvite(c.Request.Context(), sess, memberID)
	} else {
		member, err = h.collab.DeclineTeamInvite(c.Request.Context(), sess, memberID)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}
