package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"pulseflow/internal/apperr"
	"pulseflow/internal/session"
	"pulseflow/internal/workspace"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.AuthenticationRequired:
		return http.StatusUnauthorized
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Forbidden:
		return http.StatusForbidden
	default:
		return http.StatusBadGateway
	}
}

func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.RemoteFailure {
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	c.JSON(statusFor(kind), gin.H{"error": apperr.Message(err)})
}

// Сессия кладется в контекст запроса middleware аутентификации
func currentSession(c *gin.Context) session.Session {
	return session.FromContext(c.Request.Context())
}

// parseID reads a uuid path parameter. On failure it answers 400 itself.
func parseID(c *gin.Context, param, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + what + " ID format"})
		return uuid.Nil, false
	}
	return id, true
}

// openWorkspace returns the caller's workspace. On failure it answers itself.
func openWorkspace(c *gin.Context, registry *workspace.Registry) (*workspace.Workspace, bool) {
	ws, err := registry.Get(c.Request.Context(), currentSession(c))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return ws, true
}
