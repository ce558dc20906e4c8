// Package session carries the current user explicitly through the core.
package session

import (
	"context"

	"github.com/google/uuid"

	"pulseflow/internal/apperr"
)

// Session identifies the acting user. The zero value is anonymous.
type Session struct {
	UserID uuid.UUID
	Email  string
}

func New(userID uuid.UUID, email string) Session {
	return Session{UserID: userID, Email: email}
}

// Require fails fast when no user is resolvable. Retrying does not help.
func (s Session) Require() error {
	if s.UserID == uuid.Nil {
		return &apperr.Error{Kind: apperr.AuthenticationRequired, Message: "user not authenticated"}
	}
	return nil
}

type ctxKey struct{}

func WithContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by the auth middleware, or the
// anonymous session.
func FromContext(ctx context.Context) Session {
	s, _ := ctx.Value(ctxKey{}).(Session)
	return s
}
