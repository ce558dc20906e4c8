package repository

import "pulseflow/internal/apperr"

// Common repository errors
var (
	ErrBoardNotFound        = apperr.NotFoundf("board not found")
	ErrTaskNotFound         = apperr.NotFoundf("task not found")
	ErrUserNotFound         = apperr.NotFoundf("user not found")
	ErrTeamNotFound         = apperr.NotFoundf("team not found")
	ErrMemberNotFound       = apperr.NotFoundf("team member not found")
	ErrNotificationNotFound = apperr.NotFoundf("notification not found")

	// ErrInviteNotPending is returned when an invite was already accepted or declined.
	ErrInviteNotPending = apperr.Validationf("invite is no longer pending")

	// ErrColumnInUse is returned when a board update drops a column that still holds tasks.
	ErrColumnInUse = apperr.Validationf("column still has tasks")
)
