package model

import (
	"time"

	"github.com/google/uuid"
)

// BoardShare grants a user access to a board it does not own.
type BoardShare struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BoardID    uuid.UUID `gorm:"type:uuid;not null;index" json:"board_id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Permission string    `gorm:"not null;check:permission IN ('viewer', 'editor')" json:"permission"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

const (
	PermissionViewer = "viewer"
	PermissionEditor = "editor"
)
