package model

import (
	"time"

	"github.com/google/uuid"
)

type Team struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	OwnerID     uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type TeamRole string

const (
	TeamRoleMember  TeamRole = "member"
	TeamRoleManager TeamRole = "manager"
)

func (r TeamRole) Valid() bool {
	return r == TeamRoleMember || r == TeamRoleManager
}

type MemberStatus string

const (
	MemberPending  MemberStatus = "pending"
	MemberAccepted MemberStatus = "accepted"
	MemberDeclined MemberStatus = "declined"
)

// Terminal reports whether no further status change is allowed.
func (s MemberStatus) Terminal() bool {
	return s == MemberAccepted || s == MemberDeclined
}

type TeamMember struct {
	ID        uuid.UUID    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TeamID    uuid.UUID    `gorm:"type:uuid;not null;index" json:"team_id"`
	UserID    uuid.UUID    `gorm:"type:uuid;not null;index" json:"user_id"`
	Role      TeamRole     `gorm:"not null;default:member" json:"role"`
	Status    MemberStatus `gorm:"not null;default:pending" json:"status"`
	InvitedBy uuid.UUID    `gorm:"type:uuid;not null" json:"invited_by"`
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
