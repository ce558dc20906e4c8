package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type NotificationType string

const (
	NotificationTaskDue     NotificationType = "task_due"
	NotificationBoardShared NotificationType = "board_shared"
	NotificationTeamInvite  NotificationType = "team_invite"
)

// Notification rows are written alongside the share or invite that causes them.
type Notification struct {
	ID        uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	Type      NotificationType `gorm:"not null" json:"type"`
	Title     string           `gorm:"not null" json:"title"`
	Message   string           `json:"message"`
	Read      bool             `gorm:"not null;default:false" json:"read"`
	Data      datatypes.JSON   `gorm:"type:jsonb" json:"data"`
	CreatedAt time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

// MemberID returns the team-member id carried by a team_invite payload.
func (n Notification) MemberID() (uuid.UUID, bool) {
	if len(n.Data) == 0 {
		return uuid.Nil, false
	}
	var payload struct {
		MemberID string `json:"member_id"`
	}
	if err := json.Unmarshal(n.Data, &payload); err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(payload.MemberID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
