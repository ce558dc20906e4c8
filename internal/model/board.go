package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Board struct {
	ID          uuid.UUID                    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name        string                       `gorm:"not null" json:"name"`
	Description string                       `json:"description"`
	OwnerID     uuid.UUID                    `gorm:"type:uuid;not null;index" json:"owner_id"`
	Columns     datatypes.JSONType[[]Column] `gorm:"type:jsonb;not null" json:"columns"`
	CreatedAt   time.Time                    `json:"created_at"`
	UpdatedAt   time.Time                    `json:"updated_at"`
}

func (b Board) ColumnList() []Column {
	return b.Columns.Data()
}

// HasColumn reports whether name is the name of one of the board's columns.
func (b Board) HasColumn(name string) bool {
	for _, c := range b.ColumnList() {
		if c.Name == name {
			return true
		}
	}
	return false
}

// IsOwnedBy classifies the board for a viewer. Shares never change ownership.
func (b Board) IsOwnedBy(userID uuid.UUID) bool {
	return b.OwnerID == userID
}

// BoardPatch lists the fields an update may change. Nil means unchanged.
type BoardPatch struct {
	Name        *string
	Description *string
	Columns     []Column
}
