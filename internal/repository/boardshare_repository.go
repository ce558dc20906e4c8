package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pulseflow/internal/model"
	"pulseflow/internal/realtime"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	boardSharesTable  = "board_shares"
	notificationTable = "notifications"
)

type BoardShareRepository struct {
	db      *gorm.DB
	changes realtime.Publisher
}

func NewBoardShareRepository(db *gorm.DB, changes realtime.Publisher) *BoardShareRepository {
	if changes == nil {
		changes = realtime.Discard
	}
	return &BoardShareRepository{db: db, changes: changes}
}

// ShareBoard grants userID access to the board. An existing grant only has
// its permission refreshed, so a board never holds two shares for one user.
// A board_shared notification for the grantee is written in the same
// transaction when the grant is new.
func (r *BoardShareRepository) ShareBoard(ctx context.Context, boardID, userID uuid.UUID, permission, sharedBy string) (*model.BoardShare, error) {
	share := model.BoardShare{
		BoardID:    boardID,
		UserID:     userID,
		Permission: permission,
	}
	var note *model.Notification
	created := false

	// Lock the board row so concurrent shares of one board serialize
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var board model.Board
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", boardID).First(&board).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBoardNotFound
			}
			return err
		}

		var existing model.BoardShare
		err := tx.Where("board_id = ? AND user_id = ?", boardID, userID).First(&existing).Error
		if err == nil {
			existing.Permission = permission
			share = existing
			return tx.Save(&share).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(&share).Error; err != nil {
			return err
		}
		created = true

		note, err = newNotification(userID, model.NotificationBoardShared,
			"Board shared with you",
			fmt.Sprintf("%s shared the board %q with you", sharedBy, board.Name),
			map[string]string{"board_id": boardID.String()})
		if err != nil {
			return err
		}
		return tx.Create(note).Error
	})
	if err != nil {
		return nil, err
	}

	if created {
		r.changes.Publish(ctx, boardSharesTable, realtime.Insert, &share)
		r.changes.Publish(ctx, notificationTable, realtime.Insert, note)
	} else {
		r.changes.Publish(ctx, boardSharesTable, realtime.Update, &share)
	}
	return &share, nil
}

// RemoveShare revokes a user's access to a board
func (r *BoardShareRepository) RemoveShare(ctx context.Context, boardID, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("board_id = ? AND user_id = ?", boardID, userID).Delete(&model.BoardShare{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		r.changes.Publish(ctx, boardSharesTable, realtime.Delete, map[string]string{
			"board_id": boardID.String(),
			"user_id":  userID.String(),
		})
	}
	return nil
}

// ListByBoard returns the shares of a board with the grantee profiles
func (r *BoardShareRepository) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]model.BoardShare, error) {
	var shares []model.BoardShare
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("board_id = ?", boardID).
		Order("created_at").
		Find(&shares).Error
	return shares, err
}

func newNotification(userID uuid.UUID, typ model.NotificationType, title, message string, payload any) (*model.Notification, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &model.Notification{
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Message: message,
		Data:    datatypes.JSON(data),
	}, nil
}
