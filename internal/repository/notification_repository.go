package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pulseflow/internal/model"
	"pulseflow/internal/realtime"
)

type NotificationRepository struct {
	db      *gorm.DB
	changes realtime.Publisher
}

func NewNotificationRepository(db *gorm.DB, changes realtime.Publisher) *NotificationRepository {
	if changes == nil {
		changes = realtime.Discard
	}
	return &NotificationRepository{db: db, changes: changes}
}

// ListRecent returns the newest notifications of a user
func (r *NotificationRepository) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]model.Notification, error) {
	var notes []model.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notes).Error
	return notes, err
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	var note model.Notification
	result := r.db.WithContext(ctx).Model(&note).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Update("read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	r.changes.Publish(ctx, notificationTable, realtime.Update, &note)
	return nil
}

// MarkAllRead marks every unread notification of a user as read
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	var notes []model.Notification
	result := r.db.WithContext(ctx).Model(&notes).
		Clauses(clause.Returning{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	if result.Error != nil {
		return result.Error
	}
	for i := range notes {
		r.changes.Publish(ctx, notificationTable, realtime.Update, &notes[i])
	}
	return nil
}

func (r *NotificationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var note model.Notification
	result := r.db.WithContext(ctx).Clauses(clause.Returning{}).Where("id = ?", id).Delete(&note)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	r.changes.Publish(ctx, notificationTable, realtime.Delete, &note)
	return nil
}
