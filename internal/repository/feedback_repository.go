package repository

import (
	"context"

	"gorm.io/gorm"

	"pulseflow/internal/model"
	"pulseflow/internal/realtime"
)

const feedbackTable = "feedback"

type FeedbackRepositoryInterface interface {
	Create(ctx context.Context, feedback *model.Feedback) error
	ListRecent(ctx context.Context, limit int) ([]model.Feedback, error)
}

var _ FeedbackRepositoryInterface = (*FeedbackRepository)(nil)

type FeedbackRepository struct {
	db      *gorm.DB
	changes realtime.Publisher
}

func NewFeedbackRepository(db *gorm.DB, changes realtime.Publisher) *FeedbackRepository {
	if changes == nil {
		changes = realtime.Discard
	}
	return &FeedbackRepository{db: db, changes: changes}
}

// Create stores the message and announces it on the feedback channel.
func (r *FeedbackRepository) Create(ctx context.Context, feedback *model.Feedback) error {
	if err := r.db.WithContext(ctx).Create(feedback).Error; err != nil {
		return err
	}
	r.changes.Publish(ctx, feedbackTable, realtime.Insert, feedback)
	return nil
}

// ListRecent returns the newest messages of every user, newest first.
func (r *FeedbackRepository) ListRecent(ctx context.Context, limit int) ([]model.Feedback, error) {
	var rows []model.Feedback
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
