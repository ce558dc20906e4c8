package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pulseflow/internal/model"
)

type TeamRepository struct {
	db *gorm.DB
}

func NewTeamRepository(db *gorm.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) Create(ctx context.Context, team *model.Team) error {
	return r.db.WithContext(ctx).Create(team).Error
}

func (r *TeamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Team, error) {
	var team model.Team
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&team).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return &team, nil
}

// ListForUser returns the teams userID owns or has accepted to join
func (r *TeamRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Team, error) {
	var teams []model.Team
	joined := r.db.Model(&model.TeamMember{}).
		Select("team_id").
		Where("user_id = ? AND status = ?", userID, model.MemberAccepted)
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", userID).
		Or("id IN (?)", joined).
		Order("created_at").
		Find(&teams).Error
	return teams, err
}
