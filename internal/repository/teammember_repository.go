package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pulseflow/internal/model"
	"pulseflow/internal/realtime"
)

const teamMembersTable = "team_members"

type TeamMemberRepository struct {
	db      *gorm.DB
	changes realtime.Publisher
}

func NewTeamMemberRepository(db *gorm.DB, changes realtime.Publisher) *TeamMemberRepository {
	if changes == nil {
		changes = realtime.Discard
	}
	return &TeamMemberRepository{db: db, changes: changes}
}

// Invite creates a pending membership and the invitee's team_invite
// notification in one transaction.
func (r *TeamMemberRepository) Invite(ctx context.Context, member *model.TeamMember, teamName, invitedBy string) error {
	member.Status = model.MemberPending
	var note *model.Notification
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(member).Error; err != nil {
			return err
		}
		var err error
		note, err = newNotification(member.UserID, model.NotificationTeamInvite,
			"Team invitation",
			fmt.Sprintf("%s invited you to join %q as %s", invitedBy, teamName, member.Role),
			map[string]string{"member_id": member.ID.String(), "team_id": member.TeamID.String()})
		if err != nil {
			return err
		}
		return tx.Create(note).Error
	})
	if err != nil {
		return err
	}
	r.changes.Publish(ctx, teamMembersTable, realtime.Insert, member)
	r.changes.Publish(ctx, notificationTable, realtime.Insert, note)
	return nil
}

func (r *TeamMemberRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.TeamMember, error) {
	var member model.TeamMember
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &member, nil
}

// Find returns the membership of userID in teamID, or nil, nil
func (r *TeamMemberRepository) Find(ctx context.Context, teamID, userID uuid.UUID) (*model.TeamMember, error) {
	var member model.TeamMember
	err := r.db.WithContext(ctx).Where("team_id = ? AND user_id = ?", teamID, userID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// ListAccepted returns the accepted members of a team, oldest first
func (r *TeamMemberRepository) ListAccepted(ctx context.Context, teamID uuid.UUID) ([]model.TeamMember, error) {
	var members []model.TeamMember
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("team_id = ? AND status = ?", teamID, model.MemberAccepted).
		Order("created_at ASC").
		Find(&members).Error
	return members, err
}

func (r *TeamMemberRepository) UpdateRole(ctx context.Context, id uuid.UUID, role model.TeamRole) (*model.TeamMember, error) {
	var member model.TeamMember
	result := r.db.WithContext(ctx).Model(&member).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Update("role", role)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrMemberNotFound
	}
	r.changes.Publish(ctx, teamMembersTable, realtime.Update, &member)
	return &member, nil
}

// Transition moves a pending membership to a terminal status. The update
// is conditional on the row still being pending, so a terminal status is
// never overwritten, even by a concurrent call.
func (r *TeamMemberRepository) Transition(ctx context.Context, id uuid.UUID, to model.MemberStatus) (*model.TeamMember, error) {
	if !to.Terminal() {
		return nil, fmt.Errorf("invalid target status %q", to)
	}
	var member model.TeamMember
	result := r.db.WithContext(ctx).Model(&member).
		Clauses(clause.Returning{}).
		Where("id = ? AND status = ?", id, model.MemberPending).
		Update("status", to)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrInviteNotPending
	}
	r.changes.Publish(ctx, teamMembersTable, realtime.Update, &member)
	return &member, nil
}
