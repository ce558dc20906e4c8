// Package collab implements board sharing and the team membership lifecycle.
package collab

import (
	"context"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"pulseflow/internal/apperr"
	"pulseflow/internal/model"
	"pulseflow/internal/session"
)

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

type BoardRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Board, error)
}

type ShareRepository interface {
	ShareBoard(ctx context.Context, boardID, userID uuid.UUID, permission, sharedBy string) (*model.BoardShare, error)
	RemoveShare(ctx context.Context, boardID, userID uuid.UUID) error
	ListByBoard(ctx context.Context, boardID uuid.UUID) ([]model.BoardShare, error)
}

type TeamRepository interface {
	Create(ctx context.Context, team *model.Team) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Team, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Team, error)
}

type MemberRepository interface {
	Invite(ctx context.Context, member *model.TeamMember, teamName, invitedBy string) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.TeamMember, error)
	Find(ctx context.Context, teamID, userID uuid.UUID) (*model.TeamMember, error)
	ListAccepted(ctx context.Context, teamID uuid.UUID) ([]model.TeamMember, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role model.TeamRole) (*model.TeamMember, error)
	Transition(ctx context.Context, id uuid.UUID, to model.MemberStatus) (*model.TeamMember, error)
}

// DefaultOrgDomain is the suffix every invited or shared-with email must carry.
const DefaultOrgDomain = "@pulseflow.com"

type Service struct {
	users     UserRepository
	boards    BoardRepository
	shares    ShareRepository
	teams     TeamRepository
	members   MemberRepository
	orgDomain string
}

type Repositories struct {
	Users   UserRepository
	Boards  BoardRepository
	Shares  ShareRepository
	Teams   TeamRepository
	Members MemberRepository
}

func NewService(repos Repositories, orgDomain string) *Service {
	orgDomain = strings.ToLower(strings.TrimSpace(orgDomain))
	if orgDomain == "" {
		orgDomain = DefaultOrgDomain
	}
	return &Service{
		users:     repos.Users,
		boards:    repos.Boards,
		shares:    repos.Shares,
		teams:     repos.Teams,
		members:   repos.Members,
		orgDomain: orgDomain,
	}
}

// resolveEmail applies the organization policy and looks the address up.
// Nothing is written when it fails.
func (s *Service) resolveEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperr.Validationf("email is required")
	}
	if !strings.HasSuffix(email, s.orgDomain) || len(email) == len(s.orgDomain) {
		return nil, apperr.Validationf("only %s addresses can be invited", s.orgDomain)
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Remote("failed to look up user", err)
	}
	if user == nil {
		return nil, apperr.NotFoundf("no user with email %s", email)
	}
	return user, nil
}

// Ownership says how a board relates to a viewer.
type Ownership string

const (
	Owned  Ownership = "owned"
	Shared Ownership = "shared"
)

// Classify compares the viewer with the board owner. Shares never make a
// board owned.
func Classify(board model.Board, viewer uuid.UUID) Ownership {
	if board.IsOwnedBy(viewer) {
		return Owned
	}
	return Shared
}

func (s *Service) ownedBoard(ctx context.Context, sess session.Session, boardID uuid.UUID) (*model.Board, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	board, err := s.boards.GetByID(ctx, boardID)
	if err != nil {
		return nil, apperr.Remote("failed to load board", err)
	}
	if Classify(*board, sess.UserID) != Owned {
		return nil, apperr.Forbiddenf("only the board owner can manage sharing")
	}
	return board, nil
}

// ShareBoard grants the user behind email access to a board the caller owns.
// Sharing twice with one user only updates the permission.
func (s *Service) ShareBoard(ctx context.Context, sess session.Session, boardID uuid.UUID, email, permission string) (*model.BoardShare, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	if permission == "" {
		permission = model.PermissionEditor
	}
	if permission != model.PermissionEditor && permission != model.PermissionViewer {
		return nil, apperr.Validationf("permission must be %s or %s", model.PermissionViewer, model.PermissionEditor)
	}
	user, err := s.resolveEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedBoard(ctx, sess, boardID); err != nil {
		return nil, err
	}
	if user.ID == sess.UserID {
		return nil, apperr.Validationf("you already own this board")
	}

	share, err := s.shares.ShareBoard(ctx, boardID, user.ID, permission, sess.Email)
	if err != nil {
		return nil, apperr.Remote("failed to share board", err)
	}
	log.WithFields(log.Fields{"board_id": boardID, "user_id": user.ID}).Info("board shared")
	return share, nil
}

// RemoveShare revokes a grant. Only the owner may do it.
func (s *Service) RemoveShare(ctx context.Context, sess session.Session, boardID, userID uuid.UUID) error {
	if _, err := s.ownedBoard(ctx, sess, boardID); err != nil {
		return err
	}
	if err := s.shares.RemoveShare(ctx, boardID, userID); err != nil {
		return apperr.Remote("failed to remove share", err)
	}
	return nil
}

// ListBoardShares is visible to the owner and to every grantee.
func (s *Service) ListBoardShares(ctx context.Context, sess session.Session, boardID uuid.UUID) ([]model.BoardShare, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	board, err := s.boards.GetByID(ctx, boardID)
	if err != nil {
		return nil, apperr.Remote("failed to load board", err)
	}
	shares, err := s.shares.ListByBoard(ctx, boardID)
	if err != nil {
		return nil, apperr.Remote("failed to list shares", err)
	}
	if board.IsOwnedBy(sess.UserID) {
		return shares, nil
	}
	for _, sh := range shares {
		if sh.UserID == sess.UserID {
			return shares, nil
		}
	}
	return nil, apperr.NotFoundf("board not found")
}

func (s *Service) CreateTeam(ctx context.Context, sess session.Session, name, description string) (*model.Team, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validationf("team name is required")
	}
	team := &model.Team{
		Name:        name,
		Description: strings.TrimSpace(description),
		OwnerID:     sess.UserID,
	}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, apperr.Remote("failed to create team", err)
	}
	return team, nil
}

// ListTeams returns the teams the user owns or has joined.
func (s *Service) ListTeams(ctx context.Context, sess session.Session) ([]model.Team, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	teams, err := s.teams.ListForUser(ctx, sess.UserID)
	if err != nil {
		return nil, apperr.Remote("failed to list teams", err)
	}
	return teams, nil
}

// ListTeamMembers returns the accepted members, oldest first. Outsiders get
// NotFound.
func (s *Service) ListTeamMembers(ctx context.Context, sess session.Session, teamID uuid.UUID) ([]model.TeamMember, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, apperr.Remote("failed to load team", err)
	}
	members, err := s.members.ListAccepted(ctx, teamID)
	if err != nil {
		return nil, apperr.Remote("failed to list team members", err)
	}
	if team.OwnerID == sess.UserID {
		return members, nil
	}
	for _, m := range members {
		if m.UserID == sess.UserID {
			return members, nil
		}
	}
	return nil, apperr.NotFoundf("team not found")
}

// canManage reports whether userID may invite or change roles in team: the
// owner, or an accepted manager.
func (s *Service) canManage(ctx context.Context, team *model.Team, userID uuid.UUID) (bool, error) {
	if team.OwnerID == userID {
		return true, nil
	}
	m, err := s.members.Find(ctx, team.ID, userID)
	if err != nil {
		return false, apperr.Remote("failed to load membership", err)
	}
	return m != nil && m.Status == model.MemberAccepted && m.Role == model.TeamRoleManager, nil
}

// InviteTeamMember creates a pending membership. The invitee gets a
// team_invite notification to accept or decline.
func (s *Service) InviteTeamMember(ctx context.Context, sess session.Session, teamID uuid.UUID, email string, role model.TeamRole) (*model.TeamMember, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	if role == "" {
		role = model.TeamRoleMember
	}
	if !role.Valid() {
		return nil, apperr.Validationf("role must be %s or %s", model.TeamRoleMember, model.TeamRoleManager)
	}
	user, err := s.resolveEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, apperr.Remote("failed to load team", err)
	}
	ok, err := s.canManage(ctx, team, sess.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Forbiddenf("only the team owner or a manager can invite")
	}
	if user.ID == team.OwnerID {
		return nil, apperr.Validationf("the team owner is already part of the team")
	}
	existing, err := s.members.Find(ctx, teamID, user.ID)
	if err != nil {
		return nil, apperr.Remote("failed to load membership", err)
	}
	if existing != nil {
		return nil, apperr.Validationf("%s was already invited to this team", user.Email)
	}

	member := &model.TeamMember{
		TeamID:    teamID,
		UserID:    user.ID,
		Role:      role,
		Status:    model.MemberPending,
		InvitedBy: sess.UserID,
	}
	if err := s.members.Invite(ctx, member, team.Name, sess.Email); err != nil {
		return nil, apperr.Remote("failed to invite team member", err)
	}
	log.WithFields(log.Fields{"team_id": teamID, "user_id": user.ID}).Info("team member invited")
	return member, nil
}

// UpdateTeamMemberRole is allowed for the team owner and accepted managers
// only. Anyone else gets Forbidden and nothing is written.
func (s *Service) UpdateTeamMemberRole(ctx context.Context, sess session.Session, memberID uuid.UUID, role model.TeamRole) (*model.TeamMember, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, apperr.Validationf("role must be %s or %s", model.TeamRoleMember, model.TeamRoleManager)
	}
	member, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, apperr.Remote("failed to load team member", err)
	}
	team, err := s.teams.GetByID(ctx, member.TeamID)
	if err != nil {
		return nil, apperr.Remote("failed to load team", err)
	}
	ok, err := s.canManage(ctx, team, sess.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Forbiddenf("only the team owner or a manager can change roles")
	}

	updated, err := s.members.UpdateRole(ctx, memberID, role)
	if err != nil {
		return nil, apperr.Remote("failed to update role", err)
	}
	return updated, nil
}

func (s *Service) AcceptTeamInvite(ctx context.Context, sess session.Session, memberID uuid.UUID) (*model.TeamMember, error) {
	return s.respond(ctx, sess, memberID, model.MemberAccepted)
}

func (s *Service) DeclineTeamInvite(ctx context.Context, sess session.Session, memberID uuid.UUID) (*model.TeamMember, error) {
	return s.respond(ctx, sess, memberID, model.MemberDeclined)
}

// respond moves a pending invite to a terminal status. Only the invitee may
// answer, and an answered invite stays answered.
func (s *Service) respond(ctx context.Context, sess session.Session, memberID uuid.UUID, to model.MemberStatus) (*model.TeamMember, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	member, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, apperr.Remote("failed to load invite", err)
	}
	if member.UserID != sess.UserID {
		return nil, apperr.Forbiddenf("only the invited user can answer this invite")
	}
	if member.Status.Terminal() {
		return nil, apperr.Validationf("invite was already %s", member.Status)
	}

	updated, err := s.members.Transition(ctx, memberID, to)
	if err != nil {
		return nil, apperr.Remote("failed to answer invite", err)
	}
	return updated, nil
}
