package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/taskflowhq/taskflow/internal/authz"
	"github.com/taskflowhq/taskflow/internal/models"
	apperrors "github.com/taskflowhq/taskflow/pkg/errors"
	"github.com/taskflowhq/taskflow/pkg/logger"
	"github.com/taskflowhq/taskflow/pkg/mail"
)

var (
	// ErrInvitationNotFound indicates the invitation does not exist or is not
	// addressed to the actor.
	ErrInvitationNotFound = apperrors.New("INVITATION_NOT_FOUND", "Invitation not found", http.StatusNotFound)
	// ErrInvitationPendingExists signals a pending invitation already exists
	// for the same team and invitee.
	ErrInvitationPendingExists = apperrors.New("INVITATION_PENDING", "A pending invitation already exists for this user", http.StatusConflict)
	// ErrInvitationResolved signals the invitation was already accepted or declined.
	ErrInvitationResolved = apperrors.New("INVITATION_RESOLVED", "Invitation has already been resolved", http.StatusConflict)
)

// InvitationService manages the invitation lifecycle: issue, list, accept,
// decline. Delivery of the notification email is best-effort and never
// blocks the invitation itself.
type InvitationService struct {
	db     *gorm.DB
	engine *authz.Engine
	mailer mail.Mailer
}

// NewInvitationService constructs an InvitationService. The mailer may be
// nil when email delivery is disabled.
func NewInvitationService(db *gorm.DB, engine *authz.Engine, mailer mail.Mailer) (*InvitationService, error) {
	if db == nil {
		return nil, errors.New("invitation service: db is required")
	}
	if engine == nil {
		return nil, errors.New("invitation service: authz engine is required")
	}
	return &InvitationService{db: db, engine: engine, mailer: mailer}, nil
}

// Invite creates a pending invitation for the user. Creator-only. The invitee
// must exist, must not already be a member, and must not already hold a
// pending invitation for the team.
func (s *InvitationService) Invite(ctx context.Context, actor authz.Principal, teamID, inviteeID string) (*models.Invitation, error) {
	ctx = ensureContext(ctx)

	decision, err := s.engine.Authorize(ctx, actor, authz.ActionManage, authz.TeamLocator(teamID))
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, decision.Err()
	}

	var invitee models.User
	err = s.db.WithContext(ctx).First(&invitee, "id = ?", inviteeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invitation service: load invitee: %w", err)
	}

	member, err := s.engine.IsMember(ctx, teamID, inviteeID)
	if err != nil {
		return nil, err
	}
	creator, err := s.engine.IsCreator(ctx, teamID, inviteeID)
	if err != nil {
		return nil, err
	}
	if member || creator {
		return nil, ErrAlreadyMember
	}

	var pending int64
	if err := s.db.WithContext(ctx).
		Model(&models.Invitation{}).
		Where("team_id = ? AND invitee_id = ? AND status = ?", teamID, inviteeID, models.InvitationPending).
		Count(&pending).Error; err != nil {
		return nil, fmt.Errorf("invitation service: check pending: %w", err)
	}
	if pending > 0 {
		return nil, ErrInvitationPendingExists
	}

	invitation := &models.Invitation{
		TeamID:    teamID,
		InviterID: actor.ID,
		InviteeID: inviteeID,
		Status:    models.InvitationPending,
	}
	if err := s.db.WithContext(ctx).Create(invitation).Error; err != nil {
		return nil, fmt.Errorf("invitation service: create invitation: %w", err)
	}

	s.sendInvitationEmail(ctx, invitation, &invitee)
	return invitation, nil
}

// ListPending returns the actor's unresolved invitations with team and
// inviter context preloaded.
func (s *InvitationService) ListPending(ctx context.Context, actor authz.Principal) ([]models.Invitation, error) {
	ctx = ensureContext(ctx)

	var invitations []models.Invitation
	if err := s.db.WithContext(ctx).
		Preload("Team").
		Preload("Inviter").
		Where("invitee_id = ? AND status = ?", actor.ID, models.InvitationPending).
		Order("created_at DESC").
		Find(&invitations).Error; err != nil {
		return nil, fmt.Errorf("invitation service: list pending: %w", err)
	}
	return invitations, nil
}

// Accept resolves a pending invitation and creates the membership. Both steps
// happen in one transaction; the status flip is a conditional update so two
// concurrent accepts cannot both succeed.
func (s *InvitationService) Accept(ctx context.Context, actor authz.Principal, invitationID string) (*models.Invitation, error) {
	return s.resolve(ctx, actor, invitationID, models.InvitationAccepted)
}

// Decline resolves a pending invitation without creating a membership.
func (s *InvitationService) Decline(ctx context.Context, actor authz.Principal, invitationID string) (*models.Invitation, error) {
	return s.resolve(ctx, actor, invitationID, models.InvitationDeclined)
}

func (s *InvitationService) resolve(ctx context.Context, actor authz.Principal, invitationID, status string) (*models.Invitation, error) {
	ctx = ensureContext(ctx)

	var invitation models.Invitation
	err := s.db.WithContext(ctx).
		First(&invitation, "id = ? AND invitee_id = ?", invitationID, actor.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invitation service: load invitation: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Invitation{}).
			Where("id = ? AND status = ?", invitationID, models.InvitationPending).
			Update("status", status)
		if result.Error != nil {
			return fmt.Errorf("invitation service: resolve invitation: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrInvitationResolved
		}

		if status != models.InvitationAccepted {
			return nil
		}

		membership := &models.Membership{TeamID: invitation.TeamID, UserID: actor.ID}
		if err := tx.Create(membership).Error; err != nil {
			if isUniqueConstraintError(err) {
				// Already a member through another path; the accept still resolves.
				return nil
			}
			return fmt.Errorf("invitation service: create membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	invitation.Status = status
	return &invitation, nil
}

func (s *InvitationService) sendInvitationEmail(ctx context.Context, invitation *models.Invitation, invitee *models.User) {
	if s.mailer == nil {
		return
	}

	var team models.Team
	if err := s.db.WithContext(ctx).First(&team, "id = ?", invitation.TeamID).Error; err != nil {
		logger.WithModule("invitations").Warn("load team for email", zap.Error(err))
		return
	}

	body := fmt.Sprintf(
		"<h2>You have been invited to join %s</h2>"+
			"<p>Hi %s,</p>"+
			"<p>You have a pending invitation to join the team <strong>%s</strong>. "+
			"Sign in to accept or decline it.</p>",
		team.Name, invitee.Username, team.Name,
	)

	err := s.mailer.Send(ctx, mail.Message{
		To:      []string{invitee.Email},
		Subject: fmt.Sprintf("Invitation to join %s", team.Name),
		Body:    body,
	})
	if err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
		logger.WithModule("invitations").Warn("send invitation email",
			zap.String("invitation_id", invitation.ID),
			zap.Error(err),
		)
	}
}
