package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/taskflowhq/taskflow/internal/authz"
	"github.com/taskflowhq/taskflow/internal/models"
	apperrors "github.com/taskflowhq/taskflow/pkg/errors"
)

var (
	// ErrTeamNotFound indicates the requested team does not exist.
	ErrTeamNotFound = apperrors.New("TEAM_NOT_FOUND", "Team not found", http.StatusNotFound)
	// ErrAlreadyMember signals the user already holds a membership in the team.
	ErrAlreadyMember = apperrors.New("ALREADY_MEMBER", "User is already a member of this team", http.StatusConflict)
	// ErrMembershipNotFound indicates the targeted membership row does not exist.
	ErrMembershipNotFound = apperrors.New("MEMBERSHIP_NOT_FOUND", "User is not a member of this team", http.StatusNotFound)
)

// CreateTeamInput captures new team metadata.
type CreateTeamInput struct {
	Name string
}

// TeamService handles team lifecycle and membership management. Every
// operation takes the acting principal and consults the authorization engine
// before mutating anything.
type TeamService struct {
	db     *gorm.DB
	engine *authz.Engine
}

// NewTeamService constructs a TeamService instance.
func NewTeamService(db *gorm.DB, engine *authz.Engine) (*TeamService, error) {
	if db == nil {
		return nil, errors.New("team service: db is required")
	}
	if engine == nil {
		return nil, errors.New("team service: authz engine is required")
	}
	return &TeamService{db: db, engine: engine}, nil
}

// Create registers a new team owned by the actor. The creator also receives
// an explicit membership row, though their rights never depend on it.
func (s *TeamService) Create(ctx context.Context, actor authz.Principal, input CreateTeamInput) (*models.Team, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("team name is required")
	}

	team := &models.Team{Name: name, CreatedBy: actor.ID}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return fmt.Errorf("team service: create team: %w", err)
		}
		membership := &models.Membership{TeamID: team.ID, UserID: actor.ID}
		if err := tx.Create(membership).Error; err != nil {
			return fmt.Errorf("team service: create creator membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return team, nil
}

// List returns every team the actor may act in, via membership or ownership.
func (s *TeamService) List(ctx context.Context, actor authz.Principal) ([]models.Team, error) {
	ctx = ensureContext(ctx)

	ids, err := s.engine.AccessibleTeamIDs(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.Team{}, nil
	}

	var teams []models.Team
	if err := s.db.WithContext(ctx).
		Preload("Creator").
		Where("id IN ?", ids).
		Order("created_at ASC").
		Find(&teams).Error; err != nil {
		return nil, fmt.Errorf("team service: list teams: %w", err)
	}
	return teams, nil
}

// Get loads a single team the actor has access to.
func (s *TeamService) Get(ctx context.Context, actor authz.Principal, teamID string) (*models.Team, error) {
	ctx = ensureContext(ctx)

	decision, err := s.engine.Authorize(ctx, actor, authz.ActionView, authz.TeamLocator(teamID))
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, decision.Err()
	}

	var team models.Team
	err = s.db.WithContext(ctx).Preload("Creator").First(&team, "id = ?", teamID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("team service: load team: %w", err)
	}
	return &team, nil
}

// Members returns the accounts with standing in the team. The creator is
// always included even without a membership row.
func (s *TeamService) Members(ctx context.Context, actor authz.Principal, teamID string) ([]models.User, error) {
	ctx = ensureContext(ctx)

	decision, err := s.engine.Authorize(ctx, actor, authz.ActionView, authz.TeamLocator(teamID))
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, decision.Err()
	}

	var team models.Team
	if err := s.db.WithContext(ctx).First(&team, "id = ?", teamID).Error; err != nil {
		return nil, fmt.Errorf("team service: load team: %w", err)
	}

	var memberIDs []string
	if err := s.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("team_id = ?", teamID).
		Pluck("user_id", &memberIDs).Error; err != nil {
		return nil, fmt.Errorf("team service: list memberships: %w", err)
	}

	ids := normaliseIDs(append(memberIDs, team.CreatedBy))

	var users []models.User
	if err := s.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("username ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("team service: load members: %w", err)
	}
	return users, nil
}

// AddMember grants a user membership. Creator-only.
func (s *TeamService) AddMember(ctx context.Context, actor authz.Principal, teamID, userID string) error {
	ctx = ensureContext(ctx)

	decision, err := s.engine.Authorize(ctx, actor, authz.ActionManage, authz.TeamLocator(teamID))
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return decision.Err()
	}

	var user models.User
	err = s.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("team service: load user: %w", err)
	}

	membership := &models.Membership{TeamID: teamID, UserID: userID}
	if err := s.db.WithContext(ctx).Create(membership).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrAlreadyMember
		}
		return fmt.Errorf("team service: add member: %w", err)
	}
	return nil
}

// RemoveMember revokes a membership. The creator may remove anyone; an
// ordinary member may only remove themself (leave). Revocation takes effect
// on the next authorization check.
func (s *TeamService) RemoveMember(ctx context.Context, actor authz.Principal, teamID, userID string) error {
	ctx = ensureContext(ctx)

	if actor.ID != userID {
		decision, err := s.engine.Authorize(ctx, actor, authz.ActionManage, authz.TeamLocator(teamID))
		if err != nil {
			return err
		}
		if !decision.Allowed {
			return decision.Err()
		}
	}

	result := s.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Delete(&models.Membership{})
	if result.Error != nil {
		return fmt.Errorf("team service: remove member: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMembershipNotFound
	}
	return nil
}

// Delete removes the team and everything scoped to it in one transaction:
// memberships, invitations, milestones, chat, and each task's dependents.
// Creator-only.
func (s *TeamService) Delete(ctx context.Context, actor authz.Principal, teamID string) error {
	ctx = ensureContext(ctx)

	decision, err := s.engine.Authorize(ctx, actor, authz.ActionManage, authz.TeamLocator(teamID))
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return decision.Err()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taskIDs []string
		if err := tx.Model(&models.Task{}).
			Where("team_id = ?", teamID).
			Pluck("id", &taskIDs).Error; err != nil {
			return fmt.Errorf("team service: list team tasks: %w", err)
		}

		var errs error
		if len(taskIDs) > 0 {
			errs = multierr.Combine(
				tx.Where("task_id IN ?", taskIDs).Delete(&models.Comment{}).Error,
				tx.Where("task_id IN ?", taskIDs).Delete(&models.Attachment{}).Error,
				tx.Where("task_id IN ?", taskIDs).Delete(&models.TimeLog{}).Error,
			)
		}

		errs = multierr.Combine(errs,
			tx.Where("team_id = ?", teamID).Delete(&models.Task{}).Error,
			tx.Where("team_id = ?", teamID).Delete(&models.Milestone{}).Error,
			tx.Where("team_id = ?", teamID).Delete(&models.Invitation{}).Error,
			tx.Where("team_id = ?", teamID).Delete(&models.TeamMessage{}).Error,
			tx.Where("team_id = ?", teamID).Delete(&models.Membership{}).Error,
			tx.Where("id = ?", teamID).Delete(&models.Team{}).Error,
		)
		if errs != nil {
			return fmt.Errorf("team service: cascade delete: %w", errs)
		}
		return nil
	})
}
