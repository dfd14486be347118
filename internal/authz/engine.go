package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/taskflowhq/taskflow/internal/models"
	apperrors "github.com/taskflowhq/taskflow/pkg/errors"
	"github.com/taskflowhq/taskflow/pkg/metrics"
)

// Engine evaluates every authorization decision against the current
// relational snapshot. It is stateless per call: nothing is cached across
// requests, so a membership revoked mid-session takes effect on the very
// next check. Database reads are its only blocking operations.
type Engine struct {
	db *gorm.DB
}

// NewEngine constructs an authorization engine backed by the provided database.
func NewEngine(db *gorm.DB) (*Engine, error) {
	if db == nil {
		return nil, errors.New("authz: db is required")
	}
	return &Engine{db: db}, nil
}

// Authorize decides whether the principal may perform action on the located
// resource. It resolves the owning team when the locator names an existing
// resource, returning apperrors.ErrNotFound if the resource is absent.
func (e *Engine) Authorize(ctx context.Context, principal Principal, action Action, loc Locator) (Decision, error) {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(principal.ID) == "" {
		return Decision{}, errors.New("authz: principal id is required")
	}
	if strings.TrimSpace(loc.ID) == "" {
		return Decision{}, apperrors.NewBadRequest("resource id is required")
	}

	decision, err := e.decide(ctx, principal, action, loc)
	observeDecision(action, decision, err)
	return decision, err
}

func (e *Engine) decide(ctx context.Context, principal Principal, action Action, loc Locator) (Decision, error) {
	switch loc.Kind {
	case KindTeam:
		if action == ActionManage {
			return e.teamManageDecision(ctx, principal, loc.ID)
		}
		return e.teamAccessDecision(ctx, principal, loc.ID)

	case KindTask:
		return e.taskDecision(ctx, principal, action, loc.ID)

	case KindMilestone:
		return e.milestoneDecision(ctx, principal, action, loc.ID)

	case KindComment:
		var comment models.Comment
		if err := e.first(ctx, &comment, loc.ID); err != nil {
			return Decision{}, err
		}
		return e.authoredDecision(ctx, principal, action, comment.UserID, func() (string, error) {
			return e.taskTeamID(ctx, comment.TaskID)
		})

	case KindAttachment:
		var attachment models.Attachment
		if err := e.first(ctx, &attachment, loc.ID); err != nil {
			return Decision{}, err
		}
		return e.authoredDecision(ctx, principal, action, attachment.UploadedBy, func() (string, error) {
			return e.taskTeamID(ctx, attachment.TaskID)
		})

	case KindTimeLog:
		var log models.TimeLog
		if err := e.first(ctx, &log, loc.ID); err != nil {
			return Decision{}, err
		}
		return e.authoredDecision(ctx, principal, action, log.UserID, func() (string, error) {
			return e.taskTeamID(ctx, log.TaskID)
		})

	case KindMessage:
		return e.messageDecision(ctx, principal, action, loc.ID)

	default:
		return Decision{}, fmt.Errorf("authz: unknown resource kind %q", loc.Kind)
	}
}

// teamAccessDecision implements the team-scoped rule: the principal must hold
// a membership row OR be the team's creator. Ownership is a fallback, not a
// replacement, for membership; both predicates are always evaluated as an OR
// and never collapsed into one flag.
func (e *Engine) teamAccessDecision(ctx context.Context, principal Principal, teamID string) (Decision, error) {
	team, err := e.team(ctx, teamID)
	if err != nil {
		return Decision{}, err
	}

	member, err := e.isMember(ctx, teamID, principal.ID)
	if err != nil {
		return Decision{}, err
	}
	creator := team.CreatedBy == principal.ID

	if member || creator {
		return Allow(teamID), nil
	}
	return Deny(DenyNotMember, teamID), nil
}

// teamManageDecision implements creator-only team mutations. Ordinary
// membership never substitutes for ownership here.
func (e *Engine) teamManageDecision(ctx context.Context, principal Principal, teamID string) (Decision, error) {
	team, err := e.team(ctx, teamID)
	if err != nil {
		return Decision{}, err
	}
	if team.CreatedBy != principal.ID {
		return Deny(DenyNotCreator, teamID), nil
	}
	return Allow(teamID), nil
}

// taskDecision resolves the task's owning team and applies the
// existing-resource rule. For mutating actions, direct access (task creator
// or assignee) is checked before the membership/ownership fallback: an
// assignee may act on their task without holding a formal membership row.
func (e *Engine) taskDecision(ctx context.Context, principal Principal, action Action, taskID string) (Decision, error) {
	var task models.Task
	if err := e.first(ctx, &task, taskID); err != nil {
		return Decision{}, err
	}

	if action == ActionUpdate || action == ActionDelete || action == ActionContribute {
		if task.CreatedBy == principal.ID {
			return Allow(task.TeamID), nil
		}
		if task.AssignedToID != nil && *task.AssignedToID == principal.ID {
			return Allow(task.TeamID), nil
		}
	}

	return e.teamAccessDecision(ctx, principal, task.TeamID)
}

// milestoneDecision mirrors taskDecision for milestones: the milestone's own
// creator has direct access to mutate it, otherwise team access applies.
func (e *Engine) milestoneDecision(ctx context.Context, principal Principal, action Action, milestoneID string) (Decision, error) {
	var milestone models.Milestone
	if err := e.first(ctx, &milestone, milestoneID); err != nil {
		return Decision{}, err
	}

	if action == ActionUpdate || action == ActionDelete {
		if milestone.CreatedBy == principal.ID {
			return Allow(milestone.TeamID), nil
		}
	}

	return e.teamAccessDecision(ctx, principal, milestone.TeamID)
}

// messageDecision: reading follows team access; deleting is self-scoped with
// a single exception, the team creator may remove any message in their team.
func (e *Engine) messageDecision(ctx context.Context, principal Principal, action Action, messageID string) (Decision, error) {
	var message models.TeamMessage
	if err := e.first(ctx, &message, messageID); err != nil {
		return Decision{}, err
	}

	if action != ActionDelete {
		return e.teamAccessDecision(ctx, principal, message.TeamID)
	}

	if message.UserID == principal.ID {
		return Allow(message.TeamID), nil
	}

	team, err := e.team(ctx, message.TeamID)
	if err != nil {
		return Decision{}, err
	}
	if team.CreatedBy == principal.ID {
		return Allow(message.TeamID), nil
	}

	return Deny(DenyNotAuthor, message.TeamID), nil
}

// authoredDecision handles comments, attachments, and time logs: deleting or
// updating is allowed only for the author — team membership and team
// ownership never substitute. Non-mutating actions fall back to team access.
func (e *Engine) authoredDecision(ctx context.Context, principal Principal, action Action, authorID string, teamOf func() (string, error)) (Decision, error) {
	teamID, err := teamOf()
	if err != nil {
		return Decision{}, err
	}

	if action == ActionDelete || action == ActionUpdate {
		if authorID != principal.ID {
			return Deny(DenyNotAuthor, teamID), nil
		}
		return Allow(teamID), nil
	}

	return e.teamAccessDecision(ctx, principal, teamID)
}

// ValidateAssignee checks that assignee may be assigned tasks in the team:
// the assignee must already be a member or be the team's creator, unless the
// acting principal IS the team creator, whose assignments are accepted
// unconditionally. Self-assignment additionally requires the actor to hold
// team-scoped access of their own.
func (e *Engine) ValidateAssignee(ctx context.Context, actor Principal, teamID, assigneeID string) (Decision, error) {
	ctx = ensureContext(ctx)

	team, err := e.team(ctx, teamID)
	if err != nil {
		return Decision{}, err
	}

	if assigneeID == actor.ID {
		access, err := e.teamAccessDecision(ctx, actor, teamID)
		if err != nil {
			return Decision{}, err
		}
		if !access.Allowed {
			return Deny(DenyInvalidAssignee, teamID), nil
		}
		return Allow(teamID), nil
	}

	if team.CreatedBy == actor.ID {
		return Allow(teamID), nil
	}

	member, err := e.isMember(ctx, teamID, assigneeID)
	if err != nil {
		return Decision{}, err
	}
	if member || team.CreatedBy == assigneeID {
		return Allow(teamID), nil
	}

	return Deny(DenyInvalidAssignee, teamID), nil
}

// ValidateMilestone checks that the milestone exists and belongs to teamID.
func (e *Engine) ValidateMilestone(ctx context.Context, teamID, milestoneID string) (Decision, error) {
	ctx = ensureContext(ctx)

	var milestone models.Milestone
	if err := e.first(ctx, &milestone, milestoneID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return Deny(DenyInvalidMilestone, teamID), nil
		}
		return Decision{}, err
	}
	if milestone.TeamID != teamID {
		return Deny(DenyInvalidMilestone, teamID), nil
	}
	return Allow(teamID), nil
}

// IsMember reports whether the user holds an explicit membership row.
func (e *Engine) IsMember(ctx context.Context, teamID, userID string) (bool, error) {
	return e.isMember(ensureContext(ctx), teamID, userID)
}

// IsCreator reports whether the user created the team.
func (e *Engine) IsCreator(ctx context.Context, teamID, userID string) (bool, error) {
	team, err := e.team(ensureContext(ctx), teamID)
	if err != nil {
		return false, err
	}
	return team.CreatedBy == userID, nil
}

// AccessibleTeamIDs returns the ids of every team the user may act in,
// whether through a membership row or through ownership.
func (e *Engine) AccessibleTeamIDs(ctx context.Context, userID string) ([]string, error) {
	ctx = ensureContext(ctx)

	var memberIDs []string
	if err := e.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("user_id = ?", userID).
		Pluck("team_id", &memberIDs).Error; err != nil {
		return nil, fmt.Errorf("authz: list memberships: %w", err)
	}

	var createdIDs []string
	if err := e.db.WithContext(ctx).
		Model(&models.Team{}).
		Where("created_by = ?", userID).
		Pluck("id", &createdIDs).Error; err != nil {
		return nil, fmt.Errorf("authz: list created teams: %w", err)
	}

	seen := make(map[string]struct{}, len(memberIDs)+len(createdIDs))
	ids := make([]string, 0, len(memberIDs)+len(createdIDs))
	for _, id := range append(memberIDs, createdIDs...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func (e *Engine) isMember(ctx context.Context, teamID, userID string) (bool, error) {
	var count int64
	if err := e.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("authz: check membership: %w", err)
	}
	return count > 0, nil
}

func (e *Engine) team(ctx context.Context, teamID string) (*models.Team, error) {
	var team models.Team
	err := e.db.WithContext(ctx).First(&team, "id = ?", teamID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("authz: load team: %w", err)
	}
	return &team, nil
}

func (e *Engine) taskTeamID(ctx context.Context, taskID string) (string, error) {
	var task models.Task
	if err := e.first(ctx, &task, taskID); err != nil {
		return "", err
	}
	return task.TeamID, nil
}

func (e *Engine) first(ctx context.Context, dest any, id string) error {
	err := e.db.WithContext(ctx).First(dest, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("authz: load resource: %w", err)
	}
	return nil
}

func observeDecision(action Action, decision Decision, err error) {
	result := "allow"
	switch {
	case err != nil && errors.Is(err, apperrors.ErrNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	case !decision.Allowed:
		result = "deny"
	}
	metrics.AuthzDecisions.WithLabelValues(string(action), result).Inc()
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
