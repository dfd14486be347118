package authz

import (
	apperrors "github.com/taskflowhq/taskflow/pkg/errors"
)

// Principal is the authenticated actor performing a request. It is resolved
// once per request from the bearer credential and carried through the call
// chain; the engine holds no per-session state.
type Principal struct {
	ID    string
	Email string
}

// Action identifies the category of operation being authorized.
type Action string

const (
	// ActionView covers team-scoped reads (list members, list tasks,
	// milestones, chat history).
	ActionView Action = "view"
	// ActionContribute covers team-scoped writes that any member may perform
	// (create task or milestone, post a message, comment, attach, log time).
	ActionContribute Action = "contribute"
	// ActionUpdate mutates an existing resource.
	ActionUpdate Action = "update"
	// ActionDelete removes an existing resource.
	ActionDelete Action = "delete"
	// ActionManage covers creator-only team mutations (delete team, add
	// member, invite).
	ActionManage Action = "manage"
)

// Kind names the resource type a locator points at.
type Kind string

const (
	KindTeam       Kind = "team"
	KindTask       Kind = "task"
	KindMilestone  Kind = "milestone"
	KindComment    Kind = "comment"
	KindAttachment Kind = "attachment"
	KindTimeLog    Kind = "time_log"
	KindMessage    Kind = "message"
)

// Locator scopes an authorization check: either an explicit team id, or an
// existing resource id from which the owning team is derived.
type Locator struct {
	Kind Kind
	ID   string
}

// TeamLocator builds a locator for a team-scoped action.
func TeamLocator(teamID string) Locator { return Locator{Kind: KindTeam, ID: teamID} }

// DenyReason distinguishes why an authenticated principal was refused.
type DenyReason string

const (
	DenyNotMember        DenyReason = "not_member"
	DenyNotCreator       DenyReason = "not_creator"
	DenyNotAuthor        DenyReason = "not_author"
	DenyInvalidAssignee  DenyReason = "invalid_assignee"
	DenyInvalidMilestone DenyReason = "invalid_milestone"
)

// Decision is the outcome of an authorization check. TeamID carries the
// resolved owning team so callers never re-derive it.
type Decision struct {
	Allowed bool
	Reason  DenyReason
	TeamID  string
}

// Allow builds an allowing decision scoped to the given team.
func Allow(teamID string) Decision { return Decision{Allowed: true, TeamID: teamID} }

// Deny builds a denying decision with the given reason.
func Deny(reason DenyReason, teamID string) Decision {
	return Decision{Allowed: false, Reason: reason, TeamID: teamID}
}

// Err translates a denial into its API error. Allowed decisions yield nil.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case DenyNotMember:
		return apperrors.ErrNotTeamMember
	case DenyNotCreator:
		return apperrors.ErrNotTeamCreator
	case DenyNotAuthor:
		return apperrors.ErrNotAuthor
	case DenyInvalidAssignee:
		return apperrors.ErrInvalidAssignee
	case DenyInvalidMilestone:
		return apperrors.ErrInvalidMilestone
	default:
		return apperrors.ErrForbidden
	}
}
