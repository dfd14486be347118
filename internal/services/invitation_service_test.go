package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taskflowhq/taskflow/internal/models"
	apperrors "github.com/taskflowhq/taskflow/pkg/errors"
)

func newInvitationService(t *testing.T, e *env) *InvitationService {
	t.Helper()
	svc, err := NewInvitationService(e.db, e.engine, nil)
	require.NoError(t, err)
	return svc
}

func TestInvitationRoundTrip(t *testing.T) {
	e := newEnv(t)
	svc := newInvitationService(t, e)
	ctx := context.Background()

	creator := e.createUser(t, "creator")
	invitee := e.createUser(t, "invitee")
	team := e.createTeam(t, "alpha", creator)

	invitation, err := svc.Invite(ctx, asPrincipal(creator), team.ID, invitee.ID)
	require.NoError(t, err)
	require.Equal(t, models.InvitationPending, invitation.Status)

	pending, err := svc.ListPending(ctx, asPrincipal(invitee))
	require.NoError(t, err)
	require.Len(t, pending, 1)

	accepted, err := svc.Accept(ctx, asPrincipal(invitee), invitation.ID)
	require.NoError(t, err)
	require.Equal(t, models.InvitationAccepted, accepted.Status)

	member, err := e.engine.IsMember(ctx, team.ID, invitee.ID)
	require.NoError(t, err)
	require.True(t, member)

	pending, err = svc.ListPending(ctx, asPrincipal(invitee))
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestInvitationIsCreatorOnly(t *testing.T) {
	e := newEnv(t)
	svc := newInvitationService(t, e)
	ctx := context.Background()

	creator := e.createUser(t, "creator")
	member := e.createUser(t, "member")
	invitee := e.createUser(t, "invitee")
	team := e.createTeam(t, "alpha", creator)
	e.addMember(t, team, member)

	_, err := svc.Invite(ctx, asPrincipal(member), team.ID, invitee.ID)
	require.ErrorIs(t, err, apperrors.ErrNotTeamCreator)
}

func TestInvitationPendingGuard(t *testing.T) {
	e := newEnv(t)
	svc := newInvitationService(t, e)
	ctx := context.Background()

	creator := e.createUser(t, "creator")
	invitee := e.createUser(t, "invitee")
	team := e.createTeam(t, "alpha", creator)

	_, err := svc.Invite(ctx, asPrincipal(creator), team.ID, invitee.ID)
	require.NoError(t, err)

	// A second pending invitation for the same pair is refused.
	_, err = svc.Invite(ctx, asPrincipal(creator), team.ID, invitee.ID)
	require.ErrorIs(t, err, ErrInvitationPendingExists)

	// Existing members cannot be invited at all.
	e.addMember(t, team, invitee)
	other := e.createTeam(t, "beta", creator)
	_ = other
	_, err = svc.Invite(ctx, asPrincipal(creator), team.ID, invitee.ID)
	require.ErrorIs(t, err, ErrAlreadyMember)
}

func TestInvitationResolvesExactlyOnce(t *testing.T) {
	e := newEnv(t)
	svc := newInvitationService(t, e)
	ctx := context.Background()

	creator := e.createUser(t, "creator")
	invitee := e.createUser(t, "invitee")
	team := e.createTeam(t, "alpha", creator)

	invitation, err := svc.Invite(ctx, asPrincipal(creator), team.ID, invitee.ID)
	require.NoError(t, err)

	_, err = svc.Decline(ctx, asPrincipal(invitee), invitation.ID)
	require.NoError(t, err)

	// Declining never creates a membership.
	member, err := e.engine.IsMember(ctx, team.ID, invitee.ID)
	require.NoError(t, err)
	require.False(t, member)

	// A resolved invitation cannot be accepted afterwards.
	_, err = svc.Accept(ctx, asPrincipal(invitee), invitation.ID)
	require.ErrorIs(t, err, ErrInvitationResolved)
}

func TestInvitationVisibleOnlyToInvitee(t *testing.T) {
	e := newEnv(t)
	svc := newInvitationService(t, e)
	ctx := context.Background()

	creator := e.createUser(t, "creator")
	invitee := e.createUser(t, "invitee")
	bystander := e.createUser(t, "bystander")
	team := e.createTeam(t, "alpha", creator)

	invitation, err := svc.Invite(ctx, asPrincipal(creator), team.ID, invitee.ID)
	require.NoError(t, err)

	_, err = svc.Accept(ctx, asPrincipal(bystander), invitation.ID)
	require.ErrorIs(t, err, ErrInvitationNotFound)
}
