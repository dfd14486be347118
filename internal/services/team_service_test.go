package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taskflowhq/taskflow/internal/models"
	apperrors "github.com/taskflowhq/taskflow/pkg/errors"
)

func TestTeamCreateAddsCreatorMembership(t *testing.T) {
	e := newEnv(t)
	svc, err := NewTeamService(e.db, e.engine)
	require.NoError(t, err)

	creator := e.createUser(t, "creator")
	team, err := svc.Create(context.Background(), asPrincipal(creator), CreateTeamInput{Name: "alpha"})
	require.NoError(t, err)
	require.Equal(t, creator.ID, team.CreatedBy)

	var count int64
	require.NoError(t, e.db.Model(&models.Membership{}).
		Where("team_id = ? AND user_id = ?", team.ID, creator.ID).
		Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestTeamListCoversMembershipAndOwnership(t *testing.T) {
	e := newEnv(t)
	svc, err := NewTeamService(e.db, e.engine)
	require.NoError(t, err)

	owner := e.createUser(t, "owner")
	member := e.createUser(t, "member")
	outsider := e.createUser(t, "outsider")

	owned := e.createTeam(t, "owned", owner)
	joined := e.createTeam(t, "joined", outsider)
	e.addMember(t, joined, member)
	e.addMember(t, owned, member)

	teams, err := svc.List(context.Background(), asPrincipal(member))
	require.NoError(t, err)
	require.Len(t, teams, 2)

	teams, err = svc.List(context.Background(), asPrincipal(owner))
	require.NoError(t, err)
	require.Len(t, teams, 1)
	require.Equal(t, owned.ID, teams[0].ID)
}

func TestTeamAddMemberIsCreatorOnly(t *testing.T) {
	e := newEnv(t)
	svc, err := NewTeamService(e.db, e.engine)
	require.NoError(t, err)
	ctx := context.Background()

	creator := e.createUser(t, "creator")
	member := e.createUser(t, "member")
	joiner := e.createUser(t, "joiner")
	team := e.createTeam(t, "alpha", creator)
	e.addMember(t, team, member)

	err = svc.AddMember(ctx, asPrincipal(member), team.ID, joiner.ID)
	require.ErrorIs(t, err, apperrors.ErrNotTeamCreator)

	require.NoError(t, svc.AddMember(ctx, asPrincipal(creator), team.ID, joiner.ID))
	require.ErrorIs(t, svc.AddMember(ctx, asPrincipal(creator), team.ID, joiner.ID), ErrAlreadyMember)
}

func TestTeamMemberCanLeaveButNotRemoveOthers(t *testing.T) {
	e := newEnv(t)
	svc, err := NewTeamService(e.db, e.engine)
	require.NoError(t, err)
	ctx := context.Background()

	creator := e.createUser(t, "creator")
	a := e.createUser(t, "member-a")
	b := e.createUser(t, "member-b")
	team := e.createTeam(t, "alpha", creator)
	e.addMember(t, team, a)
	e.addMember(t, team, b)

	err = svc.RemoveMember(ctx, asPrincipal(a), team.ID, b.ID)
	require.ErrorIs(t, err, apperrors.ErrNotTeamCreator)

	require.NoError(t, svc.RemoveMember(ctx, asPrincipal(a), team.ID, a.ID))

	// Revocation is effective immediately.
	_, err = svc.Get(ctx, asPrincipal(a), team.ID)
	require.ErrorIs(t, err, apperrors.ErrNotTeamMember)
}

func TestTeamDeleteCascades(t *testing.T) {
	e := newEnv(t)
	svc, err := NewTeamService(e.db, e.engine)
	require.NoError(t, err)
	ctx := context.Background()

	creator := e.createUser(t, "creator")
	member := e.createUser(t, "member")
	team := e.createTeam(t, "alpha", creator)
	e.addMember(t, team, member)

	task := models.Task{TeamID: team.ID, CreatedBy: creator.ID, Title: "t", Status: models.TaskStatusToDo, Priority: models.PriorityMedium}
	require.NoError(t, e.db.Create(&task).Error)
	require.NoError(t, e.db.Create(&models.Comment{TaskID: task.ID, UserID: member.ID, Content: "c"}).Error)
	require.NoError(t, e.db.Create(&models.Milestone{TeamID: team.ID, CreatedBy: creator.ID, Title: "m"}).Error)
	require.NoError(t, e.db.Create(&models.TeamMessage{TeamID: team.ID, UserID: member.ID, Message: "hi"}).Error)
	require.NoError(t, e.db.Create(&models.Invitation{TeamID: team.ID, InviterID: creator.ID, InviteeID: member.ID, Status: models.InvitationPending}).Error)

	err = svc.Delete(ctx, asPrincipal(member), team.ID)
	require.ErrorIs(t, err, apperrors.ErrNotTeamCreator)

	require.NoError(t, svc.Delete(ctx, asPrincipal(creator), team.ID))

	for _, model := range []any{&models.Team{}, &models.Membership{}, &models.Task{}, &models.Comment{}, &models.Milestone{}, &models.TeamMessage{}, &models.Invitation{}} {
		var count int64
		require.NoError(t, e.db.Model(model).Count(&count).Error)
		require.Zero(t, count, "%T should be empty", model)
	}
}

func TestTeamMembersIncludesCreatorWithoutRow(t *testing.T) {
	e := newEnv(t)
	svc, err := NewTeamService(e.db, e.engine)
	require.NoError(t, err)

	creator := e.createUser(t, "creator")
	member := e.createUser(t, "member")

	// Team created without the usual creator membership row.
	team := models.Team{Name: "bare", CreatedBy: creator.ID}
	require.NoError(t, e.db.Create(&team).Error)
	e.addMember(t, team, member)

	users, err := svc.Members(context.Background(), asPrincipal(creator), team.ID)
	require.NoError(t, err)
	require.Len(t, users, 2)
}
