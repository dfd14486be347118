package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/taskflowhq/taskflow/internal/database/testutil"
	"github.com/taskflowhq/taskflow/internal/models"
	apperrors "github.com/taskflowhq/taskflow/pkg/errors"
)

type fixture struct {
	db      *gorm.DB
	engine  *Engine
	creator models.User
	member  models.User
	outside models.User
	team    models.Team
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	engine, err := NewEngine(db)
	require.NoError(t, err)

	f := &fixture{db: db, engine: engine}

	f.creator = models.User{Username: "creator", Email: "creator@example.com", Password: "x"}
	f.member = models.User{Username: "member", Email: "member@example.com", Password: "x"}
	f.outside = models.User{Username: "outside", Email: "outside@example.com", Password: "x"}
	require.NoError(t, db.Create(&f.creator).Error)
	require.NoError(t, db.Create(&f.member).Error)
	require.NoError(t, db.Create(&f.outside).Error)

	f.team = models.Team{Name: "alpha", CreatedBy: f.creator.ID}
	require.NoError(t, db.Create(&f.team).Error)
	require.NoError(t, db.Create(&models.Membership{TeamID: f.team.ID, UserID: f.member.ID}).Error)

	return f
}

func principal(u models.User) Principal {
	return Principal{ID: u.ID, Email: u.Email}
}

func (f *fixture) createTask(t *testing.T, createdBy string, assignee *string) models.Task {
	t.Helper()
	task := models.Task{
		TeamID:       f.team.ID,
		CreatedBy:    createdBy,
		Title:        "task",
		AssignedToID: assignee,
		AssignedByID: createdBy,
		Status:       models.TaskStatusToDo,
		Priority:     models.PriorityMedium,
	}
	require.NoError(t, f.db.Create(&task).Error)
	return task
}

func TestTeamAccessMemberOrCreator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loc := TeamLocator(f.team.ID)

	for _, u := range []models.User{f.creator, f.member} {
		d, err := f.engine.Authorize(ctx, principal(u), ActionView, loc)
		require.NoError(t, err)
		require.True(t, d.Allowed, u.Username)
		require.Equal(t, f.team.ID, d.TeamID)
	}

	d, err := f.engine.Authorize(ctx, principal(f.outside), ActionView, loc)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, DenyNotMember, d.Reason)
	require.ErrorIs(t, d.Err(), apperrors.ErrNotTeamMember)
}

func TestCreatorAccessSurvivesWithoutMembershipRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// No membership row exists for the creator; ownership alone suffices.
	var count int64
	require.NoError(t, f.db.Model(&models.Membership{}).
		Where("team_id = ? AND user_id = ?", f.team.ID, f.creator.ID).
		Count(&count).Error)
	require.Zero(t, count)

	d, err := f.engine.Authorize(ctx, principal(f.creator), ActionView, TeamLocator(f.team.ID))
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestManageIsCreatorOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loc := TeamLocator(f.team.ID)

	d, err := f.engine.Authorize(ctx, principal(f.creator), ActionManage, loc)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = f.engine.Authorize(ctx, principal(f.member), ActionManage, loc)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, DenyNotCreator, d.Reason)
	require.ErrorIs(t, d.Err(), apperrors.ErrNotTeamCreator)
}

func TestTaskUpdateByMemberAndByAssignee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, f.member.ID, nil)

	d, err := f.engine.Authorize(ctx, principal(f.member), ActionUpdate, Locator{Kind: KindTask, ID: task.ID})
	require.NoError(t, err)
	require.True(t, d.Allowed)

	// An assignee keeps direct access even after losing the membership row.
	assigned := f.createTask(t, f.creator.ID, &f.member.ID)
	require.NoError(t, f.db.Where("team_id = ? AND user_id = ?", f.team.ID, f.member.ID).
		Delete(&models.Membership{}).Error)

	d, err = f.engine.Authorize(ctx, principal(f.member), ActionUpdate, Locator{Kind: KindTask, ID: assigned.ID})
	require.NoError(t, err)
	require.True(t, d.Allowed)

	// The unassigned task now denies the ex-member.
	d, err = f.engine.Authorize(ctx, principal(f.member), ActionView, Locator{Kind: KindTask, ID: task.ID})
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, DenyNotMember, d.Reason)
}

func TestMembershipRevocationIsImmediate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loc := TeamLocator(f.team.ID)

	d, err := f.engine.Authorize(ctx, principal(f.member), ActionView, loc)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	require.NoError(t, f.db.Where("team_id = ? AND user_id = ?", f.team.ID, f.member.ID).
		Delete(&models.Membership{}).Error)

	d, err = f.engine.Authorize(ctx, principal(f.member), ActionView, loc)
	require.NoError(t, err)
	require.False(t, d.Allowed)
}

func TestCommentDeleteIsAuthorOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, f.creator.ID, nil)
	comment := models.Comment{TaskID: task.ID, UserID: f.member.ID, Content: "hi"}
	require.NoError(t, f.db.Create(&comment).Error)

	loc := Locator{Kind: KindComment, ID: comment.ID}

	d, err := f.engine.Authorize(ctx, principal(f.member), ActionDelete, loc)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	// Even the team creator cannot delete someone else's comment.
	d, err = f.engine.Authorize(ctx, principal(f.creator), ActionDelete, loc)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, DenyNotAuthor, d.Reason)
	require.ErrorIs(t, d.Err(), apperrors.ErrNotAuthor)
}

func TestMessageDeleteAllowsAuthorAndTeamCreator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	message := models.TeamMessage{TeamID: f.team.ID, UserID: f.member.ID, Message: "hello"}
	require.NoError(t, f.db.Create(&message).Error)
	loc := Locator{Kind: KindMessage, ID: message.ID}

	d, err := f.engine.Authorize(ctx, principal(f.member), ActionDelete, loc)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = f.engine.Authorize(ctx, principal(f.creator), ActionDelete, loc)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = f.engine.Authorize(ctx, principal(f.outside), ActionDelete, loc)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, DenyNotAuthor, d.Reason)
}

func TestAuthorizeMissingResourceIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, kind := range []Kind{KindTeam, KindTask, KindMilestone, KindComment, KindAttachment, KindTimeLog, KindMessage} {
		_, err := f.engine.Authorize(ctx, principal(f.creator), ActionView, Locator{Kind: kind, ID: "00000000-0000-0000-0000-000000000000"})
		require.ErrorIs(t, err, apperrors.ErrNotFound, string(kind))
	}
}

func TestValidateAssignee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Members and the creator are valid assignees.
	d, err := f.engine.ValidateAssignee(ctx, principal(f.member), f.team.ID, f.creator.ID)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	// A member assigning to an outsider is rejected.
	d, err = f.engine.ValidateAssignee(ctx, principal(f.member), f.team.ID, f.outside.ID)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, DenyInvalidAssignee, d.Reason)
	require.ErrorIs(t, d.Err(), apperrors.ErrInvalidAssignee)

	// The team creator may assign anyone, outsiders included.
	d, err = f.engine.ValidateAssignee(ctx, principal(f.creator), f.team.ID, f.outside.ID)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	// Self-assignment requires team access of one's own.
	d, err = f.engine.ValidateAssignee(ctx, principal(f.member), f.team.ID, f.member.ID)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = f.engine.ValidateAssignee(ctx, principal(f.outside), f.team.ID, f.outside.ID)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, DenyInvalidAssignee, d.Reason)
}

func TestValidateMilestone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := models.Team{Name: "beta", CreatedBy: f.creator.ID}
	require.NoError(t, f.db.Create(&other).Error)

	milestone := models.Milestone{TeamID: f.team.ID, CreatedBy: f.creator.ID, Title: "m1"}
	require.NoError(t, f.db.Create(&milestone).Error)

	d, err := f.engine.ValidateMilestone(ctx, f.team.ID, milestone.ID)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	// A milestone from another team is rejected, not a 404.
	d, err = f.engine.ValidateMilestone(ctx, other.ID, milestone.ID)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, DenyInvalidMilestone, d.Reason)
	require.ErrorIs(t, d.Err(), apperrors.ErrInvalidMilestone)

	// A missing milestone id also maps onto the invalid-milestone denial.
	d, err = f.engine.ValidateMilestone(ctx, f.team.ID, "00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, DenyInvalidMilestone, d.Reason)
}

func TestAccessibleTeamIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := models.Team{Name: "beta", CreatedBy: f.outside.ID}
	require.NoError(t, f.db.Create(&other).Error)
	require.NoError(t, f.db.Create(&models.Membership{TeamID: other.ID, UserID: f.creator.ID}).Error)

	ids, err := f.engine.AccessibleTeamIDs(ctx, f.creator.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{f.team.ID, other.ID}, ids)

	ids, err = f.engine.AccessibleTeamIDs(ctx, f.outside.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{other.ID}, ids)
}
