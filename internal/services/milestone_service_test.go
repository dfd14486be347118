package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taskflowhq/taskflow/internal/models"
)

func newMilestoneService(t *testing.T, e *env) *MilestoneService {
	t.Helper()
	svc, err := NewMilestoneService(e.db, e.engine)
	require.NoError(t, err)
	return svc
}

func (e *env) createMilestoneTask(t *testing.T, team models.Team, milestoneID, status string) models.Task {
	t.Helper()
	task := models.Task{
		TeamID:      team.ID,
		CreatedBy:   team.CreatedBy,
		Title:       "task",
		MilestoneID: &milestoneID,
		Status:      status,
		Priority:    models.PriorityMedium,
	}
	require.NoError(t, e.db.Create(&task).Error)
	return task
}

func TestMilestoneProgressIsDerivedOnListing(t *testing.T) {
	e := newEnv(t)
	svc := newMilestoneService(t, e)
	ctx := context.Background()

	creator := e.createUser(t, "creator")
	team := e.createTeam(t, "alpha", creator)

	milestone, err := svc.Create(ctx, asPrincipal(creator), CreateMilestoneInput{
		TeamID: team.ID,
		Title:  "v1",
	})
	require.NoError(t, err)
	require.Equal(t, models.MilestoneNotStarted, milestone.Status)

	e.createMilestoneTask(t, team, milestone.ID, models.TaskStatusDone)
	e.createMilestoneTask(t, team, milestone.ID, models.TaskStatusInProgress)
	e.createMilestoneTask(t, team, milestone.ID, models.TaskStatusToDo)
	e.createMilestoneTask(t, team, milestone.ID, models.TaskStatusToDo)

	listed, err := svc.ListForTeam(ctx, asPrincipal(creator), team.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, 25, listed[0].ProgressPercentage)
	require.Equal(t, models.MilestoneInProgress, listed[0].Status)

	// Derived values are persisted.
	var stored models.Milestone
	require.NoError(t, e.db.First(&stored, "id = ?", milestone.ID).Error)
	require.Equal(t, 25, stored.ProgressPercentage)
}

func TestMilestoneStaysNotStartedWithoutCompletions(t *testing.T) {
	e := newEnv(t)
	svc := newMilestoneService(t, e)
	ctx := context.Background()

	creator := e.createUser(t, "creator")
	team := e.createTeam(t, "alpha", creator)

	milestone, err := svc.Create(ctx, asPrincipal(creator), CreateMilestoneInput{
		TeamID: team.ID,
		Title:  "v1",
	})
	require.NoError(t, err)

	// Underway tasks alone contribute no progress, so the milestone has not
	// started yet.
	e.createMilestoneTask(t, team, milestone.ID, models.TaskStatusInProgress)
	task := e.createMilestoneTask(t, team, milestone.ID, models.TaskStatusInProgress)

	listed, err := svc.ListForTeam(ctx, asPrincipal(creator), team.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Zero(t, listed[0].ProgressPercentage)
	require.Equal(t, models.MilestoneNotStarted, listed[0].Status)

	// The first completion moves it to In Progress.
	require.NoError(t, e.db.Model(&task).Update("status", models.TaskStatusDone).Error)

	listed, err = svc.ListForTeam(ctx, asPrincipal(creator), team.ID)
	require.NoError(t, err)
	require.Equal(t, 50, listed[0].ProgressPercentage)
	require.Equal(t, models.MilestoneInProgress, listed[0].Status)
}

func TestMilestoneRecomputeIsIdempotent(t *testing.T) {
	e := newEnv(t)
	svc := newMilestoneService(t, e)
	ctx := context.Background()

	creator := e.createUser(t, "creator")
	team := e.createTeam(t, "alpha", creator)

	milestone, err := svc.Create(ctx, asPrincipal(creator), CreateMilestoneInput{TeamID: team.ID, Title: "v1"})
	require.NoError(t, err)
	e.createMilestoneTask(t, team, milestone.ID, models.TaskStatusDone)

	first, err := svc.ListForTeam(ctx, asPrincipal(creator), team.ID)
	require.NoError(t, err)

	var afterFirst models.Milestone
	require.NoError(t, e.db.First(&afterFirst, "id = ?", milestone.ID).Error)

	// Listing again with unchanged tasks must not rewrite the row.
	second, err := svc.ListForTeam(ctx, asPrincipal(creator), team.ID)
	require.NoError(t, err)
	require.Equal(t, first[0].ProgressPercentage, second[0].ProgressPercentage)
	require.Equal(t, first[0].Status, second[0].Status)

	var afterSecond models.Milestone
	require.NoError(t, e.db.First(&afterSecond, "id = ?", milestone.ID).Error)
	require.Equal(t, afterFirst.UpdatedAt, afterSecond.UpdatedAt)
}

func TestMilestoneOverdueAndCompleted(t *testing.T) {
	e := newEnv(t)
	svc := newMilestoneService(t, e)
	ctx := context.Background()

	creator := e.createUser(t, "creator")
	team := e.createTeam(t, "alpha", creator)

	past := time.Now().Add(-48 * time.Hour)
	overdue, err := svc.Create(ctx, asPrincipal(creator), CreateMilestoneInput{
		TeamID:  team.ID,
		Title:   "late",
		DueDate: &past,
	})
	require.NoError(t, err)
	e.createMilestoneTask(t, team, overdue.ID, models.TaskStatusToDo)

	done, err := svc.Create(ctx, asPrincipal(creator), CreateMilestoneInput{
		TeamID:  team.ID,
		Title:   "shipped",
		DueDate: &past,
	})
	require.NoError(t, err)
	e.createMilestoneTask(t, team, done.ID, models.TaskStatusDone)

	listed, err := svc.ListForTeam(ctx, asPrincipal(creator), team.ID)
	require.NoError(t, err)

	byID := map[string]models.Milestone{}
	for _, m := range listed {
		byID[m.ID] = m
	}
	require.Equal(t, models.MilestoneOverdue, byID[overdue.ID].Status)
	// Completion wins over the due date.
	require.Equal(t, models.MilestoneCompleted, byID[done.ID].Status)
	require.Equal(t, 100, byID[done.ID].ProgressPercentage)
}

func TestMilestoneUpdateIgnoresDerivedFields(t *testing.T) {
	e := newEnv(t)
	svc := newMilestoneService(t, e)
	ctx := context.Background()

	creator := e.createUser(t, "creator")
	team := e.createTeam(t, "alpha", creator)

	milestone, err := svc.Create(ctx, asPrincipal(creator), CreateMilestoneInput{TeamID: team.ID, Title: "v1"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, asPrincipal(creator), milestone.ID, UpdateMilestoneInput{
		Title:    ptr("v1.1"),
		Priority: ptr(models.PriorityHigh),
	})
	require.NoError(t, err)
	require.Equal(t, "v1.1", updated.Title)
	require.Equal(t, models.MilestoneNotStarted, updated.Status)
	require.Zero(t, updated.ProgressPercentage)
}

func TestMilestoneDeleteDetachesTasks(t *testing.T) {
	e := newEnv(t)
	svc := newMilestoneService(t, e)
	ctx := context.Background()

	creator := e.createUser(t, "creator")
	team := e.createTeam(t, "alpha", creator)

	milestone, err := svc.Create(ctx, asPrincipal(creator), CreateMilestoneInput{TeamID: team.ID, Title: "v1"})
	require.NoError(t, err)
	task := e.createMilestoneTask(t, team, milestone.ID, models.TaskStatusToDo)

	require.NoError(t, svc.Delete(ctx, asPrincipal(creator), milestone.ID))

	var survivor models.Task
	require.NoError(t, e.db.First(&survivor, "id = ?", task.ID).Error)
	require.Nil(t, survivor.MilestoneID)
}
