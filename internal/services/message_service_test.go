package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taskflowhq/taskflow/internal/models"
	apperrors "github.com/taskflowhq/taskflow/pkg/errors"
)

func newMessageService(t *testing.T, e *env) *MessageService {
	t.Helper()
	svc, err := NewMessageService(e.db, e.engine)
	require.NoError(t, err)
	return svc
}

func TestChatHistoryCapAndOrder(t *testing.T) {
	e := newEnv(t)
	svc := newMessageService(t, e)
	ctx := context.Background()

	creator := e.createUser(t, "creator")
	team := e.createTeam(t, "alpha", creator)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < chatHistoryLimit+10; i++ {
		message := models.TeamMessage{
			TeamID:  team.ID,
			UserID:  creator.ID,
			Message: fmt.Sprintf("msg-%d", i),
		}
		message.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, e.db.Create(&message).Error)
	}

	messages, err := svc.ListRecent(ctx, asPrincipal(creator), team.ID)
	require.NoError(t, err)
	require.Len(t, messages, chatHistoryLimit)

	// Oldest entries fall off; the rest come back chronologically.
	require.Equal(t, "msg-10", messages[0].Message)
	require.Equal(t, fmt.Sprintf("msg-%d", chatHistoryLimit+9), messages[len(messages)-1].Message)
	for i := 1; i < len(messages); i++ {
		require.False(t, messages[i].CreatedAt.Before(messages[i-1].CreatedAt))
	}
}

func TestMessageDeleteRights(t *testing.T) {
	e := newEnv(t)
	svc := newMessageService(t, e)
	ctx := context.Background()

	creator := e.createUser(t, "creator")
	member := e.createUser(t, "member")
	other := e.createUser(t, "other")
	team := e.createTeam(t, "alpha", creator)
	e.addMember(t, team, member)
	e.addMember(t, team, other)

	posted, err := svc.Post(ctx, asPrincipal(member), PostMessageInput{TeamID: team.ID, Message: "hello"})
	require.NoError(t, err)

	// Another member cannot delete it.
	err = svc.Delete(ctx, asPrincipal(other), posted.ID)
	require.ErrorIs(t, err, apperrors.ErrNotAuthor)

	// The team creator can.
	require.NoError(t, svc.Delete(ctx, asPrincipal(creator), posted.ID))

	// And authors can delete their own.
	posted, err = svc.Post(ctx, asPrincipal(member), PostMessageInput{TeamID: team.ID, Message: "again"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, asPrincipal(member), posted.ID))
}

func TestPostRequiresTeamAccess(t *testing.T) {
	e := newEnv(t)
	svc := newMessageService(t, e)
	ctx := context.Background()

	creator := e.createUser(t, "creator")
	outsider := e.createUser(t, "outsider")
	team := e.createTeam(t, "alpha", creator)

	_, err := svc.Post(ctx, asPrincipal(outsider), PostMessageInput{TeamID: team.ID, Message: "hi"})
	require.ErrorIs(t, err, apperrors.ErrNotTeamMember)
}
