package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/taskflowhq/taskflow/pkg/errors"
)

func newUserService(t *testing.T, e *env) *UserService {
	t.Helper()
	svc, err := NewUserService(e.db, e.jwt)
	require.NoError(t, err)
	return svc
}

func TestRegisterAndLogin(t *testing.T) {
	e := newEnv(t)
	svc := newUserService(t, e)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{
		Username: "alice",
		Email:    "Alice@Example.com",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)
	require.NotEmpty(t, registered.Token)
	require.Equal(t, "alice@example.com", registered.User.Email)
	require.NotEqual(t, "s3cret-pass", registered.User.Password)

	// The issued token carries the principal.
	claims, err := e.jwt.ValidateAccessToken(registered.Token)
	require.NoError(t, err)
	require.Equal(t, registered.User.ID, claims.UserID)

	logged, err := svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	require.Equal(t, registered.User.ID, logged.User.ID)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	e := newEnv(t)
	svc := newUserService(t, e)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "pw123456"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Username: "alice", Email: "other@example.com", Password: "pw123456"})
	require.ErrorIs(t, err, ErrUserExists)

	_, err = svc.Register(ctx, RegisterInput{Username: "alice2", Email: "alice@example.com", Password: "pw123456"})
	require.ErrorIs(t, err, ErrUserExists)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	e := newEnv(t)
	svc := newUserService(t, e)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "pw123456"})
	require.NoError(t, err)

	_, wrongPassword := svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "nope"})
	_, unknownUser := svc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "nope"})

	require.ErrorIs(t, wrongPassword, apperrors.ErrInvalidCredentials)
	require.ErrorIs(t, unknownUser, apperrors.ErrInvalidCredentials)
}

func TestUserDirectorySearch(t *testing.T) {
	e := newEnv(t)
	svc := newUserService(t, e)
	ctx := context.Background()

	e.createUser(t, "alice")
	e.createUser(t, "bob")
	e.createUser(t, "alicia")

	users, err := svc.List(ctx, "ali")
	require.NoError(t, err)
	require.Len(t, users, 2)

	users, err = svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, users, 3)
}

func TestUpdateProfileTouchesOnlyGivenFields(t *testing.T) {
	e := newEnv(t)
	svc := newUserService(t, e)
	ctx := context.Background()

	user := e.createUser(t, "alice")

	updated, err := svc.UpdateProfile(ctx, user.ID, UpdateProfileInput{
		Bio:      ptr("hello"),
		Timezone: ptr("Europe/Berlin"),
	})
	require.NoError(t, err)
	require.Equal(t, "hello", updated.Bio)
	require.Equal(t, "Europe/Berlin", updated.Timezone)
	require.Equal(t, user.Username, updated.Username)
}
