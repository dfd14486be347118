package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/taskflowhq/taskflow/internal/auth"
	"github.com/taskflowhq/taskflow/internal/authz"
	"github.com/taskflowhq/taskflow/internal/database/testutil"
	"github.com/taskflowhq/taskflow/internal/models"
)

type env struct {
	db     *gorm.DB
	engine *authz.Engine
	jwt    *auth.JWTService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	engine, err := authz.NewEngine(db)
	require.NoError(t, err)

	jwtSvc, err := auth.NewJWTService(auth.JWTConfig{
		Secret:         "test-secret",
		Issuer:         "taskflow-test",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)

	return &env{db: db, engine: engine, jwt: jwtSvc}
}

func (e *env) createUser(t *testing.T, username string) models.User {
	t.Helper()
	user := models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hash",
	}
	require.NoError(t, e.db.Create(&user).Error)
	return user
}

// createTeam inserts a team plus the creator's membership row, matching what
// TeamService.Create produces.
func (e *env) createTeam(t *testing.T, name string, creator models.User) models.Team {
	t.Helper()
	team := models.Team{Name: name, CreatedBy: creator.ID}
	require.NoError(t, e.db.Create(&team).Error)
	require.NoError(t, e.db.Create(&models.Membership{TeamID: team.ID, UserID: creator.ID}).Error)
	return team
}

func (e *env) addMember(t *testing.T, team models.Team, user models.User) {
	t.Helper()
	require.NoError(t, e.db.Create(&models.Membership{TeamID: team.ID, UserID: user.ID}).Error)
}

func asPrincipal(u models.User) authz.Principal {
	return authz.Principal{ID: u.ID, Email: u.Email}
}

func ptr[T any](v T) *T { return &v }
