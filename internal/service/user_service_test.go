package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/civicfix/civicfix-server/internal/config"
	"github.com/civicfix/civicfix-server/internal/domain"
	"github.com/civicfix/civicfix-server/internal/repository"
	apperrors "github.com/civicfix/civicfix-server/pkg/util"
)

func newUserService(store repository.Store) *UserService {
	return NewUserService(config.Config{
		Auth:   config.AuthConfig{JWTSecret: "test", AccessTokenTTLMinutes: 10, BcryptCost: bcrypt.MinCost},
		Limits: config.LimitsConfig{DefaultPageLimit: 10, MaxPageLimit: 100},
	}, store)
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	users := newUserService(repository.NewMemoryStore())

	registered, err := users.Register(ctx, RegisterInput{Name: "Ana", Email: " Ana@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", registered.User.Email)
	assert.Equal(t, domain.RoleCitizen, registered.User.Role)
	assert.NotEmpty(t, registered.Token)

	claims, err := users.TokenManager().ParseToken(registered.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, claims.Subject)

	_, err = users.Register(ctx, RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "secret1"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	logged, err := users.Login(ctx, "ANA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, logged.User.ID)

	_, err = users.Login(ctx, "ana@example.com", "wrong-pass")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
	_, err = users.Login(ctx, "nobody@example.com", "secret1")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
}

func TestRegisterValidation(t *testing.T) {
	users := newUserService(repository.NewMemoryStore())
	for _, in := range []RegisterInput{
		{Email: "a@example.com", Password: "secret1"},
		{Name: "A", Email: "not-an-email", Password: "secret1"},
		{Name: "A", Email: "a@example.com", Password: "123"},
	} {
		_, err := users.Register(context.Background(), in)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	}
}

func TestAdminUserManagement(t *testing.T) {
	ctx := context.Background()
	users := newUserService(repository.NewMemoryStore())
	res, err := users.Register(ctx, RegisterInput{Name: "Sam", Email: "sam@example.com", Password: "secret1"})
	require.NoError(t, err)

	promoted, err := users.PromoteByEmail(ctx, "sam@example.com", "staff")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStaff, promoted.Role)

	_, err = users.UpdateRole(ctx, res.User.ID, "mayor")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	_, err = users.UpdateRole(ctx, "missing", "admin")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	blocked, err := users.SetBlocked(ctx, res.User.ID, true)
	require.NoError(t, err)
	assert.True(t, blocked.IsBlocked)
	_, err = users.Login(ctx, "sam@example.com", "secret1")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	staff := "staff"
	page, err := users.ListUsers(ctx, &staff, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
}
