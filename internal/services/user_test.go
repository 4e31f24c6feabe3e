package services

import (
	"context"
	"testing"

	"food-rescue-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ngo, err := env.users.Register(ctx, RegisterInput{
		Name:     "Food Bank",
		Email:    "  Bank@Example.org ",
		Password: "correct horse",
		Role:     "ngo",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, ngo.Token)
	assert.Equal(t, "bank@example.org", ngo.User.Email)
	assert.False(t, ngo.User.Verified)
	assert.NotEqual(t, "correct horse", ngo.User.PasswordHash)

	donor, err := env.users.Register(ctx, RegisterInput{
		Name: "Cafe", Email: "cafe@example.org", Password: "longenough", Role: "donor",
	})
	require.NoError(t, err)
	assert.True(t, donor.User.Verified)

	_, err = env.users.Register(ctx, RegisterInput{
		Name: "Again", Email: "bank@example.org", Password: "whatever1", Role: "ngo",
	})
	assert.ErrorIs(t, err, models.ErrConflict)

	_, err = env.users.Register(ctx, RegisterInput{
		Name: "Root", Email: "root@example.org", Password: "whatever1", Role: "admin",
	})
	assert.ErrorIs(t, err, models.ErrForbidden)

	res, err := env.users.Login(ctx, "BANK@example.org", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, ngo.User.ID, res.User.ID)

	_, err = env.users.Login(ctx, "bank@example.org", "wrong")
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = env.users.Login(ctx, "nobody@example.org", "wrong")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestJWTRoundTrip(t *testing.T) {
	svc := NewUserService(nil, "secret-a")

	token, err := svc.GenerateJWT("u1", models.RoleDonor)
	require.NoError(t, err)

	claims, err := svc.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleDonor, claims.Role)

	_, err = NewUserService(nil, "secret-b").ValidateJWT(token)
	assert.Error(t, err)

	_, err = svc.ValidateJWT("not-a-token")
	assert.Error(t, err)
}

func TestAdminActions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := env.addUser(t, models.RoleAdmin, true, nil)
	ngo := env.addUser(t, models.RoleNGO, false, nil)
	reg, err := env.users.Register(ctx, RegisterInput{
		Name: "Cafe", Email: "cafe@example.org", Password: "longenough", Role: "donor",
	})
	require.NoError(t, err)
	donor := reg.User

	assert.ErrorIs(t, env.users.SetVerified(ctx, donor.ID, ngo.ID, true), models.ErrForbidden)
	require.NoError(t, env.users.SetVerified(ctx, admin.ID, ngo.ID, true))

	u, err := env.store.Users.GetByID(ctx, ngo.ID)
	require.NoError(t, err)
	assert.True(t, u.Verified)

	assert.ErrorIs(t, env.users.SetActive(ctx, admin.ID, admin.ID, false), models.ErrValidation)
	require.NoError(t, env.users.SetActive(ctx, admin.ID, donor.ID, false))

	_, err = env.users.Login(ctx, "cafe@example.org", "longenough")
	assert.ErrorIs(t, err, models.ErrForbidden)
}
