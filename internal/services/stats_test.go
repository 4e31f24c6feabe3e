package services

import (
	"context"
	"testing"

	"food-rescue-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsPerRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	donor := env.addUser(t, models.RoleDonor, true, nil)
	ngo := env.addUser(t, models.RoleNGO, true, nil)
	admin := env.addUser(t, models.RoleAdmin, true, nil)

	listing := env.createListing(t, donor, nil)
	env.createListing(t, donor, nil)
	req, err := env.listings.CreateRequest(ctx, ngo.ID, listing.ID, nil)
	require.NoError(t, err)
	_, err = env.listings.ResolveRequest(ctx, donor.ID, req.ID, models.DecisionAccept)
	require.NoError(t, err)
	_, err = env.listings.CompleteListing(ctx, donor.ID, listing.ID)
	require.NoError(t, err)

	env.registry.Register(ngo.ID, &fakeChannel{})

	got, err := env.stats.ForUser(ctx, donor.ID)
	require.NoError(t, err)
	donorStats, ok := got.(*DonorStats)
	require.True(t, ok)
	assert.Equal(t, 2, donorStats.TotalListings)
	assert.Equal(t, 1, donorStats.ActiveListings)
	assert.Equal(t, 1, donorStats.CompletedPickups)
	assert.Equal(t, 2, donorStats.DonationsCount)

	got, err = env.stats.ForUser(ctx, ngo.ID)
	require.NoError(t, err)
	ngoStats, ok := got.(*NGOStats)
	require.True(t, ok)
	assert.Equal(t, 1, ngoStats.TotalRequests)
	assert.Equal(t, 1, ngoStats.AcceptedRequests)
	assert.Equal(t, 1, ngoStats.CompletedPickups)
	assert.True(t, ngoStats.Verified)

	got, err = env.stats.ForUser(ctx, admin.ID)
	require.NoError(t, err)
	adminStats, ok := got.(*AdminStats)
	require.True(t, ok)
	assert.Equal(t, 1, adminStats.ConnectedUsers)
	assert.Equal(t, models.RoleAdmin, adminStats.Role)
}
