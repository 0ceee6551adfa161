//go:build integration

package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/platinummonkey/grinplace/pkg/apperrors"
	"github.com/platinummonkey/grinplace/pkg/businesses"
	"github.com/platinummonkey/grinplace/pkg/rbac"
	"github.com/platinummonkey/grinplace/pkg/users"
)

// setupPostgres starts a PostgreSQL container and returns its URL
func setupPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("grinplace_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return url
}

func TestPostgresStores(t *testing.T) {
	url := setupPostgres(t)
	ctx := context.Background()

	cfg := testConfig(t)
	cfg.Storage.Driver = "postgres"
	cfg.Storage.PostgresURL = url

	stores, err := OpenStores(ctx, cfg.Storage, testLogger())
	require.NoError(t, err)
	defer stores.Close(ctx)
	require.NotNil(t, stores.DB)

	// Migrations are idempotent.
	again, err := OpenStores(ctx, cfg.Storage, testLogger())
	require.NoError(t, err)
	require.NoError(t, again.Close(ctx))

	objects, err := OpenObjectStore(ctx, cfg.Storage)
	require.NoError(t, err)
	services, err := NewServices(cfg, stores, objects, nil, testLogger())
	require.NoError(t, err)

	owner := &rbac.Role{
		ID: "6f1c4a52-7f0e-4c8e-9a34-5c1d2b3e4f50", Name: rbac.OwnerRoleName,
		Permissions: rbac.FullPermissionSet(), Active: true,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, stores.Roles.Create(ctx, owner))

	admin, err := services.Users.Create(ctx, nil, users.CreateUserInput{
		Email: "Root@Example.com", Password: "secret1", Name: "Root", RoleID: owner.ID,
	})
	require.NoError(t, err)

	t.Run("role name unique ignoring case", func(t *testing.T) {
		_, err := services.Roles.Create(ctx, rbac.CreateRoleInput{Name: "staff", Permissions: []string{"execute_sales"}})
		require.NoError(t, err)

		err = stores.Roles.Create(ctx, &rbac.Role{
			ID: "0b8c2d7e-1a3f-4b5c-8d9e-0f1a2b3c4d5e", Name: "STAFF",
			Permissions: rbac.NewPermissionSet(), Active: true,
			CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
		})
		assert.ErrorIs(t, err, rbac.ErrRoleNameTaken)
	})

	t.Run("email unique ignoring case", func(t *testing.T) {
		_, err := services.Users.Create(ctx, admin, users.CreateUserInput{
			Email: "root@example.com", Password: "secret1", Name: "Dup", RoleID: owner.ID,
		})
		assert.ErrorIs(t, err, users.ErrEmailTaken)
	})

	t.Run("login resolves role", func(t *testing.T) {
		result, err := services.Users.Login(ctx, users.LoginInput{Email: "root@example.com", Password: "secret1"})
		require.NoError(t, err)
		require.NotNil(t, result.User.Role)
		assert.True(t, result.User.Role.Permissions.Has(rbac.PermManageRoles))

		user, err := stores.Users.Get(ctx, admin.ID, users.FindOptions{})
		require.NoError(t, err)
		assert.NotNil(t, user.LastLogin)
		assert.Nil(t, user.Role)
	})

	t.Run("role in use cannot be deleted", func(t *testing.T) {
		err := stores.Roles.Delete(ctx, owner.ID)
		assert.Equal(t, apperrors.Conflict, apperrors.KindOf(err))
	})

	t.Run("business delete detaches users", func(t *testing.T) {
		shop, err := services.Businesses.Create(ctx, admin, businesses.CreateInput{
			Name:     "Phone Shop",
			Address:  businesses.Address{Street: "Main", City: "Lima"},
			Contact:  businesses.Contact{Phone: "+51 999"},
			Services: []businesses.ServiceTag{businesses.ServicePhoneSales},
		})
		require.NoError(t, err)

		businessID := shop.ID
		_, err = services.Users.Update(ctx, admin, admin.ID, users.UpdateUserInput{BusinessID: &businessID})
		require.NoError(t, err)

		require.NoError(t, services.Businesses.Delete(ctx, shop.ID))
		user, err := stores.Users.Get(ctx, admin.ID, users.FindOptions{})
		require.NoError(t, err)
		assert.Empty(t, user.BusinessID)
	})
}
