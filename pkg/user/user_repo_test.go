package user

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orcaust/orcaust/internal/test_utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var db *pgxpool.Pool

func TestMain(m *testing.M) {
	var cleanup func()
	db, cleanup = test_utils.TestWithDB()
	code := m.Run()
	cleanup()
	os.Exit(code)
}

func TestUserRepoImpl(t *testing.T) {
	ctx := context.Background()

	t.Run("should create and load user", func(t *testing.T) {
		test_utils.CleanDB(t, db)
		repo := NewUserRepo(db)

		id, err := repo.CreateUser(ctx, User{Username: "ana", PasswordHash: "hash"})
		require.NoError(t, err)

		byId, err := repo.GetUser(ctx, id)
		require.NoError(t, err)
		byName, err := repo.GetUserByUsername(ctx, "ana")
		require.NoError(t, err)
		assert.Equal(t, byId, byName)
		assert.Equal(t, "", byId.Email)
		assert.False(t, byId.Admin)
	})

	t.Run("should reject duplicated username", func(t *testing.T) {
		test_utils.CleanDB(t, db)
		repo := NewUserRepo(db)
		_, err := repo.CreateUser(ctx, User{Username: "ana", PasswordHash: "hash"})
		require.NoError(t, err)

		_, err = repo.CreateUser(ctx, User{Username: "ana", PasswordHash: "hash"})

		assert.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("should promote user", func(t *testing.T) {
		test_utils.CleanDB(t, db)
		repo := NewUserRepo(db)
		id, err := repo.CreateUser(ctx, User{Username: "ana", PasswordHash: "hash"})
		require.NoError(t, err)
		has, err := repo.HasAdmin(ctx)
		require.NoError(t, err)
		assert.False(t, has)

		require.NoError(t, repo.SetAdmin(ctx, id, true))

		has, err = repo.HasAdmin(ctx)
		require.NoError(t, err)
		assert.True(t, has)
	})

	t.Run("should report missing user", func(t *testing.T) {
		test_utils.CleanDB(t, db)
		repo := NewUserRepo(db)

		_, err := repo.GetUser(ctx, 999)
		assert.ErrorIs(t, err, ErrUserNotFound)
		assert.ErrorIs(t, repo.SetAdmin(ctx, 999, true), ErrUserNotFound)
	})
}
