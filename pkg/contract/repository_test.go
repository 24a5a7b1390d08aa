package contract

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orcaust/orcaust/internal/apperror"
	"github.com/orcaust/orcaust/internal/test_utils"
	"github.com/shopspring/decimal"
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

func TestRepositoryImpl(t *testing.T) {
	ctx := context.Background()

	t.Run("should store and load contract", func(t *testing.T) {
		// given
		test_utils.CleanDB(t, db)
		repo := NewRepository(db)
		start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

		// when
		created, err := repo.Create(ctx, Contract{
			Number:    "CT-001/2025",
			ClientId:  7,
			UnitPrice: decimal.NewNullDecimal(decimal.RequireFromString("152.3400")),
			StartDate: &start,
		})
		require.NoError(t, err)

		// then
		stored, err := repo.Get(ctx, created.Id)
		require.NoError(t, err)
		assert.Equal(t, "CT-001/2025", stored.Number)
		assert.Equal(t, Active, stored.Status)
		assert.Equal(t, "152.3400", stored.UnitPrice.Decimal.StringFixed(4))
		assert.True(t, start.Equal(*stored.StartDate))
		assert.Nil(t, stored.EndDate)
		assert.True(t, stored.Billable())
	})

	t.Run("should keep missing unit price", func(t *testing.T) {
		test_utils.CleanDB(t, db)
		repo := NewRepository(db)

		created, err := repo.Create(ctx, Contract{Number: "CT-002", ClientId: 1})
		require.NoError(t, err)

		stored, err := repo.Get(ctx, created.Id)
		require.NoError(t, err)
		assert.False(t, stored.UnitPrice.Valid)
		assert.False(t, stored.Billable())
	})

	t.Run("should reject duplicated number", func(t *testing.T) {
		test_utils.CleanDB(t, db)
		repo := NewRepository(db)
		_, err := repo.Create(ctx, Contract{Number: "CT-003", ClientId: 1})
		require.NoError(t, err)

		_, err = repo.Create(ctx, Contract{Number: "CT-003", ClientId: 2})

		assert.ErrorIs(t, err, apperror.ErrConflict)
	})

	t.Run("should report missing contract", func(t *testing.T) {
		test_utils.CleanDB(t, db)

		_, err := NewRepository(db).Get(ctx, 404)

		assert.ErrorIs(t, err, ErrContractNotFound)
	})
}
