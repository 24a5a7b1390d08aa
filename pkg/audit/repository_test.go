package audit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orcaust/orcaust/internal/test_utils"
	"github.com/orcaust/orcaust/internal/utils"
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

func TestRepositoryImpl_AppendAndList(t *testing.T) {
	// given
	test_utils.CleanDB(t, db)
	ctx := context.Background()
	repo := NewRepository(db)
	itemId := 11
	actorId := 3
	changedAt := time.Date(2025, 3, 10, 12, 30, 15, 123456789, time.UTC)

	first, err := repo.Append(ctx, Record{
		Kind:          HoursChanged,
		BudgetId:      1,
		ItemId:        &itemId,
		ActorId:       &actorId,
		PreviousValue: hours("10.0000"),
		NewValue:      hours("12.5000"),
		ChangedAt:     changedAt,
		Reason:        "client request",
	})
	require.NoError(t, err)
	second, err := repo.Append(ctx, Record{
		Kind:          DiscountChanged,
		BudgetId:      1,
		PreviousValue: hours("0"),
		NewValue:      hours("5.5"),
		ChangedAt:     changedAt.Add(time.Minute),
	})
	require.NoError(t, err)

	// when
	byBudget, err := repo.ListByBudget(ctx, 1, utils.Page{Limit: 50})
	require.NoError(t, err)
	byItem, err := repo.ListByItem(ctx, itemId, utils.Page{Limit: 50})
	require.NoError(t, err)

	// then
	require.Len(t, byBudget, 2)
	assert.Equal(t, second.Id, byBudget[0].Id)
	assert.Equal(t, first.Id, byBudget[1].Id)
	assert.Nil(t, byBudget[0].ItemId)
	assert.Empty(t, byBudget[0].Reason)

	require.Len(t, byItem, 1)
	stored := byItem[0]
	assert.Equal(t, HoursChanged, stored.Kind)
	assert.Equal(t, actorId, *stored.ActorId)
	assert.Equal(t, "12.5000", stored.NewValue.StringFixed(4))
	assert.True(t, changedAt.Equal(stored.ChangedAt))
	assert.Equal(t, "client request", stored.Reason)
}

func TestRepositoryImpl_TimestampStoredAsText(t *testing.T) {
	// given
	test_utils.CleanDB(t, db)
	ctx := context.Background()
	repo := NewRepository(db)
	changedAt := time.Date(2025, 1, 2, 3, 4, 5, 600000000, time.UTC)

	// when
	record, err := repo.Append(ctx, Record{Kind: DiscountChanged, BudgetId: 7, PreviousValue: hours("1"), NewValue: hours("2"), ChangedAt: changedAt})
	require.NoError(t, err)

	// then
	var raw string
	require.NoError(t, db.QueryRow(ctx, "SELECT changed_at FROM audit_record WHERE id = $1", record.Id).Scan(&raw))
	assert.Equal(t, "2025-01-02T03:04:05.6Z", raw)
}
