package budget

import (
	"context"
	"testing"

	"github.com/orcaust/orcaust/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func draftWithItems() Budget {
	b := Budget{
		Id:              1,
		Status:          Draft,
		DiscountPercent: dec("10"),
		Items: []Item{
			{Id: 1, ActivityId: analysisId, HoursEstimated: dec("3"), ComplexitySnapshot: dec("2.5"), UnitPriceSnapshot: dec("10"),
				SubtotalUst: dec("7.5"), SubtotalGross: dec("75")},
			{Id: 2, ActivityId: codingId, HoursEstimated: dec("2"), ComplexitySnapshot: dec("0.5"), UnitPriceSnapshot: dec("10"),
				SubtotalUst: dec("1"), SubtotalGross: dec("10")},
		},
	}
	b.recomputeTotals()
	return b
}

func TestProject(t *testing.T) {
	t.Run("should re-price with current complexity and frozen unit price", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		b := draftWithItems()
		setCatalogComplexity(analysisId, "4")

		// when
		projected, err := Project(context.Background(), b, catalogStub)

		// then
		require.NoError(t, err)
		assertDecimal(t, "4", projected.Items[0].ComplexitySnapshot)
		assertDecimal(t, "120", projected.Items[0].SubtotalGross)
		assertDecimal(t, "10", projected.Items[0].UnitPriceSnapshot)
		assertDecimal(t, "130", projected.GrossTotal)
		assertDecimal(t, "117", projected.NetTotal)
		assertDecimal(t, "85", b.GrossTotal)
		assertDecimal(t, "75", b.Items[0].SubtotalGross)
	})

	t.Run("should keep the subtotal when the node is no longer a priced activity", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		b := draftWithItems()
		node, _ := catalogStub.Get(context.Background(), codingId)
		node.Type = catalog.Phase
		node.Complexity.Valid = false
		catalogStub.Put(node)

		// when
		projected, err := Project(context.Background(), b, catalogStub)

		// then
		require.NoError(t, err)
		assertDecimal(t, "10", projected.Items[1].SubtotalGross)
		assertDecimal(t, "85", projected.GrossTotal)
	})

	t.Run("should return approved budgets unchanged", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		b := draftWithItems()
		b.Status = Approved
		setCatalogComplexity(analysisId, "4")

		// when
		projected, err := Project(context.Background(), b, catalogStub)

		// then
		require.NoError(t, err)
		assert.Equal(t, b, projected)
	})

	t.Run("should fail when the catalog cannot be read", func(t *testing.T) {
		// when
		_, err := Project(context.Background(), draftWithItems(), unavailableCatalog{})

		// then
		assert.Error(t, err)
	})

	t.Run("should yield identical totals when run twice", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		setCatalogComplexity(codingId, "0.3333")

		// when
		first, err := Project(context.Background(), draftWithItems(), catalogStub)
		require.NoError(t, err)
		second, err := Project(context.Background(), first, catalogStub)
		require.NoError(t, err)

		// then
		assert.Equal(t, first.GrossTotal.String(), second.GrossTotal.String())
		assert.Equal(t, first.NetTotal.String(), second.NetTotal.String())
		assert.Empty(t, changedItems(first, second))
		assert.False(t, totalsChanged(first, second))
	})
}

func TestChangedItems(t *testing.T) {
	before := draftWithItems()
	after := before.clone()
	after.Items[1].ComplexitySnapshot = dec("0.75")
	after.Items[1].SubtotalUst = dec("1.5")
	after.Items[1].SubtotalGross = dec("15")
	after.recomputeTotals()

	changed := changedItems(before, after)

	require.Len(t, changed, 1)
	assert.Equal(t, 2, changed[0].Id)
	assert.True(t, totalsChanged(before, after))
	assertDecimal(t, "10", before.Items[1].SubtotalGross)
}
