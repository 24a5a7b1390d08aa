package budget

import (
	"context"
	"errors"
	"fmt"

	"github.com/orcaust/orcaust/pkg/catalog"
	"github.com/orcaust/orcaust/pkg/pricing"
	log "github.com/sirupsen/logrus"
)

// Project returns b re-priced against the current catalog without persisting anything.
// Each item takes the current complexity of its activity and keeps its frozen unit price.
// Items whose activity is gone keep their last subtotal. Approved budgets are returned unchanged.
func Project(ctx context.Context, b Budget, activities ActivityReader) (Budget, error) {
	if b.Status != Draft {
		return b, nil
	}
	projected := b.clone()
	for i, item := range projected.Items {
		activity, err := activities.Get(ctx, item.ActivityId)
		if errors.Is(err, catalog.ErrNodeNotFound) {
			log.Debugf("activity %d of budget %d no longer exists, keeping item %d subtotal", item.ActivityId, b.Id, item.Id)
			continue
		}
		if err != nil {
			return b, fmt.Errorf("failed to resolve activity %d: %w", item.ActivityId, err)
		}
		if !activity.IsActivity() || !activity.Complexity.Valid {
			log.Warnf("catalog node %d is no longer a priced activity, keeping item %d subtotal", activity.Id, item.Id)
			continue
		}

		subtotal, err := pricing.Calculate(item.HoursEstimated, activity.Complexity.Decimal, item.UnitPriceSnapshot)
		if err != nil {
			return b, fmt.Errorf("failed to price item %d: %w", item.Id, err)
		}
		projected.Items[i].ComplexitySnapshot = activity.Complexity.Decimal
		projected.Items[i].SubtotalUst = subtotal.Ust
		projected.Items[i].SubtotalGross = subtotal.Gross
	}
	projected.recomputeTotals()
	return projected, nil
}

// changedItems lists the items of after that differ from their counterpart in before.
func changedItems(before, after Budget) []Item {
	previous := make(map[int]Item, len(before.Items))
	for _, item := range before.Items {
		previous[item.Id] = item
	}
	changed := make([]Item, 0)
	for _, item := range after.Items {
		old, ok := previous[item.Id]
		if !ok ||
			!old.ComplexitySnapshot.Equal(item.ComplexitySnapshot) ||
			!old.SubtotalUst.Equal(item.SubtotalUst) ||
			!old.SubtotalGross.Equal(item.SubtotalGross) {
			changed = append(changed, item)
		}
	}
	return changed
}

func totalsChanged(before, after Budget) bool {
	return !before.GrossTotal.Equal(after.GrossTotal) || !before.NetTotal.Equal(after.NetTotal)
}
