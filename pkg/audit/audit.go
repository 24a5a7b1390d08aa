package audit

import (
	"time"

	"github.com/shopspring/decimal"
)

type ChangeKind string

const (
	HoursChanged    ChangeKind = "HOURS_CHANGED"
	DiscountChanged ChangeKind = "DISCOUNT_CHANGED"
)

// Record is an append-only trace of a change to item hours or budget discount.
type Record struct {
	Id            int
	Kind          ChangeKind
	BudgetId      int
	ItemId        *int
	ActorId       *int
	PreviousValue decimal.Decimal
	NewValue      decimal.Decimal
	ChangedAt     time.Time
	Reason        string
}

// Entry is what callers provide; the logger stamps the time.
type Entry struct {
	Kind          ChangeKind
	BudgetId      int
	ItemId        *int
	ActorId       *int
	PreviousValue decimal.Decimal
	NewValue      decimal.Decimal
	Reason        string
}

// FormatTimestamp renders t the way it is persisted: RFC 3339 in UTC with nanoseconds.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
