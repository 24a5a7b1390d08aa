package budget

import (
	"time"

	"github.com/orcaust/orcaust/pkg/pricing"
	"github.com/shopspring/decimal"
)

type Budget struct {
	Id              int
	Number          string
	ProjectId       int
	ContractId      int
	Status          Status
	Version         Version
	DiscountPercent decimal.Decimal
	GrossTotal      decimal.Decimal
	NetTotal        decimal.Decimal
	IssueDate       time.Time
	Notes           string
	Items           []Item
}

// Item is one priced activity of a budget. UnitPriceSnapshot is copied from the contract when the
// item is created and never changes afterwards; ComplexitySnapshot follows the catalog on refresh.
type Item struct {
	Id                 int
	BudgetId           int
	ActivityId         int
	HoursEstimated     decimal.Decimal
	ComplexitySnapshot decimal.Decimal
	UnitPriceSnapshot  decimal.Decimal
	Sequence           int
	SubtotalUst        decimal.Decimal
	SubtotalGross      decimal.Decimal
	Notes              string
}

type ItemInput struct {
	ActivityId int
	Hours      decimal.Decimal
	Notes      string
}

// Request carries the caller supplied fields of Create and Replace.
type Request struct {
	ContractId      int
	ProjectId       int
	DiscountPercent decimal.Decimal
	Notes           string
	Items           []ItemInput
}

type Filter struct {
	ContractId int
	ProjectId  int
	Status     Status
}

// recomputeTotals derives gross from the item subtotals and net from gross and discount.
func (b *Budget) recomputeTotals() {
	gross := decimal.Zero
	for _, item := range b.Items {
		gross = gross.Add(item.SubtotalGross)
	}
	b.GrossTotal = pricing.Round(gross)
	b.NetTotal = pricing.NetTotal(b.GrossTotal, b.DiscountPercent)
}

// applyGrossDelta moves gross by delta and re-derives net, without touching the items.
func (b *Budget) applyGrossDelta(delta decimal.Decimal) {
	b.GrossTotal = pricing.Round(b.GrossTotal.Add(delta))
	b.NetTotal = pricing.NetTotal(b.GrossTotal, b.DiscountPercent)
}

func (b *Budget) itemIndex(itemId int) int {
	for i, item := range b.Items {
		if item.Id == itemId {
			return i
		}
	}
	return -1
}

func (b *Budget) nextSequence() int {
	next := 1
	for _, item := range b.Items {
		if item.Sequence >= next {
			next = item.Sequence + 1
		}
	}
	return next
}

// clone returns a copy that shares no item storage with b.
func (b Budget) clone() Budget {
	items := make([]Item, len(b.Items))
	copy(items, b.Items)
	b.Items = items
	return b
}
