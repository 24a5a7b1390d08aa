package contract

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	Active   Status = "active"
	Inactive Status = "inactive"
)

type Contract struct {
	Id       int
	Number   string
	ClientId int
	// UnitPrice is the monetary value of one UST.
	UnitPrice decimal.NullDecimal
	StartDate *time.Time
	EndDate   *time.Time
	Status    Status
}

// Billable reports whether budgets may be priced against the contract.
func (c Contract) Billable() bool {
	return c.Status == Active && c.UnitPrice.Valid
}
