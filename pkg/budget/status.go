package budget

import (
	"strings"

	"github.com/orcaust/orcaust/internal/apperror"
)

// Status is the approval state of a budget. Approved is terminal.
type Status string

const (
	Draft    Status = "DRAFT"
	Approved Status = "APPROVED"
)

var (
	ErrBudgetImmutable = apperror.New(apperror.ImmutableResource, "approved budgets cannot be changed")
	ErrAlreadyApproved = apperror.New(apperror.AlreadyApproved, "budget is already approved")
	ErrUnknownStatus   = apperror.New(apperror.Validation, "unknown budget status")
)

var transitions = map[Status][]Status{
	Draft:    {Approved},
	Approved: {},
}

func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := transitions[status]; !ok {
		return "", ErrUnknownStatus
	}
	return status, nil
}

func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// EnsureMutable gates every change to a budget's items, totals or discount.
func EnsureMutable(status Status) error {
	if status != Draft {
		return ErrBudgetImmutable
	}
	return nil
}

// Approve returns the state after approval.
func Approve(status Status) (Status, error) {
	if status == Approved {
		return status, ErrAlreadyApproved
	}
	if !CanTransition(status, Approved) {
		return status, ErrUnknownStatus
	}
	return Approved, nil
}
