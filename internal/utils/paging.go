package utils

import (
	"fmt"

	"github.com/orcaust/orcaust/internal/apperror"
)

// Page is an offset/limit window over a list.
type Page struct {
	Offset int
	Limit  int
}

// NormalizePage applies def when limit is zero and rejects out of range values.
func NormalizePage(offset, limit, def, max int) (Page, error) {
	if offset < 0 {
		return Page{}, apperror.Validationf("offset must not be negative")
	}
	if limit == 0 {
		limit = def
	}
	if limit < 1 || limit > max {
		return Page{}, apperror.Validationf(fmt.Sprintf("limit must be between 1 and %d", max))
	}
	return Page{Offset: offset, Limit: limit}, nil
}
