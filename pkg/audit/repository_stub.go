package audit

import (
	"context"

	"github.com/orcaust/orcaust/internal/utils"
)

type RepositoryStub struct {
	nextId  int
	records []Record
}

func NewStubRepository() *RepositoryStub {
	return &RepositoryStub{}
}

func (s *RepositoryStub) Append(ctx context.Context, record Record) (Record, error) {
	s.nextId++
	record.Id = s.nextId
	s.records = append(s.records, record)
	return record, nil
}

func (s *RepositoryStub) ListByBudget(ctx context.Context, budgetId int, page utils.Page) ([]Record, error) {
	return s.newestFirst(page, func(r Record) bool { return r.BudgetId == budgetId }), nil
}

func (s *RepositoryStub) ListByItem(ctx context.Context, itemId int, page utils.Page) ([]Record, error) {
	return s.newestFirst(page, func(r Record) bool { return r.ItemId != nil && *r.ItemId == itemId }), nil
}

func (s *RepositoryStub) newestFirst(page utils.Page, match func(Record) bool) []Record {
	matched := make([]Record, 0)
	for i := len(s.records) - 1; i >= 0; i-- {
		if match(s.records[i]) {
			matched = append(matched, s.records[i])
		}
	}
	if page.Offset >= len(matched) {
		return []Record{}
	}
	return matched[page.Offset:min(page.Offset+page.Limit, len(matched))]
}

// All returns every record in insertion order.
func (s *RepositoryStub) All() []Record {
	return s.records
}

func (s *RepositoryStub) Cleanup() {
	s.nextId = 0
	s.records = nil
}
