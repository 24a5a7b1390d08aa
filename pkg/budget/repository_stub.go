package budget

import (
	"context"
	"sort"

	"github.com/orcaust/orcaust/internal/utils"
)

type RepositoryStub struct {
	nextBudgetId int
	nextItemId   int
	budgets      map[int]Budget
	counters     map[int]int
}

func NewStubRepository() *RepositoryStub {
	return &RepositoryStub{budgets: map[int]Budget{}, counters: map[int]int{}}
}

func (s *RepositoryStub) NextSequence(ctx context.Context, contractId int) (int, error) {
	s.counters[contractId]++
	return s.counters[contractId], nil
}

func (s *RepositoryStub) Create(ctx context.Context, budget Budget) (Budget, error) {
	for _, existing := range s.budgets {
		if existing.Number == budget.Number {
			return Budget{}, ErrDuplicateNumber
		}
	}
	s.nextBudgetId++
	budget.Id = s.nextBudgetId
	budget.Items = s.assignItemIds(budget.Id, budget.Items)
	s.budgets[budget.Id] = budget.clone()
	return budget, nil
}

func (s *RepositoryStub) Get(ctx context.Context, id int) (Budget, error) {
	budget, ok := s.budgets[id]
	if !ok {
		return Budget{}, ErrBudgetNotFound
	}
	return budget.clone(), nil
}

func (s *RepositoryStub) GetForUpdate(ctx context.Context, id int) (Budget, error) {
	return s.Get(ctx, id)
}

func (s *RepositoryStub) List(ctx context.Context, filter Filter, page utils.Page) ([]Budget, error) {
	budgets := make([]Budget, 0, len(s.budgets))
	for _, budget := range s.budgets {
		if filter.ContractId > 0 && budget.ContractId != filter.ContractId {
			continue
		}
		if filter.ProjectId > 0 && budget.ProjectId != filter.ProjectId {
			continue
		}
		if filter.Status != "" && budget.Status != filter.Status {
			continue
		}
		budgets = append(budgets, budget.clone())
	}
	sort.Slice(budgets, func(i, j int) bool { return budgets[i].Id < budgets[j].Id })
	if page.Offset >= len(budgets) {
		return []Budget{}, nil
	}
	return budgets[page.Offset:min(page.Offset+page.Limit, len(budgets))], nil
}

func (s *RepositoryStub) Update(ctx context.Context, budget Budget) error {
	stored, ok := s.budgets[budget.Id]
	if !ok {
		return ErrBudgetNotFound
	}
	budget.Number = stored.Number
	budget.IssueDate = stored.IssueDate
	budget.Items = stored.Items
	s.budgets[budget.Id] = budget
	return nil
}

func (s *RepositoryStub) ReplaceItems(ctx context.Context, budgetId int, items []Item) ([]Item, error) {
	stored, ok := s.budgets[budgetId]
	if !ok {
		return nil, ErrBudgetNotFound
	}
	stored.Items = s.assignItemIds(budgetId, items)
	s.budgets[budgetId] = stored.clone()
	return stored.Items, nil
}

func (s *RepositoryStub) AddItem(ctx context.Context, item Item) (Item, error) {
	stored, ok := s.budgets[item.BudgetId]
	if !ok {
		return Item{}, ErrBudgetNotFound
	}
	s.nextItemId++
	item.Id = s.nextItemId
	stored.Items = append(stored.clone().Items, item)
	s.budgets[item.BudgetId] = stored
	return item, nil
}

func (s *RepositoryStub) UpdateItem(ctx context.Context, item Item) error {
	stored, ok := s.budgets[item.BudgetId]
	if !ok {
		return ErrItemNotFound
	}
	stored = stored.clone()
	i := stored.itemIndex(item.Id)
	if i < 0 {
		return ErrItemNotFound
	}
	stored.Items[i].HoursEstimated = item.HoursEstimated
	stored.Items[i].ComplexitySnapshot = item.ComplexitySnapshot
	stored.Items[i].SubtotalUst = item.SubtotalUst
	stored.Items[i].SubtotalGross = item.SubtotalGross
	s.budgets[item.BudgetId] = stored
	return nil
}

func (s *RepositoryStub) DeleteItem(ctx context.Context, budgetId, itemId int) error {
	stored, ok := s.budgets[budgetId]
	if !ok {
		return ErrItemNotFound
	}
	i := stored.itemIndex(itemId)
	if i < 0 {
		return ErrItemNotFound
	}
	items := make([]Item, 0, len(stored.Items)-1)
	items = append(items, stored.Items[:i]...)
	items = append(items, stored.Items[i+1:]...)
	stored.Items = items
	s.budgets[budgetId] = stored
	return nil
}

func (s *RepositoryStub) Delete(ctx context.Context, id int) error {
	if _, ok := s.budgets[id]; !ok {
		return ErrBudgetNotFound
	}
	delete(s.budgets, id)
	return nil
}

func (s *RepositoryStub) assignItemIds(budgetId int, items []Item) []Item {
	stored := make([]Item, len(items))
	for i, item := range items {
		s.nextItemId++
		item.Id = s.nextItemId
		item.BudgetId = budgetId
		stored[i] = item
	}
	return stored
}

func (s *RepositoryStub) Cleanup() {
	s.nextBudgetId = 0
	s.nextItemId = 0
	s.budgets = map[int]Budget{}
	s.counters = map[int]int{}
}
