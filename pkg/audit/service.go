package audit

import (
	"context"
	"fmt"

	"github.com/orcaust/orcaust/internal/apperror"
	"github.com/orcaust/orcaust/internal/utils"
	"github.com/orcaust/orcaust/pkg/pricing"
	"github.com/orcaust/orcaust/pkg/user"
	log "github.com/sirupsen/logrus"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

var ErrUnknownKind = apperror.New(apperror.Validation, "unknown audit change kind")

// Logger appends records. Budget operations call it inside their own transaction.
type Logger interface {
	Append(ctx context.Context, entry Entry) (Record, error)
}

type Service interface {
	Logger
	ListByBudget(ctx context.Context, budgetId, offset, limit int) ([]Record, error)
	ListByItem(ctx context.Context, itemId, offset, limit int) ([]Record, error)
}

type ServiceImpl struct {
	repo  Repository
	clock utils.Clock
}

func NewService(repo Repository, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{repo: repo, clock: clock}
}

func (s *ServiceImpl) Append(ctx context.Context, entry Entry) (Record, error) {
	if entry.Kind != HoursChanged && entry.Kind != DiscountChanged {
		return Record{}, ErrUnknownKind
	}
	record := Record{
		Kind:          entry.Kind,
		BudgetId:      entry.BudgetId,
		ItemId:        entry.ItemId,
		ActorId:       entry.ActorId,
		PreviousValue: pricing.Round(entry.PreviousValue),
		NewValue:      pricing.Round(entry.NewValue),
		ChangedAt:     s.clock.Now().UTC(),
		Reason:        entry.Reason,
	}
	appended, err := s.repo.Append(ctx, record)
	if err != nil {
		return Record{}, fmt.Errorf("failed to append %s audit record for budget %d: %w", entry.Kind, entry.BudgetId, err)
	}
	log.Debugf("audit %s on budget %d: %s -> %s", appended.Kind, appended.BudgetId,
		pricing.Format(appended.PreviousValue), pricing.Format(appended.NewValue))
	return appended, nil
}

func (s *ServiceImpl) ListByBudget(ctx context.Context, budgetId, offset, limit int) ([]Record, error) {
	if _, err := user.CurrentUser(ctx); err != nil {
		return nil, err
	}
	page, err := utils.NormalizePage(offset, limit, defaultPageSize, maxPageSize)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByBudget(ctx, budgetId, page)
}

func (s *ServiceImpl) ListByItem(ctx context.Context, itemId, offset, limit int) ([]Record, error) {
	if _, err := user.CurrentUser(ctx); err != nil {
		return nil, err
	}
	page, err := utils.NormalizePage(offset, limit, defaultPageSize, maxPageSize)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByItem(ctx, itemId, page)
}
