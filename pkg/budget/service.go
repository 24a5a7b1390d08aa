package budget

import (
	"context"
	"errors"
	"fmt"

	"github.com/orcaust/orcaust/internal/apperror"
	"github.com/orcaust/orcaust/internal/database"
	"github.com/orcaust/orcaust/internal/event_bus"
	"github.com/orcaust/orcaust/internal/utils"
	"github.com/orcaust/orcaust/pkg/audit"
	"github.com/orcaust/orcaust/pkg/catalog"
	"github.com/orcaust/orcaust/pkg/contract"
	"github.com/orcaust/orcaust/pkg/pricing"
	"github.com/orcaust/orcaust/pkg/project"
	"github.com/orcaust/orcaust/pkg/user"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var (
	ErrBudgetNotFound   = apperror.New(apperror.NotFound, "budget not found")
	ErrItemNotFound     = apperror.New(apperror.NotFound, "budget item not found")
	ErrActivityNotFound = apperror.New(apperror.NotFound, "activity not found")
	ErrNotAnActivity    = apperror.New(apperror.Validation, "budget items must reference an ACTIVITY catalog node")
	ErrDuplicateNumber  = apperror.New(apperror.Conflict, "budget number already exists")
	ErrVersionMismatch  = apperror.New(apperror.Conflict, "budget was changed by someone else")
	ErrLastItem         = apperror.New(apperror.MinimumItems, "a budget must keep at least one item")
	ErrNoBillableHours  = apperror.New(apperror.EmptyOrZeroHours, "at least one item must have hours greater than zero")
	ErrInvalidContract  = apperror.New(apperror.InvalidContract, "contract does not exist, is inactive or has no unit price")
	ErrInvalidProject   = apperror.New(apperror.InvalidProject, "project does not exist")
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000

	replaceReason = "budget replaced"
)

type Service interface {
	Create(ctx context.Context, request Request) (Budget, error)
	// Replace rewrites a Draft budget. expectedVersion, when not nil, must match the stored version.
	Replace(ctx context.Context, id int, request Request, expectedVersion *Version) (Budget, error)
	AddItem(ctx context.Context, budgetId int, input ItemInput) (Budget, error)
	RemoveItem(ctx context.Context, budgetId, itemId int) (Budget, error)
	UpdateItemHours(ctx context.Context, budgetId, itemId int, hours decimal.Decimal, reason string) (Budget, error)
	UpdateDiscount(ctx context.Context, budgetId int, discountPercent decimal.Decimal, reason string) (Budget, error)
	Approve(ctx context.Context, budgetId int) (Budget, error)
	Delete(ctx context.Context, budgetId int) error
	// Get returns the budget; Draft budgets are re-priced against the current catalog.
	// With refresh the re-priced values are also stored.
	Get(ctx context.Context, budgetId int, refresh bool) (Budget, error)
	List(ctx context.Context, filter Filter, offset, limit int) ([]Budget, error)
	Refresh(ctx context.Context, budgetId int) (Budget, error)
}

type ServiceImpl struct {
	repo          Repository
	contracts     ContractReader
	projects      ProjectReader
	activities    ActivityReader
	audit         audit.Logger
	transactor    database.Transactor
	eventBus      *event_bus.EventBus
	clock         utils.Clock
	refreshOnRead bool
}

func NewService(
	repo Repository,
	contracts ContractReader,
	projects ProjectReader,
	activities ActivityReader,
	auditLogger audit.Logger,
	transactor database.Transactor,
	eventBus *event_bus.EventBus,
	clock utils.Clock,
	refreshOnRead bool,
) *ServiceImpl {
	return &ServiceImpl{
		repo:          repo,
		contracts:     contracts,
		projects:      projects,
		activities:    activities,
		audit:         auditLogger,
		transactor:    transactor,
		eventBus:      eventBus,
		clock:         clock,
		refreshOnRead: refreshOnRead,
	}
}

func (s *ServiceImpl) Create(ctx context.Context, request Request) (Budget, error) {
	if _, err := user.CurrentUser(ctx); err != nil {
		return Budget{}, err
	}
	discount, err := normalizeDiscount(request.DiscountPercent)
	if err != nil {
		return Budget{}, err
	}

	var created Budget
	err = s.transactor.WithTransaction(ctx, func(ctx context.Context) error {
		c, err := s.billableContract(ctx, request.ContractId)
		if err != nil {
			return err
		}
		if err := s.ensureProject(ctx, request.ProjectId); err != nil {
			return err
		}
		items, err := s.priceItems(ctx, request.Items, c.UnitPrice.Decimal)
		if err != nil {
			return err
		}

		sequence, err := s.repo.NextSequence(ctx, c.Id)
		if err != nil {
			return err
		}
		issueDate := utils.Today(s.clock)
		budget := Budget{
			Number:          FormatNumber(issueDate.Year(), c.Id, sequence),
			ProjectId:       request.ProjectId,
			ContractId:      c.Id,
			Status:          Draft,
			Version:         InitialVersion,
			DiscountPercent: discount,
			IssueDate:       issueDate,
			Notes:           request.Notes,
			Items:           items,
		}
		budget.recomputeTotals()

		created, err = s.repo.Create(ctx, budget)
		return err
	})
	if err != nil {
		return Budget{}, err
	}

	log.Debugf("budget %s created with %d items", created.Number, len(created.Items))
	s.publish(ctx, event_bus.BudgetCreatedEvent, event_bus.BudgetCreated{
		Id:         created.Id,
		Number:     created.Number,
		ContractId: created.ContractId,
		ItemCount:  len(created.Items),
		NetTotal:   pricing.Format(created.NetTotal),
	})
	return created, nil
}

func (s *ServiceImpl) Replace(ctx context.Context, id int, request Request, expectedVersion *Version) (Budget, error) {
	actor, err := user.CurrentUser(ctx)
	if err != nil {
		return Budget{}, err
	}
	discount, err := normalizeDiscount(request.DiscountPercent)
	if err != nil {
		return Budget{}, err
	}

	var replaced Budget
	var recorded []string
	err = s.transactor.WithTransaction(ctx, func(ctx context.Context) error {
		budget, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := EnsureMutable(budget.Status); err != nil {
			return err
		}
		if expectedVersion != nil && *expectedVersion != budget.Version {
			return ErrVersionMismatch
		}

		c, err := s.billableContract(ctx, request.ContractId)
		if err != nil {
			return err
		}
		if err := s.ensureProject(ctx, request.ProjectId); err != nil {
			return err
		}
		items, err := s.priceItems(ctx, request.Items, c.UnitPrice.Decimal)
		if err != nil {
			return err
		}

		if !discount.Equal(budget.DiscountPercent) {
			if err := s.appendAudit(ctx, audit.DiscountChanged, budget.Id, nil, actor, budget.DiscountPercent, discount, replaceReason); err != nil {
				return err
			}
			recorded = append(recorded, string(audit.DiscountChanged))
		}
		// Only items present on both sides, matched by activity, leave an hours trace.
		previous := make(map[int]Item, len(budget.Items))
		for _, item := range budget.Items {
			previous[item.ActivityId] = item
		}
		for _, item := range items {
			old, ok := previous[item.ActivityId]
			if !ok || old.HoursEstimated.Equal(item.HoursEstimated) {
				continue
			}
			oldId := old.Id
			if err := s.appendAudit(ctx, audit.HoursChanged, budget.Id, &oldId, actor, old.HoursEstimated, item.HoursEstimated, replaceReason); err != nil {
				return err
			}
			recorded = append(recorded, string(audit.HoursChanged))
		}

		stored, err := s.repo.ReplaceItems(ctx, budget.Id, items)
		if err != nil {
			return err
		}
		budget.ContractId = c.Id
		budget.ProjectId = request.ProjectId
		budget.DiscountPercent = discount
		budget.Notes = request.Notes
		budget.Version = budget.Version.Next()
		budget.Items = stored
		budget.recomputeTotals()
		if err := s.repo.Update(ctx, budget); err != nil {
			return err
		}
		replaced = budget
		return nil
	})
	if err != nil {
		return Budget{}, err
	}

	s.publishChanged(ctx, replaced, "replace", recorded)
	return replaced, nil
}

func (s *ServiceImpl) AddItem(ctx context.Context, budgetId int, input ItemInput) (Budget, error) {
	if _, err := user.CurrentUser(ctx); err != nil {
		return Budget{}, err
	}
	hours, err := normalizeHours(input.Hours)
	if err != nil {
		return Budget{}, err
	}

	var updated Budget
	err = s.transactor.WithTransaction(ctx, func(ctx context.Context) error {
		budget, err := s.repo.GetForUpdate(ctx, budgetId)
		if err != nil {
			return err
		}
		if err := EnsureMutable(budget.Status); err != nil {
			return err
		}
		complexity, err := s.activityComplexity(ctx, input.ActivityId)
		if err != nil {
			return err
		}
		c, err := s.billableContract(ctx, budget.ContractId)
		if err != nil {
			return err
		}

		subtotal, err := pricing.Calculate(hours, complexity, c.UnitPrice.Decimal)
		if err != nil {
			return err
		}
		item, err := s.repo.AddItem(ctx, Item{
			BudgetId:           budget.Id,
			ActivityId:         input.ActivityId,
			HoursEstimated:     hours,
			ComplexitySnapshot: complexity,
			UnitPriceSnapshot:  c.UnitPrice.Decimal,
			Sequence:           budget.nextSequence(),
			SubtotalUst:        subtotal.Ust,
			SubtotalGross:      subtotal.Gross,
			Notes:              input.Notes,
		})
		if err != nil {
			return err
		}
		budget.Items = append(budget.Items, item)
		budget.applyGrossDelta(item.SubtotalGross)
		if err := s.repo.Update(ctx, budget); err != nil {
			return err
		}
		updated = budget
		return nil
	})
	if err != nil {
		return Budget{}, err
	}

	s.publishChanged(ctx, updated, "add_item", nil)
	return updated, nil
}

func (s *ServiceImpl) RemoveItem(ctx context.Context, budgetId, itemId int) (Budget, error) {
	if _, err := user.CurrentUser(ctx); err != nil {
		return Budget{}, err
	}

	var updated Budget
	err := s.transactor.WithTransaction(ctx, func(ctx context.Context) error {
		budget, err := s.repo.GetForUpdate(ctx, budgetId)
		if err != nil {
			return err
		}
		if err := EnsureMutable(budget.Status); err != nil {
			return err
		}
		i := budget.itemIndex(itemId)
		if i < 0 {
			return ErrItemNotFound
		}
		if len(budget.Items) == 1 {
			return ErrLastItem
		}

		removed := budget.Items[i]
		if !hasBillableHours(budget.Items, removed.Id) {
			return ErrNoBillableHours
		}
		if err := s.repo.DeleteItem(ctx, budget.Id, removed.Id); err != nil {
			return err
		}
		budget.Items = append(budget.Items[:i], budget.Items[i+1:]...)
		budget.applyGrossDelta(removed.SubtotalGross.Neg())
		if err := s.repo.Update(ctx, budget); err != nil {
			return err
		}
		updated = budget
		return nil
	})
	if err != nil {
		return Budget{}, err
	}

	s.publishChanged(ctx, updated, "remove_item", nil)
	return updated, nil
}

func (s *ServiceImpl) UpdateItemHours(ctx context.Context, budgetId, itemId int, hours decimal.Decimal, reason string) (Budget, error) {
	actor, err := user.CurrentUser(ctx)
	if err != nil {
		return Budget{}, err
	}
	hours, err = normalizeHours(hours)
	if err != nil {
		return Budget{}, err
	}

	var updated Budget
	err = s.transactor.WithTransaction(ctx, func(ctx context.Context) error {
		budget, err := s.repo.GetForUpdate(ctx, budgetId)
		if err != nil {
			return err
		}
		if err := EnsureMutable(budget.Status); err != nil {
			return err
		}
		i := budget.itemIndex(itemId)
		if i < 0 {
			return ErrItemNotFound
		}
		item := budget.Items[i]
		if hours.IsZero() && !hasBillableHours(budget.Items, item.Id) {
			return ErrNoBillableHours
		}
		complexity, err := s.activityComplexity(ctx, item.ActivityId)
		if err != nil {
			return err
		}

		// The frozen unit price is kept; the complexity follows the catalog.
		subtotal, err := pricing.Calculate(hours, complexity, item.UnitPriceSnapshot)
		if err != nil {
			return err
		}
		previousHours := item.HoursEstimated
		delta := subtotal.Gross.Sub(item.SubtotalGross)
		item.HoursEstimated = hours
		item.ComplexitySnapshot = complexity
		item.SubtotalUst = subtotal.Ust
		item.SubtotalGross = subtotal.Gross
		if err := s.repo.UpdateItem(ctx, item); err != nil {
			return err
		}
		budget.Items[i] = item
		budget.applyGrossDelta(delta)
		if err := s.repo.Update(ctx, budget); err != nil {
			return err
		}
		if err := s.appendAudit(ctx, audit.HoursChanged, budget.Id, &item.Id, actor, previousHours, hours, reason); err != nil {
			return err
		}
		updated = budget
		return nil
	})
	if err != nil {
		return Budget{}, err
	}

	s.publishChanged(ctx, updated, "update_item_hours", []string{string(audit.HoursChanged)})
	return updated, nil
}

func (s *ServiceImpl) UpdateDiscount(ctx context.Context, budgetId int, discountPercent decimal.Decimal, reason string) (Budget, error) {
	actor, err := user.CurrentAdmin(ctx)
	if err != nil {
		return Budget{}, err
	}
	discount, err := normalizeDiscount(discountPercent)
	if err != nil {
		return Budget{}, err
	}

	var updated Budget
	err = s.transactor.WithTransaction(ctx, func(ctx context.Context) error {
		budget, err := s.repo.GetForUpdate(ctx, budgetId)
		if err != nil {
			return err
		}
		if err := EnsureMutable(budget.Status); err != nil {
			return err
		}
		previous := budget.DiscountPercent
		budget.DiscountPercent = discount
		budget.NetTotal = pricing.NetTotal(budget.GrossTotal, discount)
		if err := s.repo.Update(ctx, budget); err != nil {
			return err
		}
		if err := s.appendAudit(ctx, audit.DiscountChanged, budget.Id, nil, actor, previous, discount, reason); err != nil {
			return err
		}
		updated = budget
		return nil
	})
	if err != nil {
		return Budget{}, err
	}

	s.publishChanged(ctx, updated, "update_discount", []string{string(audit.DiscountChanged)})
	return updated, nil
}

// Approve freezes the budget with whatever totals it currently holds.
func (s *ServiceImpl) Approve(ctx context.Context, budgetId int) (Budget, error) {
	if _, err := user.CurrentAdmin(ctx); err != nil {
		return Budget{}, err
	}

	var approved Budget
	err := s.transactor.WithTransaction(ctx, func(ctx context.Context) error {
		budget, err := s.repo.GetForUpdate(ctx, budgetId)
		if err != nil {
			return err
		}
		status, err := Approve(budget.Status)
		if err != nil {
			return err
		}
		budget.Status = status
		if err := s.repo.Update(ctx, budget); err != nil {
			return err
		}
		approved = budget
		return nil
	})
	if err != nil {
		return Budget{}, err
	}

	log.Infof("budget %s approved", approved.Number)
	s.publish(ctx, event_bus.BudgetApprovedEvent, event_bus.BudgetApproved{
		Id:       approved.Id,
		Number:   approved.Number,
		NetTotal: pricing.Format(approved.NetTotal),
	})
	return approved, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, budgetId int) error {
	if _, err := user.CurrentAdmin(ctx); err != nil {
		return err
	}

	var deleted Budget
	err := s.transactor.WithTransaction(ctx, func(ctx context.Context) error {
		budget, err := s.repo.GetForUpdate(ctx, budgetId)
		if err != nil {
			return err
		}
		if err := EnsureMutable(budget.Status); err != nil {
			return err
		}
		deleted = budget
		return s.repo.Delete(ctx, budget.Id)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, event_bus.BudgetDeletedEvent, event_bus.BudgetDeleted{Id: deleted.Id, Number: deleted.Number})
	return nil
}

func (s *ServiceImpl) Get(ctx context.Context, budgetId int, refresh bool) (Budget, error) {
	if _, err := user.CurrentUser(ctx); err != nil {
		return Budget{}, err
	}
	if refresh || s.refreshOnRead {
		return s.refresh(ctx, budgetId)
	}

	budget, err := s.repo.Get(ctx, budgetId)
	if err != nil {
		return Budget{}, err
	}
	return Project(ctx, budget, s.activities)
}

// List re-prices each Draft budget on its own. A budget that fails to re-price is returned with
// its stored values.
func (s *ServiceImpl) List(ctx context.Context, filter Filter, offset, limit int) ([]Budget, error) {
	if _, err := user.CurrentUser(ctx); err != nil {
		return nil, err
	}
	page, err := utils.NormalizePage(offset, limit, defaultPageSize, maxPageSize)
	if err != nil {
		return nil, err
	}
	budgets, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, err
	}

	for i, budget := range budgets {
		if budget.Status != Draft {
			continue
		}
		var recalculated Budget
		if s.refreshOnRead {
			recalculated, err = s.refresh(ctx, budget.Id)
		} else {
			recalculated, err = Project(ctx, budget, s.activities)
		}
		if err != nil {
			log.Warnf("failed to recalculate budget %d, returning stored values: %v", budget.Id, err)
			continue
		}
		budgets[i] = recalculated
	}
	return budgets, nil
}

func (s *ServiceImpl) Refresh(ctx context.Context, budgetId int) (Budget, error) {
	if _, err := user.CurrentUser(ctx); err != nil {
		return Budget{}, err
	}
	return s.refresh(ctx, budgetId)
}

// refresh re-prices a Draft budget and stores the result.
func (s *ServiceImpl) refresh(ctx context.Context, budgetId int) (Budget, error) {
	var refreshed Budget
	persisted := false
	err := s.transactor.WithTransaction(ctx, func(ctx context.Context) error {
		budget, err := s.repo.GetForUpdate(ctx, budgetId)
		if err != nil {
			return err
		}
		projected, err := Project(ctx, budget, s.activities)
		if err != nil {
			return err
		}
		refreshed = projected
		if budget.Status != Draft {
			return nil
		}

		for _, item := range changedItems(budget, projected) {
			if err := s.repo.UpdateItem(ctx, item); err != nil {
				return err
			}
			persisted = true
		}
		if totalsChanged(budget, projected) {
			if err := s.repo.Update(ctx, projected); err != nil {
				return err
			}
			persisted = true
		}
		return nil
	})
	if err != nil {
		return Budget{}, err
	}
	if persisted {
		s.publish(ctx, event_bus.BudgetRefreshedEvent, event_bus.BudgetRefreshed{Id: refreshed.Id, Persisted: true})
	}
	return refreshed, nil
}

// billableContract loads a contract budgets can be priced against.
func (s *ServiceImpl) billableContract(ctx context.Context, contractId int) (contract.Contract, error) {
	c, err := s.contracts.Get(ctx, contractId)
	if errors.Is(err, contract.ErrContractNotFound) {
		return contract.Contract{}, ErrInvalidContract
	}
	if err != nil {
		return contract.Contract{}, err
	}
	if !c.Billable() {
		return contract.Contract{}, ErrInvalidContract
	}
	return c, nil
}

func (s *ServiceImpl) ensureProject(ctx context.Context, projectId int) error {
	_, err := s.projects.Get(ctx, projectId)
	if errors.Is(err, project.ErrProjectNotFound) {
		return ErrInvalidProject
	}
	return err
}

func (s *ServiceImpl) activityComplexity(ctx context.Context, activityId int) (decimal.Decimal, error) {
	node, err := s.activities.Get(ctx, activityId)
	if errors.Is(err, catalog.ErrNodeNotFound) {
		return decimal.Zero, fmt.Errorf("activity %d: %w", activityId, ErrActivityNotFound)
	}
	if err != nil {
		return decimal.Zero, err
	}
	if !node.IsActivity() || !node.Complexity.Valid {
		return decimal.Zero, ErrNotAnActivity
	}
	return node.Complexity.Decimal, nil
}

// priceItems validates the requested items and prices them at unitPrice, in request order.
func (s *ServiceImpl) priceItems(ctx context.Context, inputs []ItemInput, unitPrice decimal.Decimal) ([]Item, error) {
	if len(inputs) == 0 {
		return nil, ErrNoBillableHours
	}
	items := make([]Item, 0, len(inputs))
	hasHours := false
	for i, input := range inputs {
		hours, err := normalizeHours(input.Hours)
		if err != nil {
			return nil, err
		}
		if hours.IsPositive() {
			hasHours = true
		}
		complexity, err := s.activityComplexity(ctx, input.ActivityId)
		if err != nil {
			return nil, err
		}
		subtotal, err := pricing.Calculate(hours, complexity, unitPrice)
		if err != nil {
			return nil, err
		}
		items = append(items, Item{
			ActivityId:         input.ActivityId,
			HoursEstimated:     hours,
			ComplexitySnapshot: complexity,
			UnitPriceSnapshot:  unitPrice,
			Sequence:           i + 1,
			SubtotalUst:        subtotal.Ust,
			SubtotalGross:      subtotal.Gross,
			Notes:              input.Notes,
		})
	}
	if !hasHours {
		return nil, ErrNoBillableHours
	}
	return items, nil
}

func (s *ServiceImpl) appendAudit(ctx context.Context, kind audit.ChangeKind, budgetId int, itemId *int,
	actor user.User, previous, next decimal.Decimal, reason string) error {
	actorId := actor.Id
	_, err := s.audit.Append(ctx, audit.Entry{
		Kind:          kind,
		BudgetId:      budgetId,
		ItemId:        itemId,
		ActorId:       &actorId,
		PreviousValue: previous,
		NewValue:      next,
		Reason:        reason,
	})
	return err
}

// publish runs after the transaction committed; subscriber failures never undo the change.
func (s *ServiceImpl) publish(ctx context.Context, eventType event_bus.EventType, data any) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(event_bus.NewEvent(ctx, eventType, data)); err != nil {
		log.Errorf("failed to publish %s: %v", eventType, err)
	}
}

func (s *ServiceImpl) publishChanged(ctx context.Context, budget Budget, operation string, auditKinds []string) {
	s.publish(ctx, event_bus.BudgetChangedEvent, event_bus.BudgetChanged{
		Id:           budget.Id,
		Operation:    operation,
		Version:      budget.Version.String(),
		AuditRecords: auditKinds,
	})
}

// hasBillableHours reports whether an item other than exceptId has hours above zero.
func hasBillableHours(items []Item, exceptId int) bool {
	for _, item := range items {
		if item.Id != exceptId && item.HoursEstimated.IsPositive() {
			return true
		}
	}
	return false
}

func normalizeHours(hours decimal.Decimal) (decimal.Decimal, error) {
	if err := pricing.ValidateHours(hours); err != nil {
		return decimal.Zero, err
	}
	return pricing.Round(hours), nil
}

func normalizeDiscount(discount decimal.Decimal) (decimal.Decimal, error) {
	if err := pricing.ValidateDiscount(discount); err != nil {
		return decimal.Zero, err
	}
	return pricing.Round(discount), nil
}
