package budget

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orcaust/orcaust/internal/database"
	"github.com/orcaust/orcaust/internal/utils"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	// NextSequence returns the next budget sequence of a contract. Values are never reused.
	NextSequence(ctx context.Context, contractId int) (int, error)
	Create(ctx context.Context, budget Budget) (Budget, error)
	Get(ctx context.Context, id int) (Budget, error)
	// GetForUpdate loads the budget and locks its row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int) (Budget, error)
	List(ctx context.Context, filter Filter, page utils.Page) ([]Budget, error)
	// Update stores the budget header: references, status, version, discount, totals and notes.
	Update(ctx context.Context, budget Budget) error
	ReplaceItems(ctx context.Context, budgetId int, items []Item) ([]Item, error)
	AddItem(ctx context.Context, item Item) (Item, error)
	// UpdateItem stores hours, complexity snapshot and subtotals of an item.
	UpdateItem(ctx context.Context, item Item) error
	DeleteItem(ctx context.Context, budgetId, itemId int) error
	Delete(ctx context.Context, id int) error
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const budgetColumns = `id, number, project_id, contract_id, status, version_major, version_minor,
	discount_percent, gross_total, net_total, issue_date, notes`

const itemColumns = `id, budget_id, activity_id, hours_estimated, complexity_snapshot, unit_price_snapshot,
	sequence, subtotal_ust, subtotal_gross, notes`

func (r *RepositoryImpl) NextSequence(ctx context.Context, contractId int) (int, error) {
	query := `INSERT INTO budget_number_counter (contract_id, last_value) VALUES ($1, 1)
		ON CONFLICT (contract_id) DO UPDATE SET last_value = budget_number_counter.last_value + 1
		RETURNING last_value`
	var sequence int
	if err := database.Conn(ctx, r.db).QueryRow(ctx, query, contractId).Scan(&sequence); err != nil {
		err := fmt.Errorf("could not reserve budget sequence for contract %d: %w", contractId, err)
		log.Error(err)
		return 0, err
	}
	return sequence, nil
}

func (r *RepositoryImpl) Create(ctx context.Context, budget Budget) (Budget, error) {
	conn := database.Conn(ctx, r.db)
	query := `INSERT INTO budget (number, project_id, contract_id, status, version_major, version_minor,
			discount_percent, gross_total, net_total, issue_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	err := conn.QueryRow(ctx, query,
		budget.Number,
		budget.ProjectId,
		budget.ContractId,
		budget.Status,
		budget.Version.Major,
		budget.Version.Minor,
		budget.DiscountPercent,
		budget.GrossTotal,
		budget.NetTotal,
		budget.IssueDate,
		nullString(budget.Notes),
	).Scan(&budget.Id)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return Budget{}, ErrDuplicateNumber
		}
		err := fmt.Errorf("could not create budget: %w", err)
		log.Error(err)
		return Budget{}, err
	}

	items, err := r.insertItems(ctx, conn, budget.Id, budget.Items)
	if err != nil {
		return Budget{}, err
	}
	budget.Items = items
	return budget, nil
}

func (r *RepositoryImpl) Get(ctx context.Context, id int) (Budget, error) {
	return r.get(ctx, `SELECT `+budgetColumns+` FROM budget WHERE id = $1`, id)
}

func (r *RepositoryImpl) GetForUpdate(ctx context.Context, id int) (Budget, error) {
	return r.get(ctx, `SELECT `+budgetColumns+` FROM budget WHERE id = $1 FOR UPDATE`, id)
}

func (r *RepositoryImpl) get(ctx context.Context, query string, id int) (Budget, error) {
	conn := database.Conn(ctx, r.db)
	budget, err := scanBudget(conn.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Budget{}, ErrBudgetNotFound
	}
	if err != nil {
		err := fmt.Errorf("could not get budget %d: %w", id, err)
		log.Error(err)
		return Budget{}, err
	}
	items, err := r.loadItems(ctx, conn, []int{id})
	if err != nil {
		return Budget{}, err
	}
	budget.Items = items[id]
	return budget, nil
}

func (r *RepositoryImpl) List(ctx context.Context, filter Filter, page utils.Page) ([]Budget, error) {
	var conditions []string
	var args []any
	if filter.ContractId > 0 {
		args = append(args, filter.ContractId)
		conditions = append(conditions, fmt.Sprintf("contract_id = $%d", len(args)))
	}
	if filter.ProjectId > 0 {
		args = append(args, filter.ProjectId)
		conditions = append(conditions, fmt.Sprintf("project_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	query := `SELECT ` + budgetColumns + ` FROM budget`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, page.Limit, page.Offset)
	query += fmt.Sprintf(" ORDER BY id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	conn := database.Conn(ctx, r.db)
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not list budgets: %w", err)
		log.Error(err)
		return nil, err
	}
	budgets := make([]Budget, 0)
	for rows.Next() {
		budget, err := scanBudget(rows)
		if err != nil {
			rows.Close()
			err := fmt.Errorf("could not scan budget: %w", err)
			log.Error(err)
			return nil, err
		}
		budgets = append(budgets, budget)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not list budgets: %w", err)
	}
	if len(budgets) == 0 {
		return budgets, nil
	}

	ids := make([]int, 0, len(budgets))
	for _, budget := range budgets {
		ids = append(ids, budget.Id)
	}
	items, err := r.loadItems(ctx, conn, ids)
	if err != nil {
		return nil, err
	}
	for i := range budgets {
		budgets[i].Items = items[budgets[i].Id]
	}
	return budgets, nil
}

func (r *RepositoryImpl) Update(ctx context.Context, budget Budget) error {
	query := `UPDATE budget SET project_id = $1, contract_id = $2, status = $3, version_major = $4,
			version_minor = $5, discount_percent = $6, gross_total = $7, net_total = $8, notes = $9
		WHERE id = $10`
	result, err := database.Conn(ctx, r.db).Exec(ctx, query,
		budget.ProjectId,
		budget.ContractId,
		budget.Status,
		budget.Version.Major,
		budget.Version.Minor,
		budget.DiscountPercent,
		budget.GrossTotal,
		budget.NetTotal,
		nullString(budget.Notes),
		budget.Id,
	)
	if err != nil {
		err := fmt.Errorf("could not update budget %d: %w", budget.Id, err)
		log.Error(err)
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrBudgetNotFound
	}
	return nil
}

func (r *RepositoryImpl) ReplaceItems(ctx context.Context, budgetId int, items []Item) ([]Item, error) {
	conn := database.Conn(ctx, r.db)
	if _, err := conn.Exec(ctx, `DELETE FROM budget_item WHERE budget_id = $1`, budgetId); err != nil {
		err := fmt.Errorf("could not delete items of budget %d: %w", budgetId, err)
		log.Error(err)
		return nil, err
	}
	return r.insertItems(ctx, conn, budgetId, items)
}

func (r *RepositoryImpl) AddItem(ctx context.Context, item Item) (Item, error) {
	items, err := r.insertItems(ctx, database.Conn(ctx, r.db), item.BudgetId, []Item{item})
	if err != nil {
		return Item{}, err
	}
	return items[0], nil
}

func (r *RepositoryImpl) UpdateItem(ctx context.Context, item Item) error {
	query := `UPDATE budget_item SET hours_estimated = $1, complexity_snapshot = $2, subtotal_ust = $3,
			subtotal_gross = $4
		WHERE id = $5 AND budget_id = $6`
	result, err := database.Conn(ctx, r.db).Exec(ctx, query,
		item.HoursEstimated,
		item.ComplexitySnapshot,
		item.SubtotalUst,
		item.SubtotalGross,
		item.Id,
		item.BudgetId,
	)
	if err != nil {
		err := fmt.Errorf("could not update budget item %d: %w", item.Id, err)
		log.Error(err)
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *RepositoryImpl) DeleteItem(ctx context.Context, budgetId, itemId int) error {
	result, err := database.Conn(ctx, r.db).Exec(ctx, `DELETE FROM budget_item WHERE id = $1 AND budget_id = $2`, itemId, budgetId)
	if err != nil {
		err := fmt.Errorf("could not delete budget item %d: %w", itemId, err)
		log.Error(err)
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// Delete removes the budget and, through the foreign key, its items. Audit records stay.
func (r *RepositoryImpl) Delete(ctx context.Context, id int) error {
	result, err := database.Conn(ctx, r.db).Exec(ctx, `DELETE FROM budget WHERE id = $1`, id)
	if err != nil {
		err := fmt.Errorf("could not delete budget %d: %w", id, err)
		log.Error(err)
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrBudgetNotFound
	}
	return nil
}

func (r *RepositoryImpl) insertItems(ctx context.Context, conn database.Querier, budgetId int, items []Item) ([]Item, error) {
	query := `INSERT INTO budget_item (budget_id, activity_id, hours_estimated, complexity_snapshot,
			unit_price_snapshot, sequence, subtotal_ust, subtotal_gross, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	if len(items) == 0 {
		return []Item{}, nil
	}
	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query,
			budgetId,
			item.ActivityId,
			item.HoursEstimated,
			item.ComplexitySnapshot,
			item.UnitPriceSnapshot,
			item.Sequence,
			item.SubtotalUst,
			item.SubtotalGross,
			nullString(item.Notes),
		)
	}
	results := conn.SendBatch(ctx, batch)

	stored := make([]Item, len(items))
	for i, item := range items {
		item.BudgetId = budgetId
		if err := results.QueryRow().Scan(&item.Id); err != nil {
			_ = results.Close()
			err := fmt.Errorf("could not insert item %d of budget %d: %w", item.Sequence, budgetId, err)
			log.Error(err)
			return nil, err
		}
		stored[i] = item
	}
	if err := results.Close(); err != nil {
		return nil, fmt.Errorf("could not insert items of budget %d: %w", budgetId, err)
	}
	return stored, nil
}

func (r *RepositoryImpl) loadItems(ctx context.Context, conn database.Querier, budgetIds []int) (map[int][]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM budget_item WHERE budget_id = ANY($1) ORDER BY budget_id, sequence`
	rows, err := conn.Query(ctx, query, budgetIds)
	if err != nil {
		err := fmt.Errorf("could not load budget items: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	items := make(map[int][]Item, len(budgetIds))
	for rows.Next() {
		var item Item
		var notes *string
		err := rows.Scan(
			&item.Id,
			&item.BudgetId,
			&item.ActivityId,
			&item.HoursEstimated,
			&item.ComplexitySnapshot,
			&item.UnitPriceSnapshot,
			&item.Sequence,
			&item.SubtotalUst,
			&item.SubtotalGross,
			&notes,
		)
		if err != nil {
			err := fmt.Errorf("could not scan budget item: %w", err)
			log.Error(err)
			return nil, err
		}
		if notes != nil {
			item.Notes = *notes
		}
		items[item.BudgetId] = append(items[item.BudgetId], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not load budget items: %w", err)
	}
	return items, nil
}

func scanBudget(row pgx.Row) (Budget, error) {
	var budget Budget
	var notes *string
	err := row.Scan(
		&budget.Id,
		&budget.Number,
		&budget.ProjectId,
		&budget.ContractId,
		&budget.Status,
		&budget.Version.Major,
		&budget.Version.Minor,
		&budget.DiscountPercent,
		&budget.GrossTotal,
		&budget.NetTotal,
		&budget.IssueDate,
		&notes,
	)
	if err != nil {
		return Budget{}, err
	}
	if notes != nil {
		budget.Notes = *notes
	}
	return budget, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
