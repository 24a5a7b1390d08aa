package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orcaust/orcaust/internal/database"
	"github.com/orcaust/orcaust/internal/utils"
	log "github.com/sirupsen/logrus"
)

// Repository has no update or delete on purpose: records are immutable once written.
type Repository interface {
	Append(ctx context.Context, record Record) (Record, error)
	ListByBudget(ctx context.Context, budgetId int, page utils.Page) ([]Record, error)
	ListByItem(ctx context.Context, itemId int, page utils.Page) ([]Record, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const recordColumns = "id, change_kind, budget_id, item_id, actor_id, previous_value, new_value, changed_at, reason"

func (r *RepositoryImpl) Append(ctx context.Context, record Record) (Record, error) {
	query := `INSERT INTO audit_record (change_kind, budget_id, item_id, actor_id, previous_value, new_value, changed_at, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := database.Conn(ctx, r.db).QueryRow(ctx, query,
		record.Kind,
		record.BudgetId,
		record.ItemId,
		record.ActorId,
		record.PreviousValue,
		record.NewValue,
		FormatTimestamp(record.ChangedAt),
		nullString(record.Reason),
	).Scan(&record.Id)
	if err != nil {
		err := fmt.Errorf("could not append audit record: %w", err)
		log.Error(err)
		return Record{}, err
	}
	return record, nil
}

func (r *RepositoryImpl) ListByBudget(ctx context.Context, budgetId int, page utils.Page) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM audit_record WHERE budget_id = $1 ORDER BY id DESC LIMIT $2 OFFSET $3`
	return r.list(ctx, query, budgetId, page)
}

func (r *RepositoryImpl) ListByItem(ctx context.Context, itemId int, page utils.Page) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM audit_record WHERE item_id = $1 ORDER BY id DESC LIMIT $2 OFFSET $3`
	return r.list(ctx, query, itemId, page)
}

func (r *RepositoryImpl) list(ctx context.Context, query string, id int, page utils.Page) ([]Record, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx, query, id, page.Limit, page.Offset)
	if err != nil {
		err := fmt.Errorf("could not list audit records: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			log.Error(err)
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not list audit records: %w", err)
	}
	return records, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var record Record
	var changedAt string
	var reason *string
	err := row.Scan(
		&record.Id,
		&record.Kind,
		&record.BudgetId,
		&record.ItemId,
		&record.ActorId,
		&record.PreviousValue,
		&record.NewValue,
		&changedAt,
		&reason,
	)
	if err != nil {
		return Record{}, fmt.Errorf("could not scan audit record: %w", err)
	}
	record.ChangedAt, err = ParseTimestamp(changedAt)
	if err != nil {
		return Record{}, fmt.Errorf("audit record %d has malformed timestamp %q: %w", record.Id, changedAt, err)
	}
	if reason != nil {
		record.Reason = *reason
	}
	return record, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
