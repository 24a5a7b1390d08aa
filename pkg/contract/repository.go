package contract

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orcaust/orcaust/internal/apperror"
	"github.com/orcaust/orcaust/internal/database"
	log "github.com/sirupsen/logrus"
)

var ErrContractNotFound = apperror.New(apperror.NotFound, "contract not found")
var ErrDuplicateNumber = apperror.New(apperror.Conflict, "contract number already exists")

type Repository interface {
	Create(ctx context.Context, contract Contract) (Contract, error)
	Get(ctx context.Context, id int) (Contract, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Create(ctx context.Context, contract Contract) (Contract, error) {
	if contract.Status == "" {
		contract.Status = Active
	}
	query := `INSERT INTO contract (number, client_id, unit_price, start_date, end_date, status)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := database.Conn(ctx, r.db).QueryRow(ctx, query,
		contract.Number,
		contract.ClientId,
		contract.UnitPrice,
		contract.StartDate,
		contract.EndDate,
		contract.Status,
	).Scan(&contract.Id)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return Contract{}, ErrDuplicateNumber
		}
		err := fmt.Errorf("could not create contract: %w", err)
		log.Error(err)
		return Contract{}, err
	}
	return contract, nil
}

func (r *RepositoryImpl) Get(ctx context.Context, id int) (Contract, error) {
	query := `SELECT id, number, client_id, unit_price, start_date, end_date, status FROM contract WHERE id = $1`
	var c Contract
	err := database.Conn(ctx, r.db).QueryRow(ctx, query, id).
		Scan(&c.Id, &c.Number, &c.ClientId, &c.UnitPrice, &c.StartDate, &c.EndDate, &c.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contract{}, ErrContractNotFound
	}
	if err != nil {
		err := fmt.Errorf("could not get contract %d: %w", id, err)
		log.Error(err)
		return Contract{}, err
	}
	return c, nil
}
