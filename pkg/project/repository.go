package project

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

var ErrProjectNotFound = apperror.New(apperror.NotFound, "project not found")
var ErrDuplicateCode = apperror.New(apperror.Conflict, "project code already exists")

type Repository interface {
	Create(ctx context.Context, project Project) (Project, error)
	Get(ctx context.Context, id int) (Project, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Create(ctx context.Context, project Project) (Project, error) {
	if project.Status == "" {
		project.Status = "active"
	}
	query := `INSERT INTO project (name, code, client_id, contract_id, status) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := database.Conn(ctx, r.db).QueryRow(ctx, query,
		project.Name, project.Code, project.ClientId, project.ContractId, project.Status,
	).Scan(&project.Id)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return Project{}, ErrDuplicateCode
		}
		err := fmt.Errorf("could not create project: %w", err)
		log.Error(err)
		return Project{}, err
	}
	return project, nil
}

func (r *RepositoryImpl) Get(ctx context.Context, id int) (Project, error) {
	query := `SELECT id, name, code, client_id, contract_id, status FROM project WHERE id = $1`
	var p Project
	err := database.Conn(ctx, r.db).QueryRow(ctx, query, id).
		Scan(&p.Id, &p.Name, &p.Code, &p.ClientId, &p.ContractId, &p.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return Project{}, ErrProjectNotFound
	}
	if err != nil {
		err := fmt.Errorf("could not get project %d: %w", id, err)
		log.Error(err)
		return Project{}, err
	}
	return p, nil
}
