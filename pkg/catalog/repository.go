package catalog

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
	Create(ctx context.Context, node Node) (Node, error)
	Get(ctx context.Context, id int) (Node, error)
	List(ctx context.Context, filter Filter, page utils.Page) ([]Node, error)
	Update(ctx context.Context, node Node) (Node, error)
	Delete(ctx context.Context, id int) error
	HasChildren(ctx context.Context, id int) (bool, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const nodeColumns = "id, name, type, parent_id, complexity"

func (r *RepositoryImpl) Create(ctx context.Context, node Node) (Node, error) {
	query := `INSERT INTO catalog_node (name, type, parent_id, complexity) VALUES ($1, $2, $3, $4) RETURNING id`
	err := database.Conn(ctx, r.db).QueryRow(ctx, query, node.Name, node.Type, node.ParentId, node.Complexity).Scan(&node.Id)
	if err != nil {
		err := fmt.Errorf("could not create catalog node: %w", err)
		log.Error(err)
		return Node{}, err
	}
	return node, nil
}

func (r *RepositoryImpl) Get(ctx context.Context, id int) (Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM catalog_node WHERE id = $1`
	node, err := scanNode(database.Conn(ctx, r.db).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Node{}, ErrNodeNotFound
	}
	if err != nil {
		err := fmt.Errorf("could not get catalog node %d: %w", id, err)
		log.Error(err)
		return Node{}, err
	}
	return node, nil
}

func (r *RepositoryImpl) List(ctx context.Context, filter Filter, page utils.Page) ([]Node, error) {
	var conditions []string
	var args []any
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.ParentId != nil {
		args = append(args, *filter.ParentId)
		conditions = append(conditions, fmt.Sprintf("parent_id = $%d", len(args)))
	}
	query := `SELECT ` + nodeColumns + ` FROM catalog_node`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, page.Limit, page.Offset)
	query += fmt.Sprintf(" ORDER BY id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := database.Conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not list catalog nodes: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	nodes := make([]Node, 0)
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			err := fmt.Errorf("could not scan catalog node: %w", err)
			log.Error(err)
			return nil, err
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not list catalog nodes: %w", err)
	}
	return nodes, nil
}

func (r *RepositoryImpl) Update(ctx context.Context, node Node) (Node, error) {
	query := `UPDATE catalog_node SET name = $1, parent_id = $2, complexity = $3 WHERE id = $4`
	result, err := database.Conn(ctx, r.db).Exec(ctx, query, node.Name, node.ParentId, node.Complexity, node.Id)
	if err != nil {
		err := fmt.Errorf("could not update catalog node %d: %w", node.Id, err)
		log.Error(err)
		return Node{}, err
	}
	if result.RowsAffected() == 0 {
		return Node{}, ErrNodeNotFound
	}
	return node, nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, id int) error {
	result, err := database.Conn(ctx, r.db).Exec(ctx, `DELETE FROM catalog_node WHERE id = $1`, id)
	if err != nil {
		err := fmt.Errorf("could not delete catalog node %d: %w", id, err)
		log.Error(err)
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNodeNotFound
	}
	return nil
}

func (r *RepositoryImpl) HasChildren(ctx context.Context, id int) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM catalog_node WHERE parent_id = $1)`
	if err := database.Conn(ctx, r.db).QueryRow(ctx, query, id).Scan(&exists); err != nil {
		err := fmt.Errorf("could not check children of catalog node %d: %w", id, err)
		log.Error(err)
		return false, err
	}
	return exists, nil
}

func scanNode(row pgx.Row) (Node, error) {
	var node Node
	err := row.Scan(&node.Id, &node.Name, &node.Type, &node.ParentId, &node.Complexity)
	return node, err
}
