package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/orcaust/orcaust/internal/apperror"
	"github.com/orcaust/orcaust/internal/database"
	"github.com/orcaust/orcaust/internal/utils"
	"github.com/orcaust/orcaust/pkg/pricing"
	"github.com/orcaust/orcaust/pkg/user"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var ErrNodeNotFound = apperror.New(apperror.NotFound, "catalog node not found")
var ErrNodeHasChildren = apperror.New(apperror.ResourceInUse, "catalog node has children and cannot be deleted")

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

type Service interface {
	Create(ctx context.Context, node Node) (Node, error)
	Get(ctx context.Context, id int) (Node, error)
	List(ctx context.Context, filter Filter, offset, limit int) ([]Node, error)
	Update(ctx context.Context, node Node) (Node, error)
	Delete(ctx context.Context, id int) error
}

type ServiceImpl struct {
	repo       Repository
	transactor database.Transactor
}

func NewService(repo Repository, transactor database.Transactor) *ServiceImpl {
	return &ServiceImpl{repo: repo, transactor: transactor}
}

func (s *ServiceImpl) Create(ctx context.Context, node Node) (Node, error) {
	if _, err := user.CurrentAdmin(ctx); err != nil {
		return Node{}, err
	}
	node.Complexity = normalizeComplexity(node.Complexity)

	var created Node
	err := s.transactor.WithTransaction(ctx, func(ctx context.Context) error {
		parent, err := s.resolveParent(ctx, node.ParentId)
		if err != nil {
			return err
		}
		if err := ValidateHierarchy(node, parent); err != nil {
			return err
		}
		created, err = s.repo.Create(ctx, node)
		return err
	})
	if err != nil {
		return Node{}, err
	}
	log.Debugf("catalog node %d (%s) created", created.Id, created.Type)
	return created, nil
}

func (s *ServiceImpl) Get(ctx context.Context, id int) (Node, error) {
	if _, err := user.CurrentUser(ctx); err != nil {
		return Node{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *ServiceImpl) List(ctx context.Context, filter Filter, offset, limit int) ([]Node, error) {
	if _, err := user.CurrentUser(ctx); err != nil {
		return nil, err
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, ErrUnknownType
	}
	page, err := utils.NormalizePage(offset, limit, defaultPageSize, maxPageSize)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, filter, page)
}

// Update changes name, parent and complexity. The type of a node is fixed at creation.
func (s *ServiceImpl) Update(ctx context.Context, node Node) (Node, error) {
	if _, err := user.CurrentAdmin(ctx); err != nil {
		return Node{}, err
	}
	node.Complexity = normalizeComplexity(node.Complexity)

	var updated Node
	err := s.transactor.WithTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.Get(ctx, node.Id)
		if err != nil {
			return err
		}
		if node.Type != "" && node.Type != existing.Type {
			return ErrTypeChange
		}
		node.Type = existing.Type
		if node.ParentId != nil && *node.ParentId == node.Id {
			return apperror.New(apperror.InvalidHierarchy, "catalog node cannot be its own parent")
		}

		parent, err := s.resolveParent(ctx, node.ParentId)
		if err != nil {
			return err
		}
		if err := ValidateHierarchy(node, parent); err != nil {
			return err
		}
		updated, err = s.repo.Update(ctx, node)
		return err
	})
	if err != nil {
		return Node{}, err
	}
	return updated, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, id int) error {
	if _, err := user.CurrentAdmin(ctx); err != nil {
		return err
	}
	return s.transactor.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.Get(ctx, id); err != nil {
			return err
		}
		hasChildren, err := s.repo.HasChildren(ctx, id)
		if err != nil {
			return err
		}
		if hasChildren {
			return ErrNodeHasChildren
		}
		return s.repo.Delete(ctx, id)
	})
}

// resolveParent loads the parent node. A dangling parent id yields nil so the hierarchy check
// reports it.
func (s *ServiceImpl) resolveParent(ctx context.Context, parentId *int) (*Node, error) {
	if parentId == nil {
		return nil, nil
	}
	parent, err := s.repo.Get(ctx, *parentId)
	if errors.Is(err, ErrNodeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load parent node: %w", err)
	}
	return &parent, nil
}

func normalizeComplexity(c decimal.NullDecimal) decimal.NullDecimal {
	if !c.Valid {
		return c
	}
	c.Decimal = pricing.Round(c.Decimal)
	return c
}
