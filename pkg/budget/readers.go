package budget

import (
	"context"

	"github.com/orcaust/orcaust/pkg/catalog"
	"github.com/orcaust/orcaust/pkg/contract"
	"github.com/orcaust/orcaust/pkg/project"
)

// ActivityReader resolves catalog nodes referenced by budget items.
type ActivityReader interface {
	Get(ctx context.Context, id int) (catalog.Node, error)
}

type ContractReader interface {
	Get(ctx context.Context, id int) (contract.Contract, error)
}

type ProjectReader interface {
	Get(ctx context.Context, id int) (project.Project, error)
}
