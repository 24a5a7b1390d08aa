package catalog

import (
	"fmt"

	"github.com/orcaust/orcaust/internal/apperror"
)

var (
	ErrUnknownType        = apperror.New(apperror.Validation, "unknown catalog node type")
	ErrEmptyName          = apperror.New(apperror.Validation, "catalog node name is required")
	ErrMissingComplexity  = apperror.New(apperror.Validation, "activity complexity is required")
	ErrNegativeComplexity = apperror.New(apperror.Validation, "complexity must not be negative")
	ErrTypeChange         = apperror.New(apperror.Validation, "catalog node type cannot be changed")
)

type rule struct {
	parent     Type
	complexity bool
}

// hierarchy maps each type to the type its parent must have ("" means no parent) and whether it
// carries a complexity.
var hierarchy = map[Type]rule{
	Cycle:    {parent: "", complexity: false},
	Phase:    {parent: Cycle, complexity: false},
	Activity: {parent: Phase, complexity: true},
}

// ValidateHierarchy checks node against the three-tier rules. parent is the resolved parent node,
// nil when node has no parent id.
func ValidateHierarchy(node Node, parent *Node) error {
	if node.Name == "" {
		return ErrEmptyName
	}
	r, ok := hierarchy[node.Type]
	if !ok {
		return ErrUnknownType
	}

	switch {
	case r.parent == "" && node.ParentId != nil:
		return apperror.New(apperror.InvalidHierarchy, fmt.Sprintf("%s must not have a parent", node.Type))
	case r.parent != "" && node.ParentId == nil:
		return apperror.New(apperror.InvalidHierarchy, fmt.Sprintf("%s requires a %s parent", node.Type, r.parent))
	case r.parent != "" && parent == nil:
		return apperror.New(apperror.InvalidHierarchy, fmt.Sprintf("parent %d does not exist", *node.ParentId))
	case r.parent != "" && parent.Type != r.parent:
		return apperror.New(apperror.InvalidHierarchy,
			fmt.Sprintf("%s parent must be a %s, got %s", node.Type, r.parent, parent.Type))
	}

	if !r.complexity {
		if node.Complexity.Valid {
			return apperror.New(apperror.InvalidHierarchy, fmt.Sprintf("%s must not carry a complexity", node.Type))
		}
		return nil
	}
	if !node.Complexity.Valid {
		return ErrMissingComplexity
	}
	if node.Complexity.Decimal.IsNegative() {
		return ErrNegativeComplexity
	}
	return nil
}
