package catalog

import (
	"github.com/shopspring/decimal"
)

// Type is the tier of a catalog node: CYCLE > PHASE > ACTIVITY.
type Type string

const (
	Cycle    Type = "CYCLE"
	Phase    Type = "PHASE"
	Activity Type = "ACTIVITY"
)

func (t Type) Valid() bool {
	switch t {
	case Cycle, Phase, Activity:
		return true
	}
	return false
}

// Node is a single entry of the catalog. Nodes are stored flat and refer to their parent by id.
type Node struct {
	Id       int
	Name     string
	Type     Type
	ParentId *int
	// Complexity is set only for activities.
	Complexity decimal.NullDecimal
}

func (n Node) IsActivity() bool {
	return n.Type == Activity
}

type Filter struct {
	Type     Type
	ParentId *int
}
