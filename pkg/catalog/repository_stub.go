package catalog

import (
	"context"
	"sort"

	"github.com/orcaust/orcaust/internal/utils"
)

type RepositoryStub struct {
	nextId int
	nodes  map[int]Node
}

func NewStubRepository() *RepositoryStub {
	return &RepositoryStub{nodes: map[int]Node{}}
}

func (s *RepositoryStub) Create(ctx context.Context, node Node) (Node, error) {
	s.nextId++
	node.Id = s.nextId
	s.nodes[node.Id] = node
	return node, nil
}

func (s *RepositoryStub) Get(ctx context.Context, id int) (Node, error) {
	node, ok := s.nodes[id]
	if !ok {
		return Node{}, ErrNodeNotFound
	}
	return node, nil
}

func (s *RepositoryStub) List(ctx context.Context, filter Filter, page utils.Page) ([]Node, error) {
	nodes := make([]Node, 0, len(s.nodes))
	for _, node := range s.nodes {
		if filter.Type != "" && node.Type != filter.Type {
			continue
		}
		if filter.ParentId != nil && (node.ParentId == nil || *node.ParentId != *filter.ParentId) {
			continue
		}
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Id < nodes[j].Id })
	if page.Offset >= len(nodes) {
		return []Node{}, nil
	}
	end := min(page.Offset+page.Limit, len(nodes))
	return nodes[page.Offset:end], nil
}

func (s *RepositoryStub) Update(ctx context.Context, node Node) (Node, error) {
	if _, ok := s.nodes[node.Id]; !ok {
		return Node{}, ErrNodeNotFound
	}
	s.nodes[node.Id] = node
	return node, nil
}

func (s *RepositoryStub) Delete(ctx context.Context, id int) error {
	if _, ok := s.nodes[id]; !ok {
		return ErrNodeNotFound
	}
	delete(s.nodes, id)
	return nil
}

func (s *RepositoryStub) HasChildren(ctx context.Context, id int) (bool, error) {
	for _, node := range s.nodes {
		if node.ParentId != nil && *node.ParentId == id {
			return true, nil
		}
	}
	return false, nil
}

// Put stores node as is, for tests that need to change the catalog behind the service's back.
func (s *RepositoryStub) Put(node Node) {
	s.nodes[node.Id] = node
	if node.Id > s.nextId {
		s.nextId = node.Id
	}
}

func (s *RepositoryStub) Remove(id int) {
	delete(s.nodes, id)
}

func (s *RepositoryStub) Cleanup() {
	s.nextId = 0
	s.nodes = map[int]Node{}
}
