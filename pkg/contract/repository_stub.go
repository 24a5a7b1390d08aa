package contract

import (
	"context"
)

type RepositoryStub struct {
	nextId    int
	contracts map[int]Contract
}

func NewStubRepository() *RepositoryStub {
	return &RepositoryStub{contracts: map[int]Contract{}}
}

func (s *RepositoryStub) Create(ctx context.Context, contract Contract) (Contract, error) {
	for _, existing := range s.contracts {
		if existing.Number == contract.Number {
			return Contract{}, ErrDuplicateNumber
		}
	}
	if contract.Status == "" {
		contract.Status = Active
	}
	s.nextId++
	contract.Id = s.nextId
	s.contracts[contract.Id] = contract
	return contract, nil
}

func (s *RepositoryStub) Get(ctx context.Context, id int) (Contract, error) {
	contract, ok := s.contracts[id]
	if !ok {
		return Contract{}, ErrContractNotFound
	}
	return contract, nil
}

// Put replaces a stored contract, e.g. to change its price after budgets were created.
func (s *RepositoryStub) Put(contract Contract) {
	s.contracts[contract.Id] = contract
}

func (s *RepositoryStub) Cleanup() {
	s.nextId = 0
	s.contracts = map[int]Contract{}
}
