package project

import (
	"context"
)

type RepositoryStub struct {
	nextId   int
	projects map[int]Project
}

func NewStubRepository() *RepositoryStub {
	return &RepositoryStub{projects: map[int]Project{}}
}

func (s *RepositoryStub) Create(ctx context.Context, project Project) (Project, error) {
	for _, existing := range s.projects {
		if existing.Code == project.Code {
			return Project{}, ErrDuplicateCode
		}
	}
	s.nextId++
	project.Id = s.nextId
	s.projects[project.Id] = project
	return project, nil
}

func (s *RepositoryStub) Get(ctx context.Context, id int) (Project, error) {
	project, ok := s.projects[id]
	if !ok {
		return Project{}, ErrProjectNotFound
	}
	return project, nil
}

func (s *RepositoryStub) Cleanup() {
	s.nextId = 0
	s.projects = map[int]Project{}
}
