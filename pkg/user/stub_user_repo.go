package user

import (
	"context"
)

type StubUserRepository struct {
	nextId int
	data   map[int]User
}

func NewStubUserRepository() *StubUserRepository {
	nextId := 2
	data := map[int]User{}
	return &StubUserRepository{nextId: nextId, data: data}
}

func (s *StubUserRepository) CreateUser(ctx context.Context, user User) (int, error) {
	for _, existing := range s.data {
		if existing.Username == user.Username {
			return 0, ErrUsernameTaken
		}
	}
	s.nextId++
	user.Id = s.nextId
	s.data[s.nextId] = user
	return s.nextId, nil
}

func (s *StubUserRepository) GetUser(ctx context.Context, id int) (User, error) {
	user, ok := s.data[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (s *StubUserRepository) GetUserByUsername(ctx context.Context, username string) (User, error) {
	for _, user := range s.data {
		if user.Username == username {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (s *StubUserRepository) SetAdmin(ctx context.Context, id int, admin bool) error {
	user, ok := s.data[id]
	if !ok {
		return ErrUserNotFound
	}
	user.Admin = admin
	s.data[id] = user
	return nil
}

func (s *StubUserRepository) HasAdmin(ctx context.Context) (bool, error) {
	for _, user := range s.data {
		if user.Admin {
			return true, nil
		}
	}
	return false, nil
}

func (s *StubUserRepository) Cleanup() {
	s.data = map[int]User{}
}
