package memory

import (
	"context"
	"strings"
	"sync"

	"lgcms/internal/models"
	"lgcms/internal/repository"
)

type UserStore struct {
	mu          sync.RWMutex
	users       map[string]models.User
	departments map[string]models.Department
}

func NewUserStore() *UserStore {
	return &UserStore{
		users:       make(map[string]models.User),
		departments: make(map[string]models.Department),
	}
}

func (s *UserStore) AddDepartment(d models.Department) {
	s.mu.Lock()
	s.departments[d.ID] = d
	s.mu.Unlock()
}

func (s *UserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return repository.ErrDuplicate
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) || (user.Username != "" && u.Username == user.Username) {
			return repository.ErrDuplicate
		}
	}
	user.Email = strings.ToLower(user.Email)
	s.users[user.ID] = user
	return nil
}

func (s *UserStore) GetByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (s *UserStore) FindByIdentifier(_ context.Context, identifier string) (models.User, error) {
	identifier = strings.TrimSpace(identifier)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, identifier) || u.Username == identifier {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (s *UserStore) UpdatePasswordHash(_ context.Context, id string, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = hash
	s.users[id] = u
	return nil
}

func (s *UserStore) CountByRole(context.Context) (map[models.Role]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[models.Role]int, 3)
	for _, u := range s.users {
		counts[u.Role]++
	}
	return counts, nil
}

func (s *UserStore) DepartmentExists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.departments[id]
	return ok, nil
}
