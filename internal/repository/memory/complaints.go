// Package memory provides in-process stores with the same contract as the
// postgres repositories. They back tests and the single-node dev mode.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"lgcms/internal/models"
	"lgcms/internal/repository"
)

type ComplaintStore struct {
	mu    sync.RWMutex
	items map[string]models.Complaint
	fault error
}

func NewComplaintStore() *ComplaintStore {
	return &ComplaintStore{items: make(map[string]models.Complaint)}
}

// FailWith makes every call return err until called again with nil.
func (s *ComplaintStore) FailWith(err error) {
	s.mu.Lock()
	s.fault = err
	s.mu.Unlock()
}

func (s *ComplaintStore) Get(ctx context.Context, id string) (models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(ctx); err != nil {
		return models.Complaint{}, err
	}
	c, ok := s.items[id]
	if !ok {
		return models.Complaint{}, repository.ErrComplaintNotFound
	}
	return c.Clone(), nil
}

func (s *ComplaintStore) Save(ctx context.Context, c models.Complaint) (models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx); err != nil {
		return models.Complaint{}, err
	}

	current, exists := s.items[c.ID]
	switch {
	case c.Version == 0 && exists:
		return models.Complaint{}, repository.ErrDuplicate
	case c.Version != 0 && !exists:
		return models.Complaint{}, repository.ErrComplaintNotFound
	case c.Version != 0 && current.Version != c.Version:
		return models.Complaint{}, repository.ErrVersionConflict
	}

	c = c.Clone()
	c.Version++
	s.items[c.ID] = c
	return c.Clone(), nil
}

func (s *ComplaintStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx); err != nil {
		return err
	}
	if _, ok := s.items[id]; !ok {
		return repository.ErrComplaintNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *ComplaintStore) Query(ctx context.Context, filter models.ComplaintFilter, page, pageSize int) ([]models.Complaint, int, error) {
	all, err := s.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(all) {
		return []models.Complaint{}, len(all), nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (s *ComplaintStore) List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(ctx); err != nil {
		return nil, err
	}

	out := []models.Complaint{}
	for _, c := range s.items {
		if matches(c, filter) {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *ComplaintStore) check(ctx context.Context) error {
	if s.fault != nil {
		return s.fault
	}
	return ctx.Err()
}

func matches(c models.Complaint, f models.ComplaintFilter) bool {
	if f.SubmitterID != "" && !c.SubmittedBy(f.SubmitterID) {
		return false
	}
	if f.AssigneeID != "" && !c.AssignedTo(f.AssigneeID) {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.Priority != "" && c.Priority != f.Priority {
		return false
	}
	if f.Category != "" && c.Category != f.Category {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		hay := strings.ToLower(c.Description + " " + c.Category + " " + c.Location.Address)
		if !strings.Contains(hay, q) {
			return false
		}
	}
	return true
}
