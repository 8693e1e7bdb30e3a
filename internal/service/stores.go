package service

import (
	"context"

	"lgcms/internal/models"
)

// ComplaintStore is implemented by repository.ComplaintRepository and
// memory.ComplaintStore.
type ComplaintStore interface {
	Get(ctx context.Context, id string) (models.Complaint, error)
	Save(ctx context.Context, c models.Complaint) (models.Complaint, error)
	Delete(ctx context.Context, id string) error
	Query(ctx context.Context, filter models.ComplaintFilter, page, pageSize int) ([]models.Complaint, int, error)
	List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, error)
}

// UserStore is the credential store.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	GetByID(ctx context.Context, id string) (models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	UpdatePasswordHash(ctx context.Context, id string, hash []byte) error
	CountByRole(ctx context.Context) (map[models.Role]int, error)
	DepartmentExists(ctx context.Context, id string) (bool, error)
}
