package service

import (
	"context"
	"errors"
	"fmt"

	"lgcms/internal/apperr"
	"lgcms/internal/repository"
)

// storeError translates repository failures into the caller-facing taxonomy.
func storeError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrComplaintNotFound):
		return apperr.NotFound("complaint not found")
	case errors.Is(err, repository.ErrUserNotFound):
		return apperr.NotFound("user not found")
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.New(apperr.KindConflict, "record already exists")
	case errors.Is(err, repository.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return apperr.StoreUnavailable(fmt.Errorf("%s: %w", op, err))
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
