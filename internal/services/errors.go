package services

import (
	stderrors "errors"

	"github.com/abrezinsky/pitchvote/internal/errors"
	"github.com/abrezinsky/pitchvote/internal/repository"
)

// Service errors
var (
	ErrPitchNotFound    = errors.NotFound("pitch not found")
	ErrCategoryNotFound = errors.NotFound("category not found")
	ErrInvalidDirection = errors.InvalidInput("direction must be next or previous")
)

// storeErr translates repository errors into application errors.
// notFound is returned for repository.ErrNotFound.
func storeErr(err error, notFound *errors.Error) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, repository.ErrNotFound):
		if notFound == nil {
			return errors.NotFound("not found")
		}
		return notFound
	case stderrors.Is(err, repository.ErrDuplicate):
		return errors.Conflict("already exists")
	}
	var appErr *errors.Error
	if stderrors.As(err, &appErr) {
		return err
	}
	return errors.Internal(err)
}
