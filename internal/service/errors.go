package service

import (
	"errors"
	"fmt"

	"portalwarga/internal/repository"

	"gorm.io/gorm"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConflict          = errors.New("conflict")
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// storeError maps persistence errors onto the service sentinels, leaving anything else untouched.
func storeError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case errors.Is(err, repository.ErrNoRowsAffected):
		return fmt.Errorf("%w: %s was changed by someone else, reload and retry", ErrConflict, what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s already exists", ErrConflict, what)
	default:
		return fmt.Errorf("failed to persist %s: %w", what, err)
	}
}
