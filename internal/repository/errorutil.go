package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/remote"
	"github.com/ericfisherdev/projectsync/internal/resource"
)

// IsNotFound reports whether err means the document does not exist,
// whichever layer produced it.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, remote.ErrNotFound) ||
		errors.Is(err, sql.ErrNoRows) ||
		domain.IsNotFound(err)
}

// classify turns a remote failure into the domain taxonomy.
func classify(entity string, err error) error {
	switch {
	case IsNotFound(err):
		return domain.NewNotFoundError("NOT_FOUND", fmt.Sprintf("%s not found", entity))
	case errors.Is(err, remote.ErrAlreadyExists):
		return domain.NewConflictError("ALREADY_EXISTS", fmt.Sprintf("%s already exists", entity))
	}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return domain.NewTransientNetworkError("REMOTE_CALL_FAILED", err.Error(), err)
}

// failure converts any error into an Error resource. Nothing else crosses
// the repository boundary.
func failure[R any](entity string, err error) resource.Resource[R] {
	classified := classify(entity, err)
	return resource.Error[R](domain.MessageOf(classified), classified)
}

func invalidID[R any](entity string) resource.Resource[R] {
	err := domain.NewValidationError("INVALID_ID", fmt.Sprintf("%s id is required", entity), map[string]interface{}{
		"field": "id",
	})
	return resource.FromError[R](err)
}
