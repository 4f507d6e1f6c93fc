package service

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/tracklane/ticket-tracker/internal/domain"
	"github.com/tracklane/ticket-tracker/internal/repository"
	apperrors "github.com/tracklane/ticket-tracker/pkg/util/errorutil"
)

// ReadOptions selects which relations a ticket read loads.
type ReadOptions struct {
	ResolveAssignee bool
	IncludeHistory  bool
}

// Paging bounds page sizes requested by callers.
type Paging struct {
	DefaultSize int
	MaxSize     int
}

func (p Paging) normalize(req domain.PageRequest) domain.PageRequest {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Per <= 0 {
		req.Per = p.DefaultSize
	}
	if req.Per <= 0 {
		req.Per = 10
	}
	if p.MaxSize > 0 && req.Per > p.MaxSize {
		req.Per = p.MaxSize
	}
	return req
}

// parseID rejects identifiers that are not UUIDs and returns the canonical form.
func parseID(resource, raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", apperrors.NewValidationError("malformed "+resource+" id", map[string]any{resource + "_id": raw})
	}
	return id.String(), nil
}

// mapError classifies repository errors. Domain errors pass through untouched.
func mapError(err error, resource string, details map[string]any) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, details)
	case errors.Is(err, repository.ErrConflict):
		return apperrors.NewConflict(resource+" violates an integrity constraint", details)
	default:
		return apperrors.NewStorageError(err)
	}
}

// missingFields takes name/value pairs and returns the names whose value is blank.
func missingFields(pairs ...string) []string {
	missing := []string{}
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i])
		}
	}
	return missing
}
