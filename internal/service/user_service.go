package service

import (
	"context"
	"errors"
	"strings"

	"github.com/tracklane/ticket-tracker/internal/domain"
	"github.com/tracklane/ticket-tracker/internal/repository"
	apperrors "github.com/tracklane/ticket-tracker/pkg/util/errorutil"
)

// UserService manages users.
type UserService struct {
	store       repository.Store
	assignments *AssignmentService
	paging      Paging
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	Store       repository.Store
	Assignments *AssignmentService
	Paging      Paging
}

// UserInput carries the mutable user fields.
type UserInput struct {
	Name  string
	Email string
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	assignments := deps.Assignments
	if assignments == nil {
		assignments = NewAssignmentService(AssignmentDependencies{Store: deps.Store})
	}
	return &UserService{store: deps.Store, assignments: assignments, paging: deps.Paging}
}

func (in UserInput) validate() (UserInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if missing := missingFields("name", in.Name, "email", in.Email); len(missing) > 0 {
		return in, apperrors.NewValidationError("missing required fields", map[string]any{"fields": missing})
	}
	return in, nil
}

// Create registers a user.
func (s *UserService) Create(ctx context.Context, input UserInput) (*domain.User, error) {
	input, err := input.validate()
	if err != nil {
		return nil, err
	}
	user := &domain.User{Name: input.Name, Email: input.Email}
	if err := s.store.Repositories().Users.Create(ctx, user); err != nil {
		return nil, mapError(err, "user", nil)
	}
	return user, nil
}

// Get loads a user.
func (s *UserService) Get(ctx context.Context, userID string) (*domain.User, error) {
	id, err := parseID("user", userID)
	if err != nil {
		return nil, err
	}
	user, err := s.store.Repositories().Users.GetByID(ctx, id)
	if err != nil {
		return nil, mapError(err, "user", map[string]any{"user_id": id})
	}
	return user, nil
}

// List returns a page of users ordered by creation.
func (s *UserService) List(ctx context.Context, req domain.PageRequest) (*domain.Page[domain.User], error) {
	req = s.paging.normalize(req)
	repos := s.store.Repositories()
	total, err := repos.Users.Count(ctx)
	if err != nil {
		return nil, mapError(err, "user", nil)
	}
	users, err := repos.Users.List(ctx, req.Per, req.Offset())
	if err != nil {
		return nil, mapError(err, "user", nil)
	}
	return &domain.Page[domain.User]{
		Items:    users,
		Metadata: domain.PageMetadata{Page: req.Page, Per: req.Per, Total: total},
	}, nil
}

// Update overwrites name and email.
func (s *UserService) Update(ctx context.Context, userID string, input UserInput) (*domain.User, error) {
	id, err := parseID("user", userID)
	if err != nil {
		return nil, err
	}
	input, err = input.validate()
	if err != nil {
		return nil, err
	}
	var user *domain.User
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		current, err := repos.Users.GetByID(ctx, id)
		if err != nil {
			return mapError(err, "user", map[string]any{"user_id": id})
		}
		current.Name = input.Name
		current.Email = input.Email
		if err := repos.Users.Update(ctx, current); err != nil {
			return mapError(err, "user", map[string]any{"user_id": id})
		}
		user = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes a user that no ticket is assigned to.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	id, err := parseID("user", userID)
	if err != nil {
		return err
	}
	return s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := repos.Users.GetByID(ctx, id); err != nil {
			return mapError(err, "user", map[string]any{"user_id": id})
		}
		if err := s.assignments.OnUserDeleted(ctx, repos, id); err != nil {
			return err
		}
		if err := repos.Users.Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return apperrors.NewConflict("user has assigned tickets", map[string]any{"user_id": id})
			}
			return mapError(err, "user", map[string]any{"user_id": id})
		}
		return nil
	})
}
