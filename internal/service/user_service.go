package service

import (
	"context"
	"fmt"

	"invoicing-api/internal/domain"
	"invoicing-api/internal/repository"
)

// UserService exposes user maintenance. Users are created only through AuthService.Register.
type UserService interface {
	List(ctx context.Context) ([]domain.PublicUser, error)
	Get(ctx context.Context, id int64) (*domain.PublicUser, error)
	Update(ctx context.Context, id int64, patch domain.UserPatch) (*domain.PublicUser, error)
	Delete(ctx context.Context, id int64) error
}

type userService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) UserService {
	return &userService{users: users}
}

func (s *userService) List(ctx context.Context) ([]domain.PublicUser, error) {
	users, err := s.users.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PublicUser, len(users))
	for i := range users {
		out[i] = users[i].Public()
	}
	return out, nil
}

func (s *userService) Get(ctx context.Context, id int64) (*domain.PublicUser, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, userNotFound(id)
	}
	return sanitizeUser(user), nil
}

func (s *userService) Update(ctx context.Context, id int64, patch domain.UserPatch) (*domain.PublicUser, error) {
	patch, err := patch.Normalize()
	if err != nil {
		return nil, err
	}

	if patch.Email != nil {
		existing, err := s.users.FindByEmail(ctx, *patch.Email)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != id {
			return nil, fmt.Errorf("%w: email %s is already registered", domain.ErrDuplicate, *patch.Email)
		}
	}

	user, err := s.users.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, userNotFound(id)
	}
	return sanitizeUser(user), nil
}

func (s *userService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.users.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return userNotFound(id)
	}
	return nil
}

func sanitizeUser(user *domain.User) *domain.PublicUser {
	if user == nil {
		return nil
	}
	public := user.Public()
	return &public
}

func userNotFound(id int64) error {
	return fmt.Errorf("%w: user %d", domain.ErrNotFound, id)
}
