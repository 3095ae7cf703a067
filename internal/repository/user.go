package repository

import (
	"context"

	"invoicing-api/internal/domain"
)

// UserRepository defines persistence operations for User entities.
// Lookups return (nil, nil) when nothing matches.
type UserRepository interface {
	FindAll(ctx context.Context) ([]domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user domain.User) (*domain.User, error)
	Update(ctx context.Context, id int64, patch domain.UserPatch) (*domain.User, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
