package repository

import (
	"context"

	"invoicing-api/internal/domain"
)

// ProductRepository defines persistence operations for the product catalog.
// Lookups return (nil, nil) when nothing matches.
type ProductRepository interface {
	FindAll(ctx context.Context) ([]domain.Product, error)
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	Create(ctx context.Context, product domain.Product) (*domain.Product, error)
	Update(ctx context.Context, id int64, patch domain.ProductPatch) (*domain.Product, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
