package repository

import (
	"context"

	"invoicing-api/internal/domain"
)

// InvoiceRepository exposes persistence operations for Invoice aggregates.
// Lookups return (nil, nil) when nothing matches.
type InvoiceRepository interface {
	FindAll(ctx context.Context) ([]domain.Invoice, error)
	FindByID(ctx context.Context, id int64) (*domain.Invoice, error)
	FindByNumber(ctx context.Context, number string) (*domain.Invoice, error)
	Create(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error)
	Update(ctx context.Context, id int64, patch domain.InvoicePatch) (*domain.Invoice, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
