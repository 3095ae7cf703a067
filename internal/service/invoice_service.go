package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"invoicing-api/internal/domain"
	"invoicing-api/internal/repository"
)

// InvoiceService computes and freezes invoice totals against the product catalog.
type InvoiceService interface {
	List(ctx context.Context) ([]domain.Invoice, error)
	Get(ctx context.Context, id int64) (*domain.Invoice, error)
	Create(ctx context.Context, in CreateInvoiceInput) (*domain.Invoice, error)
	Update(ctx context.Context, id int64, in UpdateInvoiceInput) (*domain.Invoice, error)
	Delete(ctx context.Context, id int64) error
}

// CreateInvoiceInput is the raw create request. A nil LineItems means the field was absent.
type CreateInvoiceInput struct {
	Number       string
	CustomerName string
	LineItems    []domain.LineItem
}

// UpdateInvoiceInput holds optional replacements. A nil LineItems reuses the stored items.
type UpdateInvoiceInput struct {
	Number       *string
	CustomerName *string
	LineItems    []domain.LineItem
}

type invoiceService struct {
	invoices repository.InvoiceRepository
	products repository.ProductRepository
	now      func() time.Time
}

func NewInvoiceService(invoices repository.InvoiceRepository, products repository.ProductRepository) InvoiceService {
	return &invoiceService{
		invoices: invoices,
		products: products,
		now:      time.Now,
	}
}

func (s *invoiceService) List(ctx context.Context) ([]domain.Invoice, error) {
	return s.invoices.FindAll(ctx)
}

func (s *invoiceService) Get(ctx context.Context, id int64) (*domain.Invoice, error) {
	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, invoiceNotFound(id)
	}
	return inv, nil
}

func (s *invoiceService) Create(ctx context.Context, in CreateInvoiceInput) (*domain.Invoice, error) {
	number := strings.TrimSpace(in.Number)
	switch {
	case number == "":
		return nil, fmt.Errorf("%w: number is required", domain.ErrValidation)
	case strings.TrimSpace(in.CustomerName) == "":
		return nil, fmt.Errorf("%w: customer_name is required", domain.ErrValidation)
	case in.LineItems == nil:
		return nil, fmt.Errorf("%w: line_items must be a list", domain.ErrValidation)
	}

	// Shape checks run before any lookup so a malformed request always reports a validation failure.
	inv, err := domain.NewInvoice(number, in.CustomerName, in.LineItems, 0)
	if err != nil {
		return nil, err
	}

	existing, err := s.invoices.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, duplicateNumber(number)
	}

	total, err := s.computeTotal(ctx, inv.LineItems)
	if err != nil {
		return nil, err
	}
	inv.Total = total
	inv.CreatedAt = s.now().UTC()

	return s.invoices.Create(ctx, inv)
}

// Update recomputes the total from current product prices. CreatedAt is kept from the stored invoice.
func (s *invoiceService) Update(ctx context.Context, id int64, in UpdateInvoiceInput) (*domain.Invoice, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	number := current.Number
	if in.Number != nil {
		number = *in.Number
	}
	customer := current.CustomerName
	if in.CustomerName != nil {
		customer = *in.CustomerName
	}
	items := current.LineItems
	if in.LineItems != nil {
		items = in.LineItems
	}
	if items == nil {
		items = []domain.LineItem{}
	}

	next, err := domain.NewInvoice(number, customer, items, 0)
	if err != nil {
		return nil, err
	}

	if next.Number != current.Number {
		other, err := s.invoices.FindByNumber(ctx, next.Number)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != id {
			return nil, duplicateNumber(next.Number)
		}
	}

	next.Total, err = s.computeTotal(ctx, next.LineItems)
	if err != nil {
		return nil, err
	}

	updated, err := s.invoices.Update(ctx, id, domain.InvoicePatch{
		Number:       &next.Number,
		CustomerName: &next.CustomerName,
		LineItems:    next.LineItems,
		Total:        &next.Total,
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, invoiceNotFound(id)
	}
	return updated, nil
}

func (s *invoiceService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.invoices.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return invoiceNotFound(id)
	}
	return nil
}

// computeTotal resolves every line item against the catalog, one lookup at a time.
// Any invalid item or unknown product aborts the whole computation.
func (s *invoiceService) computeTotal(ctx context.Context, items []domain.LineItem) (float64, error) {
	prices := make([]float64, len(items))
	quantities := make([]float64, len(items))
	for i, item := range items {
		if err := item.Validate(i); err != nil {
			return 0, err
		}
		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			return 0, fmt.Errorf("resolve product %d: %w", item.ProductID, err)
		}
		if product == nil {
			return 0, fmt.Errorf("%w: product %d referenced by line item %d", domain.ErrNotFound, item.ProductID, i)
		}
		prices[i] = product.Price
		quantities[i] = item.Quantity
	}
	return domain.LineTotal(prices, quantities), nil
}

func invoiceNotFound(id int64) error {
	return fmt.Errorf("%w: invoice %d", domain.ErrNotFound, id)
}

func duplicateNumber(number string) error {
	return fmt.Errorf("%w: invoice number %s", domain.ErrDuplicate, number)
}
