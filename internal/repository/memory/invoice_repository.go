package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"invoicing-api/internal/domain"
	"invoicing-api/internal/repository"
)

// InvoiceRepository stores invoices in memory when the embedded database is unavailable.
type InvoiceRepository struct {
	mu       sync.RWMutex
	invoices map[int64]domain.Invoice
	lastID   int64
}

func NewInvoiceRepository() *InvoiceRepository {
	return &InvoiceRepository{invoices: make(map[int64]domain.Invoice)}
}

var _ repository.InvoiceRepository = (*InvoiceRepository)(nil)

func (r *InvoiceRepository) FindAll(_ context.Context) ([]domain.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Invoice, 0, len(r.invoices))
	for _, inv := range r.invoices {
		out = append(out, inv.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *InvoiceRepository) FindByID(_ context.Context, id int64) (*domain.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inv, ok := r.invoices[id]
	if !ok {
		return nil, nil
	}
	inv = inv.Clone()
	return &inv, nil
}

func (r *InvoiceRepository) FindByNumber(_ context.Context, number string) (*domain.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if inv, ok := r.byNumber(number); ok {
		inv = inv.Clone()
		return &inv, nil
	}
	return nil, nil
}

func (r *InvoiceRepository) Create(_ context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byNumber(invoice.Number); taken {
		return nil, fmt.Errorf("%w: invoice number %s", domain.ErrDuplicate, invoice.Number)
	}
	r.lastID++
	invoice = invoice.Clone()
	invoice.ID = r.lastID
	invoice.Total = domain.RoundMoney(invoice.Total)
	r.invoices[invoice.ID] = invoice

	out := invoice.Clone()
	return &out, nil
}

func (r *InvoiceRepository) Update(_ context.Context, id int64, patch domain.InvoicePatch) (*domain.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inv, ok := r.invoices[id]
	if !ok {
		return nil, nil
	}
	if patch.Number != nil {
		if other, taken := r.byNumber(*patch.Number); taken && other.ID != id {
			return nil, fmt.Errorf("%w: invoice number %s", domain.ErrDuplicate, *patch.Number)
		}
		inv.Number = *patch.Number
	}
	if patch.CustomerName != nil {
		inv.CustomerName = *patch.CustomerName
	}
	if patch.LineItems != nil {
		inv.LineItems = patch.LineItems
	}
	if patch.Total != nil {
		inv.Total = domain.RoundMoney(*patch.Total)
	}
	inv = inv.Clone()
	r.invoices[id] = inv

	out := inv.Clone()
	return &out, nil
}

func (r *InvoiceRepository) Delete(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.invoices[id]; !ok {
		return false, nil
	}
	delete(r.invoices, id)
	return true, nil
}

func (r *InvoiceRepository) byNumber(number string) (domain.Invoice, bool) {
	for _, inv := range r.invoices {
		if inv.Number == number {
			return inv, true
		}
	}
	return domain.Invoice{}, false
}
